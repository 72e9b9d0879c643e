// Package system 运行一次监控会话：调度采样、跟踪进程重启、在触发点导出数据
package system

import (
	"context"
	"fmt"
	"time"

	"emperror.dev/errors"
	log "github.com/sirupsen/logrus"
	"k8s.io/utils/clock"

	"github.com/dreamsxin/xperformance/bridge"
	"github.com/dreamsxin/xperformance/export"
	"github.com/dreamsxin/xperformance/manager"
	"github.com/dreamsxin/xperformance/monitor"
	"github.com/dreamsxin/xperformance/scheduler"
	"github.com/dreamsxin/xperformance/types"
	"github.com/dreamsxin/xperformance/util"
)

// consoleThreads --thread 模式下每个tick打印的线程数
const consoleThreads = 5

// Options 会话依赖
type Options struct {
	Config   types.MonitorConfig
	Bridge   bridge.Bridge
	Exporter export.Exporter
	// Clock 为空时使用真实时钟
	Clock            clock.WithTicker
	SessionID        string
	WatchdogInterval time.Duration
}

// Session 一次监控会话
type Session struct {
	cfg      types.MonitorConfig
	id       string
	clock    clock.WithTicker
	resolver *manager.Resolver
	tracker  *manager.Tracker
	chain    *monitor.Chain
	memory   *monitor.MemorySampler
	exporter export.Exporter
	stats    *SessionStats
	flag     *RunFlag
	watchdog *Watchdog

	startedAt time.Time
}

// NewSession 创建会话
func NewSession(opts Options) (*Session, error) {
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}
	if opts.Bridge == nil {
		return nil, errors.NewPlain("a device bridge is required")
	}
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	if opts.Exporter == nil {
		opts.Exporter = export.NewMulti()
	}
	if opts.SessionID == "" {
		opts.SessionID = util.NewSessionID()
	}

	flag := NewRunFlag()
	return &Session{
		cfg:      opts.Config,
		id:       opts.SessionID,
		clock:    opts.Clock,
		resolver: manager.NewResolver(opts.Bridge),
		tracker:  manager.NewTracker(opts.Clock),
		chain:    monitor.DefaultChain(opts.Bridge, opts.Config.TopThreads),
		memory:   monitor.NewMemorySampler(opts.Bridge),
		exporter: opts.Exporter,
		stats:    NewSessionStats(opts.Config.CPUHistory, opts.Config.MemoryHistory),
		flag:     flag,
		watchdog: NewWatchdog(opts.Bridge, flag, opts.Clock, opts.WatchdogInterval),
	}, nil
}

// ID 会话标识
func (s *Session) ID() string {
	return s.id
}

// Stop 请求会话结束，当前tick会正常完成
func (s *Session) Stop() {
	s.flag.Stop()
}

// Stats 会话数据，只能在 Run 返回后读取
func (s *Session) Stats() *SessionStats {
	return s.stats
}

// Handle 当前跟踪的进程实例
func (s *Session) Handle() types.ProcessHandle {
	return s.tracker.Current()
}

// Run 执行会话直到被停止、连接丢失或进程消失。
// 结束时先等待连接检查退出，再做最终导出。
func (s *Session) Run(ctx context.Context) error {
	s.startedAt = s.clock.Now()

	handle, err := s.resolver.Resolve(ctx, s.cfg.Package)
	if err != nil {
		return err
	}
	s.tracker.Observe(handle)
	log.Infof("Process started with PID %s at %s", handle.PID, handle.StartedAt)

	go func() {
		select {
		case <-ctx.Done():
			s.flag.Stop()
		case <-s.flag.Done():
		}
	}()
	watchdogDone := s.watchdog.Start(ctx)

	sched := scheduler.New(s.clock, s.cfg.Interval)
	hours := scheduler.NewHourWatch(s.startedAt)

	var runErr error
	for s.flag.Running() {
		tick, ok := sched.Next(s.flag.Done())
		if !ok {
			break
		}
		if tick.Skipped > 0 {
			log.WithFields(log.Fields{
				"tick":     tick.Index,
				"interval": sched.Interval(),
				"offset":   tick.Target.Sub(sched.Origin()),
			}).Warnf("Sampling is taking longer than the interval. Skipped %d samples to catch up.", tick.Skipped)
		}
		if err := s.tick(ctx, tick, hours); err != nil {
			runErr = err
			break
		}
	}

	s.flag.Stop()
	<-watchdogDone
	if runErr == nil {
		runErr = s.watchdog.Err()
	}

	final := context.WithoutCancel(ctx)
	s.export(final, export.TriggerSessionEnd)
	return runErr
}

func (s *Session) tick(ctx context.Context, tick scheduler.Tick, hours *scheduler.HourWatch) error {
	logger := log.WithField("tick", tick.Index)

	now := s.clock.Now()
	if hours.Crossed(now, s.stats.HourlyEligible(s.cfg.CPU, s.cfg.Memory)) {
		s.export(ctx, export.TriggerHourly)
	}

	handle, err := s.resolver.Resolve(ctx, s.cfg.Package)
	switch {
	case errors.Is(err, manager.ErrProcessNotFound):
		logger.Errorf("Process not found: %v", err)
		return err
	case err != nil:
		// 桥接失败不致命，沿用上一个进程实例
		logger.Warnf("resolve failed: %v", err)
		handle = s.tracker.Current()
	default:
		if event, restarted := s.tracker.Observe(handle); restarted {
			s.restarted(ctx, event)
		}
	}
	logger = logger.WithField("pid", handle.PID)

	if s.cfg.CPU {
		s.sampleCPU(ctx, logger, handle)
	}
	if s.cfg.Memory {
		s.sampleMemory(ctx, logger, handle)
	}
	return nil
}

func (s *Session) restarted(ctx context.Context, event types.RestartEvent) {
	event = s.stats.RecordRestart(event)
	log.Warnf("Process restarted! New PID: %s (previous: %s), Start time: %s",
		event.Current.PID, event.Previous.PID, event.Current.StartedAt)

	// 日志导出器会输出重启前的峰值
	s.export(ctx, export.TriggerRestart)
}

func (s *Session) sampleCPU(ctx context.Context, logger *log.Entry, handle types.ProcessHandle) {
	res, err := s.chain.Acquire(ctx, handle)
	if err != nil {
		logger.Warnf("CPU sample skipped: %v", err)
		return
	}
	ts := s.clock.Now()
	sample := res.Sample(ts, handle.PID)
	s.stats.AddCPU(sample)

	system, idle := "n/a", "n/a"
	if res.System != nil {
		system = util.FormatPercent(res.System.ActivePercent)
		idle = util.FormatPercent(res.System.IdlePercent)
	}
	logger.Infof("[%s] Process: %s, System: %s (idle: %s, pid: %s, threads: %d)",
		ts.Format("15:04:05"), util.FormatPercent(res.ProcessCPU), system, idle, handle.PID, res.ThreadCount)
	logger.WithField("strategy", res.Strategy).Debugf("reported %s, reconciled %s",
		util.FormatPercent(res.Reported), util.FormatPercent(res.ProcessCPU))

	if s.cfg.Thread {
		s.stats.AddThreads(handle.PID, ts, res.TopThreads)
		for _, line := range threadListing(res) {
			logger.Info(line)
		}
	}
}

// threadListing 前几个线程，其余只给出数量
func threadListing(res monitor.Result) []string {
	var lines []string
	for i, t := range res.TopThreads {
		if i == consoleThreads {
			break
		}
		lines = append(lines, fmt.Sprintf("  %-8s %6s %s", t.TID, util.FormatPercent(t.CPUPercent), t.Name))
	}
	if more := res.ThreadCount - len(lines); more > 0 {
		lines = append(lines, fmt.Sprintf("  ... and %d more threads", more))
	}
	return lines
}

func (s *Session) sampleMemory(ctx context.Context, logger *log.Entry, handle types.ProcessHandle) {
	mem, err := s.memory.Sample(ctx, handle)
	if err != nil {
		logger.Warnf("Memory sample skipped: %v", err)
		return
	}
	mem.Timestamp = s.clock.Now()
	s.stats.AddMemory(mem)

	logger.Infof("[%s] Memory Usage: %s", mem.Timestamp.Format("15:04:05"), util.FormatKB(mem.TotalPss))
	if mem.Partial() {
		logger.Debug("memory summary unavailable, only total PSS recorded")
	}
}

func (s *Session) snapshot() types.SessionSnapshot {
	snap := s.stats.Snapshot()
	snap.SessionID = s.id
	snap.Package = s.cfg.Package
	snap.StartedAt = s.startedAt
	snap.TakenAt = s.clock.Now()
	snap.Handle = s.tracker.Current()
	snap.CPUEnabled = s.cfg.CPU
	snap.MemoryEnabled = s.cfg.Memory
	return snap
}

// export 导出失败只记录日志，不影响会话。每个失败的导出器记录一条
func (s *Session) export(ctx context.Context, trigger export.Trigger) {
	err := s.exporter.Export(ctx, trigger, s.snapshot())
	for _, e := range errors.GetErrors(err) {
		fields := log.Fields{"trigger": trigger}
		var xerr *export.Error
		if errors.As(e, &xerr) {
			fields["exporter"] = xerr.Exporter
			e = xerr.Err
		}
		log.WithFields(fields).Warnf("export failed: %v", e)
	}
}
