package system

import (
	"time"

	"github.com/dreamsxin/xperformance/series"
	"github.com/dreamsxin/xperformance/types"
)

// SessionStats 会话级聚合数据，只由会话循环写入。
// 进程重启不会清空峰值和时间序列。
type SessionStats struct {
	cpuPeak    series.Peak[float64]
	memoryPeak series.Peak[uint64]
	restarts   []types.RestartEvent

	cpu            *series.Buffer[types.CpuSample]
	memory         *series.Buffer[types.MemoryBreakdown]
	threads        map[types.ThreadKey]*series.Buffer[types.ThreadPoint]
	threadCapacity int
}

// NewSessionStats cpuCapacity 为0表示CPU序列在会话内不限制长度
func NewSessionStats(cpuCapacity, memoryCapacity int) *SessionStats {
	return &SessionStats{
		cpu:            series.NewBuffer[types.CpuSample](cpuCapacity),
		memory:         series.NewBuffer[types.MemoryBreakdown](memoryCapacity),
		threads:        make(map[types.ThreadKey]*series.Buffer[types.ThreadPoint]),
		threadCapacity: cpuCapacity,
	}
}

// AddCPU 记录CPU样本并更新峰值
func (s *SessionStats) AddCPU(sample types.CpuSample) {
	sample.Timestamp = s.cpu.Stamp(sample.Timestamp)
	s.cpu.Append(sample.Timestamp, sample)
	s.cpuPeak.Offer(sample.ProcessCPUPercent, sample.Timestamp)
}

// AddMemory 记录内存样本，峰值按 TotalPss 计算
func (s *SessionStats) AddMemory(m types.MemoryBreakdown) {
	m.Timestamp = s.memory.Stamp(m.Timestamp)
	s.memory.Append(m.Timestamp, m)
	s.memoryPeak.Offer(m.TotalPss, m.Timestamp)
}

// AddThreads 线程序列按 (pid, tid) 划分，线程号在进程重启后可能被复用
func (s *SessionStats) AddThreads(pid string, ts time.Time, threads []types.ThreadUsage) {
	for _, t := range threads {
		key := types.ThreadKey{PID: pid, TID: t.TID}
		buf, ok := s.threads[key]
		if !ok {
			buf = series.NewBuffer[types.ThreadPoint](s.threadCapacity)
			s.threads[key] = buf
		}
		at := buf.Stamp(ts)
		buf.Append(at, types.ThreadPoint{Timestamp: at, Name: t.Name, CPUPercent: t.CPUPercent})
	}
}

// RecordRestart 记录一次进程重启并编号，返回带序号的事件
func (s *SessionStats) RecordRestart(event types.RestartEvent) types.RestartEvent {
	event.Count = len(s.restarts) + 1
	s.restarts = append(s.restarts, event)
	return event
}

func (s *SessionStats) RestartCount() int {
	return len(s.restarts)
}

func (s *SessionStats) CPUPeak() types.PeakRecord[float64] {
	return s.cpuPeak.Record()
}

func (s *SessionStats) MemoryPeak() types.PeakRecord[uint64] {
	return s.memoryPeak.Record()
}

func (s *SessionStats) CPULen() int {
	return s.cpu.Len()
}

func (s *SessionStats) MemoryLen() int {
	return s.memory.Len()
}

// HourlyEligible 已启用的某个序列至少有两个点时才做整点导出
func (s *SessionStats) HourlyEligible(cpu, memory bool) bool {
	return (cpu && s.cpu.Len() >= 2) || (memory && s.memory.Len() >= 2)
}

// Snapshot 复制当前数据，供导出器读取
func (s *SessionStats) Snapshot() types.SessionSnapshot {
	threads := make(map[types.ThreadKey][]types.ThreadPoint, len(s.threads))
	for key, buf := range s.threads {
		threads[key] = buf.Values()
	}
	restarts := make([]types.RestartEvent, len(s.restarts))
	copy(restarts, s.restarts)

	return types.SessionSnapshot{
		CPUPeak:      s.cpuPeak.Record(),
		MemoryPeak:   s.memoryPeak.Record(),
		RestartCount: len(s.restarts),
		Restarts:     restarts,
		CPU:          s.cpu.Values(),
		Memory:       s.memory.Values(),
		ThreadSeries: threads,
	}
}
