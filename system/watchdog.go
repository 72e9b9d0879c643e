package system

import (
	"context"
	"time"

	"emperror.dev/errors"
	log "github.com/sirupsen/logrus"
	"k8s.io/utils/clock"

	"github.com/dreamsxin/xperformance/bridge"
)

// DefaultWatchdogInterval 连接检查周期
const DefaultWatchdogInterval = time.Second

// Watchdog 定期检查设备连接，连接丢失时清除运行标志。
// 它只读写运行标志，不接触会话数据。
type Watchdog struct {
	bridge   bridge.Bridge
	flag     *RunFlag
	clock    clock.WithTicker
	interval time.Duration
	err      error
}

func NewWatchdog(b bridge.Bridge, flag *RunFlag, clk clock.WithTicker, interval time.Duration) *Watchdog {
	if interval <= 0 {
		interval = DefaultWatchdogInterval
	}
	return &Watchdog{
		bridge:   b,
		flag:     flag,
		clock:    clk,
		interval: interval,
	}
}

// Start 在后台运行检查，返回的通道在检查退出后关闭
func (w *Watchdog) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.run(ctx)
	}()
	return done
}

func (w *Watchdog) run(ctx context.Context) {
	ticker := w.clock.NewTicker(w.interval)
	defer ticker.Stop()

	for w.flag.Running() {
		select {
		case <-w.flag.Done():
			return
		case <-ticker.C():
		}

		if err := w.bridge.Ping(ctx); err != nil {
			// 会话被取消时的失败不算断开
			if ctx.Err() != nil {
				w.flag.Stop()
				return
			}
			if !errors.Is(err, bridge.ErrDisconnected) {
				err = errors.Wrapf(bridge.ErrDisconnected, "%v", err)
			}
			w.err = err
			log.Errorf("ADB connection lost: %v", err)
			w.flag.Stop()
			return
		}
	}
}

// Err 连接丢失的原因，只能在 Start 返回的通道关闭后读取
func (w *Watchdog) Err() error {
	return w.err
}
