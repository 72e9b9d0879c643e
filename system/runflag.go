package system

import (
	"sync"
	"sync/atomic"
)

// RunFlag 会话循环和连接检查共享的运行标志。
// Stop 可以被多次调用，Done 在第一次 Stop 时关闭，用于唤醒等待中的一方。
type RunFlag struct {
	running atomic.Bool
	done    chan struct{}
	once    sync.Once
}

// NewRunFlag 创建处于运行状态的标志
func NewRunFlag() *RunFlag {
	f := &RunFlag{done: make(chan struct{})}
	f.running.Store(true)
	return f
}

// Running 是否仍在运行
func (f *RunFlag) Running() bool {
	return f.running.Load()
}

// Stop 清除运行标志
func (f *RunFlag) Stop() {
	f.once.Do(func() {
		f.running.Store(false)
		close(f.done)
	})
}

// Done 标志被清除时关闭
func (f *RunFlag) Done() <-chan struct{} {
	return f.done
}
