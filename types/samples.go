package types

import "time"

// ThreadUsage 单个线程的CPU占用
type ThreadUsage struct {
	TID        string  `json:"tid"`
	Name       string  `json:"name"`
	CPUPercent float64 `json:"cpu_percent"`
}

// SystemCpu 设备整体CPU占用，已按总核数归一化到0-100
type SystemCpu struct {
	ActivePercent float64 `json:"active_percent"`
	IdlePercent   float64 `json:"idle_percent"`
	Cores         float64 `json:"cores"`
}

// CpuSample 一次CPU采样
type CpuSample struct {
	Timestamp         time.Time     `json:"timestamp"`
	PID               string        `json:"pid"`
	ProcessCPUPercent float64       `json:"process_cpu_percent"`
	SystemCPUPercent  *float64      `json:"system_cpu_percent,omitempty"`
	IdleCPUPercent    *float64      `json:"idle_cpu_percent,omitempty"`
	TopThreads        []ThreadUsage `json:"top_threads"`
	Strategy          string        `json:"strategy"`
}

// MemoryBreakdown 按类别划分的PSS内存，单位KB
type MemoryBreakdown struct {
	Timestamp    time.Time `json:"timestamp"`
	PID          string    `json:"pid"`
	TotalPss     uint64    `json:"total_pss"`
	JavaHeap     uint64    `json:"java_heap"`
	NativeHeap   uint64    `json:"native_heap"`
	Code         uint64    `json:"code"`
	Stack        uint64    `json:"stack"`
	Graphics     uint64    `json:"graphics"`
	PrivateOther uint64    `json:"private_other"`
	System       uint64    `json:"system"`
}

// Partial 只有TotalPss时为true，调用方应视为部分数据而不是错误
func (m MemoryBreakdown) Partial() bool {
	return m.JavaHeap == 0 && m.NativeHeap == 0 && m.Code == 0 && m.Stack == 0 &&
		m.Graphics == 0 && m.PrivateOther == 0 && m.System == 0
}

// CategorySum 各类别之和
func (m MemoryBreakdown) CategorySum() uint64 {
	return m.JavaHeap + m.NativeHeap + m.Code + m.Stack + m.Graphics + m.PrivateOther + m.System
}

// PeakRecord 峰值及其出现时间
type PeakRecord[T any] struct {
	Value      T         `json:"value"`
	ObservedAt time.Time `json:"observed_at"`
	Set        bool      `json:"set"`
}

// ThreadKey 线程时间序列的键，按进程实例划分
type ThreadKey struct {
	PID string
	TID string
}

// ThreadPoint 线程时间序列中的一个点
type ThreadPoint struct {
	Timestamp  time.Time
	Name       string
	CPUPercent float64
}

// SessionSnapshot 导出时使用的只读会话快照
type SessionSnapshot struct {
	SessionID     string
	Package       string
	StartedAt     time.Time
	TakenAt       time.Time
	Handle        ProcessHandle
	CPUPeak       PeakRecord[float64]
	MemoryPeak    PeakRecord[uint64]
	RestartCount  int
	Restarts      []RestartEvent
	CPU           []CpuSample
	Memory        []MemoryBreakdown
	ThreadSeries  map[ThreadKey][]ThreadPoint
	CPUEnabled    bool
	MemoryEnabled bool
}
