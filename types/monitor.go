package types

import (
	"fmt"
	"time"
)

const (
	// DefaultTopThreads 每个CPU样本保留的线程数
	DefaultTopThreads = 10
	// DefaultMemoryHistory 内存时间序列的容量
	DefaultMemoryHistory = 300
	// DefaultBridgeTimeout 单次桥接命令超时
	DefaultBridgeTimeout = 10 * time.Second
)

// MonitorConfig 监控会话配置
type MonitorConfig struct {
	Package       string        `json:"package"`
	CPU           bool          `json:"cpu"`
	Memory        bool          `json:"memory"`
	Thread        bool          `json:"thread"`
	Verbose       bool          `json:"verbose"`
	Interval      time.Duration `json:"interval"`
	TopThreads    int           `json:"top_threads"`
	MemoryHistory int           `json:"memory_history"`
	// CPUHistory 为0表示会话内不限制
	CPUHistory int `json:"cpu_history"`
}

// DefaultMonitorConfig 返回默认配置
func DefaultMonitorConfig(pkg string) MonitorConfig {
	return MonitorConfig{
		Package:       pkg,
		CPU:           true,
		Memory:        true,
		Interval:      time.Second,
		TopThreads:    DefaultTopThreads,
		MemoryHistory: DefaultMemoryHistory,
	}
}

// Validate 检查配置是否可用
func (c MonitorConfig) Validate() error {
	if c.Package == "" {
		return fmt.Errorf("package name is required")
	}
	if c.Interval < time.Second {
		return fmt.Errorf("sampling interval must be at least 1 second")
	}
	if c.TopThreads < 1 {
		return fmt.Errorf("top thread count must be at least 1")
	}
	if c.MemoryHistory < 2 {
		return fmt.Errorf("memory history size must be at least 2")
	}
	if c.CPUHistory < 0 {
		return fmt.Errorf("cpu history size cannot be negative")
	}
	if !c.CPU && !c.Memory {
		return fmt.Errorf("no metric selected, use --cpu or --memory")
	}
	return nil
}
