// Package monitor 从设备上采集目标进程的CPU和内存数据
package monitor

import (
	"context"
	"fmt"

	"emperror.dev/errors"

	"github.com/dreamsxin/xperformance/types"
)

var (
	// ErrChainExhausted 所有CPU策略都失败或没有可用数据
	ErrChainExhausted = errors.NewPlain("every cpu strategy failed")
	// ErrNoUsableData 策略成功执行但结果为空（进程CPU为0且没有线程）
	ErrNoUsableData = errors.NewPlain("no usable data")
	// ErrMalformedReport 输出中找不到需要的表或列
	ErrMalformedReport = errors.NewPlain("malformed report")
)

// Reading 单个策略的原始结果
type Reading struct {
	ProcessCPU float64
	Threads    []types.ThreadUsage
	System     *types.SystemCpu
	// Synthetic 线程占用是占位数据，不参与进程CPU修正
	Synthetic bool
}

// Trivial 进程CPU为0且没有线程
func (r Reading) Trivial() bool {
	return r.ProcessCPU <= 0 && len(r.Threads) == 0
}

// Source CPU采集策略接口
type Source interface {
	// 策略名称，用于日志和导出
	Name() string

	// 对指定进程采样一次
	Attempt(ctx context.Context, handle types.ProcessHandle) (Reading, error)
}

// SourceError 某个策略失败，链会继续尝试下一个策略
type SourceError struct {
	Strategy string
	Err      error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("cpu strategy %s: %v", e.Strategy, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}
