package monitor

import (
	"context"
	"time"

	"emperror.dev/errors"
	log "github.com/sirupsen/logrus"
	"k8s.io/utils/ptr"

	"github.com/dreamsxin/xperformance/bridge"
	"github.com/dreamsxin/xperformance/types"
)

// Result 被接受的策略结果，进程CPU已修正，线程已截取前K个
type Result struct {
	Strategy    string
	ProcessCPU  float64
	Reported    float64
	System      *types.SystemCpu
	TopThreads  []types.ThreadUsage
	ThreadCount int
	Synthetic   bool
}

// Sample 转换为时间序列中的样本
func (r Result) Sample(ts time.Time, pid string) types.CpuSample {
	sample := types.CpuSample{
		Timestamp:         ts,
		PID:               pid,
		ProcessCPUPercent: r.ProcessCPU,
		TopThreads:        r.TopThreads,
		Strategy:          r.Strategy,
	}
	if r.System != nil {
		sample.SystemCPUPercent = ptr.To(r.System.ActivePercent)
		sample.IdleCPUPercent = ptr.To(r.System.IdlePercent)
	}
	return sample
}

// Chain CPU采集策略链，按顺序尝试，接受第一个有数据的结果
type Chain struct {
	sources []Source
	topK    int
}

// NewChain 创建策略链
func NewChain(topK int, sources ...Source) *Chain {
	if topK < 1 {
		topK = types.DefaultTopThreads
	}
	return &Chain{sources: sources, topK: topK}
}

// DefaultChain 按可信度从高到低：top -H、ps -T、top 快照、占位
func DefaultChain(b bridge.Bridge, topK int) *Chain {
	return NewChain(topK,
		NewThreadsSource(b),
		NewPSSource(b),
		NewSnapshotSource(b),
		NewPlaceholderSource(b),
	)
}

// Strategies 返回策略名称
func (c *Chain) Strategies() []string {
	names := make([]string, 0, len(c.sources))
	for _, s := range c.sources {
		names = append(names, s.Name())
	}
	return names
}

// Acquire 对进程采样一次。某个策略被接受后不再执行后面的策略；
// 全部失败时返回 ErrChainExhausted，只影响本次tick。
func (c *Chain) Acquire(ctx context.Context, handle types.ProcessHandle) (Result, error) {
	var errs []error
	for _, src := range c.sources {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		fields := log.Fields{"strategy": src.Name(), "pid": handle.PID}
		reading, err := src.Attempt(ctx, handle)
		if err != nil {
			log.WithFields(fields).Debugf("cpu strategy failed: %v", err)
			errs = append(errs, &SourceError{Strategy: src.Name(), Err: err})
			continue
		}
		if reading.Trivial() {
			log.WithFields(fields).Debug("cpu strategy returned no usable data")
			errs = append(errs, &SourceError{Strategy: src.Name(), Err: ErrNoUsableData})
			continue
		}
		return c.accept(src.Name(), reading), nil
	}
	return Result{}, errors.Wrapf(ErrChainExhausted, "pid %s: %v", handle.PID, errors.Combine(errs...))
}

func (c *Chain) accept(name string, r Reading) Result {
	effective := r.ProcessCPU
	if !r.Synthetic {
		effective = Reconcile(r.ProcessCPU, r.Threads)
	}
	return Result{
		Strategy:    name,
		ProcessCPU:  effective,
		Reported:    r.ProcessCPU,
		System:      r.System,
		TopThreads:  TopThreads(r.Threads, c.topK),
		ThreadCount: len(r.Threads),
		Synthetic:   r.Synthetic,
	}
}
