package series

import (
	"time"

	"golang.org/x/exp/constraints"

	"github.com/dreamsxin/xperformance/types"
)

// Peak 单调递增的峰值记录，不随进程重启清零
type Peak[T constraints.Ordered] struct {
	record types.PeakRecord[T]
}

// Offer 只有严格大于当前峰值时才替换，相等时保留更早的时间
func (p *Peak[T]) Offer(v T, at time.Time) bool {
	if p.record.Set && !(v > p.record.Value) {
		return false
	}
	p.record = types.PeakRecord[T]{Value: v, ObservedAt: at, Set: true}
	return true
}

// Record 当前峰值
func (p *Peak[T]) Record() types.PeakRecord[T] {
	return p.record
}

// Reset 仅在会话开始时调用
func (p *Peak[T]) Reset() {
	p.record = types.PeakRecord[T]{}
}
