// Package series 保存会话期间的时间序列和峰值
package series

import (
	"time"
)

// Buffer 有界的时间序列，时间戳和值并行存放。
// capacity 为0表示不限制长度（会话结束即释放）。
type Buffer[T any] struct {
	capacity   int
	timestamps []time.Time
	values     []T
}

// NewBuffer 创建时间序列
func NewBuffer[T any](capacity int) *Buffer[T] {
	if capacity < 0 {
		capacity = 0
	}
	b := &Buffer[T]{capacity: capacity}
	if capacity > 0 {
		b.timestamps = make([]time.Time, 0, capacity)
		b.values = make([]T, 0, capacity)
	}
	return b
}

// Stamp 返回追加 ts 时实际使用的时间戳：早于最后一个样本的时间戳
// 会被提升到最后一个时间戳。值里带时间戳的调用方应先用它改写值。
func (b *Buffer[T]) Stamp(ts time.Time) time.Time {
	if n := len(b.timestamps); n > 0 && ts.Before(b.timestamps[n-1]) {
		return b.timestamps[n-1]
	}
	return ts
}

// Append 在尾部追加样本，超过容量时从头部淘汰最旧的样本。
// 时间戳经过 Stamp，保证时间顺序不倒退。
func (b *Buffer[T]) Append(ts time.Time, v T) {
	b.timestamps = append(b.timestamps, b.Stamp(ts))
	b.values = append(b.values, v)

	// 保持容量
	if b.capacity > 0 && len(b.values) > b.capacity {
		drop := len(b.values) - b.capacity
		b.timestamps = append(b.timestamps[:0], b.timestamps[drop:]...)
		b.values = append(b.values[:0], b.values[drop:]...)
	}
}

// Len 当前样本数
func (b *Buffer[T]) Len() int {
	return len(b.values)
}

// Capacity 容量，0表示不限制
func (b *Buffer[T]) Capacity() int {
	return b.capacity
}

// Timestamps 返回时间戳副本
func (b *Buffer[T]) Timestamps() []time.Time {
	out := make([]time.Time, len(b.timestamps))
	copy(out, b.timestamps)
	return out
}

// Values 返回值副本
func (b *Buffer[T]) Values() []T {
	out := make([]T, len(b.values))
	copy(out, b.values)
	return out
}

// Last 返回最新的样本
func (b *Buffer[T]) Last() (time.Time, T, bool) {
	var zero T
	if len(b.values) == 0 {
		return time.Time{}, zero, false
	}
	n := len(b.values) - 1
	return b.timestamps[n], b.values[n], true
}
