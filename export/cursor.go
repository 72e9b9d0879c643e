package export

import (
	"time"

	"github.com/dreamsxin/xperformance/types"
)

// cursor 增量导出的位置：最后导出的时间戳，以及该时间戳上已导出的样本数。
// 同一秒内可能有多个样本，只比较时间戳会漏掉它们。
type cursor struct {
	at time.Time
	n  int
}

// advance 输入按时间非递减排列，返回第一个未导出样本的下标和推进后的游标。
// 被淘汰的旧样本不影响结果。
func (c cursor) advance(stamps []time.Time) (int, cursor) {
	start, seen := 0, 0
	for i, ts := range stamps {
		if ts.Before(c.at) {
			start = i + 1
			continue
		}
		if ts.Equal(c.at) && seen < c.n {
			seen++
			start = i + 1
			continue
		}
		break
	}

	fresh := stamps[start:]
	if len(fresh) == 0 {
		return start, c
	}
	last := fresh[len(fresh)-1]
	next := cursor{at: last, n: 0}
	if last.Equal(c.at) {
		next.n = c.n
	}
	for _, ts := range fresh {
		if ts.Equal(last) {
			next.n++
		}
	}
	return start, next
}

func cpuStamps(samples []types.CpuSample) []time.Time {
	out := make([]time.Time, len(samples))
	for i, s := range samples {
		out[i] = s.Timestamp
	}
	return out
}

func memoryStamps(samples []types.MemoryBreakdown) []time.Time {
	out := make([]time.Time, len(samples))
	for i, s := range samples {
		out[i] = s.Timestamp
	}
	return out
}
