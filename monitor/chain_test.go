package monitor

import (
	"context"
	"fmt"
	"testing"
	"time"

	"emperror.dev/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamsxin/xperformance/types"
)

var handle = types.ProcessHandle{Package: "com.example.app", PID: "4300"}

type stubSource struct {
	name    string
	reading Reading
	err     error
	calls   int
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Attempt(ctx context.Context, h types.ProcessHandle) (Reading, error) {
	s.calls++
	return s.reading, s.err
}

func TestChainSkipsTrivialResult(t *testing.T) {
	a := &stubSource{name: "a"}
	b := &stubSource{name: "b", reading: Reading{
		ProcessCPU: 12.5,
		Threads:    []types.ThreadUsage{{TID: "1", Name: "main", CPUPercent: 12.5}},
	}}

	res, err := NewChain(10, a, b).Acquire(context.Background(), handle)
	require.NoError(t, err)
	assert.Equal(t, "b", res.Strategy)
	assert.Equal(t, 12.5, res.ProcessCPU)
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls)
}

func TestChainStopsAtFirstAccepted(t *testing.T) {
	a := &stubSource{name: "a", reading: Reading{ProcessCPU: 5}}
	b := &stubSource{name: "b", reading: Reading{ProcessCPU: 50}}

	res, err := NewChain(10, a, b).Acquire(context.Background(), handle)
	require.NoError(t, err)
	assert.Equal(t, "a", res.Strategy)
	assert.Equal(t, 5.0, res.ProcessCPU)
	assert.Zero(t, b.calls)
}

func TestChainFallsThroughErrors(t *testing.T) {
	a := &stubSource{name: "a", err: errors.New("bridge down")}
	b := &stubSource{name: "b", reading: Reading{ProcessCPU: 1}}

	res, err := NewChain(10, a, b).Acquire(context.Background(), handle)
	require.NoError(t, err)
	assert.Equal(t, "b", res.Strategy)
}

func TestChainExhausted(t *testing.T) {
	a := &stubSource{name: "a", err: errors.New("bridge down")}
	b := &stubSource{name: "b"}

	_, err := NewChain(10, a, b).Acquire(context.Background(), handle)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrChainExhausted))
	assert.Contains(t, err.Error(), "bridge down")
}

func TestChainReconcilesThreads(t *testing.T) {
	src := &stubSource{name: "a", reading: Reading{Threads: []types.ThreadUsage{
		{TID: "1", CPUPercent: 4},
		{TID: "2", CPUPercent: 6},
	}}}

	res, err := NewChain(10, src).Acquire(context.Background(), handle)
	require.NoError(t, err)
	assert.Equal(t, 10.0, res.ProcessCPU)
	assert.Equal(t, 0.0, res.Reported)
	assert.Equal(t, 2, res.ThreadCount)
}

func TestChainSyntheticDoesNotInventProcessCPU(t *testing.T) {
	src := &stubSource{name: StrategyPlaceholder, reading: Reading{
		Threads:   []types.ThreadUsage{{TID: "1", CPUPercent: PlaceholderUsage}},
		Synthetic: true,
	}}

	res, err := NewChain(10, src).Acquire(context.Background(), handle)
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.ProcessCPU)
	assert.True(t, res.Synthetic)
	assert.Len(t, res.TopThreads, 1)
}

func TestChainHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	a := &stubSource{name: "a", reading: Reading{ProcessCPU: 1}}

	_, err := NewChain(10, a).Acquire(ctx, handle)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, a.calls)
}

func TestReconcile(t *testing.T) {
	threads := []types.ThreadUsage{{CPUPercent: 2.5}, {CPUPercent: 7.5}}
	assert.Equal(t, 10.0, Reconcile(0, threads))
	assert.Equal(t, 40.0, Reconcile(40, threads))
	assert.Equal(t, 0.0, Reconcile(0, nil))
	assert.Equal(t, 0.0, Reconcile(0, []types.ThreadUsage{{CPUPercent: 0}}))
}

func TestTopThreads(t *testing.T) {
	var threads []types.ThreadUsage
	// distinct values, shuffled by a stride coprime with 50
	for i := 0; i < 50; i++ {
		v := (i * 17) % 50
		threads = append(threads, types.ThreadUsage{TID: fmt.Sprint(1000 + v), CPUPercent: float64(v)})
	}

	top := TopThreads(threads, 10)
	require.Len(t, top, 10)
	for i, th := range top {
		assert.Equal(t, float64(49-i), th.CPUPercent)
	}
}

func TestTopThreadsTiesAndBounds(t *testing.T) {
	threads := []types.ThreadUsage{
		{TID: "30", CPUPercent: 1},
		{TID: "4", CPUPercent: 1},
		{TID: "200", CPUPercent: 1},
		{TID: "9", CPUPercent: 5},
	}
	top := TopThreads(threads, 3)
	require.Len(t, top, 3)
	assert.Equal(t, []string{"9", "4", "30"}, []string{top[0].TID, top[1].TID, top[2].TID})

	assert.Len(t, TopThreads(threads, 10), 4)
	assert.Nil(t, TopThreads(threads, 0))
	assert.Nil(t, TopThreads(nil, 10))
}

func TestResultSample(t *testing.T) {
	ts := time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)
	res := Result{Strategy: "threads", ProcessCPU: 3, System: &types.SystemCpu{ActivePercent: 20, IdlePercent: 80}}

	sample := res.Sample(ts, "4300")
	assert.Equal(t, ts, sample.Timestamp)
	require.NotNil(t, sample.SystemCPUPercent)
	assert.Equal(t, 20.0, *sample.SystemCPUPercent)
	assert.Equal(t, 80.0, *sample.IdleCPUPercent)

	sample = Result{}.Sample(ts, "4300")
	assert.Nil(t, sample.SystemCPUPercent)
}
