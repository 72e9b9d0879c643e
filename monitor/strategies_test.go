package monitor

import (
	"context"
	"fmt"
	"testing"

	"emperror.dev/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamsxin/xperformance/bridge/bridgetest"
)

var (
	topArgs      = []string{"shell", "top", "-H", "-b", "-n", "1", "-p", "4300"}
	psArgs       = []string{"shell", "ps", "-T", "-p", "4300", "-o", "TID,%CPU,CMD"}
	snapshotArgs = []string{"shell", "top", "-b", "-n", "2", "-d", "0.5", "-p", "4300"}
)

func taskScript(pid string) string {
	return fmt.Sprintf(`for t in /proc/%s/task/*; do echo "${t##*/} $(cat $t/comm 2>/dev/null)"; done`, pid)
}

func TestThreadsSource(t *testing.T) {
	script := bridgetest.New().On(topThreadsOutput, topArgs...)

	reading, err := NewThreadsSource(script).Attempt(context.Background(), handle)
	require.NoError(t, err)
	assert.Zero(t, reading.ProcessCPU)
	require.Len(t, reading.Threads, 3)
	assert.Equal(t, "4321", reading.Threads[0].TID)
	assert.Equal(t, 12.5, reading.Threads[0].CPUPercent)
	require.NotNil(t, reading.System)
	assert.InDelta(t, 11.0, reading.System.ActivePercent, 1e-9)
}

func TestThreadsSourceMalformed(t *testing.T) {
	script := bridgetest.New().On("top: unknown option -H\n", topArgs...)

	_, err := NewThreadsSource(script).Attempt(context.Background(), handle)
	assert.True(t, errors.Is(err, ErrMalformedReport))
}

func TestPSSource(t *testing.T) {
	script := bridgetest.New().On(psOutput, psArgs...)

	reading, err := NewPSSource(script).Attempt(context.Background(), handle)
	require.NoError(t, err)
	require.Len(t, reading.Threads, 2)
	assert.Equal(t, "RenderThread", reading.Threads[1].Name)
	assert.Nil(t, reading.System)
}

func TestSnapshotSourceUsesLastSnapshot(t *testing.T) {
	script := bridgetest.New().On(snapshotOutput, snapshotArgs...)

	reading, err := NewSnapshotSource(script).Attempt(context.Background(), handle)
	require.NoError(t, err)
	assert.Equal(t, 22.0, reading.ProcessCPU)
	assert.Empty(t, reading.Threads)
	require.NotNil(t, reading.System)
	assert.InDelta(t, 70.0, reading.System.IdlePercent, 1e-9)
}

func TestSnapshotSourceProcessMissing(t *testing.T) {
	out := "  PID USER PR NI VIRT RES SHR S[%CPU] %MEM TIME+ ARGS\n"
	script := bridgetest.New().On(out, snapshotArgs...)

	reading, err := NewSnapshotSource(script).Attempt(context.Background(), handle)
	require.NoError(t, err)
	assert.True(t, reading.Trivial())
}

func TestPlaceholderSource(t *testing.T) {
	script := bridgetest.New().On("4300 com.example.app\n4321 RenderThread\n", "shell", taskScript("4300"))

	reading, err := NewPlaceholderSource(script).Attempt(context.Background(), handle)
	require.NoError(t, err)
	assert.True(t, reading.Synthetic)
	assert.Len(t, reading.Threads, 2)
}

func TestPlaceholderSourceNeverFails(t *testing.T) {
	reading, err := NewPlaceholderSource(bridgetest.New()).Attempt(context.Background(), handle)
	require.NoError(t, err)
	require.Len(t, reading.Threads, 1)
	assert.Equal(t, "4300", reading.Threads[0].TID)
	assert.Equal(t, "main", reading.Threads[0].Name)
	assert.Equal(t, PlaceholderUsage, reading.Threads[0].CPUPercent)
}

func TestDefaultChainFallback(t *testing.T) {
	script := bridgetest.New().
		Fail(errors.New("timeout"), topArgs...).
		On(psOutput, psArgs...)

	res, err := DefaultChain(script, 10).Acquire(context.Background(), handle)
	require.NoError(t, err)
	assert.Equal(t, StrategyPS, res.Strategy)
	assert.Equal(t, 9.5, res.ProcessCPU)
	assert.Equal(t, "4321", res.TopThreads[0].TID)
	assert.Zero(t, script.CallCount(snapshotArgs...))
}

func TestDefaultChainPlaceholderLast(t *testing.T) {
	script := bridgetest.New()

	chain := DefaultChain(script, 10)
	assert.Equal(t, []string{StrategyThreads, StrategyPS, StrategySnapshot, StrategyPlaceholder}, chain.Strategies())

	res, err := chain.Acquire(context.Background(), handle)
	require.NoError(t, err)
	assert.Equal(t, StrategyPlaceholder, res.Strategy)
	assert.True(t, res.Synthetic)
	assert.Equal(t, 1, script.CallCount(snapshotArgs...))
}
