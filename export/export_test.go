package export

import (
	"context"
	"testing"
	"time"

	"emperror.dev/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/utils/ptr"

	"github.com/dreamsxin/xperformance/types"
)

var t0 = time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)

func fixture() types.SessionSnapshot {
	first := types.ProcessHandle{Package: "com.example.app", PID: "100", StartedAt: "a"}
	second := types.ProcessHandle{Package: "com.example.app", PID: "205", StartedAt: "b"}
	return types.SessionSnapshot{
		SessionID:    "1b4e28ba-2fa1-11d2-883f-0016d3cca427",
		Package:      "com.example.app",
		StartedAt:    t0,
		TakenAt:      t0.Add(3 * time.Second),
		Handle:       second,
		CPUPeak:      types.PeakRecord[float64]{Value: 42.5, ObservedAt: t0.Add(time.Second), Set: true},
		MemoryPeak:   types.PeakRecord[uint64]{Value: 2048, ObservedAt: t0, Set: true},
		RestartCount: 1,
		Restarts: []types.RestartEvent{
			{Previous: first, Current: second, Count: 1, ObservedAt: t0.Add(2 * time.Second)},
		},
		CPU: []types.CpuSample{
			{Timestamp: t0, PID: "100", ProcessCPUPercent: 10, SystemCPUPercent: ptr.To(20.0), IdleCPUPercent: ptr.To(80.0), Strategy: "threads",
				TopThreads: []types.ThreadUsage{{TID: "101", Name: "RenderThread", CPUPercent: 6}, {TID: "100", Name: "main", CPUPercent: 4}}},
			{Timestamp: t0.Add(time.Second), PID: "100", ProcessCPUPercent: 42.5, Strategy: "ps"},
			{Timestamp: t0.Add(2 * time.Second), PID: "205", ProcessCPUPercent: 5, Strategy: "threads",
				TopThreads: []types.ThreadUsage{{TID: "206", Name: "main", CPUPercent: 5}}},
		},
		Memory: []types.MemoryBreakdown{
			{Timestamp: t0, PID: "100", TotalPss: 2048, JavaHeap: 1024, NativeHeap: 1024},
			{Timestamp: t0.Add(time.Second), PID: "100", TotalPss: 1536},
		},
		ThreadSeries: map[types.ThreadKey][]types.ThreadPoint{
			{PID: "100", TID: "101"}: {{Timestamp: t0, Name: "RenderThread", CPUPercent: 6}},
			{PID: "100", TID: "100"}: {{Timestamp: t0, Name: "main", CPUPercent: 4}},
			{PID: "205", TID: "206"}: {{Timestamp: t0.Add(2 * time.Second), Name: "main", CPUPercent: 5}},
		},
		CPUEnabled:    true,
		MemoryEnabled: true,
	}
}

type recorder struct {
	name     string
	err      error
	triggers []Trigger
	closed   bool
}

func (r *recorder) Name() string { return r.name }

func (r *recorder) Export(ctx context.Context, trigger Trigger, snap types.SessionSnapshot) error {
	r.triggers = append(r.triggers, trigger)
	return r.err
}

func (r *recorder) Close(ctx context.Context) error {
	r.closed = true
	return nil
}

func TestMultiContinuesAfterFailure(t *testing.T) {
	failing := &recorder{name: "broken", err: errors.New("disk full")}
	ok := &recorder{name: "ok"}

	m := NewMulti(failing)
	m.Add(ok)
	err := m.Export(context.Background(), TriggerRestart, fixture())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken export (restart) failed: disk full")
	assert.Equal(t, []Trigger{TriggerRestart}, ok.triggers)

	require.NoError(t, m.Close(context.Background()))
	assert.True(t, failing.closed)
	assert.True(t, ok.closed)
}

func TestMultiNoErrors(t *testing.T) {
	assert.NoError(t, NewMulti(&recorder{name: "a"}, &recorder{name: "b"}).Export(context.Background(), TriggerHourly, fixture()))
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.NewPlain("boom")
	err := error(&Error{Exporter: "csv", Trigger: TriggerHourly, Err: cause})
	assert.True(t, errors.Is(err, cause))
}

func TestFormatPeaks(t *testing.T) {
	assert.Equal(t, "Peak CPU: 42.5% at 09:30:01\nPeak Memory: 2.0 MB at 09:30:00", FormatPeaks(fixture()))
	assert.Empty(t, FormatPeaks(types.SessionSnapshot{}))
}

func TestLogExporter(t *testing.T) {
	assert.NoError(t, NewLog(nil).Export(context.Background(), TriggerSessionEnd, fixture()))
}
