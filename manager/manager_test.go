package manager

import (
	"context"
	"testing"
	"time"

	"emperror.dev/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clocktesting "k8s.io/utils/clock/testing"

	"github.com/dreamsxin/xperformance/bridge"
	"github.com/dreamsxin/xperformance/bridge/bridgetest"
	"github.com/dreamsxin/xperformance/types"
)

const pkg = "com.example.app"

func TestResolve(t *testing.T) {
	script := bridgetest.New().
		On("12345\n", "shell", "pidof", pkg).
		On("2026-10-16 09:12:01.123456789 +0800\n", "shell", "stat", "-c", "%y", "/proc/12345/cmdline")

	r := NewResolver(script)
	handle, err := r.Resolve(context.Background(), pkg)
	require.NoError(t, err)
	assert.Equal(t, types.ProcessHandle{
		Package:   pkg,
		PID:       "12345",
		StartedAt: "2026-10-16 09:12:01.123456789 +0800",
	}, handle)

	// start time is cached for a stable pid
	_, err = r.Resolve(context.Background(), pkg)
	require.NoError(t, err)
	assert.Equal(t, 2, script.CallCount("shell", "pidof", pkg))
	assert.Equal(t, 1, script.CallCount("shell", "stat", "-c", "%y", "/proc/12345/cmdline"))
}

func TestResolveFirstPidWins(t *testing.T) {
	script := bridgetest.New().
		On("300 301\n", "shell", "pidof", pkg).
		Fail(errors.New("no such file"), "shell", "stat", "-c", "%y", "/proc/300/cmdline")

	handle, err := NewResolver(script).Resolve(context.Background(), pkg)
	require.NoError(t, err)
	assert.Equal(t, "300", handle.PID)
	assert.Empty(t, handle.StartedAt)
}

func TestResolveNotFound(t *testing.T) {
	tests := []struct {
		name   string
		script *bridgetest.Script
	}{
		{"empty output", bridgetest.New().On("\n", "shell", "pidof", pkg)},
		{"exit status", bridgetest.New().Exit(1, "", "shell", "pidof", pkg)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewResolver(tt.script).Resolve(context.Background(), pkg)
			assert.True(t, errors.Is(err, ErrProcessNotFound))
		})
	}
}

func TestResolveBridgeFailureIsNotNotFound(t *testing.T) {
	script := bridgetest.New().Exit(1, "error: no devices/emulators found", "shell", "pidof", pkg)

	_, err := NewResolver(script).Resolve(context.Background(), pkg)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrProcessNotFound))

	var berr *bridge.Error
	assert.True(t, errors.As(err, &berr))
}

func TestResolveGarbage(t *testing.T) {
	script := bridgetest.New().On("pidof: not found\n", "shell", "pidof", pkg)

	_, err := NewResolver(script).Resolve(context.Background(), pkg)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrProcessNotFound))
}

func TestTrackerRestart(t *testing.T) {
	clk := clocktesting.NewFakePassiveClock(time.Date(2026, 10, 16, 9, 0, 0, 0, time.Local))
	tracker := NewTracker(clk)

	first := types.ProcessHandle{Package: pkg, PID: "100", StartedAt: "a"}
	_, restarted := tracker.Observe(first)
	assert.False(t, restarted)
	_, restarted = tracker.Observe(first)
	assert.False(t, restarted)

	clk.SetTime(clk.Now().Add(time.Minute))
	second := types.ProcessHandle{Package: pkg, PID: "205", StartedAt: "b"}
	event, restarted := tracker.Observe(second)
	require.True(t, restarted)
	assert.Equal(t, first, event.Previous)
	assert.Equal(t, second, event.Current)
	assert.Zero(t, event.Count)
	assert.Equal(t, clk.Now(), event.ObservedAt)
	assert.Equal(t, second, tracker.Current())

	_, restarted = tracker.Observe(second)
	assert.False(t, restarted)
}
