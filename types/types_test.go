package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMonitorConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*MonitorConfig)
		ok     bool
	}{
		{"defaults", func(*MonitorConfig) {}, true},
		{"empty package", func(c *MonitorConfig) { c.Package = "" }, false},
		{"interval below one second", func(c *MonitorConfig) { c.Interval = 500 * time.Millisecond }, false},
		{"no top threads", func(c *MonitorConfig) { c.TopThreads = 0 }, false},
		{"memory history too small", func(c *MonitorConfig) { c.MemoryHistory = 1 }, false},
		{"negative cpu history", func(c *MonitorConfig) { c.CPUHistory = -1 }, false},
		{"no metric", func(c *MonitorConfig) { c.CPU, c.Memory = false, false }, false},
		{"memory only", func(c *MonitorConfig) { c.CPU = false }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultMonitorConfig("com.example.app")
			tt.modify(&cfg)
			if tt.ok {
				assert.NoError(t, cfg.Validate())
			} else {
				assert.Error(t, cfg.Validate())
			}
		})
	}
}

func TestMemoryBreakdown(t *testing.T) {
	partial := MemoryBreakdown{TotalPss: 5000}
	assert.True(t, partial.Partial())
	assert.Zero(t, partial.CategorySum())

	full := MemoryBreakdown{TotalPss: 13000, JavaHeap: 5000, NativeHeap: 6000, Code: 1000, Stack: 100, Graphics: 200, PrivateOther: 300, System: 400}
	assert.False(t, full.Partial())
	assert.Equal(t, uint64(13000), full.CategorySum())
}

func TestProcessHandle(t *testing.T) {
	assert.True(t, ProcessHandle{Package: "com.example.app"}.IsZero())

	h := ProcessHandle{Package: "com.example.app", PID: "4300"}
	assert.False(t, h.IsZero())
	assert.Equal(t, "com.example.app(pid 4300)", h.String())

	h.StartedAt = "2026-10-16 09:30:00"
	assert.Equal(t, "com.example.app(pid 4300, started 2026-10-16 09:30:00)", h.String())
}
