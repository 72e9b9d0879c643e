package export

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/dreamsxin/xperformance/types"
	"github.com/dreamsxin/xperformance/util"
)

// FormatPeaks 当前峰值的文本摘要，没有峰值时返回空字符串
func FormatPeaks(snap types.SessionSnapshot) string {
	var lines []string
	if snap.CPUPeak.Set && snap.CPUPeak.Value > 0 {
		lines = append(lines, fmt.Sprintf("Peak CPU: %s at %s",
			util.FormatPercent(snap.CPUPeak.Value), snap.CPUPeak.ObservedAt.Format(labelLayout)))
	}
	if snap.MemoryPeak.Set && snap.MemoryPeak.Value > 0 {
		lines = append(lines, fmt.Sprintf("Peak Memory: %s at %s",
			util.FormatKB(snap.MemoryPeak.Value), snap.MemoryPeak.ObservedAt.Format(labelLayout)))
	}
	return strings.Join(lines, "\n")
}

// Log 把峰值和重启次数写入日志
type Log struct {
	logger log.FieldLogger
}

func NewLog(logger log.FieldLogger) *Log {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Log{logger: logger}
}

func (l *Log) Name() string {
	return "log"
}

func (l *Log) Close(ctx context.Context) error {
	return nil
}

func (l *Log) Export(ctx context.Context, trigger Trigger, snap types.SessionSnapshot) error {
	entry := l.logger.WithFields(log.Fields{
		"package": snap.Package,
		"session": util.ShortID(snap.SessionID),
		"trigger": trigger,
	})

	for _, line := range strings.Split(FormatPeaks(snap), "\n") {
		if line != "" {
			entry.Info(line)
		}
	}

	switch trigger {
	case TriggerSessionEnd:
		entry.Infof("Process Restarts: %d", snap.RestartCount)
		if n := len(snap.CPU); n > 0 {
			entry.Infof("CPU samples: %d", n)
		}
		if n := len(snap.Memory); n > 0 {
			entry.Infof("Memory samples: %d", n)
		}
	case TriggerHourly:
		entry.Infof("Scheduled export at %s", snap.TakenAt.Format("15:00"))
	}
	return nil
}
