package monitor

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"emperror.dev/errors"

	"github.com/dreamsxin/xperformance/bridge"
	"github.com/dreamsxin/xperformance/types"
)

// PlaceholderUsage 占位线程的CPU值
const PlaceholderUsage = 0.01

const (
	StrategyThreads     = "threads"
	StrategyPS          = "ps"
	StrategySnapshot    = "snapshot"
	StrategyPlaceholder = "placeholder"
)

// threadRows 从表中取出属于 pid 的线程
func threadRows(t table, pid string) ([]types.ThreadUsage, error) {
	if !t.has("TID") || !t.has("%CPU") {
		return nil, errors.Wrapf(ErrMalformedReport, "missing TID or %%CPU column in %v", t.header)
	}

	var threads []types.ThreadUsage
	for _, row := range t.rows {
		if p, ok := row["PID"]; ok && p != pid {
			continue
		}
		tid := row["TID"]
		if _, err := strconv.Atoi(tid); err != nil {
			continue
		}
		cpu, ok := parsePercent(row["%CPU"])
		if !ok {
			continue
		}
		threads = append(threads, types.ThreadUsage{
			TID:        tid,
			Name:       t.nameOf(row),
			CPUPercent: cpu,
		})
	}
	return threads, nil
}

// ThreadsSource 使用 top -H 的逐线程报告。
// 只提供线程数据，进程CPU由线程之和修正得到。
type ThreadsSource struct {
	bridge bridge.Bridge
}

func NewThreadsSource(b bridge.Bridge) *ThreadsSource {
	return &ThreadsSource{bridge: b}
}

func (s *ThreadsSource) Name() string {
	return StrategyThreads
}

func (s *ThreadsSource) Attempt(ctx context.Context, handle types.ProcessHandle) (Reading, error) {
	out, err := s.bridge.Execute(ctx, "shell", "top", "-H", "-b", "-n", "1", "-p", handle.PID)
	if err != nil {
		return Reading{}, err
	}
	t, ok := lastTable(parseTables(out))
	if !ok {
		return Reading{}, errors.Wrap(ErrMalformedReport, "no thread table in top output")
	}
	threads, err := threadRows(t, handle.PID)
	if err != nil {
		return Reading{}, err
	}
	return Reading{Threads: threads, System: t.system}, nil
}

// PSSource 使用 ps -T 的线程列表和 %CPU 列
type PSSource struct {
	bridge bridge.Bridge
}

func NewPSSource(b bridge.Bridge) *PSSource {
	return &PSSource{bridge: b}
}

func (s *PSSource) Name() string {
	return StrategyPS
}

func (s *PSSource) Attempt(ctx context.Context, handle types.ProcessHandle) (Reading, error) {
	out, err := s.bridge.Execute(ctx, "shell", "ps", "-T", "-p", handle.PID, "-o", "TID,%CPU,CMD")
	if err != nil {
		return Reading{}, err
	}
	t, ok := lastTable(parseTables(out))
	if !ok {
		return Reading{}, errors.Wrap(ErrMalformedReport, "no TID/%CPU header in ps output")
	}
	threads, err := threadRows(t, handle.PID)
	if err != nil {
		return Reading{}, err
	}
	return Reading{Threads: threads}, nil
}

// SnapshotSource 两次 top 快照，只使用第二次（第一次的CPU是自启动以来的平均值）
type SnapshotSource struct {
	bridge bridge.Bridge
}

func NewSnapshotSource(b bridge.Bridge) *SnapshotSource {
	return &SnapshotSource{bridge: b}
}

func (s *SnapshotSource) Name() string {
	return StrategySnapshot
}

func (s *SnapshotSource) Attempt(ctx context.Context, handle types.ProcessHandle) (Reading, error) {
	out, err := s.bridge.Execute(ctx, "shell", "top", "-b", "-n", "2", "-d", "0.5", "-p", handle.PID)
	if err != nil {
		return Reading{}, err
	}
	t, ok := lastTable(parseTables(out))
	if !ok {
		return Reading{}, errors.Wrap(ErrMalformedReport, "no process table in top output")
	}
	if !t.has("PID") || !t.has("%CPU") {
		return Reading{}, errors.Wrapf(ErrMalformedReport, "missing PID or %%CPU column in %v", t.header)
	}

	reading := Reading{System: t.system}
	for _, row := range t.rows {
		if row["PID"] != handle.PID {
			continue
		}
		if cpu, ok := parsePercent(row["%CPU"]); ok {
			reading.ProcessCPU = cpu
		}
		break
	}
	return reading, nil
}

// PlaceholderSource 最后的兜底策略：列出进程的线程并填入接近0的占位值，
// 保证导出的线程数据不为空。它不会失败。
type PlaceholderSource struct {
	bridge bridge.Bridge
}

func NewPlaceholderSource(b bridge.Bridge) *PlaceholderSource {
	return &PlaceholderSource{bridge: b}
}

func (s *PlaceholderSource) Name() string {
	return StrategyPlaceholder
}

func (s *PlaceholderSource) Attempt(ctx context.Context, handle types.ProcessHandle) (Reading, error) {
	script := fmt.Sprintf(`for t in /proc/%s/task/*; do echo "${t##*/} $(cat $t/comm 2>/dev/null)"; done`, handle.PID)

	var threads []types.ThreadUsage
	if out, err := s.bridge.Execute(ctx, "shell", script); err == nil {
		threads = parseTaskList(out)
	}
	if len(threads) == 0 {
		threads = []types.ThreadUsage{{TID: handle.PID, Name: "main", CPUPercent: PlaceholderUsage}}
	}
	return Reading{Threads: threads, Synthetic: true}, nil
}

// parseTaskList 每行 "tid name"
func parseTaskList(out string) []types.ThreadUsage {
	var threads []types.ThreadUsage
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		tid, name, _ := strings.Cut(line, " ")
		if _, err := strconv.Atoi(tid); err != nil {
			continue
		}
		threads = append(threads, types.ThreadUsage{
			TID:        tid,
			Name:       strings.TrimSpace(name),
			CPUPercent: PlaceholderUsage,
		})
	}
	return threads
}
