package export

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"emperror.dev/errors"
	"github.com/goccy/go-json"

	"github.com/dreamsxin/xperformance/types"
)

// ErrNoData 没有可绘制的数据
var ErrNoData = errors.NewPlain("no data available")

var palette = [][2]string{
	{"rgb(75, 192, 192)", "rgba(75, 192, 192, 0.2)"},
	{"rgb(255, 99, 132)", "rgba(255, 99, 132, 0.2)"},
	{"rgb(153, 102, 255)", "rgba(153, 102, 255, 0.2)"},
	{"rgb(255, 159, 64)", "rgba(255, 159, 64, 0.2)"},
	{"rgb(54, 162, 235)", "rgba(54, 162, 235, 0.2)"},
	{"rgb(201, 203, 207)", "rgba(201, 203, 207, 0.2)"},
	{"rgb(255, 205, 86)", "rgba(255, 205, 86, 0.2)"},
	{"rgb(0, 128, 0)", "rgba(0, 128, 0, 0.2)"},
}

func dataset(i int, label string, data []float64, fill bool) types.Dataset {
	c := palette[i%len(palette)]
	return types.Dataset{
		Label:           label,
		Data:            data,
		BorderColor:     c[0],
		BackgroundColor: c[1],
		Fill:            fill,
	}
}

// Chart 把会话数据导出为图表数据集（JSON），渲染由前端完成
type Chart struct {
	root string
}

func NewChart(root string) *Chart {
	return &Chart{root: root}
}

func (c *Chart) Name() string {
	return "chart"
}

func (c *Chart) Close(ctx context.Context) error {
	return nil
}

func (c *Chart) Export(ctx context.Context, trigger Trigger, snap types.SessionSnapshot) error {
	dir := sessionDir(c.root, snap)

	if snap.CPUEnabled {
		if chart, err := CPUChart(snap); err == nil {
			if err := writeJSON(filepath.Join(dir, "cpu", snap.Package+"_cpu_chart.json"), chart); err != nil {
				return err
			}
		}
	}
	if snap.MemoryEnabled {
		if chart, err := MemoryChart(snap); err == nil {
			if err := writeJSON(filepath.Join(dir, "memory", snap.Package+"_memory_chart.json"), chart); err != nil {
				return err
			}
		}
	}
	for pid, chart := range ThreadCharts(snap) {
		path := filepath.Join(dir, "thread", fmt.Sprintf("%s_%s_threads_chart.json", snap.Package, pid))
		if err := writeJSON(path, chart); err != nil {
			return err
		}
	}
	return nil
}

func writeJSON(path string, chart *types.ChartData) error {
	data, err := json.MarshalIndent(chart, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "marshal %s", path)
	}
	return writeFile(path, data)
}

// CPUChart 进程CPU以及（有数据时）系统和空闲CPU
func CPUChart(snap types.SessionSnapshot) (*types.ChartData, error) {
	if len(snap.CPU) == 0 {
		return nil, ErrNoData
	}

	chart := &types.ChartData{
		Title:  fmt.Sprintf("%s CPU usage", snap.Package),
		YLabel: "CPU (%)",
		Labels: make([]string, len(snap.CPU)),
	}
	process := make([]float64, len(snap.CPU))
	system := make([]float64, len(snap.CPU))
	idle := make([]float64, len(snap.CPU))
	hasSystem := false
	for i, s := range snap.CPU {
		chart.Labels[i] = s.Timestamp.Format(labelLayout)
		process[i] = s.ProcessCPUPercent
		if s.SystemCPUPercent != nil {
			system[i] = *s.SystemCPUPercent
			hasSystem = true
		}
		if s.IdleCPUPercent != nil {
			idle[i] = *s.IdleCPUPercent
		}
	}

	chart.Datasets = append(chart.Datasets, dataset(0, "Process CPU (%)", process, true))
	if hasSystem {
		chart.Datasets = append(chart.Datasets,
			dataset(1, "System CPU (%)", system, false),
			dataset(2, "Idle CPU (%)", idle, false),
		)
	}
	return chart, nil
}

// MemoryChart 总PSS和各类别，单位MB
func MemoryChart(snap types.SessionSnapshot) (*types.ChartData, error) {
	if len(snap.Memory) == 0 {
		return nil, ErrNoData
	}

	chart := &types.ChartData{
		Title:  fmt.Sprintf("%s memory usage", snap.Package),
		YLabel: "Memory (MB)",
		Labels: make([]string, len(snap.Memory)),
	}
	categories := []struct {
		label string
		value func(types.MemoryBreakdown) uint64
	}{
		{"Total PSS", func(m types.MemoryBreakdown) uint64 { return m.TotalPss }},
		{"Java Heap", func(m types.MemoryBreakdown) uint64 { return m.JavaHeap }},
		{"Native Heap", func(m types.MemoryBreakdown) uint64 { return m.NativeHeap }},
		{"Code", func(m types.MemoryBreakdown) uint64 { return m.Code }},
		{"Stack", func(m types.MemoryBreakdown) uint64 { return m.Stack }},
		{"Graphics", func(m types.MemoryBreakdown) uint64 { return m.Graphics }},
		{"Private Other", func(m types.MemoryBreakdown) uint64 { return m.PrivateOther }},
		{"System", func(m types.MemoryBreakdown) uint64 { return m.System }},
	}
	for i, m := range snap.Memory {
		chart.Labels[i] = m.Timestamp.Format(labelLayout)
	}
	for i, cat := range categories {
		data := make([]float64, len(snap.Memory))
		for j, m := range snap.Memory {
			data[j] = float64(cat.value(m)) / 1024
		}
		chart.Datasets = append(chart.Datasets, dataset(i, cat.label, data, i == 0))
	}
	return chart, nil
}

// ThreadCharts 每个进程实例一张图，每个线程一个数据集，缺失的点补0
func ThreadCharts(snap types.SessionSnapshot) map[string]*types.ChartData {
	keysByPID := make(map[string][]types.ThreadKey)
	for key := range snap.ThreadSeries {
		keysByPID[key.PID] = append(keysByPID[key.PID], key)
	}

	charts := make(map[string]*types.ChartData, len(keysByPID))
	for pid, keys := range keysByPID {
		sort.Slice(keys, func(i, j int) bool { return tidOrder(keys[i].TID, keys[j].TID) })

		seen := make(map[int64]bool)
		var stamps []time.Time
		for _, key := range keys {
			for _, p := range snap.ThreadSeries[key] {
				if !seen[p.Timestamp.UnixNano()] {
					seen[p.Timestamp.UnixNano()] = true
					stamps = append(stamps, p.Timestamp)
				}
			}
		}
		sort.Slice(stamps, func(i, j int) bool { return stamps[i].Before(stamps[j]) })
		index := make(map[int64]int, len(stamps))
		labels := make([]string, len(stamps))
		for i, ts := range stamps {
			index[ts.UnixNano()] = i
			labels[i] = ts.Format(labelLayout)
		}

		chart := &types.ChartData{
			Title:  fmt.Sprintf("%s threads (pid %s)", snap.Package, pid),
			YLabel: "CPU (%)",
			Labels: labels,
		}
		for i, key := range keys {
			data := make([]float64, len(stamps))
			name := key.TID
			for _, p := range snap.ThreadSeries[key] {
				data[index[p.Timestamp.UnixNano()]] = p.CPUPercent
				if p.Name != "" {
					name = p.Name
				}
			}
			chart.Datasets = append(chart.Datasets, dataset(i, fmt.Sprintf("%s (%s)", name, key.TID), data, false))
		}
		charts[pid] = chart
	}
	return charts
}
