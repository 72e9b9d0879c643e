package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"

	"emperror.dev/errors"

	"github.com/dreamsxin/xperformance/types"
)

// CSV 每次触发时完整重写会话目录下的CSV文件
type CSV struct {
	root string
}

func NewCSV(root string) *CSV {
	return &CSV{root: root}
}

func (c *CSV) Name() string {
	return "csv"
}

func (c *CSV) Close(ctx context.Context) error {
	return nil
}

func (c *CSV) Export(ctx context.Context, trigger Trigger, snap types.SessionSnapshot) error {
	dir := sessionDir(c.root, snap)

	if snap.CPUEnabled && len(snap.CPU) > 0 {
		path := filepath.Join(dir, "cpu", snap.Package+"_cpu_data.csv")
		if err := writeCSV(path, cpuRecords(snap.CPU)); err != nil {
			return err
		}
	}
	if snap.MemoryEnabled && len(snap.Memory) > 0 {
		path := filepath.Join(dir, "memory", snap.Package+"_memory_data.csv")
		if err := writeCSV(path, memoryRecords(snap.Memory)); err != nil {
			return err
		}
	}
	for pid, records := range threadRecords(snap.ThreadSeries) {
		path := filepath.Join(dir, "thread", fmt.Sprintf("%s_%s_threads.csv", snap.Package, pid))
		if err := writeCSV(path, records); err != nil {
			return err
		}
	}
	return nil
}

func writeCSV(path string, records [][]string) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(records); err != nil {
		return errors.Wrapf(err, "encode %s", path)
	}
	return writeFile(path, buf.Bytes())
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func cpuRecords(samples []types.CpuSample) [][]string {
	records := [][]string{{"Timestamp", "Process CPU", "System CPU", "Idle CPU"}}
	for _, s := range samples {
		records = append(records, []string{
			s.Timestamp.Format(timestampLayout),
			formatFloat(s.ProcessCPUPercent),
			formatOptional(s.SystemCPUPercent),
			formatOptional(s.IdleCPUPercent),
		})
	}
	return records
}

func memoryRecords(samples []types.MemoryBreakdown) [][]string {
	records := [][]string{{"Timestamp", "Total PSS", "Java Heap", "Native Heap", "Code", "Stack", "Graphics", "Private Other", "System"}}
	u := func(v uint64) string { return strconv.FormatUint(v, 10) }
	for _, m := range samples {
		records = append(records, []string{
			m.Timestamp.Format(timestampLayout),
			u(m.TotalPss), u(m.JavaHeap), u(m.NativeHeap), u(m.Code),
			u(m.Stack), u(m.Graphics), u(m.PrivateOther), u(m.System),
		})
	}
	return records
}

// threadRecords 按进程实例分文件，行按时间和线程号排序
func threadRecords(series map[types.ThreadKey][]types.ThreadPoint) map[string][][]string {
	type row struct {
		key   types.ThreadKey
		point types.ThreadPoint
	}
	byPID := make(map[string][]row)
	for key, points := range series {
		for _, p := range points {
			byPID[key.PID] = append(byPID[key.PID], row{key: key, point: p})
		}
	}

	out := make(map[string][][]string, len(byPID))
	for pid, rows := range byPID {
		sort.Slice(rows, func(i, j int) bool {
			if !rows[i].point.Timestamp.Equal(rows[j].point.Timestamp) {
				return rows[i].point.Timestamp.Before(rows[j].point.Timestamp)
			}
			return tidOrder(rows[i].key.TID, rows[j].key.TID)
		})
		records := [][]string{{"Timestamp", "PID", "TID", "Name", "CPU"}}
		for _, r := range rows {
			records = append(records, []string{
				r.point.Timestamp.Format(timestampLayout),
				r.key.PID,
				r.key.TID,
				r.point.Name,
				formatFloat(r.point.CPUPercent),
			})
		}
		out[pid] = records
	}
	return out
}

func tidOrder(a, b string) bool {
	x, errA := strconv.Atoi(a)
	y, errB := strconv.Atoi(b)
	if errA == nil && errB == nil {
		return x < y
	}
	return a < b
}
