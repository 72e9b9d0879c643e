package monitor

import (
	"strconv"
	"strings"

	"github.com/dreamsxin/xperformance/types"
)

// table 一段带表头的 top/ps 输出
type table struct {
	system *types.SystemCpu
	header []string
	rows   []map[string]string
}

var headerSplitter = strings.NewReplacer("[", " ", "]", " ")

// nameColumns 可能包含空格的名称列
var nameColumns = map[string]bool{
	"THREAD":  true,
	"CMD":     true,
	"NAME":    true,
	"COMMAND": true,
	"ARGS":    true,
}

// parseTables 解析 top/ps 的文本输出，每遇到一个表头开始一个新表。
// top -n 2 会输出两个快照，调用方通常只用最后一个。
func parseTables(out string) []table {
	var tables []table
	var pending *types.SystemCpu

	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if sys, ok := parseSystemSummary(line); ok {
			pending = sys
			continue
		}
		if header, ok := parseHeader(line); ok {
			tables = append(tables, table{system: pending, header: header})
			pending = nil
			continue
		}
		if len(tables) == 0 {
			continue
		}
		cur := &tables[len(tables)-1]
		if row, ok := splitRow(cur.header, line); ok {
			cur.rows = append(cur.rows, row)
		}
	}
	return tables
}

// parseHeader 表头必须包含 %CPU 以及 PID 或 TID。
// toybox 会把列名粘在一起，例如 S[%CPU]。
func parseHeader(line string) ([]string, bool) {
	fields := strings.Fields(headerSplitter.Replace(line))
	var hasCPU, hasID bool
	for i, f := range fields {
		f = strings.ToUpper(f)
		fields[i] = f
		switch f {
		case "%CPU":
			hasCPU = true
		case "PID", "TID":
			hasID = true
		}
	}
	return fields, hasCPU && hasID
}

func splitRow(header []string, line string) (map[string]string, bool) {
	fields := strings.Fields(line)
	if len(fields) < len(header) {
		return nil, false
	}

	if extra := len(fields) - len(header); extra > 0 {
		at := len(header) - 1
		for i, h := range header {
			if nameColumns[h] {
				at = i
				break
			}
		}
		merged := strings.Join(fields[at:at+extra+1], " ")
		fields = append(fields[:at:at], append([]string{merged}, fields[at+extra+1:]...)...)
	}

	row := make(map[string]string, len(header))
	for i, h := range header {
		row[h] = fields[i]
	}
	return row, true
}

// parsePercent 兼容 "12.5"、"12.5%"、"[12.5" 等写法
func parsePercent(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.Trim(s, "[]%"), 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

// parseSystemSummary 解析 "800%cpu 123%user 0%nice 171%sys 481%idle 3%iow 13%irq 10%sirq 0%host"，
// 结果按总核数归一化到0-100。
func parseSystemSummary(line string) (*types.SystemCpu, bool) {
	if !strings.Contains(line, "%cpu") {
		return nil, false
	}

	values := make(map[string]float64)
	for _, part := range strings.Fields(line) {
		idx := strings.Index(part, "%")
		if idx <= 0 {
			continue
		}
		v, err := strconv.ParseFloat(part[:idx], 64)
		if err != nil {
			continue
		}
		values[part[idx+1:]] = v
	}

	total, ok := values["cpu"]
	if !ok {
		return nil, false
	}
	// IO等待不计入活跃时间
	idle := values["idle"]
	active := total - idle - values["iow"]
	if active < 0 {
		active = 0
	}

	sys := &types.SystemCpu{
		ActivePercent: active,
		IdlePercent:   idle,
		Cores:         total / 100,
	}
	if total > 0 {
		sys.ActivePercent = active / total * 100
		sys.IdlePercent = idle / total * 100
	}
	return sys, true
}

// lastTable 返回最后一个表
func lastTable(tables []table) (table, bool) {
	if len(tables) == 0 {
		return table{}, false
	}
	return tables[len(tables)-1], true
}

func (t table) has(column string) bool {
	for _, h := range t.header {
		if h == column {
			return true
		}
	}
	return false
}

// nameOf 按优先级取名称列
func (t table) nameOf(row map[string]string) string {
	for _, col := range []string{"THREAD", "CMD", "NAME", "COMMAND", "ARGS"} {
		if v, ok := row[col]; ok && v != "" {
			return v
		}
	}
	return ""
}
