package monitor

import (
	"context"
	"strconv"
	"strings"

	"emperror.dev/errors"

	"github.com/dreamsxin/xperformance/bridge"
	"github.com/dreamsxin/xperformance/types"
)

// ErrMissingMemoryData 报告中既没有 App Summary 也没有 TOTAL PSS
var ErrMissingMemoryData = errors.NewPlain("missing memory data")

// MemorySampler 通过 dumpsys meminfo 采集内存
type MemorySampler struct {
	bridge bridge.Bridge
}

func NewMemorySampler(b bridge.Bridge) *MemorySampler {
	return &MemorySampler{bridge: b}
}

// Sample 采集一次内存。时间戳由调用方填写。
func (m *MemorySampler) Sample(ctx context.Context, handle types.ProcessHandle) (types.MemoryBreakdown, error) {
	out, err := m.bridge.Execute(ctx, "shell", "dumpsys", "meminfo", handle.PID)
	if err != nil {
		return types.MemoryBreakdown{}, err
	}
	mem, err := ParseMeminfo(out)
	if err != nil {
		return types.MemoryBreakdown{}, errors.Wrapf(err, "pid %s", handle.PID)
	}
	mem.PID = handle.PID
	return mem, nil
}

// firstInt 冒号后的第一个整数（PSS列）
func firstInt(s string) (uint64, bool) {
	for _, f := range strings.Fields(s) {
		if v, err := strconv.ParseUint(f, 10, 64); err == nil {
			return v, true
		}
	}
	return 0, false
}

// ParseMeminfo 解析 dumpsys meminfo 输出。
// 优先使用 App Summary 块；没有时退回 TOTAL PSS 行或主表的 TOTAL 行，只填 TotalPss。
func ParseMeminfo(out string) (types.MemoryBreakdown, error) {
	lines := strings.Split(out, "\n")

	mem, hasSummary, summaryTotal := parseAppSummary(lines)

	total, hasTotal := totalPSSLine(lines)
	if hasSummary {
		switch {
		case hasTotal:
			mem.TotalPss = total
		case summaryTotal > 0:
			mem.TotalPss = summaryTotal
		default:
			mem.TotalPss = mem.CategorySum()
		}
		return mem, nil
	}

	if hasTotal {
		return types.MemoryBreakdown{TotalPss: total}, nil
	}
	if total, ok := tableTotal(lines); ok {
		return types.MemoryBreakdown{TotalPss: total}, nil
	}
	return types.MemoryBreakdown{}, ErrMissingMemoryData
}

// parseAppSummary 读取 "类别: 数值" 直到空行或下一个段落标题
func parseAppSummary(lines []string) (types.MemoryBreakdown, bool, uint64) {
	var mem types.MemoryBreakdown
	var total uint64
	found := false

	start := -1
	for i, line := range lines {
		if strings.TrimSpace(line) == "App Summary" {
			start = i + 1
			break
		}
	}
	if start < 0 {
		return mem, false, 0
	}

	for _, line := range lines[start:] {
		line = strings.TrimSpace(line)
		label, rest, ok := strings.Cut(line, ":")
		if !ok {
			// Pss(KB) 和 ------ 这样的列标题在第一个类别之前
			if found || line == "" {
				break
			}
			continue
		}
		v, ok := firstInt(rest)
		if !ok {
			continue
		}
		switch strings.TrimSpace(label) {
		case "Java Heap":
			mem.JavaHeap = v
		case "Native Heap":
			mem.NativeHeap = v
		case "Code":
			mem.Code = v
		case "Stack":
			mem.Stack = v
		case "Graphics":
			mem.Graphics = v
		case "Private Other":
			mem.PrivateOther = v
		case "System":
			mem.System = v
		case "TOTAL", "TOTAL PSS":
			total = v
		default:
			continue
		}
		found = true
	}
	return mem, found, total
}

func totalPSSLine(lines []string) (uint64, bool) {
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(line, "TOTAL PSS:"); ok {
			if v, ok := firstInt(rest); ok {
				return v, true
			}
		}
	}
	return 0, false
}

// tableTotal 主表中的 "TOTAL  45678 ..." 行，第一列是 PSS
func tableTotal(lines []string) (uint64, bool) {
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[0] == "TOTAL" {
			if v, err := strconv.ParseUint(fields[1], 10, 64); err == nil {
				return v, true
			}
		}
	}
	return 0, false
}
