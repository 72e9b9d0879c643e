package util

import (
	"fmt"

	"github.com/c2h5oh/datasize"
)

// FormatKB formats a kilobyte count reported by the device in human units
func FormatKB(kb uint64) string {
	return (datasize.ByteSize(kb) * datasize.KB).HumanReadable()
}

// FormatPercent formats a CPU percentage with one decimal
func FormatPercent(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}
