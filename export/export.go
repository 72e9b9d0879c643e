// Package export writes session data at restart, hourly and session-end triggers.
package export

import (
	"context"
	"fmt"

	"emperror.dev/errors"

	"github.com/dreamsxin/xperformance/types"
)

// Trigger 导出时机
type Trigger string

const (
	TriggerRestart    Trigger = "restart"
	TriggerHourly     Trigger = "hourly"
	TriggerSessionEnd Trigger = "session-end"
)

// Exporter 导出器接口，失败只报告不会中断会话
type Exporter interface {
	Name() string
	Export(ctx context.Context, trigger Trigger, snap types.SessionSnapshot) error
	Close(ctx context.Context) error
}

// Error 单个导出器的失败
type Error struct {
	Exporter string
	Trigger  Trigger
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s export (%s) failed: %v", e.Exporter, e.Trigger, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Multi 依次调用每个导出器，某个失败不影响其他导出器。
// 失败合并后返回，由调用方记录日志
type Multi struct {
	exporters []Exporter
}

func NewMulti(exporters ...Exporter) *Multi {
	return &Multi{exporters: exporters}
}

func (m *Multi) Name() string {
	return "multi"
}

// Add 追加导出器
func (m *Multi) Add(e Exporter) {
	m.exporters = append(m.exporters, e)
}

func (m *Multi) Export(ctx context.Context, trigger Trigger, snap types.SessionSnapshot) error {
	var errs []error
	for _, e := range m.exporters {
		if err := e.Export(ctx, trigger, snap); err != nil {
			errs = append(errs, &Error{Exporter: e.Name(), Trigger: trigger, Err: err})
		}
	}
	return errors.Combine(errs...)
}

func (m *Multi) Close(ctx context.Context) error {
	var errs []error
	for _, e := range m.exporters {
		if err := e.Close(ctx); err != nil {
			errs = append(errs, errors.Wrapf(err, "close %s", e.Name()))
		}
	}
	return errors.Combine(errs...)
}
