// Package bridge runs commands on the monitored device and returns their text output.
package bridge

import (
	"context"
	"fmt"
	"strings"

	"emperror.dev/errors"
)

// ErrDisconnected is returned by Ping when no usable device is attached.
var ErrDisconnected = errors.NewPlain("device bridge disconnected")

// Bridge is the command channel to the monitored device. Output is returned
// with terminal control sequences already removed.
type Bridge interface {
	Execute(ctx context.Context, args ...string) (string, error)
	Ping(ctx context.Context) error
}

// Error describes a failed bridge call.
// ExitCode is the remote exit status, or -1 when the command did not complete.
type Error struct {
	Args     []string
	Stderr   string
	ExitCode int
	Err      error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("bridge command %q failed: %v", strings.Join(e.Args, " "), e.Err)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}
