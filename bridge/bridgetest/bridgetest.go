// Package bridgetest provides a scripted bridge for tests.
package bridgetest

import (
	"context"
	"strings"
	"sync"

	"emperror.dev/errors"

	"github.com/dreamsxin/xperformance/bridge"
)

// ErrUnscripted is returned for commands the script has no answer for.
var ErrUnscripted = errors.NewPlain("unscripted command")

type response struct {
	output string
	err    error
	code   int
}

// Script answers commands from queued responses. The last response queued
// for a command repeats once the queue is drained.
type Script struct {
	mu        sync.Mutex
	responses map[string][]response
	calls     [][]string
	pingErr   error
	pings     int
}

var _ bridge.Bridge = (*Script)(nil)

func New() *Script {
	return &Script{responses: make(map[string][]response)}
}

func key(args []string) string {
	return strings.Join(args, " ")
}

// On queues a successful answer for args.
func (s *Script) On(output string, args ...string) *Script {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(args)
	s.responses[k] = append(s.responses[k], response{output: output})
	return s
}

// Fail queues a failing answer for args.
func (s *Script) Fail(err error, args ...string) *Script {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(args)
	s.responses[k] = append(s.responses[k], response{err: err, code: -1})
	return s
}

// Exit queues a remote command that ran and exited with a non-zero code.
func (s *Script) Exit(code int, stderr string, args ...string) *Script {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(args)
	s.responses[k] = append(s.responses[k], response{
		output: stderr,
		err:    errors.Errorf("exit status %d", code),
		code:   code,
	})
	return s
}

// Reset drops every queued answer for args.
func (s *Script) Reset(args ...string) *Script {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.responses, key(args))
	return s
}

func (s *Script) Execute(ctx context.Context, args ...string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, append([]string(nil), args...))

	if err := ctx.Err(); err != nil {
		return "", &bridge.Error{Args: args, ExitCode: -1, Err: err}
	}
	k := key(args)
	queue := s.responses[k]
	if len(queue) == 0 {
		return "", &bridge.Error{Args: args, ExitCode: -1, Err: ErrUnscripted}
	}
	r := queue[0]
	if len(queue) > 1 {
		s.responses[k] = queue[1:]
	}
	if r.err != nil {
		stderr := ""
		if r.code > 0 {
			stderr = r.output
		}
		return "", &bridge.Error{Args: args, Stderr: stderr, ExitCode: r.code, Err: r.err}
	}
	return bridge.Clean(r.output), nil
}

// SetPingError makes later Ping calls fail with err (nil restores success).
func (s *Script) SetPingError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pingErr = err
}

func (s *Script) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pings++
	return s.pingErr
}

// Pings returns how many times Ping was called.
func (s *Script) Pings() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pings
}

// Calls returns a copy of every command executed so far.
func (s *Script) Calls() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]string, len(s.calls))
	copy(out, s.calls)
	return out
}

// CallCount returns how many times args was executed.
func (s *Script) CallCount(args ...string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(args)
	n := 0
	for _, c := range s.calls {
		if key(c) == k {
			n++
		}
	}
	return n
}
