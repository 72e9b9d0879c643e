package bridge

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"
	"time"

	"emperror.dev/errors"
	log "github.com/sirupsen/logrus"
)

const defaultADBPath = "adb"

// ADB executes commands through the Android Debug Bridge client.
type ADB struct {
	path    string
	serial  string
	timeout time.Duration
}

type Option func(*ADB)

// WithPath sets the adb executable.
func WithPath(path string) Option {
	return func(a *ADB) {
		if path != "" {
			a.path = path
		}
	}
}

// WithSerial targets one device when several are attached.
func WithSerial(serial string) Option {
	return func(a *ADB) {
		a.serial = serial
	}
}

// WithTimeout bounds every call.
func WithTimeout(d time.Duration) Option {
	return func(a *ADB) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// NewADB creates an adb bridge.
func NewADB(opts ...Option) *ADB {
	a := &ADB{
		path:    defaultADBPath,
		timeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *ADB) commandArgs(args []string) []string {
	if a.serial == "" {
		return args
	}
	return append([]string{"-s", a.serial}, args...)
}

// Execute runs one adb command and returns its cleaned standard output.
func (a *ADB) Execute(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, a.path, a.commandArgs(args)...)
	cmd.Env = append(os.Environ(), "TERM=dumb")
	cmd.WaitDelay = time.Second
	isolate(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log.WithField("args", args).Trace("bridge call")
	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return "", &Error{Args: args, ExitCode: -1, Err: errors.Wrapf(ctx.Err(), "no answer within %s", a.timeout)}
	}
	if err != nil {
		code := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
		return "", &Error{Args: args, Stderr: strings.TrimSpace(Clean(stderr.String())), ExitCode: code, Err: err}
	}
	return Clean(stdout.String()), nil
}

// Ping checks that the device (or any device when no serial is set) is online.
func (a *ADB) Ping(ctx context.Context) error {
	out, err := a.Execute(ctx, "devices")
	if err != nil {
		return errors.Wrapf(ErrDisconnected, "list devices: %v", err)
	}
	devices := Devices(out)
	if a.serial != "" {
		if devices[a.serial] == "device" {
			return nil
		}
		return errors.Wrapf(ErrDisconnected, "device %s is %q", a.serial, devices[a.serial])
	}
	for _, state := range devices {
		if state == "device" {
			return nil
		}
	}
	return ErrDisconnected
}
