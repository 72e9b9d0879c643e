package manager

import (
	"context"
	"strconv"
	"strings"
	"time"

	"emperror.dev/errors"
	"github.com/jellydator/ttlcache/v3"
	log "github.com/sirupsen/logrus"

	"github.com/dreamsxin/xperformance/bridge"
	"github.com/dreamsxin/xperformance/types"
)

// ErrProcessNotFound 设备上没有该包名对应的进程
var ErrProcessNotFound = errors.NewPlain("process not found")

const startTimeTTL = 10 * time.Minute

// Resolver 将包名解析为设备上正在运行的进程
type Resolver struct {
	bridge bridge.Bridge
	starts *ttlcache.Cache[string, string]
}

// NewResolver 创建进程解析器
func NewResolver(b bridge.Bridge) *Resolver {
	return &Resolver{
		bridge: b,
		starts: ttlcache.New[string, string](
			ttlcache.WithTTL[string, string](startTimeTTL),
		),
	}
}

// Resolve 查询包名当前的进程实例，每个tick调用一次。
// 进程号不变时只需要一次 pidof 调用，启动时间来自缓存。
func (r *Resolver) Resolve(ctx context.Context, pkg string) (types.ProcessHandle, error) {
	out, err := r.bridge.Execute(ctx, "shell", "pidof", pkg)
	if err != nil {
		if notFound(err) {
			return types.ProcessHandle{}, errors.Wrapf(ErrProcessNotFound, "package %s", pkg)
		}
		return types.ProcessHandle{}, errors.Wrapf(err, "resolve %s", pkg)
	}

	fields := strings.Fields(out)
	if len(fields) == 0 {
		return types.ProcessHandle{}, errors.Wrapf(ErrProcessNotFound, "package %s", pkg)
	}
	pid := fields[0]
	if _, err := strconv.Atoi(pid); err != nil {
		return types.ProcessHandle{}, errors.Errorf("unexpected pidof output for %s: %q", pkg, out)
	}

	return types.ProcessHandle{
		Package:   pkg,
		PID:       pid,
		StartedAt: r.startTime(ctx, pid),
	}, nil
}

// notFound pidof 正常运行但没有匹配时退出码为1且没有错误输出
func notFound(err error) bool {
	var berr *bridge.Error
	if !errors.As(err, &berr) {
		return false
	}
	return berr.ExitCode > 0 && berr.Stderr == ""
}

func (r *Resolver) startTime(ctx context.Context, pid string) string {
	if item := r.starts.Get(pid); item != nil {
		return item.Value()
	}

	out, err := r.bridge.Execute(ctx, "shell", "stat", "-c", "%y", "/proc/"+pid+"/cmdline")
	if err != nil {
		log.WithField("pid", pid).Debugf("start time unavailable: %v", err)
		return ""
	}
	started := strings.TrimSpace(out)
	if started == "" {
		return ""
	}
	r.starts.Set(pid, started, ttlcache.DefaultTTL)
	return started
}
