package export

import (
	"os"
	"path/filepath"

	"emperror.dev/errors"

	"github.com/dreamsxin/xperformance/types"
)

const (
	timestampLayout = "2006-01-02 15:04:05"
	labelLayout     = "15:04:05"
	sessionLayout   = "20060102_150405"
)

// sessionDir <root>/<package>/<会话开始时间>
func sessionDir(root string, snap types.SessionSnapshot) string {
	return filepath.Join(root, snap.Package, snap.StartedAt.Format(sessionLayout))
}

// writeFile 先写临时文件再改名，避免导出中途留下半个文件
func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrapf(err, "create directory for %s", path)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return errors.Wrapf(err, "write %s", tmp)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errors.Wrapf(err, "rename %s", tmp)
	}
	return nil
}
