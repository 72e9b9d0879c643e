package export

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	"emperror.dev/errors"
	_ "github.com/mattn/go-sqlite3"

	"github.com/dreamsxin/xperformance/types"
)

// SQLite 把会话写入 <dir>/xperformance.db，每次只插入上次导出之后的新样本
type SQLite struct {
	db *sql.DB

	cpu          cursor
	memory       cursor
	lastRestarts int
}

func NewSQLite(dir string) (*SQLite, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(err, "failed to create data directory")
	}

	db, err := sql.Open("sqlite3", filepath.Join(dir, "xperformance.db"))
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to enable WAL mode")
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to initialize schema")
	}

	return &SQLite{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id             TEXT PRIMARY KEY,
		package        TEXT NOT NULL,
		started_at     DATETIME NOT NULL,
		updated_at     DATETIME NOT NULL,
		restart_count  INTEGER NOT NULL DEFAULT 0,
		cpu_peak       REAL,
		cpu_peak_at    DATETIME,
		memory_peak    INTEGER,
		memory_peak_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS cpu_samples (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id  TEXT NOT NULL,
		timestamp   DATETIME NOT NULL,
		pid         TEXT NOT NULL,
		process_cpu REAL NOT NULL,
		system_cpu  REAL,
		idle_cpu    REAL,
		strategy    TEXT
	);

	CREATE TABLE IF NOT EXISTS thread_samples (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		timestamp  DATETIME NOT NULL,
		pid        TEXT NOT NULL,
		tid        TEXT NOT NULL,
		name       TEXT,
		cpu        REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS memory_samples (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id    TEXT NOT NULL,
		timestamp     DATETIME NOT NULL,
		pid           TEXT NOT NULL,
		total_pss     INTEGER NOT NULL,
		java_heap     INTEGER,
		native_heap   INTEGER,
		code          INTEGER,
		stack         INTEGER,
		graphics      INTEGER,
		private_other INTEGER,
		system        INTEGER
	);

	CREATE TABLE IF NOT EXISTS restarts (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id   TEXT NOT NULL,
		observed_at  DATETIME NOT NULL,
		previous_pid TEXT NOT NULL,
		current_pid  TEXT NOT NULL,
		started_at   TEXT,
		count        INTEGER NOT NULL
	);`

	if _, err := db.Exec(schema); err != nil {
		return errors.Wrap(err, "failed to create tables")
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_cpu_session ON cpu_samples(session_id, timestamp);",
		"CREATE INDEX IF NOT EXISTS idx_thread_session ON thread_samples(session_id, pid, tid);",
		"CREATE INDEX IF NOT EXISTS idx_memory_session ON memory_samples(session_id, timestamp);",
	}
	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			return errors.Wrap(err, "failed to create index")
		}
	}
	return nil
}

func (s *SQLite) Name() string {
	return "sqlite"
}

func (s *SQLite) Close(ctx context.Context) error {
	return s.db.Close()
}

func nullTime(p types.PeakRecord[float64]) any {
	if !p.Set {
		return nil
	}
	return p.ObservedAt
}

func (s *SQLite) Export(ctx context.Context, trigger Trigger, snap types.SessionSnapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer tx.Rollback()

	var cpuPeak, memPeak, memPeakAt any
	if snap.CPUPeak.Set {
		cpuPeak = snap.CPUPeak.Value
	}
	if snap.MemoryPeak.Set {
		memPeak = int64(snap.MemoryPeak.Value)
		memPeakAt = snap.MemoryPeak.ObservedAt
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (id, package, started_at, updated_at, restart_count, cpu_peak, cpu_peak_at, memory_peak, memory_peak_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			updated_at = excluded.updated_at,
			restart_count = excluded.restart_count,
			cpu_peak = excluded.cpu_peak,
			cpu_peak_at = excluded.cpu_peak_at,
			memory_peak = excluded.memory_peak,
			memory_peak_at = excluded.memory_peak_at`,
		snap.SessionID, snap.Package, snap.StartedAt, snap.TakenAt, snap.RestartCount,
		cpuPeak, nullTime(snap.CPUPeak), memPeak, memPeakAt)
	if err != nil {
		return errors.Wrap(err, "upsert session")
	}

	cpuNext, err := s.insertCPU(ctx, tx, snap)
	if err != nil {
		return err
	}
	memoryNext, err := s.insertMemory(ctx, tx, snap)
	if err != nil {
		return err
	}
	for _, r := range snap.Restarts[min(s.lastRestarts, len(snap.Restarts)):] {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO restarts (session_id, observed_at, previous_pid, current_pid, started_at, count) VALUES (?, ?, ?, ?, ?, ?)",
			snap.SessionID, r.ObservedAt, r.Previous.PID, r.Current.PID, r.Current.StartedAt, r.Count)
		if err != nil {
			return errors.Wrap(err, "insert restart")
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit")
	}
	s.cpu = cpuNext
	s.memory = memoryNext
	s.lastRestarts = len(snap.Restarts)
	return nil
}

func (s *SQLite) insertCPU(ctx context.Context, tx *sql.Tx, snap types.SessionSnapshot) (cursor, error) {
	start, next := s.cpu.advance(cpuStamps(snap.CPU))
	for _, c := range snap.CPU[start:] {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO cpu_samples (session_id, timestamp, pid, process_cpu, system_cpu, idle_cpu, strategy) VALUES (?, ?, ?, ?, ?, ?, ?)",
			snap.SessionID, c.Timestamp, c.PID, c.ProcessCPUPercent, c.SystemCPUPercent, c.IdleCPUPercent, c.Strategy)
		if err != nil {
			return s.cpu, errors.Wrap(err, "insert cpu sample")
		}
		for _, t := range c.TopThreads {
			_, err := tx.ExecContext(ctx,
				"INSERT INTO thread_samples (session_id, timestamp, pid, tid, name, cpu) VALUES (?, ?, ?, ?, ?, ?)",
				snap.SessionID, c.Timestamp, c.PID, t.TID, t.Name, t.CPUPercent)
			if err != nil {
				return s.cpu, errors.Wrap(err, "insert thread sample")
			}
		}
	}
	return next, nil
}

func (s *SQLite) insertMemory(ctx context.Context, tx *sql.Tx, snap types.SessionSnapshot) (cursor, error) {
	start, next := s.memory.advance(memoryStamps(snap.Memory))
	for _, m := range snap.Memory[start:] {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO memory_samples (session_id, timestamp, pid, total_pss, java_heap, native_heap, code, stack, graphics, private_other, system)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			snap.SessionID, m.Timestamp, m.PID, int64(m.TotalPss), int64(m.JavaHeap), int64(m.NativeHeap),
			int64(m.Code), int64(m.Stack), int64(m.Graphics), int64(m.PrivateOther), int64(m.System))
		if err != nil {
			return s.memory, errors.Wrap(err, "insert memory sample")
		}
	}
	return next, nil
}
