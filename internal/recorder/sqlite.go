package recorder

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists historical data to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log zerolog.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, log zerolog.Logger) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so dashboards can read while the bot writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: log}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS scan_runs (
			id          TEXT PRIMARY KEY,
			timestamp   INTEGER NOT NULL,
			symbol      TEXT NOT NULL,
			interval    TEXT NOT NULL,
			source      TEXT,
			bars        INTEGER,
			signals     INTEGER,
			new_signals INTEGER,
			duration_ms INTEGER,
			error       TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scan_series ON scan_runs(symbol, interval, timestamp)`,

		`CREATE TABLE IF NOT EXISTS signals (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id      TEXT,
			symbol      TEXT NOT NULL,
			interval    TEXT NOT NULL,
			bar_time    INTEGER NOT NULL,
			kind        TEXT NOT NULL,
			score       INTEGER,
			stoch_rsi   REAL,
			open        REAL,
			high        REAL,
			low         REAL,
			close       REAL,
			volume      REAL,
			detected_at INTEGER NOT NULL,
			UNIQUE(symbol, interval, bar_time)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_signals_kind ON signals(kind)`,

		`CREATE TABLE IF NOT EXISTS confirmations (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp   INTEGER NOT NULL,
			symbol      TEXT NOT NULL,
			interval    TEXT NOT NULL,
			bar_time    INTEGER NOT NULL,
			kind        TEXT,
			confirmed   INTEGER,
			score       INTEGER,
			explanation TEXT,
			model       TEXT,
			error       TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_confirm_signal ON confirmations(symbol, interval, bar_time)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordScan(run *ScanRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO scan_runs
		(id, timestamp, symbol, interval, source, bars, signals, new_signals, duration_ms, error)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		run.ID, run.StartedAt.Unix(), run.Symbol, run.Interval, run.Trigger,
		run.Bars, run.Signals, run.NewSignals, run.Duration.Milliseconds(), run.Err,
	)
	return err
}

// RecordSignal inserts the signal, or refreshes its score and run id when the
// bar was recorded before.
func (r *SQLiteRecorder) RecordSignal(evt *SignalEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := evt.Signal
	_, err := r.db.Exec(`INSERT INTO signals
		(run_id, symbol, interval, bar_time, kind, score, stoch_rsi, open, high, low, close, volume, detected_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(symbol, interval, bar_time) DO UPDATE SET
			run_id = excluded.run_id,
			kind = excluded.kind,
			score = excluded.score,
			stoch_rsi = excluded.stoch_rsi`,
		evt.RunID, evt.Symbol, evt.Interval, s.Timestamp, string(s.Kind), s.Score, s.StochRSI,
		s.Bar.Open, s.Bar.High, s.Bar.Low, s.Bar.Close, s.Bar.Volume, time.Now().Unix(),
	)
	return err
}

func (r *SQLiteRecorder) RecordConfirmation(evt *ConfirmationEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	confirmed := 0
	if evt.Confirmation.Confirmed {
		confirmed = 1
	}
	_, err := r.db.Exec(`INSERT INTO confirmations
		(timestamp, symbol, interval, bar_time, kind, confirmed, score, explanation, model, error)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		time.Now().Unix(), evt.Symbol, evt.Interval, evt.Timestamp, string(evt.Kind),
		confirmed, evt.Confirmation.Score, evt.Confirmation.Explanation, evt.Model, evt.Err,
	)
	return err
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
