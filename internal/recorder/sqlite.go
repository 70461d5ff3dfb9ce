package recorder

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"GreenDeck/internal/logger"
)

// SQLiteRecorder persists learner activity to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log *logger.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, log *logger.Logger) (*SQLiteRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: log.With("component", "SQLiteRecorder")}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	r.log.Info("sqlite recorder opened", "path", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS navigation_events (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp   INTEGER NOT NULL,
			learner_id  TEXT NOT NULL,
			action      TEXT NOT NULL,
			source      TEXT,
			from_slide  INTEGER,
			to_slide    INTEGER,
			detail      TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_navigation_learner ON navigation_events(learner_id, timestamp)`,

		`CREATE TABLE IF NOT EXISTS milestone_events (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp    INTEGER NOT NULL,
			learner_id   TEXT NOT NULL,
			milestone_id INTEGER NOT NULL,
			slide        INTEGER,
			is_new       INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_milestone_learner ON milestone_events(learner_id, timestamp)`,

		`CREATE TABLE IF NOT EXISTS bond_calculations (
			id                 INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp          INTEGER NOT NULL,
			learner_id         TEXT NOT NULL,
			discount_rate      REAL,
			greenium_bps       REAL,
			maturity_years     INTEGER,
			coupon_rate        REAL,
			face_value         REAL,
			conventional_price REAL,
			green_price        REAL,
			price_difference   REAL,
			percent_difference REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bond_ts ON bond_calculations(timestamp)`,

		`CREATE TABLE IF NOT EXISTS progress_snapshots (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp         INTEGER NOT NULL,
			learner_id        TEXT NOT NULL,
			current_slide     INTEGER,
			progress_percent  REAL,
			active_section_id INTEGER,
			milestones        TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshot_ts ON progress_snapshots(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordNavigation(evt *NavigationEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO navigation_events
		(timestamp, learner_id, action, source, from_slide, to_slide, detail)
		VALUES (?,?,?,?,?,?,?)`,
		time.Now().Unix(), evt.LearnerID, evt.Action, evt.Source,
		evt.FromSlide, evt.ToSlide, evt.Detail,
	)
	return err
}

func (r *SQLiteRecorder) RecordMilestone(evt *MilestoneEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	isNew := 0
	if evt.New {
		isNew = 1
	}
	_, err := r.db.Exec(`INSERT INTO milestone_events
		(timestamp, learner_id, milestone_id, slide, is_new)
		VALUES (?,?,?,?,?)`,
		time.Now().Unix(), evt.LearnerID, evt.MilestoneID, evt.Slide, isNew,
	)
	return err
}

func (r *SQLiteRecorder) RecordCalculation(evt *CalculationEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := evt.Comparison
	p := c.Parameters
	_, err := r.db.Exec(`INSERT INTO bond_calculations
		(timestamp, learner_id, discount_rate, greenium_bps, maturity_years, coupon_rate, face_value,
		 conventional_price, green_price, price_difference, percent_difference)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		time.Now().Unix(), evt.LearnerID,
		p.DiscountRate, p.GreeniumBps, p.MaturityYears, p.CouponRate, p.FaceValue,
		c.Conventional.Price, c.Green.Price, c.PriceDifference, c.PercentDifference,
	)
	return err
}

func (r *SQLiteRecorder) RecordSnapshot(snap *Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ms := snap.Milestones
	if ms == nil {
		ms = []int{}
	}
	milestones, err := json.Marshal(ms)
	if err != nil {
		return fmt.Errorf("marshal milestones: %w", err)
	}
	_, err = r.db.Exec(`INSERT INTO progress_snapshots
		(timestamp, learner_id, current_slide, progress_percent, active_section_id, milestones)
		VALUES (?,?,?,?,?,?)`,
		time.Now().Unix(), snap.LearnerID, snap.CurrentSlide,
		snap.ProgressPercent, snap.ActiveSectionID, string(milestones),
	)
	return err
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info("closing sqlite recorder")
	return r.db.Close()
}
