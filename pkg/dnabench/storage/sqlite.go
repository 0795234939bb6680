package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/himanishpuri/dnabench/pkg/models"
)

const DefaultDBFile = "dnabench.sqlite3"
const errDBClientNil = "db client is nil"

var ErrRunNotFound = errors.New("run not found")

type RunStatus string

const (
	StatusRunning   RunStatus = "running"
	StatusCompleted RunStatus = "completed"
	StatusFailed    RunStatus = "failed"
)

// Run is one evaluation pass over a clip directory.
type Run struct {
	ID            string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CreatedAt     time.Time  `gorm:"index:idx_run_created" json:"created_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
	Seed          int64      `json:"seed"`
	Padding       int        `json:"padding"`
	Durations     []int      `gorm:"serializer:json" json:"durations"`
	ClipDir       string     `json:"clip_dir"`
	EngineCommand []string   `gorm:"serializer:json" json:"engine_command"`
	Status        RunStatus  `gorm:"type:varchar(16);index:idx_run_status" json:"status"`
	Error         string     `json:"error,omitempty"`
}

// Evaluation is the stored verdict for one clip.
type Evaluation struct {
	ID             uint      `gorm:"primaryKey;autoIncrement" json:"-"`
	RunID          string    `gorm:"type:varchar(36);index:idx_eval_run" json:"run_id"`
	SongID         string    `gorm:"index:idx_eval_song" json:"song_id"`
	Duration       int       `json:"duration"`
	StartTime      int       `json:"start_time"`
	ClipPath       string    `json:"clip_path"`
	Outcome        string    `gorm:"type:varchar(16)" json:"outcome"`
	MatchedSongID  string    `json:"matched_song_id,omitempty"`
	PredictedStart int       `json:"predicted_start"`
	TimingError    int       `json:"timing_error"`
	Accurate       bool      `json:"accurate"`
	Confidence     float64   `json:"confidence"`
	QueryDuration  float64   `json:"query_duration"`
	RawResponse    string    `json:"raw_response,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewEvaluation flattens a classified clip into a row.
func NewEvaluation(runID string, clipPath string, truth models.GroundTruth, v models.Verdict, raw string) *Evaluation {
	return &Evaluation{
		RunID:          runID,
		SongID:         truth.SongID,
		Duration:       truth.Duration,
		StartTime:      truth.StartTime,
		ClipPath:       clipPath,
		Outcome:        string(v.Outcome),
		MatchedSongID:  v.MatchedSongID,
		PredictedStart: v.PredictedStart,
		TimingError:    v.TimingError,
		Accurate:       v.Accurate,
		Confidence:     v.Confidence,
		QueryDuration:  v.QueryDuration,
		RawResponse:    raw,
	}
}

// Cell converts the row back to a matrix cell.
func (e *Evaluation) Cell() models.Cell {
	return models.Cell{
		Outcome:       models.Outcome(e.Outcome),
		TimingError:   e.TimingError,
		Accurate:      e.Accurate,
		Confidence:    e.Confidence,
		QueryDuration: e.QueryDuration,
		Filled:        true,
	}
}

type DBClient struct {
	DB *gorm.DB
	db *sql.DB
}

func NewDBClientWithPath(dbPath string) (*DBClient, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(sqlite.Open(dbPath+"?_pragma=foreign_keys(1)"), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}

	// sqlite allows one writer
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&Run{}, &Evaluation{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &DBClient{DB: db, db: sqlDB}, nil
}

func (c *DBClient) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// CreateRun stores run with a fresh ID and status running. The ID is written
// back into run.
func (c *DBClient) CreateRun(run *Run) error {
	if c == nil || c.DB == nil {
		return errors.New(errDBClientNil)
	}
	run.ID = uuid.NewString()
	run.Status = StatusRunning
	run.FinishedAt = nil
	if err := c.DB.Create(run).Error; err != nil {
		return fmt.Errorf("creating run: %w", err)
	}
	return nil
}

func (c *DBClient) SaveEvaluation(e *Evaluation) error {
	if c == nil || c.DB == nil {
		return errors.New(errDBClientNil)
	}
	if err := c.DB.Create(e).Error; err != nil {
		return fmt.Errorf("saving evaluation for %s: %w", e.ClipPath, err)
	}
	return nil
}

// FinishRun marks the run completed, or failed with runErr's text.
func (c *DBClient) FinishRun(id string, runErr error) error {
	if c == nil || c.DB == nil {
		return errors.New(errDBClientNil)
	}
	updates := map[string]any{
		"finished_at": time.Now(),
		"status":      StatusCompleted,
		"error":       "",
	}
	if runErr != nil {
		updates["status"] = StatusFailed
		updates["error"] = runErr.Error()
	}

	res := c.DB.Model(&Run{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("finishing run %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

func (c *DBClient) GetRun(id string) (*Run, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}
	var run Run
	err := c.DB.Where("id = ?", id).First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying run: %w", err)
	}
	return &run, nil
}

// ListRuns returns runs newest first. limit <= 0 means no limit.
func (c *DBClient) ListRuns(limit int) ([]Run, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}
	q := c.DB.Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var runs []Run
	if err := q.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return runs, nil
}

// ListEvaluations returns a run's evaluations in the order they were saved.
func (c *DBClient) ListEvaluations(runID string) ([]Evaluation, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}
	var rows []Evaluation
	if err := c.DB.Where("run_id = ?", runID).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("querying evaluations: %w", err)
	}
	return rows, nil
}

// DeleteRun removes a run and its evaluations.
func (c *DBClient) DeleteRun(id string) error {
	if c == nil || c.DB == nil {
		return errors.New(errDBClientNil)
	}
	return c.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("run_id = ?", id).Delete(&Evaluation{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&Run{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: %s", ErrRunNotFound, id)
		}
		return nil
	})
}
