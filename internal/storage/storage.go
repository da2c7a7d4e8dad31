// Package storage persists classifier runs. It uses BoltDB as the underlying
// storage engine to keep the sweep history and winning model of every run,
// so that a later invocation can score new data without retraining.
//
// Run IDs are derived from the creation time and sort chronologically, which
// lets range queries walk the runs bucket with a cursor.
package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"filter-classifier/internal/ml"

	"go.etcd.io/bbolt"
)

const (
	runsBucket  = "runs"  // Bucket name for run summaries
	stepsBucket = "steps" // Bucket name for per-step sweep records

	// DBFile is the database file created inside the data path.
	DBFile = "classifier-runs.db"

	idLayout = "20060102T150405.000000000"
)

// ErrRunNotFound is returned when no run has the requested ID.
var ErrRunNotFound = errors.New("run not found")

// Run is the persisted record of one model selection.
type Run struct {
	ID              string      `json:"id"`
	CreatedAt       time.Time   `json:"created_at"`
	TrainingScores  string      `json:"training_scores"`
	Criterion       string      `json:"criterion"`
	DiscardFraction float64     `json:"discard_fraction"`
	Value           float64     `json:"value"`
	Model           ml.Snapshot `json:"model"`
	Steps           []Step      `json:"-"`
}

// Step summarises one sweep step of a run.
type Step struct {
	Step            int     `json:"step"`
	DiscardFraction float64 `json:"discard_fraction"`
	Value           float64 `json:"value"`
	Rows            int     `json:"rows"`
	Positives       int     `json:"positives"`
	Improved        bool    `json:"improved"`
	Skipped         bool    `json:"skipped"`
	Error           string  `json:"error,omitempty"`
}

// NewRunID returns the ID of a run created at t.
func NewRunID(t time.Time) string {
	return t.UTC().Format(idLayout)
}

// Store provides persistent storage for classifier runs using BoltDB.
type Store struct {
	db *bbolt.DB // BoltDB database instance
}

// New opens (or creates) the run database inside dataPath.
// Returns an error if the database cannot be opened or buckets cannot be created.
func New(dataPath string) (*Store, error) {
	dbPath := filepath.Join(dataPath, DBFile)

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(runsBucket)); err != nil {
			return fmt.Errorf("create runs bucket: %w", err)
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(stepsBucket)); err != nil {
			return fmt.Errorf("create steps bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveRun stores a run and its steps in a single transaction. An empty ID
// is filled from CreatedAt.
func (s *Store) SaveRun(run *Run) error {
	if run.CreatedAt.IsZero() {
		return errors.New("run has no creation time")
	}
	if run.ID == "" {
		run.ID = NewRunID(run.CreatedAt)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(run)
		if err != nil {
			return fmt.Errorf("marshal run: %w", err)
		}
		if err := tx.Bucket([]byte(runsBucket)).Put([]byte(run.ID), data); err != nil {
			return err
		}

		steps := tx.Bucket([]byte(stepsBucket))
		for _, step := range run.Steps {
			data, err := json.Marshal(step)
			if err != nil {
				return fmt.Errorf("marshal step: %w", err)
			}
			if err := steps.Put(stepKey(run.ID, step.Step), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetRun returns the run with the given ID, including its steps.
func (s *Store) GetRun(id string) (*Run, error) {
	var run Run

	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(runsBucket)).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrRunNotFound, id)
		}
		if err := json.Unmarshal(data, &run); err != nil {
			return fmt.Errorf("unmarshal run %s: %w", id, err)
		}

		steps, err := readSteps(tx, id)
		if err != nil {
			return err
		}
		run.Steps = steps
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// LatestRun returns the most recently created run.
func (s *Store) LatestRun() (*Run, error) {
	var id string
	err := s.db.View(func(tx *bbolt.Tx) error {
		k, _ := tx.Bucket([]byte(runsBucket)).Cursor().Last()
		if k == nil {
			return fmt.Errorf("%w: store is empty", ErrRunNotFound)
		}
		id = string(k)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetRun(id)
}

// ListRuns returns every run summary, oldest first. Steps are not loaded.
func (s *Store) ListRuns() ([]Run, error) {
	var runs []Run

	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(runsBucket)).ForEach(func(k, v []byte) error {
			var run Run
			if err := json.Unmarshal(v, &run); err != nil {
				return fmt.Errorf("unmarshal run %s: %w", k, err)
			}
			runs = append(runs, run)
			return nil
		})
	})

	return runs, err
}

// GetRunsInRange returns the run summaries created within [start, end],
// oldest first. Malformed records are skipped.
func (s *Store) GetRunsInRange(start, end time.Time) ([]Run, error) {
	var runs []Run

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(runsBucket)).Cursor()
		startKey := []byte(NewRunID(start))
		endKey := []byte(NewRunID(end))

		for k, v := c.Seek(startKey); k != nil && bytes.Compare(k, endKey) <= 0; k, v = c.Next() {
			var run Run
			if err := json.Unmarshal(v, &run); err != nil {
				continue
			}
			runs = append(runs, run)
		}
		return nil
	})

	return runs, err
}

// DeleteRun removes a run and its steps.
func (s *Store) DeleteRun(id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		runs := tx.Bucket([]byte(runsBucket))
		if runs.Get([]byte(id)) == nil {
			return fmt.Errorf("%w: %s", ErrRunNotFound, id)
		}
		if err := runs.Delete([]byte(id)); err != nil {
			return err
		}

		// collect first; deleting while iterating skips keys
		steps := tx.Bucket([]byte(stepsBucket))
		prefix := stepPrefix(id)
		var keys [][]byte
		c := steps.Cursor()
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			keys = append(keys, append([]byte(nil), k...))
		}
		for _, k := range keys {
			if err := steps.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

func readSteps(tx *bbolt.Tx, id string) ([]Step, error) {
	var steps []Step
	c := tx.Bucket([]byte(stepsBucket)).Cursor()
	prefix := stepPrefix(id)

	for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
		var step Step
		if err := json.Unmarshal(v, &step); err != nil {
			return nil, fmt.Errorf("unmarshal step %s: %w", k, err)
		}
		steps = append(steps, step)
	}
	return steps, nil
}

func stepPrefix(id string) []byte {
	return []byte(id + "/")
}

// stepKey zero-pads the step index so keys sort in sweep order.
func stepKey(id string, step int) []byte {
	return []byte(fmt.Sprintf("%s/%06d", id, step))
}
