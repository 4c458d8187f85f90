package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/oplens/internal/activity"
	"github.com/roach88/oplens/internal/engine"
)

// Capture describes one stored activity batch.
type Capture struct {
	ID            string `json:"id"`
	Seq           int64  `json:"seq"`
	Label         string `json:"label"`
	ActivityCount int    `json:"activityCount"`
}

// SaveCapture stores a batch under a new capture id. Activities keep their
// store order. The whole batch is written in one transaction.
func (s *Store) SaveCapture(ctx context.Context, label string, batch *activity.Store) (Capture, error) {
	c := Capture{
		ID:            s.ids.Generate(),
		Label:         label,
		ActivityCount: batch.Len(),
	}

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM captures`).Scan(&c.Seq); err != nil {
			return fmt.Errorf("next capture seq: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO captures (id, seq, label, activity_count)
			VALUES (?, ?, ?, ?)
		`, c.ID, c.Seq, c.Label, c.ActivityCount); err != nil {
			return fmt.Errorf("insert capture: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO activities (capture_id, seq, activity_id, trigger_id, type, data)
			VALUES (?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("prepare activity insert: %w", err)
		}
		defer stmt.Close()

		for i, a := range batch.All() {
			data, err := marshalActivity(a)
			if err != nil {
				return err
			}
			if _, err := stmt.ExecContext(ctx, c.ID, i, a.ID, a.TriggerID, a.Type, data); err != nil {
				return fmt.Errorf("insert activity %d: %w", a.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return Capture{}, fmt.Errorf("save capture: %w", err)
	}
	return c, nil
}

// SaveReport replaces the stored report of a capture with the entries of
// res. tableVersion records the signature table the report was built with.
func (s *Store) SaveReport(ctx context.Context, captureID, tableVersion string, res *engine.Result) error {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM reports WHERE capture_id = ?`, captureID); err != nil {
			return fmt.Errorf("clear report: %w", err)
		}
		for i, e := range res.Entries {
			data, digest, err := marshalOperation(e.Operation)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO reports (capture_id, seq, table_version, kind, steps, anchor, digest, operation)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			`, captureID, i, tableVersion, e.Kind, e.Steps, e.Anchor, digest, data); err != nil {
				return fmt.Errorf("insert report entry %s/%d: %w", e.Kind, e.Anchor, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}

// DeleteCapture removes a capture with its activities and report.
// Returns sql.ErrNoRows (wrapped) if the capture does not exist.
func (s *Store) DeleteCapture(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM captures WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete capture: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete capture: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete capture %s: %w", id, sql.ErrNoRows)
	}
	return nil
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
