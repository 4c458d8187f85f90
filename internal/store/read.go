package store

import (
	"context"
	"fmt"

	"github.com/roach88/oplens/internal/activity"
	"github.com/roach88/oplens/internal/assemble"
)

// ReportEntry is one stored operation.
type ReportEntry struct {
	Kind         string              `json:"kind"`
	Steps        int                 `json:"steps"`
	Anchor       int64               `json:"anchor"`
	TableVersion string              `json:"tableVersion"`
	Digest       string              `json:"digest"`
	Operation    *assemble.Operation `json:"operation"`
}

// ReadCapture returns the capture metadata for id.
// Returns sql.ErrNoRows (wrapped) if not found.
func (s *Store) ReadCapture(ctx context.Context, id string) (Capture, error) {
	var c Capture
	err := s.db.QueryRowContext(ctx, `
		SELECT id, seq, label, activity_count FROM captures WHERE id = ?
	`, id).Scan(&c.ID, &c.Seq, &c.Label, &c.ActivityCount)
	if err != nil {
		return Capture{}, fmt.Errorf("read capture %s: %w", id, err)
	}
	return c, nil
}

// LoadCapture rebuilds the activity store saved under id, in saved order.
// Returns sql.ErrNoRows (wrapped) if the capture does not exist.
func (s *Store) LoadCapture(ctx context.Context, id string) (*activity.Store, Capture, error) {
	c, err := s.ReadCapture(ctx, id)
	if err != nil {
		return nil, Capture{}, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT data FROM activities
		WHERE capture_id = ?
		ORDER BY seq ASC
	`, id)
	if err != nil {
		return nil, Capture{}, fmt.Errorf("query activities: %w", err)
	}
	defer rows.Close()

	activities := make([]activity.Activity, 0, c.ActivityCount)
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, Capture{}, fmt.Errorf("scan activity: %w", err)
		}
		a, err := unmarshalActivity(data)
		if err != nil {
			return nil, Capture{}, err
		}
		activities = append(activities, a)
	}
	if err := rows.Err(); err != nil {
		return nil, Capture{}, fmt.Errorf("iterate activities: %w", err)
	}

	batch, err := activity.NewStore(activities)
	if err != nil {
		return nil, Capture{}, fmt.Errorf("load capture %s: %w", id, err)
	}
	return batch, c, nil
}

// ListCaptures returns every capture in import order.
// Returns an empty slice (not nil) if there are none.
func (s *Store) ListCaptures(ctx context.Context) ([]Capture, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seq, label, activity_count FROM captures
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query captures: %w", err)
	}
	defer rows.Close()

	captures := []Capture{}
	for rows.Next() {
		var c Capture
		if err := rows.Scan(&c.ID, &c.Seq, &c.Label, &c.ActivityCount); err != nil {
			return nil, fmt.Errorf("scan capture: %w", err)
		}
		captures = append(captures, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate captures: %w", err)
	}
	return captures, nil
}

// LoadReport returns the stored report of a capture in entry order.
// Returns an empty slice (not nil) if the capture has not been processed.
func (s *Store) LoadReport(ctx context.Context, captureID string) ([]ReportEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, steps, anchor, table_version, digest, operation FROM reports
		WHERE capture_id = ?
		ORDER BY seq ASC
	`, captureID)
	if err != nil {
		return nil, fmt.Errorf("query report: %w", err)
	}
	defer rows.Close()

	entries := []ReportEntry{}
	for rows.Next() {
		var (
			e    ReportEntry
			data string
		)
		if err := rows.Scan(&e.Kind, &e.Steps, &e.Anchor, &e.TableVersion, &e.Digest, &data); err != nil {
			return nil, fmt.Errorf("scan report entry: %w", err)
		}
		if e.Operation, err = unmarshalOperation(data); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate report: %w", err)
	}
	return entries, nil
}

// FindByDigest returns the ids of captures whose report contains an
// operation with the given digest, in capture order.
func (s *Store) FindByDigest(ctx context.Context, digest string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT c.id FROM reports r
		JOIN captures c ON c.id = r.capture_id
		WHERE r.digest = ?
		ORDER BY c.seq ASC
	`, digest)
	if err != nil {
		return nil, fmt.Errorf("query digest: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan digest match: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
