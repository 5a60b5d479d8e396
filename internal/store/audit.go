package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/noteweave/noteweave/internal/engine"
)

// Run is the audit record for one batch execution.
type Run struct {
	ID        string
	StartedAt time.Time
	Policy    string
	Seed      int64
	Reference string // textual reference date; "" when per-group dates only
	Placed    int
	Unplaced  int
}

// NewRunID returns a time-ordered unique run token.
func NewRunID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// BeginRun records the start of a batch. Counts are zero until FinishRun.
// Idempotent on run ID.
func (s *Store) BeginRun(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, policy, seed, reference)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.StartedAt.UTC().Format(time.RFC3339),
		run.Policy,
		run.Seed,
		run.Reference,
	)
	if err != nil {
		return fmt.Errorf("begin run %s: %w", run.ID, err)
	}
	return nil
}

// FinishRun stores the final placed/unplaced counts for a run.
func (s *Store) FinishRun(ctx context.Context, runID string, placed, unplaced int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE runs SET placed = ?, unplaced = ? WHERE id = ?
	`, placed, unplaced, runID)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", runID, err)
	}
	return nil
}

// WritePlacement records one candidate outcome. Idempotent on
// (run, candidate): duplicate writes are silently ignored.
func (s *Store) WritePlacement(ctx context.Context, runID string, rec engine.PlacementRecord) error {
	placed := 0
	if rec.Placed {
		placed = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO placements
		(run_id, candidate_id, origin_tag, group_key, position, seq, placed, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, candidate_id) DO NOTHING
	`,
		runID,
		rec.CandidateID,
		rec.OriginTag,
		rec.GroupKey,
		rec.Position,
		rec.Seq,
		placed,
		rec.Reason,
	)
	if err != nil {
		return fmt.Errorf("write placement %s/%s: %w", runID, rec.CandidateID, err)
	}
	return nil
}

// RecordBatch persists a whole engine result under one run: the run row,
// every placement, and the final counts.
func (s *Store) RecordBatch(ctx context.Context, run Run, res *engine.Result) error {
	if err := s.BeginRun(ctx, run); err != nil {
		return err
	}
	for _, rec := range res.Records {
		if err := s.WritePlacement(ctx, run.ID, rec); err != nil {
			return err
		}
	}
	return s.FinishRun(ctx, run.ID, res.Placed, res.Unplaced)
}

// ListRuns returns all runs, most recent first.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, policy, seed, reference, placed, unplaced
		FROM runs ORDER BY started_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var started string
		if err := rows.Scan(&r.ID, &started, &r.Policy, &r.Seed, &r.Reference, &r.Placed, &r.Unplaced); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if t, err := time.Parse(time.RFC3339, started); err == nil {
			r.StartedAt = t
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListPlacements returns a run's placements in logical clock order.
func (s *Store) ListPlacements(ctx context.Context, runID string) ([]engine.PlacementRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT candidate_id, origin_tag, group_key, position, seq, placed, reason
		FROM placements WHERE run_id = ? ORDER BY seq
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("list placements for %s: %w", runID, err)
	}
	defer rows.Close()

	var out []engine.PlacementRecord
	for rows.Next() {
		var rec engine.PlacementRecord
		var placed int
		if err := rows.Scan(&rec.CandidateID, &rec.OriginTag, &rec.GroupKey, &rec.Position, &rec.Seq, &placed, &rec.Reason); err != nil {
			return nil, fmt.Errorf("scan placement: %w", err)
		}
		rec.Placed = placed != 0
		out = append(out, rec)
	}
	return out, rows.Err()
}
