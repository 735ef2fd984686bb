package statestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"codenerd/internal/logging"
	"codenerd/internal/model"
)

// schemaSQL creates the patterns.db tables on first open. Kept
// idempotent (IF NOT EXISTS) so every Open call is safe to repeat.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS patterns (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	kind TEXT NOT NULL,
	signature TEXT NOT NULL,
	payload TEXT NOT NULL,
	confidence REAL NOT NULL,
	occurrences INTEGER NOT NULL DEFAULT 1,
	created_at INTEGER NOT NULL,
	last_seen_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_patterns_kind ON patterns(kind);
CREATE INDEX IF NOT EXISTS idx_patterns_signature ON patterns(signature);

CREATE TABLE IF NOT EXISTS correlations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	component TEXT NOT NULL,
	kind TEXT NOT NULL,
	evidence TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_correlations_component ON correlations(component);
`

func ensureSchema(db *sql.DB) error {
	_, err := db.ExecContext(context.Background(), schemaSQL)
	return err
}

// AddPattern inserts or reinforces an ExecutionPattern keyed by
// (kind, signature): a repeat occurrence bumps occurrences and
// confidence via model.NextConfidence rather than inserting a duplicate
// row, matching the decay/reinforcement model described in spec.md §4.7.
func (s *Store) AddPattern(ctx context.Context, p model.ExecutionPattern) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal pattern payload: %w", err)
	}
	now := time.Now().UTC().UnixMilli()

	var existingConfidence float64
	var id int64
	err = s.db.QueryRowContext(ctx,
		`SELECT id, confidence FROM patterns WHERE kind = ? AND signature = ?`,
		string(p.Kind), p.Signature,
	).Scan(&id, &existingConfidence)

	switch {
	case err == sql.ErrNoRows:
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO patterns (kind, signature, payload, confidence, occurrences, created_at, last_seen_at)
			 VALUES (?, ?, ?, ?, 1, ?, ?)`,
			string(p.Kind), p.Signature, string(payload), p.Confidence, now, now,
		)
		return err
	case err != nil:
		return fmt.Errorf("lookup pattern: %w", err)
	default:
		next := model.NextConfidence(existingConfidence)
		_, err = s.db.ExecContext(ctx,
			`UPDATE patterns SET payload = ?, confidence = ?, occurrences = occurrences + 1, last_seen_at = ? WHERE id = ?`,
			string(payload), next, now, id,
		)
		return err
	}
}

// RecordUnknownTool implements tools.PatternRecorder: an unknown-tool
// call is itself a pattern worth tracking, so phase substrates can be
// warned before it repeats into a loop.
func (s *Store) RecordUnknownTool(toolName string, phase string) {
	p := model.ExecutionPattern{
		Kind:       model.PatternFailure,
		Signature:  "unknown_tool:" + toolName,
		Confidence: 0.5,
		Attributes: map[string]string{"phase": phase, "reason": "unknown_tool"},
	}
	if err := s.AddPattern(context.Background(), p); err != nil {
		logging.Get(logging.CategoryPattern).Error("record unknown tool %s: %v", toolName, err)
	}
}

// Patterns returns every stored pattern of the given kind, most
// recently seen first.
func (s *Store) Patterns(ctx context.Context, kind model.PatternKind) ([]model.ExecutionPattern, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload, confidence, occurrences FROM patterns WHERE kind = ? ORDER BY last_seen_at DESC`,
		string(kind),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ExecutionPattern
	for rows.Next() {
		var payload string
		var confidence float64
		var occurrences int
		if err := rows.Scan(&payload, &confidence, &occurrences); err != nil {
			return nil, err
		}
		var p model.ExecutionPattern
		if err := json.Unmarshal([]byte(payload), &p); err != nil {
			continue
		}
		p.Confidence = confidence
		p.Occurrences = occurrences
		out = append(out, p)
	}
	return out, rows.Err()
}

// AddCorrelation records a cross-component observation (e.g. a loop
// detector verdict correlated with a tool dispatch failure) for later
// inspection by the "why" diagnostic surface.
func (s *Store) AddCorrelation(ctx context.Context, component, kind, evidence string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO correlations (component, kind, evidence, created_at) VALUES (?, ?, ?, ?)`,
		component, kind, evidence, time.Now().UTC().UnixMilli(),
	)
	return err
}

// CompactPatterns drops low-confidence noise: patterns below
// minConfidence are deleted, and patterns unseen for staleAfter are
// deleted as well (no archive copy is kept). Near-duplicate signatures
// are not merged; only rows with an identical (kind, signature) are
// folded together, by AddPattern.
func (s *Store) CompactPatterns(ctx context.Context, minConfidence float64, staleAfter time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-staleAfter).UnixMilli()
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM patterns WHERE confidence < ? OR last_seen_at < ?`,
		minConfidence, cutoff,
	)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		logging.Pattern("compacted %d stale/low-confidence patterns", n)
	}
	return n, nil
}
