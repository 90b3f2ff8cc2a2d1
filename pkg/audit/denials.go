// Package audit records access denials per role for compliance snapshots.
//
// Stored rows carry ids and reason codes only, never shipment content. The
// store is SQLite-backed so summaries survive restarts and can be frozen into
// the audit-denials snapshot family.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/YashMmodi-7504/National-Logistics-Control-Tower-sub000/pkg/access"
	"github.com/YashMmodi-7504/National-Logistics-Control-Tower-sub000/pkg/lifecycle"
)

// Denial is one recorded access denial.
type Denial struct {
	ShipmentID string `json:"shipment_id"`
	ReasonCode string `json:"reason_code"`
}

const schema = `
CREATE TABLE IF NOT EXISTS denials (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	role        TEXT NOT NULL,
	shipment_id TEXT NOT NULL,
	reason_code TEXT NOT NULL,
	recorded_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_denials_role ON denials(role);
`

// Store is the per-role denial log.
type Store struct {
	db    *sql.DB
	clock func() time.Time
}

// Open opens (and migrates) the denial store at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open denial store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate denial store: %w", err)
	}
	return &Store{db: db, clock: time.Now}, nil
}

// WithClock overrides the clock for testing.
func (s *Store) WithClock(clock func() time.Time) *Store {
	s.clock = clock
	return s
}

// Close releases the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Record persists one denial for a role.
func (s *Store) Record(ctx context.Context, role lifecycle.Role, shipmentID string, reason access.DenialReason) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO denials (role, shipment_id, reason_code, recorded_at) VALUES (?, ?, ?, ?)`,
		string(role), shipmentID, string(reason), s.clock().UTC(),
	)
	if err != nil {
		return fmt.Errorf("record denial: %w", err)
	}
	return nil
}

// ListByRole returns the denials recorded for one role, oldest first.
func (s *Store) ListByRole(ctx context.Context, role lifecycle.Role) ([]Denial, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT shipment_id, reason_code FROM denials WHERE role = ? ORDER BY id`, string(role))
	if err != nil {
		return nil, fmt.Errorf("list denials: %w", err)
	}
	defer rows.Close()

	var out []Denial
	for rows.Next() {
		var d Denial
		if err := rows.Scan(&d.ShipmentID, &d.ReasonCode); err != nil {
			return nil, fmt.Errorf("scan denial: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// CountsByReason returns denial counts grouped by reason code.
func (s *Store) CountsByReason(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT reason_code, COUNT(*) FROM denials GROUP BY reason_code`)
	if err != nil {
		return nil, fmt.Errorf("count denials: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var reason string
		var n int
		if err := rows.Scan(&reason, &n); err != nil {
			return nil, fmt.Errorf("scan denial count: %w", err)
		}
		out[reason] = n
	}
	return out, rows.Err()
}

// SummaryPayload builds the audit-denials snapshot payload: per-role denial
// lists plus reason counts.
func (s *Store) SummaryPayload(ctx context.Context) (map[string]any, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT role, shipment_id, reason_code FROM denials ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("summarize denials: %w", err)
	}
	defer rows.Close()

	byRole := make(map[string][]Denial)
	for rows.Next() {
		var role string
		var d Denial
		if err := rows.Scan(&role, &d.ShipmentID, &d.ReasonCode); err != nil {
			return nil, fmt.Errorf("scan denial: %w", err)
		}
		byRole[role] = append(byRole[role], d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	counts, err := s.CountsByReason(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"denials_by_role":  byRole,
		"counts_by_reason": counts,
	}, nil
}
