package notify

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"
)

// Archive copies notifications into Postgres for long-term retention. The
// JSONL store stays authoritative; the archive is a queryable replica and may
// lag behind.
type Archive struct {
	db *sql.DB
}

var _ ArchiveSink = (*Archive)(nil)

// OpenArchive connects to Postgres.
func OpenArchive(dsn string) (*Archive, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open notification archive: %w", err)
	}
	return &Archive{db: db}, nil
}

// NewArchive wraps an existing connection, used by tests.
func NewArchive(db *sql.DB) *Archive {
	return &Archive{db: db}
}

// EnsureSchema creates the archive table when absent.
func (a *Archive) EnsureSchema(ctx context.Context) error {
	_, err := a.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS notifications (
			id            TEXT PRIMARY KEY,
			ts            TIMESTAMPTZ NOT NULL,
			shipment_id   TEXT NOT NULL,
			template_name TEXT NOT NULL,
			message       TEXT NOT NULL,
			severity      TEXT NOT NULL,
			recipients    JSONB NOT NULL,
			metadata      JSONB,
			read_by       JSONB NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("ensure notification archive schema: %w", err)
	}
	return nil
}

// Store upserts one notification. Re-archiving after new read marks updates
// read_by only; every other column is immutable.
func (a *Archive) Store(ctx context.Context, n Notification) error {
	recipients, err := json.Marshal(n.Recipients)
	if err != nil {
		return fmt.Errorf("marshal recipients: %w", err)
	}
	readBy, err := json.Marshal(n.ReadBy)
	if err != nil {
		return fmt.Errorf("marshal read_by: %w", err)
	}
	var metadata []byte
	if n.Metadata != nil {
		metadata, err = json.Marshal(n.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
	}

	_, err = a.db.ExecContext(ctx, `
		INSERT INTO notifications
			(id, ts, shipment_id, template_name, message, severity, recipients, metadata, read_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET read_by = EXCLUDED.read_by`,
		n.ID, n.Timestamp, n.ShipmentID, n.TemplateName, n.Message,
		string(n.Severity), recipients, metadata, readBy)
	if err != nil {
		return fmt.Errorf("archive notification %s: %w", n.ID, err)
	}
	return nil
}

// CountBySeverity reports archive totals per severity.
func (a *Archive) CountBySeverity(ctx context.Context) (map[Severity]int, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT severity, COUNT(*) FROM notifications GROUP BY severity`)
	if err != nil {
		return nil, fmt.Errorf("count archived notifications: %w", err)
	}
	defer rows.Close()

	out := make(map[Severity]int)
	for rows.Next() {
		var severity string
		var count int
		if err := rows.Scan(&severity, &count); err != nil {
			return nil, fmt.Errorf("scan severity count: %w", err)
		}
		out[Severity(severity)] = count
	}
	return out, rows.Err()
}

// Close releases the database connection.
func (a *Archive) Close() error {
	return a.db.Close()
}
