package notify

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YashMmodi-7504/National-Logistics-Control-Tower-sub000/pkg/lifecycle"
)

func TestArchiveEnsureSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS notifications").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, NewArchive(db).EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestArchiveStoreUpserts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	n := Notification{
		ID:           "4a2b1c3d",
		Timestamp:    time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC),
		ShipmentID:   "SHP-0000000001",
		TemplateName: TmplDelivered,
		Message:      "Shipment SHP-0000000001 delivered.",
		Severity:     SeverityInfo,
		Recipients:   []lifecycle.Role{lifecycle.RoleSender},
		Metadata:     map[string]any{"channel": "dashboard"},
		ReadBy:       []lifecycle.Role{},
	}

	mock.ExpectExec("INSERT INTO notifications").
		WithArgs(n.ID, n.Timestamp, n.ShipmentID, n.TemplateName, n.Message,
			"INFO", []byte(`["SENDER"]`), []byte(`{"channel":"dashboard"}`), []byte(`[]`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewArchive(db).Store(context.Background(), n))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestArchiveCountBySeverity(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT severity, COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"severity", "count"}).
			AddRow("INFO", 3).
			AddRow("URGENT", 1))

	counts, err := NewArchive(db).CountBySeverity(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, counts[SeverityInfo])
	assert.Equal(t, 1, counts[SeverityUrgent])
	require.NoError(t, mock.ExpectationsWereMet())
}
