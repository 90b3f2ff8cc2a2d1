package notify

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/YashMmodi-7504/National-Logistics-Control-Tower-sub000/pkg/lifecycle"
)

var (
	// ErrNotificationMissing is returned when no notification has the id.
	ErrNotificationMissing = errors.New("notification missing")
	// ErrNotRecipient is returned when a role outside the recipient set tries
	// to mark a notification read.
	ErrNotRecipient = errors.New("role is not a recipient")
)

// record is the envelope persisted per line. Notifications are immutable, so
// read marks are separate appended records rather than rewrites.
type record struct {
	Kind           string         `json:"kind"`
	Notification   *Notification  `json:"notification,omitempty"`
	NotificationID string         `json:"notification_id,omitempty"`
	Role           lifecycle.Role `json:"role,omitempty"`
	Timestamp      time.Time      `json:"timestamp"`
}

const (
	kindNotification = "notification"
	kindReadMarker   = "read_marker"
)

// ArchiveSink receives a copy of every persisted notification. Archiving is
// best effort; a sink failure never affects the authoritative store.
type ArchiveSink interface {
	Store(ctx context.Context, n Notification) error
}

// Store persists notifications in an append-only line-oriented file and
// serves reads from an in-memory index rebuilt on open.
type Store struct {
	mu       sync.Mutex
	path     string
	registry *Registry
	clock    func() time.Time
	logger   *slog.Logger
	sink     ArchiveSink

	byID  map[string]*Notification
	order []string
}

// OpenStore opens or creates the notification file and replays it.
func OpenStore(path string, registry *Registry) (*Store, error) {
	s := &Store{
		path:     path,
		registry: registry,
		clock:    time.Now,
		logger:   slog.Default().With("component", "notify"),
		byID:     make(map[string]*Notification),
	}
	if err := s.replay(); err != nil {
		return nil, err
	}
	return s, nil
}

// WithClock overrides the clock for testing.
func (s *Store) WithClock(clock func() time.Time) *Store {
	s.clock = clock
	return s
}

// Mirror registers a sink that receives every emitted notification and every
// read-mark update. The archive upsert is idempotent on id, so re-mirroring
// after a read mark only refreshes read_by.
func (s *Store) Mirror(sink ArchiveSink) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sink = sink
	return s
}

func (s *Store) mirrorLocked(n Notification) {
	if s.sink == nil {
		return
	}
	if err := s.sink.Store(context.Background(), n); err != nil {
		s.logger.Error("notification archive failed",
			"notification_id", n.ID, "error", err)
	}
}

func (s *Store) replay() error {
	f, err := os.Open(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open notification store: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		var rec record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			return fmt.Errorf("notification store line %d: %w", line, err)
		}
		switch rec.Kind {
		case kindNotification:
			if rec.Notification == nil {
				return fmt.Errorf("notification store line %d: empty notification", line)
			}
			n := *rec.Notification
			s.byID[n.ID] = &n
			s.order = append(s.order, n.ID)
		case kindReadMarker:
			if n, ok := s.byID[rec.NotificationID]; ok {
				insertRole(&n.ReadBy, rec.Role)
			}
		default:
			return fmt.Errorf("notification store line %d: unknown kind %q", line, rec.Kind)
		}
	}
	return scanner.Err()
}

func (s *Store) appendRecord(rec record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal notification record: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
	if err != nil {
		return fmt.Errorf("open notification store: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("append notification record: %w", err)
	}
	return f.Sync()
}

// Emit formats and persists a notification from the named template.
func (s *Store) Emit(templateName, shipmentID string, context map[string]string, metadata map[string]any) (Notification, error) {
	tmpl, err := s.registry.Lookup(templateName)
	if err != nil {
		return Notification{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n := Notification{
		ID:           uuid.NewString(),
		Timestamp:    s.clock().UTC(),
		ShipmentID:   shipmentID,
		TemplateName: templateName,
		Message:      tmpl.Render(context),
		Severity:     tmpl.Severity,
		Recipients:   append([]lifecycle.Role(nil), tmpl.RecipientRoles...),
		Metadata:     metadata,
		ReadBy:       []lifecycle.Role{},
	}

	if err := s.appendRecord(record{Kind: kindNotification, Notification: &n, Timestamp: n.Timestamp}); err != nil {
		return Notification{}, err
	}

	stored := n
	s.byID[n.ID] = &stored
	s.order = append(s.order, n.ID)
	s.mirrorLocked(n)
	s.logger.Info("notification emitted",
		"template", templateName, "shipment_id", shipmentID, "severity", n.Severity)
	return n, nil
}

// ByRole returns notifications addressed to role, oldest first. With
// unreadOnly set, notifications the role has already read are skipped.
func (s *Store) ByRole(role lifecycle.Role, unreadOnly bool) []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Notification
	for _, id := range s.order {
		n := s.byID[id]
		if !containsRole(n.Recipients, role) {
			continue
		}
		if unreadOnly && containsRole(n.ReadBy, role) {
			continue
		}
		out = append(out, *n)
	}
	return out
}

// ByShipment returns notifications about one shipment, oldest first.
func (s *Store) ByShipment(shipmentID string) []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Notification
	for _, id := range s.order {
		if n := s.byID[id]; n.ShipmentID == shipmentID {
			out = append(out, *n)
		}
	}
	return out
}

// CountsBySeverity tallies all notifications by severity.
func (s *Store) CountsBySeverity() map[Severity]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[Severity]int)
	for _, id := range s.order {
		out[s.byID[id].Severity]++
	}
	return out
}

// MarkRead inserts role into the notification's read_by set. Only recipient
// roles may mark; repeated marks are idempotent and not re-persisted.
func (s *Store) MarkRead(notificationID string, role lifecycle.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.byID[notificationID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotificationMissing, notificationID)
	}
	if !containsRole(n.Recipients, role) {
		return fmt.Errorf("%w: %s on %s", ErrNotRecipient, role, notificationID)
	}
	if containsRole(n.ReadBy, role) {
		return nil
	}
	if err := s.appendRecord(record{
		Kind:           kindReadMarker,
		NotificationID: notificationID,
		Role:           role,
		Timestamp:      s.clock().UTC(),
	}); err != nil {
		return err
	}
	insertRole(&n.ReadBy, role)
	s.mirrorLocked(*n)
	return nil
}

func containsRole(roles []lifecycle.Role, role lifecycle.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func insertRole(roles *[]lifecycle.Role, role lifecycle.Role) {
	if !containsRole(*roles, role) {
		*roles = append(*roles, role)
	}
}
