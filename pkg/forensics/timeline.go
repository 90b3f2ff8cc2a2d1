package forensics

import (
	"fmt"
	"sort"
	"time"

	"github.com/YashMmodi-7504/National-Logistics-Control-Tower-sub000/pkg/integrity"
)

// TimelineEntry is one line of an incident timeline.
type TimelineEntry struct {
	Timestamp   time.Time `json:"timestamp"`
	Snapshot    string    `json:"snapshot"`
	EventType   string    `json:"event_type"`
	Description string    `json:"description"`
	Severity    string    `json:"severity"`
	Details     string    `json:"details,omitempty"`
}

// Timeline builds an ordered incident timeline over the named snapshots. Each
// snapshot contributes a creation entry and an integrity entry; tampered or
// missing snapshots surface with their violation details.
func (r *Replayer) Timeline(names []string) []TimelineEntry {
	var entries []TimelineEntry

	for _, name := range names {
		report := r.detector.Detect(name)

		if meta, err := r.engine.Store().ReadMetadata(name); err == nil {
			entries = append(entries, TimelineEntry{
				Timestamp:   epochToTime(meta.Timestamp),
				Snapshot:    name,
				EventType:   "SNAPSHOT_CREATED",
				Description: fmt.Sprintf("snapshot %s frozen at sequence %d", name, meta.Sequence),
				Severity:    "INFO",
			})
		}

		severity := "INFO"
		description := fmt.Sprintf("snapshot %s verified intact", name)
		if report.Status != integrity.StatusIntact {
			severity = string(report.Severity)
			description = fmt.Sprintf("snapshot %s integrity check: %s", name, report.Status)
		}
		entries = append(entries, TimelineEntry{
			Timestamp:   r.clock().UTC(),
			Snapshot:    name,
			EventType:   "INTEGRITY_CHECK",
			Description: description,
			Severity:    severity,
			Details:     report.Details,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})
	return entries
}
