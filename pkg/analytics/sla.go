// Package analytics derives SLA, corridor health, fused risk, heatmap, and
// alert read models. Every engine consumes projector output only; none reads
// the event log directly.
package analytics

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/YashMmodi-7504/National-Logistics-Control-Tower-sub000/pkg/projection"
)

// SLALevel buckets a shipment's SLA utilization.
type SLALevel string

const (
	SLALow    SLALevel = "LOW"
	SLAMedium SLALevel = "MEDIUM"
	SLAHigh   SLALevel = "HIGH"
)

// SLAReport is the per-shipment breach prediction.
type SLAReport struct {
	ShipmentID   string   `json:"shipment_id"`
	Corridor     string   `json:"corridor,omitempty"`
	HoursElapsed float64  `json:"hours_elapsed"`
	ETAHours     float64  `json:"eta_hours"`
	Utilization  float64  `json:"sla_utilization"`
	Level        SLALevel `json:"level"`
	BreachScore  float64  `json:"breach_score"`
}

// PredictSLA computes the breach prediction for one shipment from its
// ordered history. ETA is a heuristic over event count; utilization is
// clamped at 1.5 so one stuck shipment cannot dominate corridor averages.
func PredictSLA(row *projection.ShipmentRow) SLAReport {
	report := SLAReport{ShipmentID: row.ShipmentID, Corridor: row.Corridor}

	k := len(row.History)
	if k == 0 {
		report.ETAHours = 8
		report.Level = SLALow
		report.BreachScore = 0.1
		return report
	}

	first := row.History[0].Timestamp
	last := row.History[k-1].Timestamp
	report.HoursElapsed = last.Sub(first).Hours()
	report.ETAHours = math.Max(8, 2.2*math.Pow(float64(k), 1.3))
	report.Utilization = math.Min(report.HoursElapsed/report.ETAHours, 1.5)

	switch {
	case report.Utilization < 0.6:
		report.Level = SLALow
		report.BreachScore = 0.1
	case report.Utilization < 0.85:
		report.Level = SLAMedium
		report.BreachScore = 0.4
	default:
		report.Level = SLAHigh
		report.BreachScore = 0.8
	}
	return report
}

// PredictAll runs the prediction over a full read model.
func PredictAll(rows map[string]*projection.ShipmentRow) map[string]SLAReport {
	out := make(map[string]SLAReport, len(rows))
	for id, row := range rows {
		out[id] = PredictSLA(row)
	}
	return out
}

// ParseTimestamp accepts the timestamp shapes found in snapshot payloads and
// raw event metadata: time.Time, numeric epoch seconds, ISO 8601 with or
// without a zone. Naive timestamps are taken as UTC.
func ParseTimestamp(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case float64:
		sec := int64(t)
		nsec := int64((t - float64(sec)) * float64(time.Second))
		return time.Unix(sec, nsec).UTC(), nil
	case int:
		return time.Unix(int64(t), 0).UTC(), nil
	case int64:
		return time.Unix(t, 0).UTC(), nil
	case string:
		if epoch, err := strconv.ParseFloat(t, 64); err == nil {
			return ParseTimestamp(epoch)
		}
		for _, layout := range []string{
			time.RFC3339Nano,
			time.RFC3339,
			"2006-01-02T15:04:05.999999999",
			"2006-01-02T15:04:05",
			"2006-01-02 15:04:05",
		} {
			if ts, err := time.Parse(layout, t); err == nil {
				return ts.UTC(), nil
			}
		}
		return time.Time{}, fmt.Errorf("unparseable timestamp %q", t)
	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp type %T", v)
	}
}
