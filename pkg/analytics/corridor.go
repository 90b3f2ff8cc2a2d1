package analytics

import (
	"sort"

	"github.com/YashMmodi-7504/National-Logistics-Control-Tower-sub000/pkg/projection"
)

// CorridorLevel grades a corridor's fused breach risk.
type CorridorLevel string

const (
	CorridorLow    CorridorLevel = "LOW"
	CorridorMedium CorridorLevel = "MEDIUM"
	CorridorHigh   CorridorLevel = "HIGH"
)

// CorridorHealth aggregates SLA breach scores across one corridor.
type CorridorHealth struct {
	Corridor      string        `json:"corridor"`
	ShipmentCount int           `json:"shipment_count"`
	AvgBreach     float64       `json:"avg_breach"`
	MaxBreach     float64       `json:"max_breach"`
	Fused         float64       `json:"fused"`
	Level         CorridorLevel `json:"level"`
}

// CorridorSLAHealth groups shipments by corridor and fuses their breach
// scores. The average captures the baseline, the max keeps a single bad
// shipment visible; 0.7/0.3 weighting.
func CorridorSLAHealth(rows map[string]*projection.ShipmentRow) []CorridorHealth {
	type agg struct {
		sum   float64
		max   float64
		count int
	}
	byCorridor := make(map[string]*agg)

	for _, row := range rows {
		if row.Corridor == "" {
			continue
		}
		report := PredictSLA(row)
		a, ok := byCorridor[row.Corridor]
		if !ok {
			a = &agg{}
			byCorridor[row.Corridor] = a
		}
		a.sum += report.BreachScore
		if report.BreachScore > a.max {
			a.max = report.BreachScore
		}
		a.count++
	}

	out := make([]CorridorHealth, 0, len(byCorridor))
	for corridor, a := range byCorridor {
		h := CorridorHealth{
			Corridor:      corridor,
			ShipmentCount: a.count,
			AvgBreach:     a.sum / float64(a.count),
			MaxBreach:     a.max,
		}
		h.Fused = 0.7*h.AvgBreach + 0.3*h.MaxBreach
		switch {
		case h.Fused >= 0.6:
			h.Level = CorridorHigh
		case h.Fused >= 0.3:
			h.Level = CorridorMedium
		default:
			h.Level = CorridorLow
		}
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Corridor < out[j].Corridor })
	return out
}
