package analytics

import (
	"sort"

	"github.com/YashMmodi-7504/National-Logistics-Control-Tower-sub000/pkg/projection"
)

// HeatmapCell aggregates risk per source state.
type HeatmapCell struct {
	SourceState   string  `json:"source_state"`
	ShipmentCount int     `json:"shipment_count"`
	AvgRisk       float64 `json:"avg_risk"`
}

// BuildHeatmap aggregates shipments by source state using the SLA breach
// score scaled to 0..100 as the per-shipment risk. Shipments without a
// resolved source state are excluded.
func BuildHeatmap(rows map[string]*projection.ShipmentRow) []HeatmapCell {
	type agg struct {
		sum   float64
		count int
	}
	byState := make(map[string]*agg)

	for _, row := range rows {
		if row.SourceState == "" {
			continue
		}
		a, ok := byState[row.SourceState]
		if !ok {
			a = &agg{}
			byState[row.SourceState] = a
		}
		a.sum += PredictSLA(row).BreachScore * 100
		a.count++
	}

	out := make([]HeatmapCell, 0, len(byState))
	for state, a := range byState {
		out = append(out, HeatmapCell{
			SourceState:   state,
			ShipmentCount: a.count,
			AvgRisk:       a.sum / float64(a.count),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SourceState < out[j].SourceState })
	return out
}
