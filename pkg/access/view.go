package access

import (
	"context"
	"log/slog"
	"sort"

	"github.com/YashMmodi-7504/National-Logistics-Control-Tower-sub000/pkg/lifecycle"
	"github.com/YashMmodi-7504/National-Logistics-Control-Tower-sub000/pkg/projection"
)

// DenialSink receives one record per denied shipment. The audit denial store
// satisfies this.
type DenialSink interface {
	Record(ctx context.Context, role lifecycle.Role, shipmentID string, reason DenialReason) error
}

// ScopedView filters read-model rows through the guard, recording every
// denial. Denied rows are dropped from the result, never redacted in place.
type ScopedView struct {
	sink   DenialSink
	logger *slog.Logger
}

// NewScopedView builds a view. sink may be nil when denial recording is not
// wanted, such as in ad hoc tooling.
func NewScopedView(sink DenialSink) *ScopedView {
	return &ScopedView{
		sink:   sink,
		logger: slog.Default().With("component", "scoped-view"),
	}
}

// Visible returns the rows the role may see given its allowed regions,
// sorted by shipment id, recording a denial for each row it drops.
func (v *ScopedView) Visible(ctx context.Context, role lifecycle.Role, rows map[string]*projection.ShipmentRow, allowedRegions []string) []*projection.ShipmentRow {
	ids := make([]string, 0, len(rows))
	for id := range rows {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	visible := make([]*projection.ShipmentRow, 0, len(rows))
	for _, id := range ids {
		row := rows[id]
		ok, reason := Check(role, row, allowedRegions)
		if ok {
			visible = append(visible, row)
			continue
		}
		if v.sink != nil {
			if err := v.sink.Record(ctx, role, row.ShipmentID, reason); err != nil {
				v.logger.Error("denial record failed", "shipment", row.ShipmentID, "error", err)
			}
		}
	}
	return visible
}
