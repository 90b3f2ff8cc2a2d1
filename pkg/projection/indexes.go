package projection

import "sort"

// Indexes are the derived lookup tables over shipment rows. Values are sorted
// shipment ids so index construction is deterministic.
type Indexes struct {
	ByState            map[string][]string `json:"by_state"`
	BySourceState      map[string][]string `json:"by_source_state"`
	ByCorridor         map[string][]string `json:"by_corridor"`
	ByDestinationState map[string][]string `json:"by_destination_state"`
}

// BuildIndexes derives the lookup tables from rows.
func BuildIndexes(rows map[string]*ShipmentRow) Indexes {
	idx := Indexes{
		ByState:            make(map[string][]string),
		BySourceState:      make(map[string][]string),
		ByCorridor:         make(map[string][]string),
		ByDestinationState: make(map[string][]string),
	}

	for id, row := range rows {
		idx.ByState[string(row.CurrentState)] = append(idx.ByState[string(row.CurrentState)], id)
		if row.SourceState != "" {
			idx.BySourceState[row.SourceState] = append(idx.BySourceState[row.SourceState], id)
		}
		if row.DestinationState != "" {
			idx.ByDestinationState[row.DestinationState] = append(idx.ByDestinationState[row.DestinationState], id)
		}
		if row.Corridor != "" {
			idx.ByCorridor[row.Corridor] = append(idx.ByCorridor[row.Corridor], id)
		}
	}

	for _, m := range []map[string][]string{idx.ByState, idx.BySourceState, idx.ByCorridor, idx.ByDestinationState} {
		for k := range m {
			sort.Strings(m[k])
		}
	}
	return idx
}
