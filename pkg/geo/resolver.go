// Package geo resolves raw origin/destination strings into structured
// geographic data used for corridor derivation and Geo-RBAC scoping.
//
// Resolution never fails hard: an unrecognized location yields a
// zero-confidence Resolution so event emission degrades instead of aborting.
package geo

import "context"

// Resolution is the structured result for a raw location string.
type Resolution struct {
	State      string  `json:"state"`
	City       string  `json:"city"`
	StateCode  string  `json:"state_code"`
	Confidence float64 `json:"confidence"`
}

// Resolved reports whether the resolution carries a usable state.
func (r Resolution) Resolved() bool {
	return r.State != "" && r.Confidence > 0
}

// Resolver maps a raw location string to a Resolution.
type Resolver interface {
	Resolve(ctx context.Context, raw string) (Resolution, error)
}
