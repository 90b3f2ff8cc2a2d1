// Package access implements the Geo-RBAC guard: a pure, deterministic
// decision function combining role scope and shipment geography.
//
// Denials expose a reason code only; shipment content never leaves the guard.
package access

import (
	"github.com/YashMmodi-7504/National-Logistics-Control-Tower-sub000/pkg/lifecycle"
	"github.com/YashMmodi-7504/National-Logistics-Control-Tower-sub000/pkg/projection"
)

// DenialReason is a closed enum of access denial codes.
type DenialReason string

const (
	DenialNone             DenialReason = ""
	DenialRoleUnknown      DenialReason = "ROLE_UNKNOWN"
	DenialRegionListEmpty  DenialReason = "REGION_LIST_EMPTY"
	DenialMissingGeoData   DenialReason = "MISSING_GEO_DATA"
	DenialGeoScopeMismatch DenialReason = "GEO_SCOPE_MISMATCH"
	DenialScopeUnknown     DenialReason = "SCOPE_UNKNOWN"
)

// Check decides whether role may see the shipment given its allowed regions.
// Pure function: no I/O, no mutation, stable for identical inputs.
func Check(role lifecycle.Role, row *projection.ShipmentRow, allowedRegions []string) (bool, DenialReason) {
	switch role {
	case lifecycle.RoleSystem, lifecycle.RoleCOO:
		return true, DenialNone
	case lifecycle.RoleViewer:
		// Read-only, unrestricted.
		return true, DenialNone
	}

	scope, ok := lifecycle.ScopeFor(role)
	if !ok {
		return false, DenialRoleUnknown
	}

	switch scope {
	case lifecycle.ScopeGlobal:
		return true, DenialNone
	case lifecycle.ScopeSourceState:
		return checkRegion(row.SourceState, allowedRegions)
	case lifecycle.ScopeDestinationState:
		return checkRegion(row.DestinationState, allowedRegions)
	case lifecycle.ScopeCorridor:
		return checkRegion(row.Corridor, allowedRegions)
	default:
		return false, DenialScopeUnknown
	}
}

func checkRegion(value string, allowedRegions []string) (bool, DenialReason) {
	if len(allowedRegions) == 0 {
		return false, DenialRegionListEmpty
	}
	if value == "" {
		return false, DenialMissingGeoData
	}
	for _, region := range allowedRegions {
		if region == value {
			return true, DenialNone
		}
	}
	return false, DenialGeoScopeMismatch
}
