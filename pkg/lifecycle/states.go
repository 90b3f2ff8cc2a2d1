// Package lifecycle declares the shipment lifecycle state machine and the
// role policy tables that guard it.
//
// The transition table is the single source of truth for which state changes
// are legal; the authority table decides which roles may emit them. Both are
// pure, declarative data; no I/O happens in this package.
package lifecycle

// State is a node in the shipment lifecycle graph.
type State string

const (
	StateNone                 State = "NONE"
	StateCreated              State = "CREATED"
	StateManagerApproved      State = "MANAGER_APPROVED"
	StateManagerOnHold        State = "MANAGER_ON_HOLD"
	StateHoldForReview        State = "HOLD_FOR_REVIEW"
	StateOverrideApplied      State = "OVERRIDE_APPLIED"
	StateSupervisorApproved   State = "SUPERVISOR_APPROVED"
	StateInTransit            State = "IN_TRANSIT"
	StateReceiverAcknowledged State = "RECEIVER_ACKNOWLEDGED"
	StateWarehouseIntake      State = "WAREHOUSE_INTAKE"
	StateOutForDelivery       State = "OUT_FOR_DELIVERY"
	StateDeliveryFailed       State = "DELIVERY_FAILED"
	StateDelivered            State = "DELIVERED"
	StateCancelled            State = "CANCELLED"
	StateLifecycleClosed      State = "LIFECYCLE_CLOSED"
)

// EventType categorizes an event appended to the log. Most event types mirror
// the state they move a shipment into; METADATA_UPDATED is the exception and
// carries no lifecycle effect.
type EventType string

const (
	EventShipmentCreated      EventType = "SHIPMENT_CREATED"
	EventManagerApproved      EventType = "MANAGER_APPROVED"
	EventManagerOnHold        EventType = "MANAGER_ON_HOLD"
	EventHoldForReview        EventType = "HOLD_FOR_REVIEW"
	EventOverrideApplied      EventType = "OVERRIDE_APPLIED"
	EventSupervisorApproved   EventType = "SUPERVISOR_APPROVED"
	EventInTransit            EventType = "IN_TRANSIT"
	EventReceiverAcknowledged EventType = "RECEIVER_ACKNOWLEDGED"
	EventWarehouseIntake      EventType = "WAREHOUSE_INTAKE"
	EventOutForDelivery       EventType = "OUT_FOR_DELIVERY"
	EventDeliveryFailed       EventType = "DELIVERY_FAILED"
	EventDelivered            EventType = "DELIVERED"
	EventCancelled            EventType = "CANCELLED"
	EventLifecycleClosed      EventType = "LIFECYCLE_CLOSED"
	EventMetadataUpdated      EventType = "METADATA_UPDATED"
)

// Role identifies an actor in the control tower.
type Role string

const (
	RoleSender           Role = "SENDER"
	RoleSenderManager    Role = "SENDER_MANAGER"
	RoleSenderSupervisor Role = "SENDER_SUPERVISOR"
	RoleReceiverManager  Role = "RECEIVER_MANAGER"
	RoleWarehouseManager Role = "WAREHOUSE_MANAGER"
	RoleViewer           Role = "VIEWER"
	RoleCOO              Role = "COO"
	RoleSystem           Role = "SYSTEM"
	RoleRegulator        Role = "REGULATOR"
)

// Scope is the geographic reach of a role under Geo-RBAC.
type Scope string

const (
	ScopeSourceState      Scope = "SOURCE_STATE"
	ScopeDestinationState Scope = "DESTINATION_STATE"
	ScopeCorridor         Scope = "CORRIDOR"
	ScopeGlobal           Scope = "GLOBAL"
	ScopeSnapshotOnly     Scope = "SNAPSHOT_ONLY"
)

// transitions is the lifecycle edge table. OVERRIDE_APPLIED is reconciled as
// a proper node: it is reachable only from HOLD_FOR_REVIEW and its successors
// are MANAGER_APPROVED and CANCELLED.
var transitions = map[State][]State{
	StateNone:    {StateCreated},
	StateCreated: {StateManagerApproved, StateManagerOnHold, StateHoldForReview, StateCancelled},
	StateManagerOnHold: {
		StateManagerApproved, StateCreated, StateCancelled,
	},
	StateHoldForReview: {
		StateManagerApproved, StateCreated, StateOverrideApplied, StateCancelled,
	},
	StateOverrideApplied: {StateManagerApproved, StateCancelled},
	StateManagerApproved: {
		StateSupervisorApproved, StateHoldForReview, StateCancelled,
	},
	StateSupervisorApproved: {
		StateInTransit, StateHoldForReview, StateCancelled,
	},
	StateInTransit: {
		StateReceiverAcknowledged, StateHoldForReview, StateCancelled,
	},
	StateReceiverAcknowledged: {StateWarehouseIntake, StateHoldForReview},
	StateWarehouseIntake:      {StateOutForDelivery, StateHoldForReview},
	StateOutForDelivery: {
		StateDeliveryFailed, StateDelivered, StateHoldForReview, StateCancelled,
	},
	StateDeliveryFailed: {StateOutForDelivery, StateCancelled},
	StateDelivered:      {StateLifecycleClosed},
	StateCancelled:      {},
	StateLifecycleClosed: {},
}

// roleScopes binds each role to its Geo-RBAC scope.
var roleScopes = map[Role]Scope{
	RoleSenderManager:    ScopeSourceState,
	RoleSenderSupervisor: ScopeSourceState,
	RoleReceiverManager:  ScopeDestinationState,
	RoleWarehouseManager: ScopeDestinationState,
	RoleViewer:           ScopeCorridor,
	RoleCOO:              ScopeGlobal,
	RoleSystem:           ScopeGlobal,
	RoleRegulator:        ScopeSnapshotOnly,
}

// eventAuthority lists the roles permitted to emit each event type.
var eventAuthority = map[EventType][]Role{
	EventShipmentCreated:      {RoleSender, RoleSenderManager, RoleSystem},
	EventManagerApproved:      {RoleSenderManager, RoleCOO, RoleSystem},
	EventManagerOnHold:        {RoleSenderManager, RoleCOO, RoleSystem},
	EventHoldForReview:        {RoleSenderManager, RoleSenderSupervisor, RoleCOO, RoleSystem},
	EventOverrideApplied:      {RoleCOO, RoleSystem},
	EventSupervisorApproved:   {RoleSenderSupervisor, RoleCOO, RoleSystem},
	EventInTransit:            {RoleSenderSupervisor, RoleSystem},
	EventReceiverAcknowledged: {RoleReceiverManager, RoleSystem},
	EventWarehouseIntake:      {RoleWarehouseManager, RoleSystem},
	EventOutForDelivery:       {RoleWarehouseManager, RoleSystem},
	EventDeliveryFailed:       {RoleWarehouseManager, RoleSystem},
	EventDelivered:            {RoleWarehouseManager, RoleReceiverManager, RoleSystem},
	EventCancelled:            {RoleSenderManager, RoleCOO, RoleSystem},
	EventLifecycleClosed:      {RoleCOO, RoleSystem},
	EventMetadataUpdated: {
		RoleSenderManager, RoleReceiverManager, RoleWarehouseManager, RoleCOO, RoleSystem,
	},
}

// IsTerminal reports whether no transition leads out of s.
func IsTerminal(s State) bool {
	return s == StateCancelled || s == StateLifecycleClosed
}

// KnownState reports whether s appears in the transition table.
func KnownState(s State) bool {
	_, ok := transitions[s]
	return ok
}

// ScopeFor returns the Geo-RBAC scope of a role. The second return value is
// false for unknown roles.
func ScopeFor(role Role) (Scope, bool) {
	s, ok := roleScopes[role]
	return s, ok
}

// AllStates returns every declared lifecycle state.
func AllStates() []State {
	out := make([]State, 0, len(transitions))
	for s := range transitions {
		out = append(out, s)
	}
	return out
}
