package lifecycle

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition is returned when the edge table has no edge
	// from the current state to the requested one.
	ErrInvalidTransition = errors.New("invalid lifecycle transition")

	// ErrUnknownCurrentState is returned when the current state is not a
	// node of the lifecycle graph.
	ErrUnknownCurrentState = errors.New("unknown current state")

	// ErrRoleUnauthorized is returned when the acting role is not in the
	// authority set for the event type.
	ErrRoleUnauthorized = errors.New("role unauthorized for transition")
)

// ValidateTransition checks that the edge from -> to exists.
func ValidateTransition(from, to State) error {
	successors, ok := transitions[from]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCurrentState, from)
	}
	for _, s := range successors {
		if s == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

// ValidateRoleAuthority checks that role may emit eventType while the
// shipment is in fromState. METADATA_UPDATED is permitted from any
// non-terminal state; every other event type must be emitted by a role in its
// authority set.
func ValidateRoleAuthority(role Role, fromState State, eventType EventType) error {
	if !KnownState(fromState) {
		return fmt.Errorf("%w: %q", ErrUnknownCurrentState, fromState)
	}
	if eventType == EventMetadataUpdated && IsTerminal(fromState) {
		return fmt.Errorf("%w: metadata update on terminal state %s", ErrInvalidTransition, fromState)
	}
	allowed, ok := eventAuthority[eventType]
	if !ok {
		return fmt.Errorf("%w: unknown event type %q", ErrRoleUnauthorized, eventType)
	}
	for _, r := range allowed {
		if r == role {
			return nil
		}
	}
	return fmt.Errorf("%w: %s may not emit %s from %s", ErrRoleUnauthorized, role, eventType, fromState)
}
