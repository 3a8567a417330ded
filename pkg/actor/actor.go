// Package actor identifies the user or system performing a stock operation.
// Identity is supplied by the upstream identity collaborator and trusted as-is.
package actor

import (
	"fmt"
)

// SystemID identifies background work such as the alert scheduler
const SystemID = "system"

// Actor represents the entity performing an action in the system.
type Actor struct {
	// ID is the identity provider's user identifier
	ID string `json:"id"`

	// Name is recorded on ledger entries as the responsible person
	Name string `json:"name"`

	// Role is informational only; the core performs no authorization
	Role string `json:"role,omitempty"`
}

// String returns a string representation of the actor for logging
func (a Actor) String() string {
	if a.IsSystem() {
		return "system"
	}
	if a.Name == "" {
		return a.ID
	}
	return fmt.Sprintf("%s (%s)", a.Name, a.ID)
}

// DisplayName returns the name, falling back to the ID
func (a Actor) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	return a.ID
}

// System returns an Actor representing the system itself.
// Use this for background jobs, scheduled tasks, and system-initiated operations.
func System() Actor {
	return Actor{ID: SystemID, Name: "System"}
}

// IsSystem returns true if the actor represents the system.
func (a Actor) IsSystem() bool {
	return a.ID == "" || a.ID == SystemID
}
