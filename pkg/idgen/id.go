// Package idgen allocates instance identifiers for HypervisorConfig.
package idgen

import "github.com/google/uuid"

// New returns a fresh UUIDv4 string, used when HypervisorConfig.ID is
// absent at construction time (spec §3).
func New() string {
	return uuid.NewString()
}
