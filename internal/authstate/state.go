// Package authstate owns the canonical in-memory authentication state and
// the only code path allowed to mutate it.
package authstate

import (
	"strings"

	"github.com/smallbiznis/atrium/internal/fault"
	identitydomain "github.com/smallbiznis/atrium/internal/identity/domain"
	profiledomain "github.com/smallbiznis/atrium/internal/profile/domain"
)

// State is the central auth value object. Zero value is "initializing":
// nothing resolved yet, loading set by the controller constructor.
type State struct {
	Identity *identitydomain.Identity `json:"identity,omitempty"`
	Profile  *profiledomain.Profile   `json:"profile,omitempty"`
	Session  *identitydomain.Session  `json:"session,omitempty"`
	Loading  bool                     `json:"loading"`
	Err      *fault.Error             `json:"error,omitempty"`
}

// IsAuthenticated holds iff both session and identity are present. A
// session without a resolved identity is a valid transient state, not an
// authenticated one.
func (s State) IsAuthenticated() bool {
	return s.Session != nil && s.Identity != nil
}

// IsAdmin derives the admin marker from the profile's role. The username
// comparison against the bootstrap admin username exists only for rows
// created before the role column and will be removed once none remain.
func (s State) IsAdmin(bootstrapAdminUsername string) bool {
	if s.Profile == nil {
		return false
	}
	if s.Profile.Role == profiledomain.RoleAdmin {
		return true
	}
	name := strings.TrimSpace(bootstrapAdminUsername)
	return name != "" && s.Profile.Username == name
}

// UserRole reports the effective role for the current state.
func (s State) UserRole(bootstrapAdminUsername string) profiledomain.Role {
	if s.IsAdmin(bootstrapAdminUsername) {
		return profiledomain.RoleAdmin
	}
	return profiledomain.RoleUser
}

// Snapshot is a point-in-time copy of the state with its derived values.
// Derived values are recomputed on every call, never cached.
type Snapshot struct {
	State

	Authenticated bool               `json:"authenticated"`
	Admin         bool               `json:"admin"`
	Role          profiledomain.Role `json:"role"`
}
