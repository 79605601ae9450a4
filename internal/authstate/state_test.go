package authstate

import (
	"testing"

	identitydomain "github.com/smallbiznis/atrium/internal/identity/domain"
	profiledomain "github.com/smallbiznis/atrium/internal/profile/domain"
	"github.com/stretchr/testify/require"
)

func TestIsAuthenticatedNeedsBothSessionAndIdentity(t *testing.T) {
	var st State
	require.False(t, st.IsAuthenticated())

	st.Session = &identitydomain.Session{}
	require.False(t, st.IsAuthenticated(), "session alone is a transient state")

	st.Identity = &identitydomain.Identity{}
	require.True(t, st.IsAuthenticated())

	st.Session = nil
	require.False(t, st.IsAuthenticated())
}

func TestIsAdminPrefersRoleColumn(t *testing.T) {
	st := State{Profile: &profiledomain.Profile{Username: "carol", Role: profiledomain.RoleAdmin}}
	require.True(t, st.IsAdmin(""))
	require.Equal(t, profiledomain.RoleAdmin, st.UserRole(""))
}

func TestIsAdminUsernameFallback(t *testing.T) {
	st := State{Profile: &profiledomain.Profile{Username: "ada", Role: profiledomain.RoleUser}}

	require.True(t, st.IsAdmin("ada"))
	require.False(t, st.IsAdmin("someone-else"))
	require.False(t, st.IsAdmin(""), "empty bootstrap username disables the fallback")
}

func TestIsAdminWithoutProfile(t *testing.T) {
	var st State
	require.False(t, st.IsAdmin("ada"))
	require.Equal(t, profiledomain.RoleUser, st.UserRole("ada"))
}
