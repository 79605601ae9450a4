package routeauth

import (
	"sync"

	"github.com/smallbiznis/atrium/internal/observability/metrics"
)

// Action is what the caller should do with the request.
type Action string

const (
	ActionAllow           Action = "ALLOW"
	ActionShowLoading     Action = "SHOW_LOADING"
	ActionRedirectToLogin Action = "REDIRECT_TO_LOGIN"
	ActionRedirectToHome  Action = "REDIRECT_TO_HOME"
	ActionShowForbidden   Action = "SHOW_FORBIDDEN"
)

// Decision is the outcome for one request. Target is set only for
// redirect actions.
type Decision struct {
	Action Action `json:"action"`
	Target string `json:"target,omitempty"`
}

// Subject is the authentication facts a decision depends on. Derived
// once per request from the controller snapshot.
type Subject struct {
	Loading       bool
	Authenticated bool
	Admin         bool
}

// Authorizer evaluates the route policy against a subject. It also keeps
// the intended path of the most recent login redirect so the destination
// survives the round trip through the login flow.
type Authorizer struct {
	holder  *PolicyHolder
	metrics *metrics.AuthMetrics

	homePath  string
	loginPath string

	mu       sync.Mutex
	intended string
}

// New builds an authorizer over holder. homePath and loginPath are the
// redirect targets for the authenticated and unauthenticated cases.
func New(holder *PolicyHolder, m *metrics.AuthMetrics, homePath, loginPath string) *Authorizer {
	return &Authorizer{
		holder:    holder,
		metrics:   m,
		homePath:  homePath,
		loginPath: loginPath,
	}
}

// Authorize decides what to do with a request for path. While the
// subject is loading, guarded routes hold the request instead of
// guessing; open routes never wait.
func (a *Authorizer) Authorize(path string, subject Subject) Decision {
	decision := a.decide(path, subject)
	a.metrics.RecordGuardDecision(string(decision.Action))
	return decision
}

func (a *Authorizer) decide(path string, subject Subject) Decision {
	class := a.holder.Get().ClassFor(path)

	if class == ClassOpen {
		return Decision{Action: ActionAllow}
	}
	if subject.Loading {
		return Decision{Action: ActionShowLoading}
	}

	switch class {
	case ClassPublicOnly:
		if subject.Authenticated {
			return Decision{Action: ActionRedirectToHome, Target: a.homePath}
		}
		return Decision{Action: ActionAllow}

	case ClassAdmin:
		if !subject.Authenticated {
			a.stashIntended(path)
			return Decision{Action: ActionRedirectToLogin, Target: a.loginPath}
		}
		if !subject.Admin {
			return Decision{Action: ActionShowForbidden}
		}
		return Decision{Action: ActionAllow}

	default: // AUTHENTICATED_REQUIRED
		if !subject.Authenticated {
			a.stashIntended(path)
			return Decision{Action: ActionRedirectToLogin, Target: a.loginPath}
		}
		return Decision{Action: ActionAllow}
	}
}

func (a *Authorizer) stashIntended(path string) {
	a.mu.Lock()
	a.intended = path
	a.mu.Unlock()
}

// ConsumeIntendedPath returns the stashed destination of the last login
// redirect and clears it. A second call returns the home path: the stash
// is spent by the first successful login, not replayed.
func (a *Authorizer) ConsumeIntendedPath() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.intended == "" {
		return a.homePath
	}
	path := a.intended
	a.intended = ""
	return path
}
