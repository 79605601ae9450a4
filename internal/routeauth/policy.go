// Package routeauth decides what a request may do with a route based on
// the current authentication snapshot and a hot-reloadable route policy.
package routeauth

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Class is the protection level of a route.
type Class string

const (
	// ClassOpen routes render for everyone, even while state is loading.
	ClassOpen Class = "OPEN"

	// ClassPublicOnly routes are for signed-out visitors; an authenticated
	// subject is sent home instead.
	ClassPublicOnly Class = "PUBLIC_ONLY"

	ClassAuthenticated Class = "AUTHENTICATED_REQUIRED"
	ClassAdmin         Class = "ADMIN_REQUIRED"
)

// Rule binds a path prefix to a class. The longest matching prefix wins.
type Rule struct {
	Prefix string `mapstructure:"prefix" json:"prefix"`
	Class  Class  `mapstructure:"class" json:"class"`
}

// Policy is the full route table.
type Policy struct {
	Rules []Rule `mapstructure:"rules" json:"rules"`
}

// DefaultPolicy covers the stock dashboard layout.
func DefaultPolicy() Policy {
	return Policy{Rules: []Rule{
		{Prefix: "/", Class: ClassOpen},
		{Prefix: "/login", Class: ClassPublicOnly},
		{Prefix: "/register", Class: ClassPublicOnly},
		{Prefix: "/forgot-password", Class: ClassPublicOnly},
		{Prefix: "/dashboard", Class: ClassAuthenticated},
		{Prefix: "/profile", Class: ClassAuthenticated},
		{Prefix: "/admin", Class: ClassAdmin},
		{Prefix: "/v1/admin", Class: ClassAdmin},
	}}
}

// ClassFor resolves the class for path. Paths matched by no rule default
// to AUTHENTICATED_REQUIRED, never to open access.
func (p Policy) ClassFor(path string) Class {
	best := -1
	class := ClassAuthenticated
	for _, r := range p.Rules {
		if !prefixMatch(r.Prefix, path) {
			continue
		}
		if len(r.Prefix) > best {
			best = len(r.Prefix)
			class = r.Class
		}
	}
	return class
}

// prefixMatch treats prefixes as path segments: "/admin" matches "/admin"
// and "/admin/users" but not "/administrator". "/" matches only itself.
func prefixMatch(prefix, path string) bool {
	if prefix == "/" {
		return path == "/"
	}
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

// PolicyHolder serves the current policy and swaps it atomically when the
// backing file changes.
type PolicyHolder struct {
	current atomic.Value // holds Policy
}

// NewPolicyHolder loads the route policy from explicitPath when given,
// otherwise from the usual config locations, falling back to the default
// table when no file exists. The file is watched and reloaded in place;
// an invalid update is ignored and the previous policy stays active.
func NewPolicyHolder(explicitPath string) (*PolicyHolder, error) {
	v := viper.New()

	if explicitPath != "" {
		v.SetConfigFile(explicitPath)
	} else {
		v.SetConfigName("routes")
		v.SetConfigType("yml")
		v.AddConfigPath("/var/lib/atrium/config")
		v.AddConfigPath("/etc/atrium")
		v.AddConfigPath(".")
	}

	holder := &PolicyHolder{}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && explicitPath != "" {
			return nil, err
		}
		holder.current.Store(DefaultPolicy())
		return holder, nil
	}

	var policy Policy
	if err := v.UnmarshalKey("routes", &policy); err != nil {
		return nil, err
	}
	if err := validatePolicy(policy); err != nil {
		return nil, err
	}
	holder.current.Store(policy)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated Policy
		if err := v.UnmarshalKey("routes", &updated); err != nil {
			log.Printf("[route-policy] reload failed: %v", err)
			return
		}
		if err := validatePolicy(updated); err != nil {
			log.Printf("[route-policy] invalid policy ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[route-policy] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticHolder wraps a fixed policy, mainly for tests and defaults.
func NewStaticHolder(policy Policy) *PolicyHolder {
	holder := &PolicyHolder{}
	holder.current.Store(policy)
	return holder
}

func (h *PolicyHolder) Get() Policy {
	return h.current.Load().(Policy)
}

func validatePolicy(policy Policy) error {
	if len(policy.Rules) == 0 {
		return errors.New("routes.rules cannot be empty")
	}
	for _, r := range policy.Rules {
		if !strings.HasPrefix(r.Prefix, "/") {
			return fmt.Errorf("routes: prefix %q must start with /", r.Prefix)
		}
		switch r.Class {
		case ClassOpen, ClassPublicOnly, ClassAuthenticated, ClassAdmin:
		default:
			return fmt.Errorf("routes: unknown class %q for prefix %q", r.Class, r.Prefix)
		}
	}
	return nil
}
