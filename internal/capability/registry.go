package capability

import (
	"fmt"
	"path"
	"sort"

	"identity-mcp/pkg/logging"
	"identity-mcp/pkg/oauth"
)

// Filter is deployment policy applied to the catalog. The zero value allows
// everything.
type Filter struct {
	// AllowedNames restricts the catalog to these names. Entries may be
	// path.Match patterns. Names not in the catalog are ignored. Empty means
	// no restriction.
	AllowedNames []string
	// ReadOnlyOnly drops every capability with ReadOnly=false.
	ReadOnlyOnly bool
}

// check reports whether the filter admits c and, if not, why.
func (f Filter) check(c *Capability) (bool, string) {
	if f.ReadOnlyOnly && !c.ReadOnly {
		return false, "the server is running in read-only mode"
	}
	if len(f.AllowedNames) == 0 {
		return true, ""
	}
	for _, pattern := range f.AllowedNames {
		if pattern == c.Name {
			return true, ""
		}
		if ok, err := path.Match(pattern, c.Name); err == nil && ok {
			return true, ""
		}
	}
	return false, "it is not in the configured tool allow-list"
}

// Registry is the immutable capability catalog.
type Registry struct {
	caps   []Capability
	byName map[string]int
}

// NewRegistry validates caps and compiles their input schemas. Catalog order
// is preserved by List.
func NewRegistry(caps []Capability) (*Registry, error) {
	r := &Registry{
		caps:   make([]Capability, 0, len(caps)),
		byName: make(map[string]int, len(caps)),
	}

	for _, c := range caps {
		if c.Name == "" {
			return nil, fmt.Errorf("capability with empty name")
		}
		if _, dup := r.byName[c.Name]; dup {
			return nil, fmt.Errorf("duplicate capability %q", c.Name)
		}
		if c.Handler == nil {
			return nil, fmt.Errorf("capability %q has no handler", c.Name)
		}
		if err := c.compileSchema(); err != nil {
			return nil, fmt.Errorf("capability %q: %w", c.Name, err)
		}
		c.RequiredScopes = append([]string(nil), c.RequiredScopes...)
		r.byName[c.Name] = len(r.caps)
		r.caps = append(r.caps, c)
	}

	logging.Debug("CapabilityRegistry", "Registered %d capabilities", len(r.caps))
	return r, nil
}

// Len returns the catalog size.
func (r *Registry) Len() int {
	return len(r.caps)
}

// List returns the capabilities admitted by f, in catalog order.
func (r *Registry) List(f Filter) []Capability {
	out := make([]Capability, 0, len(r.caps))
	for i := range r.caps {
		if ok, _ := f.check(&r.caps[i]); ok {
			out = append(out, r.caps[i])
		}
	}
	return out
}

// Resolve looks a capability up by exact name, ignoring any filter.
func (r *Registry) Resolve(name string) (Capability, error) {
	idx, ok := r.byName[name]
	if !ok {
		return Capability{}, &NotFoundError{Name: name}
	}
	return r.caps[idx], nil
}

// RequiredScopes returns the sorted union of every capability's scopes.
func (r *Registry) RequiredScopes() []string {
	var lists [][]string
	for _, c := range r.caps {
		lists = append(lists, c.RequiredScopes)
	}
	scopes := oauth.MergeScopes(lists...)
	sort.Strings(scopes)
	return scopes
}

// View returns the projection of the registry visible to a caller holding
// the granted scopes under policy f.
func (r *Registry) View(f Filter, granted []string) *View {
	return &View{
		registry: r,
		filter:   f,
		granted:  append([]string(nil), granted...),
	}
}

// View is a registry narrowed by policy and by a credential's grant.
type View struct {
	registry *Registry
	filter   Filter
	granted  []string
}

// List returns every capability the caller may see and invoke.
func (v *View) List() []Capability {
	var out []Capability
	for _, c := range v.registry.List(v.filter) {
		if oauth.HasAllScopes(v.granted, c.RequiredScopes) {
			out = append(out, c)
		}
	}
	return out
}

// Resolve returns the named capability if the caller may invoke it.
// The error is a *NotFoundError, *PolicyError or *ScopeError.
func (v *View) Resolve(name string) (Capability, error) {
	c, err := v.registry.Resolve(name)
	if err != nil {
		return Capability{}, err
	}
	if ok, reason := v.filter.check(&c); !ok {
		return Capability{}, &PolicyError{Name: name, Reason: reason}
	}
	if missing := oauth.MissingScopes(v.granted, c.RequiredScopes); len(missing) > 0 {
		return Capability{}, &ScopeError{Name: name, Missing: missing}
	}
	return c, nil
}

// Exposes reports whether name is in List.
func (v *View) Exposes(name string) bool {
	_, err := v.Resolve(name)
	return err == nil
}

// Granted returns the scopes the view was built with.
func (v *View) Granted() []string {
	return append([]string(nil), v.granted...)
}
