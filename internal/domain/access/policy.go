package access

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Route gates every path under Prefix at RequiredRank.
type Route struct {
	Prefix       string `json:"prefix" mapstructure:"prefix"`
	RequiredRank Rank   `json:"requiredRank" mapstructure:"rank"`
}

// Matches uses segment boundaries: "/rh" covers "/rh" and "/rh/x" but not "/rhx".
func (r Route) Matches(path string) bool {
	if r.Prefix == "/" {
		return strings.HasPrefix(path, "/")
	}
	if path == r.Prefix {
		return true
	}
	return strings.HasPrefix(path, strings.TrimSuffix(r.Prefix, "/")+"/")
}

// Landing maps a rank tier to the page a subject lands on after login.
type Landing struct {
	MinRank Rank   `json:"minRank" mapstructure:"rank"`
	Path    string `json:"path" mapstructure:"path"`
}

// Action is a named operation gated independently of any page.
type Action struct {
	Name         string `json:"name" mapstructure:"name"`
	RequiredRank Rank   `json:"requiredRank" mapstructure:"rank"`
}

// Policy is the single declarative source for route gates, navigation,
// landing pages and action gates. Build it with NewPolicy; it is read-only
// afterwards and safe for concurrent use.
type Policy struct {
	LoginPath   string
	DefaultPath string
	PublicPaths []string
	Navigation  []Entry
	Landing     []Landing
	Actions     map[string]Rank

	routes []Route
}

// Definition is the raw document a Policy is built from.
type Definition struct {
	LoginPath   string    `mapstructure:"login_path"`
	DefaultPath string    `mapstructure:"default_path"`
	PublicPaths []string  `mapstructure:"public"`
	Routes      []Route   `mapstructure:"routes"`
	Navigation  []Entry   `mapstructure:"navigation"`
	Landing     []Landing `mapstructure:"landing"`
	Actions     []Action  `mapstructure:"actions"`
}

// NewPolicy validates def and derives the route table: explicit route-only
// prefixes first, then every navigation entry and child in menu order.
// The first declaration of a prefix wins.
func NewPolicy(def Definition) (*Policy, error) {
	p := &Policy{
		LoginPath:   def.LoginPath,
		DefaultPath: def.DefaultPath,
		PublicPaths: append([]string(nil), def.PublicPaths...),
		Navigation:  copyEntries(def.Navigation),
		Landing:     append([]Landing(nil), def.Landing...),
		Actions:     make(map[string]Rank, len(def.Actions)),
	}
	if p.LoginPath == "" {
		p.LoginPath = "/login"
	}
	if p.DefaultPath == "" {
		p.DefaultPath = "/dashboard"
	}

	var errs []error
	seen := map[string]struct{}{}
	addRoute := func(prefix string, rank Rank) {
		prefix = strings.TrimSpace(prefix)
		if !strings.HasPrefix(prefix, "/") {
			errs = append(errs, fmt.Errorf("route %q must start with /", prefix))
			return
		}
		if !rank.Valid() {
			errs = append(errs, fmt.Errorf("route %q has invalid rank %d", prefix, rank))
			return
		}
		if _, ok := seen[prefix]; ok {
			return
		}
		seen[prefix] = struct{}{}
		p.routes = append(p.routes, Route{Prefix: prefix, RequiredRank: rank})
	}

	for _, route := range def.Routes {
		addRoute(route.Prefix, route.RequiredRank)
	}
	for i := range p.Navigation {
		entry := &p.Navigation[i]
		if strings.TrimSpace(entry.Title) == "" {
			errs = append(errs, fmt.Errorf("navigation entry %d has no title", i))
		}
		addRoute(entry.Path, entry.RequiredRank)
		for j := range entry.Children {
			entry.Children[j].RequiredRank = entry.RequiredRank
			addRoute(entry.Children[j].Path, entry.RequiredRank)
		}
	}

	for _, action := range def.Actions {
		if action.Name == "" || !action.RequiredRank.Valid() {
			errs = append(errs, fmt.Errorf("action %q has invalid rank %d", action.Name, action.RequiredRank))
			continue
		}
		p.Actions[action.Name] = action.RequiredRank
	}

	sort.SliceStable(p.Landing, func(i, j int) bool { return p.Landing[i].MinRank > p.Landing[j].MinRank })

	if p.RequiredRank(p.DefaultPath) != MinRank {
		errs = append(errs, fmt.Errorf("default path %s must be reachable at rank %d", p.DefaultPath, MinRank))
	}
	if !p.IsPublic(p.LoginPath) {
		p.PublicPaths = append(p.PublicPaths, p.LoginPath)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return p, nil
}

// Routes returns a copy of the ordered route table.
func (p *Policy) Routes() []Route {
	return append([]Route(nil), p.routes...)
}

// RequiredRank is the gate of the first matching route, or MinRank.
func (p *Policy) RequiredRank(path string) Rank {
	for _, route := range p.routes {
		if route.Matches(path) {
			return route.RequiredRank
		}
	}
	return MinRank
}

// IsPublic reports whether path needs no session at all. Public paths match exactly.
func (p *Policy) IsPublic(path string) bool {
	for _, public := range p.PublicPaths {
		if public == path {
			return true
		}
	}
	return false
}

// NavigationFor is the navigation filter applied to the policy's menu.
func (p *Policy) NavigationFor(rank Rank) []Entry {
	return FilterNavigation(p.Navigation, rank)
}

// LandingPath picks the page a subject lands on after login. Ranks below
// every tier land on the default path.
func (p *Policy) LandingPath(rank Rank) string {
	if !rank.Valid() {
		return p.LoginPath
	}
	for _, landing := range p.Landing {
		if rank >= landing.MinRank {
			return landing.Path
		}
	}
	return p.DefaultPath
}

// CanPerform gates named actions. Unknown actions are denied.
func (p *Policy) CanPerform(rank Rank, action string) bool {
	required, ok := p.Actions[action]
	if !ok {
		return false
	}
	return Allowed(rank, required)
}

// PermittedActions lists the actions available at rank, sorted by name.
func (p *Policy) PermittedActions(rank Rank) []string {
	out := make([]string, 0, len(p.Actions))
	for name, required := range p.Actions {
		if Allowed(rank, required) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// FindEntry returns the top-level entry owning path, if any.
func (p *Policy) FindEntry(path string) (Entry, bool) {
	for _, entry := range p.Navigation {
		if entry.Active(path) {
			return entry, true
		}
	}
	return Entry{}, false
}

func copyEntries(entries []Entry) []Entry {
	if entries == nil {
		return nil
	}
	out := make([]Entry, len(entries))
	for i, entry := range entries {
		out[i] = entry
		out[i].Children = copyEntries(entry.Children)
	}
	return out
}
