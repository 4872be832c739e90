package access

// Entry is one item of the side navigation. Children share the parent's gate.
type Entry struct {
	Title        string  `json:"title" mapstructure:"title"`
	Path         string  `json:"path" mapstructure:"path"`
	Description  string  `json:"description,omitempty" mapstructure:"description"`
	RequiredRank Rank    `json:"requiredRank" mapstructure:"rank"`
	Children     []Entry `json:"children,omitempty" mapstructure:"children"`
}

// Visible reports whether rank passes the entry's gate.
func (e Entry) Visible(rank Rank) bool {
	return Allowed(rank, e.RequiredRank)
}

// FilterNavigation returns the entries visible at rank, keeping their order.
// The input is never modified; the returned slice does not alias it.
func FilterNavigation(entries []Entry, rank Rank) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, entry := range entries {
		if entry.Visible(rank) {
			out = append(out, entry)
		}
	}
	return out
}

// Active reports whether path is the entry itself or one of its children.
func (e Entry) Active(path string) bool {
	if e.Path == path {
		return true
	}
	for _, child := range e.Children {
		if child.Path == path {
			return true
		}
	}
	return false
}
