package schedule

import (
	"net/url"
	"strings"
)

// Filter narrows the visible schedule. A nil Types shows every type while an
// empty non-nil Types shows nothing, matching a filter panel with every box
// unticked.
type Filter struct {
	Types         []EventType
	Query         string
	FavoritesOnly bool
}

func (f Filter) allowsType(t EventType) bool {
	if f.Types == nil {
		return true
	}
	for _, allowed := range f.Types {
		if allowed == t {
			return true
		}
	}
	return false
}

func (f Filter) matchesQuery(e Event) bool {
	if f.Query == "" {
		return true
	}
	q := strings.ToLower(f.Query)
	return strings.Contains(strings.ToLower(e.Name), q) ||
		strings.Contains(strings.ToLower(e.Description), q) ||
		strings.Contains(strings.ToLower(e.Location), q)
}

// Apply returns the events passing the type and text filters. Favorites are
// resolved by the service since they need the current user.
func (f Filter) Apply(events []Event) []Event {
	out := make([]Event, 0, len(events))
	for _, e := range events {
		if f.allowsType(e.EventType) && f.matchesQuery(e) {
			out = append(out, e)
		}
	}
	return out
}

// FilterFromQuery reads "types" (comma separated), "q" and "favorites" from
// request query parameters.
func FilterFromQuery(values url.Values) (Filter, error) {
	var f Filter
	if _, present := values["types"]; present {
		f.Types = []EventType{}
		for _, raw := range strings.Split(values.Get("types"), ",") {
			if strings.TrimSpace(raw) == "" {
				continue
			}
			t, err := ParseEventType(raw)
			if err != nil {
				return Filter{}, err
			}
			f.Types = append(f.Types, t)
		}
	}
	f.Query = strings.TrimSpace(values.Get("q"))
	f.FavoritesOnly = values.Get("favorites") == "true"
	return f, nil
}
