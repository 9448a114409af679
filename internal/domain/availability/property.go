package availability

import (
	"sort"
	"strings"
)

// Property is the read model behind a calendar row.
type Property struct {
	ID        PropertyID
	CompanyID string
	Name      string
	City      string
}

// PropertyFilter narrows the rows shown on the calendar.
type PropertyFilter struct {
	CompanyID  string
	PropertyID PropertyID
	City       string
	Search     string
}

func (f PropertyFilter) Normalized() PropertyFilter {
	return PropertyFilter{
		CompanyID:  strings.TrimSpace(f.CompanyID),
		PropertyID: PropertyID(strings.TrimSpace(string(f.PropertyID))),
		City:       strings.TrimSpace(f.City),
		Search:     strings.ToLower(strings.TrimSpace(f.Search)),
	}
}

// Match applies the filter. Search is a case-insensitive substring of the name.
func (f PropertyFilter) Match(p Property) bool {
	opts := f.Normalized()
	if opts.CompanyID != "" && p.CompanyID != opts.CompanyID {
		return false
	}
	if opts.PropertyID != "" && p.ID != opts.PropertyID {
		return false
	}
	if opts.City != "" && !strings.EqualFold(p.City, opts.City) {
		return false
	}
	if opts.Search != "" && !strings.Contains(strings.ToLower(p.Name), opts.Search) {
		return false
	}
	return true
}

func FilterProperties(props []Property, f PropertyFilter) []Property {
	out := make([]Property, 0, len(props))
	for _, p := range props {
		if f.Match(p) {
			out = append(out, p)
		}
	}
	return out
}

// Cities returns the distinct non-empty cities, sorted.
func Cities(props []Property) []string {
	seen := make(map[string]struct{}, len(props))
	out := make([]string, 0, len(props))
	for _, p := range props {
		city := strings.TrimSpace(p.City)
		if city == "" {
			continue
		}
		if _, ok := seen[city]; ok {
			continue
		}
		seen[city] = struct{}{}
		out = append(out, city)
	}
	sort.Strings(out)
	return out
}

func SortProperties(props []Property) {
	sort.SliceStable(props, func(i, j int) bool {
		if props[i].Name != props[j].Name {
			return props[i].Name < props[j].Name
		}
		return props[i].ID < props[j].ID
	})
}
