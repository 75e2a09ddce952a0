package query

import (
	"net/url"
	"strconv"
	"strings"
)

// AllValue is the sentinel meaning "no constraint" for a categorical filter.
const AllValue = "all"

// Params is the parameter tuple that fully determines one backend list query.
type Params struct {
	Search   string            `json:"search"`
	Filters  map[string]string `json:"filters,omitempty"`
	Page     int               `json:"page"`
	PageSize int               `json:"pageSize"`
}

// Normalize fills defaults: page at least 1 and a positive page size.
func (p Params) Normalize(defaultPageSize int) Params {
	out := p.clone()
	if out.Page < 1 {
		out.Page = 1
	}
	if out.PageSize <= 0 {
		out.PageSize = defaultPageSize
	}
	return out
}

// Values renders the outgoing query string. Empty values and the "all" sentinel are omitted.
func (p Params) Values() url.Values {
	v := url.Values{}
	if p.Search != "" {
		v.Set("search", p.Search)
	}
	for name, value := range p.Filters {
		if value == "" || strings.EqualFold(value, AllValue) {
			continue
		}
		v.Set(name, value)
	}
	if p.Page > 0 {
		v.Set("page", strconv.Itoa(p.Page))
	}
	if p.PageSize > 0 {
		v.Set("limit", strconv.Itoa(p.PageSize))
	}
	return v
}

// Key is the canonical form of the tuple. Two tuples that produce the same request share a key.
func (p Params) Key() string {
	return p.Values().Encode()
}

// Filter returns the value of a filter or "" when unset.
func (p Params) Filter(name string) string {
	if p.Filters == nil {
		return ""
	}
	return p.Filters[name]
}

func (p Params) clone() Params {
	out := p
	if p.Filters != nil {
		out.Filters = make(map[string]string, len(p.Filters))
		for k, v := range p.Filters {
			out.Filters[k] = v
		}
	}
	return out
}
