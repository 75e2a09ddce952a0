// Package filter holds the user's list constraints and keeps the page consistent with them.
package filter

import (
	"fmt"
	"strings"
	"sync"

	appErrors "github.com/noah-isme/academy-portal/pkg/errors"
	"github.com/noah-isme/academy-portal/pkg/pagination"
	"github.com/noah-isme/academy-portal/pkg/query"
)

// Dimension is one categorical filter. Empty Values accepts any value, which is how
// dimensions backed by backend ids (subject, level) are declared.
type Dimension struct {
	Name    string   `json:"name"`
	Default string   `json:"default"`
	Values  []string `json:"values,omitempty"`
}

func (d Dimension) allows(value string) bool {
	if value == query.AllValue || len(d.Values) == 0 {
		return true
	}
	for _, v := range d.Values {
		if v == value {
			return true
		}
	}
	return false
}

// State is the serialisable form of a controller.
type State struct {
	Search     string            `json:"search"`
	Filters    map[string]string `json:"filters"`
	Page       int               `json:"page"`
	PageSize   int               `json:"pageSize"`
	TotalPages int               `json:"totalPages"`
}

// Options configures a Controller.
type Options struct {
	PageSize int
	// OnChange runs after every effective change with the new parameters.
	OnChange func(query.Params)
}

// Controller owns the filter values, settled search and page of one list view.
type Controller struct {
	mu         sync.Mutex
	dims       map[string]Dimension
	order      []string
	values     map[string]string
	search     string
	page       int
	pageSize   int
	totalPages int
	onChange   func(query.Params)
}

// New builds a controller with every dimension at its default and page 1.
func New(dims []Dimension, opts Options) *Controller {
	if opts.PageSize <= 0 {
		opts.PageSize = 10
	}
	c := &Controller{
		dims:       make(map[string]Dimension, len(dims)),
		values:     make(map[string]string, len(dims)),
		page:       1,
		pageSize:   opts.PageSize,
		totalPages: 1,
		onChange:   opts.OnChange,
	}
	for _, d := range dims {
		if d.Default == "" {
			d.Default = query.AllValue
		}
		c.dims[d.Name] = d
		c.order = append(c.order, d.Name)
		c.values[d.Name] = d.Default
	}
	return c
}

// Dimensions returns the declared dimensions in declaration order.
func (c *Controller) Dimensions() []Dimension {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Dimension, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.dims[name])
	}
	return out
}

// SetSearch applies a settled search value. A change resets the page to 1 and forgets the
// page count until the new result commits.
func (c *Controller) SetSearch(value string) bool {
	c.mu.Lock()
	if c.search == value {
		c.mu.Unlock()
		return false
	}
	c.search = value
	c.restartLocked()
	params := c.paramsLocked()
	c.mu.Unlock()

	c.notify(params)
	return true
}

// SetFilter changes one dimension. A change resets the page to 1; an identical value is a no-op.
func (c *Controller) SetFilter(name, value string) (bool, error) {
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, query.AllValue) {
		value = query.AllValue
	}

	c.mu.Lock()
	dim, ok := c.dims[name]
	if !ok {
		c.mu.Unlock()
		return false, appErrors.Validation("unknown filter", map[string]string{name: "unknown filter dimension"})
	}
	if !dim.allows(value) {
		c.mu.Unlock()
		return false, appErrors.Validation("invalid filter value", map[string]string{
			name: fmt.Sprintf("must be one of %s or %s", strings.Join(dim.Values, ", "), query.AllValue),
		})
	}
	if c.values[name] == value {
		c.mu.Unlock()
		return false, nil
	}
	c.values[name] = value
	c.restartLocked()
	params := c.paramsLocked()
	c.mu.Unlock()

	c.notify(params)
	return true, nil
}

// SetPage moves to page, leaving filters untouched. Pages outside [1, totalPages] are rejected.
func (c *Controller) SetPage(page int) (bool, error) {
	c.mu.Lock()
	if !pagination.InRange(page, c.totalPages) {
		total := c.totalPages
		c.mu.Unlock()
		return false, appErrors.Clone(appErrors.ErrPageOutOfRange, fmt.Sprintf("page must be between 1 and %d", total))
	}
	if c.page == page {
		c.mu.Unlock()
		return false, nil
	}
	c.page = page
	params := c.paramsLocked()
	c.mu.Unlock()

	c.notify(params)
	return true, nil
}

// ApplyResult records the page count of a committed result for params. Results for
// anything other than the current parameters are ignored. When the count shrank below the
// current page the page is clamped and OnChange runs.
func (c *Controller) ApplyResult(params query.Params, total int) bool {
	if total < 1 {
		total = 1
	}
	c.mu.Lock()
	if params.Normalize(c.pageSize).Key() != c.paramsLocked().Key() {
		c.mu.Unlock()
		return false
	}
	c.totalPages = total
	clamped := pagination.Clamp(c.page, total)
	if clamped == c.page {
		c.mu.Unlock()
		return true
	}
	c.page = clamped
	next := c.paramsLocked()
	c.mu.Unlock()

	c.notify(next)
	return true
}

// Reset restores every dimension default, clears the search and returns to page 1.
func (c *Controller) Reset() {
	c.mu.Lock()
	for _, name := range c.order {
		c.values[name] = c.dims[name].Default
	}
	c.search = ""
	c.restartLocked()
	params := c.paramsLocked()
	c.mu.Unlock()

	c.notify(params)
}

// Params derives the query parameters for the current state.
func (c *Controller) Params() query.Params {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paramsLocked()
}

// State returns a serialisable copy.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	filters := make(map[string]string, len(c.values))
	for k, v := range c.values {
		filters[k] = v
	}
	return State{
		Search:     c.search,
		Filters:    filters,
		Page:       c.page,
		PageSize:   c.pageSize,
		TotalPages: c.totalPages,
	}
}

// restartLocked returns to page 1. The old page count says nothing about the new result,
// so only page 1 is reachable until ApplyResult runs.
func (c *Controller) restartLocked() {
	c.page = 1
	c.totalPages = 1
}

func (c *Controller) paramsLocked() query.Params {
	filters := make(map[string]string, len(c.values))
	for k, v := range c.values {
		filters[k] = v
	}
	return query.Params{Search: c.search, Filters: filters, Page: c.page, PageSize: c.pageSize}
}

func (c *Controller) notify(params query.Params) {
	if c.onChange != nil {
		c.onChange(params)
	}
}
