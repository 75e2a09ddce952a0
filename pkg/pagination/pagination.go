// Package pagination derives page navigation controls from list metadata.
package pagination

// Link is one numbered page control.
type Link struct {
	Page    int  `json:"page"`
	Current bool `json:"current"`
	Enabled bool `json:"enabled"`
}

// Control is the state of the previous/next buttons and the numbered links.
type Control struct {
	CurrentPage int    `json:"currentPage"`
	TotalPages  int    `json:"totalPages"`
	HasPrevious bool   `json:"hasPrevious"`
	HasNext     bool   `json:"hasNext"`
	Pages       []Link `json:"pages"`
}

// TotalPages returns the number of pages needed for totalCount items. Never less than 1.
func TotalPages(totalCount, pageSize int) int {
	if pageSize <= 0 || totalCount <= 0 {
		return 1
	}
	return (totalCount + pageSize - 1) / pageSize
}

// Clamp keeps page inside [1, totalPages].
func Clamp(page, totalPages int) int {
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		return 1
	}
	if page > totalPages {
		return totalPages
	}
	return page
}

// Controls builds the navigation for the current page.
func Controls(current, totalPages int) Control {
	if totalPages < 1 {
		totalPages = 1
	}
	current = Clamp(current, totalPages)

	links := make([]Link, 0, totalPages)
	for p := 1; p <= totalPages; p++ {
		links = append(links, Link{Page: p, Current: p == current, Enabled: p != current})
	}

	return Control{
		CurrentPage: current,
		TotalPages:  totalPages,
		HasPrevious: current > 1,
		HasNext:     current < totalPages,
		Pages:       links,
	}
}

// InRange reports whether page is a valid target for the given page count.
func InRange(page, totalPages int) bool {
	if totalPages < 1 {
		totalPages = 1
	}
	return page >= 1 && page <= totalPages
}
