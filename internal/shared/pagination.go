package shared

// Pagination normalizes page/per_page listing input and is echoed back in
// list responses so clients can walk pages.
type Pagination struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
}

// NewPagination applies defaults (page 1, 20 per page) and caps the page
// size to keep a single response bounded.
func NewPagination(page, perPage int) Pagination {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 20
	}
	if perPage > 100 {
		perPage = 100
	}
	return Pagination{Page: page, PerPage: perPage}
}

// Limit is the SQL LIMIT for the page.
func (p Pagination) Limit() int {
	return p.PerPage
}

// Offset is the SQL OFFSET for the page.
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.PerPage
}
