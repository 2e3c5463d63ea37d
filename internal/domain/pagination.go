package domain

// PaginationParams selects one page of a list query. Page is 1-based.
type PaginationParams struct {
	Page     int
	PageSize int
}

// Limit is the SQL LIMIT for the page. A non-positive size yields an empty page.
func (p PaginationParams) Limit() int {
	return max(p.PageSize, 0)
}

// Offset is the number of rows skipped before the page. Pages below 1 read from the start.
func (p PaginationParams) Offset() int {
	if p.Page <= 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit()
}

// Pages reports how many pages of this size hold total rows.
func (p PaginationParams) Pages(total int) int {
	size := p.Limit()
	if size == 0 || total <= 0 {
		return 0
	}
	return (total + size - 1) / size
}
