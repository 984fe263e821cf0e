package claimquery

// PageDefaults bounds page sizes
type PageDefaults struct {
	Size    int
	MaxSize int
}

// DefaultPageDefaults is used when configuration leaves page sizes unset
var DefaultPageDefaults = PageDefaults{Size: 20, MaxSize: 100}

// Page is a 1-based page request
type Page struct {
	Number int
	Size   int
}

// NewPage clamps number and size into valid ranges
func NewPage(number, size int, d PageDefaults) Page {
	if d.Size <= 0 {
		d.Size = DefaultPageDefaults.Size
	}
	if d.MaxSize <= 0 {
		d.MaxSize = DefaultPageDefaults.MaxSize
	}
	if number < 1 {
		number = 1
	}
	if size <= 0 {
		size = d.Size
	}
	if size > d.MaxSize {
		size = d.MaxSize
	}
	return Page{Number: number, Size: size}
}

// Offset returns the number of rows to skip
func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

// Result is one page of items plus the total matching count
type Result[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

// NewResult assembles a page result
func NewResult[T any](items []T, total int64, p Page) Result[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if p.Size > 0 {
		pages = int((total + int64(p.Size) - 1) / int64(p.Size))
	}
	return Result[T]{
		Items:      items,
		Total:      total,
		Page:       p.Number,
		PageSize:   p.Size,
		TotalPages: pages,
	}
}
