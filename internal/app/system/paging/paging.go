// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"strconv"

	"github.com/dalemusser/waffle/pantry/query"
)

// PageSize is the default number of rows shown in paged lists.
const PageSize = 50

// Page describes one page of an offset-paged list.
type Page struct {
	Number int   // 1-based
	Size   int   // rows per page
	Total  int64 // rows across all pages
}

// ParsePage reads the 1-based "page" query parameter. Missing or invalid
// values mean page 1.
func ParsePage(r *http.Request) int {
	n, err := strconv.Atoi(query.Get(r, "page"))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// New returns the requested page clamped to the last page of total rows.
func New(number, size int, total int64) Page {
	if size <= 0 {
		size = PageSize
	}
	p := Page{Number: number, Size: size, Total: total}
	if p.Number < 1 {
		p.Number = 1
	}
	if last := p.TotalPages(); p.Number > last {
		p.Number = last
	}
	return p
}

// Offset is the number of rows to skip; Limit the number to fetch.
func (p Page) Offset() int64 { return int64(p.Number-1) * int64(p.Size) }
func (p Page) Limit() int64 { return int64(p.Size) }

// TotalPages is at least 1, so an empty list still renders as "page 1 of 1".
func (p Page) TotalPages() int {
	if p.Total <= 0 || p.Size <= 0 {
		return 1
	}
	return int((p.Total + int64(p.Size) - 1) / int64(p.Size))
}

func (p Page) HasPrev() bool { return p.Number > 1 }
func (p Page) HasNext() bool { return p.Number < p.TotalPages() }
func (p Page) Prev() int { return max(p.Number-1, 1) }
func (p Page) Next() int { return min(p.Number+1, p.TotalPages()) }

// Range holds the 1-based "showing Start-End of Total" values.
type Range struct {
	Start int // 0 if no rows shown
	End   int
}

// Shown computes the display range given how many rows were actually fetched.
func (p Page) Shown(n int) Range {
	if n <= 0 {
		return Range{}
	}
	start := int(p.Offset()) + 1
	return Range{Start: start, End: start + n - 1}
}
