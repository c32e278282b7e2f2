package view

// Page is the half-open range [Start, End) of the ordered view shown as
// page Number (1-based).
type Page struct {
	Number int
	Start  int
	End    int
}

func (p Page) Len() int { return p.End - p.Start }

type Paginator struct {
	size    int
	count   int
	current int
}

func NewPaginator(size int) *Paginator {
	if size < 1 {
		size = 1
	}
	return &Paginator{size: size, current: 1}
}

func (p *Paginator) Size() int  { return p.size }
func (p *Paginator) Count() int { return p.count }

// TotalPages is ceil(count/size), and never less than 1 so an empty view
// still has a page to show.
func (p *Paginator) TotalPages() int {
	if p.count == 0 {
		return 1
	}
	return (p.count + p.size - 1) / p.size
}

// SetPageSize changes the page size. The page number is kept unless it no
// longer exists, in which case it clamps to the last page.
func (p *Paginator) SetPageSize(n int) {
	if n < 1 {
		n = 1
	}
	p.size = n
	p.current = p.clamp(p.current)
}

// SetCount updates the underlying length; the current page clamps down when
// it no longer exists.
func (p *Paginator) SetCount(n int) {
	if n < 0 {
		n = 0
	}
	p.count = n
	p.current = p.clamp(p.current)
}

// GoToPage moves to page n clamped to [1, TotalPages] and returns the page
// actually selected.
func (p *Paginator) GoToPage(n int) int {
	p.current = p.clamp(n)
	return p.current
}

func (p *Paginator) NextPage() bool {
	old := p.current
	return p.GoToPage(old+1) != old
}

func (p *Paginator) PreviousPage() bool {
	old := p.current
	return p.GoToPage(old-1) != old
}

// Reset returns to page 1.
func (p *Paginator) Reset() { p.current = 1 }

// PageContaining returns the 1-based page holding index i.
func (p *Paginator) PageContaining(i int) int {
	if i < 0 {
		return 1
	}
	return p.clamp(i/p.size + 1)
}

func (p *Paginator) Current() Page {
	start := (p.current - 1) * p.size
	end := min(start+p.size, p.count)
	if start > end {
		start = end
	}
	return Page{Number: p.current, Start: start, End: end}
}

func (p *Paginator) clamp(n int) int {
	return max(1, min(n, p.TotalPages()))
}
