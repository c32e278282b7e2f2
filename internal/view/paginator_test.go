package view

import "testing"

func TestPaginatorClamps(t *testing.T) {
	p := NewPaginator(50)
	p.SetCount(1000)
	if p.TotalPages() != 20 {
		t.Fatalf("total = %d", p.TotalPages())
	}
	if got := p.GoToPage(99); got != 20 {
		t.Fatalf("GoToPage(99) = %d", got)
	}
	if got := p.GoToPage(-3); got != 1 {
		t.Fatalf("GoToPage(-3) = %d", got)
	}
	if p.PreviousPage() {
		t.Fatalf("no previous page from 1")
	}
	if !p.NextPage() || p.Current().Number != 2 {
		t.Fatalf("next page failed")
	}
	if pg := p.Current(); pg.Start != 50 || pg.End != 100 {
		t.Fatalf("page = %+v", pg)
	}
}

func TestPaginatorShrinkClampsDown(t *testing.T) {
	p := NewPaginator(50)
	p.SetCount(1000)
	p.GoToPage(15)
	p.SetCount(4)
	if p.TotalPages() != 1 || p.Current().Number != 1 {
		t.Fatalf("pages=%d current=%d", p.TotalPages(), p.Current().Number)
	}
	if pg := p.Current(); pg.Start != 0 || pg.End != 4 {
		t.Fatalf("page = %+v", pg)
	}
}

func TestPaginatorEmpty(t *testing.T) {
	p := NewPaginator(10)
	if p.TotalPages() != 1 {
		t.Fatalf("empty view should have one page")
	}
	if pg := p.Current(); pg.Len() != 0 {
		t.Fatalf("page = %+v", pg)
	}
}

func TestPaginatorLastPartialPage(t *testing.T) {
	p := NewPaginator(50)
	p.SetCount(247)
	p.GoToPage(5)
	if pg := p.Current(); pg.Start != 200 || pg.End != 247 {
		t.Fatalf("page = %+v", pg)
	}
	if p.PageContaining(149) != 3 || p.PageContaining(150) != 4 || p.PageContaining(9999) != 5 {
		t.Fatalf("PageContaining mismatch")
	}
}

func TestSetPageSizeKeepsPageNumber(t *testing.T) {
	p := NewPaginator(50)
	p.SetCount(1000)
	p.GoToPage(3)
	p.SetPageSize(10)
	if p.Current().Number != 3 || p.TotalPages() != 100 {
		t.Fatalf("page = %+v, total = %d", p.Current(), p.TotalPages())
	}
	if pg := p.Current(); pg.Start != 20 || pg.End != 30 {
		t.Fatalf("page bounds = %+v", pg)
	}
	p.SetPageSize(0)
	if p.Size() != 1 {
		t.Fatalf("size = %d", p.Size())
	}
}

func TestSetPageSizeClampsMissingPage(t *testing.T) {
	p := NewPaginator(50)
	p.SetCount(1000)
	p.GoToPage(20)
	p.SetPageSize(500)
	if p.Current().Number != 2 || p.TotalPages() != 2 {
		t.Fatalf("page = %+v, total = %d", p.Current(), p.TotalPages())
	}
}
