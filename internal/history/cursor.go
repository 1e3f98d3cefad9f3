package history

import (
	"context"

	"github.com/raysh454/kakunin/internal/model"
)

// Cursor is caller-owned page state over a Pager. It never advances
// optimistically: Next and Prev refetch only when the last loaded page
// affirmatively permits the move, and the cursor position changes only
// after that fetch succeeds. A page whose hasNext is absent (the legacy
// endpoint does not report it) therefore pins the cursor; callers who know
// better can still jump with Load after Seek.
type Cursor struct {
	pager   *Pager
	filters model.HistoryFilters
	page    int
	current *model.HistoryPage
}

// NewCursor starts a cursor at page 1.
func NewCursor(pager *Pager, filters model.HistoryFilters) *Cursor {
	return &Cursor{pager: pager, filters: filters, page: 1}
}

// Load fetches the cursor's current page.
func (c *Cursor) Load(ctx context.Context) (*model.HistoryPage, error) {
	return c.fetch(ctx, c.page)
}

// Next moves forward one page when the current page reports hasNext true.
// Otherwise it is a no-op returning the current page without a refetch.
func (c *Cursor) Next(ctx context.Context) (*model.HistoryPage, error) {
	if c.current == nil || c.current.HasNext == nil || !*c.current.HasNext {
		return c.current, nil
	}
	return c.fetch(ctx, c.page+1)
}

// Prev moves back one page when the current page reports hasPrev true.
// Otherwise it is a no-op returning the current page without a refetch.
func (c *Cursor) Prev(ctx context.Context) (*model.HistoryPage, error) {
	if c.current == nil || c.current.HasPrev == nil || !*c.current.HasPrev || c.page <= 1 {
		return c.current, nil
	}
	return c.fetch(ctx, c.page-1)
}

// Seek repositions the cursor without fetching. The next Load uses the new
// page number.
func (c *Cursor) Seek(page int) {
	if page < 1 {
		page = 1
	}
	c.page = page
}

// PageNumber returns the cursor's current position.
func (c *Cursor) PageNumber() int { return c.page }

// Current returns the last successfully loaded page, if any.
func (c *Cursor) Current() *model.HistoryPage { return c.current }

func (c *Cursor) fetch(ctx context.Context, page int) (*model.HistoryPage, error) {
	hp, err := c.pager.Page(ctx, c.filters, page)
	if err != nil {
		// Position unchanged; the move never happened.
		return nil, err
	}
	c.page = page
	if hp.Source == model.HistorySourceFiltered && hp.Page > 0 {
		// The server's echoed page number wins over our request.
		c.page = hp.Page
	}
	c.current = hp
	return hp, nil
}
