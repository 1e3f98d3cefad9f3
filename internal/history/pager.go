// Package history retrieves paginated scan history across two generations
// of the service API. The filtered endpoint is preferred; when it fails for
// any reason one fallback to the legacy scans listing is attempted, with
// the page translated into an offset.
package history

import (
	"context"
	"errors"
	"fmt"

	"github.com/raysh454/kakunin/internal/interfaces"
	"github.com/raysh454/kakunin/internal/logging"
	"github.com/raysh454/kakunin/internal/model"
)

// Pager fetches history pages. It owns no page state; the caller holds the
// cursor.
type Pager struct {
	cfg      *Config
	verifier interfaces.Verifier
	logger   logging.Logger
	events   chan model.Event
}

// NewPager ties together config, verifier and logger.
func NewPager(cfg *Config, verifier interfaces.Verifier, logger logging.Logger) *Pager {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Pager{
		cfg:      cfg,
		verifier: verifier,
		logger:   logger.With(logging.Field{Key: "component", Value: "history"}),
		events:   make(chan model.Event, cfg.EventBuffer),
	}
}

// Events exposes page and error notifications for rendering surfaces.
// Emission is non-blocking; an unread buffer drops events.
func (p *Pager) Events() <-chan model.Event {
	return p.events
}

// Page fetches one page of history. The filtered endpoint is tried first;
// on any failure the legacy scans endpoint is tried once with
// offset=(page-1)*limit. An error is returned only when both endpoints
// fail, composed so the caller sees both attempts.
func (p *Pager) Page(ctx context.Context, filters model.HistoryFilters, page int) (*model.HistoryPage, error) {
	if page < 1 {
		page = 1
	}
	limit := p.cfg.Limit

	resp, primaryErr := p.verifier.QueryHistory(ctx, filters, page, limit)
	if primaryErr == nil {
		switch {
		case resp == nil:
			primaryErr = errors.New("history endpoint returned no body")
		case resp.Error != "":
			primaryErr = fmt.Errorf("history endpoint: %s", resp.Error)
		}
	}
	if primaryErr == nil {
		hp := pageFromHistory(resp)
		p.emit(model.Event{Type: model.EventHistoryPage, Page: hp})
		return hp, nil
	}

	offset := (page - 1) * limit
	p.logger.Warn("filtered history failed, falling back to scans listing",
		logging.Field{Key: "page", Value: page},
		logging.Field{Key: "offset", Value: offset},
		logging.Field{Key: "error", Value: primaryErr.Error()})

	scans, fallbackErr := p.verifier.ListScans(ctx, limit, offset)
	if fallbackErr == nil {
		switch {
		case scans == nil:
			fallbackErr = errors.New("scans endpoint returned no body")
		case scans.Error != "":
			fallbackErr = fmt.Errorf("scans endpoint: %s", scans.Error)
		}
	}
	if fallbackErr != nil {
		composed := fmt.Errorf("history unavailable: filtered endpoint (/api/v1/history) failed (%v); legacy endpoint (/api/v1/scans) failed: %w", primaryErr, fallbackErr)
		p.emit(model.Event{Type: model.EventHistoryError, Error: composed.Error()})
		return nil, composed
	}

	hp := pageFromScans(scans, page, limit)
	p.emit(model.Event{Type: model.EventHistoryPage, Page: hp})
	return hp, nil
}

// pageFromHistory lifts the filtered endpoint's reply into a page. The
// echoed metadata is ground truth, including a clamped limit.
func pageFromHistory(resp *model.HistoryResponse) *model.HistoryPage {
	return &model.HistoryPage{
		Items:      resp.Items,
		Page:       resp.Page,
		Limit:      resp.Limit,
		Total:      resp.Total,
		TotalPages: resp.TotalPages,
		HasNext:    resp.HasNext,
		HasPrev:    resp.HasPrev,
		Source:     model.HistorySourceFiltered,
	}
}

// pageFromScans synthesizes a page from the legacy listing. Only metadata
// the client actually knows is filled in: hasPrev follows from the
// requested page number, total only if the endpoint reported it, and
// totalPages/hasNext stay absent rather than guessed.
func pageFromScans(resp *model.ScanListResponse, page, limit int) *model.HistoryPage {
	hasPrev := page > 1
	return &model.HistoryPage{
		Items:   resp.Scans,
		Page:    page,
		Limit:   limit,
		Total:   resp.Total,
		HasPrev: &hasPrev,
		Source:  model.HistorySourceLegacy,
	}
}

func (p *Pager) emit(ev model.Event) {
	select {
	case p.events <- ev:
	default:
	}
}
