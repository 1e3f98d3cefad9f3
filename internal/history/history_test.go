package history_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/raysh454/kakunin/internal/history"
	"github.com/raysh454/kakunin/internal/model"
	"github.com/raysh454/kakunin/internal/testutil"
)

func newTestPager(t *testing.T, v *testutil.ScriptedVerifier, limit int) *history.Pager {
	t.Helper()
	cfg := history.DefaultConfig()
	if limit > 0 {
		cfg.Limit = limit
	}
	return history.NewPager(cfg, v, &testutil.DummyLogger{})
}

func bp(v bool) *bool { return &v }
func ip(v int) *int   { return &v }

func filteredResponse(page, limit int, hasNext bool) *model.HistoryResponse {
	return &model.HistoryResponse{
		Success: true,
		Items:   []model.ScanRecord{{ID: "scan-1", JobID: "job-1", URL: "https://example.com", Status: "completed"}},
		Page:    page,
		Limit:   limit,
		Total:   ip(120),
		HasNext: bp(hasNext),
		HasPrev: bp(page > 1),
	}
}

func legacyResponse(n int) *model.ScanListResponse {
	scans := make([]model.ScanRecord, n)
	for i := range scans {
		scans[i] = model.ScanRecord{ID: fmt.Sprintf("scan-%d", i), Status: "completed"}
	}
	return &model.ScanListResponse{Success: true, Scans: scans}
}

// ─── Pager ─────────────────────────────────────────────────────────────

func TestPager_PrefersFilteredEndpoint(t *testing.T) {
	t.Parallel()
	v := &testutil.ScriptedVerifier{HistoryPage: filteredResponse(1, 20, true)}
	p := newTestPager(t, v, 20)

	hp, err := p.Page(context.Background(), model.HistoryFilters{}, 1)
	if err != nil {
		t.Fatalf("Page: %v", err)
	}
	if hp.Source != model.HistorySourceFiltered {
		t.Errorf("expected filtered source, got %q", hp.Source)
	}
	if v.CallCount("ListScans") != 0 {
		t.Error("legacy endpoint must not be touched when filtered succeeds")
	}

	select {
	case ev := <-p.Events():
		if ev.Type != model.EventHistoryPage {
			t.Errorf("expected history page event, got %q", ev.Type)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("timed out waiting for page event")
	}
}

func TestPager_ServerMetadataIsGroundTruth(t *testing.T) {
	t.Parallel()
	// requested limit 100, server clamps to 50
	v := &testutil.ScriptedVerifier{HistoryPage: filteredResponse(3, 50, true)}
	p := newTestPager(t, v, 100)

	hp, err := p.Page(context.Background(), model.HistoryFilters{}, 3)
	if err != nil {
		t.Fatalf("Page: %v", err)
	}
	if hp.Limit != 50 {
		t.Errorf("clamped limit must be echoed, got %d", hp.Limit)
	}
	if hp.Total == nil || *hp.Total != 120 {
		t.Errorf("expected total 120, got %v", hp.Total)
	}
}

func TestPager_FallsBackWithComputedOffset(t *testing.T) {
	t.Parallel()
	v := &testutil.ScriptedVerifier{
		HistoryErr: fmt.Errorf("410 gone"),
		ScanList:   legacyResponse(20),
	}
	p := newTestPager(t, v, 20)

	hp, err := p.Page(context.Background(), model.HistoryFilters{}, 3)
	if err != nil {
		t.Fatalf("fallback must not surface the primary error: %v", err)
	}
	if hp.Source != model.HistorySourceLegacy {
		t.Errorf("expected legacy source, got %q", hp.Source)
	}

	var scansCall *testutil.VerifierCall
	for i := range v.Calls {
		if v.Calls[i].Method == "ListScans" {
			scansCall = &v.Calls[i]
		}
	}
	if scansCall == nil {
		t.Fatal("expected a ListScans call")
	}
	if scansCall.Limit != 20 || scansCall.Offset != 40 {
		t.Errorf("expected limit=20 offset=40, got limit=%d offset=%d", scansCall.Limit, scansCall.Offset)
	}
}

func TestPager_LegacyMetadataSynthesis(t *testing.T) {
	t.Parallel()
	v := &testutil.ScriptedVerifier{
		HistoryErr: fmt.Errorf("boom"),
		ScanList:   legacyResponse(20),
	}
	p := newTestPager(t, v, 20)

	hp, err := p.Page(context.Background(), model.HistoryFilters{}, 3)
	if err != nil {
		t.Fatalf("Page: %v", err)
	}
	if hp.Page != 3 || hp.Limit != 20 {
		t.Errorf("requested page/limit must be kept, got %d/%d", hp.Page, hp.Limit)
	}
	if hp.HasPrev == nil || !*hp.HasPrev {
		t.Error("page 3 derivably has a previous page")
	}
	if hp.HasNext != nil {
		t.Errorf("legacy endpoint reports no hasNext, must stay absent, got %v", *hp.HasNext)
	}
	if hp.TotalPages != nil {
		t.Error("totalPages must stay absent on the legacy path")
	}
	if hp.Total != nil {
		t.Error("total must stay absent when the legacy endpoint omitted it")
	}
}

func TestPager_LegacyReportedTotalKept(t *testing.T) {
	t.Parallel()
	scans := legacyResponse(5)
	scans.Total = ip(105)
	v := &testutil.ScriptedVerifier{HistoryErr: fmt.Errorf("boom"), ScanList: scans}
	p := newTestPager(t, v, 20)

	hp, err := p.Page(context.Background(), model.HistoryFilters{}, 1)
	if err != nil {
		t.Fatalf("Page: %v", err)
	}
	if hp.Total == nil || *hp.Total != 105 {
		t.Errorf("legacy-reported total must survive, got %v", hp.Total)
	}
	if hp.HasPrev == nil || *hp.HasPrev {
		t.Error("page 1 has no previous page")
	}
}

func TestPager_BothEndpointsFail_ComposedError(t *testing.T) {
	t.Parallel()
	scansErr := fmt.Errorf("legacy down")
	v := &testutil.ScriptedVerifier{
		HistoryErr: fmt.Errorf("filtered down"),
		ScansErr:   scansErr,
	}
	p := newTestPager(t, v, 20)

	_, err := p.Page(context.Background(), model.HistoryFilters{}, 1)
	if err == nil {
		t.Fatal("expected composed error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "/api/v1/history") || !strings.Contains(msg, "/api/v1/scans") {
		t.Errorf("composed error must name both endpoints, got %q", msg)
	}
	if !errors.Is(err, scansErr) {
		t.Error("composed error must wrap the fallback failure")
	}

	select {
	case ev := <-p.Events():
		if ev.Type != model.EventHistoryError {
			t.Errorf("expected history error event, got %q", ev.Type)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("timed out waiting for error event")
	}
}

func TestPager_FilteredErrorFieldTriggersFallback(t *testing.T) {
	t.Parallel()
	v := &testutil.ScriptedVerifier{
		HistoryPage: &model.HistoryResponse{Error: "filters not supported"},
		ScanList:    legacyResponse(3),
	}
	p := newTestPager(t, v, 20)

	hp, err := p.Page(context.Background(), model.HistoryFilters{}, 1)
	if err != nil {
		t.Fatalf("Page: %v", err)
	}
	if hp.Source != model.HistorySourceLegacy {
		t.Errorf("error-bodied filtered reply must fall back, got %q", hp.Source)
	}
}

// ─── Cursor ────────────────────────────────────────────────────────────

func TestCursor_NextAdvancesWhenPermitted(t *testing.T) {
	t.Parallel()
	v := &testutil.ScriptedVerifier{HistoryPage: filteredResponse(1, 20, true)}
	p := newTestPager(t, v, 20)
	c := history.NewCursor(p, model.HistoryFilters{})

	if _, err := c.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	v.HistoryPage = filteredResponse(2, 20, false)

	hp, err := c.Next(context.Background())
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if hp.Page != 2 || c.PageNumber() != 2 {
		t.Errorf("expected cursor on page 2, got page %d cursor %d", hp.Page, c.PageNumber())
	}

	last := v.Calls[len(v.Calls)-1]
	if last.Method != "QueryHistory" || last.Page != 2 {
		t.Errorf("expected refetch of page 2, got %+v", last)
	}
}

func TestCursor_NextNoOpWhenHasNextFalse(t *testing.T) {
	t.Parallel()
	v := &testutil.ScriptedVerifier{HistoryPage: filteredResponse(1, 20, false)}
	p := newTestPager(t, v, 20)
	c := history.NewCursor(p, model.HistoryFilters{})

	if _, err := c.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	before := v.CallCount("QueryHistory")

	hp, err := c.Next(context.Background())
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if c.PageNumber() != 1 {
		t.Errorf("cursor moved to %d despite hasNext=false", c.PageNumber())
	}
	if v.CallCount("QueryHistory") != before {
		t.Error("no-op Next must not refetch")
	}
	if hp == nil || hp.Page != 1 {
		t.Errorf("no-op Next should hand back the current page, got %+v", hp)
	}
}

func TestCursor_NextNoOpWhenHasNextUnknown(t *testing.T) {
	t.Parallel()
	// legacy pages never report hasNext, so the cursor refuses to guess
	v := &testutil.ScriptedVerifier{
		HistoryErr: fmt.Errorf("boom"),
		ScanList:   legacyResponse(20),
	}
	p := newTestPager(t, v, 20)
	c := history.NewCursor(p, model.HistoryFilters{})

	if _, err := c.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	before := len(v.Calls)

	if _, err := c.Next(context.Background()); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if c.PageNumber() != 1 {
		t.Errorf("cursor advanced on unknown hasNext, now at %d", c.PageNumber())
	}
	if len(v.Calls) != before {
		t.Error("unknown hasNext must not trigger a refetch")
	}
}

func TestCursor_PrevGuardOnFirstPage(t *testing.T) {
	t.Parallel()
	v := &testutil.ScriptedVerifier{HistoryPage: filteredResponse(1, 20, true)}
	p := newTestPager(t, v, 20)
	c := history.NewCursor(p, model.HistoryFilters{})

	if _, err := c.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	before := v.CallCount("QueryHistory")

	if _, err := c.Prev(context.Background()); err != nil {
		t.Fatalf("Prev: %v", err)
	}
	if c.PageNumber() != 1 || v.CallCount("QueryHistory") != before {
		t.Error("Prev on first page must be a no-op")
	}
}

func TestCursor_FailedMoveKeepsPosition(t *testing.T) {
	t.Parallel()
	v := &testutil.ScriptedVerifier{HistoryPage: filteredResponse(1, 20, true)}
	p := newTestPager(t, v, 20)
	c := history.NewCursor(p, model.HistoryFilters{})

	loaded, err := c.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	// both endpoints go dark before the move
	v.HistoryErr = fmt.Errorf("filtered down")
	v.ScansErr = fmt.Errorf("legacy down")

	if _, err := c.Next(context.Background()); err == nil {
		t.Fatal("expected composed error from failed move")
	}
	if c.PageNumber() != 1 {
		t.Errorf("failed move must not advance the cursor, at %d", c.PageNumber())
	}
	if c.Current() != loaded {
		t.Error("failed move must keep the last good page")
	}
}

func TestCursor_SeekRepositionsWithoutFetch(t *testing.T) {
	t.Parallel()
	v := &testutil.ScriptedVerifier{HistoryPage: filteredResponse(7, 20, true)}
	p := newTestPager(t, v, 20)
	c := history.NewCursor(p, model.HistoryFilters{})

	c.Seek(7)
	if v.CallCount("QueryHistory") != 0 {
		t.Fatal("Seek must not fetch")
	}
	if _, err := c.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	last := v.Calls[len(v.Calls)-1]
	if last.Page != 7 {
		t.Errorf("expected load of page 7, got %+v", last)
	}
}
