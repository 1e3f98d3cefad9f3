package verifyd

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/raysh454/kakunin/internal/model"
	"github.com/raysh454/kakunin/internal/testutil"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "scans.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	st, err := NewStore(db, &testutil.DummyLogger{})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return st
}

// seedScan inserts a row with a distinct creation time so ordering is
// deterministic.
func seedScan(t *testing.T, st *Store, jobID, url, status, continent, teamID string, age time.Duration) {
	t.Helper()
	rec := &model.ScanRecord{
		JobID:     jobID,
		URL:       url,
		Status:    status,
		Continent: continent,
		TeamID:    teamID,
		Mode:      model.ModeGlobal,
		CreatedAt: time.Now().UTC().Add(-age),
	}
	if err := st.InsertScan(context.Background(), rec); err != nil {
		t.Fatalf("InsertScan(%s): %v", jobID, err)
	}
}

// ─── Insert and list ────────────────────────────────────────────────────

func TestStore_ListScans_NewestFirst(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)

	seedScan(t, st, "job-old", "https://a.example/", "completed", "", "", 3*time.Hour)
	seedScan(t, st, "job-mid", "https://b.example/", "completed", "", "", 2*time.Hour)
	seedScan(t, st, "job-new", "https://c.example/", "processing", "", "", time.Hour)

	items, total, err := st.ListScans(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("ListScans: %v", err)
	}
	if total != 3 {
		t.Errorf("expected total 3, got %d", total)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	if items[0].JobID != "job-new" || items[2].JobID != "job-old" {
		t.Errorf("expected newest first, got %s .. %s", items[0].JobID, items[2].JobID)
	}
}

func TestStore_ListScans_OffsetWindow(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)

	for i := 0; i < 5; i++ {
		seedScan(t, st, jobName(i), "https://example.com/", "completed", "", "", time.Duration(i)*time.Hour)
	}

	items, total, err := st.ListScans(context.Background(), 2, 2)
	if err != nil {
		t.Fatalf("ListScans: %v", err)
	}
	if total != 5 {
		t.Errorf("expected total 5, got %d", total)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].JobID != "job-2" || items[1].JobID != "job-3" {
		t.Errorf("expected window job-2, job-3; got %s, %s", items[0].JobID, items[1].JobID)
	}
}

func TestStore_InsertScan_FillsIDAndCreatedAt(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)

	rec := &model.ScanRecord{JobID: "job-1", URL: "https://example.com/", Status: "processing"}
	if err := st.InsertScan(context.Background(), rec); err != nil {
		t.Fatalf("InsertScan: %v", err)
	}
	if rec.ID == "" {
		t.Error("expected generated ID")
	}
	if rec.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be filled")
	}
}

// ─── History filters ────────────────────────────────────────────────────

func TestStore_QueryHistory_StatusFilter(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)

	seedScan(t, st, "job-done", "https://a.example/", "completed", "", "", 2*time.Hour)
	seedScan(t, st, "job-live", "https://b.example/", "processing", "", "", time.Hour)

	items, total, _, err := st.QueryHistory(context.Background(),
		model.HistoryFilters{Status: "completed"}, 1, 10)
	if err != nil {
		t.Fatalf("QueryHistory: %v", err)
	}
	if total != 1 || len(items) != 1 || items[0].JobID != "job-done" {
		t.Errorf("expected only job-done, got total=%d items=%v", total, items)
	}
}

func TestStore_QueryHistory_ContinentAndTeam(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)

	seedScan(t, st, "job-eu", "https://a.example/", "completed", "EU", "team-1", 3*time.Hour)
	seedScan(t, st, "job-na", "https://b.example/", "completed", "NA", "team-1", 2*time.Hour)
	seedScan(t, st, "job-eu2", "https://c.example/", "completed", "EU", "team-2", time.Hour)

	items, total, _, err := st.QueryHistory(context.Background(),
		model.HistoryFilters{Continent: "EU", TeamID: "team-1"}, 1, 10)
	if err != nil {
		t.Fatalf("QueryHistory: %v", err)
	}
	if total != 1 || len(items) != 1 || items[0].JobID != "job-eu" {
		t.Errorf("expected only job-eu, got total=%d", total)
	}
}

func TestStore_QueryHistory_URLContains(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)

	seedScan(t, st, "job-shop", "https://shop.example.com/", "completed", "", "", 2*time.Hour)
	seedScan(t, st, "job-blog", "https://blog.example.org/", "completed", "", "", time.Hour)

	items, total, _, err := st.QueryHistory(context.Background(),
		model.HistoryFilters{URLContains: "shop"}, 1, 10)
	if err != nil {
		t.Fatalf("QueryHistory: %v", err)
	}
	if total != 1 || len(items) != 1 || items[0].JobID != "job-shop" {
		t.Errorf("expected only job-shop, got total=%d", total)
	}
}

func TestStore_QueryHistory_TimeWindow(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)

	seedScan(t, st, "job-ancient", "https://a.example/", "completed", "", "", 72*time.Hour)
	seedScan(t, st, "job-recent", "https://b.example/", "completed", "", "", time.Hour)

	items, total, _, err := st.QueryHistory(context.Background(),
		model.HistoryFilters{From: time.Now().UTC().Add(-24 * time.Hour)}, 1, 10)
	if err != nil {
		t.Fatalf("QueryHistory: %v", err)
	}
	if total != 1 || len(items) != 1 || items[0].JobID != "job-recent" {
		t.Errorf("expected only job-recent, got total=%d", total)
	}
}

// ─── History pagination ─────────────────────────────────────────────────

func TestStore_QueryHistory_Pagination(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)

	for i := 0; i < 7; i++ {
		seedScan(t, st, jobName(i), "https://example.com/", "completed", "", "", time.Duration(i)*time.Hour)
	}

	for _, tc := range []struct {
		page, want int
		first      string
	}{
		{page: 1, want: 3, first: "job-0"},
		{page: 2, want: 3, first: "job-3"},
		{page: 3, want: 1, first: "job-6"},
	} {
		items, total, limit, err := st.QueryHistory(context.Background(), model.HistoryFilters{}, tc.page, 3)
		if err != nil {
			t.Fatalf("QueryHistory page %d: %v", tc.page, err)
		}
		if total != 7 {
			t.Errorf("page %d: expected total 7, got %d", tc.page, total)
		}
		if limit != 3 {
			t.Errorf("page %d: expected honored limit 3, got %d", tc.page, limit)
		}
		if len(items) != tc.want {
			t.Fatalf("page %d: expected %d items, got %d", tc.page, tc.want, len(items))
		}
		if items[0].JobID != tc.first {
			t.Errorf("page %d: expected first item %s, got %s", tc.page, tc.first, items[0].JobID)
		}
	}
}

func TestStore_QueryHistory_ClampsLimit(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)
	seedScan(t, st, "job-1", "https://example.com/", "completed", "", "", time.Hour)

	_, _, limit, err := st.QueryHistory(context.Background(), model.HistoryFilters{}, 1, 500)
	if err != nil {
		t.Fatalf("QueryHistory: %v", err)
	}
	if limit != MaxPageLimit {
		t.Errorf("expected limit clamped to %d, got %d", MaxPageLimit, limit)
	}

	_, _, limit, err = st.QueryHistory(context.Background(), model.HistoryFilters{}, 1, 0)
	if err != nil {
		t.Fatalf("QueryHistory: %v", err)
	}
	if limit != DefaultPageLimit {
		t.Errorf("expected default limit %d, got %d", DefaultPageLimit, limit)
	}
}

// ─── Finishing scans ────────────────────────────────────────────────────

func TestStore_FinishScan_StampsOutcome(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)
	seedScan(t, st, "job-1", "https://example.com/", "processing", "", "", time.Hour)

	reach, usab := 100.0, 92.5
	completedAt := time.Now().UTC().Truncate(time.Second)
	if err := st.FinishScan(context.Background(), "job-1", "completed", "perfect", &reach, &usab, completedAt); err != nil {
		t.Fatalf("FinishScan: %v", err)
	}

	items, _, err := st.ListScans(context.Background(), 1, 0)
	if err != nil {
		t.Fatalf("ListScans: %v", err)
	}
	got := items[0]
	if got.Status != "completed" || got.State != "perfect" {
		t.Errorf("expected completed/perfect, got %s/%s", got.Status, got.State)
	}
	if got.AvgReachability == nil || *got.AvgReachability != 100 {
		t.Errorf("expected avg reachability 100, got %v", got.AvgReachability)
	}
	if got.AvgUsability == nil || *got.AvgUsability != 92.5 {
		t.Errorf("expected avg usability 92.5, got %v", got.AvgUsability)
	}
	if got.CompletedAt == nil || !got.CompletedAt.Equal(completedAt) {
		t.Errorf("expected completedAt %v, got %v", completedAt, got.CompletedAt)
	}
}

func TestStore_FinishScan_UnknownJob(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)

	err := st.FinishScan(context.Background(), "missing", "completed", "good", nil, nil, time.Now())
	if !errors.Is(err, ErrScanNotFound) {
		t.Errorf("expected ErrScanNotFound, got %v", err)
	}
}

func jobName(i int) string {
	return "job-" + string(rune('0'+i))
}
