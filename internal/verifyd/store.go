package verifyd

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/raysh454/kakunin/internal/logging"
	"github.com/raysh454/kakunin/internal/model"
)

//go:embed schema.sql
var schemaFS embed.FS

// Page limits enforced server-side. Requests above MaxPageLimit are clamped
// silently; the honored limit is echoed in the response.
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 50
)

var ErrScanNotFound = errors.New("scan not found")

// Store persists scan history rows in SQLite.
type Store struct {
	db     *sql.DB
	logger logging.Logger
}

// NewStore runs migrations from schema.sql and returns the store.
// db should typically be the SQLite DB at DataDir/verifyd.db.
func NewStore(db *sql.DB, logger logging.Logger) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}

	schemaSQL, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return nil, fmt.Errorf("failed to read schema.sql: %w", err)
	}
	if _, err := db.Exec(string(schemaSQL)); err != nil {
		return nil, fmt.Errorf("failed to execute schema: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// InsertScan records a freshly admitted scan. A missing ID or CreatedAt is
// filled in; the caller's record is updated so it can be reused.
func (s *Store) InsertScan(ctx context.Context, rec *model.ScanRecord) error {
	if rec == nil {
		return fmt.Errorf("scan record is nil")
	}
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scans
             (id, job_id, url, status, state, continent, team_id, mode,
              avg_reachability, avg_usability, created_at, completed_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.JobID, rec.URL, rec.Status, rec.State, rec.Continent,
		rec.TeamID, string(rec.Mode),
		nullableFloat(rec.AvgReachability), nullableFloat(rec.AvgUsability),
		rec.CreatedAt.Unix(), nullableUnix(rec.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("insert scan: %w", err)
	}
	return nil
}

// FinishScan stamps the terminal outcome onto the scan row for jobID.
func (s *Store) FinishScan(ctx context.Context, jobID, status, state string, avgReach, avgUsab *float64, completedAt time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE scans
            SET status = ?, state = ?, avg_reachability = ?, avg_usability = ?, completed_at = ?
          WHERE job_id = ?`,
		status, state, nullableFloat(avgReach), nullableFloat(avgUsab),
		completedAt.Unix(), jobID,
	)
	if err != nil {
		return fmt.Errorf("finish scan: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrScanNotFound
	}
	return nil
}

// QueryHistory returns one page of scans matching the filters, newest first,
// plus the total match count and the limit actually honored.
func (s *Store) QueryHistory(ctx context.Context, f model.HistoryFilters, page, limit int) ([]model.ScanRecord, int, int, error) {
	if page < 1 {
		page = 1
	}
	limit = clampPageLimit(limit)

	where, args := historyWhere(f)

	var total int
	countQuery := `SELECT COUNT(*) FROM scans` + where
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, limit, fmt.Errorf("count scans: %w", err)
	}

	query := `SELECT id, job_id, url, status, state, continent, team_id, mode,
                     avg_reachability, avg_usability, created_at, completed_at
                FROM scans` + where + `
               ORDER BY created_at DESC, rowid DESC
               LIMIT ? OFFSET ?`
	args = append(args, limit, (page-1)*limit)

	items, err := s.scanRows(ctx, query, args...)
	if err != nil {
		return nil, 0, limit, err
	}
	return items, total, limit, nil
}

// ListScans serves the legacy offset-based listing, newest first.
func (s *Store) ListScans(ctx context.Context, limit, offset int) ([]model.ScanRecord, int, error) {
	limit = clampPageLimit(limit)
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM scans`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count scans: %w", err)
	}

	items, err := s.scanRows(ctx,
		`SELECT id, job_id, url, status, state, continent, team_id, mode,
                avg_reachability, avg_usability, created_at, completed_at
           FROM scans
          ORDER BY created_at DESC, rowid DESC
          LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *Store) scanRows(ctx context.Context, query string, args ...any) ([]model.ScanRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query scans: %w", err)
	}
	defer rows.Close()

	var out []model.ScanRecord
	for rows.Next() {
		var (
			rec              model.ScanRecord
			state, continent sql.NullString
			teamID, mode     sql.NullString
			avgReach, avgUse sql.NullFloat64
			createdAt        int64
			completedAt      sql.NullInt64
		)
		if err := rows.Scan(&rec.ID, &rec.JobID, &rec.URL, &rec.Status,
			&state, &continent, &teamID, &mode,
			&avgReach, &avgUse, &createdAt, &completedAt); err != nil {
			return nil, err
		}
		rec.State = state.String
		rec.Continent = continent.String
		rec.TeamID = teamID.String
		rec.Mode = model.Mode(mode.String)
		if avgReach.Valid {
			v := avgReach.Float64
			rec.AvgReachability = &v
		}
		if avgUse.Valid {
			v := avgUse.Float64
			rec.AvgUsability = &v
		}
		rec.CreatedAt = time.Unix(createdAt, 0).UTC()
		if completedAt.Valid {
			t := time.Unix(completedAt.Int64, 0).UTC()
			rec.CompletedAt = &t
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// historyWhere builds the WHERE clause for the filter set. Zero-valued
// filters add no predicates.
func historyWhere(f model.HistoryFilters) (string, []any) {
	var preds []string
	var args []any

	if f.Status != "" {
		preds = append(preds, "status = ?")
		args = append(args, f.Status)
	}
	if f.Continent != "" {
		preds = append(preds, "continent = ?")
		args = append(args, f.Continent)
	}
	if f.URLContains != "" {
		preds = append(preds, "url LIKE ?")
		args = append(args, "%"+f.URLContains+"%")
	}
	if f.TeamID != "" {
		preds = append(preds, "team_id = ?")
		args = append(args, f.TeamID)
	}
	if !f.From.IsZero() {
		preds = append(preds, "created_at >= ?")
		args = append(args, f.From.Unix())
	}
	if !f.To.IsZero() {
		preds = append(preds, "created_at <= ?")
		args = append(args, f.To.Unix())
	}

	if len(preds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(preds, " AND "), args
}

func clampPageLimit(limit int) int {
	if limit <= 0 {
		return DefaultPageLimit
	}
	if limit > MaxPageLimit {
		return MaxPageLimit
	}
	return limit
}

func nullableFloat(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullableUnix(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Unix()
}
