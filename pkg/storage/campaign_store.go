package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/matst80/slask-audience/pkg/common/jsoncompat"
	"github.com/matst80/slask-audience/pkg/criteria"
	"github.com/matst80/slask-audience/pkg/storage/migrations"
	"github.com/matst80/slask-audience/pkg/types"
	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("campaign not found")

type columnKind int

const (
	textColumn columnKind = iota
	numberColumn
	listColumn
)

type column struct {
	name string
	kind columnKind
}

var campaignColumns = []column{
	{"name", textColumn},
	{"start_date", textColumn},
	{"end_date", textColumn},
	{"based_on", textColumn},
	{"recency_op", textColumn},
	{"recency_min", numberColumn},
	{"recency_max", numberColumn},
	{"frequency_op", textColumn},
	{"frequency_min", numberColumn},
	{"frequency_max", numberColumn},
	{"monetary_op", textColumn},
	{"monetary_min", numberColumn},
	{"monetary_max", numberColumn},
	{"r_score", listColumn},
	{"f_score", listColumn},
	{"m_score", listColumn},
	{"rfm_segments", listColumn},
	{"rfm_mode", textColumn},
	{"branch", listColumn},
	{"city", listColumn},
	{"state", listColumn},
	{"birthday_start", textColumn},
	{"birthday_end", textColumn},
	{"anniversary_start", textColumn},
	{"anniversary_end", textColumn},
	{"purchase_type", textColumn},
	{"purchase_brand", listColumn},
	{"section", listColumn},
	{"product", listColumn},
	{"model", listColumn},
	{"item", listColumn},
	{"value_threshold", numberColumn},
}

func columnNames() []string {
	ret := make([]string, len(campaignColumns))
	for i, c := range campaignColumns {
		ret[i] = c.name
	}
	return ret
}

// CampaignStore persists campaign criteria in SQLite. List fields are
// stored as JSON text and come back through the flexible record decoder.
type CampaignStore struct {
	sqlDB *sql.DB
	now   func() time.Time
}

// Open opens a SQLite campaign store and applies embedded migrations.
func Open(path string) (*CampaignStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := ApplyMigrations(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &CampaignStore{sqlDB: sqlDB, now: time.Now}, nil
}

func (s *CampaignStore) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *CampaignStore) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return nil
}

// columnValues flattens the payload into one driver value per column.
func columnValues(c *criteria.CampaignCriteria) ([]any, error) {
	if c == nil {
		return nil, fmt.Errorf("campaign criteria is required")
	}
	if strings.TrimSpace(c.Name) == "" {
		return nil, fmt.Errorf("campaign name is required")
	}
	data, err := jsoncompat.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode campaign: %w", err)
	}
	fields := map[string]any{}
	if err := jsoncompat.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("decode campaign: %w", err)
	}
	values := make([]any, len(campaignColumns))
	for i, col := range campaignColumns {
		v, ok := fields[col.name]
		if !ok || v == nil {
			continue
		}
		switch col.kind {
		case listColumn:
			encoded, err := jsoncompat.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("encode %s: %w", col.name, err)
			}
			values[i] = string(encoded)
		case numberColumn:
			if f, ok := v.(float64); ok {
				values[i] = f
			}
		default:
			if str, ok := v.(string); ok && str != "" {
				values[i] = str
			}
		}
	}
	return values, nil
}

// Create inserts a campaign and returns its id.
func (s *CampaignStore) Create(ctx context.Context, c *criteria.CampaignCriteria) (int64, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	values, err := columnValues(c)
	if err != nil {
		return 0, err
	}
	now := s.now().UTC().UnixMilli()
	names := append(columnNames(), "created_at", "updated_at")
	args := append(values, now, now)
	query := "INSERT INTO campaigns (" + strings.Join(names, ", ") + ") VALUES (" +
		strings.TrimSuffix(strings.Repeat("?, ", len(names)), ", ") + ")"
	res, err := s.sqlDB.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("create campaign: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("create campaign id: %w", err)
	}
	return id, nil
}

// Update overwrites every column, fields missing from c are cleared.
func (s *CampaignStore) Update(ctx context.Context, id int64, c *criteria.CampaignCriteria) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	values, err := columnValues(c)
	if err != nil {
		return err
	}
	assignments := make([]string, 0, len(campaignColumns)+1)
	for _, name := range columnNames() {
		assignments = append(assignments, name+" = ?")
	}
	assignments = append(assignments, "updated_at = ?")
	args := append(values, s.now().UTC().UnixMilli(), id)
	res, err := s.sqlDB.ExecContext(ctx, "UPDATE campaigns SET "+strings.Join(assignments, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("update campaign %d: %w", id, err)
	}
	return expectRow(res, id)
}

func (s *CampaignStore) Delete(ctx context.Context, id int64) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	res, err := s.sqlDB.ExecContext(ctx, "DELETE FROM campaigns WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete campaign %d: %w", id, err)
	}
	return expectRow(res, id)
}

func expectRow(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return nil
}

func driverString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case []byte:
		return string(t), true
	}
	return "", false
}

// Get loads one campaign. List columns are handed to the record decoder as
// the JSON text they were stored as.
func (s *CampaignStore) Get(ctx context.Context, id int64) (*CampaignRecord, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	names := columnNames()
	query := "SELECT id, " + strings.Join(names, ", ") + ", created_at, updated_at FROM campaigns WHERE id = ?"
	raw := make([]any, len(names)+3)
	dest := make([]any, len(raw))
	for i := range raw {
		dest[i] = &raw[i]
	}
	if err := s.sqlDB.QueryRowContext(ctx, query, id).Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("get campaign %d: %w", id, err)
	}
	fields := map[string]any{"id": raw[0]}
	for i, name := range names {
		v := raw[i+1]
		if str, ok := driverString(v); ok {
			v = str
		}
		fields[name] = v
	}
	fields["created_at"] = fromMillis(raw[len(raw)-2])
	fields["updated_at"] = fromMillis(raw[len(raw)-1])

	data, err := jsoncompat.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encode campaign %d: %w", id, err)
	}
	return DecodeRecord(data)
}

func fromMillis(v any) time.Time {
	if n, ok := v.(int64); ok {
		return time.UnixMilli(n).UTC()
	}
	return time.Time{}
}

type CampaignSummary struct {
	ID        int64              `json:"id"`
	Name      string             `json:"name"`
	StartDate types.Date         `json:"start_date"`
	EndDate   types.Date         `json:"end_date"`
	BasedOn   types.AudienceMode `json:"based_on"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// List returns campaigns newest first.
func (s *CampaignStore) List(ctx context.Context, limit, offset int) ([]CampaignSummary, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		"SELECT id, name, start_date, end_date, based_on, updated_at FROM campaigns ORDER BY id DESC LIMIT ? OFFSET ?",
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	ret := make([]CampaignSummary, 0)
	for rows.Next() {
		var (
			summary     CampaignSummary
			start, end  sql.NullString
			basedOn     string
			updatedAtMs int64
		)
		if err := rows.Scan(&summary.ID, &summary.Name, &start, &end, &basedOn, &updatedAtMs); err != nil {
			return nil, fmt.Errorf("scan campaign: %w", err)
		}
		summary.StartDate, _ = types.ParseDate(start.String)
		summary.EndDate, _ = types.ParseDate(end.String)
		summary.BasedOn = types.ParseAudienceMode(basedOn)
		summary.UpdatedAt = time.UnixMilli(updatedAtMs).UTC()
		ret = append(ret, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	return ret, nil
}
