package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/covercount/insights-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS restaurants (
	id               TEXT PRIMARY KEY,
	profile          TEXT NOT NULL,
	connections      TEXT NOT NULL DEFAULT '{}',
	facts            TEXT,
	facts_updated_at DATETIME,
	created_at       DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at       DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS daily_sales (
	id            TEXT PRIMARY KEY,
	restaurant_id TEXT NOT NULL REFERENCES restaurants(id),
	date          DATETIME NOT NULL,
	revenue       REAL NOT NULL DEFAULT 0,
	orders        INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS category_sales (
	id            TEXT PRIMARY KEY,
	restaurant_id TEXT NOT NULL REFERENCES restaurants(id),
	date          DATETIME NOT NULL,
	category      TEXT NOT NULL,
	revenue       REAL NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS insights (
	id              TEXT PRIMARY KEY,
	restaurant_id   TEXT NOT NULL REFERENCES restaurants(id),
	title           TEXT NOT NULL,
	content         TEXT NOT NULL,
	key_points      TEXT,
	recommendations TEXT,
	data_quality    TEXT NOT NULL DEFAULT 'standard',
	status          TEXT NOT NULL DEFAULT 'active',
	generated_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS feedback (
	id            TEXT PRIMARY KEY,
	insight_id    TEXT NOT NULL REFERENCES insights(id),
	restaurant_id TEXT NOT NULL REFERENCES restaurants(id),
	rating        TEXT NOT NULL,
	comment       TEXT,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_daily_sales_restaurant_date ON daily_sales(restaurant_id, date);
CREATE UNIQUE INDEX IF NOT EXISTS idx_category_sales_restaurant_date ON category_sales(restaurant_id, date, category);
CREATE INDEX IF NOT EXISTS idx_insights_restaurant ON insights(restaurant_id, generated_at DESC);
CREATE INDEX IF NOT EXISTS idx_insights_status ON insights(status);
CREATE INDEX IF NOT EXISTS idx_feedback_restaurant ON feedback(restaurant_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_feedback_insight ON feedback(insight_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetProfile(ctx context.Context, restaurantID string) (*model.RestaurantProfile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, profile, connections, facts, facts_updated_at, created_at, updated_at
		 FROM restaurants WHERE id = ?`,
		restaurantID,
	)
	return scanProfile(row)
}

func (s *SQLiteStore) SaveProfile(ctx context.Context, profile model.RestaurantProfile) (*model.RestaurantProfile, error) {
	if profile.ID == "" {
		profile.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now
	if profile.Connections == nil {
		profile.Connections = model.ConnectionState{}
	}

	profileJSON, err := json.Marshal(staticProfile(profile))
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal profile")
	}
	connsJSON, err := json.Marshal(profile.Connections)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal connections")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO restaurants (id, profile, connections, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET profile = excluded.profile, updated_at = excluded.updated_at`,
		profile.ID, string(profileJSON), string(connsJSON), profile.CreatedAt, profile.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: save profile")
	}
	return &profile, nil
}

func (s *SQLiteStore) GetConnections(ctx context.Context, restaurantID string) (model.ConnectionState, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT connections FROM restaurants WHERE id = ?`, restaurantID,
	)

	var connsJSON string
	err := row.Scan(&connsJSON)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(ErrNotFound, "restaurant %s", restaurantID)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get connections")
	}

	var conns model.ConnectionState
	if err := json.Unmarshal([]byte(connsJSON), &conns); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal connections")
	}
	return conns, nil
}

func (s *SQLiteStore) SetConnection(ctx context.Context, restaurantID, layerID string, connected bool) error {
	conns, err := s.GetConnections(ctx, restaurantID)
	if err != nil {
		return err
	}
	if conns == nil {
		conns = model.ConnectionState{}
	}
	conns[layerID] = connected

	connsJSON, err := json.Marshal(conns)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal connections")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE restaurants SET connections = ?, updated_at = ? WHERE id = ?`,
		string(connsJSON), time.Now().UTC(), restaurantID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set connection %s/%s", restaurantID, layerID)
	}
	return checkRowsAffected(res, "restaurant", restaurantID)
}

func (s *SQLiteStore) UpdateFacts(ctx context.Context, restaurantID string, facts model.DataFacts, updatedAt time.Time) error {
	factsJSON, err := json.Marshal(facts)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal facts")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE restaurants SET facts = ?, facts_updated_at = ?, updated_at = ? WHERE id = ?`,
		string(factsJSON), updatedAt, time.Now().UTC(), restaurantID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update facts %s", restaurantID)
	}
	return checkRowsAffected(res, "restaurant", restaurantID)
}

func (s *SQLiteStore) ListDailySales(ctx context.Context, restaurantID string, from, to time.Time) ([]model.DailySales, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT date, revenue, orders FROM daily_sales
		 WHERE restaurant_id = ? AND date >= ? AND date <= ?
		 ORDER BY date ASC`,
		restaurantID, from, to,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list daily sales")
	}
	defer rows.Close()

	var sales []model.DailySales
	for rows.Next() {
		var d model.DailySales
		if err := rows.Scan(&d.Date, &d.Revenue, &d.Orders); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan daily sales")
		}
		sales = append(sales, d)
	}
	return sales, eris.Wrap(rows.Err(), "sqlite: list daily sales iterate")
}

func (s *SQLiteStore) ListCategorySales(ctx context.Context, restaurantID string, from, to time.Time) ([]model.CategorySales, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT date, category, revenue FROM category_sales
		 WHERE restaurant_id = ? AND date >= ? AND date <= ?
		 ORDER BY date ASC`,
		restaurantID, from, to,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list category sales")
	}
	defer rows.Close()

	var sales []model.CategorySales
	for rows.Next() {
		var c model.CategorySales
		if err := rows.Scan(&c.Date, &c.Category, &c.Revenue); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan category sales")
		}
		sales = append(sales, c)
	}
	return sales, eris.Wrap(rows.Err(), "sqlite: list category sales iterate")
}

func (s *SQLiteStore) CreateInsight(ctx context.Context, insight model.Insight) (*model.Insight, error) {
	if insight.ID == "" {
		insight.ID = uuid.New().String()
	}
	if insight.Status == "" {
		insight.Status = model.InsightActive
	}
	if insight.GeneratedAt.IsZero() {
		insight.GeneratedAt = time.Now().UTC()
	}

	keyPointsJSON, err := json.Marshal(insight.KeyPoints)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal key points")
	}
	recsJSON, err := json.Marshal(insight.Recommendations)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal recommendations")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO insights (id, restaurant_id, title, content, key_points, recommendations, data_quality, status, generated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		insight.ID, insight.RestaurantID, insight.Title, insight.Content,
		string(keyPointsJSON), string(recsJSON), insight.DataQuality,
		string(insight.Status), insight.GeneratedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert insight")
	}
	return &insight, nil
}

func (s *SQLiteStore) GetInsight(ctx context.Context, insightID string) (*model.Insight, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, restaurant_id, title, content, key_points, recommendations, data_quality, status, generated_at
		 FROM insights WHERE id = ?`,
		insightID,
	)
	return scanInsight(row)
}

func (s *SQLiteStore) ListInsights(ctx context.Context, restaurantID string, limit int) ([]model.Insight, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, restaurant_id, title, content, key_points, recommendations, data_quality, status, generated_at
		 FROM insights WHERE restaurant_id = ?
		 ORDER BY generated_at DESC LIMIT ?`,
		restaurantID, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list insights")
	}
	defer rows.Close()

	var insights []model.Insight
	for rows.Next() {
		in, err := scanInsight(rows)
		if err != nil {
			return nil, err
		}
		insights = append(insights, *in)
	}
	return insights, eris.Wrap(rows.Err(), "sqlite: list insights iterate")
}

func (s *SQLiteStore) UpdateInsightStatus(ctx context.Context, insightID string, status model.InsightStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE insights SET status = ? WHERE id = ?`,
		string(status), insightID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update insight status %s", insightID)
	}
	return checkRowsAffected(res, "insight", insightID)
}

func (s *SQLiteStore) MarkInsightsStale(ctx context.Context, restaurantID string) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE insights SET status = ? WHERE restaurant_id = ? AND status = ?`,
		string(model.InsightStale), restaurantID, string(model.InsightActive),
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: mark insights stale")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

func (s *SQLiteStore) CreateFeedback(ctx context.Context, record model.FeedbackRecord) (*model.FeedbackRecord, error) {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO feedback (id, insight_id, restaurant_id, rating, comment, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		record.ID, record.InsightID, record.RestaurantID, string(record.Rating), record.Comment, record.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert feedback")
	}
	return &record, nil
}

func (s *SQLiteStore) ListFeedback(ctx context.Context, restaurantID string, limit int) ([]model.FeedbackRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, insight_id, restaurant_id, rating, comment, created_at
		 FROM feedback WHERE restaurant_id = ?
		 ORDER BY created_at DESC LIMIT ?`,
		restaurantID, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list feedback")
	}
	defer rows.Close()

	var records []model.FeedbackRecord
	for rows.Next() {
		var f model.FeedbackRecord
		var comment sql.NullString
		if err := rows.Scan(&f.ID, &f.InsightID, &f.RestaurantID, &f.Rating, &comment, &f.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan feedback")
		}
		f.Comment = comment.String
		records = append(records, f)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: list feedback iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

// staticProfile strips the separately-stored columns from the profile blob so
// connections and facts have a single source of truth.
func staticProfile(p model.RestaurantProfile) model.RestaurantProfile {
	p.Connections = nil
	p.Facts = nil
	p.FactsUpdatedAt = nil
	return p
}

func scanProfile(row scannable) (*model.RestaurantProfile, error) {
	var (
		id          string
		profileJSON string
		connsJSON   string
		factsJSON   sql.NullString
		factsAt     sql.NullTime
		createdAt   time.Time
		updatedAt   time.Time
	)

	err := row.Scan(&id, &profileJSON, &connsJSON, &factsJSON, &factsAt, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Wrap(ErrNotFound, "restaurant")
	}
	if err != nil {
		return nil, eris.Wrap(err, "scan profile")
	}

	var p model.RestaurantProfile
	if err := json.Unmarshal([]byte(profileJSON), &p); err != nil {
		return nil, eris.Wrap(err, "unmarshal profile")
	}
	p.ID = id
	p.CreatedAt = createdAt
	p.UpdatedAt = updatedAt

	if err := json.Unmarshal([]byte(connsJSON), &p.Connections); err != nil {
		return nil, eris.Wrap(err, "unmarshal connections")
	}
	if factsJSON.Valid {
		p.Facts = &model.DataFacts{}
		if err := json.Unmarshal([]byte(factsJSON.String), p.Facts); err != nil {
			return nil, eris.Wrap(err, "unmarshal facts")
		}
	}
	if factsAt.Valid {
		t := factsAt.Time.UTC()
		p.FactsUpdatedAt = &t
	}
	return &p, nil
}

func scanInsight(row scannable) (*model.Insight, error) {
	var (
		in            model.Insight
		keyPointsJSON sql.NullString
		recsJSON      sql.NullString
	)

	err := row.Scan(&in.ID, &in.RestaurantID, &in.Title, &in.Content,
		&keyPointsJSON, &recsJSON, &in.DataQuality, &in.Status, &in.GeneratedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Wrap(ErrNotFound, "insight")
	}
	if err != nil {
		return nil, eris.Wrap(err, "scan insight")
	}

	if keyPointsJSON.Valid {
		if err := json.Unmarshal([]byte(keyPointsJSON.String), &in.KeyPoints); err != nil {
			return nil, eris.Wrap(err, "unmarshal key points")
		}
	}
	if recsJSON.Valid {
		if err := json.Unmarshal([]byte(recsJSON.String), &in.Recommendations); err != nil {
			return nil, eris.Wrap(err, "unmarshal recommendations")
		}
	}
	return &in, nil
}
