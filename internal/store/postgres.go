package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/covercount/insights-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses; pgxmock satisfies it in
// unit tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hot store operations.
var preparedStatements = map[string]string{
	"get_profile":      `SELECT id, profile, connections, facts, facts_updated_at, created_at, updated_at FROM restaurants WHERE id = $1`,
	"get_connections":  `SELECT connections FROM restaurants WHERE id = $1`,
	"update_facts":     `UPDATE restaurants SET facts = $1, facts_updated_at = $2, updated_at = $3 WHERE id = $4`,
	"list_daily_sales": `SELECT date, revenue, orders FROM daily_sales WHERE restaurant_id = $1 AND date >= $2 AND date <= $3 ORDER BY date ASC`,
	"insert_insight":   `INSERT INTO insights (id, restaurant_id, title, content, key_points, recommendations, data_quality, status, generated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
	"list_insights":    `SELECT id, restaurant_id, title, content, key_points, recommendations, data_quality, status, generated_at FROM insights WHERE restaurant_id = $1 ORDER BY generated_at DESC LIMIT $2`,
	"insert_feedback":  `INSERT INTO feedback (id, insight_id, restaurant_id, rating, comment, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
	"list_feedback":    `SELECT id, insight_id, restaurant_id, rating, comment, created_at FROM feedback WHERE restaurant_id = $1 ORDER BY created_at DESC LIMIT $2`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS restaurants (
	id               TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	profile          JSONB NOT NULL,
	connections      JSONB NOT NULL DEFAULT '{}',
	facts            JSONB,
	facts_updated_at TIMESTAMPTZ,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS daily_sales (
	id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	restaurant_id TEXT NOT NULL REFERENCES restaurants(id),
	date          TIMESTAMPTZ NOT NULL,
	revenue       DOUBLE PRECISION NOT NULL DEFAULT 0,
	orders        INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS category_sales (
	id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	restaurant_id TEXT NOT NULL REFERENCES restaurants(id),
	date          TIMESTAMPTZ NOT NULL,
	category      TEXT NOT NULL,
	revenue       DOUBLE PRECISION NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS insights (
	id              TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	restaurant_id   TEXT NOT NULL REFERENCES restaurants(id),
	title           TEXT NOT NULL,
	content         TEXT NOT NULL,
	key_points      JSONB,
	recommendations JSONB,
	data_quality    TEXT NOT NULL DEFAULT 'standard',
	status          TEXT NOT NULL DEFAULT 'active',
	generated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS feedback (
	id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	insight_id    TEXT NOT NULL REFERENCES insights(id),
	restaurant_id TEXT NOT NULL REFERENCES restaurants(id),
	rating        TEXT NOT NULL,
	comment       TEXT,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_daily_sales_restaurant_date ON daily_sales(restaurant_id, date);
CREATE UNIQUE INDEX IF NOT EXISTS idx_category_sales_restaurant_date ON category_sales(restaurant_id, date, category);
CREATE INDEX IF NOT EXISTS idx_insights_restaurant ON insights(restaurant_id, generated_at DESC);
CREATE INDEX IF NOT EXISTS idx_insights_status ON insights(status);
CREATE INDEX IF NOT EXISTS idx_feedback_restaurant ON feedback(restaurant_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_feedback_insight ON feedback(insight_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) GetProfile(ctx context.Context, restaurantID string) (*model.RestaurantProfile, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, profile, connections, facts, facts_updated_at, created_at, updated_at FROM restaurants WHERE id = $1`,
		restaurantID,
	)

	var (
		id          string
		profileJSON []byte
		connsJSON   []byte
		factsJSON   []byte
		factsAt     *time.Time
		createdAt   time.Time
		updatedAt   time.Time
	)
	err := row.Scan(&id, &profileJSON, &connsJSON, &factsJSON, &factsAt, &createdAt, &updatedAt)
	if err == pgx.ErrNoRows {
		return nil, eris.Wrap(ErrNotFound, "restaurant")
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get profile")
	}

	var p model.RestaurantProfile
	if err := json.Unmarshal(profileJSON, &p); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal profile")
	}
	p.ID = id
	p.CreatedAt = createdAt
	p.UpdatedAt = updatedAt
	if err := json.Unmarshal(connsJSON, &p.Connections); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal connections")
	}
	if len(factsJSON) > 0 {
		p.Facts = &model.DataFacts{}
		if err := json.Unmarshal(factsJSON, p.Facts); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal facts")
		}
	}
	if factsAt != nil {
		t := factsAt.UTC()
		p.FactsUpdatedAt = &t
	}
	return &p, nil
}

func (s *PostgresStore) SaveProfile(ctx context.Context, profile model.RestaurantProfile) (*model.RestaurantProfile, error) {
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
		return nil, eris.Wrap(err, "postgres: marshal profile")
	}
	connsJSON, err := json.Marshal(profile.Connections)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal connections")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO restaurants (id, profile, connections, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET profile = EXCLUDED.profile, updated_at = EXCLUDED.updated_at`,
		profile.ID, profileJSON, connsJSON, profile.CreatedAt, profile.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: save profile")
	}
	return &profile, nil
}

func (s *PostgresStore) GetConnections(ctx context.Context, restaurantID string) (model.ConnectionState, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT connections FROM restaurants WHERE id = $1`, restaurantID,
	)

	var connsJSON []byte
	err := row.Scan(&connsJSON)
	if err == pgx.ErrNoRows {
		return nil, eris.Wrapf(ErrNotFound, "restaurant %s", restaurantID)
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get connections")
	}

	var conns model.ConnectionState
	if err := json.Unmarshal(connsJSON, &conns); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal connections")
	}
	return conns, nil
}

func (s *PostgresStore) SetConnection(ctx context.Context, restaurantID, layerID string, connected bool) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE restaurants
		 SET connections = jsonb_set(connections, ARRAY[$1], to_jsonb($2::boolean)), updated_at = now()
		 WHERE id = $3`,
		layerID, connected, restaurantID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set connection %s/%s", restaurantID, layerID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "restaurant %s", restaurantID)
	}
	return nil
}

func (s *PostgresStore) UpdateFacts(ctx context.Context, restaurantID string, facts model.DataFacts, updatedAt time.Time) error {
	factsJSON, err := json.Marshal(facts)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal facts")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE restaurants SET facts = $1, facts_updated_at = $2, updated_at = $3 WHERE id = $4`,
		factsJSON, updatedAt, time.Now().UTC(), restaurantID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update facts %s", restaurantID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "restaurant %s", restaurantID)
	}
	return nil
}

func (s *PostgresStore) ListDailySales(ctx context.Context, restaurantID string, from, to time.Time) ([]model.DailySales, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT date, revenue, orders FROM daily_sales WHERE restaurant_id = $1 AND date >= $2 AND date <= $3 ORDER BY date ASC`,
		restaurantID, from, to,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list daily sales")
	}
	defer rows.Close()

	var sales []model.DailySales
	for rows.Next() {
		var d model.DailySales
		if err := rows.Scan(&d.Date, &d.Revenue, &d.Orders); err != nil {
			return nil, eris.Wrap(err, "postgres: scan daily sales")
		}
		sales = append(sales, d)
	}
	return sales, eris.Wrap(rows.Err(), "postgres: list daily sales iterate")
}

func (s *PostgresStore) ListCategorySales(ctx context.Context, restaurantID string, from, to time.Time) ([]model.CategorySales, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT date, category, revenue FROM category_sales WHERE restaurant_id = $1 AND date >= $2 AND date <= $3 ORDER BY date ASC`,
		restaurantID, from, to,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list category sales")
	}
	defer rows.Close()

	var sales []model.CategorySales
	for rows.Next() {
		var c model.CategorySales
		if err := rows.Scan(&c.Date, &c.Category, &c.Revenue); err != nil {
			return nil, eris.Wrap(err, "postgres: scan category sales")
		}
		sales = append(sales, c)
	}
	return sales, eris.Wrap(rows.Err(), "postgres: list category sales iterate")
}

func (s *PostgresStore) CreateInsight(ctx context.Context, insight model.Insight) (*model.Insight, error) {
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
		return nil, eris.Wrap(err, "postgres: marshal key points")
	}
	recsJSON, err := json.Marshal(insight.Recommendations)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal recommendations")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO insights (id, restaurant_id, title, content, key_points, recommendations, data_quality, status, generated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		insight.ID, insight.RestaurantID, insight.Title, insight.Content,
		keyPointsJSON, recsJSON, insight.DataQuality, string(insight.Status), insight.GeneratedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert insight")
	}
	return &insight, nil
}

func (s *PostgresStore) GetInsight(ctx context.Context, insightID string) (*model.Insight, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, restaurant_id, title, content, key_points, recommendations, data_quality, status, generated_at FROM insights WHERE id = $1`,
		insightID,
	)
	in, err := scanPgInsight(row)
	if err != nil {
		return nil, err
	}
	return in, nil
}

func (s *PostgresStore) ListInsights(ctx context.Context, restaurantID string, limit int) ([]model.Insight, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, restaurant_id, title, content, key_points, recommendations, data_quality, status, generated_at FROM insights WHERE restaurant_id = $1 ORDER BY generated_at DESC LIMIT $2`,
		restaurantID, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list insights")
	}
	defer rows.Close()

	var insights []model.Insight
	for rows.Next() {
		in, err := scanPgInsight(rows)
		if err != nil {
			return nil, err
		}
		insights = append(insights, *in)
	}
	return insights, eris.Wrap(rows.Err(), "postgres: list insights iterate")
}

func (s *PostgresStore) UpdateInsightStatus(ctx context.Context, insightID string, status model.InsightStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE insights SET status = $1 WHERE id = $2`,
		string(status), insightID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update insight status %s", insightID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "insight %s", insightID)
	}
	return nil
}

func (s *PostgresStore) MarkInsightsStale(ctx context.Context, restaurantID string) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE insights SET status = $1 WHERE restaurant_id = $2 AND status = $3`,
		string(model.InsightStale), restaurantID, string(model.InsightActive),
	)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: mark insights stale")
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) CreateFeedback(ctx context.Context, record model.FeedbackRecord) (*model.FeedbackRecord, error) {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO feedback (id, insight_id, restaurant_id, rating, comment, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		record.ID, record.InsightID, record.RestaurantID, string(record.Rating), record.Comment, record.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert feedback")
	}
	return &record, nil
}

func (s *PostgresStore) ListFeedback(ctx context.Context, restaurantID string, limit int) ([]model.FeedbackRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, insight_id, restaurant_id, rating, comment, created_at FROM feedback WHERE restaurant_id = $1 ORDER BY created_at DESC LIMIT $2`,
		restaurantID, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list feedback")
	}
	defer rows.Close()

	var records []model.FeedbackRecord
	for rows.Next() {
		var f model.FeedbackRecord
		var comment *string
		if err := rows.Scan(&f.ID, &f.InsightID, &f.RestaurantID, &f.Rating, &comment, &f.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan feedback")
		}
		if comment != nil {
			f.Comment = *comment
		}
		records = append(records, f)
	}
	return records, eris.Wrap(rows.Err(), "postgres: list feedback iterate")
}

func scanPgInsight(row pgx.Row) (*model.Insight, error) {
	var (
		in            model.Insight
		keyPointsJSON []byte
		recsJSON      []byte
	)

	err := row.Scan(&in.ID, &in.RestaurantID, &in.Title, &in.Content,
		&keyPointsJSON, &recsJSON, &in.DataQuality, &in.Status, &in.GeneratedAt)
	if err == pgx.ErrNoRows {
		return nil, eris.Wrap(ErrNotFound, "insight")
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan insight")
	}

	if len(keyPointsJSON) > 0 {
		if err := json.Unmarshal(keyPointsJSON, &in.KeyPoints); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal key points")
		}
	}
	if len(recsJSON) > 0 {
		if err := json.Unmarshal(recsJSON, &in.Recommendations); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal recommendations")
		}
	}
	return &in, nil
}
