package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/predixlabs/crossarb/internal/arbitrage"
)

// PostgresStorage implements Storage using PostgreSQL.
type PostgresStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

// PostgresConfig holds PostgreSQL configuration.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	Logger   *zap.Logger
}

const recordColumns = `
	id, venue_a, market_a, venue_b, market_b,
	side_a, side_b, ask_a, ask_b, fee_a, fee_b,
	total_cost, profit_margin, profit_percent,
	resolution_score, confidence, max_size, detected_at`

// NewPostgresStorage opens and pings a PostgreSQL connection.
func NewPostgresStorage(cfg *PostgresConfig) (*PostgresStorage, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	cfg.Logger.Info("postgres-storage-connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return &PostgresStorage{
		db:     db,
		logger: cfg.Logger,
	}, nil
}

// newPostgresWithDB wires an existing handle; tests use it with sqlmock.
func newPostgresWithDB(db *sql.DB, logger *zap.Logger) *PostgresStorage {
	return &PostgresStorage{db: db, logger: logger}
}

// SaveOpportunity inserts one detected opportunity.
func (p *PostgresStorage) SaveOpportunity(ctx context.Context, opp *arbitrage.Opportunity) error {
	r := toRecord(opp)

	query := `
		INSERT INTO opportunities (` + recordColumns + `
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18
		)
	`

	_, err := p.db.ExecContext(ctx, query,
		r.ID, r.VenueA, r.MarketA, r.VenueB, r.MarketB,
		r.SideA, r.SideB, r.AskA, r.AskB, r.FeeA, r.FeeB,
		r.TotalCost, r.ProfitMargin, r.ProfitPercent,
		r.ResolutionScore, r.Confidence, r.MaxSize, r.DetectedAt,
	)
	if err != nil {
		return fmt.Errorf("insert opportunity: %w", err)
	}

	p.logger.Debug("opportunity-stored",
		zap.String("opportunity-id", r.ID),
		zap.Float64("profit-percent", r.ProfitPercent))

	return nil
}

// GetOpportunities reads stored opportunities per the query. Order columns
// are whitelisted, never interpolated from caller input.
func (p *PostgresStorage) GetOpportunities(ctx context.Context, q Query) ([]*Record, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}

	orderCol := "detected_at"
	if q.OrderBy == "profit" {
		orderCol = "profit_percent"
	}
	direction := "DESC"
	if q.Ascending {
		direction = "ASC"
	}

	query := `SELECT ` + recordColumns + `
		FROM opportunities
		ORDER BY ` + orderCol + ` ` + direction + `
		LIMIT $1`

	rows, err := p.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query opportunities: %w", err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate opportunities: %w", err)
	}
	return out, nil
}

// GetOpportunity reads one opportunity by ID.
func (p *PostgresStorage) GetOpportunity(ctx context.Context, id string) (*Record, error) {
	query := `SELECT ` + recordColumns + `
		FROM opportunities
		WHERE id = $1`

	row := p.db.QueryRowContext(ctx, query, id)
	r, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Close closes the database connection.
func (p *PostgresStorage) Close() error {
	p.logger.Info("closing-postgres-storage")
	return p.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var r Record
	err := row.Scan(
		&r.ID, &r.VenueA, &r.MarketA, &r.VenueB, &r.MarketB,
		&r.SideA, &r.SideB, &r.AskA, &r.AskB, &r.FeeA, &r.FeeB,
		&r.TotalCost, &r.ProfitMargin, &r.ProfitPercent,
		&r.ResolutionScore, &r.Confidence, &r.MaxSize, &r.DetectedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan opportunity: %w", err)
	}
	return &r, nil
}
