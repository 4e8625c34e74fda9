package adapters

import (
	"context"
	"fmt"

	"github.com/Melaeke/omim/internal/features/banners/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

const statsSchema = `
CREATE TABLE IF NOT EXISTS banner_statistics (
	placement_id TEXT   NOT NULL,
	banner_type  TEXT   NOT NULL,
	shows        BIGINT NOT NULL DEFAULT 0,
	clicks       BIGINT NOT NULL DEFAULT 0,
	PRIMARY KEY (placement_id, banner_type)
)`

// PostgresStatsRepository implements ports.StatsRepository on a pgx pool.
type PostgresStatsRepository struct {
	db *pgxpool.Pool
}

// NewPostgresStatsRepository connects to connString and makes sure the statistics table exists.
func NewPostgresStatsRepository(ctx context.Context, connString string) (*PostgresStatsRepository, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse conn string: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if _, err := pool.Exec(ctx, statsSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create statistics table: %w", err)
	}

	return &PostgresStatsRepository{db: pool}, nil
}

func (r *PostgresStatsRepository) RecordShow(ctx context.Context, placementID string, bannerType domain.BannerType) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO banner_statistics (placement_id, banner_type, shows)
		VALUES ($1, $2, 1)
		ON CONFLICT (placement_id, banner_type)
		DO UPDATE SET shows = banner_statistics.shows + 1`,
		placementID, string(bannerType),
	)
	if err != nil {
		return fmt.Errorf("failed to record show: %w", err)
	}
	return nil
}

func (r *PostgresStatsRepository) RecordClick(ctx context.Context, placementID string, bannerType domain.BannerType) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO banner_statistics (placement_id, banner_type, clicks)
		VALUES ($1, $2, 1)
		ON CONFLICT (placement_id, banner_type)
		DO UPDATE SET clicks = banner_statistics.clicks + 1`,
		placementID, string(bannerType),
	)
	if err != nil {
		return fmt.Errorf("failed to record click: %w", err)
	}
	return nil
}

func (r *PostgresStatsRepository) GetStats(ctx context.Context, placementID string) ([]domain.BannerStat, error) {
	rows, err := r.db.Query(ctx, `
		SELECT banner_type, shows, clicks
		FROM banner_statistics
		WHERE placement_id = $1
		ORDER BY banner_type`,
		placementID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query stats: %w", err)
	}
	defer rows.Close()

	var stats []domain.BannerStat
	for rows.Next() {
		var (
			bannerType    string
			shows, clicks int64
		)
		if err := rows.Scan(&bannerType, &shows, &clicks); err != nil {
			return nil, fmt.Errorf("failed to scan stats row: %w", err)
		}
		stats = append(stats, domain.BannerStat{
			BannerType: domain.BannerType(bannerType),
			Shows:      int(shows),
			Clicks:     int(clicks),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return stats, nil
}

// Ping checks the database connection.
func (r *PostgresStatsRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func (r *PostgresStatsRepository) Close() error {
	r.db.Close()
	return nil
}
