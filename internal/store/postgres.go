package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/maclay/research-assistant/backend/internal/models"
)

// PostgresStore persists finished research reports.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the research_reports table if it doesn't exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS research_reports (
			id                  BIGSERIAL PRIMARY KEY,
			title               VARCHAR(500) NOT NULL,
			content             TEXT NOT NULL,
			research_type       VARCHAR(20) NOT NULL,
			product_description TEXT NOT NULL DEFAULT '',
			segment             TEXT NOT NULL DEFAULT '',
			research_element    TEXT NOT NULL DEFAULT '',
			benchmarks          TEXT NOT NULL DEFAULT '',
			required_players    TEXT NOT NULL DEFAULT '',
			required_countries  TEXT NOT NULL DEFAULT '',
			session_id          VARCHAR(64) NOT NULL,
			ai_model            VARCHAR(200) NOT NULL,
			processing_time     INTEGER NOT NULL DEFAULT 0,
			tokens_used         INTEGER NOT NULL DEFAULT 0,
			object_key          VARCHAR(500) NOT NULL DEFAULT '',
			created_at          TIMESTAMPTZ DEFAULT NOW()
		)
	`)
	return err
}

// SaveReport inserts a report and returns it with the assigned id.
func (s *PostgresStore) SaveReport(ctx context.Context, r *models.Report) (*models.Report, error) {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO research_reports (
			title, content, research_type, product_description, segment,
			research_element, benchmarks, required_players, required_countries,
			session_id, ai_model, processing_time, tokens_used, object_key
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		RETURNING id, created_at`,
		r.Title, r.Content, r.Kind, r.ProductDescription, r.Segment,
		r.ResearchElement, r.Benchmarks, r.RequiredPlayers, r.RequiredCountries,
		r.SessionID, r.AIModel, r.ProcessingTime, r.TokensUsed, r.ObjectKey,
	).Scan(&r.ID, &r.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("save report: %w", err)
	}
	return r, nil
}

const reportColumns = `id, title, content, research_type, product_description, segment,
	research_element, benchmarks, required_players, required_countries,
	session_id, ai_model, processing_time, tokens_used, object_key, created_at`

// GetReport fetches one report by id.
func (s *PostgresStore) GetReport(ctx context.Context, id int64) (*models.Report, error) {
	var r models.Report
	err := s.pool.QueryRow(ctx,
		`SELECT `+reportColumns+` FROM research_reports WHERE id = $1`, id,
	).Scan(
		&r.ID, &r.Title, &r.Content, &r.Kind, &r.ProductDescription, &r.Segment,
		&r.ResearchElement, &r.Benchmarks, &r.RequiredPlayers, &r.RequiredCountries,
		&r.SessionID, &r.AIModel, &r.ProcessingTime, &r.TokensUsed, &r.ObjectKey, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListReports returns the reports belonging to one session, newest first.
func (s *PostgresStore) ListReports(ctx context.Context, sessionID string) ([]models.Report, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+reportColumns+` FROM research_reports
		 WHERE session_id = $1 ORDER BY created_at DESC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []models.Report
	for rows.Next() {
		var r models.Report
		if err := rows.Scan(
			&r.ID, &r.Title, &r.Content, &r.Kind, &r.ProductDescription, &r.Segment,
			&r.ResearchElement, &r.Benchmarks, &r.RequiredPlayers, &r.RequiredCountries,
			&r.SessionID, &r.AIModel, &r.ProcessingTime, &r.TokensUsed, &r.ObjectKey, &r.CreatedAt,
		); err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

// DeleteReport removes one report by id.
func (s *PostgresStore) DeleteReport(ctx context.Context, id int64) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM research_reports WHERE id = $1`, id)
	return err
}
