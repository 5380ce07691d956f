package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/remedyops/k8s-sim-trainer/pkg/models"
)

//go:embed migrations/*.sql
var postgresFS embed.FS

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db  *sql.DB
	dsn string
}

// NewPostgresStore opens the database, configures the pool and applies the schema
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &PostgresStore{
		db:  db,
		dsn: dsn,
	}

	// Run migrations
	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// migrate runs database migrations
func (s *PostgresStore) migrate() error {
	schema, err := postgresFS.ReadFile("migrations/001_postgres_schema.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema: %w", err)
	}

	if _, err := s.db.Exec(string(schema)); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	return nil
}

// SaveRun inserts or finalizes a training run. The trainer writes the row
// once when the run starts and again with the totals when it finishes, so
// the insert doubles as an update.
func (s *PostgresStore) SaveRun(ctx context.Context, run *models.TrainingRun) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}

	query := `
		INSERT INTO training_runs (
			id, cluster_id, namespace, deployment, agent_kind, reward_name,
			episodes, total_reward, started_at, finished_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			episodes = EXCLUDED.episodes,
			total_reward = EXCLUDED.total_reward,
			finished_at = EXCLUDED.finished_at
	`

	var finishedAt *time.Time
	if run.FinishedAt != nil {
		finishedAt = run.FinishedAt
	}

	_, err := s.db.ExecContext(ctx, query,
		run.ID, run.ClusterID, run.Namespace, run.Deploy,
		run.AgentKind, run.RewardName,
		run.Episodes, run.TotalReward, run.StartedAt, finishedAt,
	)

	return err
}

// SaveStep appends one executed step to its run
func (s *PostgresStore) SaveStep(ctx context.Context, step *models.TrainingStep) error {
	if step.CreatedAt.IsZero() {
		step.CreatedAt = time.Now()
	}

	obs, err := json.Marshal(step.Obs)
	if err != nil {
		return fmt.Errorf("failed to encode observation: %w", err)
	}

	query := `
		INSERT INTO training_steps (
			run_id, episode, step_index, action_type, blocked, reward,
			observation, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = s.db.ExecContext(ctx, query,
		step.RunID, step.Episode, step.StepIndex,
		step.ActionType, step.Blocked, step.Reward,
		obs, step.CreatedAt,
	)

	return err
}

// GetRecentRuns lists runs newest first. An empty namespace matches all runs
func (s *PostgresStore) GetRecentRuns(ctx context.Context, namespace string, limit int) ([]*models.TrainingRun, error) {
	query := `
		SELECT id, cluster_id, namespace, deployment, agent_kind, reward_name,
			episodes, total_reward, started_at, finished_at
		FROM training_runs
		WHERE $1 = '' OR namespace = $1
		ORDER BY started_at DESC
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, namespace, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*models.TrainingRun
	for rows.Next() {
		var run models.TrainingRun
		var finishedAt sql.NullTime

		err := rows.Scan(
			&run.ID, &run.ClusterID, &run.Namespace, &run.Deploy,
			&run.AgentKind, &run.RewardName,
			&run.Episodes, &run.TotalReward, &run.StartedAt, &finishedAt,
		)
		if err != nil {
			return nil, err
		}

		if finishedAt.Valid {
			run.FinishedAt = &finishedAt.Time
		}

		runs = append(runs, &run)
	}

	return runs, rows.Err()
}

// GetRunSteps returns every persisted step of a run in execution order
func (s *PostgresStore) GetRunSteps(ctx context.Context, runID string) ([]*models.TrainingStep, error) {
	query := `
		SELECT id, run_id, episode, step_index, action_type, blocked, reward,
			observation, created_at
		FROM training_steps
		WHERE run_id = $1
		ORDER BY episode, step_index
	`

	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var steps []*models.TrainingStep
	for rows.Next() {
		var step models.TrainingStep
		var obs []byte

		err := rows.Scan(
			&step.ID, &step.RunID, &step.Episode, &step.StepIndex,
			&step.ActionType, &step.Blocked, &step.Reward,
			&obs, &step.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		if err := json.Unmarshal(obs, &step.Obs); err != nil {
			return nil, fmt.Errorf("failed to decode observation: %w", err)
		}

		steps = append(steps, &step)
	}

	return steps, rows.Err()
}

// Ping checks database connectivity
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
