package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/carelink/carelink/internal/database/models"
)

// agentRepo implements AgentRepository.
type agentRepo struct {
	db *DB
	q  DBTX
}

const agentColumns = `id, username, password_hash, email, full_name, phone,
	 department, shift, schedulable, active, created_at`

// Create inserts a new reception agent.
func (r *agentRepo) Create(ctx context.Context, agent *models.Agent) error {
	if agent.CreatedAt.IsZero() {
		agent.CreatedAt = time.Now().UTC()
	}
	err := r.q.QueryRowContext(ctx, r.db.rebind(
		`INSERT INTO agents (username, password_hash, email, full_name, phone,
		 department, shift, schedulable, active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`),
		agent.Username, agent.PasswordHash, agent.Email, agent.FullName,
		agent.Phone, agent.Department, agent.Shift, agent.Schedulable,
		agent.Active, agent.CreatedAt,
	).Scan(&agent.ID)
	if err != nil {
		return fmt.Errorf("inserting agent: %w", err)
	}
	return nil
}

// GetByID returns an agent by ID.
func (r *agentRepo) GetByID(ctx context.Context, id int64) (*models.Agent, error) {
	return r.scanOne(r.q.QueryRowContext(ctx, r.db.rebind(
		`SELECT `+agentColumns+` FROM agents WHERE id = ?`), id))
}

// GetByUsername returns an agent by login username.
func (r *agentRepo) GetByUsername(ctx context.Context, username string) (*models.Agent, error) {
	return r.scanOne(r.q.QueryRowContext(ctx, r.db.rebind(
		`SELECT `+agentColumns+` FROM agents WHERE username = ?`), username))
}

// ListActive returns active agents in stable id order.
func (r *agentRepo) ListActive(ctx context.Context) ([]models.Agent, error) {
	return r.list(ctx, `SELECT `+agentColumns+` FROM agents WHERE active = ? ORDER BY id ASC`, true)
}

// List returns all agents in id order.
func (r *agentRepo) List(ctx context.Context) ([]models.Agent, error) {
	return r.list(ctx, `SELECT `+agentColumns+` FROM agents ORDER BY id ASC`)
}

// Update modifies an existing agent.
func (r *agentRepo) Update(ctx context.Context, agent *models.Agent) error {
	_, err := r.q.ExecContext(ctx, r.db.rebind(
		`UPDATE agents SET username = ?, password_hash = ?, email = ?,
		 full_name = ?, phone = ?, department = ?, shift = ?, schedulable = ?,
		 active = ? WHERE id = ?`),
		agent.Username, agent.PasswordHash, agent.Email, agent.FullName,
		agent.Phone, agent.Department, agent.Shift, agent.Schedulable,
		agent.Active, agent.ID,
	)
	if err != nil {
		return fmt.Errorf("updating agent: %w", err)
	}
	return nil
}

// Delete removes an agent account.
func (r *agentRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, r.db.rebind(`DELETE FROM agents WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("deleting agent: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *agentRepo) list(ctx context.Context, query string, args ...any) ([]models.Agent, error) {
	rows, err := r.q.QueryContext(ctx, r.db.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("querying agents: %w", err)
	}
	defer rows.Close()

	var agents []models.Agent
	for rows.Next() {
		var a models.Agent
		if err := scanAgent(rows.Scan, &a); err != nil {
			return nil, fmt.Errorf("scanning agent: %w", err)
		}
		agents = append(agents, a)
	}
	return agents, rows.Err()
}

func (r *agentRepo) scanOne(row *sql.Row) (*models.Agent, error) {
	var a models.Agent
	if err := scanAgent(row.Scan, &a); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning agent: %w", err)
	}
	return &a, nil
}

func scanAgent(scan func(dest ...any) error, a *models.Agent) error {
	return scan(&a.ID, &a.Username, &a.PasswordHash, &a.Email, &a.FullName,
		&a.Phone, &a.Department, &a.Shift, &a.Schedulable, &a.Active, &a.CreatedAt)
}
