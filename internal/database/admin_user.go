package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/carelink/carelink/internal/database/models"
)

// adminUserRepo implements AdminUserRepository.
type adminUserRepo struct {
	db *DB
	q  DBTX
}

// Create inserts a new administrator account.
func (r *adminUserRepo) Create(ctx context.Context, user *models.AdminUser) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	err := r.q.QueryRowContext(ctx, r.db.rebind(
		`INSERT INTO admin_users (username, password_hash, email, created_at)
		 VALUES (?, ?, ?, ?) RETURNING id`),
		user.Username, user.PasswordHash, user.Email, user.CreatedAt,
	).Scan(&user.ID)
	if err != nil {
		return fmt.Errorf("inserting admin user: %w", err)
	}
	return nil
}

// GetByUsername looks up an administrator by username.
func (r *adminUserRepo) GetByUsername(ctx context.Context, username string) (*models.AdminUser, error) {
	row := r.q.QueryRowContext(ctx, r.db.rebind(
		`SELECT id, username, password_hash, email, created_at
		 FROM admin_users WHERE username = ?`), username)

	var u models.AdminUser
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Email, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning admin user: %w", err)
	}
	return &u, nil
}

// Count returns the number of administrator accounts. Used at startup to
// decide whether to seed the initial admin.
func (r *adminUserRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM admin_users`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting admin users: %w", err)
	}
	return n, nil
}
