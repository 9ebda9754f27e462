package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"parasite-blog/internal/domain"
	"parasite-blog/internal/repository"
)

const createRolesTable = `
CREATE TABLE IF NOT EXISTS roles (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE
);
`

type RoleRepository struct {
	db *sql.DB
}

func NewRoleRepository(db *sql.DB) repository.RoleRepository {
	return &RoleRepository{db: db}
}

// Init creates the roles table and seeds the default roles without touching renamed ones.
func (r *RoleRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createRolesTable); err != nil {
		return fmt.Errorf("create roles table: %w", err)
	}
	for _, role := range domain.DefaultRoles {
		if _, err := r.db.ExecContext(ctx, `INSERT OR IGNORE INTO roles (id, name) VALUES (?, ?)`, role.ID, role.Name); err != nil {
			return fmt.Errorf("seed role %s: %w", role.Name, err)
		}
	}
	return nil
}

func (r *RoleRepository) Create(ctx context.Context, role *domain.Role) (int64, error) {
	res, err := r.db.ExecContext(ctx, `INSERT INTO roles (name) VALUES (?)`, role.Name)
	if err != nil {
		return 0, wrapWrite("insert role", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("role last insert id: %w", err)
	}
	role.ID = id
	return id, nil
}

func (r *RoleRepository) Get(ctx context.Context, id int64) (*domain.Role, error) {
	var role domain.Role
	err := r.db.QueryRowContext(ctx, `SELECT id, name FROM roles WHERE id = ?`, id).Scan(&role.ID, &role.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("role %d: %w", id, repository.ErrNotFound)
		}
		return nil, fmt.Errorf("scan role: %w", err)
	}
	return &role, nil
}

func (r *RoleRepository) List(ctx context.Context) ([]domain.Role, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM roles ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	defer rows.Close()

	var roles []domain.Role
	for rows.Next() {
		var role domain.Role
		if err := rows.Scan(&role.ID, &role.Name); err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate roles: %w", err)
	}
	return roles, nil
}

func (r *RoleRepository) Update(ctx context.Context, role *domain.Role) error {
	res, err := r.db.ExecContext(ctx, `UPDATE roles SET name = ? WHERE id = ?`, role.Name, role.ID)
	if err != nil {
		return wrapWrite("update role", err)
	}
	return affectedOne(res, "update role")
}

func (r *RoleRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM roles WHERE id = ?`, id)
	if err != nil {
		return wrapWrite("delete role", err)
	}
	return affectedOne(res, "delete role")
}
