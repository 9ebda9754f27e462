package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"parasite-blog/internal/domain"
	"parasite-blog/internal/repository"
)

var referenceTables = map[domain.ReferenceKind]string{
	domain.ReferenceHost:          "hosts",
	domain.ReferenceParasiteAgent: "parasite_agents",
	domain.ReferenceTransmission:  "transmissions",
}

// ReferenceRepository backs one taxonomy table. All kinds share the same shape.
type ReferenceRepository struct {
	db    *sql.DB
	kind  domain.ReferenceKind
	table string
}

func NewReferenceRepository(db *sql.DB, kind domain.ReferenceKind) (repository.ReferenceRepository, error) {
	table, ok := referenceTables[kind]
	if !ok {
		return nil, fmt.Errorf("unknown reference kind %q", kind)
	}
	return &ReferenceRepository{db: db, kind: kind, table: table}, nil
}

func (r *ReferenceRepository) Init(ctx context.Context) error {
	stmt := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE
);
`, r.table)
	if _, err := r.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("create %s table: %w", r.table, err)
	}
	return nil
}

func (r *ReferenceRepository) Kind() domain.ReferenceKind {
	return r.kind
}

func (r *ReferenceRepository) Create(ctx context.Context, entity *domain.ReferenceEntity) (int64, error) {
	res, err := r.db.ExecContext(ctx, `INSERT INTO `+r.table+` (name) VALUES (?)`, entity.Name)
	if err != nil {
		return 0, wrapWrite("insert "+string(r.kind), err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%s last insert id: %w", r.kind, err)
	}
	entity.ID = id
	entity.Kind = r.kind
	return id, nil
}

func (r *ReferenceRepository) Get(ctx context.Context, id int64) (*domain.ReferenceEntity, error) {
	entity := domain.ReferenceEntity{Kind: r.kind}
	err := r.db.QueryRowContext(ctx, `SELECT id, name FROM `+r.table+` WHERE id = ?`, id).Scan(&entity.ID, &entity.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s %d: %w", r.kind, id, repository.ErrNotFound)
		}
		return nil, fmt.Errorf("scan %s: %w", r.kind, err)
	}
	return &entity, nil
}

func (r *ReferenceRepository) List(ctx context.Context) ([]domain.ReferenceEntity, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM `+r.table+` ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", r.table, err)
	}
	defer rows.Close()

	var entities []domain.ReferenceEntity
	for rows.Next() {
		entity := domain.ReferenceEntity{Kind: r.kind}
		if err := rows.Scan(&entity.ID, &entity.Name); err != nil {
			return nil, fmt.Errorf("scan %s: %w", r.kind, err)
		}
		entities = append(entities, entity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", r.table, err)
	}
	return entities, nil
}

func (r *ReferenceRepository) Update(ctx context.Context, entity *domain.ReferenceEntity) error {
	res, err := r.db.ExecContext(ctx, `UPDATE `+r.table+` SET name = ? WHERE id = ?`, entity.Name, entity.ID)
	if err != nil {
		return wrapWrite("update "+string(r.kind), err)
	}
	return affectedOne(res, "update "+string(r.kind))
}

func (r *ReferenceRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM `+r.table+` WHERE id = ?`, id)
	if err != nil {
		return wrapWrite("delete "+string(r.kind), err)
	}
	return affectedOne(res, "delete "+string(r.kind))
}
