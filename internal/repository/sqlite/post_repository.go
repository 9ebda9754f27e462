package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"parasite-blog/internal/domain"
	"parasite-blog/internal/repository"
)

const createPostsTable = `
CREATE TABLE IF NOT EXISTS posts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	content TEXT NOT NULL,
	image_url TEXT NOT NULL DEFAULT '',
	attachments TEXT NOT NULL DEFAULT '',
	validated INTEGER NOT NULL DEFAULT 0,
	author_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	parasite_agent_id INTEGER NULL REFERENCES parasite_agents(id) ON DELETE RESTRICT,
	host_id INTEGER NULL REFERENCES hosts(id) ON DELETE RESTRICT,
	transmission_id INTEGER NULL REFERENCES transmissions(id) ON DELETE RESTRICT,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
`

const selectPostView = `
SELECT p.id, p.title, p.content, p.image_url, p.attachments, p.validated, p.author_id,
	p.parasite_agent_id, p.host_id, p.transmission_id, p.created_at, p.updated_at,
	u.name, pa.name, h.name, t.name
FROM posts p
LEFT JOIN users u ON u.id = p.author_id
LEFT JOIN parasite_agents pa ON pa.id = p.parasite_agent_id
LEFT JOIN hosts h ON h.id = p.host_id
LEFT JOIN transmissions t ON t.id = p.transmission_id`

type PostRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) repository.PostRepository {
	return &PostRepository{db: db}
}

func (r *PostRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createPostsTable); err != nil {
		return fmt.Errorf("create posts table: %w", err)
	}
	if err := r.ensurePostColumns(ctx); err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_posts_validated ON posts(validated)`); err != nil {
		return fmt.Errorf("create posts index: %w", err)
	}
	return nil
}

// ensurePostColumns upgrades databases created before attachments and edit tracking existed.
func (r *PostRepository) ensurePostColumns(ctx context.Context) error {
	rows, err := r.db.QueryContext(ctx, `PRAGMA table_info(posts)`)
	if err != nil {
		return fmt.Errorf("describe posts table: %w", err)
	}
	defer rows.Close()

	columns := map[string]struct{}{}
	for rows.Next() {
		var (
			cid       int
			name      string
			ctype     string
			notnull   int
			dfltValue any
			pk        int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			return fmt.Errorf("scan pragma table info: %w", err)
		}
		columns[name] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate pragma table info: %w", err)
	}
	rows.Close()

	addColumn := func(name, statement string) error {
		if _, exists := columns[name]; exists {
			return nil
		}
		if _, err := r.db.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("add column %s: %w", name, err)
		}
		return nil
	}

	if err := addColumn("attachments", `ALTER TABLE posts ADD COLUMN attachments TEXT NOT NULL DEFAULT ''`); err != nil {
		return err
	}
	if err := addColumn("updated_at", `ALTER TABLE posts ADD COLUMN updated_at DATETIME NULL`); err != nil {
		return err
	}
	return nil
}

func (r *PostRepository) Create(ctx context.Context, post *domain.Post) (int64, error) {
	now := time.Now().UTC()
	post.CreatedAt = now
	post.UpdatedAt = now

	res, err := r.db.ExecContext(ctx, `
INSERT INTO posts (title, content, image_url, attachments, validated, author_id, parasite_agent_id, host_id, transmission_id, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		post.Title,
		post.Content,
		post.ImageURL,
		post.Attachments,
		post.Validated,
		post.AuthorID,
		post.ParasiteAgentID,
		post.HostID,
		post.TransmissionID,
		post.CreatedAt,
		post.UpdatedAt,
	)
	if err != nil {
		return 0, wrapWrite("insert post", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("post last insert id: %w", err)
	}
	post.ID = id
	return id, nil
}

func (r *PostRepository) Get(ctx context.Context, id int64) (*domain.Post, error) {
	row := r.db.QueryRowContext(ctx, selectPostView+`
WHERE p.id = ?`, id)
	view, err := scanPostView(row)
	if err != nil {
		return nil, err
	}
	return &view.Post, nil
}

func (r *PostRepository) List(ctx context.Context, filter domain.PostFilter) ([]domain.PostView, error) {
	var (
		where []string
		args  []any
	)
	if filter.Validated != nil {
		where = append(where, "p.validated = ?")
		args = append(args, *filter.Validated)
	}
	if filter.AuthorID != nil {
		where = append(where, "p.author_id = ?")
		args = append(args, *filter.AuthorID)
	}

	query := selectPostView
	if len(where) > 0 {
		query += "\nWHERE " + strings.Join(where, " AND ")
	}
	query += "\nORDER BY p.created_at DESC, p.id DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	var posts []domain.PostView
	for rows.Next() {
		view, err := scanPostView(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *view)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}
	return posts, nil
}

func (r *PostRepository) Update(ctx context.Context, post *domain.Post) error {
	post.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
UPDATE posts
SET title = ?, content = ?, image_url = ?, attachments = ?, parasite_agent_id = ?, host_id = ?, transmission_id = ?, updated_at = ?
WHERE id = ?`,
		post.Title,
		post.Content,
		post.ImageURL,
		post.Attachments,
		post.ParasiteAgentID,
		post.HostID,
		post.TransmissionID,
		post.UpdatedAt,
		post.ID,
	)
	if err != nil {
		return wrapWrite("update post", err)
	}
	return affectedOne(res, "update post")
}

func (r *PostRepository) SetValidated(ctx context.Context, id int64, validated bool) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE posts SET validated = ?, updated_at = ? WHERE id = ?`,
		validated,
		time.Now().UTC(),
		id,
	)
	if err != nil {
		return fmt.Errorf("update post validation: %w", err)
	}
	return affectedOne(res, "update post validation")
}

func (r *PostRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return wrapWrite("delete post", err)
	}
	return affectedOne(res, "delete post")
}

func scanPostView(row scanner) (*domain.PostView, error) {
	var (
		view       domain.PostView
		agentID    sql.NullInt64
		hostID     sql.NullInt64
		transID    sql.NullInt64
		updatedAt  sql.NullTime
		authorName sql.NullString
		agentName  sql.NullString
		hostName   sql.NullString
		transName  sql.NullString
	)
	if err := row.Scan(
		&view.ID,
		&view.Title,
		&view.Content,
		&view.ImageURL,
		&view.Attachments,
		&view.Validated,
		&view.AuthorID,
		&agentID,
		&hostID,
		&transID,
		&view.CreatedAt,
		&updatedAt,
		&authorName,
		&agentName,
		&hostName,
		&transName,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("post: %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("scan post: %w", err)
	}

	view.ParasiteAgentID = nullableID(agentID)
	view.HostID = nullableID(hostID)
	view.TransmissionID = nullableID(transID)
	view.UpdatedAt = view.CreatedAt
	if updatedAt.Valid {
		view.UpdatedAt = updatedAt.Time
	}
	view.AuthorName = authorName.String
	view.ParasiteAgentName = agentName.String
	view.HostName = hostName.String
	view.TransmissionName = transName.String
	return &view, nil
}

func nullableID(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	id := v.Int64
	return &id
}
