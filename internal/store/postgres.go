package store

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Danveyd/NewCatroid/internal/scene"
)

//go:embed schema.sql
var schema string

func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// Postgres is the pgx-backed store.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Migrate creates the tables if they do not exist.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (p *Postgres) CreateUser(ctx context.Context, u User) (User, error) {
	err := p.pool.QueryRow(ctx,
		`INSERT INTO users (id, email, password, display_name)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at`,
		u.ID, u.Email, u.PasswordHash, u.DisplayName,
	).Scan(&u.CreatedAt)
	if err != nil {
		return User{}, mapError("create user", err)
	}
	return u, nil
}

func (p *Postgres) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return p.getUser(ctx, `WHERE email = $1`, email)
}

func (p *Postgres) GetUserByID(ctx context.Context, id string) (User, error) {
	return p.getUser(ctx, `WHERE id = $1`, id)
}

func (p *Postgres) getUser(ctx context.Context, where string, arg string) (User, error) {
	var u User
	err := p.pool.QueryRow(ctx,
		`SELECT id, email, password, display_name, created_at FROM users `+where, arg,
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.DisplayName, &u.CreatedAt)
	if err != nil {
		return User{}, mapError("get user", err)
	}
	return u, nil
}

func (p *Postgres) CreateScene(ctx context.Context, rec SceneRecord) (SceneRecord, error) {
	doc, err := json.Marshal(rec.Scene)
	if err != nil {
		return SceneRecord{}, fmt.Errorf("marshal scene: %w", err)
	}

	err = p.pool.QueryRow(ctx,
		`INSERT INTO scenes (id, owner_id, name, revision, document)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at, updated_at`,
		rec.ID, rec.OwnerID, rec.Scene.Name, int64(rec.Scene.Revision), doc,
	).Scan(&rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return SceneRecord{}, mapError("create scene", err)
	}
	return rec, nil
}

func (p *Postgres) GetScene(ctx context.Context, id string) (SceneRecord, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT id, owner_id, document, created_at, updated_at FROM scenes WHERE id = $1`, id)
	rec, err := scanScene(row)
	if err != nil {
		return SceneRecord{}, mapError("get scene", err)
	}
	return rec, nil
}

func (p *Postgres) ListScenes(ctx context.Context, ownerID string) ([]SceneRecord, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, owner_id, document, created_at, updated_at
		 FROM scenes WHERE owner_id = $1 ORDER BY updated_at DESC`, ownerID)
	if err != nil {
		return nil, mapError("list scenes", err)
	}
	defer rows.Close()

	var out []SceneRecord
	for rows.Next() {
		rec, err := scanScene(rows)
		if err != nil {
			return nil, mapError("scan scene", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("list scenes", err)
	}
	return out, nil
}

// UpdateScene stores rec if the stored scene is still at revision base.
func (p *Postgres) UpdateScene(ctx context.Context, rec SceneRecord, base uint64) (SceneRecord, error) {
	doc, err := json.Marshal(rec.Scene)
	if err != nil {
		return SceneRecord{}, fmt.Errorf("marshal scene: %w", err)
	}

	err = p.pool.QueryRow(ctx,
		`UPDATE scenes SET name = $2, revision = $3, document = $4, updated_at = now()
		 WHERE id = $1 AND revision = $5
		 RETURNING owner_id, created_at, updated_at`,
		rec.ID, rec.Scene.Name, int64(rec.Scene.Revision), doc, int64(base),
	).Scan(&rec.OwnerID, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		if err := p.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM scenes WHERE id = $1)`, rec.ID).Scan(&exists); err != nil {
			return SceneRecord{}, mapError("update scene", err)
		}
		if exists {
			return SceneRecord{}, ErrConflict
		}
		return SceneRecord{}, ErrNotFound
	}
	if err != nil {
		return SceneRecord{}, mapError("update scene", err)
	}
	return rec, nil
}

func (p *Postgres) DeleteScene(ctx context.Context, id string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM scenes WHERE id = $1`, id)
	if err != nil {
		return mapError("delete scene", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanScene(row pgx.Row) (SceneRecord, error) {
	var (
		rec SceneRecord
		doc []byte
	)
	if err := row.Scan(&rec.ID, &rec.OwnerID, &doc, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return SceneRecord{}, err
	}

	var s scene.Scene
	if err := json.Unmarshal(doc, &s); err != nil {
		return SceneRecord{}, fmt.Errorf("decode scene document: %w", err)
	}
	rec.Scene = &s
	return rec, nil
}

func mapError(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if isDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
