package prompt

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	pgdb "github.com/alanyang/promptledger/internal/adapter/postgres"
	"github.com/alanyang/promptledger/internal/domain/apperr"
	domainprompt "github.com/alanyang/promptledger/internal/domain/prompt"
)

const uniqueViolation = "23505"

const (
	promptColumns  = `p.id, p.name, p.description, p.created_at, p.active_version`
	versionColumns = `v.id, v.prompt_id, v.version, v.content, v.parameters, v.created_at`
)

// Repository implements port/prompt.Repository using Postgres.
// Version appends lock the parent prompt row, so numbering is serialised per
// prompt even without the service-level advisory lock; the
// (prompt_id, version) unique constraint is the final backstop.
// Writes run on the transaction carried by ctx when there is one, so a call
// made under the advisory locker never takes a second connection.
type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Create(ctx context.Context, p domainprompt.Prompt, v domainprompt.Version) (domainprompt.Detail, error) {
	var created domainprompt.Detail
	err := pgx.BeginFunc(ctx, r.db(ctx), func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			INSERT INTO prompts AS p (id, name, description, created_at, active_version)
			VALUES ($1, $2, $3, $4, 1)
			RETURNING `+promptColumns,
			p.ID, p.Name, p.Description, p.CreatedAt,
		)
		prompt, err := scanPrompt(row)
		if err != nil {
			if isUniqueViolation(err) {
				return apperr.Conflict("prompt name %q already exists", p.Name)
			}
			return fmt.Errorf("inserting prompt: %w", err)
		}

		row = tx.QueryRow(ctx, `
			INSERT INTO prompt_versions AS v (id, prompt_id, version, content, parameters, created_at)
			VALUES ($1, $2, 1, $3, $4, $5)
			RETURNING `+versionColumns,
			v.ID, prompt.ID, v.Content, v.Parameters, v.CreatedAt,
		)
		first, err := scanVersion(row)
		if err != nil {
			return fmt.Errorf("inserting first version: %w", err)
		}

		created = domainprompt.Detail{Prompt: prompt, Versions: []domainprompt.Version{first}}
		return nil
	})
	if err != nil {
		return domainprompt.Detail{}, err
	}
	return created, nil
}

// GetByID reads the prompt and its versions from one snapshot, so a
// concurrent delete or append is either fully visible or not at all.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (domainprompt.Detail, error) {
	var d domainprompt.Detail
	opts := pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}
	err := pgx.BeginTxFunc(ctx, r.pool, opts, func(tx pgx.Tx) error {
		p, err := scanPrompt(tx.QueryRow(ctx, `SELECT `+promptColumns+` FROM prompts p WHERE p.id = $1`, id))
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound("prompt %s", id)
		}
		if err != nil {
			return fmt.Errorf("querying prompt: %w", err)
		}

		rows, err := tx.Query(ctx, `
			SELECT `+versionColumns+`
			FROM prompt_versions v WHERE v.prompt_id = $1
			ORDER BY v.version DESC`, id)
		if err != nil {
			return fmt.Errorf("querying versions: %w", err)
		}
		versions, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domainprompt.Version, error) {
			return scanVersion(row)
		})
		if err != nil {
			return fmt.Errorf("scanning versions: %w", err)
		}

		d = domainprompt.Detail{Prompt: p, Versions: versions}
		return nil
	})
	if err != nil {
		return domainprompt.Detail{}, err
	}
	return d, nil
}

func (r *Repository) Resolve(ctx context.Context, name string) (domainprompt.Resolved, error) {
	row := r.db(ctx).QueryRow(ctx, `
		SELECT `+promptColumns+`, `+versionColumns+`
		FROM prompts p
		JOIN prompt_versions v ON v.prompt_id = p.id AND v.version = p.active_version
		WHERE p.name = $1`, name)

	var res domainprompt.Resolved
	err := row.Scan(
		&res.ID, &res.Name, &res.Description, &res.CreatedAt, &res.ActiveVersion,
		&res.Active.ID, &res.Active.PromptID, &res.Active.Version, &res.Active.Content, &res.Active.Parameters, &res.Active.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domainprompt.Resolved{}, apperr.NotFound("prompt named %q", name)
	}
	if err != nil {
		return domainprompt.Resolved{}, fmt.Errorf("resolving prompt: %w", err)
	}
	return res, nil
}

func (r *Repository) List(ctx context.Context, filters domainprompt.ListFilters) ([]domainprompt.Summary, error) {
	query := `
		SELECT ` + promptColumns + `, ` + versionColumns + `
		FROM prompts p
		CROSS JOIN LATERAL (
			SELECT * FROM prompt_versions lv
			WHERE lv.prompt_id = p.id
			ORDER BY lv.version DESC LIMIT 1
		) v
		WHERE 1=1`

	args := []any{}
	argIdx := 1

	if filters.Query != "" {
		query += fmt.Sprintf(" AND (p.name ILIKE $%d OR p.description ILIKE $%d)", argIdx, argIdx)
		args = append(args, "%"+escapeLike(filters.Query)+"%")
		argIdx++
	}

	query += fmt.Sprintf(" ORDER BY p.created_at DESC, p.id DESC LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, filters.Limit, filters.Offset)

	rows, err := r.db(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing prompts: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domainprompt.Summary, error) {
		var s domainprompt.Summary
		var latest domainprompt.Version
		err := row.Scan(
			&s.ID, &s.Name, &s.Description, &s.CreatedAt, &s.ActiveVersion,
			&latest.ID, &latest.PromptID, &latest.Version, &latest.Content, &latest.Parameters, &latest.CreatedAt,
		)
		s.LatestVersion = &latest
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning prompts: %w", err)
	}
	return out, nil
}

func (r *Repository) UpdateDescription(ctx context.Context, id uuid.UUID, description *string) (domainprompt.Prompt, error) {
	p, err := scanPrompt(r.db(ctx).QueryRow(ctx, `
		UPDATE prompts AS p SET description = $2 WHERE p.id = $1
		RETURNING `+promptColumns, id, description))
	if errors.Is(err, pgx.ErrNoRows) {
		return domainprompt.Prompt{}, apperr.NotFound("prompt %s", id)
	}
	if err != nil {
		return domainprompt.Prompt{}, fmt.Errorf("updating prompt description: %w", err)
	}
	return p, nil
}

func (r *Repository) AppendVersion(ctx context.Context, v domainprompt.Version) (domainprompt.Version, error) {
	var created domainprompt.Version
	err := pgx.BeginFunc(ctx, r.db(ctx), func(tx pgx.Tx) error {
		var locked uuid.UUID
		err := tx.QueryRow(ctx, `SELECT id FROM prompts WHERE id = $1 FOR UPDATE`, v.PromptID).Scan(&locked)
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound("prompt %s", v.PromptID)
		}
		if err != nil {
			return fmt.Errorf("locking prompt: %w", err)
		}

		created, err = scanVersion(tx.QueryRow(ctx, `
			INSERT INTO prompt_versions AS v (id, prompt_id, version, content, parameters, created_at)
			SELECT $1::uuid, $2::uuid, COALESCE(MAX(version), 0) + 1, $3::text, $4::jsonb, $5::timestamptz
			FROM prompt_versions WHERE prompt_id = $2::uuid
			RETURNING `+versionColumns,
			v.ID, v.PromptID, v.Content, v.Parameters, v.CreatedAt,
		))
		if err != nil {
			if isUniqueViolation(err) {
				return apperr.Conflict("concurrent version append on prompt %s", v.PromptID)
			}
			return fmt.Errorf("inserting version: %w", err)
		}
		return nil
	})
	if err != nil {
		return domainprompt.Version{}, err
	}
	return created, nil
}

func (r *Repository) GetVersion(ctx context.Context, promptID uuid.UUID, version int) (domainprompt.Version, error) {
	v, err := scanVersion(r.db(ctx).QueryRow(ctx, `
		SELECT `+versionColumns+` FROM prompt_versions v
		WHERE v.prompt_id = $1 AND v.version = $2`, promptID, version))
	if errors.Is(err, pgx.ErrNoRows) {
		return domainprompt.Version{}, apperr.NotFound("prompt %s has no version %d", promptID, version)
	}
	if err != nil {
		return domainprompt.Version{}, fmt.Errorf("querying version: %w", err)
	}
	return v, nil
}

// SetActiveVersion is a single conditional UPDATE: the pointer moves only if
// the target version exists.
func (r *Repository) SetActiveVersion(ctx context.Context, id uuid.UUID, version int) (domainprompt.Prompt, error) {
	p, err := scanPrompt(r.db(ctx).QueryRow(ctx, `
		UPDATE prompts AS p SET active_version = $2
		WHERE p.id = $1
		  AND EXISTS (SELECT 1 FROM prompt_versions v WHERE v.prompt_id = p.id AND v.version = $2)
		RETURNING `+promptColumns, id, version))
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domainprompt.Prompt{}, fmt.Errorf("activating version: %w", err)
	}

	var exists bool
	if err := r.db(ctx).QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM prompts WHERE id = $1)`, id).Scan(&exists); err != nil {
		return domainprompt.Prompt{}, fmt.Errorf("checking prompt: %w", err)
	}
	if !exists {
		return domainprompt.Prompt{}, apperr.NotFound("prompt %s", id)
	}
	return domainprompt.Prompt{}, apperr.NotFound("prompt %s has no version %d", id, version)
}

// Delete relies on ON DELETE CASCADE to remove the versions in the same
// statement.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.db(ctx).Exec(ctx, `DELETE FROM prompts WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("deleting prompt: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repository) db(ctx context.Context) pgdb.Querier {
	return pgdb.QuerierFrom(ctx, r.pool)
}

func scanPrompt(row pgx.Row) (domainprompt.Prompt, error) {
	var p domainprompt.Prompt
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt, &p.ActiveVersion)
	return p, err
}

func scanVersion(row pgx.Row) (domainprompt.Version, error) {
	var v domainprompt.Version
	err := row.Scan(&v.ID, &v.PromptID, &v.Version, &v.Content, &v.Parameters, &v.CreatedAt)
	return v, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
