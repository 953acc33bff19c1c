package prompt

import (
	"context"

	"github.com/google/uuid"

	domainprompt "github.com/alanyang/promptledger/internal/domain/prompt"
)

// Repository is the storage abstraction for prompts and their version history.
// Implementations report missing rows with apperr.ErrNotFound and duplicate
// names with apperr.ErrConflict; every other failure is an infrastructure error.
type Repository interface {
	// Create stores p together with v as version 1, atomically.
	Create(ctx context.Context, p domainprompt.Prompt, v domainprompt.Version) (domainprompt.Detail, error)

	GetByID(ctx context.Context, id uuid.UUID) (domainprompt.Detail, error)

	// Resolve returns the prompt named name with its active version, read as of
	// a single point in time.
	Resolve(ctx context.Context, name string) (domainprompt.Resolved, error)

	List(ctx context.Context, filters domainprompt.ListFilters) ([]domainprompt.Summary, error)

	UpdateDescription(ctx context.Context, id uuid.UUID, description *string) (domainprompt.Prompt, error)

	// AppendVersion assigns v.Version = max(existing)+1 under a per-prompt
	// serialisation guarantee and stores v. It never touches active_version.
	AppendVersion(ctx context.Context, v domainprompt.Version) (domainprompt.Version, error)

	GetVersion(ctx context.Context, promptID uuid.UUID, version int) (domainprompt.Version, error)

	// SetActiveVersion is an atomic check-and-set: it succeeds only if the
	// version exists for the prompt.
	SetActiveVersion(ctx context.Context, id uuid.UUID, version int) (domainprompt.Prompt, error)

	// Delete removes the prompt and all of its versions. It reports whether a
	// row was removed.
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

// Resolver is the registry's read contract used by the run ledger to snapshot
// a prompt's active version.
type Resolver interface {
	ResolvePrompt(ctx context.Context, name string) (domainprompt.Resolved, error)
}
