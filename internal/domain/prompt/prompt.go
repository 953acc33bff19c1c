package prompt

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alanyang/promptledger/internal/domain/apperr"
)

// MaxNameLength matches the width of prompts.name.
const MaxNameLength = 200

// Prompt is a named template record. ActiveVersion always names an existing
// Version owned by the prompt.
type Prompt struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Description   *string   `json:"description"`
	CreatedAt     time.Time `json:"created_at"`
	ActiveVersion int       `json:"active_version"`
}

// Version is an immutable snapshot of prompt content. Numbers are assigned by
// storage at write time: 1..N per prompt, gapless, never reused.
type Version struct {
	ID         uuid.UUID      `json:"id"`
	PromptID   uuid.UUID      `json:"prompt_id"`
	Version    int            `json:"version"`
	Content    string         `json:"content"`
	Parameters map[string]any `json:"parameters"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Detail is a prompt with its full version history, newest version first.
type Detail struct {
	Prompt
	Versions []Version `json:"versions"`
}

// Summary is the list view of a prompt.
type Summary struct {
	Prompt
	LatestVersion *Version `json:"latest_version"`
}

// Resolved is a prompt together with the content of its active version.
type Resolved struct {
	Prompt
	Active Version `json:"active"`
}

// ListFilters narrows ListPrompts. Query is a case-insensitive substring match
// over name and description.
type ListFilters struct {
	Query  string
	Limit  int
	Offset int
}

// New returns a prompt whose first version is active. Version 1 must be
// created in the same write.
func New(id uuid.UUID, name string, description *string, now time.Time) Prompt {
	return Prompt{
		ID:            id,
		Name:          name,
		Description:   description,
		CreatedAt:     now,
		ActiveVersion: 1,
	}
}

// NewVersion builds an unnumbered version; the repository assigns Version.
func NewVersion(id, promptID uuid.UUID, content string, parameters map[string]any, now time.Time) Version {
	return Version{
		ID:         id,
		PromptID:   promptID,
		Content:    content,
		Parameters: parameters,
		CreatedAt:  now,
	}
}

func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return apperr.Validation("name is required")
	}
	if len(name) > MaxNameLength {
		return apperr.Validation("name must be at most %d characters", MaxNameLength)
	}
	return nil
}

func ValidateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return apperr.Validation("content is required")
	}
	return nil
}

func ValidateVersionNumber(version int) error {
	if version < 1 {
		return apperr.Validation("version must be >= 1")
	}
	return nil
}
