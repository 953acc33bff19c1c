// Package seed loads prompts from a YAML file into the registry.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/alanyang/promptledger/internal/domain/apperr"
	domainprompt "github.com/alanyang/promptledger/internal/domain/prompt"
	promptsvc "github.com/alanyang/promptledger/internal/service/prompt"
)

// File is the root of a seed document.
type File struct {
	Prompts []PromptDef `yaml:"prompts"`
}

type PromptDef struct {
	Name        string       `yaml:"name"`
	Description *string      `yaml:"description"`
	Versions    []VersionDef `yaml:"versions"`
	// Active is the version to activate after all versions are created.
	// Zero leaves version 1 active.
	Active int `yaml:"active"`
}

type VersionDef struct {
	Content    string         `yaml:"content"`
	Parameters map[string]any `yaml:"parameters"`
}

// Registry is the part of the prompt service seeding needs.
type Registry interface {
	CreatePrompt(ctx context.Context, in promptsvc.CreateInput) (domainprompt.Detail, error)
	CreateVersion(ctx context.Context, promptID uuid.UUID, content string, parameters map[string]any) (domainprompt.Version, error)
	ActivateVersion(ctx context.Context, promptID uuid.UUID, version int) (domainprompt.Prompt, error)
}

type Report struct {
	Created []string
	Skipped []string
}

// Parse decodes and checks a seed document without touching the registry.
func Parse(r io.Reader) (File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return File{}, fmt.Errorf("parse seed file: %w", err)
	}

	seen := make(map[string]bool, len(f.Prompts))
	for i, p := range f.Prompts {
		if err := domainprompt.ValidateName(p.Name); err != nil {
			return File{}, fmt.Errorf("prompt #%d: %w", i+1, err)
		}
		if seen[p.Name] {
			return File{}, fmt.Errorf("prompt %q listed twice", p.Name)
		}
		seen[p.Name] = true
		if len(p.Versions) == 0 {
			return File{}, fmt.Errorf("prompt %q has no versions", p.Name)
		}
		for j, v := range p.Versions {
			if err := domainprompt.ValidateContent(v.Content); err != nil {
				return File{}, fmt.Errorf("prompt %q version %d: %w", p.Name, j+1, err)
			}
		}
		if p.Active < 0 || p.Active > len(p.Versions) {
			return File{}, fmt.Errorf("prompt %q: active version %d does not exist", p.Name, p.Active)
		}
	}
	return f, nil
}

// Apply creates every prompt in f. A prompt whose name is already registered
// is skipped, so re-running a seed is harmless.
func Apply(ctx context.Context, reg Registry, f File) (Report, error) {
	var rep Report
	for _, p := range f.Prompts {
		first := p.Versions[0]
		d, err := reg.CreatePrompt(ctx, promptsvc.CreateInput{
			Name:        p.Name,
			Description: p.Description,
			Content:     first.Content,
			Parameters:  first.Parameters,
		})
		if errors.Is(err, apperr.ErrConflict) {
			slog.InfoContext(ctx, "seed: prompt exists, skipping", "name", p.Name)
			rep.Skipped = append(rep.Skipped, p.Name)
			continue
		}
		if err != nil {
			return rep, fmt.Errorf("seed prompt %q: %w", p.Name, err)
		}

		for _, v := range p.Versions[1:] {
			if _, err := reg.CreateVersion(ctx, d.ID, v.Content, v.Parameters); err != nil {
				return rep, fmt.Errorf("seed prompt %q: %w", p.Name, err)
			}
		}
		if p.Active > 1 {
			if _, err := reg.ActivateVersion(ctx, d.ID, p.Active); err != nil {
				return rep, fmt.Errorf("seed prompt %q: %w", p.Name, err)
			}
		}
		rep.Created = append(rep.Created, p.Name)
	}
	return rep, nil
}
