// Package page normalises limit/offset pagination for list operations.
package page

import "github.com/alanyang/promptledger/internal/domain/apperr"

// Limits bounds the page size for one kind of listing.
type Limits struct {
	Default int `mapstructure:"default"`
	Max     int `mapstructure:"max"`
}

var (
	PromptLimits = Limits{Default: 50, Max: 100}
	RunLimits    = Limits{Default: 50, Max: 200}
)

// Request is a limit/offset pair as supplied by a caller. A zero Limit means
// "use the default".
type Request struct {
	Limit  int
	Offset int
}

// Normalize applies the default limit and rejects out-of-range values.
func (r Request) Normalize(l Limits) (Request, error) {
	if r.Limit == 0 {
		r.Limit = l.Default
	}
	if r.Limit < 1 || r.Limit > l.Max {
		return Request{}, apperr.Validation("limit must be between 1 and %d", l.Max)
	}
	if r.Offset < 0 {
		return Request{}, apperr.Validation("offset must be >= 0")
	}
	return r, nil
}

// Validate checks the limits themselves; used when loading configuration.
func (l Limits) Validate() error {
	if l.Default < 1 || l.Max < 1 {
		return apperr.Validation("page limits must be positive")
	}
	if l.Default > l.Max {
		return apperr.Validation("default page size %d exceeds max %d", l.Default, l.Max)
	}
	return nil
}
