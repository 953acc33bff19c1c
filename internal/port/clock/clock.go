// Package clock holds the identity and time collaborators injected into the
// registry and the ledger.
package clock

import (
	"time"

	"github.com/google/uuid"
)

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID() uuid.UUID
}
