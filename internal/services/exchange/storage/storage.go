// Package storage defines persistence contracts for completed draws.
package storage

import (
	"context"
	"time"

	apperrors "github.com/louisbranch/secretsanta/internal/platform/errors"
)

// ErrNotFound indicates a requested draw is missing.
var ErrNotFound = apperrors.New(apperrors.CodeNotFound, "draw not found")

// DrawRecord stores one completed draw.
type DrawRecord struct {
	ID        string
	Seed      int64
	Attempts  int
	CreatedAt time.Time
	Pairings  []PairingRecord
}

// PairingRecord stores one giver/recipient pair at its roster position.
type PairingRecord struct {
	Position       int
	GiverName      string
	GiverEmail     string
	RecipientName  string
	RecipientEmail string
}

// DrawStore persists and loads completed draws.
type DrawStore interface {
	PutDraw(ctx context.Context, record DrawRecord) error
	GetDraw(ctx context.Context, id string) (DrawRecord, error)
}
