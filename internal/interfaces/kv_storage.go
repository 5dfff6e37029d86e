package interfaces

import (
	"context"
	"errors"

	"github.com/ternarybob/harvester/internal/models"
)

// ErrKeyNotFound is returned when a key is not found in the key/value store
var ErrKeyNotFound = errors.New("key not found")

// CheckpointStorage persists the last continuation descriptor per parser
type CheckpointStorage interface {
	// Save stores the checkpoint, replacing any previous one for the parser
	Save(ctx context.Context, checkpoint *models.Checkpoint) error

	// Get returns the checkpoint for a parser, ErrKeyNotFound if none
	Get(ctx context.Context, parser string) (*models.Checkpoint, error)

	// Delete removes the checkpoint for a parser
	Delete(ctx context.Context, parser string) error

	// List returns all checkpoints ordered by updated_at DESC
	List(ctx context.Context) ([]models.Checkpoint, error)
}
