package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/harvester/internal/interfaces"
	"github.com/ternarybob/harvester/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// CheckpointStorage implements interfaces.CheckpointStorage for Badger
type CheckpointStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewCheckpointStorage creates a new CheckpointStorage instance
func NewCheckpointStorage(db *BadgerDB, logger arbor.ILogger) interfaces.CheckpointStorage {
	return &CheckpointStorage{
		db:     db,
		logger: logger,
	}
}

func (s *CheckpointStorage) Save(ctx context.Context, checkpoint *models.Checkpoint) error {
	if checkpoint.Parser == "" {
		return fmt.Errorf("checkpoint parser is required")
	}
	checkpoint.UpdatedAt = time.Now()

	if err := s.db.Store().Upsert(checkpoint.Parser, checkpoint); err != nil {
		return fmt.Errorf("failed to save checkpoint for %s: %w", checkpoint.Parser, err)
	}
	return nil
}

func (s *CheckpointStorage) Get(ctx context.Context, parser string) (*models.Checkpoint, error) {
	var checkpoint models.Checkpoint
	err := s.db.Store().Get(parser, &checkpoint)
	if err == badgerhold.ErrNotFound {
		return nil, interfaces.ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get checkpoint for %s: %w", parser, err)
	}
	return &checkpoint, nil
}

func (s *CheckpointStorage) Delete(ctx context.Context, parser string) error {
	err := s.db.Store().Delete(parser, &models.Checkpoint{})
	if err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to delete checkpoint for %s: %w", parser, err)
	}
	return nil
}

func (s *CheckpointStorage) List(ctx context.Context) ([]models.Checkpoint, error) {
	var checkpoints []models.Checkpoint
	if err := s.db.Store().Find(&checkpoints, badgerhold.Where("Parser").Ne("").SortBy("UpdatedAt").Reverse()); err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}
	return checkpoints, nil
}
