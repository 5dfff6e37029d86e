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

// cachedAddress is the stored form of one resolved address
type cachedAddress struct {
	Address   string `badgerhold:"key"`
	Lat       string
	Long      string
	CreatedAt time.Time
}

// AddressCache implements interfaces.AddressCache on Badger.
// Each Append is its own transaction, so Flush has nothing pending.
type AddressCache struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewAddressCache creates a new AddressCache instance
func NewAddressCache(db *BadgerDB, logger arbor.ILogger) interfaces.AddressCache {
	return &AddressCache{
		db:     db,
		logger: logger,
	}
}

func (c *AddressCache) Lookup(ctx context.Context, address string) (models.AddressEntry, bool, error) {
	var record cachedAddress
	err := c.db.Store().Get(address, &record)
	if err == badgerhold.ErrNotFound {
		return models.AddressEntry{}, false, nil
	}
	if err != nil {
		return models.AddressEntry{}, false, fmt.Errorf("failed to look up address: %w", err)
	}
	return models.AddressEntry{
		Address:   record.Address,
		Lat:       record.Lat,
		Long:      record.Long,
		CreatedAt: record.CreatedAt,
	}, true, nil
}

func (c *AddressCache) Append(ctx context.Context, entry models.AddressEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	record := cachedAddress{
		Address:   entry.Address,
		Lat:       entry.Lat,
		Long:      entry.Long,
		CreatedAt: entry.CreatedAt,
	}
	if err := c.db.Store().Upsert(entry.Address, &record); err != nil {
		return fmt.Errorf("failed to store address: %w", err)
	}
	return nil
}

func (c *AddressCache) Flush(ctx context.Context) error {
	if err := c.db.Store().Badger().Sync(); err != nil {
		return fmt.Errorf("failed to sync address cache: %w", err)
	}
	return nil
}
