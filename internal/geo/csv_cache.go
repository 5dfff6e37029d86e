package geo

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/harvester/internal/interfaces"
	"github.com/ternarybob/harvester/internal/models"
)

var cacheHeader = []string{"address", "lat", "long"}

// CSVCache is an address cache kept as a CSV blob (address,lat,long).
// The blob is downloaded once into a scratch file, appended locally and
// uploaded back on Flush. Safe for one process; concurrent writers of the
// same blob lose each other's rows.
type CSVCache struct {
	storage   interfaces.FileStorage
	key       string
	localPath string
	logger    arbor.ILogger

	mu      sync.Mutex
	loaded  bool
	dirty   bool
	entries map[string]models.AddressEntry
}

// NewCSVCache creates a cache for the blob at key, staged in localPath
func NewCSVCache(storage interfaces.FileStorage, key, localPath string, logger arbor.ILogger) *CSVCache {
	return &CSVCache{
		storage:   storage,
		key:       key,
		localPath: localPath,
		logger:    logger,
		entries:   make(map[string]models.AddressEntry),
	}
}

func (c *CSVCache) load(ctx context.Context) error {
	if c.loaded {
		return nil
	}

	err := c.storage.DownloadObject(ctx, c.key, c.localPath)
	if err != nil && !errors.Is(err, interfaces.ErrNotFound) {
		return fmt.Errorf("failed to download address cache: %w", err)
	}
	if errors.Is(err, interfaces.ErrNotFound) {
		c.logger.Info().Str("key", c.key).Msg("Address cache not found, it will be created")
		// a scratch file left by an earlier process is not the blob
		if err := os.Remove(c.localPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to clear stale address cache: %w", err)
		}
		c.loaded = true
		return nil
	}

	file, err := os.Open(c.localPath)
	if errors.Is(err, os.ErrNotExist) {
		c.loaded = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open address cache: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	first := true
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to parse address cache: %w", err)
		}
		if first {
			first = false
			if len(record) > 0 && record[0] == cacheHeader[0] {
				continue
			}
		}
		if len(record) < 3 {
			continue
		}
		c.entries[record[0]] = models.AddressEntry{Address: record[0], Lat: record[1], Long: record[2]}
	}

	c.loaded = true
	c.logger.Debug().Str("key", c.key).Int("entries", len(c.entries)).Msg("Address cache loaded")
	return nil
}

// Lookup matches the exact address string
func (c *CSVCache) Lookup(ctx context.Context, address string) (models.AddressEntry, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.load(ctx); err != nil {
		return models.AddressEntry{}, false, err
	}
	entry, ok := c.entries[address]
	return entry, ok, nil
}

// Append writes one row to the staged file, writing the header when it is empty
func (c *CSVCache) Append(ctx context.Context, entry models.AddressEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.load(ctx); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(c.localPath), 0755); err != nil {
		return fmt.Errorf("failed to create cache folder: %w", err)
	}
	file, err := os.OpenFile(c.localPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open address cache for append: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat address cache: %w", err)
	}

	writer := csv.NewWriter(file)
	if info.Size() == 0 {
		if err := writer.Write(cacheHeader); err != nil {
			return fmt.Errorf("failed to write cache header: %w", err)
		}
	}
	if err := writer.Write([]string{entry.Address, entry.Lat, entry.Long}); err != nil {
		return fmt.Errorf("failed to write cache row: %w", err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush cache row: %w", err)
	}

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	c.entries[entry.Address] = entry
	c.dirty = true
	return nil
}

// Flush uploads the staged file when rows were appended
func (c *CSVCache) Flush(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.dirty {
		return nil
	}
	c.logger.Info().Str("source", c.localPath).Str("destination", c.key).Msg("Uploading address cache")
	if err := c.storage.UploadObject(ctx, c.localPath, c.key); err != nil {
		return fmt.Errorf("failed to upload address cache: %w", err)
	}
	c.dirty = false
	return nil
}

// Len returns the number of cached addresses
func (c *CSVCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
