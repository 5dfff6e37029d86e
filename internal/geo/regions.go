package geo

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ternarybob/harvester/internal/models"
	"gopkg.in/yaml.v3"
)

// RegionIndex maps coordinates to the first bounding box containing them
type RegionIndex struct {
	regions []models.Region
}

// NewRegionIndex creates an index over regions, kept in the given order
func NewRegionIndex(regions []models.Region) *RegionIndex {
	return &RegionIndex{regions: regions}
}

// LoadRegions reads a bounding box table from a .json or YAML file.
// A missing file yields an empty index.
func LoadRegions(path string) (*RegionIndex, error) {
	if path == "" {
		return NewRegionIndex(nil), nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return NewRegionIndex(nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read regions file %s: %w", path, err)
	}

	var regions []models.Region
	unmarshal := yaml.Unmarshal
	if strings.EqualFold(filepath.Ext(path), ".json") {
		unmarshal = json.Unmarshal
	}
	if err := unmarshal(data, &regions); err != nil {
		return nil, fmt.Errorf("failed to parse regions file %s: %w", path, err)
	}
	return NewRegionIndex(regions), nil
}

// FindRegion returns the first region containing the point, nil when none does
func (idx *RegionIndex) FindRegion(lat, lon float64) *models.Region {
	for i := range idx.regions {
		if idx.regions[i].Contains(lat, lon) {
			return &idx.regions[i]
		}
	}
	return nil
}

// Len returns the number of regions
func (idx *RegionIndex) Len() int {
	return len(idx.regions)
}
