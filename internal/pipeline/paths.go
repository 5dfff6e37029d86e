package pipeline

import (
	"path"
	"path/filepath"

	"github.com/ternarybob/harvester/internal/common"
	"github.com/ternarybob/harvester/internal/models"
)

// ManifestName is the Menu phase work manifest stored in the status area
const ManifestName = "all_branches.csv"

// Paths builds storage prefixes for one parser and run.
// On the object store every area is partitioned as <area>/<version>/<parser>;
// locally each parser keeps its own tree as <parser>/<area> under the data dir.
type Paths struct {
	objectStore bool
	version     string
	parser      string
	bucket      string
	dataDir     string
	cachePrefix string
}

// NewPaths creates Paths for parser and version
func NewPaths(config *common.Config, parser models.Parser, version string) Paths {
	return Paths{
		objectStore: config.UseObjectStore(),
		version:     version,
		parser:      parser.String(),
		bucket:      config.Storage.Bucket,
		dataDir:     config.Storage.DataDir,
		cachePrefix: config.Geo.CachePath,
	}
}

func (p Paths) area(name string) string {
	if !p.objectStore {
		return path.Join(p.parser, name)
	}
	return path.Join(name, p.version, p.parser)
}

func (p Paths) Input() string {
	if !p.objectStore {
		return path.Join(p.parser, "in")
	}
	return path.Join("in", p.parser)
}

func (p Paths) Location() string       { return p.area("location") }
func (p Paths) Menu() string           { return p.area("menu") }
func (p Paths) PostMenu() string       { return p.area("post-menu") }
func (p Paths) PostMenuCost() string   { return p.area("post-menu-cost") }
func (p Paths) Result() string         { return p.area("result") }
func (p Paths) FailedLocation() string { return p.area("failed_loc") }
func (p Paths) FailedMenu() string     { return p.area("failed_menu") }
func (p Paths) Status() string         { return p.area("status") }

// SeedFile is the location seed CSV name
func (p Paths) SeedFile() string {
	return p.parser + "_locations.csv"
}

// LogFile returns the status log name for a kind (locations, menu, post_menu)
func (p Paths) LogFile(kind string) string {
	return p.parser + "_" + kind + ".log"
}

// AddressCacheKey is the blob key of the parser's address cache
func (p Paths) AddressCacheKey() string {
	return path.Join(p.cachePrefix, p.parser+"_address_cache.csv")
}

// LogFilePath is the informational location of the status area
func (p Paths) LogFilePath() string {
	if p.objectStore {
		return path.Join(p.bucket, p.Status())
	}
	return filepath.Join(p.dataDir, p.Status())
}
