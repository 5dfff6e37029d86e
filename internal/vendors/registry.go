package vendors

import (
	"fmt"
	"sort"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/harvester/internal/interfaces"
	"github.com/ternarybob/harvester/internal/models"
)

// Registry maps parsers to their fetchers. Only registered parsers can run
// the location, menu, post-menu and CSV phases.
type Registry struct {
	fetchers map[models.Parser]interfaces.VendorFetcher
	logger   arbor.ILogger
}

// NewRegistry creates an empty Registry
func NewRegistry(logger arbor.ILogger) *Registry {
	return &Registry{
		fetchers: make(map[models.Parser]interfaces.VendorFetcher),
		logger:   logger,
	}
}

// Register adds a fetcher under its service name, replacing any previous one
func (r *Registry) Register(fetcher interfaces.VendorFetcher) {
	if fetcher == nil {
		return
	}
	parser := fetcher.GetServiceName()
	r.fetchers[parser] = fetcher
	r.logger.Debug().Str("parser", parser.String()).Msg("Registered vendor fetcher")
}

// Has reports whether a fetcher is registered for parser
func (r *Registry) Has(parser models.Parser) bool {
	_, ok := r.fetchers[parser]
	return ok
}

// Get returns the fetcher registered for parser
func (r *Registry) Get(parser models.Parser) (interfaces.VendorFetcher, error) {
	fetcher, ok := r.fetchers[parser]
	if !ok {
		return nil, fmt.Errorf("no fetcher registered for parser %s", parser)
	}
	return fetcher, nil
}

// Parsers returns the registered parsers in name order
func (r *Registry) Parsers() []models.Parser {
	parsers := make([]models.Parser, 0, len(r.fetchers))
	for parser := range r.fetchers {
		parsers = append(parsers, parser)
	}
	sort.Slice(parsers, func(i, j int) bool { return parsers[i] < parsers[j] })
	return parsers
}
