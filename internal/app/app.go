package app

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/location"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/harvester/internal/common"
	"github.com/ternarybob/harvester/internal/geo"
	"github.com/ternarybob/harvester/internal/httpclient"
	"github.com/ternarybob/harvester/internal/interfaces"
	"github.com/ternarybob/harvester/internal/models"
	"github.com/ternarybob/harvester/internal/pipeline"
	"github.com/ternarybob/harvester/internal/storage"
	"github.com/ternarybob/harvester/internal/storage/badger"
	"github.com/ternarybob/harvester/internal/vendors"
	"github.com/ternarybob/harvester/internal/vendors/imtiaz"
	"github.com/ternarybob/harvester/internal/vendors/metro"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	// Storage
	Storage     interfaces.FileStorage
	DB          *badger.BadgerDB // nil unless checkpoints or the badger address cache are enabled
	Checkpoints interfaces.CheckpointStorage

	// Upstream access
	HTTPClient *httpclient.Client
	Vendors    *vendors.Registry

	// Geocoding
	Geocoder interfaces.Geocoder
	Regions  *geo.RegionIndex

	// Step execution
	Dispatcher *pipeline.Dispatcher
	Runner     *Runner
}

// Option configures New
type Option func(*options)

type options struct {
	checkpoints bool
	storage     interfaces.FileStorage
	geocoder    interfaces.Geocoder
	dispatch    []pipeline.DispatcherOption
}

// WithCheckpoints opens the badger database and persists continuation descriptors
func WithCheckpoints() Option {
	return func(o *options) {
		o.checkpoints = true
	}
}

// WithStorage replaces the configured blob storage
func WithStorage(s interfaces.FileStorage) Option {
	return func(o *options) {
		o.storage = s
	}
}

// WithGeocoder replaces the configured geocoder
func WithGeocoder(g interfaces.Geocoder) Option {
	return func(o *options) {
		o.geocoder = g
	}
}

// WithDispatcherOptions passes options through to the dispatcher
func WithDispatcherOptions(opts ...pipeline.DispatcherOption) Option {
	return func(o *options) {
		o.dispatch = append(o.dispatch, opts...)
	}
}

// New initializes the application with all dependencies
func New(ctx context.Context, cfg *common.Config, logger arbor.ILogger, opts ...Option) (*App, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initStorage(ctx, o); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	app.HTTPClient = httpclient.NewFromConfig(cfg.HTTP, cfg.Proxy, logger)
	app.initVendors()

	if err := app.initGeo(ctx, o); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize geocoding: %w", err)
	}

	dispatchOpts := append([]pipeline.DispatcherOption{pipeline.WithLocatorFactory(app.newLocator)}, o.dispatch...)
	app.Dispatcher = pipeline.NewDispatcher(cfg, app.Storage, app.Vendors, logger, dispatchOpts...)
	app.Runner = NewRunner(app.Dispatcher, app.Checkpoints, logger)

	logger.Info().
		Bool("object_store", cfg.UseObjectStore()).
		Bool("lambda", cfg.InLambda).
		Str("geo_provider", cfg.Geo.Provider).
		Str("geo_cache", cfg.Geo.CacheBackend).
		Int("regions", app.Regions.Len()).
		Msg("Application initialized")

	return app, nil
}

func (a *App) initStorage(ctx context.Context, o *options) error {
	if o.storage != nil {
		a.Storage = o.storage
	} else {
		fs, err := storage.NewFileStorage(ctx, a.Logger, a.Config)
		if err != nil {
			return err
		}
		a.Storage = fs
	}

	if !o.checkpoints && !strings.EqualFold(a.Config.Geo.CacheBackend, "badger") {
		return nil
	}

	db, err := badger.NewBadgerDB(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return err
	}
	a.DB = db
	if o.checkpoints {
		a.Checkpoints = badger.NewCheckpointStorage(db, a.Logger)
	}
	return nil
}

func (a *App) initVendors() {
	a.Vendors = vendors.NewRegistry(a.Logger)
	a.Vendors.Register(imtiaz.NewFetcher(a.HTTPClient, a.Logger))
	a.Vendors.Register(metro.NewFetcher(a.HTTPClient, a.Logger))
}

func (a *App) initGeo(ctx context.Context, o *options) error {
	regions, err := geo.LoadRegions(a.Config.Geo.RegionsFile)
	if err != nil {
		return err
	}
	a.Regions = regions

	if o.geocoder != nil {
		a.Geocoder = o.geocoder
		return nil
	}

	switch strings.ToLower(a.Config.Geo.Provider) {
	case "aws-location":
		awsCfg, err := storage.LoadAWSConfig(ctx, a.Config.Storage.Region)
		if err != nil {
			return err
		}
		a.Geocoder = geo.NewLocationGeocoder(location.NewFromConfig(awsCfg), a.Config.Geo.PlaceIndex)
	case "google":
		if a.Config.Geo.GoogleAPIKey == "" {
			return fmt.Errorf("geo.google_api_key is required for the google provider")
		}
		client := httpclient.NewClient(
			httpclient.WithLogger(a.Logger),
			httpclient.WithTimeout(a.Config.Geo.RequestTimeout.Duration),
			httpclient.WithRetry(a.Config.HTTP.RetryCount, a.Config.HTTP.RetryWait.Duration),
			httpclient.WithRateLimit(a.Config.HTTP.RateLimit),
		)
		a.Geocoder = geo.NewGoogleGeocoder(client, "", a.Config.Geo.GoogleAPIKey)
	case "", "none":
		a.Geocoder = geo.NoopGeocoder{}
	default:
		return fmt.Errorf("unknown geo provider %q", a.Config.Geo.Provider)
	}
	return nil
}

// newLocator builds the address resolver of one make.csv invocation
func (a *App) newLocator(ctx context.Context, parser models.Parser, paths pipeline.Paths) (pipeline.Locator, error) {
	var cache interfaces.AddressCache
	switch strings.ToLower(a.Config.Geo.CacheBackend) {
	case "badger":
		if a.DB == nil {
			return nil, fmt.Errorf("badger address cache requested but the database is not open")
		}
		cache = badger.NewAddressCache(a.DB, a.Logger)
	case "", "csv":
		scratch := filepath.Join(a.Config.Storage.ScratchDir, parser.String()+"_address_cache.csv")
		cache = geo.NewCSVCache(a.Storage, paths.AddressCacheKey(), scratch, a.Logger)
	default:
		return nil, fmt.Errorf("unknown address cache backend %q", a.Config.Geo.CacheBackend)
	}
	return geo.NewResolver(cache, a.Geocoder, a.Regions, a.Logger), nil
}

// Close compacts and releases the database
func (a *App) Close() error {
	if a.DB != nil {
		if err := a.DB.CollectGarbage(); err != nil {
			a.Logger.Warn().Err(err).Msg("Badger garbage collection failed")
		}
		if err := a.DB.Close(); err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}
		a.DB = nil
	}
	return nil
}
