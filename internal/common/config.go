package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// LambdaMarkerEnv is set by the AWS Lambda runtime. Its presence selects the object-store
// path layout and deadline-aware budgeting.
const LambdaMarkerEnv = "AWS_LAMBDA_FUNCTION_VERSION"

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	InLambda    bool            `toml:"-"`           // Derived from LambdaMarkerEnv, never read from file
	Storage     StorageConfig   `toml:"storage"`
	Pipeline    PipelineConfig  `toml:"pipeline"`
	HTTP        HTTPConfig      `toml:"http"`
	Proxy       ProxyConfig     `toml:"proxy"`
	Geo         GeoConfig       `toml:"geo"`
	Logging     LoggingConfig   `toml:"logging"`
	Scheduler   SchedulerConfig `toml:"scheduler"`
	Brands      []BrandConfig   `toml:"brands"`
}

type StorageConfig struct {
	Backend    string       `toml:"backend"`     // "auto", "local" or "s3"
	DataDir    string       `toml:"data_dir"`    // Root folder for the local backend
	Bucket     string       `toml:"bucket"`      // Bucket for the s3 backend
	Region     string       `toml:"region"`      // AWS region (empty = SDK default chain)
	ScratchDir string       `toml:"scratch_dir"` // Local working folder for downloads/uploads
	Badger     BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

// PipelineConfig holds the cursor/step controller tuning.
type PipelineConfig struct {
	TimeMargin        Duration `toml:"time_margin"`         // Stop a phase when remaining time drops below this
	LocalRemaining    Duration `toml:"local_remaining"`     // Remaining time reported outside Lambda
	RowDelay          Duration `toml:"row_delay"`           // Sleep between distinct work items
	PageDelay         Duration `toml:"page_delay"`          // Sleep between pages of one location row
	LocationPageSize  int      `toml:"location_page_size"`  // Default rows per location invocation
	MenuPageSize      int      `toml:"menu_page_size"`      // Default items per menu invocation
	PostMenuPageSize  int      `toml:"post_menu_page_size"` // Default items per post-menu invocation
	CSVPageSize       int      `toml:"csv_page_size"`       // Default records per CSV invocation (Lambda)
	CSVPageSizeLocal  int      `toml:"csv_page_size_local"` // Default records per CSV invocation (local)
	URLPageSize       int      `toml:"url_page_size"`       // Fallback per-request page size for location fetches
	MenuOffsetPad     int      `toml:"menu_offset_pad"`     // offset_end = total + pad when unresolved
	PostMenuOffsetPad int      `toml:"post_menu_offset_pad"`
	CSVOffsetPad      int      `toml:"csv_offset_pad"`
	PostMenuParsers   []string `toml:"post_menu_parsers"` // Chains that require price enrichment
}

type HTTPConfig struct {
	Timeout    Duration `toml:"timeout"`
	RetryCount int      `toml:"retry_count"` // Retries after the first attempt
	RetryWait  Duration `toml:"retry_wait"`  // Fixed backoff between retries
	RateLimit  int      `toml:"rate_limit"`  // Requests per second per client (0 = unlimited)
	UserAgent  string   `toml:"user_agent"`
}

type ProxyConfig struct {
	Endpoint string `toml:"endpoint"` // Proxy API endpoint, target URL is passed as ?url=
	APIKey   string `toml:"api_key"`
}

type GeoConfig struct {
	Provider       string   `toml:"provider"`        // "aws-location", "google" or "none"
	PlaceIndex     string   `toml:"place_index"`     // Amazon Location place index name
	GoogleAPIKey   string   `toml:"google_api_key"`  // Google Geocoding API key
	RequestTimeout Duration `toml:"request_timeout"` // Geocoder HTTP timeout
	CacheBackend   string   `toml:"cache_backend"`   // "csv" or "badger"
	CachePath      string   `toml:"cache_path"`      // Storage prefix of the CSV cache
	RegionsFile    string   `toml:"regions_file"`    // Bounding box table (YAML or JSON)
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
	Dir    string   `toml:"dir"`    // Log folder (default: next to the executable)
}

// SchedulerConfig drives `harvester schedule`.
type SchedulerConfig struct {
	Schedule string   `toml:"schedule"` // Cron expression, 5 fields
	Parsers  []string `toml:"parsers"`  // Chains started on each tick
	UseProxy bool     `toml:"use_proxy"`
}

// BrandConfig maps a parser to the brand columns of the CSV output.
type BrandConfig struct {
	Parser string `toml:"parser"`
	ID     int    `toml:"id"`
	Name   string `toml:"name"`
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Storage: StorageConfig{
			Backend:    "auto",
			DataDir:    "./data",
			Bucket:     "scrapers-resturantlambda",
			ScratchDir: os.TempDir(),
			Badger: BadgerConfig{
				Path: "./data/badger",
			},
		},
		Pipeline: PipelineConfig{
			TimeMargin:        NewDuration(70 * time.Second),
			LocalRemaining:    NewDuration(120 * time.Second),
			RowDelay:          NewDuration(2 * time.Second),
			PageDelay:         NewDuration(time.Second),
			LocationPageSize:  1,
			MenuPageSize:      1,
			PostMenuPageSize:  10,
			CSVPageSize:       500,
			CSVPageSizeLocal:  100,
			URLPageSize:       50,
			MenuOffsetPad:     10,
			PostMenuOffsetPad: 1,
			CSVOffsetPad:      1,
			PostMenuParsers:   []string{"hardees", "cjr", "popeyes", "metro", "imtiaz"},
		},
		HTTP: HTTPConfig{
			Timeout:    NewDuration(30 * time.Second),
			RetryCount: 2,
			RetryWait:  NewDuration(time.Second),
			RateLimit:  5,
			UserAgent:  "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/18.5 Safari/605.1.15",
		},
		Proxy: ProxyConfig{
			Endpoint: "https://proxy.scrapeops.io/v1/",
		},
		Geo: GeoConfig{
			Provider:       "aws-location",
			PlaceIndex:     "Address2Location",
			RequestTimeout: NewDuration(15 * time.Second),
			CacheBackend:   "csv",
			CachePath:      "lat-long-cache",
			RegionsFile:    "./data/cbsa_bounding_boxes.json",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
		Scheduler: SchedulerConfig{
			Schedule: "0 3 * * 5",
			Parsers:  []string{"imtiaz", "metro"},
		},
		Brands: []BrandConfig{
			{Parser: "rc", ID: 1, Name: "Raising Cane's"},
			{Parser: "daves", ID: 2, Name: "Dave's Hot Chicken"},
			{Parser: "zaxbys", ID: 3, Name: "Zaxby's"},
			{Parser: "chickfila", ID: 4, Name: "Chick-fil-A"},
			{Parser: "kfc", ID: 5, Name: "KFC"},
			{Parser: "wendy", ID: 6, Name: "Wendy's"},
			{Parser: "popeyes", ID: 7, Name: "Popeyes"},
			{Parser: "cjr", ID: 8, Name: "Carl's Jr."},
			{Parser: "hardees", ID: 9, Name: "Hardee's"},
			{Parser: "cpy", ID: 10, Name: "CorePower Yoga"},
			{Parser: "orange", ID: 11, Name: "Orangetheory Fitness"},
			{Parser: "solidcore", ID: 12, Name: "[solidcore]"},
			{Parser: "yogasix", ID: 13, Name: "Yoga Six"},
			{Parser: "imtiaz", ID: 14, Name: "Imtiaz Super Market"},
			{Parser: "metro", ID: 15, Name: "Metro Cash & Carry"},
		},
	}
}

// LoadFromFiles loads configuration from multiple files with priority: default -> file1 -> file2 -> ... -> env.
// Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("HARVESTER_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	_, config.InLambda = os.LookupEnv(LambdaMarkerEnv)

	// Storage
	if backend := os.Getenv("HARVESTER_STORAGE_BACKEND"); backend != "" {
		config.Storage.Backend = backend
	}
	if dir := os.Getenv("HARVESTER_DATA_DIR"); dir != "" {
		config.Storage.DataDir = dir
	}
	if bucket := os.Getenv("HARVESTER_BUCKET"); bucket != "" {
		config.Storage.Bucket = bucket
	}
	if region := os.Getenv("HARVESTER_AWS_REGION"); region != "" {
		config.Storage.Region = region
	}
	if scratch := os.Getenv("HARVESTER_SCRATCH_DIR"); scratch != "" {
		config.Storage.ScratchDir = scratch
	}
	if badgerPath := os.Getenv("HARVESTER_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	// Pipeline
	if margin := os.Getenv("HARVESTER_TIME_MARGIN"); margin != "" {
		if d, err := time.ParseDuration(margin); err == nil {
			config.Pipeline.TimeMargin = NewDuration(d)
		}
	}
	if parsers := os.Getenv("HARVESTER_POST_MENU_PARSERS"); parsers != "" {
		config.Pipeline.PostMenuParsers = splitList(parsers)
	}

	// HTTP
	if retries := os.Getenv("HARVESTER_HTTP_RETRY_COUNT"); retries != "" {
		if n, err := strconv.Atoi(retries); err == nil {
			config.HTTP.RetryCount = n
		}
	}
	if rl := os.Getenv("HARVESTER_HTTP_RATE_LIMIT"); rl != "" {
		if n, err := strconv.Atoi(rl); err == nil {
			config.HTTP.RateLimit = n
		}
	}

	// Proxy
	if key := os.Getenv("HARVESTER_PROXY_API_KEY"); key != "" {
		config.Proxy.APIKey = key
	}

	// Geo
	if provider := os.Getenv("HARVESTER_GEO_PROVIDER"); provider != "" {
		config.Geo.Provider = provider
	}
	if key := os.Getenv("HARVESTER_GOOGLE_API_KEY"); key != "" {
		config.Geo.GoogleAPIKey = key
	}
	if backend := os.Getenv("HARVESTER_GEO_CACHE_BACKEND"); backend != "" {
		config.Geo.CacheBackend = backend
	}
	if regions := os.Getenv("HARVESTER_REGIONS_FILE"); regions != "" {
		config.Geo.RegionsFile = regions
	}

	// Logging
	if level := os.Getenv("HARVESTER_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("HARVESTER_LOG_OUTPUT"); output != "" {
		if outputs := splitList(output); len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config (highest priority)
func ApplyFlagOverrides(config *Config, dataDir string, logLevel string) {
	if dataDir != "" {
		config.Storage.DataDir = dataDir
	}
	if logLevel != "" {
		config.Logging.Level = logLevel
	}
}

// ValidateSchedule validates a cron schedule expression and ensures a minimum 5-minute interval
func ValidateSchedule(schedule string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}

	parts := strings.Fields(schedule)
	if len(parts) < 5 {
		return fmt.Errorf("invalid cron format: expected 5 fields")
	}

	minuteField := parts[0]
	if minuteField == "*" {
		return fmt.Errorf("schedule must have minimum 5-minute interval (every minute is not allowed)")
	}
	if strings.HasPrefix(minuteField, "*/") {
		interval, err := strconv.Atoi(strings.TrimPrefix(minuteField, "*/"))
		if err == nil && interval < 5 {
			return fmt.Errorf("schedule interval must be at least 5 minutes, got %d", interval)
		}
	}

	return nil
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// UseObjectStore reports whether artifacts live in the bucket rather than under DataDir.
func (c *Config) UseObjectStore() bool {
	switch strings.ToLower(c.Storage.Backend) {
	case "s3":
		return true
	case "local":
		return false
	default:
		return c.InLambda
	}
}

// RequiresPostMenu reports whether the parser is in the price-enrichment allow-list.
func (c *Config) RequiresPostMenu(parser string) bool {
	for _, p := range c.Pipeline.PostMenuParsers {
		if p == parser {
			return true
		}
	}
	return false
}

// Brand returns the brand row for a parser; ok is false for unknown parsers.
func (c *Config) Brand(parser string) (BrandConfig, bool) {
	for _, b := range c.Brands {
		if b.Parser == parser {
			return b, true
		}
	}
	return BrandConfig{}, false
}

// DeepCloneConfig creates a deep copy of the Config struct so components cannot mutate shared state
func DeepCloneConfig(c *Config) *Config {
	if c == nil {
		return nil
	}

	clone := *c

	if len(c.Logging.Output) > 0 {
		clone.Logging.Output = append([]string(nil), c.Logging.Output...)
	}
	if len(c.Pipeline.PostMenuParsers) > 0 {
		clone.Pipeline.PostMenuParsers = append([]string(nil), c.Pipeline.PostMenuParsers...)
	}
	if len(c.Scheduler.Parsers) > 0 {
		clone.Scheduler.Parsers = append([]string(nil), c.Scheduler.Parsers...)
	}
	if len(c.Brands) > 0 {
		clone.Brands = append([]BrandConfig(nil), c.Brands...)
	}

	return &clone
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
