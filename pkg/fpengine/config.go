package fpengine

import (
	"os"
	"time"

	"github.com/landmarkfp/fpengine/pkg/fpcore"
	"github.com/landmarkfp/fpengine/pkg/fplog"
	"github.com/landmarkfp/fpengine/pkg/fpmatch"
	"github.com/landmarkfp/fpengine/pkg/fpstore"
)

// Logger is the subset of fplog.Logger the engine depends on, so callers
// can plug in their own implementation without importing fplog.
type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}

// Config holds every knob NewService accepts, assembled via the Option
// functions below. Only Store is mandatory in effect: if none is supplied,
// NewService opens a SQLite store at DBPath.
type Config struct {
	DBPath          string
	Store           fpstore.Store
	Logger          Logger
	MatchDeadline   time.Duration
	MatchOptions    fpmatch.Options
	IngestWorkers   int
	IngestQueueSize int

	// TempDir and SampleRate are used by the background ingestion worker to
	// fetch and transcode a source (currently: YouTube) before fingerprinting
	// it, the same way a caller ingesting a local file would have to.
	TempDir    string
	SampleRate int
}

type Option func(*Config)

// WithDBPath sets the SQLite path used when no explicit Store is given.
func WithDBPath(path string) Option {
	return func(c *Config) { c.DBPath = path }
}

// WithStore supplies an already-open fingerprint index, bypassing DBPath.
func WithStore(store fpstore.Store) Option {
	return func(c *Config) { c.Store = store }
}

func WithLogger(log Logger) Option {
	return func(c *Config) { c.Logger = log }
}

// WithMatchDeadline sets the caller-imposed wall-clock deadline for a single
// match request (spec.md §5, default 10s).
func WithMatchDeadline(d time.Duration) Option {
	return func(c *Config) { c.MatchDeadline = d }
}

func WithMatchOptions(opts fpmatch.Options) Option {
	return func(c *Config) { c.MatchOptions = opts }
}

// WithIngestWorkers sets the size of the background ingestion worker pool
// (spec.md §5: "one in-flight track per worker").
func WithIngestWorkers(n int) Option {
	return func(c *Config) { c.IngestWorkers = n }
}

func WithIngestQueueSize(n int) Option {
	return func(c *Config) { c.IngestQueueSize = n }
}

// WithTempDir sets the scratch directory the background ingestion worker
// downloads and transcodes sources into before fingerprinting them.
func WithTempDir(dir string) Option {
	return func(c *Config) { c.TempDir = dir }
}

// WithSampleRate sets the rate the background ingestion worker transcodes
// fetched sources to before decoding them.
func WithSampleRate(rate int) Option {
	return func(c *Config) { c.SampleRate = rate }
}

func defaultConfig() *Config {
	return &Config{
		DBPath:          fpstore.DefaultDBFile,
		MatchDeadline:   10 * time.Second,
		MatchOptions:    fpmatch.DefaultOptions(),
		IngestWorkers:   4,
		IngestQueueSize: 64,
		TempDir:         os.TempDir(),
		SampleRate:      fpcore.SampleRate,
	}
}

var _ Logger = (*fplog.Logger)(nil)
