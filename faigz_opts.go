package faigz

import "github.com/lumenbio/faigz/cache"

type config struct {
	cacheBlocks int
	persist     bool
}

func defaultConfig() config {
	return config{
		cacheBlocks: cache.DefaultBlocks,
		persist:     true,
	}
}

// Option configures a File.
type Option func(*config)

// WithCacheBlocks sets the capacity of the decompressed block cache, in
// blocks. Values <= 0 disable caching; reads stay correct, just slower for
// overlapping queries.
func WithCacheBlocks(n int) Option {
	return func(cfg *config) {
		cfg.cacheBlocks = n
	}
}

// WithoutIndexWrite disables persisting freshly built indexes next to the
// file. Indexes are then rebuilt on every Open.
func WithoutIndexWrite() Option {
	return func(cfg *config) {
		cfg.persist = false
	}
}
