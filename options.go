package pixcache

import (
	"github.com/lumapix/pixcache/cache"
	"github.com/lumapix/pixcache/transport"
)

// config holds resolved pipeline configuration.
type config struct {
	memoryCapacity int64
	diskConfig     *cache.DiskConfig
	transport      transport.Transport
	resolver       PolicyResolver
	observer       Observer
	logger         *Logger
}

// Option customizes a Pipeline.
type Option func(*config)

// WithMemoryCapacity sets the byte budget of the in-memory bitmap cache.
// 0 disables the memory tier entirely.
func WithMemoryCapacity(capacityBytes int64) Option {
	return func(c *config) {
		c.memoryCapacity = capacityBytes
	}
}

// WithDiskCache enables the on-disk tier. Without this option loads never
// touch persistent storage regardless of policy.
func WithDiskCache(cfg cache.DiskConfig) Option {
	return func(c *config) {
		c.diskConfig = &cfg
	}
}

// WithTransport sets the transport used for cache misses.
// Defaults to transport.NewHTTP(nil).
func WithTransport(t transport.Transport) Option {
	return func(c *config) {
		c.transport = t
	}
}

// WithPolicyResolver sets the per-load cache policy hook, consulted when a
// LoadRequest does not pin a policy itself.
func WithPolicyResolver(r PolicyResolver) Option {
	return func(c *config) {
		c.resolver = r
	}
}

// WithObserver sets the metrics observer. Defaults to NoopObserver.
func WithObserver(o Observer) Option {
	return func(c *config) {
		c.observer = o
	}
}

// WithLogger sets the logger. Defaults to NoopLogger.
func WithLogger(l *Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}
