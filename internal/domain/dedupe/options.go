package dedupe

// Option applies a configuration option to the in-memory deduper.
type Option func(*memoryDeduper)

// WithMaxSize sets the maximum number of request IDs to keep in memory.
// maxSize > 0 enables bounded mode with oldest-first eviction; maxSize
// <= 0 disables eviction entirely.
func WithMaxSize(maxSize int) Option {
	return func(d *memoryDeduper) {
		d.maxSize = maxSize
	}
}
