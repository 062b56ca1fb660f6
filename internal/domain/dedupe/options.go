// Package dedupe tracks reading ids already accepted for evaluation.
package dedupe

// Option configures the in-memory deduper.
type Option func(*inMemoryDeduper)

// WithMaxSize caps the number of remembered reading ids. At the cap the
// least recently recorded id is forgotten first; zero or less disables the cap.
func WithMaxSize(maxSize int) Option {
	return func(d *inMemoryDeduper) {
		d.maxSize = maxSize
	}
}
