package history

// Persister is the durable record of the history. Save must be atomic: after
// a crash the stored sequence is either the one before or the one after the
// call, never a mix.
type Persister interface {
	// Load returns the stored sequence, most recent first. A missing store
	// yields an empty sequence and no error.
	Load() ([]Entry, error)

	// Save replaces the stored sequence with entries.
	Save(entries []Entry) error

	// Close releases resources held by the persister.
	Close() error
}
