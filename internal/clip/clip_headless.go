package clip

import "sync"

// headlessBackend stands in for the clipboard in environments without a
// display server (containers, CI, SSH sessions). Writes are kept in memory so
// that a subsequent Read observes them.
type headlessBackend struct {
	mu   sync.Mutex
	snap Snapshot
	set  bool
}

func newHeadless() *headlessBackend { return &headlessBackend{} }

func (b *headlessBackend) Name() string { return "headless (in-memory)" }

func (b *headlessBackend) Read() (Snapshot, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snap, b.set, nil
}

func (b *headlessBackend) Write(snap Snapshot) error {
	if snap.Kind != KindText && snap.Kind != KindImage {
		return unsupported(snap.Kind)
	}
	b.mu.Lock()
	b.snap = snap
	b.set = snap.Payload != ""
	b.mu.Unlock()
	return nil
}

func (b *headlessBackend) Close() {}
