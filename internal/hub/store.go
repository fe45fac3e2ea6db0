package hub

import (
	"sync/atomic"
)

// snapshotStore holds the last-known-good snapshot per channel.
// Reads never block. Writes are version-guarded compare-and-swaps:
// a candidate with version <= the stored version is silently rejected,
// which is the sole synchronization between cold pulls and push merges.
type snapshotStore struct {
	slots map[ChannelID]*atomic.Pointer[Snapshot]
}

func newSnapshotStore() *snapshotStore {
	s := &snapshotStore{
		slots: make(map[ChannelID]*atomic.Pointer[Snapshot], len(AllChannels())),
	}
	for _, id := range AllChannels() {
		slot := &atomic.Pointer[Snapshot]{}
		empty := &Snapshot{Channel: id, Data: emptyPayload(id)}
		slot.Store(empty)
		s.slots[id] = slot
	}
	return s
}

// Get returns the current snapshot for a channel. It never fails: for
// an unknown channel it returns the empty sentinel of a zero snapshot.
func (s *snapshotStore) Get(id ChannelID) Snapshot {
	slot, ok := s.slots[id]
	if !ok {
		return Snapshot{Channel: id}
	}
	return *slot.Load()
}

// CompareAndStore applies the candidate snapshot only if its version is
// strictly greater than the stored version. Returns false for a stale
// write, which protects against a slow cold pull overwriting a newer
// push-derived value.
func (s *snapshotStore) CompareAndStore(snap Snapshot) bool {
	slot, ok := s.slots[snap.Channel]
	if !ok {
		return false
	}
	candidate := &snap
	for {
		current := slot.Load()
		if snap.Version <= current.Version {
			return false
		}
		if slot.CompareAndSwap(current, candidate) {
			return true
		}
	}
}
