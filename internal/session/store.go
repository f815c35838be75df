package session

import "sync"

// Store is the single owner of the current Snapshot. It has no exported
// mutators: writes come only from the Hydrator, which the logout and OAuth
// completion paths route through.
type Store struct {
	mu     sync.RWMutex
	snap   Snapshot
	subs   map[int]chan Snapshot
	nextID int
}

// NewStore returns a store that is Pending with no session, the state before
// the first hydration completes.
func NewStore() *Store {
	return &Store{
		snap: Snapshot{Loading: Pending},
		subs: make(map[int]chan Snapshot),
	}
}

// Read returns the most recent snapshot.
func (s *Store) Read() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Subscribe returns a channel that receives the newest snapshot after every
// change, starting with the current one. A slow reader only ever misses
// intermediate values, never the latest. cancel closes the channel.
func (s *Store) Subscribe() (<-chan Snapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	ch := make(chan Snapshot, 1)
	ch <- s.snap
	s.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
			close(ch)
		})
	}
	return ch, cancel
}

func (s *Store) publish(snap Snapshot) {
	if snap.Session != nil {
		cp := *snap.Session
		snap.Session = &cp
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = snap
	for _, ch := range s.subs {
		select {
		case ch <- snap:
		default:
			// replace the unread value; publish holds the lock so the send cannot block
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}
