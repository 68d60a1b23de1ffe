package clinicsdk

import "sync"

// SessionStore is the process-wide cache of the authenticated user. Only the
// refresh coordinator, the login flow, and the guards' validate path mutate
// it; everything else observes.
//
// Subscriptions replay the most recent value: a late subscriber immediately
// sees the current session. Each subscriber channel is conflated, so a slow
// consumer always observes the latest value rather than a backlog.
type SessionStore struct {
	mu      sync.RWMutex
	current *User
	subs    map[int]chan *User
	nextID  int
}

func NewSessionStore() *SessionStore {
	return &SessionStore{subs: make(map[int]chan *User)}
}

// Current returns the session's user, nil when logged out.
func (s *SessionStore) Current() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Set replaces the session wholesale and notifies subscribers. Pass nil to
// clear on logout or refresh failure.
func (s *SessionStore) Set(u *User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = u
	for _, ch := range s.subs {
		publishLatest(ch, u)
	}
}

// Subscribe registers an observer. The returned channel immediately yields
// the current value, then every subsequent change. The cancel func must be
// called when done; the channel is closed by it.
func (s *SessionStore) Subscribe() (<-chan *User, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++

	ch := make(chan *User, 1)
	ch <- s.current
	s.subs[id] = ch

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if sub, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// publishLatest delivers u without blocking, displacing an unconsumed older
// value. Set holds the store lock, so there is never a concurrent publisher.
func publishLatest(ch chan *User, u *User) {
	select {
	case ch <- u:
	default:
		select {
		case <-ch:
		default:
		}
		ch <- u
	}
}
