package session

import (
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/bryanwahyu/neuroscan/internal/metrics"
)

// Manager keeps live sessions in memory. Idle sessions expire after ttl;
// a session that is analyzing or saving never expires.
type Manager struct {
	deps  Deps
	opts  Options
	cache *cache.Cache
}

func NewManager(ttl time.Duration, deps Deps, opts Options) *Manager {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	c := cache.New(ttl, ttl/2)
	c.OnEvicted(func(string, interface{}) {
		metrics.ActiveSessions.Dec()
	})
	return &Manager{deps: deps, opts: opts, cache: c}
}

// Create opens a fresh idle session for owner. owner may be empty.
func (m *Manager) Create(owner string) *Controller {
	ctrl := NewController(uuid.NewString(), owner, m.deps, m.opts)
	id := ctrl.ID()
	ctrl.pin = func(busy bool) {
		if busy {
			m.cache.Set(id, ctrl, cache.NoExpiration)
			return
		}
		// a closed session stays closed
		if _, ok := m.cache.Get(id); ok {
			m.cache.SetDefault(id, ctrl)
		}
	}
	m.cache.SetDefault(id, ctrl)
	metrics.ActiveSessions.Inc()
	return ctrl
}

// Get returns the session only to the owner that created it.
// Every lookup extends the session's lifetime.
func (m *Manager) Get(owner, id string) (*Controller, error) {
	v, ok := m.cache.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	ctrl := v.(*Controller)
	if ctrl.OwnerID() != owner {
		return nil, ErrNotFound
	}
	ctrl.touch()
	return ctrl, nil
}

// Close drops the session. Its state is reset so late responses are discarded.
func (m *Manager) Close(owner, id string) error {
	ctrl, err := m.Get(owner, id)
	if err != nil {
		return err
	}
	ctrl.Reset()
	m.cache.Delete(id)
	return nil
}

func (m *Manager) Count() int {
	return m.cache.ItemCount()
}
