// pkg/session/manager.go
package session

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/opd-ai/go-orbitsim/pkg/config"
	"github.com/opd-ai/go-orbitsim/pkg/engine"
	"github.com/opd-ai/go-orbitsim/pkg/event"
	"github.com/opd-ai/go-orbitsim/pkg/logging"
	"github.com/opd-ai/go-orbitsim/pkg/resource"
)

const defaultInboxSize = 16

// Options control how sessions are hosted.
type Options struct {
	MaxSessions    int
	TickInterval   time.Duration
	TelemetryEvery int
	InboxSize      int
}

func (o Options) inboxSize() int {
	if o.InboxSize > 0 {
		return o.InboxSize
	}
	return defaultInboxSize
}

// OptionsFromEnv derives hosting options from the process configuration.
func OptionsFromEnv(env *config.EnvironmentConfig) Options {
	return Options{
		MaxSessions:    env.MaxSessions,
		TickInterval:   env.TickInterval(),
		TelemetryEvery: env.TelemetryEvery,
	}
}

// Info summarizes a hosted session for listings.
type Info struct {
	ID      string    `json:"id"`
	Mission string    `json:"mission"`
	Created time.Time `json:"created"`
}

type entry struct {
	session *Session
	cancel  context.CancelFunc
}

// Manager is the registry of hosted sessions. Every session loop runs on a
// goroutine tracked by the resource manager.
type Manager struct {
	catalogue *config.Config
	opts      Options
	resources *resource.ResourceManager
	EventBus  *event.Bus
	logger    *logging.Logger

	mu       sync.RWMutex
	sessions map[string]*entry
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewManager creates a session registry over the mission catalogue. Events
// from every hosted simulation are published on bus.
func NewManager(catalogue *config.Config, opts Options, resources *resource.ResourceManager, bus *event.Bus, logger *logging.Logger) *Manager {
	if bus == nil {
		bus = event.NewEventBus()
	}
	if logger == nil {
		logger = logging.NewLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		catalogue: catalogue,
		opts:      opts,
		resources: resources,
		EventBus:  bus,
		logger:    logger.With("component", "session"),
		sessions:  make(map[string]*entry),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Catalogue returns the missions sessions can be created from.
func (m *Manager) Catalogue() *config.Config {
	return m.catalogue
}

// Create starts a new session for the named mission. An empty name selects
// the catalogue default.
func (m *Manager) Create(ctx context.Context, mission string) (*Session, error) {
	if mission == "" {
		mission = m.catalogue.DefaultMission
	}
	mc, ok := m.catalogue.Mission(mission)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMission, mission)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.opts.MaxSessions > 0 && len(m.sessions) >= m.opts.MaxSessions {
		m.logger.Warn(ctx, "Session capacity reached", "limit", m.opts.MaxSessions)
		return nil, ErrCapacity
	}

	sim, err := engine.NewSimulation(mc, m.EventBus)
	if err != nil {
		return nil, logging.WrapError(err, "create simulation %q", mission)
	}

	id := uuid.NewString()
	s := newSession(id, sim, m.opts, m.logger)
	loopCtx, cancel := context.WithCancel(m.ctx)
	if err := m.resources.StartGoroutine(loopCtx, "session:"+id, s.Run); err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %v", ErrCapacity, err)
	}

	m.sessions[id] = &entry{session: s, cancel: cancel}
	m.logger.Info(ctx, "Session created", "session_id", id, "mission", mission)
	return s, nil
}

// Get returns a running session.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	e, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	select {
	case <-e.session.Done():
		return nil, ErrClosed
	default:
	}
	return e.session, nil
}

// List returns the hosted sessions ordered by creation time.
func (m *Manager) List() []Info {
	m.mu.RLock()
	infos := make([]Info, 0, len(m.sessions))
	for _, e := range m.sessions {
		infos = append(infos, Info{ID: e.session.ID, Mission: e.session.Mission, Created: e.session.Created})
	}
	m.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Created.Equal(infos[j].Created) {
			return infos[i].ID < infos[j].ID
		}
		return infos[i].Created.Before(infos[j].Created)
	})
	return infos
}

// Count returns the number of hosted sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Capacity returns the configured session limit; zero means unlimited.
func (m *Manager) Capacity() int {
	return m.opts.MaxSessions
}

// Close stops a session and waits for its loop to exit.
func (m *Manager) Close(ctx context.Context, id string) error {
	m.mu.Lock()
	e, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}

	e.cancel()
	select {
	case <-e.session.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	m.logger.Info(ctx, "Session closed", "session_id", id)
	return nil
}

// Shutdown stops every session loop and waits for them to exit.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	entries := make([]*entry, 0, len(m.sessions))
	for id, e := range m.sessions {
		entries = append(entries, e)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	m.cancel()
	for _, e := range entries {
		select {
		case <-e.session.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	m.logger.Info(ctx, "All sessions stopped", "count", len(entries))
	return nil
}
