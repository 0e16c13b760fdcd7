// pkg/session/session.go
package session

import (
	"context"
	"errors"
	"time"

	"github.com/opd-ai/go-orbitsim/pkg/engine"
	"github.com/opd-ai/go-orbitsim/pkg/logging"
)

var (
	// ErrClosed is returned for commands sent to a session whose loop has exited.
	ErrClosed = errors.New("session closed")
	// ErrNotFound is returned for unknown session IDs.
	ErrNotFound = errors.New("session not found")
	// ErrCapacity is returned when MaxSessions simulations are already hosted.
	ErrCapacity = errors.New("session capacity reached")
	// ErrUnknownMission is returned when the catalogue has no such mission.
	ErrUnknownMission = errors.New("unknown mission")
)

// result is what a command sends back on its reply channel.
type result struct {
	telemetry engine.Telemetry
	err       error
}

// command runs on the session goroutine. run may touch the simulation; the
// caller waits on reply.
type command struct {
	run   func() result
	reply chan result
}

// Session owns one simulation. Every read and write of the simulation happens
// on the goroutine executing Run, so the simulation needs no lock.
type Session struct {
	ID      string
	Mission string
	Created time.Time

	sim            *engine.Simulation
	inbox          chan command
	done           chan struct{}
	tickInterval   time.Duration
	telemetryEvery uint64
	logger         *logging.Logger

	// Owned by the loop goroutine.
	ticks       uint64
	subscribers map[int]chan engine.Telemetry
	nextSub     int
	dropped     uint64
}

func newSession(id string, sim *engine.Simulation, opts Options, logger *logging.Logger) *Session {
	every := uint64(opts.TelemetryEvery)
	if every == 0 {
		every = 1
	}
	return &Session{
		ID:             id,
		Mission:        sim.Name(),
		Created:        time.Now(),
		sim:            sim,
		inbox:          make(chan command, opts.inboxSize()),
		done:           make(chan struct{}),
		tickInterval:   opts.TickInterval,
		telemetryEvery: every,
		logger:         logger.With("session_id", id, "mission", sim.Name()),
		subscribers:    make(map[int]chan engine.Telemetry),
	}
}

// Run drives the simulation until ctx is cancelled: one tick per period, and
// inbox commands in arrival order between ticks. A zero tick interval leaves
// the clock to Advance.
func (s *Session) Run(ctx context.Context) {
	defer close(s.done)
	defer s.closeSubscribers()

	var tick <-chan time.Time
	if s.tickInterval > 0 {
		ticker := time.NewTicker(s.tickInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	s.logger.Info(ctx, "Session loop started", "tick_interval", s.tickInterval)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info(context.Background(), "Session loop stopped",
				"ticks", s.ticks,
				"status", string(s.sim.Status()),
				"dropped_frames", s.dropped,
			)
			return
		case cmd := <-s.inbox:
			cmd.reply <- cmd.run()
		case <-tick:
			s.step()
		}
	}
}

func (s *Session) step() {
	s.sim.Tick()
	s.ticks++
	if s.ticks%s.telemetryEvery == 0 {
		s.broadcast(s.sim.Telemetry())
	}
}

// broadcast never blocks: a subscriber whose buffer is full misses the frame.
func (s *Session) broadcast(t engine.Telemetry) {
	for _, ch := range s.subscribers {
		select {
		case ch <- t:
		default:
			s.dropped++
		}
	}
}

func (s *Session) closeSubscribers() {
	for id, ch := range s.subscribers {
		close(ch)
		delete(s.subscribers, id)
	}
}

// Done is closed once the session loop has exited.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) send(ctx context.Context, run func() result) (engine.Telemetry, error) {
	cmd := command{run: run, reply: make(chan result, 1)}
	select {
	case s.inbox <- cmd:
	case <-s.done:
		return engine.Telemetry{}, ErrClosed
	case <-ctx.Done():
		return engine.Telemetry{}, ctx.Err()
	}

	select {
	case r := <-cmd.reply:
		return r.telemetry, r.err
	case <-s.done:
		return engine.Telemetry{}, ErrClosed
	case <-ctx.Done():
		return engine.Telemetry{}, ctx.Err()
	}
}

// Apply executes a control action and returns the telemetry taken right
// after it. Subscribers receive the same frame. A rejected action still
// returns the current telemetry alongside the error.
func (s *Session) Apply(ctx context.Context, a engine.Action) (engine.Telemetry, error) {
	return s.send(ctx, func() result {
		err := s.sim.Apply(a)
		t := s.sim.Telemetry()
		s.broadcast(t)
		return result{telemetry: t, err: err}
	})
}

// Telemetry returns a snapshot of the simulation.
func (s *Session) Telemetry(ctx context.Context) (engine.Telemetry, error) {
	return s.send(ctx, func() result {
		return result{telemetry: s.sim.Telemetry()}
	})
}

// Advance runs n ticks on the session goroutine and returns the resulting
// telemetry. Used by manual-clock sessions and tests.
func (s *Session) Advance(ctx context.Context, n int) (engine.Telemetry, error) {
	return s.send(ctx, func() result {
		for i := 0; i < n; i++ {
			s.step()
		}
		return result{telemetry: s.sim.Telemetry()}
	})
}

// Subscribe registers a telemetry stream with the given buffer size. The
// channel is closed by cancel or when the session stops.
func (s *Session) Subscribe(ctx context.Context, buffer int) (<-chan engine.Telemetry, func(), error) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan engine.Telemetry, buffer)
	var id int
	_, err := s.send(ctx, func() result {
		id = s.nextSub
		s.nextSub++
		s.subscribers[id] = ch
		return result{}
	})
	if err != nil {
		return nil, nil, err
	}

	cancel := func() {
		_, _ = s.send(context.Background(), func() result {
			if c, ok := s.subscribers[id]; ok {
				close(c)
				delete(s.subscribers, id)
			}
			return result{}
		})
	}
	return ch, cancel, nil
}
