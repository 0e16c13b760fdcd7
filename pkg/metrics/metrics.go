// pkg/metrics/metrics.go
package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/opd-ai/go-orbitsim/pkg/event"
)

const namespace = "orbitsim"

// Collector turns mission events into Prometheus series. It is safe for use
// by every session goroutine at once.
type Collector struct {
	statusTransitions *prometheus.CounterVec
	failures          *prometheus.CounterVec
	successes         *prometheus.CounterVec
	stagesAdvanced    *prometheus.CounterVec
	burns             *prometheus.CounterVec
	fuelSpent         *prometheus.CounterVec
	lastFuel          *prometheus.GaugeVec
	lastMetric        *prometheus.GaugeVec
	undos             *prometheus.CounterVec
	resets            *prometheus.CounterVec
	lockouts          *prometheus.CounterVec
	otpRequests       *prometheus.CounterVec
	httpRequests      *prometheus.CounterVec

	registerer prometheus.Registerer
	mu         sync.Mutex
	subs       []*event.Subscription
}

// NewCollector creates the series and registers them with reg.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		statusTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_transitions_total",
			Help:      "Mission status transitions by target status.",
		}, []string{"mission", "to"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mission_failures_total",
			Help:      "Failed missions by failure label.",
		}, []string{"mission", "label"}),
		successes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mission_successes_total",
			Help:      "Missions that reached their final target.",
		}, []string{"mission"}),
		stagesAdvanced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stages_advanced_total",
			Help:      "Intermediate stage targets met.",
		}, []string{"mission"}),
		burns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "burns_total",
			Help:      "Burn activity by kind and window timing.",
		}, []string{"mission", "kind", "in_window"}),
		fuelSpent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discrete_fuel_spent_total",
			Help:      "Propellant charged by discrete burns.",
		}, []string{"mission", "strength"}),
		lastFuel: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_burn_fuel_remaining",
			Help:      "Fuel remaining after the most recent burn event.",
		}, []string{"mission"}),
		lastMetric: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_stage_metric",
			Help:      "Mission metric at the most recent stage event.",
		}, []string{"mission"}),
		undos: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "undos_total",
			Help:      "Discrete burns rolled back.",
		}, []string{"mission"}),
		resets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resets_total",
			Help:      "Simulation resets.",
		}, []string{"mission"}),
		lockouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alignment_lockouts_total",
			Help:      "Ignitions refused for pitch outside tolerance.",
		}, []string{"mission"}),
		otpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "otp_operations_total",
			Help:      "One-time-code requests and verifications by outcome.",
		}, []string{"op", "outcome"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route template and status.",
		}, []string{"route", "method", "status"}),
		registerer: reg,
	}

	for _, col := range []prometheus.Collector{
		c.statusTransitions, c.failures, c.successes, c.stagesAdvanced,
		c.burns, c.fuelSpent, c.lastFuel, c.lastMetric,
		c.undos, c.resets, c.lockouts, c.otpRequests, c.httpRequests,
	} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// TrackSessions exposes a gauge read from count on every scrape.
func (c *Collector) TrackSessions(count func() int) error {
	return c.registerer.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sessions_active",
		Help:      "Simulations currently hosted.",
	}, func() float64 { return float64(count()) }))
}

// Subscribe attaches the collector to a mission event bus.
func (c *Collector) Subscribe(bus *event.Bus) {
	subs := bus.SubscribeAll(c.handle,
		event.StatusChanged, event.StageAdvanced, event.MissionSucceeded,
		event.MissionFailed, event.BurnStarted, event.BurnStopped, event.BurnFired,
		event.AlignmentLocked, event.BurnUndone, event.MissionReset,
	)
	c.mu.Lock()
	c.subs = append(c.subs, subs...)
	c.mu.Unlock()
}

// Close detaches the collector from every bus it subscribed to.
func (c *Collector) Close() {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()
	for _, s := range subs {
		s.Cancel()
	}
}

func (c *Collector) handle(e event.Event) {
	switch ev := e.(type) {
	case *event.StatusEvent:
		c.statusTransitions.WithLabelValues(ev.Mission, ev.To).Inc()
	case *event.FailureEvent:
		c.failures.WithLabelValues(ev.Mission, ev.Label).Inc()
	case *event.BurnEvent:
		c.burns.WithLabelValues(ev.Mission, string(ev.GetType()), strconv.FormatBool(ev.InWindow)).Inc()
		c.lastFuel.WithLabelValues(ev.Mission).Set(ev.Fuel)
		if ev.GetType() == event.BurnFired {
			c.fuelSpent.WithLabelValues(ev.Mission, ev.Strength).Add(ev.FuelCost)
		}
	case *event.StageEvent:
		if ev.GetType() != event.AlignmentLocked {
			c.lastMetric.WithLabelValues(ev.Mission).Set(ev.Metric)
		}
		switch ev.GetType() {
		case event.StageAdvanced:
			c.stagesAdvanced.WithLabelValues(ev.Mission).Inc()
		case event.MissionSucceeded:
			c.successes.WithLabelValues(ev.Mission).Inc()
		case event.BurnUndone:
			c.undos.WithLabelValues(ev.Mission).Inc()
		case event.MissionReset:
			c.resets.WithLabelValues(ev.Mission).Inc()
		case event.AlignmentLocked:
			c.lockouts.WithLabelValues(ev.Mission).Inc()
		}
	}
}

// ObserveOTP counts one OTP operation ("request" or "verify") by outcome.
func (c *Collector) ObserveOTP(op, outcome string) {
	c.otpRequests.WithLabelValues(op, outcome).Inc()
}

// ObserveHTTP counts one served request.
func (c *Collector) ObserveHTTP(route, method string, status int) {
	c.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
}
