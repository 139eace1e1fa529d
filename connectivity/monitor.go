// Package connectivity answers one question: can we currently reach the
// remote store? Platform-level network notifications arrive as hints via
// Notify; the active probe (a lightweight remote read) is the authoritative
// signal.
package connectivity

import (
	"context"
	"sync"
	"time"

	"bitbucket.org/mmdatafocus/qist_backend/remote"
	"github.com/sirupsen/logrus"
)

const probeTimeout = 5 * time.Second

// Monitor tracks reachability of the remote store. It is constructed per
// process and owns its prober goroutine; tests build a fresh instance each.
type Monitor struct {
	client      remote.Client
	logger      *logrus.Logger
	interval    time.Duration
	onReconnect func()

	mu     sync.Mutex
	online bool

	stop chan struct{}
	done chan struct{}
}

// NewMonitor wires a monitor to a remote client. onReconnect fires once per
// offline-to-online transition; the sync manager's in-flight guard keeps a
// second transition during a running cycle from stacking another one.
func NewMonitor(client remote.Client, interval time.Duration, logger *logrus.Logger, onReconnect func()) *Monitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Monitor{
		client:      client,
		logger:      logger,
		interval:    interval,
		onReconnect: onReconnect,
	}
}

// Start launches the periodic prober. The first probe runs immediately so
// status is meaningful before the first tick.
func (m *Monitor) Start() {
	m.mu.Lock()
	if m.stop != nil {
		m.mu.Unlock()
		return
	}
	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	stop := m.stop
	done := m.done
	m.mu.Unlock()

	go func() {
		defer close(done)
		m.Probe(context.Background())
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				m.Probe(context.Background())
			}
		}
	}()
}

func (m *Monitor) Stop() {
	m.mu.Lock()
	stop, done := m.stop, m.done
	m.stop, m.done = nil, nil
	m.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-done
}

func (m *Monitor) IsOnline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Notify feeds a platform-level network-change hint. Going offline is taken
// at face value (nothing to verify against an unreachable network); going
// online only schedules a probe, which remains the authoritative signal.
func (m *Monitor) Notify(online bool) {
	if !online {
		m.setOnline(false)
		return
	}
	go m.Probe(context.Background())
}

// Probe performs the reachability check and updates the status. Returns the
// fresh online state.
func (m *Monitor) Probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	err := m.client.Ping(ctx)
	online := err == nil
	if err != nil && m.logger != nil {
		m.logger.WithFields(logrus.Fields{
			"module":   "connectivity",
			"funcName": "Probe",
		}).Debug(err.Error())
	}
	m.setOnline(online)
	return online
}

func (m *Monitor) setOnline(online bool) {
	m.mu.Lock()
	wasOnline := m.online
	m.online = online
	m.mu.Unlock()

	if online && !wasOnline && m.onReconnect != nil {
		go m.onReconnect()
	}
}
