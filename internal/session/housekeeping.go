package session

import (
	"context"

	"scriptsync/pkg/logging"
)

// Start launches the background sweep of expired sessions. The first sweep
// runs after the first-sweep delay, later ones every TTL. Calling Start on a
// running manager does nothing.
func (m *Manager) Start(ctx context.Context) {
	m.lifecycleMu.Lock()
	defer m.lifecycleMu.Unlock()

	if m.cancelSweep != nil {
		return
	}

	sweepCtx, cancel := context.WithCancel(ctx)
	m.cancelSweep = cancel
	m.sweepDone = make(chan struct{})

	go m.sweepLoop(sweepCtx, m.sweepDone)
}

// Stop ends the background sweep and waits for it to exit.
func (m *Manager) Stop() {
	m.lifecycleMu.Lock()
	cancel, done := m.cancelSweep, m.sweepDone
	m.cancelSweep, m.sweepDone = nil, nil
	m.lifecycleMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (m *Manager) sweepLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	delay := m.firstSweepDelay
	if delay <= 0 {
		delay = DefaultFirstSweepDelay
	}
	for {
		if err := m.sleep(ctx, delay); err != nil {
			return
		}
		if _, err := m.SweepExpired(ctx); err != nil {
			logging.Error("Session", err, "Session sweep failed")
		}
		delay = m.ttl
		if delay <= 0 {
			delay = DefaultTTL
		}
	}
}

// SweepExpired deletes every session last touched a TTL or more ago and
// returns how many were removed.
func (m *Manager) SweepExpired(ctx context.Context) (int, error) {
	now := m.now()
	removed, err := m.store.DeleteWhere(ctx, func(s Session) bool {
		return s.Expired(now, m.ttl)
	})
	if err != nil {
		return 0, err
	}

	m.metrics.sweep(len(removed))
	if len(removed) > 0 {
		logging.Debug("Session", "Swept %d expired sessions: %v", len(removed), removed)
	}
	return len(removed), nil
}
