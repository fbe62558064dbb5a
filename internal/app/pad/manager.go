/*
Package pad contains the real-time editing hub: pads, their connected editors,
and the messages exchanged over the pad WebSocket.

This file defines the Manager, which loads pads on demand, tracks the running
ones and keeps the document of unloaded pads so that they can be reloaded.
*/
package pad

import (
	"sync"

	"github.com/rs/zerolog"

	"epguest/internal/metrics"
	"epguest/internal/pkg/logx"
)

// Manager coordinates all loaded pads.
type Manager struct {
	// pads stores the running pads keyed by pad ID.
	pads map[string]*Pad

	// archive keeps the state of pads that were unloaded.
	archive map[string]State

	maxClients int
	metrics    *metrics.Metrics

	// mu protects pads and archive.
	mu sync.Mutex

	// cleanup is used by pads to report that their Run loop exited.
	cleanup chan CleanupMsg

	// done is closed by Shutdown.
	done     chan struct{}
	shutdown sync.Once

	// wg waits for runCleanupLoop during shutdown.
	wg sync.WaitGroup

	logger zerolog.Logger
}

// NewManager constructs a Manager and starts its cleanup loop.
// maxClients <= 0 selects DefaultMaxClients.
func NewManager(maxClients int, m *metrics.Metrics) *Manager {
	if maxClients <= 0 {
		maxClients = DefaultMaxClients
	}

	mgr := &Manager{
		pads:       make(map[string]*Pad),
		archive:    make(map[string]State),
		maxClients: maxClients,
		metrics:    m,
		cleanup:    make(chan CleanupMsg, 10),
		done:       make(chan struct{}),
		logger:     logx.Component("pad_manager"),
	}

	mgr.wg.Add(1)
	go mgr.runCleanupLoop()

	return mgr
}

func (m *Manager) runCleanupLoop() {
	defer m.wg.Done()

	m.logger.Info().Msg("Cleanup loop started.")

	for {
		select {
		case msg := <-m.cleanup:
			m.unload(msg)
		case <-m.done:
			m.logger.Info().Msg("Cleanup loop stopped.")
			return
		}
	}
}

// unload archives the state of a stopped pad and forgets it, unless the entry
// has already been replaced by a newer pad.
func (m *Manager) unload(msg CleanupMsg) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.archive[msg.Pad.ID] = msg.State
	if current, ok := m.pads[msg.Pad.ID]; ok && current == msg.Pad {
		delete(m.pads, msg.Pad.ID)
		m.logger.Info().Str("pad_id", msg.Pad.ID).Msg("Pad successfully removed.")
	}
}

// GetOrCreate returns the running pad with the given ID, loading it if needed.
// It returns nil after Shutdown.
func (m *Manager) GetOrCreate(padID string) *Pad {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pads == nil {
		return nil
	}

	if p, ok := m.pads[padID]; ok {
		select {
		case <-p.Done():
			// Stopped but not yet cleaned up; replace it.
			m.archive[padID] = p.state
		default:
			return p
		}
	}

	p := NewPad(padID, m.maxClients, m.archive[padID], m.cleanup, m.done, m.metrics)
	m.pads[padID] = p
	go p.Run()

	m.logger.Info().Str("pad_id", padID).Int("max_clients", m.maxClients).Msg("Pad loaded.")
	return p
}

// Get returns the running pad with the given ID, or nil.
func (m *Manager) Get(padID string) *Pad {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.pads[padID]
}

// Len returns the number of loaded pads.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.pads)
}

// Shutdown stops every pad and the cleanup loop. It is safe to call more than once.
func (m *Manager) Shutdown() {
	m.shutdown.Do(func() {
		m.logger.Info().Msg("Shutting down pad manager...")

		m.mu.Lock()
		pads := m.pads
		m.pads = nil
		m.mu.Unlock()

		for _, p := range pads {
			p.Stop()
		}
		for _, p := range pads {
			<-p.Done()
		}

		close(m.done)
		m.wg.Wait()

		m.logger.Info().Msg("Pad manager shutdown complete.")
	})
}
