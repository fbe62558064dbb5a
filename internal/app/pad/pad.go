/*
Package pad contains the real-time editing hub: pads, their connected editors,
and the messages exchanged over the pad WebSocket.

This file defines the Pad struct, the hub of a single document. Its Run loop
owns the text, the revision counter and the set of connected clients.
*/
package pad

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"epguest/internal/metrics"
	"epguest/internal/pkg/errs"
	"epguest/internal/pkg/logx"
)

const (
	// DefaultMaxClients is the editor limit of a pad when none is configured.
	DefaultMaxClients = 50

	// InactivityTimeout is how long an empty pad stays loaded.
	InactivityTimeout = 5 * time.Minute

	requestChannelBuffer = 64
)

// State is the document of a pad.
type State struct {
	Text string
	Rev  int
}

// CleanupMsg tells the Manager that a pad stopped; State is kept for the next load.
type CleanupMsg struct {
	Pad   *Pad
	State State
}

type clientChange struct {
	client  *Client
	payload UserChangesPayload
}

type clientRename struct {
	client *Client
	name   string
}

// Pad is a single loaded document with its connected editors.
type Pad struct {
	// ID is the pad identifier from the URL.
	ID string

	// MaxClients caps the number of connected editors; zero means unlimited.
	MaxClients int

	// state is only touched by the Run loop.
	state State

	// clients maps connection IDs to clients. Written only by the Run loop;
	// mu guards reads from other goroutines.
	clients map[string]*Client
	mu      sync.RWMutex

	register   chan *Client
	unregister chan *Client
	changes    chan clientChange
	renames    chan clientRename

	// cleanupChan notifies the Manager when Run returns.
	cleanupChan chan<- CleanupMsg
	managerDone <-chan struct{}

	stop     chan struct{}
	stopOnce sync.Once

	// done is closed when Run returns; senders select on it so they never block on a dead pad.
	done chan struct{}

	shutdownTimer *time.Timer
	metrics       *metrics.Metrics
	logger        zerolog.Logger
}

// NewPad creates a pad seeded with state. Call Run to start it.
func NewPad(id string, maxClients int, state State, cleanupChan chan<- CleanupMsg, managerDone <-chan struct{}, m *metrics.Metrics) *Pad {
	return &Pad{
		ID:            id,
		MaxClients:    maxClients,
		state:         state,
		clients:       make(map[string]*Client),
		register:      make(chan *Client),
		unregister:    make(chan *Client, requestChannelBuffer),
		changes:       make(chan clientChange, requestChannelBuffer),
		renames:       make(chan clientRename, requestChannelBuffer),
		cleanupChan:   cleanupChan,
		managerDone:   managerDone,
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
		shutdownTimer: time.NewTimer(InactivityTimeout),
		metrics:       m,
		logger:        logx.Logger().With().Str("component", "pad").Str("pad_id", id).Logger(),
	}
}

// Stop asks the Run loop to exit. It is safe to call more than once.
func (p *Pad) Stop() {
	p.stopOnce.Do(func() {
		p.logger.Info().Msg("Received stop signal. Stopping pad.")
		close(p.stop)
	})
}

// Done is closed once the Run loop has exited.
func (p *Pad) Done() <-chan struct{} {
	return p.done
}

// Run is the event loop of the pad.
func (p *Pad) Run() {
	defer p.finish()

	for {
		select {
		case c := <-p.register:
			p.addClient(c)

		case c := <-p.unregister:
			p.removeClient(c)

		case ch := <-p.changes:
			p.applyChange(ch)

		case rn := <-p.renames:
			p.rename(rn)

		case <-p.shutdownTimer.C:
			p.logger.Info().Dur("timeout", InactivityTimeout).Msg("Pad inactivity timeout reached.")
			return

		case <-p.stop:
			return
		}
	}
}

func (p *Pad) finish() {
	p.shutdownTimer.Stop()

	p.mu.Lock()
	for id, c := range p.clients {
		c.closeSend()
		delete(p.clients, id)
		p.metrics.PadConnected(-1)
	}
	p.mu.Unlock()

	close(p.done)

	select {
	case p.cleanupChan <- CleanupMsg{Pad: p, State: p.state}:
	case <-p.managerDone:
	}
	p.logger.Info().Int("rev", p.state.Rev).Msg("Pad unloaded.")
}

func (p *Pad) addClient(c *Client) {
	p.mu.Lock()
	if p.MaxClients > 0 && len(p.clients) >= p.MaxClients {
		p.mu.Unlock()
		p.logger.Warn().Int("max_clients", p.MaxClients).Msg("Pad is full. New client rejected.")
		c.SendError(errs.NewError(errs.ErrPadIsFull))
		c.closeSend()
		return
	}

	p.clients[c.id] = c
	authors := p.authorsLocked()
	p.mu.Unlock()

	if p.shutdownTimer.Stop() {
		select {
		case <-p.shutdownTimer.C:
		default:
		}
	}
	p.metrics.PadConnected(1)

	p.logger.Info().Str("client_id", c.id).Str("username", c.account.Username).Int("total_clients", len(authors)).Msg("Client joined pad.")

	vars := clientVarsMap(ClientVars{
		PadID:                 p.ID,
		Rev:                   p.state.Rev,
		Text:                  p.state.Text,
		UserID:                c.id,
		UserName:              c.name,
		ReadOnly:              c.account.ReadOnly,
		DisplayNameChangeable: c.account.DisplayNameChangeable,
		Authors:               authors,
	}, c.pluginVars)

	if !c.sendMessage(NewMessage(TypeClientVars, p.ID, SystemAuthor, vars)) {
		p.removeClient(c)
		return
	}

	p.broadcastExcept(NewMessage(TypeUserJoined, p.ID, SystemAuthor, AuthorEventPayload{Author: c.author()}), c.id)
}

func (p *Pad) removeClient(c *Client) {
	p.mu.Lock()
	current, ok := p.clients[c.id]
	if !ok || current != c {
		p.mu.Unlock()
		return
	}
	delete(p.clients, c.id)
	remaining := len(p.clients)
	p.mu.Unlock()

	c.closeSend()
	p.metrics.PadConnected(-1)
	p.logger.Info().Str("client_id", c.id).Int("total_clients", remaining).Msg("Client left pad.")

	p.broadcastExcept(NewMessage(TypeUserLeft, p.ID, SystemAuthor, AuthorEventPayload{Author: c.author()}), "")

	if remaining == 0 {
		p.shutdownTimer.Reset(InactivityTimeout)
	}
}

func (p *Pad) applyChange(ch clientChange) {
	if !p.isMember(ch.client) {
		return
	}
	if ch.payload.BaseRev > p.state.Rev || ch.payload.BaseRev < 0 {
		p.metrics.PadChange(false)
		ch.client.SendError(errs.NewError(errs.ErrInvalidParams))
		return
	}

	p.state.Rev++
	p.state.Text = ch.payload.Text
	p.metrics.PadChange(true)

	ch.client.sendMessage(NewMessage(TypeAcceptCommit, p.ID, SystemAuthor, AcceptCommitPayload{Rev: p.state.Rev}))
	p.broadcastExcept(NewMessage(TypeNewChanges, p.ID, ch.client.author(), NewChangesPayload{
		Rev:    p.state.Rev,
		Text:   p.state.Text,
		Author: ch.client.author(),
	}), ch.client.id)
}

func (p *Pad) rename(rn clientRename) {
	if !p.isMember(rn.client) {
		return
	}
	rn.client.name = rn.name
	p.broadcastExcept(NewMessage(TypeUserInfo, p.ID, rn.client.author(), AuthorEventPayload{Author: rn.client.author()}), "")
}

func (p *Pad) isMember(c *Client) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.clients[c.id] == c
}

// broadcastExcept sends msg to every client except exceptID. Clients whose
// queue is full are disconnected.
func (p *Pad) broadcastExcept(msg Message, exceptID string) {
	data, err := json.Marshal(msg)
	if err != nil {
		p.logger.Error().Err(err).Str("msg_type", string(msg.Type)).Msg("Error marshaling message for broadcast.")
		return
	}

	p.mu.RLock()
	var slow []*Client
	for id, c := range p.clients {
		if id == exceptID {
			continue
		}
		if !c.enqueue(data) {
			slow = append(slow, c)
		}
	}
	p.mu.RUnlock()

	for _, c := range slow {
		p.logger.Warn().Str("client_id", c.id).Msg("Client send queue full, disconnecting.")
		p.removeClient(c)
	}
}

func (p *Pad) authorsLocked() []Author {
	authors := make([]Author, 0, len(p.clients))
	for _, c := range p.clients {
		authors = append(authors, c.author())
	}
	return authors
}

// Authors returns the connected editors.
func (p *Pad) Authors() []Author {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.authorsLocked()
}

// IsFull reports whether the pad has reached MaxClients.
func (p *Pad) IsFull() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.MaxClients > 0 && len(p.clients) >= p.MaxClients
}

// RegisterClient hands c to the Run loop. If the pad has already stopped, c is closed.
func (p *Pad) RegisterClient(c *Client) {
	select {
	case p.register <- c:
	case <-p.done:
		c.closeSend()
	}
}

func (p *Pad) unregisterClient(c *Client) {
	select {
	case p.unregister <- c:
	case <-p.done:
	}
}

func (p *Pad) submitChange(c *Client, payload UserChangesPayload) {
	select {
	case p.changes <- clientChange{client: c, payload: payload}:
	case <-p.done:
	}
}

func (p *Pad) submitRename(c *Client, name string) {
	select {
	case p.renames <- clientRename{client: c, name: name}:
	case <-p.done:
	}
}
