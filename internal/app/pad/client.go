/*
Package pad contains the real-time editing hub: pads, their connected editors,
and the messages exchanged over the pad WebSocket.

This file defines the Client struct, one WebSocket connection to a pad. It
runs the read and write pumps and enforces the account restrictions (read-only
and locked display names) before anything reaches the pad.
*/
package pad

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"epguest/internal/app/user"
	"epguest/internal/pkg/errs"
	"epguest/internal/pkg/logx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// MaxChangeBytes is the largest pad text a client may submit.
	MaxChangeBytes = 100 * 1024

	// MaxNameLength caps display names, in bytes.
	MaxNameLength = 64

	// maximum allowed size (in bytes) of a message sent by the client.
	maxMessageSize = MaxChangeBytes + 4096

	sendBuffer = 256
)

// Client is one WebSocket connection to a pad.
type Client struct {
	// id is the connection ID, used as the author ID.
	id string

	pad  *Pad
	conn *websocket.Conn

	// account is the user attached to the session when the socket was opened.
	account user.User

	// name is the current display name. Owned by the pad Run loop.
	name string

	// pluginVars are merged into CLIENT_VARS.
	pluginVars map[string]any

	send   chan []byte
	sendMu sync.Mutex
	closed bool

	logger zerolog.Logger
}

// NewClient constructs a client for account on p.
func NewClient(p *Pad, conn *websocket.Conn, account user.User, pluginVars map[string]any) *Client {
	id := uuid.NewString()

	return &Client{
		id:         id,
		pad:        p,
		conn:       conn,
		account:    account,
		name:       account.Name(),
		pluginVars: pluginVars,
		send:       make(chan []byte, sendBuffer),
		logger: logx.Logger().With().
			Str("client_id", id).
			Str("pad_id", p.ID).
			Str("username", account.Username).
			Logger(),
	}
}

// ID returns the connection ID.
func (c *Client) ID() string {
	return c.id
}

func (c *Client) author() Author {
	return Author{ID: c.id, Name: c.name, ReadOnly: c.account.ReadOnly}
}

// ReadPump reads messages until the connection fails, then unregisters the client.
func (c *Client) ReadPump() {
	defer c.cleanupOnDisconnect()

	c.conn.SetReadLimit(maxMessageSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, messageBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading message (Client close/going away)")
			}
			break
		}

		c.processInboundMessage(messageBytes)
	}
}

func (c *Client) cleanupOnDisconnect() {
	c.logger.Debug().Msg("Client connection cleanup starting.")

	c.pad.unregisterClient(c)

	if err := c.conn.Close(); err != nil {
		c.logger.Debug().Err(err).Msg("Client connection close error")
	}
}

func (c *Client) processInboundMessage(messageBytes []byte) {
	var inboundMsg struct {
		Type    MessageType     `json:"type"`
		Payload json.RawMessage `json:"payload,omitempty"`
	}

	if err := json.Unmarshal(messageBytes, &inboundMsg); err != nil {
		c.logger.Warn().Err(err).Msg("Client sent invalid JSON")
		c.SendError(errs.NewError(errs.ErrInvalidParams))
		return
	}

	switch inboundMsg.Type {
	case TypeUserChanges:
		c.handleUserChanges(inboundMsg.Payload)

	case TypeUserInfo:
		c.handleUserInfo(inboundMsg.Payload)

	default:
		c.logger.Warn().Str("msg_type", string(inboundMsg.Type)).Msg("Client sent unsupported message type")
		c.SendError(errs.NewError(errs.ErrInvalidParams))
	}
}

func (c *Client) handleUserChanges(payloadBytes json.RawMessage) {
	if c.account.ReadOnly {
		c.logger.Info().Msg("Read-only client attempted to change pad.")
		c.pad.metrics.PadChange(false)
		c.SendError(errs.NewError(errs.ErrPadReadOnly))
		return
	}

	var payload UserChangesPayload
	if err := json.Unmarshal(payloadBytes, &payload); err != nil {
		c.logger.Warn().Err(err).Msg("Client sent invalid USER_CHANGES payload")
		c.SendError(errs.NewError(errs.ErrInvalidParams))
		return
	}

	if len(payload.Text) > MaxChangeBytes {
		c.pad.metrics.PadChange(false)
		c.SendError(errs.NewError(errs.ErrChangeTooLarge, MaxChangeBytes))
		return
	}

	c.pad.submitChange(c, payload)
}

func (c *Client) handleUserInfo(payloadBytes json.RawMessage) {
	if !c.account.DisplayNameChangeable {
		c.logger.Info().Msg("Client with a locked display name attempted to rename.")
		c.SendError(errs.NewError(errs.ErrDisplayNameLocked))
		return
	}

	var payload UserInfoPayload
	if err := json.Unmarshal(payloadBytes, &payload); err != nil {
		c.logger.Warn().Err(err).Msg("Client sent invalid USERINFO_UPDATE payload")
		c.SendError(errs.NewError(errs.ErrInvalidParams))
		return
	}

	name := strings.TrimSpace(payload.Name)
	if name == "" || len(name) > MaxNameLength {
		c.SendError(errs.NewError(errs.ErrInvalidParams))
		return
	}

	c.pad.submitRename(c, name)
}

// WritePump writes queued messages and periodic pings until the send queue is closed.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Client connection close error in WritePump")
		}
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !c.writeQueuedMessage(message, ok) {
				return
			}

		case <-ticker.C:
			if !c.writePingMessage() {
				return
			}
		}
	}
}

// writeQueuedMessage returns false when the WritePump loop should terminate.
func (c *Client) writeQueuedMessage(message []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if !ok {
		if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
			c.logger.Debug().Err(err).Msg("Error writing close message")
		}
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		c.logger.Error().Err(err).Msg("Error writing message")
		return false
	}

	return true
}

func (c *Client) writePingMessage() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.logger.Error().Err(err).Msg("Error writing ping")
		return false
	}

	return true
}

// enqueue queues data without blocking. It reports false when the queue is
// full or already closed.
func (c *Client) enqueue(data []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// closeSend closes the send queue, which makes WritePump send a close frame and exit.
func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (c *Client) sendMessage(msg Message) bool {
	messageBytes, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error().Err(err).Str("msg_type", string(msg.Type)).Msg("Error marshaling data for client")
		return false
	}

	if !c.enqueue(messageBytes) {
		c.logger.Warn().Int("queue_len", len(c.send)).Msg("Client send channel full or closed, dropping message")
		return false
	}
	return true
}

// SendError sends an ERROR message describing err to the client.
func (c *Client) SendError(err error) {
	var payload ErrorPayload

	var customErr *errs.CustomError
	if errors.As(err, &customErr) {
		payload = ErrorPayload{Code: customErr.Code, Message: customErr.Message}
	} else {
		payload = ErrorPayload{Code: errs.ErrUnknown, Message: fmt.Sprintf("Internal server error: %v", err)}
	}

	c.sendMessage(NewMessage(TypeError, c.pad.ID, SystemAuthor, payload))
}
