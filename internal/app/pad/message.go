/*
Package pad contains the real-time editing hub: pads, their connected editors,
and the messages exchanged over the pad WebSocket.

This file defines the wire messages. Every message shares one envelope; the
payload depends on the type.
*/
package pad

import (
	"time"

	"github.com/google/uuid"

	"epguest/internal/app/user"
)

// MessageType identifies the kind of a pad message.
type MessageType string

const (
	// Server to client.
	TypeClientVars   MessageType = "CLIENT_VARS"
	TypeNewChanges   MessageType = "NEW_CHANGES"
	TypeUserJoined   MessageType = "USER_JOINED"
	TypeUserLeft     MessageType = "USER_LEFT"
	TypeUserInfo     MessageType = "USERINFO_UPDATE"
	TypeAcceptCommit MessageType = "ACCEPT_COMMIT"
	TypeError        MessageType = "ERROR"

	// Client to server. USERINFO_UPDATE is used in both directions.
	TypeUserChanges MessageType = "USER_CHANGES"
)

// Author describes a connected editor as seen by other editors.
type Author struct {
	// ID identifies the connection, not the account; several tabs of the same
	// account (or many guests) are distinct authors.
	ID string `json:"id"`

	// Name is the display name.
	Name string `json:"name"`

	// ReadOnly authors may watch but not edit.
	ReadOnly bool `json:"readOnly"`
}

// SystemAuthor is the sender of messages generated by the server.
var SystemAuthor = Author{ID: "system", Name: "System"}

// Message is the envelope of every pad message.
type Message struct {
	ID        string      `json:"id"`
	Type      MessageType `json:"type"`
	PadID     string      `json:"padId"`
	Sender    Author      `json:"sender"`
	Payload   any         `json:"payload,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// NewMessage builds a message with a fresh ID and the current time.
func NewMessage(msgType MessageType, padID string, sender Author, payload any) Message {
	return Message{
		ID:        uuid.NewString(),
		Type:      msgType,
		PadID:     padID,
		Sender:    sender,
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
	}
}

// UserChangesPayload is sent by a client to replace the pad text.
type UserChangesPayload struct {
	// BaseRev is the revision the change was made against.
	BaseRev int `json:"baseRev"`

	// Text is the full new pad text.
	Text string `json:"text"`
}

// NewChangesPayload is broadcast after a change was applied.
type NewChangesPayload struct {
	Rev    int    `json:"rev"`
	Text   string `json:"text"`
	Author Author `json:"author"`
}

// AcceptCommitPayload acknowledges a change to its author.
type AcceptCommitPayload struct {
	Rev int `json:"rev"`
}

// UserInfoPayload carries a display name change.
type UserInfoPayload struct {
	Name string `json:"name"`
}

// AuthorEventPayload is sent when an author joins, leaves or is renamed.
type AuthorEventPayload struct {
	Author Author `json:"author"`
}

// ErrorPayload reports a rejected request to its sender.
type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ClientVars is the initial state sent to a client in CLIENT_VARS. Plugin
// values are merged into the top level when marshaled.
type ClientVars struct {
	PadID                 string   `json:"padId"`
	Rev                   int      `json:"rev"`
	Text                  string   `json:"text"`
	UserID                string   `json:"userId"`
	UserName              string   `json:"userName"`
	ReadOnly              bool     `json:"readOnly"`
	DisplayNameChangeable bool     `json:"displayNameChangeable"`
	Authors               []Author `json:"authors"`
}

// clientVarsMap merges the built-in fields with plugin values. Built-in fields win.
func clientVarsMap(cv ClientVars, plugins map[string]any) map[string]any {
	out := make(map[string]any, len(plugins)+8)
	for k, v := range plugins {
		out[k] = v
	}
	out["padId"] = cv.PadID
	out["rev"] = cv.Rev
	out["text"] = cv.Text
	out["userId"] = cv.UserID
	out["userName"] = cv.UserName
	out["readOnly"] = cv.ReadOnly
	out["displayNameChangeable"] = cv.DisplayNameChangeable
	out["authors"] = cv.Authors
	return out
}

// Identity is the account behind a connection. Anonymous visitors on an open
// server get a writable, renameable identity.
func Identity(u *user.User) user.User {
	if u == nil {
		return user.User{DisplayNameChangeable: true}
	}
	return *u
}
