// Package local adapts round notifications to the in-process WebSocket manager.
package local

import (
	"encoding/json"

	"github.com/nikepigwin/officialmainnetnplottery/pkg/logger"
)

// Fanout is the spectator side of the broadcaster
type Fanout interface {
	Broadcast(message []byte)
}

// Broadcaster implements domain.Broadcaster by sending every event to all spectators as JSON
type Broadcaster struct {
	fanout Fanout
}

func NewBroadcaster(fanout Fanout) *Broadcaster {
	return &Broadcaster{fanout: fanout}
}

// envelope is the message shape spectators receive
type envelope struct {
	Game    string      `json:"game"`
	Command string      `json:"command"`
	Data    interface{} `json:"data"`
}

// Typed events carry their own command name
type commander interface {
	Command() string
}

func (b *Broadcaster) Broadcast(event interface{}) {
	command := "event"
	if c, ok := event.(commander); ok {
		command = c.Command()
	}

	msg, err := json.Marshal(envelope{Game: "nikepig_lottery", Command: command, Data: event})
	if err != nil {
		logger.ErrorGlobal().Err(err).Str("command", command).Msg("Failed to encode broadcast")
		return
	}
	b.fanout.Broadcast(msg)
}
