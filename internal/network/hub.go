// Package network carries the status engine's traffic: game clients over
// websocket, the AI process link, and the admin HTTP API.
package network

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/MRamiBalles/worldstatus/internal/engine"
	"github.com/MRamiBalles/worldstatus/internal/platform/logger"
	"github.com/MRamiBalles/worldstatus/internal/platform/metrics"
	"github.com/MRamiBalles/worldstatus/internal/protocol"
)

// DefaultViewRange is how far (in cells) a room broadcast reaches.
const DefaultViewRange = 18

// RoomResolver returns the roles that observe roleID, including itself.
type RoomResolver func(roleID uint32) []uint32

// NearbyPlayers resolves rooms as every registered player on the role's map
// within radius of it.
func NearbyPlayers(e *engine.Engine, radius int) RoomResolver {
	return func(roleID uint32) []uint32 {
		center, ok := e.Role(roleID)
		if !ok {
			return nil
		}
		out := []uint32{roleID}
		for _, set := range e.Sets() {
			r := set.Owner()
			if r.ID == roleID || !r.IsPlayer() || r.MapID != center.MapID {
				continue
			}
			if center.Distance(r) <= radius {
				out = append(out, r.ID)
			}
		}
		return out
	}
}

// Hub maintains the set of connected game clients, one per role, and
// delivers engine messages to them. It is the engine's ClientSink.
type Hub struct {
	clients    map[uint32]*Client
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
	room       RoomResolver
	onConnect  func(roleID uint32)
	sendBuffer int
	logger     *logger.Logger
	metrics    *metrics.Collector
}

var _ engine.ClientSink = (*Hub)(nil)

// NewHub initializes a new WebSocket Hub.
func NewHub(room RoomResolver, sendBuffer int, log *logger.Logger, m *metrics.Collector) *Hub {
	if room == nil {
		room = func(roleID uint32) []uint32 { return []uint32{roleID} }
	}
	if sendBuffer <= 0 {
		sendBuffer = 256
	}
	if log == nil {
		log = logger.NewNop()
	}
	if m == nil {
		m = metrics.Get()
	}
	return &Hub{
		clients:    make(map[uint32]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		room:       room,
		sendBuffer: sendBuffer,
		logger:     log.Named("hub"),
		metrics:    m,
	}
}

// SetRoom replaces the room resolver. Set it before Run.
func (h *Hub) SetRoom(room RoomResolver) {
	if room != nil {
		h.room = room
	}
}

// OnConnect sets a callback run after a client is registered, used to push
// the full status state to a fresh connection. Set it before Run.
func (h *Hub) OnConnect(fn func(roleID uint32)) {
	h.onConnect = fn
}

// Run starts the Hub's main loop to handle client connections.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for id, c := range h.clients {
				close(c.send)
				delete(h.clients, id)
			}
			h.mu.Unlock()
			h.logger.Info("websocket hub shutting down")
			return
		case client := <-h.register:
			h.mu.Lock()
			if old, ok := h.clients[client.roleID]; ok {
				close(old.send)
				h.metrics.RecordWSConnection(-1)
			}
			h.clients[client.roleID] = client
			h.mu.Unlock()
			h.metrics.RecordWSConnection(1)
			h.logger.Info("client connected", zap.Uint32("role", client.roleID))
			if h.onConnect != nil {
				h.onConnect(client.roleID)
			}
		case client := <-h.unregister:
			h.mu.Lock()
			if cur, ok := h.clients[client.roleID]; ok && cur == client {
				delete(h.clients, client.roleID)
				close(client.send)
				h.metrics.RecordWSConnection(-1)
				h.logger.Info("client disconnected", zap.Uint32("role", client.roleID))
			}
			h.mu.Unlock()
		}
	}
}

// Connected reports whether a role has a live client.
func (h *Hub) Connected(roleID uint32) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[roleID]
	return ok
}

// ConnectedRoles returns the roles with a live client.
func (h *Hub) ConnectedRoles() []uint32 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]uint32, 0, len(h.clients))
	for id := range h.clients {
		out = append(out, id)
	}
	return out
}

// SendTo delivers a message to one role's client, if connected.
func (h *Hub) SendTo(roleID uint32, msg protocol.Message) {
	payload, ok := h.encode(msg)
	if !ok {
		return
	}
	h.deliver(roleID, payload)
}

// BroadcastRoom delivers a message to every client observing the role.
func (h *Hub) BroadcastRoom(roleID uint32, msg protocol.Message) {
	payload, ok := h.encode(msg)
	if !ok {
		return
	}
	for _, id := range h.room(roleID) {
		h.deliver(id, payload)
	}
}

func (h *Hub) encode(msg protocol.Message) ([]byte, bool) {
	payload, err := protocol.Encode(msg)
	if err != nil {
		h.metrics.RecordWSError()
		h.logger.Error("failed to encode message", zap.String("type", msg.MessageType()), zap.Error(err))
		return nil, false
	}
	return payload, true
}

// deliver never blocks the caller: a client whose buffer is full is dropped.
func (h *Hub) deliver(roleID uint32, payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.clients[roleID]
	if !ok {
		return
	}
	select {
	case c.send <- payload:
		h.metrics.RecordWSMessage(false)
	default:
		close(c.send)
		delete(h.clients, roleID)
		h.metrics.RecordWSConnection(-1)
		h.metrics.RecordWSError()
		h.logger.Warn("dropping slow client", zap.Uint32("role", roleID))
	}
}
