// Package session runs live scene rooms over websockets. Every applied
// operation is broadcast to the room, followed by the room's collision
// state.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Danveyd/NewCatroid/internal/collision"
	"github.com/Danveyd/NewCatroid/internal/scene"
)

const (
	senseTimeout = 5 * time.Second
	loadTimeout  = 10 * time.Second
	saveTimeout  = 10 * time.Second
)

var (
	ErrHubStopped = errors.New("hub stopped")
	// ErrStale is returned by a SceneSaver when the stored scene moved past
	// the revision the room was loaded at.
	ErrStale = errors.New("stored scene changed")
)

// SceneLoader fetches the stored scene for a room.
type SceneLoader func(ctx context.Context, sceneID string) (*scene.Scene, error)

// SceneSaver stores a room's scene, provided the stored copy is still at
// revision base.
type SceneSaver func(ctx context.Context, s *scene.Scene, base uint64) error

type Room struct {
	sceneID  string
	clients  map[string]*Client // clientID -> client
	presence *Roster
	pending  int

	// ready is closed once the scene is loaded; state and loadErr are set
	// before that.
	ready   chan struct{}
	state   *SceneState
	loadErr error

	saveMu sync.Mutex
	base   uint64 // stored revision the room's edits build on
}

func newRoom(sceneID string) *Room {
	return &Room{
		sceneID:  sceneID,
		clients:  make(map[string]*Client),
		presence: NewRoster(),
		ready:    make(chan struct{}),
	}
}

func (r *Room) loaded() bool {
	select {
	case <-r.ready:
		return r.loadErr == nil
	default:
		return false
	}
}

// idle must be called with the hub lock held.
func (r *Room) idle() bool {
	return len(r.clients) == 0 && r.pending == 0
}

type Hub struct {
	mu         sync.RWMutex
	rooms      map[string]*Room // sceneID -> room
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once

	engine *collision.Engine
	load   SceneLoader
	save   SceneSaver
	logger *slog.Logger
}

func NewHub(engine *collision.Engine, load SceneLoader, save SceneSaver, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		rooms:      make(map[string]*Room),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		engine:     engine,
		load:       load,
		save:       save,
		logger:     logger,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case <-h.done:
			return
		}
	}
}

// Stop ends the run loop and saves every changed room.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)

		h.mu.RLock()
		rooms := make([]*Room, 0, len(h.rooms))
		for _, room := range h.rooms {
			rooms = append(rooms, room)
		}
		h.mu.RUnlock()

		for _, room := range rooms {
			h.saveRoom(room)
		}
	})
}

// Live reports whether a scene has a room, loading, open or still saving.
func (h *Hub) Live(sceneID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.rooms[sceneID]
	return ok
}

// Open reserves a place in the room for a scene, loading the scene if this
// is the first reservation. Concurrent callers wait for the same load
// without holding the hub lock.
func (h *Hub) Open(ctx context.Context, sceneID string) error {
	h.mu.Lock()
	select {
	case <-h.done:
		h.mu.Unlock()
		return ErrHubStopped
	default:
	}

	room, exists := h.rooms[sceneID]
	if !exists {
		room = newRoom(sceneID)
		h.rooms[sceneID] = room
	}
	room.pending++
	h.mu.Unlock()

	if !exists {
		go h.loadRoom(ctx, room)
	}

	select {
	case <-room.ready:
	case <-ctx.Done():
		h.release(room)
		return ctx.Err()
	}
	if room.loadErr != nil {
		return fmt.Errorf("load scene %s: %w", sceneID, room.loadErr)
	}
	return nil
}

// loadRoom fills a new room. A failed room is dropped so the next Open
// tries again.
func (h *Hub) loadRoom(ctx context.Context, room *Room) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
	defer cancel()

	s, err := h.load(ctx, room.sceneID)
	if err != nil {
		room.loadErr = err
		h.mu.Lock()
		if h.rooms[room.sceneID] == room {
			delete(h.rooms, room.sceneID)
		}
		h.mu.Unlock()
	} else {
		room.state = NewSceneState(s)
		room.base = s.Revision
	}
	close(room.ready)
}

// Register adds a client to a room reserved with Open.
func (h *Hub) Register(client *Client) error {
	select {
	case h.register <- client:
		return nil
	case <-h.done:
		return ErrHubStopped
	}
}

func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
		client.close()
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.SceneID]
	if !ok || !room.loaded() {
		h.mu.Unlock()
		client.Send(newMessage(TypeError, ErrorPayload{Message: "scene is not open"}))
		client.close()
		return
	}
	room.pending = max(room.pending-1, 0)
	room.clients[client.ClientID] = client
	h.mu.Unlock()

	snap, seq := room.state.Snapshot()
	client.Send(newMessage(TypeWelcome, WelcomePayload{
		ClientID:  client.ClientID,
		ServerSeq: seq,
		Scene:     snap,
	}))

	client.Send(room.presence.StateMessage())

	joinMsg := newMessage(TypePresenceJoin, PresenceJoinPayload{
		UserID:      client.UserID,
		DisplayName: client.DisplayName,
	})
	joinMsg.UserID = client.UserID
	h.broadcastToRoom(client.SceneID, joinMsg, client.ClientID)

	// Sensing runs off the run loop so a large scene does not hold up
	// other joins and leaves.
	go h.sendCollisions(room, client, nil)

	h.logger.Info("client joined", "user", client.UserID, "scene", client.SceneID)
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.SceneID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, member := room.clients[client.ClientID]; !member {
		h.mu.Unlock()
		return
	}

	delete(room.clients, client.ClientID)
	client.close()
	room.presence.Leave(client.UserID)
	idle := room.idle()
	h.mu.Unlock()

	if idle {
		go h.closeRoom(room)
	}

	leaveMsg := newMessage(TypePresenceLeave, PresenceLeavePayload{UserID: client.UserID})
	leaveMsg.UserID = client.UserID
	h.broadcastToRoom(client.SceneID, leaveMsg, "")

	h.logger.Info("client left", "user", client.UserID, "scene", client.SceneID)
}

// closeRoom saves an idle room, then drops it unless someone joined or
// edited while it was saving. The room stays in the hub during the save,
// so a joining client gets the live scene rather than a reload of the
// older stored one.
func (h *Hub) closeRoom(room *Room) {
	h.saveRoom(room)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[room.sceneID] != room || !room.idle() {
		return
	}
	if room.loaded() && room.state.Dirty() {
		return
	}
	delete(h.rooms, room.sceneID)
}

func (h *Hub) saveRoom(room *Room) {
	if !room.loaded() || h.save == nil {
		return
	}
	room.saveMu.Lock()
	defer room.saveMu.Unlock()

	s, dirty := room.state.TakeDirty()
	if !dirty {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	err := h.save(ctx, s, room.base)
	switch {
	case errors.Is(err, ErrStale):
		h.logger.Error("scene changed outside the room, live edits not saved",
			"scene", room.sceneID, "base", room.base, "revision", s.Revision)
		msg := newMessage(TypeError, ErrorPayload{Message: "scene was changed elsewhere; live edits were not saved"})
		h.broadcastToRoom(room.sceneID, msg, "")
	case err != nil:
		room.state.MarkDirty()
		h.logger.Error("save scene", "scene", room.sceneID, "error", err)
	default:
		room.base = s.Revision
		h.logger.Info("scene saved", "scene", room.sceneID, "revision", s.Revision)
	}
}

// room returns a loaded room.
func (h *Hub) room(sceneID string) (*Room, bool) {
	h.mu.RLock()
	room, ok := h.rooms[sceneID]
	h.mu.RUnlock()
	if !ok || !room.loaded() {
		return nil, false
	}
	return room, true
}

func (h *Hub) handleMessage(sender *Client, msg *Message) {
	switch msg.Type {
	case TypePresenceUpdate:
		h.handlePresenceUpdate(sender, msg)
	case TypeOpSubmit:
		h.handleOperation(sender, msg)
	case TypeSceneTick:
		h.handleTick(sender, msg)
	default:
		h.logger.Warn("unknown message type", "type", msg.Type, "user", sender.UserID)
		sender.Send(newMessage(TypeError, ErrorPayload{Message: "unknown message type: " + msg.Type}))
	}
}

func (h *Hub) handlePresenceUpdate(sender *Client, msg *Message) {
	var presence PresencePayload
	if err := json.Unmarshal(msg.Payload, &presence); err != nil {
		h.logger.Warn("invalid presence payload", "error", err)
		return
	}

	room, ok := h.room(sender.SceneID)
	if !ok {
		return
	}

	presence.DisplayName = sender.DisplayName
	presence.Hover = ""
	var heldErr error
	room.state.View(func(s *scene.Scene) {
		if presence.Pointer != nil {
			presence.Hover = s.HitTest(presence.Pointer.X, presence.Pointer.Y)
		}
		if presence.Held != "" {
			_, heldErr = s.Sprite(presence.Held)
		}
	})
	if heldErr == nil {
		heldErr = room.presence.Set(sender.UserID, presence)
	}
	if heldErr != nil {
		sender.Send(newMessage(TypeError, ErrorPayload{Message: heldErr.Error()}))
		return
	}

	outMsg := newMessage(TypePresenceUpdate, presence)
	outMsg.UserID = sender.UserID
	h.broadcastToRoom(sender.SceneID, outMsg, sender.ClientID)
}

func (h *Hub) handleOperation(sender *Client, msg *Message) {
	var submit OperationSubmitPayload
	if err := json.Unmarshal(msg.Payload, &submit); err != nil {
		sender.Send(newMessage(TypeOpNack, OperationNackPayload{Reason: "invalid operation payload"}))
		return
	}
	op := submit.Operation

	room, ok := h.room(sender.SceneID)
	if !ok {
		return
	}

	if holder, held := room.presence.Holder(op.SpriteID); held && holder != sender.UserID {
		sender.Send(newMessage(TypeOpNack, OperationNackPayload{OperationID: op.ID, Reason: ErrSpriteHeld.Error()}))
		return
	}

	seq, revision, err := room.state.ApplyOperation(op)
	if err != nil {
		sender.Send(newMessage(TypeOpNack, OperationNackPayload{OperationID: op.ID, Reason: err.Error()}))
		return
	}

	sender.Send(newMessage(TypeOpAck, OperationAckPayload{
		OperationID:     op.ID,
		ServerSeq:       seq,
		Revision:        revision,
		ServerTimestamp: time.Now().UnixMilli(),
	}))

	broadcast := newMessage(TypeOpBroadcast, OperationBroadcastPayload{
		Operation: op,
		UserID:    sender.UserID,
		ServerSeq: seq,
	})
	broadcast.UserID = sender.UserID
	broadcast.Seq = seq
	h.broadcastToRoom(sender.SceneID, broadcast, sender.ClientID)

	if op.Type == scene.OpSpriteDelete && room.presence.DropSprite(op.SpriteID) {
		h.broadcastToRoom(sender.SceneID, room.presence.StateMessage(), "")
	}

	h.sendCollisions(room, nil, nil)
}

func (h *Hub) handleTick(sender *Client, msg *Message) {
	var tick TickPayload
	if len(msg.Payload) > 0 && string(msg.Payload) != "null" {
		if err := json.Unmarshal(msg.Payload, &tick); err != nil {
			sender.Send(newMessage(TypeError, ErrorPayload{Message: "invalid tick payload"}))
			return
		}
	}

	room, ok := h.room(sender.SceneID)
	if !ok {
		return
	}
	h.sendCollisions(room, sender, &tick)
}

// sendCollisions computes the room's sensor state and sends it to one
// client, or to the whole room when to is nil.
func (h *Hub) sendCollisions(room *Room, to *Client, tick *TickPayload) {
	ctx, cancel := context.WithTimeout(context.Background(), senseTimeout)
	defer cancel()

	if tick == nil {
		tick = &TickPayload{}
	}
	payload, err := room.state.Sense(ctx, h.engine, tick.Touches, tick.Radius)
	if err != nil {
		h.logger.Error("sense scene", "scene", room.sceneID, "error", err)
		return
	}

	msg := newMessage(TypeCollisionPairs, payload)
	msg.SceneID = room.sceneID
	if to != nil {
		to.Send(msg)
		return
	}
	h.broadcastToRoom(room.sceneID, msg, "")
}

func (h *Hub) broadcastToRoom(sceneID string, msg *Message, excludeClientID string) {
	h.mu.RLock()
	room, ok := h.rooms[sceneID]
	if !ok {
		h.mu.RUnlock()
		return
	}

	clients := make([]*Client, 0, len(room.clients))
	for _, c := range room.clients {
		if c.ClientID != excludeClientID {
			clients = append(clients, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.Send(msg)
	}
}

// Release gives back a place reserved with Open when the client never
// registered.
func (h *Hub) Release(sceneID string) {
	h.mu.RLock()
	room, ok := h.rooms[sceneID]
	h.mu.RUnlock()
	if ok {
		h.release(room)
	}
}

func (h *Hub) release(room *Room) {
	h.mu.Lock()
	room.pending = max(room.pending-1, 0)
	idle := room.idle() && h.rooms[room.sceneID] == room
	h.mu.Unlock()

	if idle {
		h.closeRoom(room)
	}
}
