// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hoshisato/eva-tui/internal/backend"
	"github.com/hoshisato/eva-tui/internal/model"
)

// =============================================================================
// STORE CONTRACT
// =============================================================================

// Store persists conversations. Implemented by storage.ChatStore.
type Store interface {
	// ListRooms returns all saved rooms, most recent first.
	ListRooms(ctx context.Context) ([]model.ChatRoom, error)

	// ListMessages returns a room's messages with their durable IDs.
	ListMessages(ctx context.Context, chatID int64) ([]model.Message, error)

	// SaveChat writes the room and its full message set atomically and
	// returns the room with its durable identity assigned.
	SaveChat(ctx context.Context, room model.ChatRoom, messages []model.Message) (model.ChatRoom, error)

	// UpdateTitle renames a saved room.
	UpdateTitle(ctx context.Context, room model.ChatRoom, title string) error

	// DeleteRooms removes rooms and their messages.
	DeleteRooms(ctx context.Context, rooms []model.ChatRoom) error
}

// =============================================================================
// ORCHESTRATOR
// =============================================================================

// Config wires an Orchestrator.
type Config struct {
	// ChatID selects an existing room to reopen, or 0 for a new
	// conversation.
	ChatID int64

	// Platforms are the backends enabled for this conversation, in
	// display order.
	Platforms []model.ApiType

	// Registry resolves backends to their stream handlers.
	Registry *backend.Registry

	// Store persists committed rounds.
	Store Store

	// OnChange, when set, is invoked after every observable state
	// change with a consistent snapshot. Called from stream consumer
	// goroutines; implementations must not call back into the
	// Orchestrator synchronously.
	OnChange func(Snapshot)

	// OnError, when set, receives asynchronous failures that are not
	// part of an answer stream (commit failures, history refresh
	// failures).
	OnError func(error)
}

// Orchestrator drives one conversation across every enabled backend.
//
// All mutable state is guarded by one mutex. The aggregate idle signal
// is never counted: it is recomputed from the tracker states, the
// source of truth, on every terminal event. The false-to-true idle
// transition is therefore detected exactly once per round no matter
// how backend completions interleave.
type Orchestrator struct {
	registry *backend.Registry
	store    Store
	onChange func(Snapshot)
	onError  func(error)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	closed   bool
	room     model.ChatRoom
	enabled  []model.ApiType
	messages []model.Message
	trackers map[model.ApiType]*Tracker
	userMsg  model.Message
	question string
	idle     bool

	// streamIDs fences stale goroutines: events carrying an ID other
	// than the platform's current one are dropped, so a cancelled
	// stream can never write into a tracker that was reseeded for a
	// retry.
	streamIDs map[model.ApiType]string
	cancels   map[model.ApiType]context.CancelFunc

	// now is swappable for tests.
	now func() int64
}

// NewOrchestrator creates the engine for one conversation. Call Load
// before asking questions.
func NewOrchestrator(cfg Config) (*Orchestrator, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("chat: registry is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("chat: store is required")
	}
	if len(cfg.Platforms) == 0 {
		return nil, fmt.Errorf("chat: at least one backend must be enabled")
	}

	ctx, cancel := context.WithCancel(context.Background())

	o := &Orchestrator{
		registry:  cfg.Registry,
		store:     cfg.Store,
		onChange:  cfg.OnChange,
		onError:   cfg.OnError,
		ctx:       ctx,
		cancel:    cancel,
		enabled:   append([]model.ApiType(nil), cfg.Platforms...),
		trackers:  make(map[model.ApiType]*Tracker, len(cfg.Platforms)),
		streamIDs: make(map[model.ApiType]string),
		cancels:   make(map[model.ApiType]context.CancelFunc),
		idle:      true,
		now:       func() int64 { return time.Now().Unix() },
	}

	o.room = model.UninitializedRoom(cfg.Platforms)
	o.room.ID = cfg.ChatID
	for _, p := range cfg.Platforms {
		o.trackers[p] = NewTracker(p)
	}
	return o, nil
}

// Load resolves the room and its history from the store. A zero chat
// ID starts a fresh transient room that becomes durable on the first
// committed round.
func (o *Orchestrator) Load(ctx context.Context) error {
	o.mu.Lock()
	chatID := o.room.ID
	o.mu.Unlock()

	if chatID == 0 {
		o.mu.Lock()
		o.room = model.NewChatRoom(o.enabled)
		o.userMsg = model.Message{ChatID: 0}
		o.mu.Unlock()
		o.notify()
		return nil
	}

	rooms, err := o.store.ListRooms(ctx)
	if err != nil {
		return fmt.Errorf("load room: %w", err)
	}
	var found *model.ChatRoom
	for i := range rooms {
		if rooms[i].ID == chatID {
			found = &rooms[i]
			break
		}
	}
	if found == nil {
		return fmt.Errorf("load room: no room with id %d", chatID)
	}

	msgs, err := o.store.ListMessages(ctx, chatID)
	if err != nil {
		return fmt.Errorf("load messages: %w", err)
	}

	o.mu.Lock()
	o.room = *found
	if len(found.EnabledPlatform) > 0 {
		o.enabled = append([]model.ApiType(nil), found.EnabledPlatform...)
		for _, p := range o.enabled {
			if o.trackers[p] == nil {
				o.trackers[p] = NewTracker(p)
			}
		}
	}
	o.messages = msgs
	o.userMsg = model.Message{ChatID: chatID}
	for _, p := range o.enabled {
		o.trackers[p].Clear(chatID)
	}
	o.mu.Unlock()
	o.notify()
	return nil
}

// Close cancels every in-flight stream and waits for the consumers to
// drain. Nothing is committed on teardown.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()

	o.cancel()
	o.wg.Wait()
}

// =============================================================================
// QUESTION INPUT
// =============================================================================

// SetQuestion updates the draft input buffer.
func (o *Orchestrator) SetQuestion(text string) {
	o.mu.Lock()
	o.question = text
	o.mu.Unlock()
	o.notify()
}

// Question returns the draft input buffer.
func (o *Orchestrator) Question() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.question
}

// AskQuestion submits the question to every enabled backend. A blank
// question, or a submission while any backend is still answering, is
// rejected and reports false; the in-flight round is never disturbed.
func (o *Orchestrator) AskQuestion(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}

	o.mu.Lock()
	if o.closed || !o.idle {
		o.mu.Unlock()
		return false
	}

	o.userMsg = model.NewUserMessage(o.room.ID, text)
	o.userMsg.CreatedAt = o.now()
	o.question = ""

	question := o.userMsg
	history := append([]model.Message(nil), o.messages...)
	targets := o.beginRoundLocked(o.enabled)
	o.mu.Unlock()

	for _, t := range targets {
		o.startStream(t.platform, t.streamID, question, history)
	}
	o.notify()
	return true
}

// RetryQuestion re-fetches a single backend's answer to the latest
// question. The committed round is undone in memory: the other
// backends' answers are reseeded into their trackers untouched, the
// target keeps its durable message ID so the overwrite lands on the
// same stored row, and only the target re-streams. Rejected while any
// backend is loading or when there is no prior question.
func (o *Orchestrator) RetryQuestion(target model.Message) bool {
	if target.PlatformType == nil {
		return false
	}
	platform := *target.PlatformType

	o.mu.Lock()
	if o.closed || !o.idle || o.trackers[platform] == nil {
		o.mu.Unlock()
		return false
	}

	qIdx := -1
	for i := len(o.messages) - 1; i >= 0; i-- {
		if o.messages[i].IsUser() {
			qIdx = i
			break
		}
	}
	if qIdx == -1 {
		o.mu.Unlock()
		return false
	}
	o.userMsg = o.messages[qIdx]

	// Latest answer per backend, paired with the question being redone.
	previous := make(map[model.ApiType]model.Message, len(o.enabled))
	drop := map[int64]bool{o.userMsg.ID: true}
	for _, p := range o.enabled {
		for i := len(o.messages) - 1; i >= 0; i-- {
			if o.messages[i].Platform() == p {
				previous[p] = o.messages[i]
				drop[o.messages[i].ID] = true
				break
			}
		}
	}

	kept := o.messages[:0]
	for _, m := range o.messages {
		if !drop[m.ID] {
			kept = append(kept, m)
		}
	}
	o.messages = kept

	for _, p := range o.enabled {
		if p == platform {
			continue
		}
		tr := o.trackers[p]
		if tr.State() == Loading {
			continue
		}
		if prev, ok := previous[p]; ok {
			tr.Restore(prev)
		}
	}

	// The retried answer keeps the stored row's identity and starts
	// from empty content.
	seed := model.Message{
		ID:           target.ID,
		ChatID:       o.room.ID,
		CreatedAt:    o.now(),
		PlatformType: &platform,
	}
	o.trackers[platform].Reset(seed)
	o.idle = false
	streamID := o.fenceLocked(platform)

	question := o.userMsg
	history := append([]model.Message(nil), o.messages...)
	o.mu.Unlock()

	o.startStream(platform, streamID, question, history)
	o.notify()
	return true
}

// EditQuestion rewrites an earlier question and replays it: history is
// truncated to everything strictly before the edited message, then the
// new text fans out to every enabled backend. Rejected while loading.
func (o *Orchestrator) EditQuestion(original model.Message, content string) bool {
	content = strings.TrimSpace(content)
	if content == "" {
		return false
	}

	o.mu.Lock()
	if o.closed || !o.idle {
		o.mu.Unlock()
		return false
	}

	kept := o.messages[:0]
	for _, m := range o.messages {
		if m.ID < original.ID && m.CreatedAt < original.CreatedAt {
			kept = append(kept, m)
		}
	}
	o.messages = kept

	o.userMsg = model.NewUserMessage(o.room.ID, content)
	o.userMsg.CreatedAt = o.now()

	question := o.userMsg
	history := append([]model.Message(nil), o.messages...)
	targets := o.beginRoundLocked(o.enabled)
	o.mu.Unlock()

	for _, t := range targets {
		o.startStream(t.platform, t.streamID, question, history)
	}
	o.notify()
	return true
}

type roundTarget struct {
	platform model.ApiType
	streamID string
}

// beginRoundLocked flips every target tracker to Loading with a fresh
// message and fences a new stream per backend. Caller holds mu.
func (o *Orchestrator) beginRoundLocked(platforms []model.ApiType) []roundTarget {
	targets := make([]roundTarget, 0, len(platforms))
	for _, p := range platforms {
		seed := model.NewAssistantMessage(o.room.ID, p)
		seed.CreatedAt = o.now()
		o.trackers[p].Reset(seed)
		targets = append(targets, roundTarget{platform: p, streamID: o.fenceLocked(p)})
	}
	o.idle = false
	return targets
}

// fenceLocked issues a new stream identity for the platform and
// cancels whatever stream held the previous one. Caller holds mu.
func (o *Orchestrator) fenceLocked(platform model.ApiType) string {
	if prev := o.cancels[platform]; prev != nil {
		prev()
	}
	id := uuid.NewString()
	o.streamIDs[platform] = id
	return id
}

// =============================================================================
// STREAM CONSUMPTION
// =============================================================================

func (o *Orchestrator) startStream(platform model.ApiType, streamID string, question model.Message, history []model.Message) {
	streamCtx, cancel := context.WithCancel(o.ctx)

	o.mu.Lock()
	if o.closed || o.streamIDs[platform] != streamID {
		o.mu.Unlock()
		cancel()
		return
	}
	o.cancels[platform] = cancel
	o.mu.Unlock()

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer cancel()

		streamer, err := o.registry.Lookup(platform)
		if err != nil {
			o.applyEvent(platform, streamID, backend.Event{Err: err})
			return
		}

		events, err := streamer.Stream(streamCtx, question, history)
		if err != nil {
			o.applyEvent(platform, streamID, backend.Event{Err: err})
			return
		}

		for ev := range events {
			o.applyEvent(platform, streamID, ev)
			if ev.Terminal() {
				return
			}
		}
		// Channel closed without a terminal event: treat as done.
		o.applyEvent(platform, streamID, backend.Event{Done: true})
	}()
}

func (o *Orchestrator) applyEvent(platform model.ApiType, streamID string, ev backend.Event) {
	o.mu.Lock()
	if o.closed || o.streamIDs[platform] != streamID {
		o.mu.Unlock()
		return
	}

	o.trackers[platform].Apply(ev)

	commit := false
	if ev.Terminal() {
		delete(o.cancels, platform)
		commit = o.recomputeIdleLocked()
	}
	o.mu.Unlock()

	if commit {
		o.commit()
	}
	o.notify()
}

// recomputeIdleLocked derives the aggregate signal from every enabled
// tracker and reports whether this call is the false-to-true
// transition. Caller holds mu.
func (o *Orchestrator) recomputeIdleLocked() bool {
	for _, p := range o.enabled {
		if o.trackers[p].State() == Loading {
			return false
		}
	}
	wasIdle := o.idle
	o.idle = true
	return !wasIdle
}

// =============================================================================
// COMMIT PROTOCOL
// =============================================================================

// commit persists the completed round. Runs once per idle transition.
// Rounds from uninitialized rooms or with a blank pending question
// (a teardown, or a commit that already ran) only clear transient
// state.
func (o *Orchestrator) commit() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	if o.room.State == model.RoomUninitialized || strings.TrimSpace(o.userMsg.Content) == "" {
		o.clearRoundLocked()
		o.mu.Unlock()
		return
	}

	full := make([]model.Message, 0, len(o.messages)+1+len(o.enabled))
	full = append(full, o.messages...)
	full = append(full, o.userMsg)
	for _, p := range o.enabled {
		full = append(full, o.trackers[p].Message())
	}

	room := o.room
	if room.Title == "" || room.Title == model.UntitledChat {
		room.Title = model.DefaultTitle(full)
	}
	o.mu.Unlock()

	saved, err := o.store.SaveChat(o.ctx, room, full)
	if err != nil {
		// Round state stays in the trackers so RecommitRound can run
		// after the store recovers.
		o.fail(fmt.Errorf("save chat: %w", err))
		return
	}

	// Re-read so in-memory history carries the durable row IDs; retry
	// depends on them to overwrite the right rows.
	msgs, err := o.store.ListMessages(o.ctx, saved.ID)
	if err != nil {
		o.fail(fmt.Errorf("refresh messages: %w", err))
		return
	}

	o.mu.Lock()
	o.room = saved
	o.messages = msgs
	o.clearRoundLocked()
	o.mu.Unlock()
}

// RecommitRound retries a commit that failed at the store. No-op when
// there is nothing pending or a backend is still answering.
func (o *Orchestrator) RecommitRound() bool {
	o.mu.Lock()
	ok := !o.closed && o.idle && strings.TrimSpace(o.userMsg.Content) != ""
	o.mu.Unlock()
	if !ok {
		return false
	}
	o.commit()
	o.notify()
	return true
}

// clearRoundLocked empties the pending question and every tracker.
// Caller holds mu.
func (o *Orchestrator) clearRoundLocked() {
	o.userMsg = model.Message{ChatID: o.room.ID}
	for _, p := range o.enabled {
		o.trackers[p].Clear(o.room.ID)
	}
}

// =============================================================================
// ROOM MANAGEMENT
// =============================================================================

// UpdateTitle renames the room in memory and, once the room is
// durable, in the store.
func (o *Orchestrator) UpdateTitle(ctx context.Context, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("update title: title is empty")
	}

	o.mu.Lock()
	room := o.room
	o.mu.Unlock()

	if room.State == model.RoomPersisted {
		if err := o.store.UpdateTitle(ctx, room, title); err != nil {
			return fmt.Errorf("update title: %w", err)
		}
	}

	o.mu.Lock()
	o.room.Title = title
	o.mu.Unlock()
	o.notify()
	return nil
}

// =============================================================================
// SNAPSHOT
// =============================================================================

// TrackerView is the observable state of one backend's answer slot.
type TrackerView struct {
	Platform model.ApiType
	State    LoadingState
	Message  model.Message
}

// Snapshot is a consistent point-in-time view of the conversation for
// rendering. Slices are copies; mutating them does not affect the
// engine.
type Snapshot struct {
	Room     model.ChatRoom
	Idle     bool
	Question string
	Pending  model.Message
	Trackers []TrackerView
	Messages []model.Message
}

// PendingRound reports whether an uncommitted question is displayed
// above the input line.
func (s Snapshot) PendingRound() bool {
	return !s.Pending.IsBlank()
}

// Snapshot returns the current observable state.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	snap := Snapshot{
		Room:     o.room,
		Idle:     o.idle,
		Question: o.question,
		Pending:  o.userMsg,
		Trackers: make([]TrackerView, 0, len(o.enabled)),
		Messages: append([]model.Message(nil), o.messages...),
	}
	for _, p := range o.enabled {
		tr := o.trackers[p]
		snap.Trackers = append(snap.Trackers, TrackerView{
			Platform: p,
			State:    tr.State(),
			Message:  tr.Message(),
		})
	}
	return snap
}

// IsIdle reports whether every enabled backend has settled.
func (o *Orchestrator) IsIdle() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.idle
}

// Room returns the current room.
func (o *Orchestrator) Room() model.ChatRoom {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.room
}

// Messages returns a copy of the committed history.
func (o *Orchestrator) Messages() []model.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]model.Message(nil), o.messages...)
}

func (o *Orchestrator) notify() {
	if o.onChange == nil {
		return
	}
	o.onChange(o.Snapshot())
}

func (o *Orchestrator) fail(err error) {
	if o.onError == nil {
		return
	}
	o.onError(err)
}
