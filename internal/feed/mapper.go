// Package feed turns the validated hook event stream plus decisions into
// the canonical, replayable feed: sessions, runs, actors, and feed events
// with run-scoped sequence numbers.
package feed

import (
	"fmt"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vburojevic/hookd/internal/domain"
)

// promptRef remembers which feed event asked a question, so a later
// decision can point back at it.
type promptRef struct {
	eventID string
	kind    domain.FeedKind
}

// Mapper owns all session/run/sequence/correlation state. It is not
// internally locked: the dispatch pipeline is the single logical writer and
// serializes every call.
type Mapper struct {
	clock  clock.Clock
	logger *zap.Logger

	session  *domain.Session
	run      *domain.Run
	runCount int // per-session monotonic run counter
	seq      int // run-scoped, reset to 0 when a run opens

	toolPre map[string]string    // tool_use_id -> pre-event id, cleared on run (re)open
	prompts map[string]promptRef // request id -> originating prompt event
	actors  map[string]domain.Actor

	events []domain.FeedEvent
	index  map[string]int // event id -> position in events
}

// NewMapper creates an empty mapper. clk and logger may be nil.
func NewMapper(clk clock.Clock, logger *zap.Logger) *Mapper {
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mapper{
		clock:   clk,
		logger:  logger,
		toolPre: map[string]string{},
		prompts: map[string]promptRef{},
		actors:  map[string]domain.Actor{},
		index:   map[string]int{},
	}
}

// Events returns the append-only feed in emission order.
func (m *Mapper) Events() []domain.FeedEvent {
	out := make([]domain.FeedEvent, len(m.events))
	copy(out, m.events)
	return out
}

// EventsSince returns the feed events after the given cursor (a length
// previously observed by the caller).
func (m *Mapper) EventsSince(cursor int) []domain.FeedEvent {
	if cursor < 0 {
		cursor = 0
	}
	if cursor >= len(m.events) {
		return nil
	}
	out := make([]domain.FeedEvent, len(m.events)-cursor)
	copy(out, m.events[cursor:])
	return out
}

// Event returns the event with the given id.
func (m *Mapper) Event(eventID string) (domain.FeedEvent, bool) {
	i, ok := m.index[eventID]
	if !ok {
		return domain.FeedEvent{}, false
	}
	return m.events[i], true
}

// Patch applies fn to an already-emitted event, in place. Used by
// transcript enrichment, which resolves after the event went out.
func (m *Mapper) Patch(eventID string, fn func(*domain.FeedEvent)) bool {
	i, ok := m.index[eventID]
	if !ok {
		return false
	}
	fn(&m.events[i])
	return true
}

// Session returns the active session, if any.
func (m *Mapper) Session() (domain.Session, bool) {
	if m.session == nil {
		return domain.Session{}, false
	}
	return *m.session, true
}

// Run returns the open run, if any.
func (m *Mapper) Run() (domain.Run, bool) {
	if m.run == nil {
		return domain.Run{}, false
	}
	return *m.run, true
}

// RegisterActor adds an actor to the registry, once. Re-registering the
// same id is a no-op.
func (m *Mapper) RegisterActor(a domain.Actor) {
	if _, ok := m.actors[a.ActorID]; ok {
		return
	}
	m.actors[a.ActorID] = a
}

// Actor looks up a registered actor for display.
func (m *Mapper) Actor(id string) (domain.Actor, bool) {
	a, ok := m.actors[id]
	return a, ok
}

// Actors returns a copy of the registry.
func (m *Mapper) Actors() map[string]domain.Actor {
	out := make(map[string]domain.Actor, len(m.actors))
	for k, v := range m.actors {
		out[k] = v
	}
	return out
}

// emit appends one feed event, assigning id, timestamp and the next
// run-scoped sequence number.
func (m *Mapper) emit(kind domain.FeedKind, level domain.Level, actorID string, cause domain.Cause, title string, data map[string]any) domain.FeedEvent {
	m.seq++
	ev := domain.FeedEvent{
		EventID: uuid.NewString(),
		Seq:     m.seq,
		TS:      m.clock.Now(),
		Kind:    kind,
		Level:   level,
		ActorID: actorID,
		Cause:   cause,
		Title:   title,
		Data:    data,
	}
	if m.session != nil {
		ev.SessionID = m.session.SessionID
	}
	if m.run != nil {
		ev.RunID = m.run.RunID
	}
	m.index[ev.EventID] = len(m.events)
	m.events = append(m.events, ev)
	return ev
}

// openSession starts a session, closing any previous one first.
func (m *Mapper) openSession(sessionID, source, model, agentType string) []domain.FeedEvent {
	var out []domain.FeedEvent
	if m.session != nil {
		out = append(out, m.closeSession("superseded", "")...)
	}
	m.session = &domain.Session{
		SessionID: sessionID,
		StartedAt: m.clock.Now(),
		Source:    source,
		Model:     model,
		AgentType: agentType,
	}
	m.runCount = 0
	m.RegisterActor(domain.Actor{ActorID: "root", Kind: domain.ActorRoot, AgentType: agentType})
	return out
}

// closeSession ends the active session: open run first, then the session
// itself. Returns the run-end event, if one was emitted.
func (m *Mapper) closeSession(reason, requestID string) []domain.FeedEvent {
	var out []domain.FeedEvent
	if m.run != nil {
		out = append(out, m.closeRun(domain.RunCompleted, requestID))
	}
	if m.session != nil {
		now := m.clock.Now()
		m.session.EndedAt = &now
		m.logger.Debug("session closed",
			zap.String("session_id", m.session.SessionID),
			zap.String("reason", reason))
		m.session = nil
	}
	// Correlation state is session-scoped: unanswered prompts from a closed
	// session can never resolve, so drop them rather than accrete.
	m.prompts = map[string]promptRef{}
	m.toolPre = map[string]string{}
	return out
}

// openRun starts a run, force-closing any open one as completed. The
// sequence counter resets so the run-start event carries seq 1.
func (m *Mapper) openRun(trigger domain.RunTrigger, requestID string) []domain.FeedEvent {
	var out []domain.FeedEvent
	if m.run != nil {
		out = append(out, m.closeRun(domain.RunCompleted, requestID))
	}
	m.runCount++
	sessionID := ""
	if m.session != nil {
		sessionID = m.session.SessionID
	}
	m.run = &domain.Run{
		RunID:     fmt.Sprintf("%s#%d", sessionID, m.runCount),
		SessionID: sessionID,
		StartedAt: m.clock.Now(),
		Trigger:   trigger,
		Status:    domain.RunRunning,
		Actors:    domain.RunActors{RootAgentID: "root"},
	}
	m.seq = 0
	m.toolPre = map[string]string{}
	data := map[string]any{"trigger": string(trigger.Type)}
	if trigger.PromptPreview != "" {
		data["prompt_preview"] = trigger.PromptPreview
	}
	out = append(out, m.emit(domain.FeedRunStart, domain.LevelInfo, "root",
		domain.Cause{HookRequestID: requestID}, "run started", data))
	return out
}

// closeRun ends the open run and emits its run-end event with final
// counters.
func (m *Mapper) closeRun(status domain.RunStatus, requestID string) domain.FeedEvent {
	now := m.clock.Now()
	m.run.Status = status
	m.run.EndedAt = &now
	ev := m.emit(domain.FeedRunEnd, domain.LevelInfo, "root",
		domain.Cause{HookRequestID: requestID}, "run "+string(status),
		map[string]any{
			"status":              string(status),
			"tool_uses":           m.run.Counters.ToolUses,
			"tool_failures":       m.run.Counters.ToolFailures,
			"permission_requests": m.run.Counters.PermissionRequests,
			"blocks":              m.run.Counters.Blocks,
		})
	m.run = nil
	return ev
}

// ensureSession opens a session implicitly when an event arrives for an
// unknown session id. The host is authoritative, but tool events must never
// be dropped on the floor.
func (m *Mapper) ensureSession(sessionID string) []domain.FeedEvent {
	if m.session != nil && m.session.SessionID == sessionID {
		return nil
	}
	out := m.openSession(sessionID, "implicit", "", "")
	out = append(out, m.emit(domain.FeedSessionStart, domain.LevelInfo, "root",
		domain.Cause{}, "session started (implicit)",
		map[string]any{"source": "implicit"}))
	return out
}

// ensureRun opens an implicit run so every tool event belongs to one.
func (m *Mapper) ensureRun(requestID string) []domain.FeedEvent {
	if m.run != nil {
		return nil
	}
	return m.openRun(domain.RunTrigger{Type: domain.TriggerImplicit}, requestID)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
