package feed

import (
	"github.com/vburojevic/hookd/internal/domain"
)

// ApplyOpts adjusts how an event is surfaced.
type ApplyOpts struct {
	// SuppressEvent skips the hook's own feed entry. Used for auto-allowed
	// permission prompts, which would duplicate the PreToolUse entry that
	// follows them.
	SuppressEvent bool
	// RequiresPermission marks a tool-pre event as awaiting a decision.
	RequiresPermission bool
}

// Apply maps one validated runtime event onto the feed. Multi-effect hooks
// emit their events in a fixed order (run close before session end, run
// start before the tool event). Each emitted event increments the run
// sequence exactly once.
func (m *Mapper) Apply(ev *domain.RuntimeEvent, opts ApplyOpts) []domain.FeedEvent {
	var out []domain.FeedEvent
	cause := domain.Cause{HookRequestID: ev.RequestID(), ToolUseID: ev.ToolUseID()}

	switch p := ev.Payload.(type) {
	case domain.SessionStartPayload:
		out = append(out, m.openSession(ev.SessionID(), p.Source, p.Model, p.AgentType)...)
		if !opts.SuppressEvent {
			out = append(out, m.emit(domain.FeedSessionStart, domain.LevelInfo, "root", cause,
				"session started",
				map[string]any{"source": p.Source, "model": p.Model, "agent_type": p.AgentType}))
		}
		// Resuming a session is an explicit run trigger.
		if p.Source == "resume" {
			out = append(out, m.openRun(domain.RunTrigger{Type: domain.TriggerResume}, ev.RequestID())...)
		}

	case domain.UserPromptSubmitPayload:
		out = append(out, m.ensureSession(ev.SessionID())...)
		m.RegisterActor(domain.Actor{ActorID: "user", Kind: domain.ActorUser})
		preview := truncate(p.Prompt, 80)
		out = append(out, m.openRun(domain.RunTrigger{Type: domain.TriggerPrompt, PromptPreview: preview}, ev.RequestID())...)
		if !opts.SuppressEvent {
			out = append(out, m.emit(domain.FeedPrompt, domain.LevelInfo, "user", cause,
				preview, map[string]any{"prompt": p.Prompt}))
		}

	case domain.PreToolUsePayload:
		out = append(out, m.ensureSession(ev.SessionID())...)
		out = append(out, m.ensureRun(ev.RequestID())...)
		m.run.Counters.ToolUses++
		kind := domain.FeedToolPre
		title := p.ToolName
		if p.ToolName == "AskUserQuestion" {
			kind = domain.FeedQuestion
			title = "question"
		}
		data := map[string]any{"tool_name": p.ToolName}
		if len(p.ToolInput) > 0 {
			data["tool_input"] = string(p.ToolInput)
		}
		if opts.RequiresPermission {
			data["requires_permission"] = true
			m.run.Counters.PermissionRequests++
		}
		if !opts.SuppressEvent {
			fe := m.emit(kind, domain.LevelInfo, "root", cause, title, data)
			out = append(out, fe)
			m.prompts[ev.RequestID()] = promptRef{eventID: fe.EventID, kind: kind}
			if p.ToolUseID != "" {
				m.toolPre[p.ToolUseID] = fe.EventID
			}
		}

	case domain.PermissionRequestPayload:
		out = append(out, m.ensureSession(ev.SessionID())...)
		out = append(out, m.ensureRun(ev.RequestID())...)
		if !opts.SuppressEvent {
			m.run.Counters.PermissionRequests++
			data := map[string]any{"tool_name": p.ToolName}
			if len(p.Suggestions) > 0 {
				data["suggestions"] = p.Suggestions
			}
			fe := m.emit(domain.FeedPermissionPrompt, domain.LevelWarn, "root", cause,
				"permission: "+p.ToolName, data)
			out = append(out, fe)
			m.prompts[ev.RequestID()] = promptRef{eventID: fe.EventID, kind: domain.FeedPermissionPrompt}
		}

	case domain.PostToolUsePayload:
		out = append(out, m.ensureSession(ev.SessionID())...)
		out = append(out, m.ensureRun(ev.RequestID())...)
		if preID, ok := m.toolPre[p.ToolUseID]; ok {
			cause.ParentEventID = preID
			delete(m.toolPre, p.ToolUseID)
		}
		data := map[string]any{"tool_name": p.ToolName}
		if p.DurationMs > 0 {
			data["duration_ms"] = p.DurationMs
		}
		out = append(out, m.emit(domain.FeedToolPost, domain.LevelInfo, "root", cause,
			p.ToolName+" done", data))

	case domain.PostToolUseFailurePayload:
		out = append(out, m.ensureSession(ev.SessionID())...)
		out = append(out, m.ensureRun(ev.RequestID())...)
		if preID, ok := m.toolPre[p.ToolUseID]; ok {
			cause.ParentEventID = preID
			delete(m.toolPre, p.ToolUseID)
		}
		m.run.Counters.ToolFailures++
		data := map[string]any{"tool_name": p.ToolName}
		if p.Error != "" {
			data["error"] = p.Error
		}
		if p.IsInterrupt {
			data["interrupted"] = true
		}
		out = append(out, m.emit(domain.FeedToolFailed, domain.LevelError, "root", cause,
			p.ToolName+" failed", data))

	case domain.SubagentStartPayload:
		out = append(out, m.ensureSession(ev.SessionID())...)
		out = append(out, m.ensureRun(ev.RequestID())...)
		m.RegisterActor(domain.Actor{ActorID: p.AgentID, Kind: domain.ActorSubagent, AgentType: p.AgentType})
		m.addSubagent(p.AgentID)
		data := map[string]any{"agent_type": p.AgentType}
		if p.Task != "" {
			data["task"] = truncate(p.Task, 120)
		}
		out = append(out, m.emit(domain.FeedSubagentStart, domain.LevelInfo, p.AgentID, cause,
			"subagent started", data))

	case domain.SubagentStopPayload:
		out = append(out, m.ensureSession(ev.SessionID())...)
		out = append(out, m.ensureRun(ev.RequestID())...)
		m.RegisterActor(domain.Actor{ActorID: p.AgentID, Kind: domain.ActorSubagent, AgentType: p.AgentType})
		data := map[string]any{"agent_type": p.AgentType}
		if p.Status != "" {
			data["status"] = p.Status
		}
		out = append(out, m.emit(domain.FeedSubagentStop, domain.LevelInfo, p.AgentID, cause,
			"subagent finished", data))

	case domain.StopPayload:
		out = append(out, m.ensureSession(ev.SessionID())...)
		data := map[string]any{}
		if p.Reason != "" {
			data["reason"] = p.Reason
		}
		out = append(out, m.emit(domain.FeedStop, domain.LevelInfo, "root", cause, "turn finished", data))

	case domain.PreCompactPayload:
		out = append(out, m.ensureSession(ev.SessionID())...)
		out = append(out, m.emit(domain.FeedPreCompact, domain.LevelInfo, "root", cause,
			"context compaction", map[string]any{"trigger": p.Trigger}))

	case domain.SessionEndPayload:
		out = append(out, m.ensureSession(ev.SessionID())...)
		// Fixed order: the open run closes before the session-end entry.
		if m.run != nil {
			out = append(out, m.closeRun(domain.RunCompleted, ev.RequestID()))
		}
		data := map[string]any{}
		if p.Reason != "" {
			data["reason"] = p.Reason
		}
		out = append(out, m.emit(domain.FeedSessionEnd, domain.LevelInfo, "root", cause, "session ended", data))
		now := m.clock.Now()
		m.session.EndedAt = &now
		m.session = nil
		m.prompts = map[string]promptRef{}
		m.toolPre = map[string]string{}

	case domain.NotificationPayload:
		out = append(out, m.ensureSession(ev.SessionID())...)
		m.RegisterActor(domain.Actor{ActorID: "system", Kind: domain.ActorSystem})
		level := domain.LevelInfo
		switch p.Level {
		case "warning":
			level = domain.LevelWarn
		case "error":
			level = domain.LevelError
		}
		out = append(out, m.emit(domain.FeedNotification, level, "system", cause,
			truncate(p.Message, 120), map[string]any{"message": p.Message}))

	case domain.SetupPayload:
		out = append(out, m.ensureSession(ev.SessionID())...)
		out = append(out, m.emit(domain.FeedSetup, domain.LevelInfo, "root", cause,
			"project setup", map[string]any{"cwd": p.Cwd}))

	case domain.UnknownPayload:
		out = append(out, m.ensureSession(ev.SessionID())...)
		fe := m.emit(domain.FeedUnknown, domain.LevelInfo, "root", cause,
			string(ev.Hook), nil)
		m.events[m.index[fe.EventID]].Raw = p.Raw
		fe.Raw = p.Raw
		out = append(out, fe)
	}

	return out
}

// ApplyDecision turns a decision into a decision-kind feed event correlated
// to the prompt that requested it. Decisions for unknown request ids return
// false: no feed event is fabricated.
func (m *Mapper) ApplyDecision(requestID string, d domain.Decision) (domain.FeedEvent, bool) {
	ref, ok := m.prompts[requestID]
	if !ok {
		return domain.FeedEvent{}, false
	}
	outcome := "no_opinion"
	level := domain.LevelInfo
	if d.Source != domain.SourceTimeout && d.Type != domain.DecisionPassthrough {
		switch {
		case d.Intent != nil && d.Intent.Allow:
			outcome = "allow"
		case d.Intent != nil:
			outcome = "deny"
			level = domain.LevelWarn
		case d.Type == domain.DecisionBlock:
			outcome = "deny"
			level = domain.LevelWarn
		default:
			outcome = "allow"
		}
	}
	data := map[string]any{
		"outcome":     outcome,
		"source":      string(d.Source),
		"prompt_kind": string(ref.kind),
	}
	if d.Intent != nil && d.Intent.Reason != "" {
		data["reason"] = d.Intent.Reason
	}
	if outcome == "deny" && m.run != nil {
		m.run.Counters.Blocks++
	}
	actor := "system"
	if d.Source == domain.SourceUser {
		actor = "user"
	}
	m.RegisterActor(domain.Actor{ActorID: actor, Kind: actorKindFor(actor)})
	fe := m.emit(domain.FeedDecision, level, actor,
		domain.Cause{HookRequestID: requestID, ParentEventID: ref.eventID},
		"decision: "+outcome, data)
	// A definitive answer closes the correlation; a no-opinion leaves it
	// open for a later human decision.
	if outcome != "no_opinion" {
		delete(m.prompts, requestID)
	}
	return fe, true
}

func actorKindFor(id string) domain.ActorKind {
	switch id {
	case "user":
		return domain.ActorUser
	case "system":
		return domain.ActorSystem
	}
	return domain.ActorRoot
}

func (m *Mapper) addSubagent(agentID string) {
	if m.run == nil {
		return
	}
	for _, id := range m.run.Actors.SubagentIDs {
		if id == agentID {
			return
		}
	}
	m.run.Actors.SubagentIDs = append(m.run.Actors.SubagentIDs, agentID)
}
