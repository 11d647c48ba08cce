// Package pipeline is the decision core: an ordered handler chain over
// validated hook events, consulting the rule and risk engines, feeding the
// queues, the decision correlator and the feed mapper.
//
// Session, run, sequence and correlation state is owned by one Pipeline
// instance and mutated only under its lock: concurrent bridge connections
// are serialized into a single decision stream.
package pipeline

import (
	"context"
	"sync"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/vburojevic/hookd/internal/correlate"
	"github.com/vburojevic/hookd/internal/domain"
	"github.com/vburojevic/hookd/internal/feed"
	"github.com/vburojevic/hookd/internal/queue"
	"github.com/vburojevic/hookd/internal/rules"
	"github.com/vburojevic/hookd/internal/transcript"
)

// Options configures a Pipeline.
type Options struct {
	Rules  *rules.Store
	Clock  clock.Clock
	Logger *zap.Logger
}

// Pipeline implements bridge.Handler.
type Pipeline struct {
	mu      sync.Mutex
	clock   clock.Clock
	logger  *zap.Logger
	rules   *rules.Store
	queues  *queue.Manager
	pending *correlate.Pending
	mapper  *feed.Mapper

	enricher *transcript.Enricher
	chain    []chainEntry

	activeSession string
}

// New constructs a pipeline. Zero-value Options fields get defaults.
func New(opts Options) *Pipeline {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Rules == nil {
		opts.Rules = rules.NewStore(opts.Logger)
	}
	p := &Pipeline{
		clock:   opts.Clock,
		logger:  opts.Logger,
		rules:   opts.Rules,
		queues:  queue.NewManager(),
		pending: correlate.New(opts.Clock),
		mapper:  feed.NewMapper(opts.Clock, opts.Logger),
	}
	p.enricher = transcript.NewEnricher(p.applyEnrichment, opts.Logger)
	p.chain = p.buildChain()
	return p
}

// Close stops background work.
func (p *Pipeline) Close() {
	p.enricher.Close()
}

// Handle answers one envelope: first applicable handler wins, unmatched
// events fall through to the default. Session bookkeeping runs
// unconditionally after the chain.
func (p *Pipeline) Handle(ctx context.Context, env domain.RequestEnvelope) domain.ReplyPayload {
	ev, err := domain.NewRuntimeEvent(env, p.clock.Now())
	if err != nil {
		// A known hook with an undecodable body still flows through as
		// unknown rather than crashing or being dropped.
		p.logger.Warn("payload decode failed",
			zap.String("hook", string(env.HookEventName)), zap.Error(err))
		ev = &domain.RuntimeEvent{
			Envelope: env,
			Hook:     env.HookEventName,
			Payload:  domain.UnknownPayload{Raw: env.Payload},
			Received: p.clock.Now(),
		}
	}

	p.mu.Lock()
	var out outcome
	for _, entry := range p.chain {
		if entry.match(ev) {
			p.logger.Debug("handler matched",
				zap.String("handler", entry.name),
				zap.String("hook", string(ev.Hook)),
				zap.String("request_id", ev.RequestID()))
			out = entry.handle(ev)
			break
		}
	}

	// The feed mapper always runs, whether the decision was immediate or
	// deferred.
	emitted := p.mapper.Apply(ev, out.opts)
	if out.decision != nil {
		p.mapper.ApplyDecision(ev.RequestID(), *out.decision)
	}
	p.bookkeep(ev, emitted)
	p.mu.Unlock()

	if out.wait != nil {
		return p.await(ctx, ev, out.wait)
	}
	if out.reply != nil {
		return *out.reply
	}
	return domain.Passthrough()
}

// await blocks (off the lock) until the correlator delivers a decision or
// its window lapses, then surfaces the decision and builds the reply.
func (p *Pipeline) await(ctx context.Context, ev *domain.RuntimeEvent, wait <-chan domain.Decision) domain.ReplyPayload {
	var d domain.Decision
	select {
	case d = <-wait:
	case <-ctx.Done():
		d = domain.Decision{Type: domain.DecisionPassthrough, Source: domain.SourceTimeout}
	}
	p.mu.Lock()
	p.mapper.ApplyDecision(ev.RequestID(), d)
	p.mu.Unlock()
	return replyFor(d)
}

// bookkeep captures the active session and triggers transcript enrichment
// for events that reference one. Runs under the pipeline lock.
func (p *Pipeline) bookkeep(ev *domain.RuntimeEvent, emitted []domain.FeedEvent) {
	p.activeSession = ev.SessionID()

	var path string
	var kind domain.FeedKind
	switch pl := ev.Payload.(type) {
	case domain.SubagentStopPayload:
		path, kind = pl.TranscriptPath, domain.FeedSubagentStop
	case domain.SessionEndPayload:
		path, kind = pl.TranscriptPath, domain.FeedSessionEnd
	default:
		return
	}
	if path == "" {
		return
	}
	for _, fe := range emitted {
		if fe.Kind == kind {
			p.enricher.Submit(transcript.Task{EventID: fe.EventID, Path: path})
			return
		}
	}
}

// applyEnrichment posts a transcript summary back onto the single writer,
// patching the feed event that announced the transcript. Unreadable
// transcripts attach an error marker instead of failing the event.
func (p *Pipeline) applyEnrichment(eventID string, s transcript.Summary, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mapper.Patch(eventID, func(e *domain.FeedEvent) {
		if e.Data == nil {
			e.Data = map[string]any{}
		}
		if err != nil {
			e.Data["enrichment_error"] = err.Error()
			return
		}
		e.Data["transcript"] = map[string]any{
			"messages":  s.Messages,
			"tool_uses": s.ToolUses,
			"preview":   s.Preview,
		}
	})
}

func replyFor(d domain.Decision) domain.ReplyPayload {
	switch d.Type {
	case domain.DecisionBlock:
		msg := d.Stderr
		if msg == "" && d.Intent != nil {
			msg = d.Intent.Reason
		}
		return domain.BlockWithStderr(msg)
	case domain.DecisionJSON:
		return domain.JSONOutput(d.Body)
	default:
		return domain.Passthrough()
	}
}

// ActiveSession returns the most recently seen session id.
func (p *Pipeline) ActiveSession() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.activeSession
}

// Events returns the ordered, append-only feed.
func (p *Pipeline) Events() []domain.FeedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mapper.Events()
}

// EventsSince returns feed events past a cursor previously observed by the
// caller.
func (p *Pipeline) EventsSince(cursor int) []domain.FeedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mapper.EventsSince(cursor)
}

// Queues exposes the permission and question holding areas. The queues
// carry their own locks; snapshots are safe without the pipeline lock.
func (p *Pipeline) Queues() *queue.Manager {
	return p.queues
}

// Respond delivers an out-of-band decision for a queued request. If the
// bridge reply is still open the decision reaches the host; after the
// window it is feed-only; the host already got its fallback and cannot be
// un-answered. Unknown request ids produce nothing.
func (p *Pipeline) Respond(requestID string, d domain.Decision) bool {
	p.queues.Permission.RemoveByID(requestID)
	p.queues.Question.RemoveByID(requestID)
	if p.pending.Resolve(requestID, d) {
		// The waiting dispatch goroutine surfaces the decision.
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.mapper.ApplyDecision(requestID, d)
	return ok
}

// Run returns the open run, if any.
func (p *Pipeline) Run() (domain.Run, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mapper.Run()
}

// Session returns the active session, if any.
func (p *Pipeline) Session() (domain.Session, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mapper.Session()
}

// Actors returns the actor registry snapshot.
func (p *Pipeline) Actors() map[string]domain.Actor {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mapper.Actors()
}
