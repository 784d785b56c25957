package agent

import (
	"context"
	"errors"
	"time"

	"github.com/Liu-design-beep/smartclip/internal/smartclip/intent"
	"github.com/Liu-design-beep/smartclip/internal/smartclip/observability"
	"github.com/Liu-design-beep/smartclip/internal/smartclip/payload"
)

// Recognizer keeps one conversation's transcript and classifies each new
// user message through the remote agent.
//
// A Recognizer is not safe for concurrent use. The session that owns it
// serialises turns.
type Recognizer struct {
	backend    Backend
	timeout    time.Duration
	transcript []intent.Turn
}

// NewRecognizer returns a recognizer using b. A nil b yields an unconfigured
// recognizer whose every call returns UNKNOWN without network I/O. timeout
// bounds each remote call; zero leaves only the caller's deadline.
func NewRecognizer(b Backend, timeout time.Duration) *Recognizer {
	return &Recognizer{backend: b, timeout: timeout}
}

// Configured reports whether a backend is attached.
func (r *Recognizer) Configured() bool { return r.backend != nil }

// Reset forgets the transcript.
func (r *Recognizer) Reset() { r.transcript = nil }

// Transcript returns a copy of the conversation so far.
func (r *Recognizer) Transcript() []intent.Turn {
	out := make([]intent.Turn, len(r.transcript))
	copy(out, r.transcript)
	return out
}

// Recognize classifies text. It always returns a record; failures of the
// remote agent or of the reply format degrade to keyword matching.
func (r *Recognizer) Recognize(ctx context.Context, text string) (rec intent.Record) {
	log := observability.From(ctx)
	if r.backend == nil {
		degradationsTotal.WithLabelValues(reasonUnconfigured).Inc()
		return intent.UnknownRecord()
	}

	before := len(r.transcript)
	defer func() {
		if p := recover(); p != nil {
			log.Error("agent: recognize panicked; transcript rolled back", "panic", p)
			r.transcript = r.transcript[:before]
			degradationsTotal.WithLabelValues(reasonPanic).Inc()
			rec = intent.UnknownRecord()
		}
	}()

	r.transcript = append(r.transcript, intent.Turn{Role: intent.RoleUser, Text: text})

	reply, err := r.call(ctx)
	if err != nil {
		r.transcript = r.transcript[:before]
		log.Warn("agent: call failed; falling back to keywords", "provider", r.backend.Name(), "err", err)
		degradationsTotal.WithLabelValues(reasonAgentError).Inc()
		return Degrade(text)
	}

	r.transcript = append(r.transcript, intent.Turn{Role: intent.RoleAssistant, Text: reply.Text})

	candidate := payload.Extract(reply.Text)
	if candidate == "" {
		log.Warn("agent: no structured payload in reply", "request_id", reply.RequestID, "reply", clip(reply.Text))
		degradationsTotal.WithLabelValues(reasonEmptyExtraction).Inc()
		return Degrade(text)
	}

	obj, repaired, err := payload.DecodeRepaired(candidate)
	if repaired {
		outcome := "recovered"
		if err != nil {
			outcome = "failed"
		}
		repairsTotal.WithLabelValues(outcome).Inc()
	}
	if err != nil {
		log.Warn("agent: payload unparseable after repair", "request_id", reply.RequestID, "candidate", clip(candidate), "err", err)
		degradationsTotal.WithLabelValues(reasonParseFailed).Inc()
		return Degrade(text)
	}

	if shape, err := payload.Check(obj); err != nil {
		schemaMismatchTotal.WithLabelValues(string(shape)).Inc()
		log.Debug("agent: payload does not match schema", "shape", shape, "err", err)
	}

	rec = payload.Normalize(obj)
	log.Debug("agent: recognized", "intent", rec.Intent, "doc_title", rec.DocTitle, "repaired", repaired)
	return rec
}

func (r *Recognizer) call(ctx context.Context) (*Reply, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	provider := r.backend.Name()
	start := time.Now()
	reply, err := r.backend.Call(ctx, r.Transcript())
	status := "ok"
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		status = "timeout"
	case err != nil:
		status = "error"
	case reply == nil:
		status = "error"
		err = errors.New("agent: backend returned no reply")
	}
	callsTotal.WithLabelValues(provider, status).Inc()
	callDuration.WithLabelValues(provider, status).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	tokensTotal.WithLabelValues(provider, "input").Add(float64(reply.Usage.InputTokens))
	tokensTotal.WithLabelValues(provider, "output").Add(float64(reply.Usage.OutputTokens))
	return reply, nil
}

func clip(s string) string {
	const limit = 200
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "…"
}
