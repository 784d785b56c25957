// Package chat turns one user message into one reply: it runs the message
// through the session's confirmation machine and recognizer, then carries
// out the recognized intent against the document store.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Liu-design-beep/smartclip/internal/smartclip/agent"
	"github.com/Liu-design-beep/smartclip/internal/smartclip/confirm"
	"github.com/Liu-design-beep/smartclip/internal/smartclip/documents"
	"github.com/Liu-design-beep/smartclip/internal/smartclip/intent"
	"github.com/Liu-design-beep/smartclip/internal/smartclip/observability"
	"github.com/Liu-design-beep/smartclip/internal/smartclip/session"
)

// ErrEmptyInput is returned for a blank message.
var ErrEmptyInput = errors.New("chat: empty input")

// ReplyType tells the client how to render a reply.
type ReplyType string

const (
	Text         ReplyType = "TEXT"
	Confirmation ReplyType = "CONFIRMATION"
	Document     ReplyType = "DOCUMENT"
)

// Reply is the answer to one message.
type Reply struct {
	Type    ReplyType
	Content string
	// Intent is the intent that produced the reply.
	Intent intent.Type
	// Title is set for DOCUMENT replies.
	Title string
	// Lines holds the document for DOCUMENT replies.
	Lines []string
}

// Dispatcher executes intents against a document store.
type Dispatcher struct {
	store documents.Store
	msgs  *Catalogue
}

// NewDispatcher returns a dispatcher. A nil catalogue uses the built-in texts.
func NewDispatcher(store documents.Store, msgs *Catalogue) *Dispatcher {
	if msgs == nil {
		msgs = DefaultCatalogue()
	}
	return &Dispatcher{store: store, msgs: msgs}
}

// SessionFactory builds sessions whose recognizer uses backend and whose
// confirmation machine guards document clearing. backend may be nil.
func SessionFactory(store documents.Store, backend agent.Backend, timeout time.Duration) session.Factory {
	return func(id string) *session.Session {
		rec := agent.NewRecognizer(backend, timeout)
		m := confirm.New(store, rec, map[intent.Type]confirm.Action{
			intent.DeleteContent: store.ClearDocument,
		})
		return session.New(id, rec, m)
	}
}

// Handle processes one user message in s. The session is locked for the
// whole turn.
func (d *Dispatcher) Handle(ctx context.Context, s *session.Session, text string) (Reply, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Reply{}, ErrEmptyInput
	}
	log := observability.From(ctx).With("session_id", s.ID)

	s.Lock()
	defer s.Unlock()

	out, handled, err := s.Machine.Intercept(ctx, text)
	if err != nil {
		return Reply{}, err
	}
	if handled {
		log.Info("chat: literal confirmation answer", "outcome", out.Kind, "title", out.Pending.Title)
		return d.outcomeReply(out), nil
	}

	rec := s.Recognizer.Recognize(ctx, text)
	log.Info("chat: recognized", "intent", rec.Intent, "doc_title", rec.DocTitle, "confirmation_needed", rec.ConfirmationNeeded)

	out, err = s.Machine.Apply(ctx, rec)
	if err != nil {
		return Reply{}, err
	}
	if out.Kind != confirm.Pass {
		r := d.outcomeReply(out)
		r.Intent = rec.Intent
		return r, nil
	}

	r, err := d.dispatch(ctx, rec)
	if err != nil {
		return Reply{}, fmt.Errorf("chat: %s: %w", rec.Intent, err)
	}
	r.Intent = rec.Intent
	return r, nil
}

func (d *Dispatcher) outcomeReply(out confirm.Outcome) Reply {
	m := d.msgs
	title := out.Pending.Title
	switch out.Kind {
	case confirm.Prompt:
		msg := fmt.Sprintf(m.ConfirmDelete, title)
		if out.Pending.Intent != intent.DeleteContent {
			msg = fmt.Sprintf(m.ConfirmAction, out.Pending.Intent, title)
		}
		return Reply{Type: Confirmation, Content: msg, Intent: out.Pending.Intent}
	case confirm.Executed:
		if !out.Found {
			return textReply(m.ClearMissing, title)
		}
		return textReply(m.Cleared, title)
	case confirm.Cancelled:
		return textReply(m.Cancelled, title)
	case confirm.NothingPending:
		return Reply{Type: Text, Content: m.NothingPending}
	case confirm.Reset:
		return Reply{Type: Text, Content: m.Reset}
	}
	return Reply{Type: Text, Content: m.NotUnderstood}
}

func (d *Dispatcher) dispatch(ctx context.Context, rec intent.Record) (Reply, error) {
	m := d.msgs
	switch rec.Intent {
	case intent.AddContent:
		if strings.TrimSpace(rec.Content) == "" {
			return Reply{Type: Text, Content: m.NoContent}, nil
		}
		title, err := d.target(ctx, rec)
		if err != nil {
			return Reply{}, err
		}
		p, err := d.store.AddContent(ctx, title, rec.Content, rec.EffectivePosition())
		if err != nil {
			return Reply{}, err
		}
		msg := fmt.Sprintf(m.Added, title, d.placement(p))
		if p.Created {
			msg = fmt.Sprintf(m.Created, title) + "\n" + msg
		}
		return Reply{Type: Text, Content: msg}, nil

	case intent.DeleteContent:
		title, err := d.target(ctx, rec)
		if err != nil {
			return Reply{}, err
		}
		found, err := d.store.ClearDocument(ctx, title)
		if err != nil {
			return Reply{}, err
		}
		if !found {
			return textReply(m.ClearMissing, title), nil
		}
		return textReply(m.Cleared, title), nil

	case intent.SetActive:
		if strings.TrimSpace(rec.DocTitle) == "" {
			return Reply{Type: Text, Content: m.NoSwitchTarget}, nil
		}
		ok, err := d.store.SetActiveDocument(ctx, rec.DocTitle)
		if err != nil {
			return Reply{}, err
		}
		if !ok {
			return textReply(m.SwitchMissing, rec.DocTitle), nil
		}
		return textReply(m.Switched, rec.DocTitle), nil

	case intent.DisplayDoc:
		title, err := d.target(ctx, rec)
		if err != nil {
			return Reply{}, err
		}
		lines, ok, err := d.store.Lines(ctx, title)
		if err != nil {
			return Reply{}, err
		}
		if !ok || len(lines) == 0 {
			return textReply(m.DocMissing, title), nil
		}
		return Reply{Type: Document, Content: strings.Join(lines, "\n"), Title: title, Lines: lines}, nil

	case intent.Help:
		if c := strings.TrimSpace(rec.Content); c != "" {
			return Reply{Type: Text, Content: rec.Content}, nil
		}
		return Reply{Type: Text, Content: m.Help}, nil

	case intent.Exit:
		return Reply{Type: Text, Content: m.Goodbye}, nil

	case intent.EditContent:
		return textReply(m.Unsupported, "编辑"), nil

	case intent.MoveContent:
		return textReply(m.Unsupported, "移动"), nil
	}

	if c := strings.TrimSpace(rec.Content); c != "" {
		return Reply{Type: Text, Content: rec.Content}, nil
	}
	return Reply{Type: Text, Content: m.NotUnderstood}, nil
}

// target is the record's document, or the active one.
func (d *Dispatcher) target(ctx context.Context, rec intent.Record) (string, error) {
	if t := strings.TrimSpace(rec.DocTitle); t != "" {
		return t, nil
	}
	return d.store.ActiveTitle(ctx)
}

func (d *Dispatcher) placement(p documents.Placement) string {
	tmpl := d.msgs.Placements[string(p.Kind)]
	if p.Kind == documents.PlacedAfter {
		return fmt.Sprintf(tmpl, p.Anchor)
	}
	return tmpl
}

func textReply(format, arg string) Reply {
	return Reply{Type: Text, Content: fmt.Sprintf(format, arg)}
}
