// Package confirm holds destructive actions until the user explicitly
// confirms them.
//
// A Machine is IDLE or AWAITING_CONFIRMATION. A record whose intent has a
// registered Action and that asks for confirmation parks a Pending action;
// the next affirmative answer runs it, a negative one drops it. A
// conversation reset drops it too.
package confirm

import (
	"context"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Liu-design-beep/smartclip/internal/smartclip/intent"
)

// State of a Machine.
type State int

const (
	Idle State = iota
	Awaiting
)

func (s State) String() string {
	if s == Awaiting {
		return "AWAITING_CONFIRMATION"
	}
	return "IDLE"
}

// Pending is the action waiting for an answer.
type Pending struct {
	Intent intent.Type
	Title  string
}

// Action runs a confirmed pending action against title. found is false when
// the target no longer exists.
type Action func(ctx context.Context, title string) (found bool, err error)

// TitleSource resolves the document a record refers to when it names none.
type TitleSource interface {
	ActiveTitle(ctx context.Context) (string, error)
}

// Resetter forgets conversation history.
type Resetter interface {
	Reset()
}

// Kind classifies the result of a transition.
type Kind int

const (
	// Pass means the machine did not act; the caller handles the record.
	Pass Kind = iota
	// Prompt means a pending action exists and the user must answer.
	Prompt
	Executed
	Cancelled
	// NothingPending answers a confirm or cancel given while IDLE.
	NothingPending
	Reset
)

// Outcome is what the caller should tell the user.
type Outcome struct {
	Kind    Kind
	Pending Pending
	// Found is set for Executed: false when the target had disappeared.
	Found bool
}

var (
	affirmative = []string{"确认", "confirm", "yes", "y", "是", "好的", "好"}
	negative    = []string{"取消", "cancel", "no", "n", "否", "不"}
)

var confirmationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "smartclip",
		Subsystem: "confirm",
		Name:      "transitions_total",
		Help:      "Confirmation machine transitions by outcome.",
	},
	[]string{"outcome"},
)

// Machine is the per-conversation confirmation state. It is not safe for
// concurrent use.
type Machine struct {
	actions  map[intent.Type]Action
	titles   TitleSource
	resetter Resetter
	pending  *Pending
}

// New returns an IDLE machine. actions lists the intents that may require
// confirmation and how to carry each out.
func New(titles TitleSource, resetter Resetter, actions map[intent.Type]Action) *Machine {
	return &Machine{actions: actions, titles: titles, resetter: resetter}
}

// State reports the current state.
func (m *Machine) State() State {
	if m.pending != nil {
		return Awaiting
	}
	return Idle
}

// Pending returns the parked action, if any.
func (m *Machine) Pending() (Pending, bool) {
	if m.pending == nil {
		return Pending{}, false
	}
	return *m.pending, true
}

// Gated reports whether t can require confirmation.
func (m *Machine) Gated(t intent.Type) bool {
	_, ok := m.actions[t]
	return ok
}

// Intercept checks a raw user message for a literal yes or no while an
// action is pending. It runs before the message is sent to the agent so a
// one-word answer is never reclassified. handled is false when the machine
// is IDLE or the text is not a literal answer.
func (m *Machine) Intercept(ctx context.Context, text string) (out Outcome, handled bool, err error) {
	if m.pending == nil {
		return Outcome{}, false, nil
	}
	switch {
	case matches(text, affirmative):
		out, err = m.execute(ctx)
		return out, true, err
	case matches(text, negative):
		return m.cancel(), true, nil
	}
	return Outcome{}, false, nil
}

// Apply feeds a recognized record through the machine.
func (m *Machine) Apply(ctx context.Context, rec intent.Record) (Outcome, error) {
	switch {
	case rec.ResetsConversation():
		m.pending = nil
		if m.resetter != nil {
			m.resetter.Reset()
		}
		confirmationsTotal.WithLabelValues("reset").Inc()
		return Outcome{Kind: Reset}, nil

	case rec.Intent == intent.Confirm:
		if m.pending == nil {
			return Outcome{Kind: NothingPending}, nil
		}
		return m.execute(ctx)

	case rec.Intent == intent.Cancel:
		if m.pending == nil {
			return Outcome{Kind: NothingPending}, nil
		}
		return m.cancel(), nil

	case rec.ConfirmationNeeded && m.Gated(rec.Intent):
		if m.pending != nil {
			return Outcome{Kind: Prompt, Pending: *m.pending}, nil
		}
		title := rec.DocTitle
		if title == "" && m.titles != nil {
			active, err := m.titles.ActiveTitle(ctx)
			if err != nil {
				return Outcome{}, fmt.Errorf("confirm: resolve active title: %w", err)
			}
			title = active
		}
		m.pending = &Pending{Intent: rec.Intent, Title: title}
		confirmationsTotal.WithLabelValues("prompted").Inc()
		return Outcome{Kind: Prompt, Pending: *m.pending}, nil
	}
	return Outcome{Kind: Pass}, nil
}

// execute runs the pending action. On error the action stays pending so the
// user can answer again.
func (m *Machine) execute(ctx context.Context) (Outcome, error) {
	p := *m.pending
	action, ok := m.actions[p.Intent]
	if !ok {
		m.pending = nil
		return Outcome{}, fmt.Errorf("confirm: no action registered for %s", p.Intent)
	}
	found, err := action(ctx, p.Title)
	if err != nil {
		return Outcome{}, fmt.Errorf("confirm: execute %s %q: %w", p.Intent, p.Title, err)
	}
	m.pending = nil
	confirmationsTotal.WithLabelValues("executed").Inc()
	return Outcome{Kind: Executed, Pending: p, Found: found}, nil
}

func (m *Machine) cancel() Outcome {
	p := *m.pending
	m.pending = nil
	confirmationsTotal.WithLabelValues("cancelled").Inc()
	return Outcome{Kind: Cancelled, Pending: p}
}

func matches(text string, words []string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	t = strings.TrimRight(t, "。.!！")
	for _, w := range words {
		if t == w {
			return true
		}
	}
	return false
}
