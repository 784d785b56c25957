package confirm_test

import (
	"context"
	"errors"
	"testing"

	"github.com/Liu-design-beep/smartclip/internal/smartclip/confirm"
	"github.com/Liu-design-beep/smartclip/internal/smartclip/intent"
)

type fakeStore struct {
	active  string
	docs    map[string]bool
	cleared []string
	failOn  string
}

func (f *fakeStore) ActiveTitle(context.Context) (string, error) { return f.active, nil }

func (f *fakeStore) clear(_ context.Context, title string) (bool, error) {
	if title == f.failOn {
		return false, errors.New("disk full")
	}
	if !f.docs[title] {
		return false, nil
	}
	f.cleared = append(f.cleared, title)
	return true, nil
}

type fakeResetter struct{ resets int }

func (r *fakeResetter) Reset() { r.resets++ }

func newMachine() (*confirm.Machine, *fakeStore, *fakeResetter) {
	st := &fakeStore{active: "默认文档", docs: map[string]bool{"Notes": true, "默认文档": true}}
	rs := &fakeResetter{}
	m := confirm.New(st, rs, map[intent.Type]confirm.Action{intent.DeleteContent: st.clear})
	return m, st, rs
}

var deleteNotes = intent.Record{Intent: intent.DeleteContent, DocTitle: "Notes", ConfirmationNeeded: true}

func TestApply_DeleteParksPendingAction(t *testing.T) {
	m, st, _ := newMachine()
	out, err := m.Apply(context.Background(), deleteNotes)
	if err != nil {
		t.Fatal(err)
	}
	if out.Kind != confirm.Prompt || out.Pending != (confirm.Pending{Intent: intent.DeleteContent, Title: "Notes"}) {
		t.Errorf("outcome: got %+v", out)
	}
	if m.State() != confirm.Awaiting {
		t.Errorf("state: got %s, want AWAITING_CONFIRMATION", m.State())
	}
	if len(st.cleared) != 0 {
		t.Errorf("store touched before confirmation: %v", st.cleared)
	}
}

func TestApply_DeleteUsesActiveTitle(t *testing.T) {
	m, _, _ := newMachine()
	out, _ := m.Apply(context.Background(), intent.Record{Intent: intent.DeleteContent, ConfirmationNeeded: true})
	if out.Pending.Title != "默认文档" {
		t.Errorf("title: got %q, want 默认文档", out.Pending.Title)
	}
}

func TestIntercept_LiteralConfirm(t *testing.T) {
	for _, word := range []string{"confirm", "CONFIRM", " yes ", "y", "确认", "是", "好的", "好", "好的。"} {
		m, st, _ := newMachine()
		_, _ = m.Apply(context.Background(), deleteNotes)

		out, handled, err := m.Intercept(context.Background(), word)
		if err != nil || !handled {
			t.Fatalf("%q: handled=%v err=%v", word, handled, err)
		}
		if out.Kind != confirm.Executed || !out.Found || out.Pending.Title != "Notes" {
			t.Errorf("%q: outcome %+v", word, out)
		}
		if len(st.cleared) != 1 || st.cleared[0] != "Notes" {
			t.Errorf("%q: cleared %v", word, st.cleared)
		}
		if m.State() != confirm.Idle {
			t.Errorf("%q: state %s, want IDLE", word, m.State())
		}
	}
}

func TestIntercept_LiteralCancel(t *testing.T) {
	for _, word := range []string{"cancel", "No", "n", "取消", "否", "不"} {
		m, st, _ := newMachine()
		_, _ = m.Apply(context.Background(), deleteNotes)

		out, handled, err := m.Intercept(context.Background(), word)
		if err != nil || !handled || out.Kind != confirm.Cancelled {
			t.Fatalf("%q: got (%+v, %v, %v)", word, out, handled, err)
		}
		if len(st.cleared) != 0 {
			t.Errorf("%q: store mutated: %v", word, st.cleared)
		}
		if m.State() != confirm.Idle {
			t.Errorf("%q: state %s, want IDLE", word, m.State())
		}
	}
}

func TestIntercept_NotHandled(t *testing.T) {
	m, _, _ := newMachine()
	if _, handled, _ := m.Intercept(context.Background(), "yes"); handled {
		t.Error("literal answer handled while IDLE")
	}
	_, _ = m.Apply(context.Background(), deleteNotes)
	if _, handled, _ := m.Intercept(context.Background(), "yes please delete it"); handled {
		t.Error("sentence treated as literal answer")
	}
	if m.State() != confirm.Awaiting {
		t.Errorf("state: got %s, want AWAITING_CONFIRMATION", m.State())
	}
}

func TestApply_RecognizedConfirmAndCancel(t *testing.T) {
	m, st, _ := newMachine()
	_, _ = m.Apply(context.Background(), deleteNotes)
	out, err := m.Apply(context.Background(), intent.Record{Intent: intent.Confirm})
	if err != nil || out.Kind != confirm.Executed || len(st.cleared) != 1 {
		t.Fatalf("confirm: got (%+v, %v), cleared %v", out, err, st.cleared)
	}

	_, _ = m.Apply(context.Background(), deleteNotes)
	out, err = m.Apply(context.Background(), intent.Record{Intent: intent.Cancel})
	if err != nil || out.Kind != confirm.Cancelled || len(st.cleared) != 1 {
		t.Fatalf("cancel: got (%+v, %v), cleared %v", out, err, st.cleared)
	}
}

func TestApply_ConfirmWhileIdle(t *testing.T) {
	m, _, _ := newMachine()
	for _, it := range []intent.Type{intent.Confirm, intent.Cancel} {
		out, err := m.Apply(context.Background(), intent.Record{Intent: it})
		if err != nil || out.Kind != confirm.NothingPending {
			t.Errorf("%s: got (%+v, %v)", it, out, err)
		}
	}
}

func TestApply_ResetClearsPending(t *testing.T) {
	for _, it := range []intent.Type{intent.ResetConversation, intent.ClearConversation} {
		m, st, rs := newMachine()
		_, _ = m.Apply(context.Background(), deleteNotes)
		out, err := m.Apply(context.Background(), intent.Record{Intent: it})
		if err != nil || out.Kind != confirm.Reset {
			t.Fatalf("%s: got (%+v, %v)", it, out, err)
		}
		if m.State() != confirm.Idle || rs.resets != 1 || len(st.cleared) != 0 {
			t.Errorf("%s: state %s resets %d cleared %v", it, m.State(), rs.resets, st.cleared)
		}
	}
}

func TestApply_SecondDeleteResurfacesFirst(t *testing.T) {
	m, _, _ := newMachine()
	_, _ = m.Apply(context.Background(), deleteNotes)
	out, _ := m.Apply(context.Background(), intent.Record{Intent: intent.DeleteContent, DocTitle: "默认文档", ConfirmationNeeded: true})
	if out.Kind != confirm.Prompt || out.Pending.Title != "Notes" {
		t.Errorf("outcome: got %+v, want prompt for Notes", out)
	}
}

func TestApply_PassThrough(t *testing.T) {
	m, _, _ := newMachine()
	_, _ = m.Apply(context.Background(), deleteNotes)
	for _, rec := range []intent.Record{
		{Intent: intent.AddContent, Content: "x"},
		{Intent: intent.DeleteContent, DocTitle: "Notes"},
		{Intent: intent.Unknown},
	} {
		out, err := m.Apply(context.Background(), rec)
		if err != nil || out.Kind != confirm.Pass {
			t.Errorf("%+v: got (%+v, %v)", rec, out, err)
		}
	}
	if p, ok := m.Pending(); !ok || p.Title != "Notes" {
		t.Errorf("pending lost: %+v %v", p, ok)
	}
}

func TestExecute_MissingDocument(t *testing.T) {
	m, st, _ := newMachine()
	_, _ = m.Apply(context.Background(), intent.Record{Intent: intent.DeleteContent, DocTitle: "Gone", ConfirmationNeeded: true})
	out, handled, err := m.Intercept(context.Background(), "yes")
	if err != nil || !handled || out.Kind != confirm.Executed || out.Found {
		t.Fatalf("got (%+v, %v, %v)", out, handled, err)
	}
	if len(st.cleared) != 0 || m.State() != confirm.Idle {
		t.Errorf("cleared %v state %s", st.cleared, m.State())
	}
}

func TestExecute_ErrorKeepsPending(t *testing.T) {
	m, st, _ := newMachine()
	st.failOn = "Notes"
	_, _ = m.Apply(context.Background(), deleteNotes)
	if _, _, err := m.Intercept(context.Background(), "确认"); err == nil {
		t.Fatal("expected error from failing action")
	}
	if m.State() != confirm.Awaiting {
		t.Errorf("state: got %s, want AWAITING_CONFIRMATION", m.State())
	}
}
