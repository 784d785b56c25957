package agent_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Liu-design-beep/smartclip/internal/smartclip/agent"
	"github.com/Liu-design-beep/smartclip/internal/smartclip/intent"
)

// ----------------------------------------------------------------------------
// stub backend
// ----------------------------------------------------------------------------

type stubBackend struct {
	replies []string
	err     error
	panics  bool
	block   bool
	seen    [][]intent.Turn
}

func (s *stubBackend) Name() string { return "stub" }

func (s *stubBackend) Call(ctx context.Context, transcript []intent.Turn) (*agent.Reply, error) {
	s.seen = append(s.seen, transcript)
	if s.panics {
		panic("boom")
	}
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if s.err != nil {
		return nil, s.err
	}
	text := s.replies[0]
	if len(s.replies) > 1 {
		s.replies = s.replies[1:]
	}
	return &agent.Reply{Text: text, RequestID: "req-1"}, nil
}

// ----------------------------------------------------------------------------
// tests
// ----------------------------------------------------------------------------

func TestRecognize_Unconfigured(t *testing.T) {
	r := agent.NewRecognizer(nil, 0)
	if r.Configured() {
		t.Fatal("recognizer without backend reports configured")
	}
	got := r.Recognize(context.Background(), "帮助")
	if got.Intent != intent.Unknown {
		t.Errorf("intent: got %q, want UNKNOWN", got.Intent)
	}
	if n := len(r.Transcript()); n != 0 {
		t.Errorf("transcript length: got %d, want 0", n)
	}
}

func TestRecognize_Success(t *testing.T) {
	b := &stubBackend{replies: []string{"好的：\n```json\n{\"intent_type\": \"add\", \"target_document\": \"购物清单\", \"content_to_process\": \"牛奶\", \"target_location_raw\": null}\n```"}}
	r := agent.NewRecognizer(b, time.Second)

	got := r.Recognize(context.Background(), "在购物清单里加上牛奶")
	want := intent.Record{Intent: intent.AddContent, DocTitle: "购物清单", Content: "牛奶", Position: "end"}
	if got != want {
		t.Errorf("record: got %+v, want %+v", got, want)
	}

	tr := r.Transcript()
	if len(tr) != 2 || tr[0].Role != intent.RoleUser || tr[1].Role != intent.RoleAssistant {
		t.Fatalf("transcript: got %+v", tr)
	}
	if len(b.seen) != 1 || len(b.seen[0]) != 1 || b.seen[0][0].Text != "在购物清单里加上牛奶" {
		t.Errorf("backend saw %+v", b.seen)
	}
}

func TestRecognize_SendsFullTranscript(t *testing.T) {
	b := &stubBackend{replies: []string{`{"intent_type": "help"}`}}
	r := agent.NewRecognizer(b, 0)
	r.Recognize(context.Background(), "first")
	r.Recognize(context.Background(), "second")

	last := b.seen[len(b.seen)-1]
	if len(last) != 3 {
		t.Fatalf("second call transcript: got %d turns, want 3", len(last))
	}
	if last[2].Role != intent.RoleUser || last[2].Text != "second" {
		t.Errorf("newest turn: got %+v", last[2])
	}
}

func TestRecognize_TransportFailureDegrades(t *testing.T) {
	cases := map[string]intent.Type{
		"帮助":             intent.Help,
		"help me please": intent.Help,
		"退出":             intent.Exit,
		"bye":            intent.Exit,
		"把第一行删掉":         intent.Unknown,
	}
	for text, want := range cases {
		b := &stubBackend{err: &agent.StatusError{HTTPStatus: 500, Code: "InternalError", Message: "x"}}
		r := agent.NewRecognizer(b, 0)
		got := r.Recognize(context.Background(), text)
		if got.Intent != want {
			t.Errorf("%q: got %q, want %q", text, got.Intent, want)
		}
		if n := len(r.Transcript()); n != 0 {
			t.Errorf("%q: transcript length %d, want 0", text, n)
		}
	}
}

func TestRecognize_FailureKeepsEarlierTurns(t *testing.T) {
	b := &stubBackend{replies: []string{`{"intent": "HELP"}`}}
	r := agent.NewRecognizer(b, 0)
	r.Recognize(context.Background(), "hello")
	before := r.Transcript()

	b.err = errors.New("connection refused")
	r.Recognize(context.Background(), "帮助")
	r.Recognize(context.Background(), "另一个请求")

	after := r.Transcript()
	if len(after) != len(before) {
		t.Fatalf("transcript length: got %d, want %d", len(after), len(before))
	}
	for i := range before {
		if after[i] != before[i] {
			t.Errorf("turn %d changed: got %+v, want %+v", i, after[i], before[i])
		}
	}
}

func TestRecognize_TimeoutDegrades(t *testing.T) {
	b := &stubBackend{block: true}
	r := agent.NewRecognizer(b, 10*time.Millisecond)
	got := r.Recognize(context.Background(), "exit")
	if got.Intent != intent.Exit {
		t.Errorf("intent: got %q, want EXIT", got.Intent)
	}
	if n := len(r.Transcript()); n != 0 {
		t.Errorf("transcript length: got %d, want 0", n)
	}
}

func TestRecognize_NoPayloadKeepsAssistantTurn(t *testing.T) {
	b := &stubBackend{replies: []string{"抱歉，我不太明白。"}}
	r := agent.NewRecognizer(b, 0)
	got := r.Recognize(context.Background(), "help")
	if got.Intent != intent.Help {
		t.Errorf("intent: got %q, want HELP", got.Intent)
	}
	tr := r.Transcript()
	if len(tr) != 2 || tr[1].Text != "抱歉，我不太明白。" {
		t.Errorf("transcript: got %+v", tr)
	}
}

func TestRecognize_UnparseablePayloadDegrades(t *testing.T) {
	b := &stubBackend{replies: []string{`{"intent": `}}
	r := agent.NewRecognizer(b, 0)
	got := r.Recognize(context.Background(), "随便说点什么")
	if got.Intent != intent.Unknown {
		t.Errorf("intent: got %q, want UNKNOWN", got.Intent)
	}
	if n := len(r.Transcript()); n != 2 {
		t.Errorf("transcript length: got %d, want 2", n)
	}
}

func TestRecognize_RepairsMalformedReplies(t *testing.T) {
	cases := map[string]intent.Type{
		`{{"intent_type": "query", "target_document": "Notes"}}`:   intent.DisplayDoc,
		`{'intent_type': 'add', 'content_to_process': 'x',}`:      intent.AddContent,
		"```json\n{\"intent\": \"SET_ACTIVE\", \"doc_title\": \"A\"}": intent.SetActive,
	}
	for reply, want := range cases {
		r := agent.NewRecognizer(&stubBackend{replies: []string{reply}}, 0)
		if got := r.Recognize(context.Background(), "x"); got.Intent != want {
			t.Errorf("reply %q: got %q, want %q", reply, got.Intent, want)
		}
	}
}

func TestRecognize_PanicRollsBack(t *testing.T) {
	b := &stubBackend{replies: []string{`{"intent": "HELP"}`}}
	r := agent.NewRecognizer(b, 0)
	r.Recognize(context.Background(), "hello")

	b.panics = true
	got := r.Recognize(context.Background(), "help")
	if got.Intent != intent.Unknown {
		t.Errorf("intent: got %q, want UNKNOWN", got.Intent)
	}
	if n := len(r.Transcript()); n != 2 {
		t.Errorf("transcript length: got %d, want 2", n)
	}
}

func TestReset_ThenSuccess(t *testing.T) {
	b := &stubBackend{replies: []string{`{"intent": "HELP"}`}}
	r := agent.NewRecognizer(b, 0)
	r.Recognize(context.Background(), "one")
	r.Recognize(context.Background(), "two")
	r.Reset()
	if n := len(r.Transcript()); n != 0 {
		t.Fatalf("after reset: got %d turns", n)
	}
	r.Recognize(context.Background(), "three")
	tr := r.Transcript()
	if len(tr) != 2 || tr[0].Role != intent.RoleUser || tr[1].Role != intent.RoleAssistant {
		t.Errorf("transcript: got %+v", tr)
	}
}

func TestTranscript_ReturnsCopy(t *testing.T) {
	r := agent.NewRecognizer(&stubBackend{replies: []string{`{"intent": "HELP"}`}}, 0)
	r.Recognize(context.Background(), "x")
	tr := r.Transcript()
	tr[0].Text = "mutated"
	if r.Transcript()[0].Text != "x" {
		t.Error("Transcript exposed internal state")
	}
}

func TestDegrade(t *testing.T) {
	cases := map[string]intent.Type{
		"退出":         intent.Exit,
		"EXIT":       intent.Exit,
		"quit now":   intent.Exit,
		"帮助":         intent.Help,
		"怎么用":        intent.Help,
		"?":          intent.Help,
		"HELP":       intent.Help,
		"exited":     intent.Unknown,
		"添加一行":       intent.Unknown,
		"":           intent.Unknown,
	}
	for in, want := range cases {
		if got := agent.Degrade(in); got.Intent != want {
			t.Errorf("Degrade(%q): got %q, want %q", in, got.Intent, want)
		}
	}
}
