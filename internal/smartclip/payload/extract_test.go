package payload

import "testing"

func TestExtract(t *testing.T) {
	cases := []struct {
		name  string
		reply string
		want  string
	}{
		{
			name:  "closed fence with prose",
			reply: "好的，结果如下：\n```json\n{\"intent_type\": \"ADD\", \"content_to_process\": \"买牛奶\"}\n```\n以上。",
			want:  `{"intent_type": "ADD", "content_to_process": "买牛奶"}`,
		},
		{
			name:  "closed fence unbalanced",
			reply: "```\n{\"a\": \"x\"} and } extra\n```",
			want:  `{"a": "x"}`,
		},
		{
			name:  "unterminated fence",
			reply: "```json\n{\"intent\": \"HELP\"}",
			want:  `{"intent": "HELP"}`,
		},
		{
			name:  "bare object in prose",
			reply: `Sure! {"intent": "EXIT"} bye`,
			want:  `{"intent": "EXIT"}`,
		},
		{
			name:  "nested object",
			reply: `result: {"a": {"b": "x"}, "c": 1} done`,
			want:  `{"a": {"b": "x"}, "c": 1}`,
		},
		{
			name:  "doubled braces skip the outer brace",
			reply: `{{"intent": "HELP"}}`,
			want:  `{"intent": "HELP"}`,
		},
		{
			name:  "doubled braces inside a fence",
			reply: "```json\n{{\"intent\": \"HELP\"}}\n```",
			want:  `{"intent": "HELP"}`,
		},
		{
			name:  "inline pair after an unterminated object",
			reply: `prefix {broken {"k": "v"}`,
			want:  `{"k": "v"}`,
		},
		{
			name:  "bare unterminated text",
			reply: "  {\"k\": 1  ",
			want:  `{"k": 1`,
		},
		{
			name:  "nothing structured",
			reply: "我不明白您的意思",
			want:  "",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Extract(tc.reply); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestExtract_NeverReturnsDoubledBrace(t *testing.T) {
	for _, reply := range []string{
		"{{",
		"{{}}",
		"```\n{{\n```",
		"text {{ more }} text",
	} {
		if got := Extract(reply); isDoubled(got) {
			t.Errorf("Extract(%q) = %q starts with a doubled brace", reply, got)
		}
	}
}

func TestExtract_ThenDecodeRecoversObject(t *testing.T) {
	obj := `{"intent": "ADD_CONTENT", "doc_title": "Notes", "content": "line"}`
	for _, reply := range []string{
		obj,
		"```json\n" + obj + "\n```",
		"```\n" + obj,
		"here you go: " + obj + " (end)",
	} {
		m, err := Decode(Extract(reply))
		if err != nil {
			t.Fatalf("reply %q: %v", reply, err)
		}
		if m["intent"] != "ADD_CONTENT" || m["doc_title"] != "Notes" || m["content"] != "line" {
			t.Errorf("reply %q: got %v", reply, m)
		}
	}
}

func TestMatchBrace(t *testing.T) {
	text := `{"a": "\"}", "b": {}}tail`
	if got := matchBrace(text, 0); got != len(text)-len("tail") {
		t.Errorf("got %d, want %d", got, len(text)-len("tail"))
	}
	if got := matchBrace(`{"a": 1`, 0); got != -1 {
		t.Errorf("unterminated: got %d, want -1", got)
	}
}
