// Package intent defines the structured result of understanding one user
// turn, and the conversation transcript the understanding is based on.
package intent

import "strings"

// Type names the action a user asked for.
type Type string

const (
	AddContent        Type = "ADD_CONTENT"
	EditContent       Type = "EDIT_CONTENT"
	MoveContent       Type = "MOVE_CONTENT"
	DeleteContent     Type = "DELETE_CONTENT"
	SetActive         Type = "SET_ACTIVE"
	DisplayDoc        Type = "DISPLAY_DOC"
	Help              Type = "HELP"
	Confirm           Type = "CONFIRM"
	Cancel            Type = "CANCEL"
	ResetConversation Type = "RESET_CONVERSATION"
	ClearConversation Type = "CLEAR_CONVERSATION"
	Exit              Type = "EXIT"
	Unknown           Type = "UNKNOWN"
)

// PositionEnd is the insertion point used when none was given.
const PositionEnd = "end"

// Record is the canonical per-turn result. It is produced fresh for every
// user message and never stored.
type Record struct {
	Intent               Type
	DocTitle             string
	Content              string
	Position             string
	ConfirmationNeeded   bool
	ContextDependency    any
	SystemActionRequired string
}

// UnknownRecord is the result used whenever understanding fails.
func UnknownRecord() Record { return Record{Intent: Unknown} }

// EffectivePosition returns Position, or PositionEnd when it is blank.
// Legacy payloads may omit the position; consumers read it through here.
func (r Record) EffectivePosition() string {
	if p := strings.TrimSpace(r.Position); p != "" {
		return p
	}
	return PositionEnd
}

// ResetsConversation reports whether the record asks to forget the transcript.
func (r Record) ResetsConversation() bool {
	return r.Intent == ResetConversation || r.Intent == ClearConversation
}

// Role is the speaker of a transcript turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in a conversation.
type Turn struct {
	Role Role
	Text string
}
