package payload

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Liu-design-beep/smartclip/internal/smartclip/intent"
)

// ErrNotObject is returned when the candidate parses as JSON but is not an
// object.
var ErrNotObject = errors.New("payload: not a JSON object")

// typeTable maps the intent_type vocabulary of the newer payload shape onto
// canonical intent types. Unlisted values become UNKNOWN.
var typeTable = map[string]intent.Type{
	"ADD":                intent.AddContent,
	"EDIT":               intent.EditContent,
	"MOVE":               intent.MoveContent,
	"DELETE":             intent.DeleteContent,
	"QUERY":              intent.DisplayDoc,
	"SET_ACTIVE":         intent.SetActive,
	"HELP":               intent.Help,
	"EXIT":               intent.Exit,
	"CONFIRM":            intent.Confirm,
	"CANCEL":             intent.Cancel,
	"RESET_CONVERSATION": intent.ResetConversation,
	"UNKNOWN":            intent.Unknown,
}

// Decode parses candidate as a JSON object.
func Decode(candidate string) (map[string]any, error) {
	var v any
	if err := json.Unmarshal([]byte(candidate), &v); err != nil {
		return nil, fmt.Errorf("payload: decode: %w", err)
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, ErrNotObject
	}
	return m, nil
}

// DecodeRepaired parses candidate, and when that fails, parses Repair(candidate)
// exactly once. repaired reports whether the second attempt was needed.
func DecodeRepaired(candidate string) (m map[string]any, repaired bool, err error) {
	m, err = Decode(candidate)
	if err == nil {
		return m, false, nil
	}
	m, err2 := Decode(Repair(candidate))
	if err2 != nil {
		return nil, true, errors.Join(err, err2)
	}
	return m, true, nil
}

// Normalize converts a decoded payload into the canonical record. A payload
// carrying an "intent" key is the legacy shape and its fields are taken as
// they are; anything else is read as the intent_type shape.
func Normalize(p map[string]any) intent.Record {
	if _, ok := p["intent"]; ok {
		return intent.Record{
			Intent:               intent.Type(asString(p["intent"])),
			DocTitle:             asString(p["doc_title"]),
			Content:              asString(p["content"]),
			Position:             asString(p["position"]),
			ConfirmationNeeded:   asBool(p["confirmation_needed"]),
			ContextDependency:    p["context_dependency"],
			SystemActionRequired: asString(p["system_action_required"]),
		}
	}

	kind := "UNKNOWN"
	if s, ok := p["intent_type"].(string); ok {
		kind = strings.ToUpper(strings.TrimSpace(s))
	}
	it, ok := typeTable[kind]
	if !ok {
		it = intent.Unknown
	}

	pos := intent.PositionEnd
	if raw, ok := p["target_location_raw"]; ok && raw != nil {
		pos = asString(raw)
	}

	return intent.Record{
		Intent:               it,
		DocTitle:             asString(p["target_document"]),
		Content:              asString(p["content_to_process"]),
		Position:             pos,
		ConfirmationNeeded:   asBool(p["confirmation_needed"]),
		ContextDependency:    p["context_dependency"],
		SystemActionRequired: asString(p["system_action_required"]),
	}
}

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

func asBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(t))
		return b
	case float64:
		return t != 0
	}
	return false
}
