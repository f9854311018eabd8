package payment

import "strings"

// Action is the webhook action reported by the provider, parsed once at
// the edge so unknown values are rejected before any state is touched.
type Action string

const (
	ActionPrepare  Action = "prepare"
	ActionCheck    Action = "check"
	ActionComplete Action = "complete"
	ActionCancel   Action = "cancel"
)

// ParseAction maps the raw action field to a known Action. Click sends
// "pay" as an alias for "complete".
func ParseAction(raw string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "prepare":
		return ActionPrepare, nil
	case "check":
		return ActionCheck, nil
	case "complete", "pay":
		return ActionComplete, nil
	case "cancel":
		return ActionCancel, nil
	default:
		return "", ErrUnknownAction
	}
}

// IsProviderError reports whether the provider error field signals a
// decline. By cross-provider convention an empty or "0" value is success;
// anything else is a failure code with no further interpretation.
func IsProviderError(code string) bool {
	code = strings.TrimSpace(code)
	return code != "" && code != "0"
}
