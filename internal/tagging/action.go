package tagging

import (
	"strings"

	"github.com/ethereum-tag-service/ets-server/internal/errors"
)

// Action selects how a requested tag set is reconciled against a record.
type Action int

const (
	// ActionAppend adds requested tags not already present. Apply is an
	// append that may create the record.
	ActionAppend Action = iota
	// ActionReplace makes the record's tag set equal the requested set.
	ActionReplace
	// ActionRemove removes requested tags that are present. Always free.
	ActionRemove
)

func (a Action) String() string {
	switch a {
	case ActionAppend:
		return "append"
	case ActionReplace:
		return "replace"
	case ActionRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// ParseAction parses an action name. "apply" is accepted as an alias for
// append.
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(s) {
	case "append", "apply":
		return ActionAppend, nil
	case "replace":
		return ActionReplace, nil
	case "remove":
		return ActionRemove, nil
	default:
		return 0, errors.Validationf("invalid action %q", s)
	}
}
