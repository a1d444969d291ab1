package policy

import (
	"fmt"
	"strings"
)

// Action is an operation a host application can attempt on behalf of the
// visitor.
type Action uint8

const (
	ActionComment Action = iota
	ActionReply
	ActionEdit
	ActionDelete
	ActionVote
	ActionReport
	ActionMute
	ActionShare
	ActionViewOthersProfile
	ActionViewOwnProfile
	ActionLoginPrompt
	ActionAppeal
	actionCount
)

var actionNames = [actionCount]string{
	ActionComment:           "comment",
	ActionReply:             "reply",
	ActionEdit:              "edit",
	ActionDelete:            "delete",
	ActionVote:              "vote",
	ActionReport:            "report",
	ActionMute:              "mute",
	ActionShare:             "share",
	ActionViewOthersProfile: "view_others_profile",
	ActionViewOwnProfile:    "view_own_profile",
	ActionLoginPrompt:       "login_prompt",
	ActionAppeal:            "appeal",
}

// Actions returns every known action in declaration order.
func Actions() []Action {
	out := make([]Action, 0, actionCount)
	for a := Action(0); a < actionCount; a++ {
		out = append(out, a)
	}
	return out
}

func (a Action) String() string {
	if a < actionCount {
		return actionNames[a]
	}
	return fmt.Sprintf("action(%d)", uint8(a))
}

// ParseAction resolves a name produced by Action.String.
func ParseAction(name string) (Action, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for a := Action(0); a < actionCount; a++ {
		if actionNames[a] == name {
			return a, nil
		}
	}
	return 0, fmt.Errorf("unknown action %q", name)
}
