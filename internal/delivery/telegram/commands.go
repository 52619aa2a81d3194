package telegram

import "strings"

// Command is one of the chat admin commands. They are accepted in any
// session state.
type Command string

const (
	CmdResetCases Command = "!resetcases" // clear the usage ledger and restart
	CmdNextCase   Command = "!nextcase"   // abandon the current case, no penalty
	CmdScore      Command = "!score"      // reply with sender and group stats
)

// ParseCommand matches a message against the admin commands:
// case-insensitive, exact match on the trimmed body.
func ParseCommand(text string) (Command, bool) {
	switch Command(strings.ToLower(strings.TrimSpace(text))) {
	case CmdResetCases:
		return CmdResetCases, true
	case CmdNextCase:
		return CmdNextCase, true
	case CmdScore:
		return CmdScore, true
	}
	return "", false
}
