package command

import "strings"

// Name identifies an action kind.
type Name string

const (
	Help        Name = "help"
	Add         Name = "add"
	Edit        Name = "edit"
	Delete      Name = "delete"
	List        Name = "list"
	Lock        Name = "lock"
	Unsupported Name = "unsupported"
)

// Names is the fixed action set in display order. Unsupported is not a user-facing name.
var Names = []Name{Help, Add, Edit, Delete, List, Lock}

// Lookup resolves a user-typed action name.
func Lookup(s string) (Name, bool) {
	s = strings.ToLower(s)
	for _, n := range Names {
		if string(n) == s {
			return n, true
		}
	}
	return Unsupported, false
}

// Command is one inbound text message split into action and arguments.
type Command struct {
	Action Name
	// RawAction is the action token as typed, kept for error messages.
	RawAction string
	Arguments []string
	ActorID   string
	ActorName string
}

// Parse splits text on whitespace. The first token names the action; empty text means Help.
// Unknown names resolve to Unsupported. Parse never fails.
func Parse(text, actorID, actorName string) Command {
	cmd := Command{ActorID: actorID, ActorName: actorName, Action: Help, RawAction: string(Help)}

	fields := strings.Fields(text)
	if len(fields) == 0 {
		return cmd
	}

	// Telegram style "/add@timereport_bot".
	raw := strings.TrimPrefix(fields[0], "/")
	if i := strings.IndexByte(raw, '@'); i >= 0 {
		raw = raw[:i]
	}
	if raw == "" || raw == "start" {
		raw = string(Help)
	}

	cmd.RawAction = raw
	cmd.Action, _ = Lookup(raw)
	cmd.Arguments = fields[1:]
	return cmd
}
