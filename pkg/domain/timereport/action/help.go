package action

import (
	"context"
	"strings"

	"github.com/napryag/timereport_bot/pkg/domain/timereport/command"
)

type helpAction struct{ e *Engine }

func (a *helpAction) Name() command.Name { return command.Help }

func (a *helpAction) Doc() Doc {
	return Doc{
		Short:   "Provide this helpful output",
		Usage:   "/help [action]\n\nExample: /help add",
		MinArgs: 0,
		MaxArgs: 1,
	}
}

func (a *helpAction) Perform(_ context.Context, cmd command.Command) Reply {
	if len(cmd.Arguments) > 0 {
		if name, ok := command.Lookup(cmd.Arguments[0]); ok {
			return textReply(a.e.Lookup(name).Doc().Usage)
		}
	}

	var b strings.Builder
	b.WriteString("Supported actions are:\n")
	for _, name := range command.Names {
		b.WriteString("\n")
		b.WriteString(string(name))
		b.WriteString(" - ")
		b.WriteString(a.e.Lookup(name).Doc().Short)
	}
	return textReply(b.String())
}

type unsupportedAction struct{ e *Engine }

func (a *unsupportedAction) Name() command.Name { return command.Unsupported }

func (a *unsupportedAction) Doc() Doc {
	return Doc{MaxArgs: -1}
}

func (a *unsupportedAction) Perform(_ context.Context, cmd command.Command) Reply {
	return textReply("Unsupported action: " + cmd.RawAction + ". Try /help")
}
