package action

import (
	"github.com/napryag/timereport_bot/pkg/domain/timereport/command"
	"github.com/shopspring/decimal"
)

// Proposal carries everything needed to replay a mutating action. It is sent to the
// chat client with the confirmation prompt and comes back with the decision; nothing
// about it is kept on the server.
type Proposal struct {
	Kind      command.Name
	ActorID   string
	ActorName string
	Reason    string // empty for delete
	DateSpec  string // date text as resolved at proposal time, e.g. "2020-05-21:2020-05-23"
	Hours     decimal.NullDecimal
}

// Decision is the user's answer to a Proposal.
type Decision struct {
	Proposal Proposal
	Accepted bool
	// CallbackRef identifies the interaction to acknowledge, if the platform needs it.
	CallbackRef string
	// ResponderID is who pressed the button. Empty means the transport already checked it.
	ResponderID string
	// Recipient is where the outcome goes; the actor when empty.
	Recipient string
}

// CommandEvent is an inbound text command, already authenticated.
type CommandEvent struct {
	Text      string
	ActorID   string
	ActorName string
	// Recipient is where replies go; the actor when empty.
	Recipient string
}

// Reply is what an action answers: plain text, or a proposal to confirm.
type Reply struct {
	Text     string
	Proposal *Proposal
}

func textReply(text string) Reply {
	return Reply{Text: text}
}
