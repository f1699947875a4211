// Package keyboards renders confirmation prompts as inline keyboards. The whole
// proposal travels in the callback data of each button, so no session is needed
// to replay it.
package keyboards

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/napryag/timereport_bot/pkg/domain/timereport/action"
	"github.com/napryag/timereport_bot/pkg/domain/timereport/command"
	"github.com/napryag/timereport_bot/pkg/utils/errs"
	"github.com/shopspring/decimal"
)

// MaxCallbackData is Telegram's limit on callback data, in bytes.
const MaxCallbackData = 64

const sep = "|"

// Callback prefixes: y|add|... accepts, n|add|... rejects.
const (
	PYes = "y" + sep
	PNo  = "n" + sep
)

var kindCodes = map[command.Name]string{
	command.Add:    "a",
	command.Edit:   "e",
	command.Delete: "d",
}

// Is reports whether k starts with prefix and returns the remainder.
func Is(k, prefix string) (string, bool) {
	if strings.HasPrefix(k, prefix) {
		return strings.TrimPrefix(k, prefix), true
	}
	return "", false
}

// Encode packs p into callback data: <y|n>|<kind>|<actor id>|<reason>|<dates>|<hours>.
// The actor name is not packed; the receiver takes it from the callback's sender.
func Encode(p action.Proposal, accept bool) (string, error) {
	code, ok := kindCodes[p.Kind]
	if !ok {
		return "", errs.New("proposal kind has no callback code").Arg("kind", p.Kind)
	}

	hours := ""
	if p.Hours.Valid {
		hours = p.Hours.Decimal.String()
	}
	fields := []string{code, p.ActorID, p.Reason, p.DateSpec, hours}
	for _, f := range fields {
		if strings.Contains(f, sep) {
			return "", errs.New("proposal field contains separator").Arg("field", f)
		}
	}

	prefix := PNo
	if accept {
		prefix = PYes
	}
	data := prefix + strings.Join(fields, sep)
	if len(data) > MaxCallbackData {
		return "", errs.New("proposal does not fit into callback data").Arg("len", len(data))
	}
	return data, nil
}

// Decode unpacks callback data produced by Encode.
func Decode(data string) (action.Proposal, bool, error) {
	accepted := true
	rest, ok := Is(data, PYes)
	if !ok {
		if rest, ok = Is(data, PNo); !ok {
			return action.Proposal{}, false, errs.Parse("unknown callback").Arg("data", data)
		}
		accepted = false
	}

	parts := strings.Split(rest, sep)
	if len(parts) != 5 {
		return action.Proposal{}, false, errs.Parse("malformed callback").Arg("data", data)
	}

	var kind command.Name
	for k, c := range kindCodes {
		if c == parts[0] {
			kind = k
		}
	}
	if kind == "" {
		return action.Proposal{}, false, errs.Parse("unknown proposal kind").Arg("data", data)
	}

	p := action.Proposal{
		Kind:     kind,
		ActorID:  parts[1],
		Reason:   parts[2],
		DateSpec: parts[3],
	}
	if parts[4] != "" {
		h, err := decimal.NewFromString(parts[4])
		if err != nil {
			return action.Proposal{}, false, errs.Parse("malformed hours").Arg("data", data).Wrap(err)
		}
		p.Hours = decimal.NewNullDecimal(h)
	}
	return p, accepted, nil
}

// Confirm builds the submit/cancel keyboard for p.
func Confirm(p action.Proposal) (tgbotapi.InlineKeyboardMarkup, error) {
	yes, err := Encode(p, true)
	if err != nil {
		return tgbotapi.InlineKeyboardMarkup{}, err
	}
	no, err := Encode(p, false)
	if err != nil {
		return tgbotapi.InlineKeyboardMarkup{}, err
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Submit", yes),
			tgbotapi.NewInlineKeyboardButtonData("❌ No", no),
		),
	), nil
}

// PromptText describes p for the user to confirm.
func PromptText(p action.Proposal) string {
	var b strings.Builder
	if p.Kind == command.Delete {
		b.WriteString("Delete these values from timereport?\n")
	} else {
		b.WriteString("Submit these values to timereport?\n")
	}
	fmt.Fprintf(&b, "\nUser: %s", p.ActorName)
	if p.Reason != "" {
		fmt.Fprintf(&b, "\nType: %s", p.Reason)
	}
	fmt.Fprintf(&b, "\nDate: %s", p.DateSpec)
	if p.Hours.Valid {
		fmt.Fprintf(&b, "\nHours: %s", p.Hours.Decimal)
	}
	return b.String()
}

// Outcome is the prompt text once the decision is taken.
func Outcome(prompt string, accepted bool) string {
	if accepted {
		return prompt + "\n\nSubmitted."
	}
	return prompt + "\n\nCanceled."
}
