// Package receiver turns Telegram updates into engine events.
package receiver

import (
	"context"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/napryag/timereport_bot/pkg/domain/bot/keyboards"
	"github.com/napryag/timereport_bot/pkg/domain/timereport/action"
	"github.com/rs/zerolog"
)

// Handler is what the engine exposes to transports.
type Handler interface {
	HandleCommand(ctx context.Context, in action.CommandEvent) error
	HandleDecision(ctx context.Context, d action.Decision) error
}

// Prompts closes a confirmation prompt once it is answered.
type Prompts interface {
	AcknowledgeInteraction(ctx context.Context, callbackRef string) error
	ClosePrompt(ctx context.Context, chatID int64, messageID int, text string) error
}

type Receiver struct {
	handler Handler
	prompts Prompts
	logger  zerolog.Logger
}

func New(handler Handler, prompts Prompts, logger zerolog.Logger) *Receiver {
	return &Receiver{
		handler: handler,
		prompts: prompts,
		logger:  logger.With().Str("component", "receiver").Logger(),
	}
}

// Run handles updates until the channel closes, each in its own goroutine, and
// waits for the in-flight ones before returning.
func (r *Receiver) Run(ctx context.Context, updates <-chan tgbotapi.Update) {
	var wg sync.WaitGroup
	defer wg.Wait()

	for update := range updates {
		wg.Add(1)
		go func(u tgbotapi.Update) {
			defer wg.Done()
			r.Handle(ctx, u)
		}(update)
	}
}

// Handle dispatches a single update.
func (r *Receiver) Handle(ctx context.Context, update tgbotapi.Update) {
	r.logger.Trace().Msg("In")
	defer r.logger.Trace().Msg("Out")

	switch {
	case update.Message != nil:
		r.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		r.handleCallback(ctx, update.CallbackQuery)
	}
}

func (r *Receiver) handleMessage(ctx context.Context, m *tgbotapi.Message) {
	if m.From == nil || m.From.IsBot || strings.TrimSpace(m.Text) == "" {
		return
	}
	in := action.CommandEvent{
		Text:      m.Text,
		ActorID:   strconv.FormatInt(m.From.ID, 10),
		ActorName: displayName(m.From),
		Recipient: strconv.FormatInt(m.Chat.ID, 10),
	}
	if err := r.handler.HandleCommand(ctx, in); err != nil {
		r.logger.Error().Err(err).Str("user_id", in.ActorID).Msg("handle command")
	}
}

func (r *Receiver) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	p, accepted, err := keyboards.Decode(cq.Data)
	if err != nil {
		r.logger.Warn().Err(err).Msg("invalid callback data")
		if err := r.prompts.AcknowledgeInteraction(ctx, cq.ID); err != nil {
			r.logger.Warn().Err(err).Msg("acknowledge interaction")
		}
		return
	}

	responder := strconv.FormatInt(cq.From.ID, 10)
	// Only the actor's own answer is trusted to carry their name.
	if responder == p.ActorID {
		p.ActorName = displayName(cq.From)
	}

	d := action.Decision{
		Proposal:    p,
		Accepted:    accepted,
		CallbackRef: cq.ID,
		ResponderID: responder,
		Recipient:   responder,
	}

	if m := cq.Message; m != nil {
		d.Recipient = strconv.FormatInt(m.Chat.ID, 10)
		if responder == p.ActorID {
			text := keyboards.Outcome(keyboards.PromptText(p), accepted)
			if err := r.prompts.ClosePrompt(ctx, m.Chat.ID, m.MessageID, text); err != nil {
				r.logger.Warn().Err(err).Msg("close prompt")
			}
		}
	}

	if err := r.handler.HandleDecision(ctx, d); err != nil {
		r.logger.Error().Err(err).Str("user_id", responder).Msg("handle decision")
	}
}

func displayName(u *tgbotapi.User) string {
	if u.UserName != "" {
		return u.UserName
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}
