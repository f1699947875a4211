// Package sender delivers engine replies to Telegram chats.
package sender

import (
	"context"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/napryag/timereport_bot/pkg/domain/bot/keyboards"
	"github.com/napryag/timereport_bot/pkg/domain/timereport/action"
	"github.com/napryag/timereport_bot/pkg/utils/errs"
	"github.com/rs/zerolog"
)

// MaxMessageLength is Telegram's limit on the text of one message, in characters.
const MaxMessageLength = 4096

// BotAPI is the part of *tgbotapi.BotAPI the processor uses.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type Processor struct {
	config ProcessorConfig
	logger zerolog.Logger

	bot BotAPI
}

func New(config ProcessorConfig, logger zerolog.Logger, bot BotAPI) *Processor {
	if config.Retries < 1 {
		config.Retries = 1
	}
	return &Processor{
		config: config,
		logger: logger.With().Str("component", "sender").Logger(),
		bot:    bot,
	}
}

var _ action.Messenger = (*Processor)(nil)

// PostMessage sends plain text to the chat named by recipient. Text over
// MaxMessageLength goes out as several messages, split at line ends where possible.
func (p *Processor) PostMessage(ctx context.Context, recipient, text string) error {
	chatID, err := chatID(recipient)
	if err != nil {
		return err
	}
	for _, part := range splitText(text, MaxMessageLength) {
		if _, err := p.send(ctx, tgbotapi.NewMessage(chatID, part), p.config.Retries); err != nil {
			return err
		}
	}
	return nil
}

// PostInteractivePrompt sends the proposal with submit/cancel buttons. It is sent once:
// a retried prompt that was in fact delivered would show up twice.
func (p *Processor) PostInteractivePrompt(ctx context.Context, recipient string, prop action.Proposal) error {
	chatID, err := chatID(recipient)
	if err != nil {
		return err
	}
	kb, err := keyboards.Confirm(prop)
	if err != nil {
		return errs.New("failed to build confirmation keyboard").Wrap(err)
	}
	msg := tgbotapi.NewMessage(chatID, keyboards.PromptText(prop))
	msg.ReplyMarkup = kb
	_, err = p.send(ctx, msg, 1)
	return err
}

// AcknowledgeInteraction stops the button's loading indicator. It is not retried:
// Telegram only accepts the answer for a short while.
func (p *Processor) AcknowledgeInteraction(_ context.Context, callbackRef string) error {
	p.logger.Trace().Msg("In")
	defer p.logger.Trace().Msg("Out")

	if _, err := p.bot.Request(tgbotapi.NewCallback(callbackRef, "")); err != nil {
		return errs.New("failed to answer callback").Arg("callback", callbackRef).Wrap(err)
	}
	return nil
}

// ClosePrompt replaces the prompt text and drops its buttons so it can't be answered twice.
func (p *Processor) ClosePrompt(ctx context.Context, chatID int64, messageID int, text string) error {
	_, err := p.send(ctx, tgbotapi.NewEditMessageText(chatID, messageID, text), p.config.Retries)
	return err
}

func (p *Processor) send(ctx context.Context, c tgbotapi.Chattable, attempts int) (tgbotapi.Message, error) {
	p.logger.Trace().Msg("In")
	defer p.logger.Trace().Msg("Out")

	var err error
	var msg tgbotapi.Message

	for i := 0; i < attempts; i++ {
		if i != 0 {
			wait := p.config.Backoff << (i - 1)
			select {
			case <-ctx.Done():
				return tgbotapi.Message{}, errs.New("send canceled").Wrap(ctx.Err())
			case <-time.After(wait):
			}
		}

		msg, err = p.bot.Send(c)
		if err == nil {
			return msg, nil
		}
		p.logger.Warn().Err(err).Int("retry", i+1).Msg("send failed, retrying")
	}
	p.logger.Error().Err(err).Msg("send permanently failed")

	return tgbotapi.Message{}, errs.New("failed to send message").Wrap(err)
}

func chatID(recipient string) (int64, error) {
	id, err := strconv.ParseInt(recipient, 10, 64)
	if err != nil {
		return 0, errs.New("recipient is not a chat id").Arg("recipient", recipient).Wrap(err)
	}
	return id, nil
}

// splitText cuts text into parts of at most limit runes, preferring to cut after a newline.
func splitText(text string, limit int) []string {
	var parts []string
	for utf8.RuneCountInString(text) > limit {
		cut := len(text)
		n := 0
		for i := range text {
			if n == limit {
				cut = i
				break
			}
			n++
		}
		if nl := strings.LastIndexByte(text[:cut], '\n'); nl > 0 {
			parts = append(parts, text[:nl])
			text = text[nl+1:]
			continue
		}
		parts = append(parts, text[:cut])
		text = text[cut:]
	}
	return append(parts, text)
}
