// Package action turns parsed commands into replies, and runs the propose/confirm
// protocol for actions that change the time report.
package action

import (
	"context"
	"time"

	"github.com/napryag/timereport_bot/pkg/domain/timereport/calendar"
	"github.com/napryag/timereport_bot/pkg/domain/timereport/command"
	"github.com/napryag/timereport_bot/pkg/domain/timereport/lockgate"
	"github.com/napryag/timereport_bot/pkg/repository/model"
	"github.com/napryag/timereport_bot/pkg/utils/errs"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Config is the engine's immutable configuration.
type Config struct {
	DateLayout   string
	Location     *time.Location
	ValidReasons []string
	// DefaultHours is used as is, zero included, when a command carries no hours.
	DefaultHours decimal.Decimal
	// MinHours and MaxHours bound the hours argument, both inclusive. Invalid means unbounded.
	MinHours decimal.NullDecimal
	MaxHours decimal.NullDecimal
	// BackendTimeout bounds every single backend call. Zero disables the bound.
	BackendTimeout time.Duration
	// Workers limits concurrent per-day writes.
	Workers int
}

// Messenger delivers replies to the chat platform.
type Messenger interface {
	PostMessage(ctx context.Context, recipient, text string) error
	PostInteractivePrompt(ctx context.Context, recipient string, p Proposal) error
	AcknowledgeInteraction(ctx context.Context, callbackRef string) error
}

// Doc is the usage documentation and argument contract of an action.
type Doc struct {
	Short string
	Usage string
	// MinArgs and MaxArgs bound the argument count; MaxArgs < 0 means unbounded.
	MinArgs int
	MaxArgs int
}

// Action is one command kind.
type Action interface {
	Name() command.Name
	Doc() Doc
	Perform(ctx context.Context, cmd command.Command) Reply
}

// Confirmable is an action that proposes before it writes.
type Confirmable interface {
	Action
	OnDecision(ctx context.Context, d Decision) Reply
}

// Engine dispatches commands and decisions. It holds no per-request state.
type Engine struct {
	cfg     Config
	events  model.EventStore
	locks   model.LockStore
	cal     model.WorkCalendar
	msg     Messenger
	dates   calendar.Resolver
	gate    *lockgate.Gate
	logger  zerolog.Logger
	actions map[command.Name]Action
}

// New builds the engine and its action table. cal may be nil, in which case listings
// carry no worked-hours summary.
func New(cfg Config, repo model.Repo, cal model.WorkCalendar, msg Messenger, logger zerolog.Logger) *Engine {
	if cfg.DateLayout == "" {
		cfg.DateLayout = calendar.DefaultLayout
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}

	e := &Engine{
		cfg:    cfg,
		events: repo,
		locks:  repo,
		cal:    cal,
		msg:    msg,
		dates:  calendar.NewResolver(cfg.DateLayout, cfg.Location),
		gate:   lockgate.New(repo, logger),
		logger: logger.With().Str("component", "action").Logger(),
	}
	e.register(
		&helpAction{e: e},
		&addAction{e: e},
		&editAction{e: e},
		&deleteAction{e: e},
		&listAction{e: e},
		&lockAction{e: e},
		&unsupportedAction{e: e},
	)
	return e
}

func (e *Engine) register(actions ...Action) {
	e.actions = make(map[command.Name]Action, len(actions))
	for _, a := range actions {
		e.actions[a.Name()] = a
	}
}

// SetClock replaces the clock used to resolve "today".
func (e *Engine) SetClock(now func() time.Time) {
	e.dates.Now = now
}

// Lookup returns the action registered under name, or Unsupported.
func (e *Engine) Lookup(name command.Name) Action {
	if a, ok := e.actions[name]; ok {
		return a
	}
	return e.actions[command.Unsupported]
}

// Perform runs cmd to a reply. It checks the argument contract first; any failure ends
// in a reply, never in an error.
func (e *Engine) Perform(ctx context.Context, cmd command.Command) Reply {
	a := e.Lookup(cmd.Action)
	doc := a.Doc()

	n := len(cmd.Arguments)
	if n < doc.MinArgs || (doc.MaxArgs >= 0 && n > doc.MaxArgs) {
		e.logger.Debug().Str("action", string(a.Name())).Int("args", n).Msg("wrong number of arguments")
		return textReply("Wrong number of arguments for " + string(a.Name()) + ". Usage:\n" + doc.Usage)
	}
	return a.Perform(ctx, cmd)
}

// Decide dispatches d back into the action named by its proposal.
func (e *Engine) Decide(ctx context.Context, d Decision) Reply {
	if d.ResponderID != "" && d.ResponderID != d.Proposal.ActorID {
		e.logger.Warn().
			Str("responder", d.ResponderID).
			Str("actor", d.Proposal.ActorID).
			Msg("decision from another user")
		return textReply("This confirmation belongs to another user.")
	}

	c, ok := e.Lookup(d.Proposal.Kind).(Confirmable)
	if !ok {
		e.logger.Warn().Str("kind", string(d.Proposal.Kind)).Msg("decision for non-confirmable action")
		return textReply("Unsupported confirmation: " + string(d.Proposal.Kind))
	}
	return c.OnDecision(ctx, d)
}

// HandleCommand parses the inbound text, performs it and delivers the reply.
// The returned error only reports a failed delivery.
func (e *Engine) HandleCommand(ctx context.Context, in CommandEvent) error {
	e.logger.Trace().Msg("In")
	defer e.logger.Trace().Msg("Out")

	cmd := command.Parse(in.Text, in.ActorID, in.ActorName)
	e.logger.Info().
		Str("action", string(cmd.Action)).
		Str("user_id", cmd.ActorID).
		Strs("args", cmd.Arguments).
		Msg("command")

	recipient := in.Recipient
	if recipient == "" {
		recipient = in.ActorID
	}
	return e.deliver(ctx, recipient, e.Perform(ctx, cmd))
}

// HandleDecision acknowledges the interaction, runs the decision and delivers the outcome.
func (e *Engine) HandleDecision(ctx context.Context, d Decision) error {
	e.logger.Trace().Msg("In")
	defer e.logger.Trace().Msg("Out")

	if d.CallbackRef != "" {
		if err := e.msg.AcknowledgeInteraction(ctx, d.CallbackRef); err != nil {
			e.logger.Warn().Err(err).Msg("acknowledge interaction")
		}
	}

	e.logger.Info().
		Str("kind", string(d.Proposal.Kind)).
		Str("user_id", d.Proposal.ActorID).
		Bool("accepted", d.Accepted).
		Msg("decision")

	recipient := d.Recipient
	if recipient == "" {
		recipient = d.Proposal.ActorID
	}
	return e.deliver(ctx, recipient, e.Decide(ctx, d))
}

func (e *Engine) deliver(ctx context.Context, recipient string, r Reply) error {
	if r.Proposal != nil {
		err := e.msg.PostInteractivePrompt(ctx, recipient, *r.Proposal)
		if err == nil {
			return nil
		}
		e.logger.Error().Err(err).Msg("post confirmation prompt")
		r = textReply("Could not send the confirmation, please try again.")
	}
	if err := e.msg.PostMessage(ctx, recipient, r.Text); err != nil {
		return errs.Backend("failed to deliver reply").Arg("recipient", recipient).Wrap(err)
	}
	return nil
}

// call bounds a single backend call by BackendTimeout.
func (e *Engine) call(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.cfg.BackendTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.cfg.BackendTimeout)
}

// fail logs err by kind and turns it into the user-facing reply.
func (e *Engine) fail(name command.Name, userID string, err error) Reply {
	ev := e.logger.Debug()
	if k := errs.KindOf(err); k == errs.KindBackend || k == errs.KindInternal {
		ev = e.logger.Error()
	}
	ev.Err(err).Str("action", string(name)).Str("user_id", userID).Msg("action failed")
	return textReply(errs.MessageOf(err, "Something went wrong, please try again."))
}
