package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/napryag/timereport_bot/pkg/domain/bot/receiver"
	"github.com/napryag/timereport_bot/pkg/domain/bot/receiver/config"
	"github.com/napryag/timereport_bot/pkg/domain/bot/sender"
	"github.com/napryag/timereport_bot/pkg/domain/timereport/action"
	"github.com/napryag/timereport_bot/pkg/repository/model"
	"github.com/napryag/timereport_bot/pkg/repository/store"
	"github.com/napryag/timereport_bot/pkg/repository/workcalendar"
	"github.com/napryag/timereport_bot/pkg/utils/errs"
	"github.com/rs/zerolog"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()

	cmd := "serve"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	cfg, err := config.LoadConfig(os.Getenv("BOT_CONFIG"))
	if err != nil {
		logger.Err(errs.New("failed to load config").Wrap(err)).Msg("config init")
		os.Exit(1)
	}
	logger = logger.Level(cfg.Level())

	// Контекст, завершающийся по SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case "migrate":
		if err := store.Migrate(ctx, cfg.PostgreAddr); err != nil {
			logger.Error().Err(err).Msg("migrate")
			os.Exit(1)
		}
		logger.Info().Msg("migrations applied")
	case "serve":
		if err := serve(ctx, cfg, logger); err != nil {
			logger.Error().Err(err).Msg("serve")
			os.Exit(1)
		}
	default:
		logger.Error().Str("command", cmd).Msg("unknown command, use serve or migrate")
		os.Exit(2)
	}
}

func serve(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	engineCfg, err := cfg.EngineConfig()
	if err != nil {
		return err
	}
	senderCfg := cfg.SenderConfig()
	if err := senderCfg.Validate(); err != nil {
		return err
	}

	repo, err := store.NewRepo(ctx, cfg.PostgreAddr)
	if err != nil {
		return err
	}
	defer repo.Close()

	var cal model.WorkCalendar
	if opts, ok := cfg.CalendarOptions(); ok {
		cal = workcalendar.New(opts, logger)
	}

	bot, err := tgbotapi.NewBotAPIWithClient(cfg.BotToken, tgbotapi.APIEndpoint, cfg.TelegramClient())
	if err != nil {
		return errs.New("create bot api").Wrap(err)
	}
	bot.Debug = false
	logger.Info().Str("bot", bot.Self.UserName).Msg("authorized")

	out := sender.New(senderCfg, logger, bot)
	engine := action.New(engineCfg, repo, cal, out, logger)
	in := receiver.New(engine, out, logger)

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.HTTPPort),
		Handler:           newHealthRouter(repo, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("health server")
		}
	}()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = config.PollTimeout
	updates := bot.GetUpdatesChan(u)

	go func() {
		<-ctx.Done()
		logger.Info().Msg("shutting down bot")
		// Останавливаем лонг-поллинг -> канал updates закроется, Run завершится
		bot.StopReceivingUpdates()
	}()

	in.Run(ctx, updates)

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("health server shutdown")
	}
	logger.Info().Msg("bot stopped")
	return nil
}
