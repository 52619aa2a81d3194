package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/optprep/casebot/internal/config"
	"github.com/optprep/casebot/internal/delivery/telegram"
	"github.com/optprep/casebot/internal/infra/postgres"
	pgrepo "github.com/optprep/casebot/internal/infra/postgres/repository"
	"github.com/optprep/casebot/internal/ledger"
	"github.com/optprep/casebot/internal/logger"
	"github.com/optprep/casebot/internal/render"
	"github.com/optprep/casebot/internal/repository"
	"github.com/optprep/casebot/internal/service"
	"github.com/optprep/casebot/internal/upload"
)

// newStartCmd builds the subcommand that runs the bot.
func newStartCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBot(cmd.Context(), *configPath)
		},
	}
}

func runBot(ctx context.Context, configPath string) error {
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	bot, err := tgbotapi.NewBotAPI(cfg.TelegramAPIToken)
	if err != nil {
		return fmt.Errorf("init telegram bot: %w", err)
	}
	log.Info("authorized on telegram", zap.String("account", bot.Self.UserName))

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	source, err := openCaseStore(cfg.Cases.Path, log)
	if err != nil {
		return fmt.Errorf("open case store: %w", err)
	}

	var (
		usage  service.UsageLedger
		scores service.ScoreLedger
		daily  service.DailyLedger
	)
	switch cfg.Data.Backend {
	case "postgres":
		dsn, err := cfg.DB.DSN()
		if err != nil {
			return err
		}
		pool, err := postgres.NewPool(ctx, dsn, postgres.PoolConfig{
			MaxConns:        int32(cfg.DB.MaxConnections),
			MaxConnLifetime: cfg.DB.MaxConnLifetime,
		})
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()

		if err := postgres.Migrate(ctx, pool); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		usage = pgrepo.NewUsageRepository(pool)
		scores = pgrepo.NewScoreRepository(pool)
		daily = pgrepo.NewDailyRepository(pool)
	default:
		usage = ledger.NewUsageStore(filepath.Join(cfg.Data.Dir, "used_cases.json"))
		scores = ledger.NewScoreStore(filepath.Join(cfg.Data.Dir, "scores.json"))
		daily = ledger.NewDailyStore(filepath.Join(cfg.Data.Dir, "daily_counts.json"))
	}

	renderer, err := render.NewPDFRenderer(filepath.Join(cfg.Data.Dir, "documents"))
	if err != nil {
		return fmt.Errorf("init renderer: %w", err)
	}

	var uploader service.Uploader
	if cfg.Storage.Bucket != "" {
		s3up, err := upload.NewS3Uploader(ctx, upload.Config{
			Region:        cfg.Storage.Region,
			Bucket:        cfg.Storage.Bucket,
			Prefix:        cfg.Storage.Prefix,
			Endpoint:      cfg.Storage.Endpoint,
			PublicBaseURL: cfg.Storage.PublicBaseURL,
		})
		if err != nil {
			return fmt.Errorf("init uploader: %w", err)
		}
		uploader = s3up
	} else {
		log.Warn("storage bucket not configured, documents stay local")
	}

	responders, err := cfg.Quiz.ResponderMap()
	if err != nil {
		return fmt.Errorf("parse responders: %w", err)
	}

	handler := telegram.NewHandler(bot, log, cfg.Quiz.Groups)

	selector := service.NewCaseSelector(source, usage, log)
	quiz := service.NewQuizService(
		selector,
		usage,
		scores,
		daily,
		renderer,
		uploader,
		handler,
		log,
		service.Options{
			QuestionDelay: cfg.Quiz.QuestionDelay,
			NextCaseDelay: cfg.Quiz.NextCaseDelay,
			Responders:    responders,
		},
	)
	handler.SetQuizService(quiz)

	digest := service.NewDigestService(daily, handler, cfg.Quiz.Groups, log)
	go digest.Start(ctx)

	if err := handler.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	log.Info("shutdown complete")
	return nil
}

// openCaseStore picks the store by what the path points at: a directory is
// re-scanned on every selection, a file is loaded once.
func openCaseStore(path string, log *zap.Logger) (service.CaseSource, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return repository.NewDirCaseStore(path, log)
	}
	return repository.NewFileCaseStore(path, log)
}
