package commands

// Command to run the full bot
// Starts the listing monitor, the Telegram command handler, the health server and keep-alive
// Implements graceful shutdown for proper termination

import (
	"context"
	"fmt"
	"html"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"
	"xrpl-listing-bot/bots_monitor"
	"xrpl-listing-bot/internal/clients_api/listings"
	"xrpl-listing-bot/internal/clients_api/telegram"
	"xrpl-listing-bot/internal/infra/health"
	logging "xrpl-listing-bot/internal/infra/log"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Run the listing bot (polling + Telegram alerts)",
	Long:  `Run the complete bot: poll every enabled listing source, alert on new tokens, answer chat commands and serve the health check.`,
	RunE:  runBot,
}

func runBot(cmd *cobra.Command, args []string) error {
	if err := cfg.ValidateTelegram(); err != nil {
		logging.LogError("Invalid Telegram config", zap.Error(err))
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	det, err := openDetector(ctx, cfg)
	if err != nil {
		logging.LogError("Failed to open detector", zap.Error(err))
		return err
	}
	defer det.Close()

	sources, err := listings.BuildSources(cfg)
	if err != nil {
		return err
	}

	bot, err := telegram.NewBot(cfg.Telegram.BotToken)
	if err != nil {
		logging.LogError("Failed to initialize bot", zap.Error(err))
		return err
	}
	logging.LogSuccess("Bot authorized", zap.String("username", bot.Self.UserName))

	notifier, err := telegram.NewNotifier(bot, cfg.Telegram.ChatID, telegram.Options{
		MessagesPerSecond: cfg.Telegram.MessagesPerSecond,
		Retries:           cfg.Telegram.SendRetries,
	})
	if err != nil {
		return err
	}

	monitor := bots_monitor.NewListingMonitor(sources, det, notifier, cfg.PollInterval())

	if cfg.Telegram.StartupMessage {
		if err := notifier.SendText(ctx, startupText(sources)); err != nil {
			logging.LogWarn("Failed to send startup message", zap.Error(err))
		}
	}

	var wg sync.WaitGroup
	startMonitors(ctx, &wg, monitor, bot, notifier.ChatID())

	logging.LogSuccess("Bot is running", zap.String("status", "active"), zap.Int("sources", len(sources)))

	<-ctx.Done()
	logging.LogInfo("Shutdown signal received, gracefully stopping all monitors...")

	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.LogSuccess("All monitors stopped gracefully")
	case <-time.After(10 * time.Second):
		logging.LogWarn("Timeout waiting for monitors to stop, forcing shutdown")
	}

	return nil
}

func startMonitors(ctx context.Context, wg *sync.WaitGroup, monitor *bots_monitor.ListingMonitor, bot bots_monitor.UpdatesBot, chatID int64) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		monitor.Run(ctx)
	}()

	if cfg.Telegram.Commands {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bots_monitor.RunCommandHandler(ctx, bot, chatID, monitor)
		}()
	}

	if cfg.HTTP.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := health.Serve(ctx, cfg.HTTP.Port); err != nil {
				logging.LogError("Health server stopped with error", zap.Error(err))
			}
		}()
	}

	if cfg.Keepalive.URL != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bots_monitor.RunKeepaliveMonitor(ctx, cfg.Keepalive.URL, cfg.KeepaliveInterval())
		}()
	}
}

func startupText(sources []listings.Source) string {
	titles := make([]string, 0, len(sources))
	for _, src := range sources {
		titles = append(titles, html.EscapeString(src.Title()))
	}
	return fmt.Sprintf("✅ <b>XRPL listing bot started</b>\nWatching: %s\nPoll interval: %s",
		strings.Join(titles, ", "), cfg.PollInterval())
}
