package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"regexp"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"rock-id/api/internal/app"
	"rock-id/api/internal/config"
	"rock-id/api/internal/httpserver"
	"rock-id/api/internal/logger"
	"rock-id/api/internal/telegram"
)

var Version = "dev"

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.Server.Mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync(log)

	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		log.Fatal("missing required env TELEGRAM_BOT_TOKEN")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to build app", zap.Error(err))
	}
	defer a.Close()
	go a.RunRetention(ctx)

	bot, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		log.Fatal("telegram init failed", zap.Error(err))
	}
	bot.Debug = false

	r := &telegram.Router{
		Bot:     bot,
		Actions: a.Actions,
		Log:     log,
		Timeout: cfg.Server.RequestTimeout,
		MaxSize: cfg.Upload.MaxSize,
	}
	defer r.Wait()

	router := httpserver.NewRouter(cfg.Server.Mode, log, nil, httpserver.BuildInfo{Version: Version}, a.Health)

	if webhookURL := strings.TrimSpace(cfg.Telegram.WebhookURL); webhookURL != "" {
		if err := startWebhookMode(ctx, cfg.Server, router, bot, r, webhookURL, log); err != nil {
			log.Error("webhook mode stopped", zap.Error(err))
		}
		return
	}
	startPollingMode(ctx, cfg.Server, router, bot, r, log)
}

// ---------------- Modes -----------------

func startWebhookMode(ctx context.Context, srv config.ServerConfig, router *gin.Engine, bot *tgbotapi.BotAPI,
	r *telegram.Router, baseURL string, log *zap.Logger) error {
	// секретный путь вебхука
	path := "/webhook/" + shortHash(bot.Token)
	public := strings.TrimRight(baseURL, "/") + path

	wh, err := tgbotapi.NewWebhook(public)
	if err != nil {
		return err
	}
	wh.DropPendingUpdates = true
	if _, err := bot.Request(wh); err != nil {
		return err
	}

	router.POST(path, func(c *gin.Context) {
		upd, err := bot.HandleUpdate(c.Request)
		if err != nil {
			log.Warn("bad webhook update", zap.Error(err))
			c.Status(http.StatusBadRequest)
			return
		}
		r.HandleUpdate(ctx, *upd)
		c.Status(http.StatusOK)
	})

	log.Info("webhook listening", zap.String("addr", srv.Port), zap.String("path", path))
	return httpserver.Serve(ctx, srv, router, log)
}

func startPollingMode(ctx context.Context, srv config.ServerConfig, router *gin.Engine, bot *tgbotapi.BotAPI,
	r *telegram.Router, log *zap.Logger) {
	// healthz для платформы, хотя для polling он не обязателен
	go func() {
		if err := httpserver.Serve(ctx, srv, router, log); err != nil {
			log.Error("health server stopped", zap.Error(err))
		}
	}()

	runPolling(ctx, bot, log, func(upd tgbotapi.Update) {
		r.HandleUpdate(ctx, upd)
	})
}

// ---------------- Polling loop -----------------

var reRetryAfter = regexp.MustCompile(`(?i)retry after\s+(\d+)`)

func retryDelayFromError(err error) time.Duration {
	if err == nil {
		return 0
	}
	s := strings.ToLower(err.Error())
	if strings.Contains(s, "too many requests") { // HTTP 429 от Telegram
		if m := reRetryAfter.FindStringSubmatch(s); len(m) == 2 {
			if n, _ := strconv.Atoi(m[1]); n > 0 {
				return time.Duration(n) * time.Second
			}
		}
		return 3 * time.Second
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return 2 * time.Second
	}
	return 1 * time.Second
}

func runPolling(ctx context.Context, bot *tgbotapi.BotAPI, log *zap.Logger, handle func(tgbotapi.Update)) {
	offset := 0
	baseDelay := 1 * time.Second
	maxDelay := 15 * time.Second

	for {
		select {
		case <-ctx.Done():
			log.Info("polling: context cancelled")
			return
		default:
		}

		u := tgbotapi.NewUpdate(offset)
		u.Timeout = 30 // long polling timeout (sec)

		updates, err := bot.GetUpdates(u)
		if err != nil {
			d := min(max(retryDelayFromError(err), baseDelay), maxDelay)
			log.Warn("polling error", zap.Error(err), zap.Duration("retry_in", d))
			select {
			case <-ctx.Done():
				return
			case <-time.After(d):
			}
			continue
		}

		for _, upd := range updates {
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
			handle(upd)
		}

		if len(updates) == 0 {
			time.Sleep(200 * time.Millisecond)
		}
	}
}

func shortHash(s string) string {
	// FNV-1a: стабильный путь вебхука для токена
	h := uint64(1469598103934665603)
	const prime = 1099511628211
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime
	}
	return fmt.Sprintf("%016x", h)
}
