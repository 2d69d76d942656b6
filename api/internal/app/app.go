package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"rock-id/api/internal/action"
	"rock-id/api/internal/catalog"
	"rock-id/api/internal/config"
	"rock-id/api/internal/events"
	"rock-id/api/internal/flow"
	"rock-id/api/internal/flow/gemini"
	"rock-id/api/internal/flow/openai"
	"rock-id/api/internal/store"
)

// App: общая сборка зависимостей для cmd/rockid, cmd/bot и cmd/console.
type App struct {
	Config    *config.Config
	Log       *zap.Logger
	Engines   *flow.Engines
	Actions   *action.Set
	History   *store.History
	Catalog   *catalog.Catalog
	Publisher events.Publisher

	db    *sql.DB
	redis *redis.Client
	repo  *store.IdentificationRepo
}

func Build(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	a := &App{Config: cfg, Log: log}

	a.Engines = BuildEngines(cfg.LLM)
	if len(a.Engines.Available()) == 0 {
		return nil, errors.New("no llm configured")
	}

	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return nil, err
	}
	a.Catalog = cat

	if dsn := resolveDSN(cfg.Database.URL); dsn != "" {
		if err := a.openDB(ctx, dsn); err != nil {
			a.Close()
			return nil, err
		}
	} else {
		log.Warn("database is not configured, history is kept in cache only")
	}

	var cache *store.RecordCache
	if cfg.Redis.Addr != "" {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		cache = store.NewRecordCache(a.redis, cfg.Redis.TTL)
		if err := cache.Ping(ctx); err != nil {
			log.Warn("redis connection failed, cache disabled", zap.Error(err))
			_ = a.redis.Close()
			a.redis, cache = nil, nil
		} else {
			log.Info("redis connected successfully", zap.String("addr", cfg.Redis.Addr))
		}
	}
	a.History = store.NewHistory(a.repo, cache, log)

	pub, err := events.NewMQTTPublisher(cfg.MQTT, log)
	if err != nil {
		log.Warn("mqtt connection failed, events disabled", zap.Error(err))
		pub = events.Nop{}
	}
	a.Publisher = pub

	a.Actions, err = action.NewSet(a.Engines, action.Deps{
		Logger:    log,
		Recorder:  a.History,
		Publisher: a.Publisher,
		Catalog:   a.Catalog,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// BuildEngines создаёт только те движки, для которых задан ключ.
func BuildEngines(cfg config.LLMConfig) *flow.Engines {
	e := &flow.Engines{Default: strings.ToLower(strings.TrimSpace(cfg.Default))}
	if strings.TrimSpace(cfg.GeminiAPIKey) != "" {
		e.Gemini = gemini.New(cfg.GeminiAPIKey, cfg.GeminiModel)
	}
	if strings.TrimSpace(cfg.OpenAIAPIKey) != "" {
		o := openai.New(cfg.OpenAIAPIKey, cfg.OpenAIModel)
		if cfg.OpenAIBaseURL != "" {
			o.BaseURL = strings.TrimRight(cfg.OpenAIBaseURL, "/")
		}
		e.OpenAI = o
	}
	// дефолтный движок не настроен: берём первый доступный
	if _, err := e.GetEngine(e.Default); err != nil {
		e.Default = ""
	}
	return e
}

func (a *App) openDB(ctx context.Context, dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("sql.Open: %w", err)
	}
	db.SetMaxOpenConns(a.Config.Database.MaxOpenConns)
	db.SetMaxIdleConns(a.Config.Database.MaxOpenConns)
	db.SetConnMaxLifetime(a.Config.Database.ConnMaxLifetime)

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("db.Ping: %w", err)
	}
	a.db = db
	a.repo = store.NewIdentificationRepo(db)
	if err := a.repo.EnsureSchema(pctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	a.Log.Info("db connected", zap.String("dsn", safeDSNSummary(dsn)))
	return nil
}

// Health пингует БД и Redis, если они подключены.
func (a *App) Health(ctx context.Context) error {
	if a.db != nil {
		if err := a.db.PingContext(ctx); err != nil {
			return fmt.Errorf("db: %w", err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

// RunRetention раз в час удаляет записи старше database.retention.
func (a *App) RunRetention(ctx context.Context) {
	if a.repo == nil || a.Config.Database.Retention <= 0 {
		return
	}
	t := time.NewTicker(time.Hour)
	defer t.Stop()
	for {
		n, err := a.repo.PurgeOlderThan(ctx, a.Config.Database.Retention)
		if err != nil {
			a.Log.Warn("purge identifications failed", zap.Error(err))
		} else if n > 0 {
			a.Log.Info("purged old identifications", zap.Int64("rows", n))
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

func (a *App) Close() {
	if a.Publisher != nil {
		a.Publisher.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}

// resolveDSN: явный URL, иначе POSTGRES_* / PG* из окружения, если задан хотя бы PGHOST.
func resolveDSN(explicit string) string {
	if v := strings.TrimSpace(explicit); v != "" {
		return v
	}
	host := strings.TrimSpace(os.Getenv("PGHOST"))
	if host == "" {
		return ""
	}
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(getenvDefault("POSTGRES_USER", "rockid"), os.Getenv("POSTGRES_PASSWORD")),
		Host:     net.JoinHostPort(host, getenvDefault("PGPORT", "5432")),
		Path:     "/" + getenvDefault("POSTGRES_DB", "rockid"),
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

func getenvDefault(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func safeDSNSummary(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "dsn: parse error"
	}
	user := u.User.Username()
	host := u.Host
	port := ""
	if h, p, err := net.SplitHostPort(u.Host); err == nil {
		host, port = h, p
	}
	db := strings.TrimPrefix(u.Path, "/")
	if port == "" {
		return fmt.Sprintf("host=%s db=%s user=%s", host, db, user)
	}
	return fmt.Sprintf("host=%s port=%s db=%s user=%s", host, port, db, user)
}
