package protocal

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"support-desk/configs"
	httpAdapter "support-desk/internal/adapters/input/http"
	"support-desk/internal/adapters/output/documents"
	"support-desk/internal/adapters/output/gormstore"
	lineAdapter "support-desk/internal/adapters/output/line"
	"support-desk/internal/adapters/output/lmstudio"
	"support-desk/internal/adapters/output/memory"
	openaiAdapter "support-desk/internal/adapters/output/openai"
	"support-desk/internal/application"
	"support-desk/internal/domain"
	"support-desk/internal/observability"
	"support-desk/internal/ports/output"
	gormdriver "support-desk/pkg/database_driver/gorm"
	redisstore "support-desk/pkg/storage/redis"

	swagger "github.com/arsmn/fiber-swagger/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/sirupsen/logrus"
)

const rateLimitMessage = "Too many requests from this IP, please try again later."

type flags struct {
	ENV        string
	ConfigPath string
}

// server holds the fiber app and everything that must be released on shutdown
type server struct {
	app     *fiber.App
	closers []func()
}

func (s *server) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// ServeHTTP func
func ServeHTTP() error {
	var f flags
	flag.StringVar(&f.ENV, "env", "", "the environment to use")
	flag.StringVar(&f.ConfigPath, "config", "./configs", "directory holding config.yaml")
	flag.Parse()

	if err := configs.InitViper(f.ConfigPath, f.ENV); err != nil {
		return err
	}
	cfg := configs.GetViper()
	setupLogging(cfg.App)
	logrus.Infof("Starting support desk in %s mode", cfg.App.Env)

	srv, err := newServer(cfg)
	if err != nil {
		return err
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		logrus.Info("Gracefull shut down ...")
		if err := srv.app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logrus.Errorf("Error when shutdown server: %v", err)
		}
	}()

	logrus.Infof("Listening on port: %s", cfg.App.Port)
	err = srv.app.Listen(":" + cfg.App.Port)
	srv.close()
	return err
}

func setupLogging(app configs.App) {
	if !app.IsDevelopment() {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
	if app.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
}

// newServer wires the hexagonal layers from configuration
func newServer(cfg *configs.Config) (*server, error) {
	srv := &server{}

	// Output adapters
	store, err := openStore(cfg.Database, srv)
	if err != nil {
		srv.close()
		return nil, err
	}
	docs := documents.LoadOrEmpty(cfg.Docs.Path)
	metrics := observability.NewMetrics("support_desk")

	resolverCfg := application.ResolverConfig{
		Mode:          cfg.LLM.Mode,
		Provider:      cfg.LLM.Provider,
		Credential:    domain.Credential(cfg.LLM.APIKey),
		BaseURL:       cfg.LLM.BaseURL,
		Model:         cfg.LLM.Model,
		MaxTokens:     cfg.LLM.MaxTokens,
		Temperature:   &cfg.LLM.Temperature,
		HistoryWindow: cfg.LLM.HistoryWindow,
		Timeout:       cfg.LLM.Timeout,
	}
	strategy, err := application.SelectStrategy(resolverCfg)
	if err != nil {
		srv.close()
		return nil, err
	}
	var completion output.CompletionClient
	if strategy == application.StrategyExternal {
		completion, err = newCompletionClient(cfg.LLM)
		if err != nil {
			srv.close()
			return nil, err
		}
	}
	logrus.Infof("Reply strategy: %s (%d documents)", strategy, docs.Len())

	// Application services
	resolver, err := application.NewReplyResolver(resolverCfg, docs, completion, metrics)
	if err != nil {
		srv.close()
		return nil, err
	}
	chat := application.NewChatService(store, resolver, cfg.LLM.HistoryWindow, metrics)

	// Input adapters
	app := fiber.New(fiber.Config{
		AppName:               "Support Desk",
		DisableStartupMessage: true,
		ErrorHandler:          httpAdapter.ErrorHandler(cfg.App.IsDevelopment()),
	})
	srv.app = app

	app.Use(recover.New(recover.Config{EnableStackTrace: cfg.App.IsDevelopment()}))
	app.Use(requestid.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))
	app.Use(logger.New(logger.Config{
		Format: "${time} | ${status} | ${latency} | ${method} ${path}\n",
	}))

	limiterStorage, err := newLimiterStorage(cfg.Redis, srv)
	if err != nil {
		srv.close()
		return nil, err
	}

	hdl := httpAdapter.New(chat, store, cfg.App.IsDevelopment())

	app.Get("/swagger/*", swagger.HandlerDefault)
	app.Get("/health", hdl.HealthCheck)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	api := app.Group("/api", newRateLimiter(cfg.RateLimit, limiterStorage))
	{
		api.Post("/chat", hdl.Chat)
		api.Get("/conversations/:sessionId", hdl.GetConversation)
		api.Get("/sessions", hdl.ListSessions)
		api.Post("/sessions", hdl.StartSession)
	}

	if cfg.Line.LineEnabled() {
		lineClient, err := lineAdapter.NewLineClientAdapter(cfg.Line.ChannelToken, "")
		if err != nil {
			srv.close()
			return nil, err
		}
		lineWebhookSrv := application.NewLineWebhookService(lineClient, chat)
		lineWebhookHdl := httpAdapter.NewLineWebhookHandler(lineWebhookSrv, cfg.Line.ChannelSecret)

		webhook := app.Group("/webhook")
		{
			webhook.Post("/line", lineWebhookHdl.HandleWebhook)
		}
	}

	if cfg.App.StaticDir != "" {
		serveClient(app, cfg.App.StaticDir)
	}

	return srv, nil
}

func openStore(cfg configs.Database, srv *server) (output.ConversationStore, error) {
	switch strings.ToLower(cfg.Driver) {
	case "memory":
		logrus.Warn("Using in-memory conversation store, history is lost on restart")
		return memory.NewConversationStore(), nil
	case "postgres":
		db, err := gormdriver.ConnectToPostgreSQL(cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.DbName, cfg.SSLMode)
		if err != nil {
			return nil, err
		}
		srv.closers = append(srv.closers, func() { gormdriver.Disconnect(db.Conn) })
		return gormstore.NewConversationRepository(db.Conn)
	case "sqlite", "":
		db, err := gormdriver.ConnectToSQLite(cfg.Path)
		if err != nil {
			return nil, err
		}
		srv.closers = append(srv.closers, func() { gormdriver.Disconnect(db.Conn) })
		return gormstore.NewConversationRepository(db.Conn)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

func newCompletionClient(cfg configs.LLM) (output.CompletionClient, error) {
	switch strings.ToLower(cfg.Provider) {
	case application.ProviderLMStudio:
		return lmstudio.NewLMStudioClientAdapter(lmstudio.Config{
			BaseURL:    cfg.BaseURL,
			APIKey:     domain.Credential(cfg.APIKey),
			Model:      cfg.Model,
			Timeout:    cfg.Timeout,
			MaxRetries: cfg.MaxRetries,
		})
	case application.ProviderOpenAI, "":
		return openaiAdapter.NewClientAdapter(openaiAdapter.Config{
			APIKey:     domain.Credential(cfg.APIKey),
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Timeout:    cfg.Timeout,
			MaxRetries: cfg.MaxRetries,
		}), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

// newLimiterStorage returns nil when limiter state should stay in memory
func newLimiterStorage(cfg configs.Redis, srv *server) (fiber.Storage, error) {
	if cfg.Addr == "" {
		return nil, nil
	}
	storage, err := redisstore.New(redisstore.Config{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		Prefix:   "support-desk:limiter:",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	srv.closers = append(srv.closers, func() {
		if err := storage.Close(); err != nil {
			logrus.Errorf("Error closing redis: %v", err)
		}
	})
	return storage, nil
}

func newRateLimiter(cfg configs.RateLimit, storage fiber.Storage) fiber.Handler {
	limiterCfg := limiter.Config{
		Max:               cfg.Max,
		Expiration:        cfg.Window,
		LimiterMiddleware: limiter.SlidingWindow{},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(httpAdapter.ErrorResponse{Error: rateLimitMessage})
		},
	}
	if storage != nil {
		limiterCfg.Storage = storage
	}
	return limiter.New(limiterCfg)
}

// serveClient serves the built web client and falls back to index.html for client side routes
func serveClient(app *fiber.App, dir string) {
	app.Static("/", dir)
	index := filepath.Join(dir, "index.html")
	app.Get("*", func(c *fiber.Ctx) error {
		if strings.HasPrefix(c.Path(), "/api/") {
			return fiber.ErrNotFound
		}
		return c.SendFile(index)
	})
}
