package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hitoshi/wealthio/internal/auth"
	"github.com/hitoshi/wealthio/internal/config"
	"github.com/hitoshi/wealthio/internal/database"
	"github.com/hitoshi/wealthio/internal/expense"
	"github.com/hitoshi/wealthio/internal/handler"
	"github.com/hitoshi/wealthio/internal/logger"
	"github.com/hitoshi/wealthio/internal/mail"
	"github.com/hitoshi/wealthio/internal/metrics"
	"github.com/hitoshi/wealthio/internal/middleware"
	"github.com/hitoshi/wealthio/internal/password"
	"github.com/hitoshi/wealthio/internal/security"
	"github.com/hitoshi/wealthio/internal/token"
	"github.com/hitoshi/wealthio/internal/worker/cleanup"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Init はアプリケーションの初期化を行う。
// .envファイルがあれば環境変数に読み込み、JSON構造化ログをセットアップしてConfigを返す。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. .envの読み込み。既に設定済みの環境変数は上書きしない
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	// 3. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "5001"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	switch cmd {
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	case CommandAddUser:
		return runAddUserCommand(cfg, args[1:], os.Stdin, w, os.Stderr)
	default:
		return runServe(cfg)
	}
}

// newAuthService は設定から認証サービスを構築する。
func newAuthService(cfg *config.Config, st *stores, collector metrics.MetricsCollector) (*auth.Service, error) {
	var notifier mail.Notifier = mail.DisabledNotifier{}
	if cfg.MailEnabled() {
		smtp, err := mail.NewSMTPNotifier(mail.Config{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
		})
		if err != nil {
			return nil, err
		}
		notifier = smtp
	} else {
		slog.Warn("SMTP credentials are not configured; password reset mails are disabled")
	}

	tokens := token.NewManager(token.Config{Secret: cfg.JWTSecret, TTL: cfg.TokenTTL})

	return auth.NewService(
		st.users, st.resets,
		password.NewHasher(cfg.BcryptCost), tokens,
		notifier, security.NewTextSanitizer(), collector,
		auth.ServiceConfig{OTPTTL: cfg.OTPTTL},
	), nil
}

// newLoginLimiter はREDIS_URLが設定されていればRedis、なければインメモリのログイン試行制限を返す。
// 返されたstop関数で関連リソースを解放する。
func newLoginLimiter(ctx context.Context, cfg *config.Config) (middleware.LoginLimiter, func(), error) {
	limiterCfg := middleware.LoginLimiterConfig{
		Max:    cfg.LoginRateLimitMax,
		Window: cfg.LoginRateLimitWindow,
	}

	if cfg.RedisURL != "" {
		client, err := database.OpenRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("login rate limiter backed by redis")
		return middleware.NewRedisLoginLimiter(client, limiterCfg), func() { client.Close() }, nil
	}

	limiter := middleware.NewMemoryLoginLimiter(limiterCfg)
	return limiter, limiter.Stop, nil
}

// runServe はAPIサーバーモードで起動する。
// ストアに接続し、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// 期限切れリセットエントリのクリーンアップも同じプロセスで定期実行する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	ctx, stopSignals := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	// 1. ストア接続
	startupCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	st, err := openStores(startupCtx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer st.close()

	// 2. メトリクス
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(reg)

	// 3. ドメインサービスの初期化
	authService, err := newAuthService(cfg, st, collector)
	if err != nil {
		return err
	}
	expenseService := expense.NewService(st.expenses, security.NewTextSanitizer(), collector)

	// 4. レート制限
	loginLimiter, stopLoginLimiter, err := newLoginLimiter(startupCtx, cfg)
	if err != nil {
		return fmt.Errorf("failed to set up login rate limiter: %w", err)
	}
	defer stopLoginLimiter()

	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfigPerMinute(cfg.RateLimitGeneral))
	defer rateLimiter.Stop()

	// 5. ルーターの構築
	router := handler.NewRouter(&handler.RouterDeps{
		TokenVerifier:      token.NewManager(token.Config{Secret: cfg.JWTSecret, TTL: cfg.TokenTTL}),
		LoginLimiter:       loginLimiter,
		RateLimiter:        rateLimiter,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		TrustProxy:         cfg.TrustProxy,
		Logger:             slog.Default(),
		Metrics:            collector,
		MetricsGatherer:    reg,
		HealthChecker:      st.health,
		AuthService:        authService,
		ExpenseService:     expenseService,
	})

	// 6. リセットエントリのクリーンアップをバックグラウンドで起動
	cleanupJob := cleanup.NewCleanupJob(st.resets, collector, slog.Default())
	go cleanupJob.Start(ctx, cfg.ResetCleanupInterval)

	// 7. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
			slog.String("backend", string(st.backend)),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server listen error: %w", err)
	case <-ctx.Done():
	}
	slog.Info("shutting down API server...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// APIサーバーとは別プロセスで期限切れリセットエントリのクリーンアップのみを行う。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	ctx, stopSignals := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	startupCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	st, err := openStores(startupCtx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer st.close()

	slog.Info("worker starting",
		slog.Duration("cleanup_interval", cfg.ResetCleanupInterval),
	)

	// メトリクスは公開しないため記録は破棄する
	cleanupJob := cleanup.NewCleanupJob(st.resets, nil, slog.Default())
	cleanupJob.Start(ctx, cfg.ResetCleanupInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はスキーマを最新にする。
// PostgreSQLではすべての未適用マイグレーションを順番に適用し、
// MongoDBでは必要なインデックスを作成する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	backend, err := database.DetectBackend(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	if backend == database.BackendMongo {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		db, err := database.OpenMongo(ctx, cfg.DatabaseURL, cfg.MongoDatabase)
		if err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		defer db.Client().Disconnect(context.Background())

		if err := database.EnsureMongoIndexes(ctx, db); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	} else if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runAddUserCommand はストアに接続してadduserサブコマンドを実行する。
func runAddUserCommand(cfg *config.Config, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	st, err := openStores(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer st.close()

	authService, err := newAuthService(cfg, st, nil)
	if err != nil {
		return err
	}

	// パスワード入力待ちでタイムアウトしないよう、作成処理には別のコンテキストを使う
	return runAddUser(context.Background(), authService, args, stdin, stdout, stderr)
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	target := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(target)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLのパスワードとクエリをマスクする。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	u.RawQuery = ""
	return u.Redacted()
}
