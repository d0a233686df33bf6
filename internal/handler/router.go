package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/hitoshi/wealthio/internal/metrics"
	"github.com/hitoshi/wealthio/internal/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	TokenVerifier      middleware.TokenVerifier
	LoginLimiter       middleware.LoginLimiter
	RateLimiter        *middleware.RateLimiter
	CORSAllowedOrigins []string
	TrustProxy         bool
	Logger             *slog.Logger

	// メトリクス。Gathererがnilの場合は/metricsを公開しない
	Metrics         *metrics.Collector
	MetricsGatherer prometheus.Gatherer

	// ヘルスチェック
	HealthChecker HealthChecker

	AuthService    AuthServiceInterface
	ExpenseService ExpenseServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	[RealIP] → Recovery → Logging → SecurityHeaders → CORS
//
// /expenses 配下はさらに BearerAuth → RateLimit(General) を通る。
// /auth/login はログイン試行回数の制限、/auth/verify はBearer認証を個別に適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var httpRecorder middleware.HTTPMetricsRecorder
	var loginRecorder middleware.LoginRateLimitRecorder
	if deps.Metrics != nil {
		httpRecorder = deps.Metrics
		loginRecorder = deps.Metrics
	}

	// リバースプロキシ配下ではX-Forwarded-For等から送信元IPを復元する
	if deps.TrustProxy {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger, httpRecorder))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigins))

	authHandler := NewAuthHandler(deps.AuthService)
	expenseHandler := NewExpenseHandler(deps.ExpenseService)
	bearer := middleware.NewBearerAuthMiddleware(deps.TokenVerifier)

	// --- 認証不要のルート ---
	r.Get("/", Root)
	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.SetupMetricsRoute(deps.MetricsGatherer))
	}

	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", authHandler.Signup)
		if deps.LoginLimiter != nil {
			r.With(middleware.NewLoginRateLimitMiddleware(deps.LoginLimiter, loginRecorder)).Post("/login", authHandler.Login)
		} else {
			r.Post("/login", authHandler.Login)
		}
		r.With(bearer).Get("/verify", authHandler.Verify)

		// パスワードリセット（OTP）
		r.Post("/request-password-reset", authHandler.RequestPasswordReset)
		r.Post("/verify-otp", authHandler.VerifyOTP)
		r.Post("/reset-password", authHandler.ResetPassword)
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: BearerAuth → RateLimit(General)
	r.Route("/expenses", func(r chi.Router) {
		r.Use(bearer)
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.GeneralMiddleware())
		}

		r.Post("/add", expenseHandler.AddExpense)
		r.Get("/", expenseHandler.ListExpenses)
		r.Get("/export/csv", expenseHandler.ExportCSV)
		r.Get("/export/pdf", expenseHandler.ExportPDF)

		r.Route("/{id}", func(r chi.Router) {
			r.Put("/", expenseHandler.UpdateExpense)
			r.Delete("/", expenseHandler.DeleteExpense)
		})
	})

	return r
}
