package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/soapbox/internal/metrics"
	"github.com/hitoshi/soapbox/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionVerifier   middleware.SessionVerifier
	CORSAllowedOrigin string
	Logger            *slog.Logger

	// サービス
	AuthService    AuthServiceInterface
	OpinionService OpinionServiceInterface

	// 観測
	Metrics         metrics.MetricsCollector
	MetricsGatherer prometheus.Gatherer

	// ヘルスチェック
	DBPinger Pinger
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → (認証ルートのみ Auth)
//
// 意見一覧（GET /api/opinions）と認証フロー（/auth/*）は未認証で利用できる。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, requestObserver(deps.Metrics)))

	authHandler := NewAuthHandler(deps.AuthService, deps.Metrics)
	opinionHandler := NewOpinionHandler(deps.OpinionService)

	// --- 認証不要のルート ---

	// 認証フロー
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Get("/verify-email", authHandler.VerifyEmail)
		r.Post("/login", authHandler.Login)
		r.Post("/forgot-password", authHandler.ForgotPassword)
		r.Post("/reset-password", authHandler.ResetPassword)
	})

	// 意見の閲覧は公開
	r.Get("/api/opinions", opinionHandler.List)

	// ヘルスチェックとメトリクス
	r.Get("/healthz", NewHealthHandler(deps.DBPinger).Check)
	if deps.MetricsGatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.MetricsGatherer))
	}

	// --- 認証が必要なルート ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(deps.SessionVerifier))

		r.Post("/api/opinions", opinionHandler.Create)
		r.Route("/api/opinions/{id}", func(r chi.Router) {
			r.Put("/", opinionHandler.Update)
			r.Delete("/", opinionHandler.Delete)
		})
	})

	return r
}

// requestObserver はリクエスト完了ごとにメトリクスを記録するコールバックを返す。
func requestObserver(collector metrics.MetricsCollector) middleware.RequestObserver {
	if collector == nil {
		return nil
	}
	return func(method, path string, statusCode int, duration time.Duration) {
		collector.RecordHTTPStatus(statusCode)
		collector.RecordRequestLatency(duration)
	}
}
