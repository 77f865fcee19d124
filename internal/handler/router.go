package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hitoshi/writewise/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger             *slog.Logger
	TokenVerifier      middleware.TokenVerifier
	CORSAllowedOrigins []string
	// RateLimiter がnilの場合はレート制限を行わない。
	RateLimiter *middleware.RateLimiter
	// HTTPMetrics がnilの場合はリクエストを計測しない。
	HTTPMetrics middleware.HTTPMetricsRecorder
	// TrustProxy が有効な場合はX-Forwarded-For等からクライアントIPを復元する。
	TrustProxy bool

	// 運用エンドポイント
	HealthChecker  HealthChecker
	MetricsHandler http.Handler

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	PostService    PostServiceInterface
	CommentService CommentServiceInterface
	LikeService    LikeServiceInterface
	UserService    UserServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// 全ルート共通のミドルウェアスタックの実行順序:
//
//	RequestID → RealIP → Logging → Recovery → Tracing → Metrics → SecurityHeaders → CORS
//
// APIルートはさらに Session(optional) → RateLimit(General) を通り、
// 認証が必要なルートではその後に Session(required) で匿名リクエストを401にする。
// レート制限をセッション識別の後に置くことで、認証済みリクエストはユーザー単位、
// 匿名リクエストはIP単位で制限される。401になるリクエストもIP単位の制限を受ける。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	if deps.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewTracingMiddleware())
	if deps.HTTPMetrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.HTTPMetrics))
	}
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigins))

	general := passthrough
	authLimit := passthrough
	if deps.RateLimiter != nil {
		general = deps.RateLimiter.GeneralMiddleware()
		authLimit = deps.RateLimiter.AuthMiddleware()
	}
	identify := middleware.NewSessionMiddleware(deps.TokenVerifier, middleware.OptionalSession)
	optional := chi.Chain(identify, general)
	required := chi.Chain(identify, general, middleware.NewSessionMiddleware(deps.TokenVerifier, middleware.RequireSession))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	postHandler := NewPostHandler(deps.PostService)
	commentHandler := NewCommentHandler(deps.CommentService)
	likeHandler := NewLikeHandler(deps.LikeService)
	userHandler := NewUserHandler(deps.UserService, deps.AuthConfig.Cookie)

	// --- 運用エンドポイント（レート制限なし） ---
	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// --- 認証不要のルート ---
	// 匿名でも利用でき、Cookieがあれば閲覧者を識別する
	pub := r.With(optional...)
	// 総当たり対策としてIP単位の認証レート制限を追加
	limited := pub.With(authLimit)

	limited.Post("/auth/signup", authHandler.Signup)
	limited.Post("/auth/login", authHandler.Login)
	limited.Get("/auth/google", authHandler.GoogleLogin)
	limited.Get("/auth/google/callback", authHandler.GoogleCallback)
	pub.Post("/auth/logout", authHandler.Logout)
	pub.Get("/auth/me", authHandler.Me)

	pub.Get("/posts", postHandler.List)
	pub.Get("/posts/trending", postHandler.Trending)
	pub.Get("/posts/search", postHandler.Search)
	pub.Get("/posts/user/{id}", postHandler.ListByAuthor)
	pub.Get("/posts/{id}", postHandler.Get)

	pub.Get("/comments/user/{id}", commentHandler.ListByUser)
	pub.Get("/comments/{postId}", commentHandler.ListByPost)

	pub.Get("/users/{id}", userHandler.Profile)

	// --- 認証が必要なルート ---
	protected := r.With(required...)

	protected.Post("/posts", postHandler.Create)
	protected.Put("/posts/{id}", postHandler.Update)
	protected.Delete("/posts/{id}", postHandler.Delete)

	protected.Post("/comments/{postId}", commentHandler.Add)
	protected.Delete("/comments/{id}", commentHandler.Delete)

	protected.Get("/likes/user/{id}", likeHandler.ListLiked)
	protected.Post("/likes/{postId}", likeHandler.Toggle)

	protected.Get("/users/me/stats", userHandler.Stats)
	protected.Put("/users/{id}", userHandler.UpdateProfile)
	protected.Delete("/users/{id}", userHandler.DeleteAccount)

	return r
}

func passthrough(next http.Handler) http.Handler {
	return next
}
