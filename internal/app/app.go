// Package app はwritewiseのエントリーポイントと依存関係のワイヤリングを提供する。
package app

import (
	"context"
	"database/sql"
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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/writewise/internal/auth"
	"github.com/hitoshi/writewise/internal/comment"
	"github.com/hitoshi/writewise/internal/config"
	"github.com/hitoshi/writewise/internal/database"
	"github.com/hitoshi/writewise/internal/handler"
	"github.com/hitoshi/writewise/internal/like"
	"github.com/hitoshi/writewise/internal/logger"
	"github.com/hitoshi/writewise/internal/metrics"
	"github.com/hitoshi/writewise/internal/middleware"
	"github.com/hitoshi/writewise/internal/post"
	"github.com/hitoshi/writewise/internal/repository"
	"github.com/hitoshi/writewise/internal/security"
	"github.com/hitoshi/writewise/internal/user"
)

const (
	dbPingTimeout   = 5 * time.Second
	shutdownTimeout = 30 * time.Second
)

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップしてから環境変数のConfigを読み込み、
// LOG_LEVELに従ってロガーを再設定する。
func Init(w io.Writer) (*config.Config, error) {
	// 設定読み込み前にログを使えるようにする
	logger.SetupDefault(w, slog.LevelInfo)

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.SetupDefault(w, logger.ParseLevel(cfg.LogLevel))
	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// argsにはos.Args[1:]を渡す。サブコマンドが無い場合はserveとして起動する。
func Run(w io.Writer, args []string) error {
	root := NewRootCommand(w)
	root.SetArgs(args)
	return root.Execute()
}

// server はserveコマンドで起動するHTTPハンドラーとその付随リソース。
type server struct {
	handler     http.Handler
	rateLimiter *middleware.RateLimiter
}

// Close はバックグラウンドで動くリソースを停止する。
func (s *server) Close() {
	s.rateLimiter.Stop()
}

// newServer はDB接続から全依存関係をワイヤリングし、ルーターを構築する。
func newServer(cfg *config.Config, db *sql.DB, log *slog.Logger) (*server, error) {
	// 1. リポジトリ
	userRepo := repository.NewPostgresUserRepo(db)
	postRepo := repository.NewPostgresPostRepo(db)
	commentRepo := repository.NewPostgresCommentRepo(db)
	likeRepo := repository.NewPostgresLikeRepo(db)
	statsRepo := repository.NewPostgresStatsRepo(db)

	// 2. セキュリティ
	sanitizer := security.NewContentSanitizer()
	urlGuard := security.NewURLGuard()

	// 3. メトリクス
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(reg)

	// 4. 認証
	codec, err := auth.NewTokenCodec(auth.TokenCodecConfig{
		Secret: cfg.JWTSecret,
		TTL:    cfg.TokenTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create token codec: %w", err)
	}

	authDeps := auth.ServiceDeps{
		Users:      userRepo,
		Identities: auth.NewIdentityStore(userRepo, auth.IdentityStoreConfig{MergeByEmail: cfg.OAuthMergeByEmail}),
		Hasher:     auth.NewBcryptHasher(cfg.BcryptCost),
		Tokens:     codec,
		Events:     collector,
	}
	if cfg.OAuthEnabled() {
		authDeps.OAuth = auth.NewGoogleOAuthProvider(auth.GoogleOAuthConfig{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
			HTTPClient:   urlGuard.NewSafeClient(cfg.OutboundTimeout),
		})
	} else {
		log.Info("google oauth disabled")
	}
	authService := auth.NewService(authDeps)

	// 5. ドメインサービス
	postService := post.NewService(postRepo, commentRepo, likeRepo, sanitizer, urlGuard)
	commentService := comment.NewService(commentRepo, postRepo, sanitizer)
	likeService := like.NewService(likeRepo, postRepo)
	userService := user.NewService(userRepo, statsRepo)

	// 6. ルーター
	rateLimiter := middleware.NewRateLimiter(
		middleware.RateLimiterConfigPerMinute(cfg.RateLimitGeneral, cfg.RateLimitAuth),
	)

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:             log,
		TokenVerifier:      codec,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimiter:        rateLimiter,
		HTTPMetrics:        collector,
		TrustProxy:         cfg.TrustProxy,

		HealthChecker:  db,
		MetricsHandler: metrics.Handler(reg),

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			FrontendURL: cfg.FrontendURL,
			Cookie: middleware.CookieConfig{
				Domain: cfg.CookieDomain,
				Secure: cfg.CookieSecure,
				MaxAge: codec.TTL(),
			},
		},

		PostService:    postService,
		CommentService: commentService,
		LikeService:    likeService,
		UserService:    userService,
	})

	return &server{handler: router, rateLimiter: rateLimiter}, nil
}

// runServe はAPIサーバーモードで起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	log := slog.Default()

	db, err := database.Open(cfg.DatabaseURL, database.DefaultPoolConfig())
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.PingWithTimeout(db, dbPingTimeout); err != nil {
		return err
	}
	log.Info("database connection established")

	srv, err := newServer(cfg, db, log)
	if err != nil {
		return err
	}
	defer srv.Close()

	httpServer := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      srv.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("API server starting",
			slog.String("addr", httpServer.Addr),
			slog.String("base_url", cfg.BaseURL),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("API server stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// stepsが0なら最新まで適用し、負数なら指定数だけロールバックする。
func runMigrate(cfg *config.Config, steps int) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
		slog.Int("steps", steps),
	)

	status, err := database.Migrate(cfg.DatabaseURL, steps)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed",
		slog.Uint64("version", uint64(status.Version)),
		slog.Bool("dirty", status.Dirty),
	)
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
func runHealthcheck(ctx context.Context, port string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://localhost:"+port+"/health", nil)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}

// maskDatabaseURL はデータベースURLのパスワードをマスクする。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}

func defaultPort() string {
	if port := os.Getenv("SERVER_PORT"); port != "" {
		return port
	}
	return "8080"
}
