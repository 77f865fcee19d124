package app

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
)

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe はAPIサーバーモードで起動することを示す。
	CommandServe Command = "serve"
	// CommandMigrate はデータベースマイグレーションを実行することを示す。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

// NewRootCommand はwritewiseのCLIを構築する。
// サブコマンド無しで実行した場合はserveと同じ動作をする。
// wはログ出力先で、nilの場合は標準出力を使う。
func NewRootCommand(w io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "writewise",
		Short:         "WriteWise blog API server",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(w)
		},
	}

	root.AddCommand(
		serveCmd(w),
		migrateCmd(w),
		healthcheckCmd(),
	)
	return root
}

func serveCmd(w io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   string(CommandServe),
		Short: "Start the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(w)
		},
	}
}

func migrateCmd(w io.Writer) *cobra.Command {
	var steps int

	cmd := &cobra.Command{
		Use:   string(CommandMigrate),
		Short: "Apply database migrations",
		Long: `Apply database migrations.

With --steps=0 (default) all pending migrations are applied.
A negative value rolls back that many migrations.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := Init(w)
			if err != nil {
				return fmt.Errorf("initialization failed: %w", err)
			}
			return runMigrate(cfg, steps)
		},
	}

	cmd.Flags().IntVar(&steps, "steps", 0, "number of migrations to apply (negative rolls back)")
	return cmd
}

// healthcheckCmd はフル初期化を行わない軽量サブコマンド。
func healthcheckCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   string(CommandHealthcheck),
		Short: "Probe the local /health endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHealthcheck(cmd.Context(), port)
		},
	}

	cmd.Flags().StringVar(&port, "port", defaultPort(), "port of the running API server")
	return cmd
}

func serve(w io.Writer) error {
	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(CommandServe)),
		slog.String("port", cfg.ServerPort),
	)
	return runServe(cfg)
}
