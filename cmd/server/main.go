package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/wirechat-gateway/internal/app"
	"github.com/vovakirdan/wirechat-gateway/internal/auth"
	"github.com/vovakirdan/wirechat-gateway/internal/config"
	"github.com/vovakirdan/wirechat-gateway/internal/log"
	"github.com/vovakirdan/wirechat-gateway/internal/store"
	"github.com/vovakirdan/wirechat-gateway/internal/store/sqlite"
)

type rootFlags struct {
	configPath string
	addr       string
	logLevel   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:          "wirechat-gateway",
		Short:        "Real-time chat gateway",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "path to config file")
	root.PersistentFlags().StringVar(&flags.addr, "addr", "", "HTTP listen address")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(newServeCmd(flags), newUserCmd(flags))
	return root
}

// loadConfig resolves configuration with command-line flags taking precedence.
func loadConfig(flags *rootFlags) (config.Config, error) {
	bootLog := log.New("info", "console")
	cfg, path, err := config.Load(bootLog, flags.configPath)
	if err != nil {
		return cfg, err
	}
	cfg.UpdateFrom(config.Config{Addr: flags.addr, LogLevel: flags.logLevel})
	bootLog.Debug().Str("path", path).Msg("config loaded")
	return cfg, nil
}

func newServeCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the chat gateway",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			logger := log.New(cfg.LogLevel, cfg.LogFormat)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application, err := app.New(&cfg, logger)
			if err != nil {
				return fmt.Errorf("init app: %w", err)
			}

			logger.Info().Str("addr", cfg.Addr).Msg("starting wirechat gateway")
			if err := application.Run(ctx); err != nil {
				logger.Error().Err(err).Msg("server exited with error")
				return err
			}
			logger.Info().Msg("server stopped")
			return nil
		},
	}
}

func newUserCmd(flags *rootFlags) *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
	}

	var in auth.NewUser
	var role string
	add := &cobra.Command{
		Use:   "add",
		Short: "Create an account without an invitation code",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			st, err := sqlite.New(cfg.DatabasePath)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer st.Close()

			in.Role = store.UserRole(role)
			user, err := app.NewAuthService(&cfg, st).CreateUser(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created user %s (%s)\n", user.Username, user.ID)
			return nil
		},
	}
	add.Flags().StringVar(&in.Username, "username", "", "login name")
	add.Flags().StringVar(&in.Password, "password", "", "initial password")
	add.Flags().StringVar(&in.Nickname, "nickname", "", "display name")
	add.Flags().StringVar(&role, "role", string(store.UserRoleUser), "admin, user or ghost")
	_ = add.MarkFlagRequired("username")
	_ = add.MarkFlagRequired("password")

	userCmd.AddCommand(add)
	return userCmd
}
