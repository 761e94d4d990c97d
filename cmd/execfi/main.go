package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/execfi/internal/profile"
	"github.com/hrygo/execfi/server"
	"github.com/hrygo/execfi/internal/observability"
	"github.com/hrygo/execfi/server/middleware"
	"github.com/hrygo/execfi/store"
	"github.com/hrygo/execfi/store/db"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "0.1.0"

const shutdownTimeout = 10 * time.Second

var (
	rootCmd = &cobra.Command{
		Use:   "execfi",
		Short: "Conversational crypto assistant with a confirmation-gated action ledger.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			instanceProfile := loadProfile()
			if err := instanceProfile.Validate(); err != nil {
				return err
			}
			slog.SetDefault(observability.NewLogger(os.Stderr, instanceProfile.Mode))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			dbDriver, err := db.NewDBDriver(instanceProfile)
			if err != nil {
				return fmt.Errorf("failed to create db driver: %w", err)
			}
			storeInstance := store.New(dbDriver, instanceProfile)
			if err := storeInstance.Migrate(ctx); err != nil {
				_ = storeInstance.Close()
				return fmt.Errorf("failed to migrate: %w", err)
			}

			s, err := server.NewServer(ctx, instanceProfile, storeInstance)
			if err != nil {
				_ = storeInstance.Close()
				return fmt.Errorf("failed to create server: %w", err)
			}

			errCh := make(chan error, 1)
			go func() {
				errCh <- s.Start(ctx)
			}()
			printGreetings(instanceProfile)

			select {
			case err = <-errCh:
			case <-ctx.Done():
				slog.Info("shutdown signal received")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			s.Shutdown(shutdownCtx)
			return err
		},
	}

	tokenCmd = &cobra.Command{
		Use:   "token <user-id> <wallet-address>",
		Short: "Issue a signed API token for local testing.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := middleware.IssueToken(viper.GetString("jwt-secret"), middleware.Identity{
				UserID:        args[0],
				WalletAddress: args[1],
				Chain:         viper.GetString("chain"),
			}, viper.GetDuration("ttl"))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
)

func loadProfile() *profile.Profile {
	p := &profile.Profile{
		Mode:      viper.GetString("mode"),
		Addr:      viper.GetString("addr"),
		Port:      viper.GetInt("port"),
		Data:      viper.GetString("data"),
		Driver:    viper.GetString("driver"),
		DSN:       viper.GetString("dsn"),
		JWTSecret: viper.GetString("jwt-secret"),
		Version:   version,
	}
	p.FromEnv()
	return p
}

func init() {
	viper.SetDefault("mode", "demo")
	viper.SetDefault("driver", "sqlite")
	viper.SetDefault("port", 3001)
	viper.SetDefault("chain", "solana")
	viper.SetDefault("ttl", 24*time.Hour)

	rootCmd.PersistentFlags().String("mode", "demo", `mode of server, can be "prod" or "dev" or "demo"`)
	rootCmd.PersistentFlags().String("addr", "", "address of server")
	rootCmd.PersistentFlags().Int("port", 3001, "port of server")
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "sqlite", "database driver, sqlite or postgres")
	rootCmd.PersistentFlags().String("dsn", "", "database source name (aka. DSN)")
	rootCmd.PersistentFlags().String("jwt-secret", "", "HMAC secret used to verify API tokens")
	tokenCmd.Flags().String("chain", "solana", "chain recorded in the token")
	tokenCmd.Flags().Duration("ttl", 24*time.Hour, "token lifetime")

	for _, name := range []string{"mode", "addr", "port", "data", "driver", "dsn", "jwt-secret"} {
		if err := viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			panic(err)
		}
	}
	for _, name := range []string{"chain", "ttl"} {
		if err := viper.BindPFlag(name, tokenCmd.Flags().Lookup(name)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("execfi")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	rootCmd.AddCommand(tokenCmd)
}

func printGreetings(p *profile.Profile) {
	fmt.Printf("ExecFi %s started successfully!\n", p.Version)
	fmt.Printf("Data directory: %s\nDatabase driver: %s\nMode: %s\n", p.Data, p.Driver, p.Mode)
	if p.Addr == "" {
		fmt.Printf("Server running on port %d\n", p.Port)
	} else {
		fmt.Printf("Server running on %s:%d\n", p.Addr, p.Port)
	}
}

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
