/**
 * @description
 * billingctl is the operator CLI for the billing service: schema migrations,
 * manual bill generation and admin bootstrap.
 */
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/rjunioramorim/app-cobrancas/internal/app"
	"github.com/rjunioramorim/app-cobrancas/internal/config"
	"github.com/rjunioramorim/app-cobrancas/internal/store"
)

const minPasswordLength = 8

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type globalOptions struct {
	envFile string
	timeout time.Duration
}

func rootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:           "billingctl",
		Short:         "Operate the billing service database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", "", "Load environment variables from this file before reading configuration")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Minute, "Overall command timeout")

	cmd.AddCommand(migrateCmd(opts))
	cmd.AddCommand(generateCmd(opts))
	cmd.AddCommand(bootstrapAdminCmd(opts))

	return cmd
}

// session bundles what every subcommand needs.
type session struct {
	cfg    config.Config
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func open(ctx context.Context, opts *globalOptions) (*session, error) {
	if opts.envFile != "" {
		if err := godotenv.Load(opts.envFile); err != nil {
			return nil, fmt.Errorf("load env file: %w", err)
		}
	}

	cfg, err := config.LoadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	pool, err := store.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return &session{cfg: cfg, pool: pool, logger: logger}, nil
}

func commandContext(opts *globalOptions) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	return ctx, func() {
		stop()
		cancel()
	}
}

func migrateCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(opts)
			defer cancel()

			s, err := open(ctx, opts)
			if err != nil {
				return err
			}
			defer s.pool.Close()

			applied, err := store.Migrate(ctx, s.pool, s.logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", applied)
			return nil
		},
	}
}

func generateCmd(opts *globalOptions) *cobra.Command {
	var (
		month  int
		year   int
		tenant string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate monthly charges for active clients",
		Long: `Generate one charge per active client for the given month.

Month and year default to the month after the current one in the business
timezone. Charges that already exist are reported as duplicates.

Examples:
  billingctl generate
  billingctl generate --month 2 --year 2024
  billingctl generate --tenant 5d1c...`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := generateInput(cmd, month, year, tenant)
			if err != nil {
				return err
			}

			ctx, cancel := commandContext(opts)
			defer cancel()

			s, err := open(ctx, opts)
			if err != nil {
				return err
			}
			defer s.pool.Close()

			loc, err := s.cfg.Location()
			if err != nil {
				return err
			}
			service := app.NewService(store.NewRepository(s.pool, loc), nil, s.cfg.BusinessTimezone, app.WithLogger(s.logger))

			result, err := service.GenerateBills(ctx, in)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}

	cmd.Flags().IntVar(&month, "month", 0, "Target month (1-12)")
	cmd.Flags().IntVar(&year, "year", 0, "Target year")
	cmd.Flags().StringVar(&tenant, "tenant", "", "Restrict generation to one tenant ID")

	return cmd
}

// generateInput only sets the fields whose flags were given.
func generateInput(cmd *cobra.Command, month, year int, tenant string) (app.GenerateBillsInput, error) {
	var in app.GenerateBillsInput
	if cmd.Flags().Changed("month") {
		in.Month = &month
	}
	if cmd.Flags().Changed("year") {
		in.Year = &year
	}
	if tenant = strings.TrimSpace(tenant); tenant != "" {
		id, err := uuid.Parse(tenant)
		if err != nil {
			return in, fmt.Errorf("invalid tenant id %q", tenant)
		}
		in.TenantID = &id
	}
	return in, nil
}

func bootstrapAdminCmd(opts *globalOptions) *cobra.Command {
	var email, name, password string

	cmd := &cobra.Command{
		Use:   "bootstrap-admin",
		Short: "Create or reset the administrator account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			email, name, err := validateAdmin(email, name, password)
			if err != nil {
				return err
			}
			hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}

			ctx, cancel := commandContext(opts)
			defer cancel()

			s, err := open(ctx, opts)
			if err != nil {
				return err
			}
			defer s.pool.Close()

			loc, err := s.cfg.Location()
			if err != nil {
				return err
			}
			id, err := store.NewRepository(s.pool, loc).UpsertAdmin(ctx, name, email, string(hash))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "admin %s ready (id %s)\n", email, id)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Administrator email")
	cmd.Flags().StringVar(&name, "name", "Administrador", "Administrator display name")
	cmd.Flags().StringVar(&password, "password", "", "Administrator password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func validateAdmin(email, name, password string) (string, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return "", "", fmt.Errorf("invalid email %q", email)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", "", errors.New("name is required")
	}
	if len(password) < minPasswordLength {
		return "", "", fmt.Errorf("password must have at least %d characters", minPasswordLength)
	}
	return email, name, nil
}
