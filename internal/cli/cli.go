// Package cli implements workforcectl, the operator command line for running
// batch work against the same database as the server.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"workforce/internal/app/server"
	"workforce/internal/domain/attendance"
	"workforce/internal/domain/auth"
	"workforce/internal/platform/clock"
	"workforce/internal/platform/config"
	"workforce/internal/platform/db"
	"workforce/internal/platform/email"
)

func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "workforcectl",
		Short:         "Operate the workforce leave and attendance service",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := slog.LevelInfo
			if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
		},
	}
	root.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")

	root.AddCommand(newMigrateCmd(), newAccrueCmd(), newBackfillCmd(), newImportCmd(), newTokenCmd())
	return root
}

// env holds what the database-backed commands share.
type env struct {
	cfg  config.Config
	pool *pgxpool.Pool
	svc  server.Services
}

func (e *env) Close() {
	if e.pool != nil {
		e.pool.Close()
	}
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func connect(ctx context.Context) (*env, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	svc := server.NewServices(cfg, server.PostgresStores(pool), clock.System{}, loc, email.New(cfg), nil)
	return &env{cfg: cfg, pool: pool, svc: svc}, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newMigrateCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if dir == "" {
				dir = cfg.MigrationsDir
			}
			pool, err := db.Connect(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("db connect: %w", err)
			}
			defer pool.Close()

			applied, err := db.Migrate(cmd.Context(), pool, db.MigrationSource(dir))
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "database is up to date")
				return nil
			}
			for _, v := range applied {
				fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", v)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "Migrations directory (defaults to MIGRATIONS_DIR or the embedded set)")
	return cmd
}

func newAccrueCmd() *cobra.Command {
	var year, month int
	cmd := &cobra.Command{
		Use:   "accrue",
		Short: "Post monthly leave credits",
		Long: `Post one month of leave credits for every active employee. Without
--year and --month the previous calendar month is used. Rerunning a month
only reports the entries that already exist.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if (year == 0) != (month == 0) {
				return errors.New("--year and --month must be given together")
			}
			if month != 0 && (month < 1 || month > 12) {
				return fmt.Errorf("--month %d is out of range", month)
			}
			e, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			if year == 0 {
				summary, err := e.svc.Jobs.AccrueNow(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), summary)
			}
			summary, err := e.svc.Jobs.AccrueMonth(cmd.Context(), year, time.Month(month))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), summary)
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "Calendar year to accrue")
	cmd.Flags().IntVar(&month, "month", 0, "Month (1-12) to accrue")
	return cmd
}

func newBackfillCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backfill",
		Short: "Post any missing credits for completed months",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			summary, err := e.svc.Jobs.BackfillNow(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), summary)
		},
	}
}

type importFlags struct {
	file       string
	site       string
	from       string
	to         string
	uploadedBy string
}

func (f importFlags) input() (attendance.ImportInput, error) {
	if f.file == "" {
		return attendance.ImportInput{}, errors.New("--file is required")
	}
	if f.site == "" {
		return attendance.ImportInput{}, errors.New("--site is required")
	}
	from, err := time.Parse(time.DateOnly, f.from)
	if err != nil {
		return attendance.ImportInput{}, fmt.Errorf("--from must be YYYY-MM-DD")
	}
	to, err := time.Parse(time.DateOnly, f.to)
	if err != nil {
		return attendance.ImportInput{}, fmt.Errorf("--to must be YYYY-MM-DD")
	}
	if to.Before(from) {
		return attendance.ImportInput{}, errors.New("--to is before --from")
	}
	return attendance.ImportInput{
		FileName:   f.file,
		SiteID:     f.site,
		DateFrom:   from,
		DateTo:     to,
		UploadedBy: f.uploadedBy,
	}, nil
}

func newImportCmd() *cobra.Command {
	var flags importFlags
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a biometric attendance export",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in, err := flags.input()
			if err != nil {
				return err
			}
			if in.Data, err = os.ReadFile(flags.file); err != nil {
				return fmt.Errorf("read %s: %w", flags.file, err)
			}

			e, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			upload, err := e.svc.Attendance.Import(cmd.Context(), in)
			if err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), upload); err != nil {
				return err
			}
			if upload.Status == attendance.UploadFailed {
				return fmt.Errorf("import failed: %s", upload.ErrorMessage)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&flags.file, "file", "f", "", "Path to the attendance export")
	cmd.Flags().StringVar(&flags.site, "site", "", "Site the export came from")
	cmd.Flags().StringVar(&flags.from, "from", "", "First date to keep (YYYY-MM-DD)")
	cmd.Flags().StringVar(&flags.to, "to", "", "Last date to keep (YYYY-MM-DD)")
	cmd.Flags().StringVar(&flags.uploadedBy, "uploaded-by", "workforcectl", "Recorded as the uploader")
	return cmd
}

func newTokenCmd() *cobra.Command {
	var (
		subject    string
		employeeID string
		role       string
		ttl        time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if subject == "" {
				return errors.New("--subject is required")
			}
			normalized := auth.NormalizeRole(role)
			if !slices.Contains(auth.Roles(), normalized) {
				return fmt.Errorf("unknown role %q", role)
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			tok, err := auth.GenerateToken(cfg.JWTSecret, auth.Claims{
				EmployeeID:       employeeID,
				Role:             normalized,
				RegisteredClaims: jwt.RegisteredClaims{Subject: subject},
			}, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "User id placed in the token subject")
	cmd.Flags().StringVar(&employeeID, "employee", "", "Employee id linked to the user")
	cmd.Flags().StringVar(&role, "role", auth.RoleAgent, "Role granted by the token")
	cmd.Flags().DurationVar(&ttl, "ttl", 12*time.Hour, "Token lifetime")
	return cmd
}
