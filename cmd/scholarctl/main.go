// Command scholarctl runs maintenance tasks against the scholarship database.
// The reminder and cleanup commands are meant to be scheduled from cron.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/yigit/scholarsphere/internal/app/models"
	appRepos "github.com/yigit/scholarsphere/internal/app/repositories"
	appServices "github.com/yigit/scholarsphere/internal/app/services"
	"github.com/yigit/scholarsphere/internal/app/workflow"
	"github.com/yigit/scholarsphere/internal/bootstrap"
	"github.com/yigit/scholarsphere/internal/config"
	"github.com/yigit/scholarsphere/internal/db"
	"github.com/yigit/scholarsphere/internal/pkg/auth"
	"github.com/yigit/scholarsphere/internal/pkg/logger"
	"github.com/yigit/scholarsphere/internal/pkg/websocket"
	"github.com/yigit/scholarsphere/internal/seed"
)

// offlinePusher drops realtime events; connected clients refetch their inbox on reconnect
type offlinePusher struct{}

func (offlinePusher) Push(int64, websocket.Event) {}

type env struct {
	cfg      *config.Config
	log      zerolog.Logger
	database *db.PostgresDB
	repos    *appRepos.Repositories
}

func (e *env) notifications() *appServices.NotificationService {
	return appServices.NewNotificationService(
		e.repos.NotificationRepository,
		e.repos.UserRepository,
		e.repos.ScholarshipRepository,
		offlinePusher{},
		bootstrap.NewMailer(e.cfg),
		e.cfg.Server.BaseURL,
		logger.Component("notifications"),
	)
}

// withEnv loads config, opens the pool and closes it after fn
func withEnv(c *cli.Context, fn func(ctx context.Context, e *env) error) error {
	cfg, lgr, err := bootstrap.LoadConfigAndSetupLogger(c.String("config"))
	if err != nil {
		return err
	}
	database, err := bootstrap.ConnectDatabase(cfg, lgr)
	if err != nil {
		return err
	}
	defer database.Close()
	defer logger.Flush()

	return fn(c.Context, &env{
		cfg:      cfg,
		log:      lgr,
		database: database,
		repos:    appRepos.NewRepositories(database.Pool),
	})
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.App{
		Name:  "scholarctl",
		Usage: "scholarship portal management",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   bootstrap.DefaultConfigPath,
				Usage:   "path to the YAML config file",
				EnvVars: []string{"SCHOLARSPHERE_CONFIG"},
			},
		},
		Commands: []*cli.Command{
			migrateCommand(),
			seedCommand(),
			createStaffCommand(),
			sendRemindersCommand(),
			cleanupCommand(),
			cleanupTokensCommand(),
			workflowStatusCommand(),
		},
	}

	if err := app.RunContext(ctx, os.Args); err != nil {
		logger.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "apply pending SQL migrations",
		Action: func(c *cli.Context) error {
			return withEnv(c, func(ctx context.Context, e *env) error {
				return bootstrap.RunMigrations(ctx, e.cfg, e.database, e.log)
			})
		},
	}
}

func seedCommand() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "create the document catalogue, default staff accounts and a sample scholarship",
		Action: func(c *cli.Context) error {
			return withEnv(c, func(ctx context.Context, e *env) error {
				return seed.CreateDefaultData(ctx, e.repos, e.log)
			})
		},
	}
}

func createStaffCommand() *cli.Command {
	return &cli.Command{
		Name:  "create-staff",
		Usage: "create an OSAS or admin account",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Required: true},
			&cli.StringFlag{Name: "role", Required: true, Usage: "osas or admin"},
			&cli.StringFlag{Name: "first-name", Value: "Staff"},
			&cli.StringFlag{Name: "last-name", Value: "Member"},
			&cli.StringFlag{Name: "password", EnvVars: []string{"STAFF_PASSWORD"}, Required: true},
		},
		Action: func(c *cli.Context) error {
			role := models.RoleType(strings.ToUpper(c.String("role")))
			if !role.IsStaff() {
				return cli.Exit(fmt.Sprintf("role must be osas or admin, got %q", c.String("role")), 2)
			}
			return withEnv(c, func(ctx context.Context, e *env) error {
				authService := appServices.NewAuthService(
					e.repos.UserRepository,
					e.repos.TokenRepository,
					auth.NewJWTService(auth.JWTConfig{SecretKey: e.cfg.JWT.Secret, TokenIssuer: e.cfg.JWT.Issuer}),
					e.database,
					logger.Component("auth"),
				)
				user, err := authService.CreateStaff(ctx, c.String("email"), c.String("password"),
					c.String("first-name"), c.String("last-name"), role)
				if err != nil {
					return err
				}
				fmt.Fprintf(c.App.Writer, "created %s account %d for %s\n", user.RoleType, user.ID, user.Email)
				return nil
			})
		},
	}
}

func sendRemindersCommand() *cli.Command {
	return &cli.Command{
		Name:  "send-reminders",
		Usage: "notify students who have not applied to scholarships closing soon",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "days", Value: 0, Usage: "look-ahead window in days (default from config)"},
			&cli.BoolFlag{Name: "dry-run", Usage: "only report who would be notified"},
		},
		Action: func(c *cli.Context) error {
			return withEnv(c, func(ctx context.Context, e *env) error {
				days := c.Int("days")
				if days == 0 {
					days = e.cfg.Workflow.ReminderDays
				}
				results, err := e.notifications().SendDeadlineReminders(ctx, days, c.Bool("dry-run"))
				if err != nil {
					return err
				}
				verb := "notified"
				if c.Bool("dry-run") {
					verb = "would notify"
				}
				if len(results) == 0 {
					fmt.Fprintf(c.App.Writer, "no active scholarships close within %d day(s)\n", days)
				}
				for _, r := range results {
					fmt.Fprintf(c.App.Writer, "%s (#%d, %d day(s) left): %s %d student(s)\n",
						r.Title, r.ScholarshipID, r.DaysLeft, verb, r.Recipients)
				}
				return nil
			})
		},
	}
}

func cleanupCommand() *cli.Command {
	return &cli.Command{
		Name:  "cleanup-notifications",
		Usage: "delete read notifications older than the retention window",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "days", Value: 0, Usage: "retention in days (default from config)"},
		},
		Action: func(c *cli.Context) error {
			return withEnv(c, func(ctx context.Context, e *env) error {
				days := c.Int("days")
				if days == 0 {
					days = e.cfg.Workflow.NotificationRetentionDays
				}
				n, err := e.notifications().CleanupOld(ctx, days)
				if err != nil {
					return err
				}
				fmt.Fprintf(c.App.Writer, "deleted %d read notification(s) older than %d day(s)\n", n, days)
				return nil
			})
		},
	}
}

func cleanupTokensCommand() *cli.Command {
	return &cli.Command{
		Name:  "cleanup-tokens",
		Usage: "delete expired refresh tokens and long-revoked ones",
		Flags: []cli.Flag{
			&cli.DurationFlag{Name: "revoked-for", Value: 30 * 24 * time.Hour, Usage: "keep revoked tokens this long"},
		},
		Action: func(c *cli.Context) error {
			return withEnv(c, func(ctx context.Context, e *env) error {
				n, err := e.repos.TokenRepository.PurgeStale(ctx, c.Duration("revoked-for"))
				if err != nil {
					return err
				}
				fmt.Fprintf(c.App.Writer, "deleted %d refresh token(s)\n", n)
				return nil
			})
		},
	}
}

func workflowStatusCommand() *cli.Command {
	return &cli.Command{
		Name:  "workflow-status",
		Usage: "print application counts per status",
		Action: func(c *cli.Context) error {
			return withEnv(c, func(ctx context.Context, e *env) error {
				review := appServices.NewReviewService(
					e.repos.ApplicationRepository,
					e.repos.ScholarshipRepository,
					e.repos.DocumentRepository,
					e.repos.UserRepository,
					e.database,
					e.notifications(),
					logger.Component("review"),
				)
				resp, err := review.WorkflowStatus(ctx)
				if err != nil {
					return err
				}
				for _, st := range workflow.AllStatuses() {
					fmt.Fprintf(c.App.Writer, "%-26s %d\n", st, resp.StatusCounts[string(st)])
				}
				fmt.Fprintf(c.App.Writer, "%-26s %d\n", "total", resp.Total)
				fmt.Fprintf(c.App.Writer, "%-26s %d\n", "awaiting admin decision", resp.PendingApprovals)
				return nil
			})
		},
	}
}
