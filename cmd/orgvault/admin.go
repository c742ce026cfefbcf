package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"syscall"
	"text/tabwriter"

	"golang.org/x/term"

	"github.com/orgvault/orgvault/internal/adapter/postgres"
	"github.com/orgvault/orgvault/internal/config"
	"github.com/orgvault/orgvault/internal/domain/org"
	"github.com/orgvault/orgvault/internal/service"
)

// runAdmin dispatches admin subcommands (create-org, list-orgs, reset-password).
func runAdmin(args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "--help" {
		printAdminHelp()
		return nil
	}

	switch args[0] {
	case "create-org":
		return runAdminCreateOrg(args[1:])
	case "list-orgs":
		return runAdminListOrgs(args[1:])
	case "reset-password":
		return runAdminResetPassword(args[1:])
	default:
		printAdminHelp()
		return fmt.Errorf("unknown admin command: %s", args[0])
	}
}

func printAdminHelp() {
	fmt.Fprintf(os.Stderr, `Usage: orgvault admin <command> [options]

Commands:
  create-org       Provision a new organization with its admin account
  list-orgs        List all registered organizations
  reset-password   Reset an organization's admin password
  help             Show this help message

Examples:
  orgvault admin create-org --name acme --email admin@acme.io
  orgvault admin list-orgs
  orgvault admin reset-password --org acme
`)
}

type adminDeps struct {
	lifecycle *service.LifecycleService
	auth      *service.AuthService
	cleanup   func()
}

func loadAdminDeps() (*adminDeps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	registry := postgres.NewRegistry(pool)
	partitions := postgres.NewPartitionStore(pool)

	// The CLI talks straight to postgres; no queue or cache needed.
	return &adminDeps{
		lifecycle: service.NewLifecycleService(registry, partitions, nil, nil, &cfg.Auth, cfg.Cache.TTL),
		auth:      service.NewAuthService(registry, partitions, nil, &cfg.Auth, cfg.Cache.TTL),
		cleanup:   pool.Close,
	}, nil
}

func runAdminCreateOrg(args []string) error {
	fs := flag.NewFlagSet("create-org", flag.ContinueOnError)
	name := fs.String("name", "", "organization name (required)")
	email := fs.String("email", "", "admin email address (required)")
	password := fs.String("password", "", "admin password (prompted if not provided)") //nolint:gosec // CLI flag
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *name == "" {
		return fmt.Errorf("--name is required")
	}
	if *email == "" {
		return fmt.Errorf("--email is required")
	}

	pass := *password
	if pass == "" {
		var err error
		pass, err = promptPassword("Admin password: ")
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		confirm, err := promptPassword("Confirm password: ")
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		if pass != confirm {
			return fmt.Errorf("passwords do not match")
		}
	}

	deps, err := loadAdminDeps()
	if err != nil {
		return err
	}
	defer deps.cleanup()

	rec, err := deps.lifecycle.Create(context.Background(), org.CreateRequest{
		Name:     *name,
		Email:    *email,
		Password: pass,
	})
	if err != nil {
		return fmt.Errorf("create organization: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Organization created: %s (partition=%s, admin=%s)\n",
		rec.Name, rec.PartitionName, rec.AdminEmail)
	return nil
}

func runAdminListOrgs(args []string) error {
	fs := flag.NewFlagSet("list-orgs", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	deps, err := loadAdminDeps()
	if err != nil {
		return err
	}
	defer deps.cleanup()

	orgs, err := deps.lifecycle.List(context.Background())
	if err != nil {
		return fmt.Errorf("list organizations: %w", err)
	}

	if len(orgs) == 0 {
		fmt.Println("No organizations found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tPARTITION\tADMIN_EMAIL\tACTIVE\tCREATED_AT")
	for i := range orgs {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n",
			orgs[i].Name, orgs[i].PartitionName, orgs[i].AdminEmail,
			orgs[i].IsActive, orgs[i].CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}

func runAdminResetPassword(args []string) error {
	fs := flag.NewFlagSet("reset-password", flag.ContinueOnError)
	orgName := fs.String("org", "", "organization name (required)")
	password := fs.String("password", "", "new password (prompted if not provided)") //nolint:gosec // CLI flag
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *orgName == "" {
		return fmt.Errorf("--org is required")
	}

	newPass := *password
	if newPass == "" {
		var err error
		newPass, err = promptPassword("New password: ")
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		confirm, err := promptPassword("Confirm password: ")
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		if newPass != confirm {
			return fmt.Errorf("passwords do not match")
		}
	}

	deps, err := loadAdminDeps()
	if err != nil {
		return err
	}
	defer deps.cleanup()

	if err := deps.auth.ResetAdminPassword(context.Background(), *orgName, newPass); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Password reset successfully for organization %s\n", *orgName)
	return nil
}

// promptPassword reads a password from the terminal without echoing.
func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(syscall.Stdin)) //nolint:unconvert // int conversion needed on some platforms
	fmt.Fprintln(os.Stderr)                         // newline after password input
	if err != nil {
		return "", err
	}
	return string(b), nil
}
