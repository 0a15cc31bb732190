package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/devmarvs/digibank"
	"github.com/devmarvs/digibank/config"
	"github.com/devmarvs/digibank/credstore"
	"github.com/devmarvs/digibank/db"
	"github.com/devmarvs/digibank/identity"
	"github.com/devmarvs/digibank/logging"
	"github.com/devmarvs/digibank/migrate"
	"github.com/devmarvs/digibank/validate"
)

const envPrefix = "DIGIBANK_"

func main() {
	if len(os.Args) < 2 {
		serveCmd(nil)
		return
	}

	switch os.Args[1] {
	case "serve":
		serveCmd(os.Args[2:])
	case "status":
		statusCmd(os.Args[2:])
	case "logout":
		logoutCmd(os.Args[2:])
	case "migrate":
		migrateCmd(os.Args[2:])
	case "help", "-h", "--help":
		usage()
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Println("digibank client")
	fmt.Println("\nCommands:")
	fmt.Println("  digibank serve [-config digibank.yaml] [-env development.yaml] [-profile default]")
	fmt.Println("  digibank serve -config-dir ./config -env staging")
	fmt.Println("  digibank status [-config ...] [-profile ...]")
	fmt.Println("  digibank logout [-config ...] [-profile ...]")
	fmt.Println("  digibank migrate <plan|up|down> [-config ...] [-steps 1]")
}

type configFlags struct {
	dir     *string
	base    *string
	env     *string
	secrets *string
	profile *string
}

func bindConfigFlags(fs *flag.FlagSet) configFlags {
	return configFlags{
		dir:     fs.String("config-dir", "", "Directory holding base, <env> and secrets config layers"),
		base:    fs.String("config", "", "Base config file (JSON or YAML)"),
		env:     fs.String("env", "", "Environment overlay: a file, or a layer name with -config-dir"),
		secrets: fs.String("secrets", "", "Secrets overlay config file"),
		profile: fs.String("profile", "", "Credential profile"),
	}
}

func (f configFlags) load() config.Config {
	profile := config.Profile{
		BasePath:    *f.base,
		EnvPath:     *f.env,
		SecretsPath: *f.secrets,
		EnvPrefix:   envPrefix,
	}
	if *f.dir != "" {
		profile = config.ProfileDir(*f.dir, *f.env, envPrefix)
	}
	cfg, err := config.LoadProfile(profile)
	if err != nil {
		fatal(err)
	}
	if *f.profile != "" {
		cfg.Profile = *f.profile
	}
	return cfg
}

func serveCmd(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	flags := bindConfigFlags(fs)
	_ = fs.Parse(args)
	cfg := flags.load()

	logger := logging.NewLogger(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	validate.OnFailure(digibank.ValidationLogger(logger))

	app, err := digibank.New(context.Background(), cfg, digibank.WithLogger(logger))
	if err != nil {
		fatal(err)
	}
	defer app.Close()

	if err := app.RunWithSignals(); err != nil {
		fatal(err)
	}
}

func statusCmd(args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	flags := bindConfigFlags(fs)
	_ = fs.Parse(args)
	cfg := flags.load()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	store, closeStore := openStore(ctx, cfg)
	defer closeStore()

	access, err := store.AccessToken(ctx)
	switch {
	case errors.Is(err, credstore.ErrNotFound):
		fmt.Printf("profile %s: signed out\n", cfg.Profile)
	case err != nil:
		fatal(err)
	default:
		subject := identity.Subject(access)
		if subject == "" {
			subject = "unknown user"
		}
		fmt.Printf("profile %s: signed in as %s\n", cfg.Profile, subject)
	}
}

func logoutCmd(args []string) {
	fs := flag.NewFlagSet("logout", flag.ExitOnError)
	flags := bindConfigFlags(fs)
	_ = fs.Parse(args)
	cfg := flags.load()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	store, closeStore := openStore(ctx, cfg)
	defer closeStore()

	if err := store.Clear(ctx); err != nil {
		fatal(err)
	}
	fmt.Printf("profile %s: signed out\n", cfg.Profile)
}

func openStore(ctx context.Context, cfg config.Config) (credstore.Store, func()) {
	logger := logging.NewLogger(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	store, err := credstore.Open(ctx, cfg.CredentialStore, cfg.Profile, logger)
	if err != nil {
		fatal(err)
	}
	return store, func() {
		if closer, ok := store.(interface{ Close() error }); ok {
			_ = closer.Close()
		}
	}
}

func migrateCmd(args []string) {
	if len(args) == 0 {
		fmt.Println("usage: digibank migrate <plan|up|down> ...")
		return
	}

	fs := flag.NewFlagSet("migrate "+args[0], flag.ExitOnError)
	flags := bindConfigFlags(fs)
	steps := fs.Int("steps", 1, "Number of migrations to roll back")
	_ = fs.Parse(args[1:])
	cfg := flags.load()

	if cfg.CredentialStore.Driver != config.DriverPostgres {
		fatal(fmt.Errorf("migrate: credential store driver is %q, not %q", cfg.CredentialStore.Driver, config.DriverPostgres))
	}

	ctx := context.Background()
	conn, err := db.OpenPostgres(ctx, cfg.CredentialStore.PostgresDSN, db.Options{MaxOpenConns: 2})
	if err != nil {
		fatal(err)
	}
	defer conn.Close()
	runner := credstore.Migrations(conn, cfg.CredentialStore.Table)

	switch args[0] {
	case "plan":
		printPlan(ctx, runner)
	case "up":
		count, err := runner.Up(ctx)
		if err != nil {
			fatal(err)
		}
		fmt.Printf("applied %d migration(s)\n", count)
	case "down":
		count, err := runner.Down(ctx, *steps)
		if err != nil {
			fatal(err)
		}
		fmt.Printf("rolled back %d migration(s)\n", count)
	default:
		fmt.Println("usage: digibank migrate <plan|up|down> ...")
	}
}

func printPlan(ctx context.Context, runner *migrate.Runner) {
	plan, err := runner.Plan(ctx)
	if err != nil {
		fatal(err)
	}
	for _, entry := range plan {
		status := "pending"
		if entry.Applied {
			status = "applied"
		}
		fmt.Printf("%04d %-24s %s\n", entry.Version, entry.Name, status)
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
