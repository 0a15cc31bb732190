package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/devmarvs/digibank"
	"github.com/devmarvs/digibank/config"
	"github.com/devmarvs/digibank/desktop"
	"github.com/devmarvs/digibank/logging"
	"github.com/devmarvs/digibank/validate"
)

func main() {
	base := flag.String("config", "", "Base config file (JSON or YAML)")
	profile := flag.String("profile", "", "Credential profile")
	flag.Parse()

	cfg, err := config.LoadProfile(config.Profile{BasePath: *base, EnvPrefix: "DIGIBANK_"})
	if err != nil {
		fatal(err)
	}
	if *profile != "" {
		cfg.Profile = *profile
	}

	logger := logging.NewLogger(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	validate.OnFailure(digibank.ValidationLogger(logger))

	app, err := digibank.New(context.Background(), cfg, digibank.WithLogger(logger))
	if err != nil {
		fatal(err)
	}
	defer app.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := app.Run(ctx); err != nil {
			app.Logger().Error("web views stopped", "error", err)
		}
	}()

	desktop.Run(desktop.WindowConfig{
		Title:    "DigiBank",
		Width:    560,
		Height:   420,
		Session:  app.Session(),
		Identity: app.Identity(),
		Accounts: app.Accounts(),
		Tokens:   app.Store(),
		WebURL:   app.URL(),
		Logger:   app.Logger(),
	})
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
