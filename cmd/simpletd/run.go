package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/shared-object/simpletd/cmd/simpletd/internal/prompt"
	"github.com/shared-object/simpletd/cmd/simpletd/internal/tui"
	"github.com/shared-object/simpletd/pkg/auth"
	"github.com/shared-object/simpletd/pkg/client"
	"github.com/shared-object/simpletd/pkg/config"
	"github.com/shared-object/simpletd/pkg/engine"
	"github.com/shared-object/simpletd/pkg/engine/remote"
	"github.com/shared-object/simpletd/pkg/engine/tdjson"
	"github.com/shared-object/simpletd/pkg/tdmsg"
)

// defaultConfigFile is consulted when no -config flag is given.
const defaultConfigFile = "simpletd.yaml"

type runOptions struct {
	configPath string
	dataDir    string
	engineURL  string
	verbose    bool
	loginOnly  bool
}

func run(opts runOptions) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := newLogger(opts.verbose)

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return err
	}
	pollTimeout, err := cfg.PollTimeoutDuration()
	if err != nil {
		return err
	}

	eng, err := buildEngine(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = eng.Close() }()

	c, err := client.New(eng, client.Options{
		PollTimeout: pollTimeout,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	if _, err := c.Execute(tdmsg.New("setLogVerbosityLevel", tdmsg.Message{
		"new_verbosity_level": cfg.Verbosity,
	})); err != nil {
		logger.Warn().Err(err).Msg("set engine verbosity")
	}

	provider := prompt.New()
	flow := auth.NewFlow(c, provider, auth.Parameters{
		APIID:              cfg.APIID,
		APIHash:            cfg.APIHash,
		DatabaseDirectory:  cfg.DataDir,
		UseMessageDatabase: *cfg.UseMessageDatabase,
		UseSecretChats:     *cfg.UseSecretChats,
		SystemLanguageCode: cfg.SystemLanguageCode,
		DeviceModel:        cfg.DeviceModel,
		ApplicationVersion: cfg.ApplicationVersion,
	}, auth.Options{
		PollTimeout: pollTimeout,
		Logger:      logger,
	})

	outcome, err := flow.Run(ctx)
	if err != nil {
		return err
	}

	switch outcome {
	case auth.OutcomeUnsupported:
		fmt.Println("This account requires a Telegram Premium purchase to sign up, which simpletd does not support.")
		return nil
	case auth.OutcomeClosed:
		fmt.Println("The session was closed before authorization completed.")
		return nil
	}

	if opts.loginOnly {
		fmt.Println("Authorization complete.")
		return nil
	}

	me, err := whoAmI(ctx, c)
	if err != nil {
		return err
	}

	return tui.Run(ctx, c, me)
}

func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// loadConfig resolves the configuration: explicit flag, then
// simpletd.yaml in the working directory, then built-in defaults.
// Flag overrides are applied afterwards.
func loadConfig(opts runOptions) (config.Config, error) {
	var (
		cfg config.Config
		err error
	)
	switch {
	case opts.configPath != "":
		cfg, err = config.Load(opts.configPath)
	default:
		cfg, err = config.Load(defaultConfigFile)
		if errors.Is(err, os.ErrNotExist) {
			cfg, err = config.Default(), nil
		}
	}
	if err != nil {
		return config.Config{}, err
	}

	if opts.dataDir != "" {
		cfg.DataDir = opts.dataDir
	}
	if opts.engineURL != "" {
		cfg.Engine.Kind = config.EngineRemote
		cfg.Engine.URL = opts.engineURL
	}
	return cfg, nil
}

func buildEngine(ctx context.Context, cfg config.Config, logger zerolog.Logger) (engine.Engine, error) {
	var (
		eng engine.Engine
		err error
	)
	switch cfg.Engine.Kind {
	case config.EngineRemote:
		eng, err = remote.Dial(ctx, cfg.Engine.URL)
	default:
		eng = tdjson.New()
	}
	if err != nil {
		return nil, err
	}

	if r, ok := eng.(engine.LogReporter); ok {
		r.SetLogHandler(cfg.Verbosity, engine.NewLogHandler(logger, nil))
	}
	return eng, nil
}

// whoAmI labels the logged-in account for the session title.
func whoAmI(ctx context.Context, c *client.Client) (string, error) {
	resp, err := c.Invoke(ctx, tdmsg.New("getMe", nil))
	if err != nil {
		return "", fmt.Errorf("getMe: %w", err)
	}
	if resp.Type() == "error" {
		return "", fmt.Errorf("getMe: %s", resp.String("message"))
	}

	if name := resp.String("first_name"); name != "" {
		return name, nil
	}
	if phone := resp.String("phone_number"); phone != "" {
		return "+" + phone, nil
	}
	return fmt.Sprintf("user %d", resp.Int64("id")), nil
}
