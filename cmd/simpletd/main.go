// Command simpletd is a minimal Telegram client built on the TDLib JSON
// interface. By default it authorizes the account and drops into an
// interactive terminal session; the login subcommand stops once the
// account is authorized, which is useful for priming a data directory.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	args := os.Args[1:]

	// Handle subcommands before flag parsing.
	login := false
	if len(args) > 0 && args[0] == "login" {
		login = true
		args = args[1:]
	}

	fs := flag.NewFlagSet("simpletd", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: simpletd [flags]\n       simpletd login [flags]\n\nFlags:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nCommands:\n  login  Authorize the account and exit\n")
	}

	configPath := fs.String("config", "", "path to configuration file (default: simpletd.yaml if present)")
	envFile := fs.String("env", ".env", "path to .env file (ignored if missing)")
	dataDir := fs.String("data-dir", "", "override the engine data directory")
	engineURL := fs.String("engine-url", "", "connect to a remote engine bridge instead of linking tdjson")
	verbose := fs.Bool("verbose", false, "log at debug level")
	_ = fs.Parse(args)

	if err := loadDotEnv(*envFile); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	err := run(runOptions{
		configPath: *configPath,
		dataDir:    *dataDir,
		engineURL:  *engineURL,
		verbose:    *verbose,
		loginOnly:  login,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadDotEnv loads environment variables from path. Missing files are ignored.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
