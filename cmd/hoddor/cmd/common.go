package cmd

import (
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/viper"
	"golang.org/x/term"

	"hoddor.sh/internal/config"
	"hoddor.sh/internal/observability"
	"hoddor.sh/internal/storage"
	"hoddor.sh/vault"
)

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	if root := viper.GetString("storage.root_dir"); root != "" {
		cfg.Storage.RootDir = root
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

func buildEngine() (*vault.Engine, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	logger := observability.InitLogger(observability.LogConfig{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		OutputPath:  cfg.Log.Output,
		ServiceName: "hoddor",
	})

	engine := vault.NewEngine(vault.EngineOptions{
		Storage: storage.NewFileStorage(cfg.Storage.RootDir),
		Logger:  logger,
	})
	return engine, cfg, nil
}

// promptPassphrase reads a passphrase without echoing it. Falls back to the
// HODDOR_PASSPHRASE environment variable for scripted use.
func promptPassphrase() (string, error) {
	if pass := os.Getenv("HODDOR_PASSPHRASE"); pass != "" {
		return pass, nil
	}

	fmt.Fprint(os.Stderr, "Passphrase: ")
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read passphrase: %w", err)
	}
	return string(raw), nil
}

func fail(err error) error {
	fmt.Fprintf(os.Stderr, "%s %v\n", red("Error:"), err)
	return err
}
