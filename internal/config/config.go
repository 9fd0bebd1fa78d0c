package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var AppFs = afero.NewOsFs()

// Config holds the settings shared by all commands
type Config struct {
	DatabaseURL string
	Format      string
	Output      string
	Processes   int
	Verbose     bool
}

// keys that may also be given as flags
var flagKeys = map[string]string{
	"format":    "format",
	"output":    "output",
	"processes": "processes",
	"verbose":   "verbose",
}

// Load reads configuration from flags, REDPANDA_ environment variables,
// .env files and .redpanda.yaml, in that order of precedence.
func Load(flags *pflag.FlagSet) (*Config, error) {
	home, err := homedir.Dir()
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetFs(AppFs)

	v.SetConfigName(".redpanda")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath(home)
	v.AddConfigPath(filepath.Join(home, ".config", "redpanda"))

	v.SetEnvPrefix("REDPANDA")
	v.AutomaticEnv()
	if err := v.BindEnv("database_url", "REDPANDA_DATABASE_URL", "DATABASE_URL"); err != nil {
		return nil, err
	}

	v.SetDefault("format", "text")
	v.SetDefault("processes", 1)

	if flags != nil {
		for key, name := range flagKeys {
			if flag := flags.Lookup(name); flag != nil {
				if err := v.BindPFlag(key, flag); err != nil {
					return nil, err
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	// .env.local has higher priority
	if err := loadEnv(".env", false); err != nil {
		return nil, err
	}
	if err := loadEnv(".env.local", true); err != nil {
		return nil, err
	}

	cfg := &Config{
		DatabaseURL: v.GetString("database_url"),
		Format:      v.GetString("format"),
		Output:      v.GetString("output"),
		Processes:   v.GetInt("processes"),
		Verbose:     v.GetBool("verbose"),
	}

	return cfg, nil
}

// loadEnv copies the variables of a dotenv file into the environment.
// Without override, variables that are already set keep their value.
func loadEnv(path string, override bool) error {
	file, err := AppFs.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	defer file.Close()

	env, err := godotenv.Parse(file)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	for key, value := range env {
		if _, found := os.LookupEnv(key); found && !override {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return err
		}
	}
	return nil
}
