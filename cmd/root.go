/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/valpere/noveltran/internal"
	"github.com/valpere/noveltran/internal/config"
)

var (
	cfgFile  string
	workDir  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "noveltran",
	Short: "Incremental web novel translator",
	Long: `A CLI application that scrapes a serialized web novel chapter by chapter
and translates it line by line with a language model.

Every translated line is checkpointed, so an interrupted run resumes exactly
where it stopped. Character names and recurring vocabulary are kept in an
embedding-indexed term store that later lines and chapters consult.

Use "noveltran config init" to write a starting configuration and
"noveltran run" to translate.`,
	Version:       internal.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// dashFlags lets --work_dir and --work-dir both work.
func dashFlags(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}

func init() {
	rootCmd.SetGlobalNormalizationFunc(dashFlags)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "./noveltran.yaml", "Config file path")
	rootCmd.PersistentFlags().StringVar(&workDir, "work-dir", "", "Work directory (overrides work_dir)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
}

// loadConfig reads .env, the config file, NOVELTRAN_* variables and the
// persistent flags, in increasing order of precedence. A missing config file
// is fine unless --config was given explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	config.BindEnv(v)

	v.SetConfigFile(cfgFile)
	fromFile := true
	if err := v.ReadInConfig(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) || cmd.Flags().Changed("config") {
			return nil, nil, fmt.Errorf("failed to read config %s: %w", cfgFile, err)
		}
		fromFile = false
	}

	flags := rootCmd.PersistentFlags()
	if flags.Changed("work-dir") {
		v.Set("work_dir", workDir)
	}
	if flags.Changed("log-level") {
		v.Set("log.level", logLevel)
	}

	cfg, err := config.Load(v)
	if err != nil {
		return nil, nil, err
	}

	logger := cfg.Log.NewLogger(os.Stderr)
	slog.SetDefault(logger)
	if fromFile {
		logger.Debug("configuration loaded", "file", v.ConfigFileUsed())
	} else {
		logger.Debug("no config file, using defaults", "file", cfgFile)
	}
	return cfg, logger, nil
}
