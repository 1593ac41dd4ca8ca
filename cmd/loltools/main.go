// Package main provides the loltools command for decoding RMAN release
// manifests and WAD archives to JSON.
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mossly/lolFileTools/internal/config"
	"github.com/mossly/lolFileTools/internal/logging"
	"github.com/mossly/lolFileTools/pkg/rman"
	"github.com/mossly/lolFileTools/pkg/wad"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:          "loltools",
	Short:        "Decode League release manifests (RMAN) and archives (WAD) to JSON",
	SilenceUsage: true,
}

var rmanCmd = &cobra.Command{
	Use:   "rman <file>",
	Short: "Decode an RMAN release manifest",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return decode(args[0], func(data []byte) (any, error) {
			f, err := rman.Parse(data)
			if err != nil {
				return nil, err
			}
			return f, nil
		})
	},
}

var wadCmd = &cobra.Command{
	Use:   "wad <file>",
	Short: "Decode a WAD archive table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return decode(args[0], func(data []byte) (any, error) {
			f, err := wad.Parse(data)
			if err != nil {
				return nil, err
			}
			return f, nil
		})
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to config file")
	rootCmd.PersistentFlags().StringP("output", "o", "", "write JSON to this file instead of stdout")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-output-dir", "", "directory to write log files (logs go to both stderr and file)")

	viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_output_dir", rootCmd.PersistentFlags().Lookup("log-output-dir"))

	rootCmd.AddCommand(rmanCmd, wadCmd)
}

// initConfig reads in the config file and environment variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "loltools"))
		}
		viper.SetConfigName("config")
		viper.SetConfigType("toml")
	}

	viper.SetEnvPrefix("LOLTOOLS")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// decode reads path, runs parse and writes the result as indented JSON.
func decode(path string, parse func([]byte) (any, error)) error {
	cfg := &config.Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := logging.Setup(cfg.LogLevel, cfg.LogOutputDir); err != nil {
		return fmt.Errorf("could not set up logging: %w", err)
	}

	slog.Info("decoding", "input", path)

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	doc, err := parse(data)
	if err != nil {
		slog.Error("decode failed", "input", path, "error", err)
		return err
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}
	out = append(out, '\n')

	if cfg.OutputFile == "" {
		_, err = os.Stdout.Write(out)
		return err
	}
	if err := os.WriteFile(cfg.OutputFile, out, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	slog.Info("wrote output", "path", cfg.OutputFile, "bytes", len(out))
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
