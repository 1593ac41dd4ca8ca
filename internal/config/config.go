// Package config holds the CLI configuration.
package config

// Config is populated from flags, LOLTOOLS_* environment variables and an
// optional config file, in that precedence order.
type Config struct {
	// OutputFile receives the decoded JSON; empty means stdout.
	OutputFile string `mapstructure:"output"`

	LogLevel     string `mapstructure:"log_level"`
	LogOutputDir string `mapstructure:"log_output_dir"`
}
