// Package config loads the client settings from flags, SUDOKU_* environment
// variables and an optional config file, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes the environment variables read by Load, e.g. SUDOKU_PORT.
const EnvPrefix = "SUDOKU"

const (
	keyConfig         = "config"
	keyPort           = "port"
	keyConnectTimeout = "connect-timeout"
	keyWriteTimeout   = "write-timeout"
	keyQuitWord       = "quit-word"
	keyActivation     = "activation"
	keyLogDir         = "log-dir"
	keyLogLevel       = "log-level"
)

var (
	ErrInvalidPort     = errors.New("port must be between 1 and 65535")
	ErrEmptyQuitWord   = errors.New("quit word must not be empty")
	ErrInvalidDuration = errors.New("timeouts must not be negative")
)

// Config holds the client settings.
type Config struct {
	// Port is the game server's port, used when the player types a bare host.
	Port int
	// ConnectTimeout bounds the connection attempt.
	ConnectTimeout time.Duration
	// WriteTimeout bounds each frame write.
	WriteTimeout time.Duration
	// QuitWord ends the session when typed at any prompt.
	QuitWord string
	// Activation makes the player press Enter before each prompt. Until then
	// server notifications print as they arrive; once Enter is pressed they
	// wait for the line to be typed. Disable it for piped input.
	Activation bool
	// LogDir holds the daily log files, named sudoku-client_{date}.log.
	LogDir string
	// LogLevel is the minimum level written to the log.
	LogLevel string
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Port:           7777,
		ConnectTimeout: 10 * time.Second,
		WriteTimeout:   10 * time.Second,
		QuitWord:       "Q",
		Activation:     true,
		LogDir:         "logs",
		LogLevel:       "debug",
	}
}

// RegisterFlags adds the client's flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String(keyConfig, "", "path to a config file (yaml, json or toml)")
	fs.Int(keyPort, d.Port, "game server port")
	fs.Duration(keyConnectTimeout, d.ConnectTimeout, "connection timeout")
	fs.Duration(keyWriteTimeout, d.WriteTimeout, "write timeout")
	fs.String(keyQuitWord, d.QuitWord, "input that ends the session")
	fs.Bool(keyActivation, d.Activation, "press Enter before each prompt")
	fs.String(keyLogDir, d.LogDir, "directory for the daily log files")
	fs.String(keyLogLevel, d.LogLevel, "log level (debug, info, warn, error)")
}

// Load resolves the settings from the parsed flag set, the environment and
// the config file named by --config.
//
// Parameters:
//   - fs: A flag set prepared with RegisterFlags and already parsed
//
// Returns:
//   - The resolved Config, or an error if the config file cannot be read or
//     a value is invalid
func Load(fs *pflag.FlagSet) (Config, error) {
	v := viper.New()

	d := Default()
	v.SetDefault(keyPort, d.Port)
	v.SetDefault(keyConnectTimeout, d.ConnectTimeout)
	v.SetDefault(keyWriteTimeout, d.WriteTimeout)
	v.SetDefault(keyQuitWord, d.QuitWord)
	v.SetDefault(keyActivation, d.Activation)
	v.SetDefault(keyLogDir, d.LogDir)
	v.SetDefault(keyLogLevel, d.LogLevel)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if file := v.GetString(keyConfig); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	cfg := Config{
		Port:           v.GetInt(keyPort),
		ConnectTimeout: v.GetDuration(keyConnectTimeout),
		WriteTimeout:   v.GetDuration(keyWriteTimeout),
		QuitWord:       v.GetString(keyQuitWord),
		Activation:     v.GetBool(keyActivation),
		LogDir:         v.GetString(keyLogDir),
		LogLevel:       v.GetString(keyLogLevel),
	}

	return cfg, cfg.Validate()
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, c.Port)
	}

	if c.QuitWord == "" {
		return ErrEmptyQuitWord
	}

	if c.ConnectTimeout < 0 || c.WriteTimeout < 0 {
		return ErrInvalidDuration
	}

	return nil
}
