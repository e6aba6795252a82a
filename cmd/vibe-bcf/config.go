package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

const configName = ".vibe-bcf"

// initConfig loads the config file and environment. A missing default
// config file is not an error.
func (a *app) initConfig() error {
	a.cfg.SetDefault("threads", 0)
	a.cfg.SetDefault("lazy", false)
	a.cfg.SetDefault("log.level", "warn")
	a.cfg.SetDefault("duckdb.path", "")

	a.cfg.SetEnvPrefix("VIBE_BCF")
	a.cfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	a.cfg.AutomaticEnv()

	if a.cfgFile != "" {
		a.cfg.SetConfigFile(a.cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		a.cfg.AddConfigPath(home)
		a.cfg.SetConfigName(configName)
		a.cfg.SetConfigType("yaml")
	}

	if err := a.cfg.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}

// newLogger builds a console logger writing to w at the given level.
func newLogger(level string, w io.Writer) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	enc := zap.NewDevelopmentEncoderConfig()
	enc.TimeKey = ""
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.AddSync(w), lvl)
	return zap.New(core), nil
}

func (a *app) newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage vibe-bcf configuration",
		Long:  "Show, get, or set configuration values. Config is stored in ~/.vibe-bcf.yaml.",
		Example: `  vibe-bcf config                          # show all config
  vibe-bcf config set threads 4            # inflate with 4 workers
  vibe-bcf config get duckdb.path          # get a value`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runConfigShow()
		},
	}

	cmd.AddCommand(a.newConfigSetCmd())
	cmd.AddCommand(a.newConfigGetCmd())

	return cmd
}

func (a *app) newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runConfigSet(args[0], args[1])
		},
	}
}

func (a *app) newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runConfigGet(args[0])
		},
	}
}

// configKeys are the keys written by "config" and shown by default.
var configKeys = []string{"threads", "lazy", "log.level", "duckdb.path"}

func (a *app) runConfigShow() error {
	settings := make(map[string]any)
	keys := append([]string{}, configKeys...)
	for _, k := range a.cfg.AllKeys() {
		if !contains(keys, k) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		setNested(settings, k, a.cfg.Get(k))
	}

	out, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	fmt.Fprint(a.stdout, string(out))
	return nil
}

func (a *app) runConfigSet(key, value string) error {
	// Parse boolean-like values
	switch value {
	case "true", "yes", "on":
		a.cfg.Set(key, true)
	case "false", "no", "off":
		a.cfg.Set(key, false)
	default:
		a.cfg.Set(key, value)
	}

	// Ensure config file exists
	cfgFile := a.cfg.ConfigFileUsed()
	if cfgFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("cannot determine home directory: %w", err)
		}
		cfgFile = filepath.Join(home, configName+".yaml")
	}

	if err := a.cfg.WriteConfigAs(cfgFile); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Fprintf(a.stdout, "Set %s = %s in %s\n", key, value, cfgFile)
	return nil
}

func (a *app) runConfigGet(key string) error {
	if !a.cfg.IsSet(key) && !contains(configKeys, key) {
		return fmt.Errorf("key %q is not set", key)
	}
	fmt.Fprintln(a.stdout, a.cfg.Get(key))
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// setNested stores v under a dotted key, creating intermediate maps.
func setNested(m map[string]any, key string, v any) {
	parts := strings.Split(key, ".")
	for _, p := range parts[:len(parts)-1] {
		next, ok := m[p].(map[string]any)
		if !ok {
			next = make(map[string]any)
			m[p] = next
		}
		m = next
	}
	m[parts[len(parts)-1]] = v
}
