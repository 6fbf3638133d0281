package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/vallemsec/spectra-web/internal/config"
	"github.com/vallemsec/spectra-web/internal/logging"
	"go.uber.org/zap"
)

// skipConfigAnnotation marks commands that run without loading configuration.
const skipConfigAnnotation = "spectra-web/skip-config"

const defaultEnvFile = ".env"

var (
	cfgFile string
	envFile string
)

// AppContext carries the state every command shares once configuration is
// loaded.
type AppContext struct {
	Logger *zap.Logger
	Config config.Config
	Viper  *viper.Viper
}

type appContextKey struct{}

// globalAppContext backs getAppContext for commands executed without a
// context, mostly tests.
var globalAppContext *AppContext

var rootCmd = &cobra.Command{
	Use:   "spectra-web",
	Short: "Report website for spectra security scans",
	Long: `spectra-web serves the scan form and the results page for the spectra
scanner. Results come from the live scanner or from bundled fixtures.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Annotations[skipConfigAnnotation] == "true" {
			return nil
		}
		appCtx, err := loadAppContext(cmd)
		if err != nil {
			return err
		}
		storeAppContext(cmd, appCtx)
		appCtx.Logger.Debug("config_loaded",
			zap.String("mode", string(appCtx.Config.Mode)),
			zap.String("config_file", appCtx.Viper.ConfigFileUsed()))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if appCtx := getAppContext(cmd); appCtx != nil && appCtx.Logger != nil {
			_ = appCtx.Logger.Sync()
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is ./"+config.DefaultFile()+" or "+config.Dir()+"/"+config.DefaultFile()+")")
	flags.StringVar(&envFile, "env-file", "", "dotenv file loaded into the environment (default is ./"+defaultEnvFile+")")
	flags.String("mode", "", "result source: live or fixture")
	flags.String("scanner-endpoint", "", "base URL of the spectra scanner")
	flags.String("cms-endpoint", "", "base URL of the blog feed")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("log-format", "", "log format (json or console)")
	flags.String("log-file", "", "also write logs to this rotated file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadAppContext resolves configuration with the precedence
// flags > environment > config file > defaults. Values from the dotenv file
// enter through the environment and never override variables already set.
func loadAppContext(cmd *cobra.Command) (*AppContext, error) {
	if err := loadEnvFile(envFile); err != nil {
		return nil, err
	}

	v := viper.New()
	config.SetDefaults(v)
	if err := readConfigFile(v, cfgFile); err != nil {
		return nil, err
	}
	if err := bindFlags(v, cmd.Flags()); err != nil {
		return nil, err
	}

	cfg := config.FromViper(v)
	if err := cfg.Validate(); err != nil {
		return nil, &ConfigError{Path: v.ConfigFileUsed(), Err: err}
	}

	logger, err := logging.New(logging.Options{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		return nil, &ConfigError{Path: v.ConfigFileUsed(), Err: err}
	}

	return &AppContext{Logger: logger, Config: cfg, Viper: v}, nil
}

// loadEnvFile loads path, or ./.env when path is empty. Only an explicitly
// named file has to exist.
func loadEnvFile(path string) error {
	explicit := path != ""
	if !explicit {
		path = defaultEnvFile
	}
	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// readConfigFile reads path, or searches the working directory and the
// per-user config directory. A missing searched file is not an error.
func readConfigFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return &ConfigError{Path: path, Err: err}
		}
		return nil
	}

	v.SetConfigName(config.AppName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath(config.Dir())
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return &ConfigError{Path: v.ConfigFileUsed(), Err: err}
	}
	return nil
}

func storeAppContext(cmd *cobra.Command, appCtx *AppContext) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, appContextKey{}, appCtx))
	globalAppContext = appCtx
}

func getAppContext(cmd *cobra.Command) *AppContext {
	if ctx := cmd.Context(); ctx != nil {
		if appCtx, ok := ctx.Value(appContextKey{}).(*AppContext); ok {
			return appCtx
		}
	}
	return globalAppContext
}

// commandContext returns cmd's context, or a background context for
// commands invoked directly.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
