package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Iron-Ham/screenreel/internal/app"
	"github.com/Iron-Ham/screenreel/internal/config"
	"github.com/Iron-Ham/screenreel/internal/errors"
	"github.com/Iron-Ham/screenreel/internal/logging"
	"github.com/Iron-Ham/screenreel/internal/platform"
)

var rootCmd = &cobra.Command{
	Use:   "screenreel",
	Short: "Screen capture, recording and zoom annotation",
	Long: `screenreel captures live previews of screens and windows, records the
screen with ffmpeg, samples the cursor while recording and lets you mark
zoomed-in spans that are saved next to the video.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		printError(rootCmd.ErrOrStderr(), err)
	}
	return err
}

// printError reports a failed command. Errors below SeverityError print as
// warnings; errors that are not meant for end users point at the debug log.
func printError(w io.Writer, err error) {
	label := "Error"
	if errors.GetSeverity(err) < errors.SeverityError {
		label = "Warning"
	}
	fmt.Fprintf(w, "%s: %v\n", label, err)
	if errors.IsRetryable(err) {
		fmt.Fprintln(w, "This may be temporary; try again.")
	}
	if !errors.IsUserFacing(err) {
		fmt.Fprintln(w, "Run 'screenreel logs' for details.")
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/screenreel/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("SCREENREEL")
	// e.g., SCREENREEL_CAPTURE_MAX_FPS for capture.max_fps
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}

// newLogger opens the debug log described by cfg, or a discarding logger
// when logging is disabled.
func newLogger(cfg *config.Config) *logging.Logger {
	if !cfg.Logging.Enabled {
		return logging.NopLogger()
	}
	logger, err := logging.NewLoggerWithRotation(cfg.Logging.ResolveDir(), cfg.Logging.Level, logging.RotationConfig{
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		Compress:   cfg.Logging.Compress,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: logging disabled: %v\n", err)
		return logging.NopLogger()
	}
	return logger
}

// newApp loads the configuration and builds the application on the native
// platform. The returned cleanup stops everything and closes the log.
func newApp() (*app.App, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	logger := newLogger(cfg)
	native := platform.NewNative(logger)
	a := app.New(cfg, native, logger)

	cleanup := func() {
		if err := a.Close(); err != nil {
			logger.Warn("shutdown failed", "error", err)
		}
		_ = native.Close()
		_ = logger.Close()
	}
	return a, cleanup, nil
}
