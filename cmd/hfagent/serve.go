package main

import (
	"context"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/abonvalle/hf-agent-course/pkg/config"
	"github.com/abonvalle/hf-agent-course/pkg/logger"
	"github.com/abonvalle/hf-agent-course/pkg/webui"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server for browsing evaluation runs",
	Long: `Start the web server that exposes the run history as a small JSON API
with a static status page on top. This is the process a hosted Space
runs; it binds 0.0.0.0:7860 by default to match the platform's expected
application port.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		appConfig, err := config.FromViper()
		if err != nil {
			return err
		}

		store, err := openRunStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		watchEnvFile(ctx, viper.GetString("env_file"))

		server, err := webui.NewServer(appConfig.ServeAddr(), store)
		if err != nil {
			return err
		}
		return server.Start(ctx)
	},
}

// watchEnvFile reloads the env file whenever it changes on disk, so a
// token rotated on the hosting platform is picked up without a restart.
func watchEnvFile(ctx context.Context, path string) {
	watcher := viper.New()
	watcher.SetConfigFile(path)
	watcher.SetConfigType("env")
	if err := watcher.ReadInConfig(); err != nil {
		logger.G(ctx).WithField("path", path).Debug("env file not watchable, skipping hot reload")
		return
	}

	watcher.OnConfigChange(func(event fsnotify.Event) {
		log := logger.G(ctx).WithField("path", event.Name)
		log.Info("env file changed, reloading")
		// Unlike startup, a reload overwrites existing values so
		// rotated tokens take effect.
		for _, key := range watcher.AllKeys() {
			if err := os.Setenv(strings.ToUpper(key), watcher.GetString(key)); err != nil {
				log.WithError(err).WithField("key", key).Warn("failed to update environment")
			}
		}
	})
	watcher.WatchConfig()
}

func init() {
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind the web server to")
	serveCmd.Flags().Int("port", 7860, "Port to bind the web server to")

	viper.BindPFlag("serve.host", serveCmd.Flags().Lookup("host"))
	viper.BindPFlag("serve.port", serveCmd.Flags().Lookup("port"))
}
