package app

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/autopeer-io/vehicle-api/pkg/log"
)

const configFlagName = "config"

// ReloadFunc receives the viper instance after the watched config file changed.
type ReloadFunc func(v *viper.Viper) error

var cfgFile string

func addConfigFlag(basename string, fs *pflag.FlagSet) {
	fs.StringVarP(&cfgFile, configFlagName, "c", cfgFile,
		fmt.Sprintf("Read %s configuration from the specified file (yaml, json or toml).", basename))
}

// loadConfig layers flags, environment and the optional config file into a.v.
// Precedence: explicit flag > env > config file > flag default.
func (a *App) loadConfig(fs *pflag.FlagSet) error {
	if err := a.v.BindPFlags(fs); err != nil {
		return err
	}

	if a.envPrefix != "" {
		a.v.SetEnvPrefix(a.envPrefix)
	}
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	a.v.AutomaticEnv()

	if a.noConfig || cfgFile == "" {
		return nil
	}

	a.v.SetConfigFile(cfgFile)
	if err := a.v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read configuration file %q: %w", cfgFile, err)
	}
	return nil
}

func (a *App) watchConfig() {
	a.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		log.Info("Configuration file changed", "path", e.Name, "op", e.Op.String())

		for _, fn := range a.onReload {
			if err := fn(a.v); err != nil {
				log.Error(err, "Failed to apply reloaded configuration", "path", e.Name)
			}
		}
	})
	a.v.WatchConfig()
}

// ReloadLogLevel is a ReloadFunc applying a changed "log.level" to the global logger.
func ReloadLogLevel(v *viper.Viper) error {
	level := v.GetString("log.level")
	if level == "" || level == log.Level() {
		return nil
	}
	if err := log.SetLevel(level); err != nil {
		return err
	}
	log.Info("Log level changed", "level", level)
	return nil
}
