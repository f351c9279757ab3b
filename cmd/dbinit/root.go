package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Station-Manager/dbinit"
	"github.com/Station-Manager/dbinit/internal/log"
	"github.com/Station-Manager/dbinit/internal/tracing"
)

// config is the command line configuration, read from the config file, the
// DBINIT_* environment variables and the flags.
type config struct {
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
	// Manifests are glob patterns of the detector manifests used when a plan
	// declares none. They are relative to the config file's directory, or to
	// the working directory when no config file is used.
	Manifests []string       `mapstructure:"manifests"`
	Tracing   tracing.Config `mapstructure:"tracing"`
}

// app holds the state shared by the subcommands of one invocation.
type app struct {
	v        *viper.Viper
	cfgFile  string
	cfg      config
	provider *tracing.Provider
	restore  func()
}

func newRootCmd() (*cobra.Command, *app) {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "dbinit",
		Short: "Order database initializers ahead of the components that use the database",
		Long: `dbinit resolves the activation order of container components once every
component that depends on database initialization has been made to depend on
every detected database initializer.`,
		Version:           version,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "config file (default: ./dbinit.yaml when present)")
	root.PersistentFlags().Bool("debug", false, "log debug output to stderr")
	root.PersistentFlags().Bool("trace", false, "export resolution spans to stderr")
	_ = a.v.BindPFlag("debug", root.PersistentFlags().Lookup("debug"))
	_ = a.v.BindPFlag("tracing.enabled", root.PersistentFlags().Lookup("trace"))

	root.AddCommand(newPlanCmd(a), newDetectorsCmd(), newApplyCmd(a))
	return root, a
}

// run executes root and then releases what setup acquired, also when the
// command fails.
func (a *app) run(root *cobra.Command) error {
	err := root.Execute()
	if terr := a.teardown(); terr != nil {
		fmt.Fprintln(root.ErrOrStderr(), "Error:", terr)
		err = errors.Join(err, terr)
	}
	return err
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if err := a.loadConfig(); err != nil {
		return err
	}

	level, err := log.ParseLevel(a.cfg.LogLevel)
	if err != nil {
		return err
	}
	if a.cfg.Debug {
		level = log.LevelDebug
	}
	a.restore = log.Init(cmd.ErrOrStderr(), level)

	tcfg := a.cfg.Tracing
	tcfg.Writer = cmd.ErrOrStderr()
	a.provider, err = tracing.NewProvider(tcfg)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	log.Debug(log.CatCLI, "configuration loaded", "file", a.v.ConfigFileUsed(), "tracing", a.provider.Enabled())
	return nil
}

func (a *app) teardown() error {
	var err error
	if a.provider != nil {
		err = a.provider.Shutdown(context.Background())
		a.provider = nil
	}
	if a.restore != nil {
		a.restore()
		a.restore = nil
	}
	return err
}

func (a *app) loadConfig() error {
	v := a.v
	defaults := tracing.DefaultConfig()
	v.SetDefault("debug", false)
	v.SetDefault("log_level", "warn")
	v.SetDefault("manifests", []string{})
	v.SetDefault("tracing.enabled", defaults.Enabled)
	v.SetDefault("tracing.exporter", defaults.Exporter)
	v.SetDefault("tracing.otlp_endpoint", defaults.OTLPEndpoint)
	v.SetDefault("tracing.sample_rate", defaults.SampleRate)
	v.SetDefault("tracing.service_name", defaults.ServiceName)

	v.SetEnvPrefix("DBINIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if a.cfgFile != "" {
		v.SetConfigFile(a.cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", a.cfgFile, err)
		}
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("dbinit")
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return fmt.Errorf("read config: %w", err)
			}
		}
	}

	if err := v.Unmarshal(&a.cfg); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}

// manifest loads the configured manifest files. It returns nil when none are configured.
func (a *app) manifest() (dbinit.Manifest, error) {
	if len(a.cfg.Manifests) == 0 {
		return nil, nil
	}
	base := "."
	if used := a.v.ConfigFileUsed(); used != "" {
		base = filepath.Dir(used)
	}
	return dbinit.LoadManifests(os.DirFS(base), a.cfg.Manifests...)
}
