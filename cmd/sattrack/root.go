package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/signalsfoundry/sattrack/events"
	"github.com/signalsfoundry/sattrack/internal/config"
	"github.com/signalsfoundry/sattrack/internal/logging"
	"github.com/signalsfoundry/sattrack/internal/storage"
	"github.com/signalsfoundry/sattrack/registry"
)

// app carries per-invocation state shared by subcommands.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     config.Config
	log     logging.Logger
	out     io.Writer
	errOut  io.Writer
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{v: viper.New(), out: out, errOut: errOut}

	root := &cobra.Command{
		Use:           "sattrack",
		Short:         "Track ground observers and satellite TLEs",
		Long:          "sattrack keeps a registry of ground observers and satellite two-line element sets, persists them, and serves them over HTTP with a live event stream.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig()
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	pf := root.PersistentFlags()
	pf.StringVarP(&a.cfgFile, "config", "c", "", "config file (default: ./sattrack.yaml)")
	pf.String("storage-backend", "", "storage backend: memory, file or sqlite")
	pf.String("storage-path", "", "path of the file or sqlite storage")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	pf.String("log-format", "", "log format: text or json")
	_ = a.v.BindPFlag("storage.backend", pf.Lookup("storage-backend"))
	_ = a.v.BindPFlag("storage.path", pf.Lookup("storage-path"))
	_ = a.v.BindPFlag("log.level", pf.Lookup("log-level"))
	_ = a.v.BindPFlag("log.format", pf.Lookup("log-format"))

	root.AddCommand(
		newServeCmd(a),
		newObserversCmd(a),
		newTLEsCmd(a),
		newConfigCmd(a),
	)

	return root
}

func (a *app) loadConfig() error {
	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg
	logCfg := cfg.Logging()
	logCfg.Output = a.errOut
	a.log = logging.New(logCfg)
	return nil
}

// registries opens storage and hydrates both registries for one-shot
// commands. The caller must invoke the returned close func.
func (a *app) registries() (*registry.ObserverRegistry, *registry.TleRegistry, func(), error) {
	store, err := storage.Open(a.cfg.Storage)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening %s storage: %w", a.cfg.Storage.Backend, err)
	}
	ch := events.NewChannel(a.log)
	observers := registry.NewObserverRegistry(store, ch, registry.WithLogger(a.log))
	tles := registry.NewTleRegistry(store, registry.WithLogger(a.log))
	return observers, tles, func() { _ = store.Close() }, nil
}

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "init [PATH]",
		Short: "Write the default configuration (default path: sattrack.yaml)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "sattrack.yaml"
			if len(args) == 1 {
				path = args[0]
			}
			if err := config.WriteDefault(path); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "wrote %s\n", path)
			return nil
		},
	})
	return cmd
}
