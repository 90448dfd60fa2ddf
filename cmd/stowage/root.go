package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Ning0612/Stowage/internal/config"
	"github.com/Ning0612/Stowage/internal/domain"
	"github.com/Ning0612/Stowage/internal/logger"
	"github.com/Ning0612/Stowage/internal/registry"
)

// app carries the state shared by every subcommand of one invocation
type app struct {
	configPath string
	logLevel   string
	logFormat  string

	stdout io.Writer
	stderr io.Writer

	cfg *config.Config
	reg *registry.Registry

	// registryOpts is used by tests to swap backend factories
	registryOpts []registry.Option
}

// run executes one CLI invocation and returns the process exit code
func run(ctx context.Context, args []string, stdout, stderr io.Writer, opts ...registry.Option) int {
	a := &app{stdout: stdout, stderr: stderr, registryOpts: opts}

	cmd := newRootCmd(a)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if closeErr := a.close(); err == nil {
		err = closeErr
	}
	if err != nil {
		printError(stderr, err)
		return 1
	}
	return 0
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "stowage",
		Short:         "Unified access to S3, Google Drive and local storage",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// help works without a config file
			if cmd.Name() == "help" {
				return nil
			}
			return a.setup(cmd)
		},
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "config file (default searches config.yaml in ., ./configs and the user config dir)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	flags.StringVar(&a.logFormat, "log-format", "", "log format override (text, json)")

	cmd.AddCommand(
		newLsCmd(a),
		newPutCmd(a),
		newGetCmd(a),
		newCatCmd(a),
		newExistsCmd(a),
		newLinkCmd(a),
		newRmCmd(a),
		newCpCmd(a),
		newBucketCmd(a),
		newConnectionsCmd(a),
	)
	return cmd
}

// setup loads the config, starts the logger and builds the registry
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		if errors.Is(err, domain.ErrConfigNotFound) && a.configPath == "" {
			return fmt.Errorf("%w: pass --config or create config.yaml in one of %v", err, config.DefaultConfigPaths())
		}
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = a.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = a.logFormat
	}

	logCfg := cfg.Log.LoggerConfig()
	for i := range logCfg.Outputs {
		if logCfg.Outputs[i].Type == logger.OutputStderr {
			logCfg.Outputs[i].Writer = a.stderr
		}
	}
	if err := logger.Init(logCfg); err != nil {
		return err
	}

	reg, err := registry.New(cfg.Connections, a.registryOpts...)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.reg = reg
	logger.Get().Debug("Configuration loaded", "connections", len(cfg.Connections))
	return nil
}

// close releases the adapters and flushes the logger
func (a *app) close() error {
	var errs []error
	if a.reg != nil {
		errs = append(errs, a.reg.Close())
		a.reg = nil
	}
	errs = append(errs, logger.Shutdown())
	return errors.Join(errs...)
}

// printError writes err with its storage category when it carries one
func printError(w io.Writer, err error) {
	if category, ok := domain.CategoryOf(err); ok {
		fmt.Fprintf(w, "Error [%s]: %v\n", category, err)
		return
	}
	fmt.Fprintf(w, "Error: %v\n", err)
}
