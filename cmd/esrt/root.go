package main

import (
	"github.com/spf13/cobra"

	"esrt/pkg/config"
	"esrt/pkg/driver"
	"esrt/pkg/logging"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "esrt",
		Short: "ECMAScript module runtime",
		Long: `esrt - Load, link and evaluate ECMAScript modules.

Modules are resolved from the --root directory; bare specifiers are looked
up in the roots listed in the configuration file and in built-in modules
such as esrt:process.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringP("config", "c", "", "Path to an esrt.yml configuration file")
	root.PersistentFlags().String("log-level", "", "Log level: trace, debug, info, warn, error (overrides config)")
	root.PersistentFlags().String("root", ".", "Directory that rooted and relative specifiers resolve against")

	root.AddCommand(newExportsCmd(), newResolveCmd(), newGraphCmd(), newRunCmd())
	return root
}

// newRuntime builds a runtime from the persistent flags.
func newRuntime(cmd *cobra.Command, args []string) (*driver.Runtime, error) {
	configPath, _ := cmd.Flags().GetString("config")
	logLevel, _ := cmd.Flags().GetString("log-level")
	root, _ := cmd.Flags().GetString("root")

	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	logger, err := logging.New(cmd.ErrOrStderr(), cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	return driver.NewRuntime(cfg,
		driver.WithBaseDir(root),
		driver.WithArgs(args),
		driver.WithLogger(logger),
	)
}
