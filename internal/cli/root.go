package cli

import (
	"log"

	"cad-service/internal/cad/engine"
	"cad-service/internal/common/config"
	"cad-service/internal/common/logging"

	"github.com/spf13/cobra"
)

// Version: версия сборки, подставляется через -ldflags.
var Version = "dev"

// Execute запускает корневую команду cadctl.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:   "cadctl",
		Short: "cadctl: run parametric CAD scripts against an in-process engine",
		Long: "cadctl builds planes, sketches, extrusions, primitives and boolean results " +
			"from TOML scripts and prints the resulting ids and mesh statistics.",
		SilenceUsage: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if verbose {
				logging.SetLogger(log.Printf)
			} else {
				logging.SetLogger(nil)
			}
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print engine log lines to stderr")

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(),
		newPrimitiveCmd(),
	)

	return rootCmd
}

// engineOptions берёт допуски ядра из той же конфигурации, что и сервер.
func engineOptions() engine.Options {
	cfg := config.Load()
	return engine.Options{
		BooleanDeflection: cfg.BooleanDeflection,
		DefaultQuality:    cfg.DefaultQuality,
		DisplaySize:       cfg.DisplaySize,
	}
}
