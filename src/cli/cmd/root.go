package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nnsuite/aarforge/src/config"
	"github.com/nnsuite/aarforge/src/output"
)

var (
	cfgFile string
	verbose bool
	fileCfg *config.FileConfig
)

var rootCmd = &cobra.Command{
	Use:   "aarforge",
	Short: "Android AAR build pipeline for nnstreamer",
	Long: `aarforge turns a matrix of build options into a configured, compiled
and repackaged Android library bundle of the nnstreamer framework.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}
		var err error
		fileCfg, err = config.LoadFile(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .aarforge.yml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// Execute runs the root command. Every failure is printed as the
// one-line cause before the non-zero exit.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		output.Failf(os.Stderr, output.UseColor(), "%v", err)
		return err
	}
	return nil
}
