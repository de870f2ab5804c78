// Package cli implements the pz2sxml command line.
package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/pz-stationxml/internal/config"
	"github.com/couchcryptid/pz-stationxml/internal/observability"
	"github.com/couchcryptid/pz-stationxml/internal/stationxml"
)

// version is overridden at build time with -ldflags "-X ...cli.version=...".
var version = "dev"

var (
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "pz2sxml",
	Short: "Convert SAC poles-and-zeros files to StationXML",
	Long: `pz2sxml reads SAC_PZs response files, as written by rdseed or sac,
and converts each into a channel response record. Records are merged into one
FDSN StationXML inventory, or streamed to Kafka by the serve command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// cliLogger writes to the command's stderr so stdout stays clean for documents.
func cliLogger(cmd *cobra.Command) *slog.Logger {
	return observability.NewLoggerTo(cmd.ErrOrStderr(), logLevel, logFormat)
}

func headerFrom(md config.Metadata) stationxml.Header {
	return stationxml.Header{
		Source:              md.Source,
		Sender:              md.Sender,
		Module:              md.Module,
		ModuleURI:           md.ModuleURI,
		NetworkDescriptions: md.Networks,
	}
}
