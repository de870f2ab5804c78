package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/pz-stationxml/internal/adapter/fsource"
	"github.com/couchcryptid/pz-stationxml/internal/adapter/sqlite"
	"github.com/couchcryptid/pz-stationxml/internal/config"
	"github.com/couchcryptid/pz-stationxml/internal/inventory"
	"github.com/couchcryptid/pz-stationxml/internal/observability"
	"github.com/couchcryptid/pz-stationxml/internal/pipeline"
	"github.com/couchcryptid/pz-stationxml/internal/stationxml"
)

const convertBatchSize = 50

var (
	convertOutput   string
	convertStrict   bool
	convertDB       string
	convertMetadata string
)

var convertCmd = &cobra.Command{
	Use:   "convert <file|dir|glob>...",
	Short: "Convert PZ files into one StationXML document",
	Long: `Converts every given PZ file and merges the channels into a single
StationXML inventory. The first file seen for a channel wins; later files for
the same network, station, location and channel are skipped.

Files that fail to parse are reported and skipped unless --strict is set.
With --db, records are also stored in a SQLite inventory and the document is
built from everything stored there, including earlier runs.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().StringVarP(&convertOutput, "output", "o", "-", "output file, - for stdout")
	convertCmd.Flags().BoolVar(&convertStrict, "strict", false, "stop at the first file that fails to convert")
	convertCmd.Flags().StringVar(&convertDB, "db", "", "SQLite inventory to update and render")
	convertCmd.Flags().StringVar(&convertMetadata, "metadata", "", "TOML file with document metadata")
	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	logger := cliLogger(cmd)

	md, err := config.LoadMetadata(convertMetadata)
	if err != nil {
		return err
	}

	files, err := fsource.NewFiles(args)
	if err != nil {
		return err
	}
	total := files.Len()

	metrics := observability.NewMetricsWith(prometheus.NewRegistry())
	inv := inventory.NewWithMetrics(metrics)
	loaders := pipeline.MultiLoader{inv}
	var source stationxml.RecordSource = inv

	if convertDB != "" {
		store, err := sqlite.NewStore(convertDB, metrics)
		if err != nil {
			return fmt.Errorf("open inventory db: %w", err)
		}
		defer store.Close()
		loaders = append(loaders, store)
		source = store
	}

	p := pipeline.New(files, pipeline.NewTransformer(logger, metrics), loaders, logger, metrics, convertBatchSize,
		pipeline.WithStrict(convertStrict),
		pipeline.WithStopOnLoadError(),
	)
	if err := p.Run(ctx); err != nil {
		return err
	}

	stats := p.Stats()
	cmd.PrintErrf("converted %d of %d files (%d failed, %d duplicate channels skipped)\n",
		stats.Loaded, total, stats.Failed, inv.Skipped())
	if stats.Loaded == 0 && stats.Failed > 0 {
		return errors.New("no files converted")
	}

	pub := stationxml.NewPublisher(stationxml.NewEncoder(headerFrom(md), nil), source)
	return writeDocument(ctx, cmd, pub, convertOutput)
}

func writeDocument(ctx context.Context, cmd *cobra.Command, pub *stationxml.Publisher, output string) error {
	if output == "-" {
		return pub.WriteStationXML(ctx, cmd.OutOrStdout())
	}
	return pub.WriteFile(ctx, output)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
