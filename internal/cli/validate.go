package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/pz-stationxml/internal/adapter/fsource"
	"github.com/couchcryptid/pz-stationxml/internal/domain"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file|dir|glob>...",
	Short: "Check PZ files without writing output",
	Long: `Parses each file and prints one line per file: OK with the channel id
and any defaults that were applied, or FAIL with the reason. Exits non-zero
when any file fails.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	paths, err := fsource.Expand(args)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	failed := 0
	for _, path := range paths {
		raw, err := domain.ReadFile(path)
		if err != nil {
			raw = domain.RawPZ{Name: filepath.Base(path), Err: err}
		}
		rec, err := domain.Convert(raw)
		if err != nil {
			failed++
			fmt.Fprintf(out, "FAIL %s\n", err)
			continue
		}
		line := fmt.Sprintf("OK   %s %s", raw.Name, rec.SEEDID())
		if len(rec.Defaults) > 0 {
			line += " (defaults: " + strings.Join(rec.Defaults, ", ") + ")"
		}
		fmt.Fprintln(out, line)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(paths))
	}
	return nil
}
