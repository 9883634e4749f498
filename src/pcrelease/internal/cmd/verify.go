package cmd

import (
	"fmt"

	"github.com/pycoreos/pcforge/src/common/output"
	"github.com/pycoreos/pcforge/src/forge/release"
	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <bundle-dir>",
	Short: "Check a bundle directory against its SHA256SUMS",
	Args:  cobra.ExactArgs(1),
	RunE:  runVerify,
}

func runVerify(cmd *cobra.Command, args []string) error {
	dir := args[0]
	entries, err := release.VerifyManifest(dir)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	meta, metaErr := release.ReadMetadata(dir)

	if outputFormat == output.FormatJSON {
		result := map[string]interface{}{
			"directory": dir,
			"files":     len(entries),
			"ok":        true,
		}
		if metaErr == nil {
			result["metadata"] = meta
		}
		return output.PrintJSON(out, result)
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{e.Name, e.Checksum[:16], "OK"})
	}
	output.PrintTable(out, []string{"FILE", "SHA256", "STATUS"}, rows)
	if metaErr == nil {
		fmt.Fprintf(out, "\n%s %s (%s, %s) built %s\n", meta.Name, meta.Version, meta.Channel, meta.Codename, meta.BuiltUTC)
	}
	return nil
}
