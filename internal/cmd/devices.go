package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/screenreel/internal/encoder"
	"github.com/Iron-Ham/screenreel/internal/util"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List recording devices reported by ffmpeg",
	Long: `List the screens, cameras and microphones ffmpeg can record from.

The screen and microphone IDs are what 'screenreel record --screen' and
'--mic' expect. Device listing is only available on macOS; elsewhere the
screens known to the platform are shown instead.`,
	RunE: runDevices,
}

var devicesFormat string

func init() {
	rootCmd.AddCommand(devicesCmd)
	devicesCmd.Flags().StringVarP(&devicesFormat, "output", "o", "table", "Output format (table/json/yaml)")
}

func runDevices(cmd *cobra.Command, args []string) error {
	a, cleanup, err := newApp()
	if err != nil {
		return err
	}
	defer cleanup()

	devices, err := a.Devices(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list devices: %w", err)
	}
	return writeDevices(cmd.OutOrStdout(), devices, devicesFormat)
}

func writeDevices(w io.Writer, devices encoder.DeviceList, format string) error {
	switch format {
	case "json":
		return writeJSON(w, devices)
	case "yaml":
		return writeYAML(w, devices)
	case "table", "":
	default:
		return fmt.Errorf("unknown output format %q (want table, json or yaml)", format)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tID\tNAME\tGEOMETRY")
	for _, group := range [][]encoder.Device{devices.Screens, devices.Cameras, devices.Microphones} {
		for _, d := range group {
			geometry := "-"
			if d.Width > 0 && d.Height > 0 {
				geometry = fmt.Sprintf("%dx%d+%d+%d", d.Width, d.Height, d.X, d.Y)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.Kind, d.ID, util.TruncateString(d.Name, maxNameWidth), geometry)
		}
	}
	return tw.Flush()
}
