package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/screenreel/internal/app"
)

var capabilitiesCmd = &cobra.Command{
	Use:     "capabilities",
	Aliases: []string{"caps"},
	Short:   "Show what this host can capture",
	RunE:    runCapabilities,
}

var capabilitiesFormat string

func init() {
	rootCmd.AddCommand(capabilitiesCmd)
	capabilitiesCmd.Flags().StringVarP(&capabilitiesFormat, "output", "o", "text", "Output format (text/json/yaml)")
}

func runCapabilities(cmd *cobra.Command, args []string) error {
	a, cleanup, err := newApp()
	if err != nil {
		return err
	}
	defer cleanup()

	caps, err := a.Capabilities(cmd.Context())
	if err != nil {
		return err
	}
	return writeCapabilities(cmd.OutOrStdout(), caps, capabilitiesFormat)
}

func writeCapabilities(w io.Writer, caps app.Capabilities, format string) error {
	switch format {
	case "json":
		return writeJSON(w, caps)
	case "yaml":
		return writeYAML(w, caps)
	case "text", "":
	default:
		return fmt.Errorf("unknown output format %q (want text, json or yaml)", format)
	}

	yesNo := func(b bool) string {
		if b {
			return "yes"
		}
		return "no"
	}

	fmt.Fprintf(w, "Streaming:       %s\n", yesNo(caps.SupportsStreaming))
	fmt.Fprintf(w, "Screen capture:  %s\n", yesNo(caps.SupportsScreenCapture))
	fmt.Fprintf(w, "Window capture:  %s\n", yesNo(caps.SupportsWindowCapture))
	fmt.Fprintf(w, "Max FPS:         %d\n", caps.MaxFPS)
	if len(caps.PortalSourceTypes) > 0 {
		fmt.Fprintf(w, "Portal sources:  %s\n", strings.Join(caps.PortalSourceTypes, ", "))
	}
	if h := caps.Host; h != nil {
		fmt.Fprintf(w, "Host:            %s/%s\n", h.OS, h.Arch)
		if h.CPUModel != "" {
			fmt.Fprintf(w, "CPU:             %s\n", h.CPUModel)
		}
		fmt.Fprintf(w, "Logical CPUs:    %d\n", h.LogicalCPUs)
		fmt.Fprintf(w, "Memory:          %d MB (%.0f%% used)\n", h.TotalMemoryMB, h.UsedMemoryPct)
	}
	return nil
}
