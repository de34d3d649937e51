package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/gobwas/glob"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Iron-Ham/screenreel/internal/platform"
	"github.com/Iron-Ham/screenreel/internal/util"
)

// maxNameWidth caps the name column of source and device tables.
const maxNameWidth = 48

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List capturable screens and windows",
	Long: `List the screens and windows that can be captured.

Examples:
  # Every source
  screenreel sources list

  # Only windows whose title matches a glob
  screenreel sources list --kind window --filter "*Firefox*"`,
	RunE: runSources,
}

var sourcesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List capturable screens and windows",
	RunE:  runSources,
}

var (
	sourcesFilter string
	sourcesKind   string
	sourcesFormat string
	sourcesYAML   bool
)

func init() {
	rootCmd.AddCommand(sourcesCmd)
	sourcesCmd.AddCommand(sourcesListCmd)

	flags := sourcesCmd.PersistentFlags()
	flags.StringVar(&sourcesFilter, "filter", "", "Glob matched against the source name (case-insensitive)")
	flags.StringVar(&sourcesKind, "kind", "", "Only list sources of this kind (screen/window)")
	flags.StringVarP(&sourcesFormat, "output", "o", "table", "Output format (table/json/yaml)")
	flags.BoolVar(&sourcesYAML, "yaml", false, "Shorthand for --output yaml")
}

func runSources(cmd *cobra.Command, args []string) error {
	a, cleanup, err := newApp()
	if err != nil {
		return err
	}
	defer cleanup()

	sources, err := a.Sources(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to enumerate sources: %w", err)
	}

	sources, err = filterSources(sources, sourcesKind, sourcesFilter)
	if err != nil {
		return err
	}
	format := sourcesFormat
	if sourcesYAML {
		format = "yaml"
	}
	return writeSources(cmd.OutOrStdout(), sources, format)
}

// filterSources keeps sources of the given kind whose name matches pattern.
// Empty arguments match everything.
func filterSources(sources []platform.Source, kind, pattern string) ([]platform.Source, error) {
	var wantKind *platform.SourceKind
	if kind != "" {
		k, err := platform.ParseSourceKind(kind)
		if err != nil {
			return nil, err
		}
		wantKind = &k
	}

	var matcher glob.Glob
	if pattern != "" {
		g, err := glob.Compile(strings.ToLower(pattern))
		if err != nil {
			return nil, fmt.Errorf("invalid filter pattern %q: %w", pattern, err)
		}
		matcher = g
	}

	out := make([]platform.Source, 0, len(sources))
	for _, s := range sources {
		if wantKind != nil && s.Kind != *wantKind {
			continue
		}
		if matcher != nil && !matcher.Match(strings.ToLower(s.Name)) {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func writeSources(w io.Writer, sources []platform.Source, format string) error {
	switch format {
	case "json":
		return writeJSON(w, sources)
	case "yaml":
		return writeYAML(w, sources)
	case "table", "":
	default:
		return fmt.Errorf("unknown output format %q (want table, json or yaml)", format)
	}

	if len(sources) == 0 {
		fmt.Fprintln(w, "No sources found.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tID\tNAME\tSIZE\tORIGIN")
	for _, s := range sources {
		name := util.TruncateString(s.Name, maxNameWidth)
		if s.Primary {
			name += " (primary)"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%dx%d\t%d,%d\n", s.Kind, s.ID, name, s.Width, s.Height, s.X, s.Y)
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func writeJSONLine(w io.Writer, v any) error {
	return json.NewEncoder(w).Encode(v)
}
