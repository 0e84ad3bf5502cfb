// Command ragcore indexes content and answers queries over it, either from
// the command line or as an HTTP service.
//
// Usage:
//
//	ragcore serve --config ragcore.yaml
//	ragcore index --type doc --id readme "text to index"
//	ragcore search --limit 5 "query"
//	ragcore ask --advanced --strategy hybrid "question"
//	ragcore status
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// version is set via ldflags during build.
var version = "dev"

func main() {
	if err := newRootCmd(nil).Execute(); err != nil {
		os.Exit(1)
	}
}

// rootFlags are the persistent flags shared by every subcommand.
type rootFlags struct {
	configPath string
	logLevel   string
}

// newRootCmd builds the command tree. ov may be nil.
func newRootCmd(ov *overrides) *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:   "ragcore",
		Short: "Semantic retrieval and retrieval-augmented generation",
		Long: `ragcore embeds text, stores vectors and answers questions from the
most relevant stored content.

Configuration is read from the --config YAML file and RAGCORE_* environment
variables, environment taking precedence.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "path to YAML config file")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "override logging.level (trace, debug, info, warn, error)")

	root.AddCommand(
		newServeCmd(flags, ov),
		newIndexCmd(flags, ov),
		newSearchCmd(flags, ov),
		newAskCmd(flags, ov),
		newStatusCmd(flags, ov),
	)
	return root
}

// readText joins args, or reads stdin when the only arg is "-".
func readText(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 && args[0] == "-" {
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}
	text := strings.TrimSpace(strings.Join(args, " "))
	if text == "" {
		return "", fmt.Errorf("text is required")
	}
	return text, nil
}

func writeJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// toMetadata converts --meta/--filter pairs into a metadata map.
func toMetadata(pairs map[string]string) map[string]interface{} {
	if len(pairs) == 0 {
		return nil
	}
	out := make(map[string]interface{}, len(pairs))
	for k, v := range pairs {
		out[k] = v
	}
	return out
}
