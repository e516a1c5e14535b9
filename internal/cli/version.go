package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kolkov/cowsim/cow"
)

// VersionOutput is the JSON form of the version command.
type VersionOutput struct {
	Version      string `json:"version"`
	Instrumented bool   `json:"instrumented"`
	Tags         string `json:"tags,omitempty"`
	GoVersion    string `json:"go_version,omitempty"`
	Revision     string `json:"revision,omitempty"`
	Modified     bool   `json:"modified,omitempty"`
}

// NewVersionCommand creates the version command.
func NewVersionCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "version",
		Short:         "Show version information",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := cow.GetInfo()
			if rootOpts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), VersionOutput{
					Version:      info.Version,
					Instrumented: info.Instrumented,
					Tags:         info.Tags,
					GoVersion:    info.GoVersion,
					Revision:     info.Revision,
					Modified:     info.Modified,
				})
			}

			state := "disabled (build with -tags " + cow.InstrumentTag + ")"
			if info.Instrumented {
				state = "enabled"
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s\n  instrumentation: %s\n", info, state)
			return err
		},
	}
}
