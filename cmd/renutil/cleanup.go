// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"github.com/spf13/cobra"

	"renutil/internal/version"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup <version>",
	Short: "Remove build artifacts from an installed version",
	Long: `Remove transient build artifacts from an installed version.

Toolchain builds leave intermediates, logs, and staging directories
behind that can grow to several gigabytes. Cleanup deletes them while
keeping the version fully launchable; the next Android build simply
regenerates what it needs.`,
	Aliases: []string{"clean"},
	Args:    cobra.ExactArgs(1),
	RunE:    runCleanup,
}

func runCleanup(cmd *cobra.Command, args []string) error {
	v, err := version.Parse(args[0])
	if err != nil {
		return err
	}

	_, _, reg, err := openRegistry()
	if err != nil {
		return err
	}

	if err := reg.Cleanup(v); err != nil {
		return err
	}
	cmd.Println(SuccessStyle.Render("cleaned up " + v.String()))
	return nil
}
