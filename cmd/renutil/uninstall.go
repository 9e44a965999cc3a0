// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"renutil/internal/registry"
	"renutil/internal/version"
)

var uninstallCmd = &cobra.Command{
	Use:   "uninstall <version>",
	Short: "Remove an installed version",
	Long: `Remove an installed Ren'Py SDK version from the registry.

Only the named version's directory is touched; other installed versions
are unaffected. Removing a version that is not installed is an error.`,
	Aliases: []string{"remove", "rm"},
	Args:    cobra.ExactArgs(1),
	RunE:    runUninstall,
}

func runUninstall(cmd *cobra.Command, args []string) error {
	v, err := version.Parse(args[0])
	if err != nil {
		return err
	}

	_, _, reg, err := openRegistry()
	if err != nil {
		return err
	}

	if err := reg.Uninstall(v); err != nil {
		if errors.Is(err, registry.ErrNotInstalled) {
			cmd.PrintErrln(ErrorStyle.Render("error:"), v.String()+" is not installed")
			return &ExitError{Code: 1, Err: err}
		}
		return err
	}
	cmd.Println(SuccessStyle.Render("uninstalled " + v.String()))
	return nil
}
