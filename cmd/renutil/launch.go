// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"renutil/internal/launch"
	"renutil/internal/version"
)

var (
	launchDirect bool

	launchCmd = &cobra.Command{
		Use:   "launch <version> [project] [-- args...]",
		Short: "Launch an installed version",
		Long: `Launch an installed Ren'Py SDK version.

With a project directory the launcher opens it directly. Pass --direct
to skip the GUI launcher and hand the project and any remaining
arguments straight to the runtime, which is how distribution builds and
lint runs are driven:

  renutil launch 8.1.3 --direct ./mygame distribute
  renutil launch 8.1.3 --direct ./mygame lint

The child process inherits the terminal's streams and its exit code
becomes renutil's exit code.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runLaunch,
	}
)

func init() {
	launchCmd.Flags().BoolVarP(&launchDirect, "direct", "d", false, "bypass the GUI launcher project")
	// Flags after the project path belong to the runtime, not to renutil.
	launchCmd.Flags().SetInterspersed(false)
}

func runLaunch(cmd *cobra.Command, args []string) error {
	v, err := version.Parse(args[0])
	if err != nil {
		return err
	}

	_, logger, reg, err := openRegistry()
	if err != nil {
		return err
	}

	req := launch.Request{
		Version: v,
		Direct:  launchDirect,
		Stdin:   os.Stdin,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}
	if len(args) > 1 {
		req.ProjectPath = args[1]
		req.Args = args[2:]
	}

	launcher := launch.New(reg, launch.WithLogger(logger))
	code, err := launcher.Launch(cmd.Context(), req)
	if err != nil {
		return err
	}
	if code != 0 {
		return &ExitError{Code: code}
	}
	return nil
}
