// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"github.com/spf13/cobra"

	"renutil/internal/fetch"
	"renutil/internal/index"
	"renutil/internal/install"
)

var (
	installForce bool
	installPre   bool

	installCmd = &cobra.Command{
		Use:   "install <version>",
		Short: "Install a Ren'Py SDK version",
		Long: `Install a Ren'Py SDK version, including the RAPT Android toolchain.

The version may be an exact release ("8.1.3") or "latest", which picks
the newest stable release; pass --pre to let "latest" match nightly and
pre-release builds too.

Installs are atomic: a failed or interrupted install never leaves a
partially usable version behind.`,
		Args: cobra.ExactArgs(1),
		RunE: runInstall,
	}
)

func init() {
	installCmd.Flags().BoolVarP(&installForce, "force", "f", false, "reinstall even if the version is already present")
	installCmd.Flags().BoolVar(&installPre, "pre", false, "allow \"latest\" to resolve to pre-release builds")
}

func runInstall(cmd *cobra.Command, args []string) error {
	_, logger, reg, err := openRegistry()
	if err != nil {
		return err
	}

	installer := install.New(
		index.NewClient(),
		fetch.New(fetch.WithLogger(logger)),
		reg,
		install.WithReporter(newLogReporter(logger)),
		install.WithLogger(logger),
	)

	res, err := installer.Install(cmd.Context(), install.Request{
		Version:    args[0],
		IncludePre: installPre,
		Force:      installForce,
	})
	if err != nil {
		return err
	}

	if res.AlreadyInstalled {
		cmd.Println(SuccessStyle.Render(res.Version.String()+" is already installed"), PathStyle.Render(res.Path))
		return nil
	}
	cmd.Println(SuccessStyle.Render("installed "+res.Version.String()), PathStyle.Render(res.Path))
	return nil
}
