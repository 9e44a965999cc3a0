// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"renutil/internal/index"
	"renutil/internal/version"
)

var (
	listAll   bool
	listCount int

	listCmd = &cobra.Command{
		Use:   "list",
		Short: "List installed or available versions",
		Long: `List Ren'Py SDK versions.

By default the versions installed in the registry are shown, newest
first. Pass --all to fetch the official download listing instead, which
includes nightly and pre-release builds; -n bounds how many are shown.`,
		Args: cobra.NoArgs,
		RunE: runList,
	}
)

func init() {
	listCmd.Flags().BoolVarP(&listAll, "all", "a", false, "list available versions from the download listing")
	listCmd.Flags().IntVarP(&listCount, "num-versions", "n", 5, "number of available versions to show (0 for all)")
}

func runList(cmd *cobra.Command, _ []string) error {
	_, _, reg, err := openRegistry()
	if err != nil {
		return err
	}

	if !listAll {
		installs, err := reg.List()
		if err != nil {
			return err
		}
		if len(installs) == 0 {
			cmd.Println(SubtitleStyle.Render("no versions installed"))
			return nil
		}
		for _, inst := range installs {
			cmd.Println(renderVersion(inst.Version, true))
		}
		return nil
	}

	client := index.NewClient()
	releases, err := client.Releases(cmd.Context())
	if err != nil {
		return err
	}

	shown := 0
	for _, rel := range releases {
		if listCount > 0 && shown >= listCount {
			break
		}
		cmd.Println(renderVersion(rel.Version, reg.Installed(rel.Version)))
		shown++
	}
	if shown == 0 {
		cmd.Println(SubtitleStyle.Render("no versions available"))
	}
	return nil
}

// renderVersion formats one listing line, marking installed versions.
func renderVersion(v version.Version, installed bool) string {
	line := VersionStyle.Render(v.String())
	if v.Nightly() {
		line += " " + WarningStyle.Render("(nightly)")
	}
	if installed {
		line = fmt.Sprintf("%s %s", line, SuccessStyle.Render("✓ installed"))
	}
	return line
}
