// SPDX-License-Identifier: MPL-2.0

// Command renutil manages Ren'Py SDK installations.
package main

import cmd "renutil/cmd/renutil"

func main() {
	cmd.Execute()
}
