// SPDX-License-Identifier: MPL-2.0

// Package platform maps the host to the Ren'Py SDK's platform directory
// layout. The SDK bundles its native binaries under lib/<arch>, with arch
// names that predate Go's GOOS/GOARCH vocabulary.
package platform

import (
	"runtime"
)

// Windows is the GOOS value for Windows hosts.
const Windows = "windows"

// Arch returns the SDK's lib/<arch> directory name for the host platform.
func Arch() string {
	return archFor(runtime.GOOS, runtime.GOARCH)
}

// archFor is the GOOS/GOARCH mapping, split out for tests.
func archFor(goos, goarch string) string {
	switch goos {
	case "darwin":
		return "darwin-x86_64"
	case Windows:
		// The SDK ships 32-bit Windows binaries regardless of host arch.
		return "windows-i686"
	default:
		switch goarch {
		case "amd64":
			return "linux-x86_64"
		case "386":
			return "linux-i686"
		default:
			return "linux-" + goarch
		}
	}
}

// ExeSuffix returns ".exe" on Windows and "" elsewhere.
func ExeSuffix() string {
	if runtime.GOOS == Windows {
		return ".exe"
	}
	return ""
}

// PythonName returns the bundled Python interpreter's file name.
func PythonName() string {
	return "python" + ExeSuffix()
}
