// Copyright The Telegen Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports build information stamped in with
//
//	-ldflags "-X github.com/platformbuilds/classprof/internal/version.version=v0.3.0 ..."
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

var (
	version   = "unknown"
	commit    = "unknown"
	buildDate = "unknown"
)

// Version falls back to the module version recorded by go install.
func Version() string {
	if version == "unknown" {
		if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			return bi.Main.Version
		}
	}
	return version
}

func Commit() string    { return commit }
func BuildDate() string { return buildDate }

// String is the -version output.
func String() string {
	return fmt.Sprintf("classprof %s (commit %s, built %s, %s)", Version(), Commit(), BuildDate(), runtime.Version())
}
