// Copyright The Telegen Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `@@@ token 0x06004EBA hash 0xBC4945F9 ilSize 0x00000019 records 0x00000005 index 126964
classProfile iloffs 7 samples 20 entries 1 totalCount 20 virtual
class 00007FF8BD8BEC10 (System.String) count 20
classProfile iloffs 12 samples 8 entries 2 totalCount 8 interface
class 00007FF8BD8BEC10 (System.String) count 2
class 00007FF8BD8BED20 (System.Object) count 6
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func runCLI(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_Text(t *testing.T) {
	code, out, _ := runCLI(writeFile(t, "dump.txt", sample))
	require.Equal(t, exitOK, code)

	assert.Contains(t, out, "     1 methods\n")
	assert.Contains(t, out, "--- static data for all sites ---")
	assert.Contains(t, out, "--- dynamic data for interface sites ---")
	assert.Contains(t, out, "GDV would correctly predict 26 out of 28 calls")
}

func TestRun_Prometheus(t *testing.T) {
	code, out, _ := runCLI("-format", "prometheus", writeFile(t, "dump.txt", sample))
	require.Equal(t, exitOK, code)
	assert.Contains(t, out, `classprof_gdv_predicted_calls{scope="all"} 26`)
}

func TestRun_ConfigAndOverride(t *testing.T) {
	cfg := writeFile(t, "cfg.yaml", `
output:
  format: prometheus
metrics:
  namespace: pgo
`)
	dump := writeFile(t, "dump.txt", sample)

	code, out, _ := runCLI("-config", cfg, dump)
	require.Equal(t, exitOK, code)
	assert.Contains(t, out, "pgo_methods 1")

	code, out, _ = runCLI("-config", cfg, "-format", "text", dump)
	require.Equal(t, exitOK, code)
	assert.Contains(t, out, "static data for all sites")
}

func TestRun_Top(t *testing.T) {
	code, out, _ := runCLI("-top", "3", writeFile(t, "dump.txt", sample))
	require.Equal(t, exitOK, code)
	assert.Contains(t, out, "--- top 1 sampled call sites GDV cannot fully predict ---")
	assert.Contains(t, out, "-> (System.Object)")
}

func TestRun_ParseError(t *testing.T) {
	bad := sample + "classProfile iloffs x samples 1 entries 1 totalCount 1 virtual\n"
	code, out, errOut := runCLI(writeFile(t, "dump.txt", bad))

	assert.Equal(t, exitError, code)
	assert.Empty(t, out)
	assert.Contains(t, errOut, `can't parse line 7 "classProfile iloffs x samples 1 entries 1 totalCount 1 virtual"`)
}

func TestRun_Strict(t *testing.T) {
	mismatch := `@@@ token 0x1 hash 0x2
classProfile iloffs 7 samples 2 entries 3 totalCount 2 virtual
class 0000000000000001 A count 2
`
	p := writeFile(t, "dump.txt", mismatch)

	code, out, _ := runCLI(p)
	require.Equal(t, exitOK, code)
	assert.Contains(t, out, "call sites declare a different entry count")

	code, _, _ = runCLI("-strict", p)
	assert.Equal(t, exitError, code)
}

func TestRun_Usage(t *testing.T) {
	code, _, errOut := runCLI()
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, errOut, "usage: classprof")

	code, _, _ = runCLI("a", "b")
	assert.Equal(t, exitUsage, code)

	code, _, _ = runCLI("-nope", "a")
	assert.Equal(t, exitUsage, code)
}

func TestRun_Errors(t *testing.T) {
	code, _, errOut := runCLI(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Equal(t, exitError, code)
	assert.Contains(t, errOut, "failed to open dump")

	code, _, errOut = runCLI("-format", "json", writeFile(t, "dump.txt", sample))
	assert.Equal(t, exitError, code)
	assert.Contains(t, errOut, "output.format")

	code, _, _ = runCLI("-log-level", "loud", writeFile(t, "dump.txt", sample))
	assert.Equal(t, exitError, code)
}

func TestRun_Version(t *testing.T) {
	code, out, _ := runCLI("-version")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, out, "classprof ")
}
