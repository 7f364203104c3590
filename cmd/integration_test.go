package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/insitu-cli/internal/collection"
)

const densityFixture = "SNEX20_TS_SP_20200427_0845_COERAP_data_density_v01.csv"

func fixture(name string) string {
	return filepath.Join("..", "internal", "collection", "testdata", name)
}

// resetFlags clears state that cobra and the package keep between Execute calls.
func resetFlags() {
	for _, c := range []*cobra.Command{inspectCmd, batchCmd, vocabDumpCmd} {
		c.Flags().VisitAll(func(fl *pflag.Flag) {
			if fl.Value.Type() == "stringToString" {
				return
			}
			_ = fl.Value.Set(fl.DefValue)
			fl.Changed = false
		})
	}
	cfg = nil
	cfgFile = ""
}

// execute runs the root command with args and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func runCmd(t *testing.T, args ...string) string {
	t.Helper()
	out, err := execute(t, args...)
	require.NoError(t, err, "command %v failed", args)
	return out
}

func isolateHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func copyFixture(t *testing.T, name, dest string) {
	t.Helper()
	b, err := os.ReadFile(fixture(name))
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(dest), 0o755))
	require.NoError(t, os.WriteFile(dest, b, 0o644))
}

func TestCLI_Inspect(t *testing.T) {
	isolateHome(t)
	out := runCmd(t, "inspect", fixture(densityFixture))

	var rep collection.Report
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.Equal(t, "COERAP_20200427_0845", rep.Metadata.SiteName)
	assert.NotEmpty(t, rep.SessionID)
	require.Len(t, rep.Profiles, 3)
	assert.Equal(t, "density_a", rep.Profiles[0].Variable)
	require.NotNil(t, rep.Profiles[0].Mean)
	assert.InDelta(t, 300.0, *rep.Profiles[0].Mean, 1e-9)

	out = runCmd(t, "inspect", fixture(densityFixture), "--id", "COERAP_override")
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.Equal(t, "COERAP_override", rep.Metadata.SiteName)
}

func TestCLI_InspectMapFailures(t *testing.T) {
	isolateHome(t)
	_, err := execute(t, "inspect", fixture("unmapped_column.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "snow_color")

	out := runCmd(t, "inspect", fixture("unmapped_column.csv"), "--allow-map-failures")
	assert.Contains(t, out, `"variable": "density"`)

	// The config value is honoured when the flag is absent.
	runCmd(t, "config", "set", "allow_map_failures", "true")
	runCmd(t, "inspect", fixture("unmapped_column.csv"))
}

func TestCLI_BatchWritesSummaries(t *testing.T) {
	home := isolateHome(t)
	copyFixture(t, densityFixture, filepath.Join(home, "d1", "pit.csv"))
	copyFixture(t, "SNEX20_TS_SP_20200427_0845_COERAP_data_temperature_v01.csv", filepath.Join(home, "d2", "pit.csv"))
	copyFixture(t, "unmapped_column.csv", filepath.Join(home, "d3", "pit.csv"))
	outDir := filepath.Join(home, "out")

	out := runCmd(t, "batch", filepath.Join(home, "d*", "pit.csv"), "--out", outDir, "--workers", "2")
	assert.Contains(t, out, "Processed 2 file(s), 1 failed")
	assert.Contains(t, out, filepath.Join(home, "d3", "pit.csv"))

	var first, second collection.Report
	b, err := os.ReadFile(filepath.Join(outDir, "pit.summary.json"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(b, &first))
	b, err = os.ReadFile(filepath.Join(outDir, "pit__2.summary.json"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(b, &second))

	assert.Len(t, first.Profiles, 3)
	require.Len(t, second.Profiles, 1)
	assert.Equal(t, "snow_temperature", second.Profiles[0].Variable)

	// Failed inputs still reserve their name, so no third file exists.
	_, err = os.Stat(filepath.Join(outDir, "pit__3.summary.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestCLI_BatchNoMatches(t *testing.T) {
	home := isolateHome(t)
	_, err := execute(t, "batch", filepath.Join(home, "missing*.csv"))
	assert.ErrorContains(t, err, "no input files matched")
}

func TestCLI_VocabDump(t *testing.T) {
	home := isolateHome(t)
	out := runCmd(t, "vocab", "dump")
	assert.Contains(t, out, "DENSITY:")

	dest := filepath.Join(home, "metadata.yaml")
	runCmd(t, "vocab", "dump", "--metadata", "-o", dest)
	b, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(b), "DATETIME:"), string(b[:40]))

	out = runCmd(t, "vocab", "campaigns")
	assert.Equal(t, "base\nsnowex\n", out)
}

func TestCLI_ConfigSetShow(t *testing.T) {
	home := isolateHome(t)
	runCmd(t, "config", "set", "workers", "3")
	runCmd(t, "config", "set", "timezone", "UTC")
	runCmd(t, "config", "set", "primary_vocabularies", "a.yaml, b.yaml")

	out := runCmd(t, "config", "show")
	assert.Contains(t, out, "workers: 3")
	assert.Contains(t, out, "timezone: UTC")
	assert.Contains(t, out, "primary_vocabularies: a.yaml, b.yaml")
	_, err := os.Stat(filepath.Join(home, ".insitu", "config.yaml"))
	require.NoError(t, err)

	for _, args := range [][]string{
		{"config", "set", "workers", "0"},
		{"config", "set", "timezone", "Mars/Olympus"},
		{"config", "set", "campaign", "nope"},
		{"config", "set", "bogus", "1"},
	} {
		_, err := execute(t, args...)
		assert.Error(t, err, "%v", args)
	}
}
