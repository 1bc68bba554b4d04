package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmds := rootCmd.Commands()

	// Collect subcommand names.
	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	expected := []string{"analyze", "fetch", "batch", "serve", "runs"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "site-report", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
	for _, sub := range []string{"analyze", "fetch", "serve", "batch", "runs"} {
		assert.Contains(t, rootCmd.Long, sub)
	}
}

func TestAnalyzeCommand_Flags(t *testing.T) {
	for _, name := range []string{"url", "notes", "max-chars", "json"} {
		assert.NotNil(t, analyzeCmd.Flags().Lookup(name), "analyze should have --%s flag", name)
	}
	flag := analyzeCmd.Flags().Lookup("url")
	require.NotNil(t, flag)
	assert.Equal(t, []string{"true"}, flag.Annotations["cobra_annotation_bash_completion_one_required_flag"])
}

func TestFetchCommand_Flags(t *testing.T) {
	assert.NotNil(t, fetchCmd.Flags().Lookup("url"))
	flag := fetchCmd.Flags().Lookup("max-chars")
	require.NotNil(t, flag)
	assert.Equal(t, "0", flag.DefValue)
}

func TestBatchCommand_Flags(t *testing.T) {
	flag := batchCmd.Flags().Lookup("limit")
	require.NotNil(t, flag, "batch command should have --limit flag")
	assert.Equal(t, "100", flag.DefValue)

	format := batchCmd.Flags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "json", format.DefValue)

	for _, name := range []string{"file", "notes", "concurrency", "output"} {
		assert.NotNil(t, batchCmd.Flags().Lookup(name), "batch should have --%s flag", name)
	}
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestRunsCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range runsCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["list"])
	assert.True(t, names["show"])
	assert.True(t, names["stats"])

	assert.NotNil(t, runsListCmd.Flags().Lookup("status"))
	assert.NotNil(t, runsListCmd.Flags().Lookup("url"))
	assert.Equal(t, "json", runsShowCmd.Flags().Lookup("format").DefValue)
	assert.Equal(t, "24h0m0s", runsStatsCmd.Flags().Lookup("since").DefValue)
}
