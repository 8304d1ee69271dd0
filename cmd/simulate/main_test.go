package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_GovernanceScenario(t *testing.T) {
	dir := t.TempDir()
	ok, err := run(context.Background(), options{
		scenarioPath: "../../scenarios/governance.yaml",
		outputDir:    dir,
	}, zerolog.Nop())
	require.NoError(t, err)
	assert.True(t, ok)

	for _, name := range []string{"REPORT.md", "history.csv", "oracles.csv", "steps.csv"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}

	md, err := os.ReadFile(filepath.Join(dir, "REPORT.md"))
	require.NoError(t, err)
	assert.Contains(t, string(md), "# Scenario Report: governance")
	assert.Contains(t, string(md), "Status: **PASS**")
}

func TestRun_Deterministic(t *testing.T) {
	read := func() string {
		dir := t.TempDir()
		_, err := run(context.Background(), options{
			scenarioPath: "../../internal/scenario/testdata/ewma.yaml",
			outputDir:    dir,
		}, zerolog.Nop())
		require.NoError(t, err)
		md, err := os.ReadFile(filepath.Join(dir, "REPORT.md"))
		require.NoError(t, err)
		return string(md)
	}
	assert.Equal(t, read(), read())
}

func TestRun_MissingScenario(t *testing.T) {
	_, err := run(context.Background(), options{
		scenarioPath: "does-not-exist.yaml",
		outputDir:    t.TempDir(),
	}, zerolog.Nop())
	assert.Error(t, err)
}
