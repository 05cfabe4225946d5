package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subtepulse/internal/config"
	"subtepulse/pkg/contracts/domain"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.RawDir = filepath.Join(t.TempDir(), "raw")
	cfg.Paths.ProcessedDir = filepath.Join(t.TempDir(), "processed")
	require.NoError(t, os.MkdirAll(cfg.Paths.RawDir, 0755))
	return cfg
}

func writeRaw(t *testing.T, cfg *config.Config, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Paths.RawDir, name), []byte(content), 0644))
}

func readRunSummary(t *testing.T, cfg *config.Config) domain.RunSummary {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(cfg.Paths.ProcessedDir, cfg.Paths.RunFile))
	require.NoError(t, err)
	var run domain.RunSummary
	require.NoError(t, json.Unmarshal(data, &run))
	return run
}

func TestRunEndToEnd(t *testing.T) {
	cfg := testConfig(t)

	writeRaw(t, cfg, "molinetes_2024_01.csv",
		"Fecha,Línea,Estación,Pasajeros\n"+
			"2024-01,Linea A,Congreso,1000\n"+
			"2024-01,Linea A,Lima,500\n"+
			"2024-01,B,Callao,800\n"+
			"bad-period,A,Congreso,10\n")
	writeRaw(t, cfg, "frecuencia_2024_01.csv",
		"year_month,linea,formaciones\n"+
			"2024-01,A,12000\n")

	runner, err := NewRunner(nil, cfg, Options{})
	require.NoError(t, err)

	run, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.ProvenanceReal, run.Provenance)
	assert.Equal(t, 3, run.RecordCount)
	require.Len(t, run.Files, 2)
	assert.Equal(t, 1, run.TotalDropped())
	assert.Empty(t, run.SkippedFiles())

	// Line A in January has a monthly signal; line B falls to the default.
	assert.Equal(t, 2, run.Estimates)

	for _, name := range []string{
		cfg.Paths.DatasetFile, cfg.Paths.HeadwayFile,
		cfg.Paths.SummaryFile, cfg.Paths.ForecastFile, cfg.Paths.RunFile,
	} {
		_, err := os.Stat(filepath.Join(cfg.Paths.ProcessedDir, name))
		assert.NoError(t, err, "expected output %s", name)
	}

	data, err := os.ReadFile(filepath.Join(cfg.Paths.ProcessedDir, cfg.Paths.HeadwayFile))
	require.NoError(t, err)
	content := string(data)
	// January has 31 days: 1080 * 31 / 12000 = 2.79.
	assert.Contains(t, content, "2024-01,A,2.79,DERIVED_MONTHLY")
	assert.Contains(t, content, "2024-01,B,4.50,DEFAULT")

	// The persisted run summary is the same record the caller gets back:
	// every output path recorded, completion time identical.
	persisted := readRunSummary(t, cfg)
	assert.Equal(t, run.RunID, persisted.RunID)
	assert.NotEmpty(t, persisted.DatasetPath)
	assert.NotEmpty(t, persisted.HeadwayPath)
	assert.NotEmpty(t, persisted.SummaryPath)
	assert.NotEmpty(t, persisted.ForecastPath)
	assert.Equal(t, run.ForecastPath, persisted.ForecastPath)
	assert.True(t, run.FinishedAt.Equal(persisted.FinishedAt),
		"persisted finished_at %s differs from returned %s", persisted.FinishedAt, run.FinishedAt)
}

func TestRunDeterministicAcrossFileOrder(t *testing.T) {
	// Same key in two files with different values: the kept value must be
	// pinned to filename order, not write or discovery order.
	run := func(t *testing.T, writeOrder []string) string {
		cfg := testConfig(t)
		contents := map[string]string{
			"a_molinetes_2024_01.csv": "Fecha,Línea,Estación,Pasajeros\n2024-01,A,Congreso,111\n",
			"b_molinetes_2024_01.csv": "Fecha,Línea,Estación,Pasajeros\n2024-01,A,Congreso,222\n",
		}
		for _, name := range writeOrder {
			writeRaw(t, cfg, name, contents[name])
		}

		runner, err := NewRunner(nil, cfg, Options{})
		require.NoError(t, err)
		_, err = runner.Run(context.Background())
		require.NoError(t, err)

		data, err := os.ReadFile(filepath.Join(cfg.Paths.ProcessedDir, cfg.Paths.DatasetFile))
		require.NoError(t, err)
		return string(data)
	}

	forward := run(t, []string{"a_molinetes_2024_01.csv", "b_molinetes_2024_01.csv"})
	reversed := run(t, []string{"b_molinetes_2024_01.csv", "a_molinetes_2024_01.csv"})

	assert.Equal(t, forward, reversed)
	assert.Contains(t, forward, "2024-01,A,Congreso,111")
}

func TestRunSkipsUnresolvableFile(t *testing.T) {
	cfg := testConfig(t)

	writeRaw(t, cfg, "molinetes_2024_01.csv",
		"Fecha,Línea,Estación,Pasajeros\n2024-01,A,Congreso,1000\n")
	writeRaw(t, cfg, "mystery.csv", "foo,bar,baz\n1,2,3\n")

	runner, err := NewRunner(nil, cfg, Options{})
	require.NoError(t, err)

	run, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.ProvenanceReal, run.Provenance)
	assert.Equal(t, []string{"mystery.csv"}, run.SkippedFiles())
	assert.Equal(t, 1, run.RecordCount)
}

func TestRunResolvesMetricColumnByContent(t *testing.T) {
	cfg := testConfig(t)

	// "cantidad" matches no alias; the numeric content places it as the
	// passenger-count column.
	writeRaw(t, cfg, "molinetes_2024_01.csv",
		"Fecha,Línea,Estación,cantidad\n"+
			"2024-01,A,Congreso,1000\n"+
			"2024-01,B,Callao,800\n")

	runner, err := NewRunner(nil, cfg, Options{})
	require.NoError(t, err)

	run, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.ProvenanceReal, run.Provenance)
	assert.Equal(t, 2, run.RecordCount)
	assert.Empty(t, run.SkippedFiles())
}

func TestRunFlagsPassengerAnomalies(t *testing.T) {
	cfg := testConfig(t)

	// Five flat months followed by a 10x spike at one station.
	counts := []int{100, 100, 100, 100, 100, 1000}
	for i, count := range counts {
		name := fmt.Sprintf("molinetes_2024_%02d.csv", i+1)
		writeRaw(t, cfg, name, fmt.Sprintf(
			"Fecha,Línea,Estación,Pasajeros\n2024-%02d,A,Congreso,%d\n", i+1, count))
	}

	runner, err := NewRunner(nil, cfg, Options{})
	require.NoError(t, err)

	run, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.ProvenanceReal, run.Provenance)
	warnings := strings.Join(run.Warnings, "\n")
	assert.Contains(t, warnings, "passenger count spike")
	assert.Contains(t, warnings, "2024-06")
	assert.Contains(t, warnings, "Congreso")
}

func TestRunDemoFallbackOnEmptyData(t *testing.T) {
	cfg := testConfig(t)

	// Rows exist but none survive cleaning.
	writeRaw(t, cfg, "molinetes_2024_01.csv",
		"Fecha,Línea,Estación,Pasajeros\nbad,Z,,x\n")

	runner, err := NewRunner(nil, cfg, Options{})
	require.NoError(t, err)

	run, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.ProvenanceDemo, run.Provenance)
	assert.NotZero(t, run.RecordCount)
	require.NotEmpty(t, run.Warnings)
	assert.Contains(t, strings.Join(run.Warnings, "\n"), "demo")

	// Every demo estimate is derived from the synthetic dispatch counts.
	data, err := os.ReadFile(filepath.Join(cfg.Paths.ProcessedDir, cfg.Paths.HeadwayFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), "DERIVED_MONTHLY")
	assert.NotContains(t, string(data), "DEFAULT")

	dataset, err := os.ReadFile(filepath.Join(cfg.Paths.ProcessedDir, cfg.Paths.DatasetFile))
	require.NoError(t, err)
	assert.NotContains(t, string(dataset), "REAL")
}

func TestRunDemoFallbackDeterministic(t *testing.T) {
	read := func(t *testing.T) string {
		cfg := testConfig(t)
		runner, err := NewRunner(nil, cfg, Options{})
		require.NoError(t, err)
		_, err = runner.Run(context.Background())
		require.NoError(t, err)

		data, err := os.ReadFile(filepath.Join(cfg.Paths.ProcessedDir, cfg.Paths.DatasetFile))
		require.NoError(t, err)
		return string(data)
	}

	assert.Equal(t, read(t), read(t), "same seed must produce identical demo exports")
}

func TestRunMissingRawDirFails(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.RemoveAll(cfg.Paths.RawDir))

	runner, err := NewRunner(nil, cfg, Options{})
	require.NoError(t, err)

	_, err = runner.Run(context.Background())
	assert.Error(t, err)
}

func TestRunConflictWarningSurfaced(t *testing.T) {
	cfg := testConfig(t)
	writeRaw(t, cfg, "a.csv", "Fecha,Línea,Estación,Pasajeros\n2024-01,A,Congreso,111\n")
	writeRaw(t, cfg, "b.csv", "Fecha,Línea,Estación,Pasajeros\n2024-01,A,Congreso,222\n")

	runner, err := NewRunner(nil, cfg, Options{})
	require.NoError(t, err)

	run, err := runner.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, run.Conflicts, 1)
	assert.Equal(t, "a.csv", run.Conflicts[0].KeptFile)
	assert.Contains(t, strings.Join(run.Warnings, "\n"), "conflicting passenger counts")
}
