package main

import (
	"bytes"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visme-go/internal/metrics"
	"visme-go/internal/models"
)

func writeTrial(t *testing.T, dir string) string {
	samples := make([]models.IndexedSample, 200)
	for i := range samples {
		x := 0.001 * math.Sin(1.3*float64(i))
		y := 0.001 * math.Cos(0.9*float64(i))
		if i >= 100 {
			x += 0.1 * float64(min(i-100+1, 5))
		}
		samples[i] = models.IndexedSample{Index: i, X: x, Y: y}
	}
	fixations := []models.Fixation{{StartIndex: 50, Duration: 100}}
	payload := models.TrialPayload{
		Name:        "cli",
		Participant: models.Participant{Name: "p01", PixelsPerDegree: 1},
		FrequencyHz: 500,
		Gaze:        models.ChannelData[models.IndexedSample]{Right: samples, Left: samples, Average: samples},
		Fixations:   models.ChannelData[models.Fixation]{Right: fixations, Left: fixations, Average: fixations},
	}
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	path := filepath.Join(dir, "trial.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	profileName, profilesFile, detectKind = "", "", string(models.KindMicrosaccades)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestDetectCommand(t *testing.T) {
	dir := t.TempDir()
	trial := writeTrial(t, dir)

	out, err := execute(t, "detect", "--config-root", dir, "--trial", trial)
	require.NoError(t, err)

	var res models.DetectionResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, models.KindMicrosaccades, res.Kind)
	require.Len(t, res.Channels[models.Right].Fixations, 1)
	assert.Len(t, res.Channels[models.Right].Fixations[0].Microsaccades, 1)
}

func TestDetectCommandProfile(t *testing.T) {
	dir := t.TempDir()
	trial := writeTrial(t, dir)
	profiles := filepath.Join(dir, "profiles.yaml")
	// a threshold this high leaves nothing to detect
	require.NoError(t, os.WriteFile(profiles, []byte("profiles:\n  deaf:\n    velocity_threshold: 1000\n"), 0o600))

	out, err := execute(t, "detect", "--config-root", dir, "--trial", trial, "--profile", "deaf", "--profiles", profiles)
	require.NoError(t, err)
	var res models.DetectionResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Empty(t, res.Channels[models.Right].Events)

	_, err = execute(t, "detect", "--config-root", dir, "--trial", trial, "--profile", "missing", "--profiles", profiles)
	assert.Error(t, err)
}

func TestDetectCommandErrors(t *testing.T) {
	dir := t.TempDir()
	trial := writeTrial(t, dir)

	_, err := execute(t, "detect", "--config-root", dir, "--trial", trial, "--kind", "blinks")
	assert.Error(t, err)

	_, err = execute(t, "detect", "--config-root", dir, "--trial", filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestStatsCommand(t *testing.T) {
	dir := t.TempDir()
	trial := writeTrial(t, dir)

	out, err := execute(t, "stats", "--config-root", dir, "--trial", trial)
	require.NoError(t, err)

	var stats metrics.TrialStatistics
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, 1.0, stats.Channels["right"][metrics.MicrosaccadeCount].Value)
	assert.Equal(t, 1.0, stats.Channels["average"][metrics.FixationCount].Value)
}
