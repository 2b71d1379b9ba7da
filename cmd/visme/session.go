package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"visme-go/internal/config"
	"visme-go/internal/models"
	"visme-go/internal/repository"
	"visme-go/internal/services"
)

// session is a detection service over a single trial file.
type session struct {
	log     *zap.Logger
	service *services.DetectionService
	trial   *models.Trial
}

func newSession(ctx context.Context) (*session, error) {
	if _, err := config.Load(configRoot); err != nil {
		return nil, err
	}

	log := zap.NewNop()
	if verbose {
		var err error
		if log, err = zap.NewDevelopment(); err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
	}

	payload, err := readPayload(trialFile)
	if err != nil {
		return nil, err
	}

	service := services.NewDetectionService(log, repository.NewMemoryStore(), nil, nil)
	trial, err := service.CreateTrial(ctx, payload)
	if err != nil {
		return nil, err
	}
	return &session{log: log, service: service, trial: trial}, nil
}

func readPayload(path string) (models.TrialPayload, error) {
	var payload models.TrialPayload
	f, err := os.Open(path)
	if err != nil {
		return payload, fmt.Errorf("failed to open trial file: %w", err)
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(&payload); err != nil {
		return payload, fmt.Errorf("failed to decode trial file %s: %w", path, err)
	}
	return payload, nil
}

// profile resolves --profile against --profiles or the configured file.
// It returns nil when no profile was requested.
func profile() (*models.FilterConfiguration, error) {
	if profileName == "" {
		return nil, nil
	}
	path := profilesFile
	if path == "" {
		path = config.Current().Detection.ProfilesFile
	}
	if path == "" {
		return nil, fmt.Errorf("--profile %s needs a profiles file", profileName)
	}
	profiles, err := models.LoadFilterProfiles(path)
	if err != nil {
		return nil, err
	}
	cfg, ok := profiles.Get(profileName)
	if !ok {
		return nil, fmt.Errorf("unknown filter profile %q in %s", profileName, path)
	}
	return &cfg, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
