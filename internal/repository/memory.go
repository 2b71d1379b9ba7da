package repository

import (
	"context"
	"fmt"
	"sync"

	"visme-go/internal/models"
)

// MemoryStore keeps trials and runs in memory. It backs the command line
// tool, which works on single files without a database.
type MemoryStore struct {
	mu     sync.RWMutex
	trials map[string]*models.Trial
	order  []string
	runs   map[string]*models.DetectionResult // by trial ID and kind
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		trials: make(map[string]*models.Trial),
		runs:   make(map[string]*models.DetectionResult),
	}
}

func runKey(trialID string, kind models.DetectionKind) string {
	return trialID + "/" + string(kind)
}

func (s *MemoryStore) SaveTrial(_ context.Context, trial *models.Trial) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.trials[trial.ID]; !ok {
		s.order = append(s.order, trial.ID)
	}
	s.trials[trial.ID] = trial
	return nil
}

func (s *MemoryStore) GetTrial(_ context.Context, id string) (*models.Trial, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	trial, ok := s.trials[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTrialNotFound, id)
	}
	return trial, nil
}

func (s *MemoryStore) ListTrialIDs(context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...), nil
}

// SaveRun replaces the previous run of the same kind on the trial.
func (s *MemoryStore) SaveRun(_ context.Context, res *models.DetectionResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[runKey(res.TrialID, res.Kind)] = res
	return nil
}

func (s *MemoryStore) LatestRun(_ context.Context, trialID string, kind models.DetectionKind) (*models.DetectionResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res, ok := s.runs[runKey(trialID, kind)]
	if !ok {
		return nil, fmt.Errorf("%w: %s %s", ErrRunNotFound, kind, trialID)
	}
	return res, nil
}
