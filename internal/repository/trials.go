package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"visme-go/internal/models"
)

var (
	ErrTrialNotFound = errors.New("trial not found")
	ErrRunNotFound   = errors.New("detection run not found")
)

// GormStore persists trials and detection runs in postgres.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// SaveTrial stores a trial; the gaze data is kept as its JSON payload.
func (s *GormStore) SaveTrial(ctx context.Context, trial *models.Trial) error {
	raw, err := json.Marshal(trial.Payload())
	if err != nil {
		return fmt.Errorf("encode trial %s: %w", trial.ID, err)
	}
	rec := models.TrialRecord{
		ID:              trial.ID,
		Name:            trial.Name,
		Participant:     trial.Participant.Name,
		FrequencyHz:     trial.FrequencyHz,
		PixelsPerDegree: trial.Participant.PixelsPerDegree,
		RawData:         raw,
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("save trial %s: %w", trial.ID, err)
	}
	return nil
}

// GetTrial loads and validates a stored trial.
func (s *GormStore) GetTrial(ctx context.Context, id string) (*models.Trial, error) {
	var rec models.TrialRecord
	err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrTrialNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load trial %s: %w", id, err)
	}

	var payload models.TrialPayload
	if err := json.Unmarshal(rec.RawData, &payload); err != nil {
		return nil, fmt.Errorf("decode trial %s: %w", id, err)
	}
	return payload.ToTrial(rec.ID)
}

// ListTrialIDs returns the IDs of every stored trial, oldest first.
func (s *GormStore) ListTrialIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&models.TrialRecord{}).Order("created_at").Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list trials: %w", err)
	}
	return ids, nil
}

// SaveRun stores a detection result in a single transaction. Older runs of
// the same kind on the trial are removed, since a new run fully replaces
// their results.
func (s *GormStore) SaveRun(ctx context.Context, res *models.DetectionResult) error {
	cfg, err := json.Marshal(res.Config)
	if err != nil {
		return fmt.Errorf("encode run config: %w", err)
	}
	events, fixations := res.Records()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var stale []string
		if err := tx.Model(&models.DetectionRun{}).
			Where("trial_id = ? AND kind = ?", res.TrialID, res.Kind).
			Pluck("id", &stale).Error; err != nil {
			return err
		}
		if len(stale) > 0 {
			if err := tx.Where("run_id IN ?", stale).Delete(&models.EventRecord{}).Error; err != nil {
				return err
			}
			if err := tx.Where("run_id IN ?", stale).Delete(&models.FixationRecord{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", stale).Delete(&models.DetectionRun{}).Error; err != nil {
				return err
			}
		}

		run := models.DetectionRun{
			ID:        res.RunID,
			TrialID:   res.TrialID,
			Kind:      res.Kind,
			Config:    cfg,
			CreatedAt: res.CreatedAt,
		}
		if err := tx.Omit("Trial").Create(&run).Error; err != nil {
			return err
		}
		if len(events) > 0 {
			if err := tx.CreateInBatches(events, 500).Error; err != nil {
				return err
			}
		}
		if len(fixations) > 0 {
			if err := tx.CreateInBatches(fixations, 500).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// LatestRun loads the most recent run of a kind on a trial.
func (s *GormStore) LatestRun(ctx context.Context, trialID string, kind models.DetectionKind) (*models.DetectionResult, error) {
	db := s.db.WithContext(ctx)

	var run models.DetectionRun
	err := db.Where("trial_id = ? AND kind = ?", trialID, kind).Order("created_at DESC").First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s %s", ErrRunNotFound, kind, trialID)
	}
	if err != nil {
		return nil, fmt.Errorf("load run: %w", err)
	}

	var events []models.EventRecord
	if err := db.Where("run_id = ?", run.ID).Order("channel, onset_index").Find(&events).Error; err != nil {
		return nil, fmt.Errorf("load events of run %s: %w", run.ID, err)
	}
	var fixations []models.FixationRecord
	if err := db.Where("run_id = ?", run.ID).Order("channel, fixation_index").Find(&fixations).Error; err != nil {
		return nil, fmt.Errorf("load fixations of run %s: %w", run.ID, err)
	}

	res, err := models.ResultFromRecords(run, events, fixations)
	if err != nil {
		return nil, err
	}
	return &res, nil
}
