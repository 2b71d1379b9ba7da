package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"visme-go/internal/cache"
	"visme-go/internal/config"
	"visme-go/internal/detection"
	"visme-go/internal/metrics"
	"visme-go/internal/models"
	"visme-go/internal/repository"
)

// TrialStore persists trials and their detection runs.
type TrialStore interface {
	SaveTrial(ctx context.Context, trial *models.Trial) error
	GetTrial(ctx context.Context, id string) (*models.Trial, error)
	ListTrialIDs(ctx context.Context) ([]string, error)
	SaveRun(ctx context.Context, res *models.DetectionResult) error
	LatestRun(ctx context.Context, trialID string, kind models.DetectionKind) (*models.DetectionResult, error)
}

// ResultCache keeps detection results for a trial and configuration.
type ResultCache interface {
	Get(ctx context.Context, key string) (*models.DetectionResult, bool, error)
	Set(ctx context.Context, key string, res *models.DetectionResult) error
	InvalidateTrial(ctx context.Context, trialID string) error
}

type DetectionService struct {
	log   *zap.Logger
	store TrialStore
	cache ResultCache // nil when caching is disabled
	inst  *Instrumentation

	// settings returns the detection configuration used when a request does
	// not carry its own.
	settings func() config.DetectionConfig
	now      func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewDetectionService(log *zap.Logger, store TrialStore, resultCache ResultCache, inst *Instrumentation) *DetectionService {
	return &DetectionService{
		log:      log,
		store:    store,
		cache:    resultCache,
		inst:     inst,
		settings: func() config.DetectionConfig { return config.Current().Detection },
		now:      time.Now,
		locks:    make(map[string]*sync.Mutex),
	}
}

// trialLock returns the mutex serializing work on one trial.
func (s *DetectionService) trialLock(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

// CreateTrial validates an uploaded trial and stores it under a new ID.
func (s *DetectionService) CreateTrial(ctx context.Context, payload models.TrialPayload) (*models.Trial, error) {
	trial, err := payload.ToTrial(uuid.NewString())
	if err != nil {
		return nil, err
	}
	if err := s.store.SaveTrial(ctx, trial); err != nil {
		return nil, err
	}
	s.log.Info("Trial stored",
		zap.String("trialID", trial.ID),
		zap.String("participant", trial.Participant.Name),
		zap.Float64("frequency", trial.FrequencyHz))
	return trial, nil
}

func (s *DetectionService) GetTrial(ctx context.Context, id string) (*models.Trial, error) {
	return s.store.GetTrial(ctx, id)
}

// LatestRun returns the most recent stored run of a kind on a trial.
func (s *DetectionService) LatestRun(ctx context.Context, trialID string, kind models.DetectionKind) (*models.DetectionResult, error) {
	if _, err := s.store.GetTrial(ctx, trialID); err != nil {
		return nil, err
	}
	return s.store.LatestRun(ctx, trialID, kind)
}

// Filter returns the configured filter for a kind of detection.
func (s *DetectionService) Filter(kind models.DetectionKind) models.FilterConfiguration {
	if kind == models.KindSaccades {
		return s.settings().Saccade
	}
	return s.settings().Microsaccade
}

// DetectMicrosaccades finds the microsaccades of a trial and attaches them
// to its fixations. A nil override uses the configured microsaccade filter.
func (s *DetectionService) DetectMicrosaccades(ctx context.Context, trialID string, override *models.FilterConfiguration) (*models.DetectionResult, error) {
	cfg := s.Filter(models.KindMicrosaccades)
	if override != nil {
		cfg = *override
	}
	return s.run(ctx, trialID, models.KindMicrosaccades, cfg)
}

// DetectRegularSaccades finds the regular saccades of a trial. A nil
// override uses the configured saccade filter.
func (s *DetectionService) DetectRegularSaccades(ctx context.Context, trialID string, override *models.FilterConfiguration) (*models.DetectionResult, error) {
	cfg := s.Filter(models.KindSaccades)
	if override != nil {
		cfg = *override
	}
	return s.run(ctx, trialID, models.KindSaccades, cfg)
}

func (s *DetectionService) run(ctx context.Context, trialID string, kind models.DetectionKind, cfg models.FilterConfiguration) (*models.DetectionResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	trial, err := s.store.GetTrial(ctx, trialID)
	if err != nil {
		return nil, err
	}

	key := s.cacheKey(trialID, kind, cfg)
	res, hit := s.cached(ctx, key, kind)
	source := "cache"
	var elapsed time.Duration
	if !hit {
		lock := s.trialLock(trialID)
		lock.Lock()
		start := time.Now()
		res, source = s.detect(trial, kind, cfg)
		elapsed = time.Since(start)
		lock.Unlock()
	}

	// A cached result still becomes the trial's latest run.
	res.RunID = uuid.NewString()
	res.CreatedAt = s.now().UTC()
	if err := s.store.SaveRun(ctx, res); err != nil {
		return nil, fmt.Errorf("save %s run of trial %s: %w", kind, trialID, err)
	}
	if hit {
		s.log.Debug("Cached detection result stored",
			zap.String("trialID", trialID),
			zap.String("runID", res.RunID),
			zap.String("kind", string(kind)))
		return res, nil
	}

	if s.inst != nil {
		s.inst.Runs.WithLabelValues(string(kind), source).Inc()
		s.inst.Duration.WithLabelValues(string(kind)).Observe(elapsed.Seconds())
		for _, ch := range models.Channels {
			s.inst.Events.WithLabelValues(string(kind), ch.String()).Add(float64(len(res.Channels[ch].Events)))
		}
	}
	s.log.Info("Detection run completed",
		zap.String("trialID", trialID),
		zap.String("runID", res.RunID),
		zap.String("kind", string(kind)),
		zap.String("source", source),
		zap.Int("right", len(res.Channels[models.Right].Events)),
		zap.Int("left", len(res.Channels[models.Left].Events)),
		zap.Int("average", len(res.Channels[models.Average].Events)),
		zap.Duration("elapsed", elapsed))

	if s.cache != nil && key != "" {
		if err := s.cache.Set(ctx, key, res); err != nil {
			s.log.Warn("Failed to cache detection result", zap.String("trialID", trialID), zap.Error(err))
		}
	}
	return res, nil
}

// detect runs detection on a trial; the caller holds the trial's lock. It
// returns the result and where its events came from.
func (s *DetectionService) detect(trial *models.Trial, kind models.DetectionKind, cfg models.FilterConfiguration) (*models.DetectionResult, string) {
	res := &models.DetectionResult{TrialID: trial.ID, Kind: kind, Config: cfg}

	if kind == models.KindSaccades {
		events := detection.DetectRegularSaccades(trial, cfg)
		for _, ch := range models.Channels {
			res.Channels[ch] = models.ChannelResult{Events: nonNil(events[ch])}
		}
		return res, "detected"
	}

	if cfg.FromInputFile && hasInputMicrosaccades(trial) {
		for _, ch := range models.Channels {
			events := inputEvents(trial.InputMicrosaccades[ch])
			fixations := append([]models.Fixation(nil), trial.Fixations[ch]...)
			arena := models.NewEventArena()
			detection.AssignToFixations(fixations, arena, events, 0, 0)
			res.Channels[ch] = models.NewChannelResult(events, fixations, arena)
		}
		return res, "input"
	}
	if cfg.FromInputFile {
		s.log.Debug("Trial has no input microsaccades, detecting instead", zap.String("trialID", trial.ID))
	}

	events := detection.DetectMicrosaccades(trial, cfg)
	for _, ch := range models.Channels {
		fixations := append([]models.Fixation(nil), trial.Fixations[ch]...)
		arena := detection.Attach(fixations, events[ch], cfg, trial.FrequencyHz)
		res.Channels[ch] = models.NewChannelResult(nonNil(events[ch]), fixations, arena)
	}
	return res, "detected"
}

func hasInputMicrosaccades(trial *models.Trial) bool {
	for _, ch := range models.Channels {
		if len(trial.InputMicrosaccades[ch]) > 0 {
			return true
		}
	}
	return false
}

// inputEvents copies input microsaccades; they are valid by definition.
func inputEvents(in []models.SaccadeEvent) []models.SaccadeEvent {
	out := make([]models.SaccadeEvent, len(in))
	for i, e := range in {
		e.Valid = true
		out[i] = e
	}
	return out
}

func nonNil(events []models.SaccadeEvent) []models.SaccadeEvent {
	if events == nil {
		return []models.SaccadeEvent{}
	}
	return events
}

func (s *DetectionService) cacheKey(trialID string, kind models.DetectionKind, cfg models.FilterConfiguration) string {
	if s.cache == nil {
		return ""
	}
	key, err := cache.Key(trialID, kind, cfg)
	if err != nil {
		s.log.Warn("Failed to build cache key", zap.Error(err))
		return ""
	}
	return key
}

func (s *DetectionService) cached(ctx context.Context, key string, kind models.DetectionKind) (*models.DetectionResult, bool) {
	if s.cache == nil || key == "" {
		return nil, false
	}
	res, found, err := s.cache.Get(ctx, key)
	if err != nil {
		s.log.Warn("Result cache lookup failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if s.inst != nil {
		if found {
			s.inst.CacheHits.WithLabelValues(string(kind)).Inc()
		} else {
			s.inst.CacheMisses.WithLabelValues(string(kind)).Inc()
		}
	}
	if !found {
		return nil, false
	}
	res.Cached = true
	return res, true
}

// Statistics computes the per-channel statistics of the latest
// microsaccade run of a trial, running detection first if there is none.
func (s *DetectionService) Statistics(ctx context.Context, trialID string) (*metrics.TrialStatistics, error) {
	trial, err := s.store.GetTrial(ctx, trialID)
	if err != nil {
		return nil, err
	}
	res, err := s.store.LatestRun(ctx, trialID, models.KindMicrosaccades)
	if errors.Is(err, repository.ErrRunNotFound) {
		res, err = s.DetectMicrosaccades(ctx, trialID, nil)
	}
	if err != nil {
		return nil, err
	}
	return metrics.CalculateTrialStatistics(trial, res), nil
}

// Rerun re-detects microsaccades and regular saccades of every stored trial
// with the current configuration. Failures on one trial are logged and do
// not stop the others; it returns the number of trials processed.
func (s *DetectionService) Rerun(ctx context.Context) (int, error) {
	ids, err := s.store.ListTrialIDs(ctx)
	if err != nil {
		return 0, err
	}
	if s.inst != nil {
		s.inst.Reruns.Inc()
	}

	processed := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return processed, err
		}
		if s.cache != nil {
			if err := s.cache.InvalidateTrial(ctx, id); err != nil {
				s.log.Warn("Failed to invalidate cached results", zap.String("trialID", id), zap.Error(err))
			}
		}
		if _, err := s.DetectMicrosaccades(ctx, id, nil); err != nil {
			s.log.Error("Microsaccade re-detection failed", zap.String("trialID", id), zap.Error(err))
			continue
		}
		if _, err := s.DetectRegularSaccades(ctx, id, nil); err != nil {
			s.log.Error("Saccade re-detection failed", zap.String("trialID", id), zap.Error(err))
			continue
		}
		processed++
	}
	s.log.Info("Re-detection finished", zap.Int("trials", len(ids)), zap.Int("processed", processed))
	return processed, nil
}
