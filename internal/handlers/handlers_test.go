package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"visme-go/internal/metrics"
	"visme-go/internal/models"
	"visme-go/internal/repository"
)

type fakeService struct {
	trials   map[string]*models.Trial
	override *models.FilterConfiguration
	failWith error
	filters  map[models.DetectionKind]models.FilterConfiguration
}

func newFakeService() *fakeService {
	trial := &models.Trial{
		ID:          "t1",
		Name:        "reading",
		Participant: models.Participant{Name: "p01", PixelsPerDegree: 30},
		FrequencyHz: 500,
	}
	trial.Gaze[models.Right] = models.MustGazeSeries([]models.IndexedSample{{Index: 0}, {Index: 1}})
	trial.Fixations[models.Right] = []models.Fixation{{StartIndex: 0, Duration: 2}}
	return &fakeService{trials: map[string]*models.Trial{"t1": trial}}
}

func (f *fakeService) CreateTrial(_ context.Context, payload models.TrialPayload) (*models.Trial, error) {
	trial, err := payload.ToTrial("new")
	if err != nil {
		return nil, err
	}
	f.trials[trial.ID] = trial
	return trial, nil
}

func (f *fakeService) GetTrial(_ context.Context, id string) (*models.Trial, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	t, ok := f.trials[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", repository.ErrTrialNotFound, id)
	}
	return t, nil
}

func (f *fakeService) LatestRun(ctx context.Context, trialID string, kind models.DetectionKind) (*models.DetectionResult, error) {
	if _, err := f.GetTrial(ctx, trialID); err != nil {
		return nil, err
	}
	if kind == models.KindSaccades {
		return nil, repository.ErrRunNotFound
	}
	return &models.DetectionResult{RunID: "r0", TrialID: trialID, Kind: kind}, nil
}

func (f *fakeService) Filter(kind models.DetectionKind) models.FilterConfiguration {
	if cfg, ok := f.filters[kind]; ok {
		return cfg
	}
	if kind == models.KindSaccades {
		return models.DefaultSaccadeConfiguration()
	}
	return models.DefaultMicrosaccadeConfiguration()
}

func (f *fakeService) detect(ctx context.Context, trialID string, kind models.DetectionKind, override *models.FilterConfiguration) (*models.DetectionResult, error) {
	f.override = override
	if _, err := f.GetTrial(ctx, trialID); err != nil {
		return nil, err
	}
	if override != nil {
		if err := override.Validate(); err != nil {
			return nil, err
		}
	}
	res := &models.DetectionResult{RunID: "r1", TrialID: trialID, Kind: kind}
	res.Channels[models.Right].Events = []models.SaccadeEvent{{OnsetIndex: 98, EndIndex: 105, Valid: true}}
	return res, nil
}

func (f *fakeService) DetectMicrosaccades(ctx context.Context, trialID string, override *models.FilterConfiguration) (*models.DetectionResult, error) {
	return f.detect(ctx, trialID, models.KindMicrosaccades, override)
}

func (f *fakeService) DetectRegularSaccades(ctx context.Context, trialID string, override *models.FilterConfiguration) (*models.DetectionResult, error) {
	return f.detect(ctx, trialID, models.KindSaccades, override)
}

func (f *fakeService) Statistics(ctx context.Context, trialID string) (*metrics.TrialStatistics, error) {
	if _, err := f.GetTrial(ctx, trialID); err != nil {
		return nil, err
	}
	return &metrics.TrialStatistics{
		TrialID: trialID,
		RunID:   "r1",
		Channels: map[string]metrics.ChannelStatistics{
			"right": {metrics.MicrosaccadeCount: {Value: 1, Calculated: true, SampleSize: 1}},
		},
	}, nil
}

func setupRouter(t *testing.T, svc DetectionService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := zaptest.NewLogger(t)
	r := gin.New()

	trials := NewTrialHandler(log, svc)
	profiles := &models.FilterProfiles{Profiles: map[string]models.FilterConfiguration{
		"strict": func() models.FilterConfiguration {
			cfg := models.DefaultMicrosaccadeConfiguration()
			cfg.VelocityThreshold = 7
			return cfg
		}(),
	}}
	detect := NewDetectionHandler(log, svc, profiles)
	stats := NewStatisticsHandler(log, svc)
	r.POST("/trials", trials.Create)
	r.GET("/trials/:id", trials.Get)
	r.POST("/trials/:id/microsaccades", detect.DetectMicrosaccades)
	r.GET("/trials/:id/microsaccades", detect.LatestMicrosaccades)
	r.POST("/trials/:id/saccades", detect.DetectRegularSaccades)
	r.GET("/trials/:id/saccades", detect.LatestSaccades)
	r.GET("/trials/:id/statistics", stats.Show)
	return r
}

func perform(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateTrial(t *testing.T) {
	r := setupRouter(t, newFakeService())

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{
			name:   "valid",
			body:   `{"name":"x","participant":{"name":"p","pixelsPerDegree":30},"frequency":500,"gaze":{"right":[{"index":0,"x":1,"y":2}]}}`,
			status: http.StatusCreated,
		},
		{name: "malformed json", body: `{"name":`, status: http.StatusBadRequest},
		{
			name:   "invalid trial",
			body:   `{"participant":{"pixelsPerDegree":30},"frequency":0}`,
			status: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := perform(r, http.MethodPost, "/trials", tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}

	w := perform(r, http.MethodPost, "/trials", tests[0].body)
	var got trialSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "new", got.ID)
	assert.Equal(t, 1, got.Samples["right"])
}

func TestGetTrial(t *testing.T) {
	r := setupRouter(t, newFakeService())

	w := perform(r, http.MethodGet, "/trials/t1", "")
	require.Equal(t, http.StatusOK, w.Code)
	var got trialSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "reading", got.Name)
	assert.Equal(t, 2, got.Samples["right"])
	assert.Equal(t, 1, got.Fixations["right"])
	assert.Equal(t, 0, got.Samples["left"])

	w = perform(r, http.MethodGet, "/trials/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDetectMicrosaccadesHandler(t *testing.T) {
	svc := newFakeService()
	r := setupRouter(t, svc)

	t.Run("configured filter", func(t *testing.T) {
		w := perform(r, http.MethodPost, "/trials/t1/microsaccades", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Nil(t, svc.override)

		var res models.DetectionResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		assert.Equal(t, "r1", res.RunID)
		assert.Len(t, res.Channels[models.Right].Events, 1)
	})

	t.Run("override starts from the configured filter", func(t *testing.T) {
		w := perform(r, http.MethodPost, "/trials/t1/microsaccades", `{"velocityThreshold":6,"binocular":false}`)
		require.Equal(t, http.StatusOK, w.Code)
		require.NotNil(t, svc.override)
		assert.Equal(t, 6.0, svc.override.VelocityThreshold)
		assert.False(t, svc.override.Binocular)
		assert.Equal(t, 5, svc.override.VelocityWindowSize)
	})

	t.Run("named profile", func(t *testing.T) {
		w := perform(r, http.MethodPost, "/trials/t1/microsaccades?profile=strict", "")
		require.Equal(t, http.StatusOK, w.Code)
		require.NotNil(t, svc.override)
		assert.Equal(t, 7.0, svc.override.VelocityThreshold)
	})

	t.Run("body on top of a profile", func(t *testing.T) {
		w := perform(r, http.MethodPost, "/trials/t1/microsaccades?profile=strict", `{"binocular":false}`)
		require.Equal(t, http.StatusOK, w.Code)
		require.NotNil(t, svc.override)
		assert.Equal(t, 7.0, svc.override.VelocityThreshold)
		assert.False(t, svc.override.Binocular)
	})

	t.Run("unknown profile", func(t *testing.T) {
		w := perform(r, http.MethodPost, "/trials/t1/microsaccades?profile=lax", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("invalid override", func(t *testing.T) {
		w := perform(r, http.MethodPost, "/trials/t1/microsaccades", `{"velocityWindowSize":4}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("malformed override", func(t *testing.T) {
		w := perform(r, http.MethodPost, "/trials/t1/microsaccades", `{"velocityThreshold":"high"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown trial", func(t *testing.T) {
		w := perform(r, http.MethodPost, "/trials/nope/microsaccades", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestDetectOverrideKeepsConfiguredFilter(t *testing.T) {
	svc := newFakeService()
	configured := models.DefaultMicrosaccadeConfiguration()
	configured.VelocityThreshold = 8
	configured.VelocityWindowSize = 7
	configured.MinDuration = 10
	svc.filters = map[models.DetectionKind]models.FilterConfiguration{models.KindMicrosaccades: configured}
	r := setupRouter(t, svc)

	w := perform(r, http.MethodPost, "/trials/t1/microsaccades", `{"binocular":false}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.override)

	want := configured
	want.Binocular = false
	assert.Equal(t, want, *svc.override)
}

func TestDetectRegularSaccadesHandler(t *testing.T) {
	svc := newFakeService()
	r := setupRouter(t, svc)

	w := perform(r, http.MethodPost, "/trials/t1/saccades", `{"minAmplitude":2}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.override)
	assert.Equal(t, 2.0, svc.override.MinAmplitude)
	assert.Equal(t, 9, svc.override.VelocityWindowSize, "saccade defaults")
}

func TestLatestRunHandler(t *testing.T) {
	r := setupRouter(t, newFakeService())

	w := perform(r, http.MethodGet, "/trials/t1/microsaccades", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = perform(r, http.MethodGet, "/trials/t1/saccades", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStatisticsHandler(t *testing.T) {
	svc := newFakeService()
	r := setupRouter(t, svc)

	w := perform(r, http.MethodGet, "/trials/t1/statistics", "")
	require.Equal(t, http.StatusOK, w.Code)
	var stats metrics.TrialStatistics
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 1.0, stats.Channels["right"][metrics.MicrosaccadeCount].Value)

	svc.failWith = errors.New("connection refused")
	w = perform(r, http.MethodGet, "/trials/t1/statistics", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "connection refused")
}

func TestHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	healthy := NewHealthHandler(map[string]Pinger{"database": func(context.Context) error { return nil }})
	r.GET("/health", healthy.Health)
	w := perform(r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)

	broken := NewHealthHandler(map[string]Pinger{"cache": func(context.Context) error { return errors.New("down") }})
	r.GET("/broken", broken.Health)
	w = perform(r, http.MethodGet, "/broken", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "degraded")
}
