package usecase

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"PoolCast/internal/domain/models"
	"PoolCast/internal/domain/service"
	"PoolCast/pkg/cache"
	applogger "PoolCast/pkg/logger"
)

func testLogger() *applogger.Logger {
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "console", Output: "stderr"})
	if err != nil {
		panic(err)
	}
	return l
}

func fp(v float64) *float64 { return &v }

type fakeObservationStore struct {
	rows []models.Observation
}

func (s *fakeObservationStore) InsertBatch(_ context.Context, rows []models.Observation) error {
	s.rows = append(s.rows, rows...)
	return nil
}

func (s *fakeObservationStore) ListRange(_ context.Context, from, to time.Time) ([]models.Observation, error) {
	var out []models.Observation
	for _, o := range s.rows {
		if !o.TS.Before(from) && o.TS.Before(to) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *fakeObservationStore) ListPage(_ context.Context, after time.Time, limit int) ([]models.Observation, error) {
	var out []models.Observation
	for _, o := range s.rows {
		if o.TS.After(after) {
			out = append(out, o)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *fakeObservationStore) FindNearest(_ context.Context, target time.Time, tolerance time.Duration) (*models.Observation, error) {
	var best *models.Observation
	for i := range s.rows {
		o := &s.rows[i]
		d := o.TS.Sub(target)
		if d < 0 {
			d = -d
		}
		if d > tolerance {
			continue
		}
		if best == nil {
			best = o
			continue
		}
		bd := best.TS.Sub(target)
		if bd < 0 {
			bd = -bd
		}
		if d < bd {
			best = o
		}
	}
	return best, nil
}

func (s *fakeObservationStore) Count(context.Context) (int64, error) {
	return int64(len(s.rows)), nil
}

type fakeFeatureStore struct {
	rows []models.FeatureRecord
}

func (s *fakeFeatureStore) UpsertBatch(_ context.Context, rows []models.FeatureRecord) error {
	byTS := map[time.Time]int{}
	for i := range s.rows {
		byTS[s.rows[i].TS] = i
	}
	for _, r := range rows {
		if i, ok := byTS[r.TS]; ok {
			s.rows[i] = r
		} else {
			s.rows = append(s.rows, r)
		}
	}
	return nil
}

func (s *fakeFeatureStore) ListRange(_ context.Context, from, to time.Time) ([]models.FeatureRecord, error) {
	var out []models.FeatureRecord
	for _, r := range s.rows {
		if !r.TS.Before(from) && r.TS.Before(to) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *fakeFeatureStore) Latest(context.Context) (*models.FeatureRecord, error) {
	if len(s.rows) == 0 {
		return nil, nil
	}
	best := s.rows[0]
	for _, r := range s.rows[1:] {
		if r.TS.After(best.TS) {
			best = r
		}
	}
	return &best, nil
}

type fakePredictionStore struct {
	rows      []models.Prediction
	validated map[string]time.Time
}

func newFakePredictionStore() *fakePredictionStore {
	return &fakePredictionStore{validated: map[string]time.Time{}}
}

func (s *fakePredictionStore) InsertBatch(_ context.Context, rows []models.Prediction) error {
	s.rows = append(s.rows, rows...)
	return nil
}

func (s *fakePredictionStore) ListWindow(_ context.Context, from, to, createdAfter time.Time) ([]models.Prediction, error) {
	var out []models.Prediction
	for _, p := range s.rows {
		if p.TargetTS.After(from) && !p.TargetTS.After(to) && !p.CreatedAt.Before(createdAfter) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *fakePredictionStore) ListDue(_ context.Context, before time.Time, limit int) ([]models.Prediction, error) {
	var out []models.Prediction
	for _, p := range s.rows {
		if _, done := s.validated[p.ID]; done {
			continue
		}
		if !p.TargetTS.After(before) {
			out = append(out, p)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *fakePredictionStore) MarkValidated(_ context.Context, id string, at time.Time) error {
	s.validated[id] = at
	return nil
}

type fakeModelStore struct {
	versions []*models.ModelVersion
}

func (s *fakeModelStore) Insert(_ context.Context, mv *models.ModelVersion) error {
	s.versions = append(s.versions, mv)
	return nil
}

func (s *fakeModelStore) Active(context.Context) (*models.ModelVersion, error) {
	if len(s.versions) == 0 {
		return nil, nil
	}
	best := s.versions[0]
	for _, mv := range s.versions[1:] {
		if mv.TrainedAt.After(best.TrainedAt) {
			best = mv
		}
	}
	return best, nil
}

type fakeAccuracyStore struct {
	rows []models.AccuracyRecord
}

func (s *fakeAccuracyStore) Insert(_ context.Context, rec *models.AccuracyRecord) error {
	s.rows = append(s.rows, *rec)
	return nil
}

func (s *fakeAccuracyStore) ListSince(_ context.Context, since time.Time) ([]models.AccuracyRecord, error) {
	var out []models.AccuracyRecord
	for _, rec := range s.rows {
		if !rec.TargetTS.Before(since) {
			out = append(out, rec)
		}
	}
	return out, nil
}

type fakeCVStore struct {
	folds []models.CVFold
}

func (s *fakeCVStore) InsertFolds(_ context.Context, folds []models.CVFold) error {
	s.folds = append(s.folds, folds...)
	return nil
}

type fakeRetrainingStore struct {
	events []models.RetrainingEvent
}

func (s *fakeRetrainingStore) Insert(_ context.Context, ev *models.RetrainingEvent) error {
	s.events = append(s.events, *ev)
	return nil
}

func (s *fakeRetrainingStore) LastTriggered(context.Context) (*models.RetrainingEvent, error) {
	for i := len(s.events) - 1; i >= 0; i-- {
		if s.events[i].Triggered {
			ev := s.events[i]
			return &ev, nil
		}
	}
	return nil, nil
}

type fakeTelemetryStore struct {
	mu   sync.Mutex
	rows []models.ForecastTelemetry
}

func (s *fakeTelemetryStore) Insert(_ context.Context, row *models.ForecastTelemetry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, *row)
	return nil
}

type fakeQualityStore struct {
	reports []models.QualityReport
}

func (s *fakeQualityStore) Insert(_ context.Context, report *models.QualityReport) error {
	s.reports = append(s.reports, *report)
	return nil
}

func (s *fakeQualityStore) Latest(context.Context) (*models.QualityReport, error) {
	if len(s.reports) == 0 {
		return nil, nil
	}
	r := s.reports[len(s.reports)-1]
	return &r, nil
}

type fakeMetrics struct{}

func (fakeMetrics) RecordForecastRequest(string)  {}
func (fakeMetrics) RecordCacheLookup(string)      {}
func (fakeMetrics) RecordError(string)            {}
func (fakeMetrics) RecordValidation(string)       {}
func (fakeMetrics) RecordLastPoolPrice(float64)   {}
func (fakeMetrics) RecordModelSMAPE(float64)      {}
func (fakeMetrics) RecordLatency(string, float64) {}

// fakeCache is an in-memory cache.Service that marshals values the way
// the Redis implementation does.
type fakeCache struct {
	mu    sync.Mutex
	items map[string][]byte
}

func newFakeCache() *fakeCache {
	return &fakeCache{items: map[string][]byte{}}
}

func (c *fakeCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = data
	return nil
}

func (c *fakeCache) Get(_ context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	data, ok := c.items[key]
	c.mu.Unlock()
	if !ok {
		return cache.ErrCacheMiss
	}
	return json.Unmarshal(data, dest)
}

func (c *fakeCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.items, k)
	}
	return nil
}

func (c *fakeCache) DeleteByPattern(_ context.Context, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = map[string][]byte{}
	return nil
}

func (c *fakeCache) Exists(_ context.Context, keys ...string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		if _, ok := c.items[k]; !ok {
			return false, nil
		}
	}
	return true, nil
}

func (c *fakeCache) Expire(context.Context, string, time.Duration) (bool, error) {
	return true, nil
}

func (c *fakeCache) TryLock(context.Context, string, time.Duration) (bool, error) {
	return true, nil
}

func (c *fakeCache) Unlock(context.Context, string) error { return nil }

// fakePredictor returns a configurable constant point per vector and
// records training calls.
type fakePredictor struct {
	point      service.PredictionPoint
	trainCalls []*service.TrainRequest
	trainErr   error
	predictErr error
}

func (p *fakePredictor) Train(_ context.Context, req *service.TrainRequest) (*service.TrainResult, error) {
	p.trainCalls = append(p.trainCalls, req)
	if p.trainErr != nil {
		return nil, p.trainErr
	}
	return &service.TrainResult{
		Weights:     make([]float64, len(req.FeatureNames)),
		Intercept:   p.point.Price,
		ResidualStd: 1,
	}, nil
}

func (p *fakePredictor) Predict(_ context.Context, req *service.PredictRequest) ([]service.PredictionPoint, error) {
	if p.predictErr != nil {
		return nil, p.predictErr
	}
	out := make([]service.PredictionPoint, len(req.Vectors))
	for i := range out {
		out[i] = p.point
	}
	return out, nil
}

type fakeEvents struct {
	mu     sync.Mutex
	topics []string
}

func (e *fakeEvents) PublishMessage(_ context.Context, topic string, _ interface{}) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.topics = append(e.topics, topic)
	return nil
}

// fullFeatureRecord builds a feature record with every required value
// present so it survives matrix construction.
func fullFeatureRecord(ts time.Time, price float64) models.FeatureRecord {
	return models.FeatureRecord{
		TS:            ts,
		Price:         fp(price),
		Lag1h:         fp(price),
		Lag24h:        fp(price),
		Lag168h:       fp(price),
		RollMean3h:    fp(price),
		RollStd3h:     fp(1),
		RollMean24h:   fp(price),
		RollStd24h:    fp(1),
		Volatility24h: fp(0.1),
		Momentum3h:    fp(0),
		GasLag1d:      fp(2.5),
		ComputedAt:    ts,
	}
}
