// Package recommend owns the serving state: the corpus snapshot and the model fitted on it.
// Queries read one immutable snapshot; retraining builds a new one off to the side and
// swaps it in only when the fit succeeds.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hyperjump/resep/internal/features"
	"github.com/hyperjump/resep/internal/metrics"
	"github.com/hyperjump/resep/internal/models"
	"github.com/hyperjump/resep/internal/similarity"
	"github.com/hyperjump/resep/internal/storage"
	"go.uber.org/zap"
)

// ErrNotReady is returned by Recommend before the first successful training.
var ErrNotReady = errors.New("model is not ready")

// State names the lifecycle stage of the serving model.
type State string

const (
	StateUntrained State = "untrained"
	StateTrained   State = "trained"
)

// Status is a point-in-time description of the serving model.
type Status struct {
	State          State      `json:"state"`
	CorpusSize     int        `json:"corpus_size"`
	VocabularySize int        `json:"vocabulary_size"`
	TrainedAt      *time.Time `json:"trained_at,omitempty"`
	Retraining     bool       `json:"retraining"`
}

type snapshot struct {
	corpus []*models.Recipe
	model  *similarity.Model
}

// Service answers recommendation queries and retrains from a corpus store.
type Service struct {
	store    storage.Store
	logger   *zap.Logger
	fitOpts  []similarity.Option
	defaultK int
	maxK     int

	mu      sync.RWMutex
	current *snapshot

	trainMu    sync.Mutex
	retraining bool
	flagMu     sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithDefaultK sets the neighbour count used when a query asks for none.
func WithDefaultK(k int) Option {
	return func(s *Service) {
		if k > 0 {
			s.defaultK = k
		}
	}
}

// WithMaxK caps the neighbour count a query may ask for. Zero means no cap.
func WithMaxK(k int) Option {
	return func(s *Service) {
		if k >= 0 {
			s.maxK = k
		}
	}
}

// WithFitOptions passes options through to similarity.Fit.
func WithFitOptions(opts ...similarity.Option) Option {
	return func(s *Service) {
		s.fitOpts = append(s.fitOpts, opts...)
	}
}

// NewService creates an untrained service over store.
func NewService(store storage.Store, opts ...Option) *Service {
	s := &Service{
		store:    store,
		logger:   zap.NewNop(),
		defaultK: similarity.DefaultK,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Retrain reloads the whole corpus from the store, fits a new model and swaps it in.
// Concurrent calls are serialized. On failure the previous snapshot keeps serving.
// It returns the size of the corpus the new model was fitted on.
func (s *Service) Retrain(ctx context.Context) (int, error) {
	s.trainMu.Lock()
	defer s.trainMu.Unlock()

	s.setRetraining(true)
	defer s.setRetraining(false)

	start := time.Now()
	n, err := s.retrain(ctx)
	metrics.RetrainDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.RetrainsTotal.WithLabelValues("error").Inc()
		s.logger.Error("retrain failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return 0, err
	}
	metrics.RetrainsTotal.WithLabelValues("ok").Inc()
	s.logger.Info("model retrained",
		zap.Int("corpus_size", n),
		zap.Duration("elapsed", time.Since(start)))
	return n, nil
}

func (s *Service) retrain(ctx context.Context) (int, error) {
	corpus, err := storage.LoadAll(ctx, s.store)
	if err != nil {
		return 0, fmt.Errorf("failed to load corpus: %w", err)
	}
	model, err := similarity.Fit(features.ExtractAll(corpus), s.fitOpts...)
	if err != nil {
		return 0, err
	}
	next := &snapshot{corpus: corpus, model: model}

	s.mu.Lock()
	s.current = next
	s.mu.Unlock()

	metrics.ModelCorpusSize.Set(float64(model.Size()))
	metrics.ModelVocabularySize.Set(float64(model.VocabularySize()))
	return len(corpus), nil
}

// Recommend returns up to k recipes whose ingredients are most similar to the query,
// nearest first. k <= 0 uses the configured default. A query without ingredient names,
// or whose names are all blank, fails with similarity.ErrEmptyQuery even before the first training.
func (s *Service) Recommend(_ context.Context, ingredients []models.Ingredient, k int) ([]*models.Recipe, error) {
	names := features.Names(ingredients)
	if strings.TrimSpace(strings.Join(names, " ")) == "" {
		metrics.RecommendationsTotal.WithLabelValues("empty_query").Inc()
		return nil, similarity.ErrEmptyQuery
	}
	snap := s.snapshot()
	if snap == nil {
		metrics.RecommendationsTotal.WithLabelValues("not_ready").Inc()
		return nil, ErrNotReady
	}
	if k <= 0 {
		k = s.defaultK
	}
	if s.maxK > 0 && k > s.maxK {
		k = s.maxK
	}
	neighbors, err := snap.model.Query(names, k)
	if err != nil {
		metrics.RecommendationsTotal.WithLabelValues("empty_query").Inc()
		return nil, err
	}
	out := make([]*models.Recipe, len(neighbors))
	for i, n := range neighbors {
		out[i] = snap.corpus[n.Row]
	}
	metrics.RecommendationsTotal.WithLabelValues("ok").Inc()
	s.logger.Debug("recommendations served",
		zap.Strings("ingredients", names),
		zap.Int("k", k),
		zap.Int("results", len(out)))
	return out, nil
}

// Ready reports whether a model is serving.
func (s *Service) Ready() bool {
	return s.snapshot() != nil
}

// Status describes the serving model.
func (s *Service) Status() Status {
	st := Status{State: StateUntrained}
	s.flagMu.Lock()
	st.Retraining = s.retraining
	s.flagMu.Unlock()

	snap := s.snapshot()
	if snap == nil {
		return st
	}
	st.State = StateTrained
	st.CorpusSize = len(snap.corpus)
	st.VocabularySize = snap.model.VocabularySize()
	trainedAt := snap.model.FittedAt()
	st.TrainedAt = &trainedAt
	return st
}

func (s *Service) snapshot() *snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *Service) setRetraining(v bool) {
	s.flagMu.Lock()
	s.retraining = v
	s.flagMu.Unlock()
}
