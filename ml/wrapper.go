package ml

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// WrapperConfig selects and parameterizes the classifier the wrapper
// owns.
type WrapperConfig struct {
	Type      string
	Path      string
	Trees     int
	MaxDepth  int
	Seed      int64
	CacheSize int
}

// Wrapper owns the single process-wide classifier instance. Load runs
// once at startup; after that the classifier is read-only, so
// concurrent Predict calls need no coordination beyond the load check.
type Wrapper struct {
	mu         sync.RWMutex
	classifier Classifier
	info       ModelInfo
	cache      *lru.Cache[string, Prediction]
	cfg        WrapperConfig
}

func NewWrapper(cfg WrapperConfig) *Wrapper {
	if cfg.Type == "" {
		cfg.Type = ModelTypeForest
	}
	return &Wrapper{cfg: cfg}
}

// Load prepares the classifier. Repeated calls after a success are
// no-ops; a failed load leaves the wrapper unloaded so the caller can
// treat it as fatal.
func (w *Wrapper) Load() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.classifier != nil {
		return nil
	}

	var classifier Classifier
	info := ModelInfo{Kind: w.cfg.Type, Classes: append([]string(nil), ClassNames...)}

	switch w.cfg.Type {
	case ModelTypeRules:
		classifier = &RuleClassifier{}

	case ModelTypeForest:
		if w.cfg.Path != "" {
			if _, err := os.Stat(w.cfg.Path); err == nil {
				loaded, err := LoadModel(ModelTypeForest, w.cfg.Path)
				if err != nil {
					return fmt.Errorf("load model from %s: %w", w.cfg.Path, err)
				}
				forest := loaded.(*RandomForest)
				classifier = forest
				info.Trees = len(forest.Trees)
				info.TrainedAt = forest.TrainedAt
				break
			}
		}

		dataset, err := LoadIris()
		if err != nil {
			return fmt.Errorf("load training data: %w", err)
		}
		forest, err := TrainForest(dataset.Features, dataset.Labels, ForestConfig{
			Trees:    w.cfg.Trees,
			MaxDepth: w.cfg.MaxDepth,
			Seed:     w.cfg.Seed,
		})
		if err != nil {
			return fmt.Errorf("train model: %w", err)
		}
		classifier = forest
		info.Trees = len(forest.Trees)
		info.TrainedAt = forest.TrainedAt

	default:
		return fmt.Errorf("unsupported model type %q", w.cfg.Type)
	}

	if w.cfg.CacheSize > 0 {
		cache, err := lru.New[string, Prediction](w.cfg.CacheSize)
		if err != nil {
			return fmt.Errorf("create prediction cache: %w", err)
		}
		w.cache = cache
	}

	info.Loaded = true
	w.classifier = classifier
	w.info = info
	return nil
}

// Predict validates the feature vector and delegates to the loaded
// classifier. Validation failures wrap ErrInvalidInput; calling before
// Load returns ErrNotLoaded.
func (w *Wrapper) Predict(features []float64) (Prediction, error) {
	if err := ValidateFeatures(features); err != nil {
		return Prediction{}, err
	}

	w.mu.RLock()
	classifier := w.classifier
	cache := w.cache
	w.mu.RUnlock()

	if classifier == nil {
		return Prediction{}, ErrNotLoaded
	}

	key := cacheKey(features)
	if cache != nil {
		if cached, ok := cache.Get(key); ok {
			return cached, nil
		}
	}

	prediction, err := classifier.Predict(features)
	if err != nil {
		return Prediction{}, err
	}

	if cache != nil {
		cache.Add(key, prediction)
	}
	return prediction, nil
}

// Loaded reports whether the classifier is ready. Pure query.
func (w *Wrapper) Loaded() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.classifier != nil
}

func (w *Wrapper) Info() ModelInfo {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.classifier == nil {
		return ModelInfo{Kind: w.cfg.Type, Classes: append([]string(nil), ClassNames...)}
	}
	return w.info
}

// ValidateFeatures enforces the input contract: exactly FeatureCount
// finite, non-negative values.
func ValidateFeatures(features []float64) error {
	if len(features) != FeatureCount {
		return fmt.Errorf("%w: expected %d features, got %d", ErrInvalidInput, FeatureCount, len(features))
	}
	for i, value := range features {
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return fmt.Errorf("%w: feature %d is not a finite number", ErrInvalidInput, i)
		}
		if value < 0 {
			return fmt.Errorf("%w: feature %d is negative", ErrInvalidInput, i)
		}
	}
	return nil
}

func cacheKey(features []float64) string {
	parts := make([]string, len(features))
	for i, value := range features {
		parts[i] = strconv.FormatFloat(value, 'g', -1, 64)
	}
	return strings.Join(parts, "|")
}
