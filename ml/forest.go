package ml

import (
	"encoding/json"
	"errors"
	"math"
	"math/rand"
	"os"
	"time"
)

// ForestConfig controls random forest training. The seed makes the
// bootstrap samples and split-feature draws reproducible run to run.
type ForestConfig struct {
	Trees    int
	MaxDepth int
	Seed     int64
}

func DefaultForestConfig() ForestConfig {
	return ForestConfig{
		Trees:    100,
		MaxDepth: 5,
		Seed:     42,
	}
}

// RandomForest is a bagged ensemble of CART trees. Probabilities are
// the mean of the per-tree leaf class distributions.
type RandomForest struct {
	Trees     []decisionTree `json:"trees"`
	Classes   []string       `json:"classes"`
	Seed      int64          `json:"seed"`
	TrainedAt time.Time      `json:"trained_at"`
}

// TrainForest fits a forest on the given samples. Each tree sees a
// bootstrap sample of the data and sqrt(featureCount) candidate
// features per split.
func TrainForest(features [][]float64, labels []int, cfg ForestConfig) (*RandomForest, error) {
	if len(features) == 0 || len(labels) == 0 {
		return nil, errors.New("features or labels empty")
	}
	if len(features) != len(labels) {
		return nil, errors.New("features and labels size mismatch")
	}
	if cfg.Trees <= 0 {
		cfg.Trees = DefaultForestConfig().Trees
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = DefaultForestConfig().MaxDepth
	}

	classCount := len(ClassNames)
	mtry := int(math.Sqrt(float64(len(features[0]))))
	if mtry < 1 {
		mtry = 1
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	forest := &RandomForest{
		Trees:     make([]decisionTree, 0, cfg.Trees),
		Classes:   append([]string(nil), ClassNames...),
		Seed:      cfg.Seed,
		TrainedAt: time.Now().UTC(),
	}

	n := len(features)
	for t := 0; t < cfg.Trees; t++ {
		sampleFeatures := make([][]float64, n)
		sampleLabels := make([]int, n)
		for i := 0; i < n; i++ {
			j := rng.Intn(n)
			sampleFeatures[i] = features[j]
			sampleLabels[i] = labels[j]
		}

		tree, err := trainTree(sampleFeatures, sampleLabels, classCount, cfg.MaxDepth, mtry, rng)
		if err != nil {
			return nil, err
		}
		forest.Trees = append(forest.Trees, *tree)
	}

	return forest, nil
}

func (rf *RandomForest) Predict(features []float64) (Prediction, error) {
	if len(rf.Trees) == 0 {
		return Prediction{}, errors.New("forest not trained")
	}

	sum := make([]float64, len(rf.Classes))
	for i := range rf.Trees {
		dist, err := rf.Trees[i].predictDist(features)
		if err != nil {
			return Prediction{}, err
		}
		for c := range sum {
			if c < len(dist) {
				sum[c] += dist[c]
			}
		}
	}
	for c := range sum {
		sum[c] /= float64(len(rf.Trees))
	}

	return predictionFromDist(sum), nil
}

func (rf *RandomForest) Save(path string) error {
	if len(rf.Trees) == 0 {
		return errors.New("forest not trained")
	}
	payload, err := json.Marshal(rf)
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}

func (rf *RandomForest) Load(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var loaded RandomForest
	if err := json.Unmarshal(payload, &loaded); err != nil {
		return err
	}
	if len(loaded.Trees) == 0 {
		return errors.New("model file contains no trees")
	}
	*rf = loaded
	return nil
}

// Accuracy reports the fraction of samples the forest labels correctly.
func (rf *RandomForest) Accuracy(features [][]float64, labels []int) (float64, error) {
	if len(features) == 0 || len(features) != len(labels) {
		return 0, errors.New("features and labels size mismatch")
	}
	correct := 0
	for i, sample := range features {
		pred, err := rf.Predict(sample)
		if err != nil {
			return 0, err
		}
		if pred.Index == labels[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(features)), nil
}
