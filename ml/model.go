package ml

import (
	"errors"
	"time"
)

// FeatureCount is the expected length of an input feature vector:
// sepal length, sepal width, petal length, petal width (cm).
const FeatureCount = 4

// ClassNames lists the iris class labels in index order.
var ClassNames = []string{"setosa", "versicolor", "virginica"}

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotLoaded    = errors.New("model not loaded")
)

// Prediction is the result of classifying a single feature vector.
type Prediction struct {
	Label         string             `json:"prediction"`
	Index         int                `json:"prediction_index"`
	Probabilities map[string]float64 `json:"probabilities"`
	Confidence    float64            `json:"confidence"`
}

// Classifier turns a validated feature vector into a Prediction.
type Classifier interface {
	Predict(features []float64) (Prediction, error)
}

// ModelInfo describes the classifier currently in use.
type ModelInfo struct {
	Kind      string    `json:"kind"`
	Classes   []string  `json:"classes"`
	Trees     int       `json:"trees,omitempty"`
	TrainedAt time.Time `json:"trained_at,omitempty"`
	Loaded    bool      `json:"loaded"`
}

// predictionFromDist builds a Prediction from a class probability
// distribution indexed like ClassNames.
func predictionFromDist(dist []float64) Prediction {
	best := 0
	for i := 1; i < len(dist); i++ {
		if dist[i] > dist[best] {
			best = i
		}
	}

	probs := make(map[string]float64, len(ClassNames))
	for i, name := range ClassNames {
		if i < len(dist) {
			probs[name] = dist[i]
		} else {
			probs[name] = 0
		}
	}

	return Prediction{
		Label:         ClassNames[best],
		Index:         best,
		Probabilities: probs,
		Confidence:    dist[best],
	}
}
