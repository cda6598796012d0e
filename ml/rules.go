package ml

// RuleClassifier labels an iris from petal length alone. It exists as
// a dependency-free fallback for the forest and is fully deterministic.
type RuleClassifier struct{}

const (
	setosaPetalMax    = 2.5
	virginicaPetalMin = 5.0

	setosaConfidence     = 0.95
	versicolorConfidence = 0.90
	virginicaConfidence  = 0.90
)

func (rc *RuleClassifier) Predict(features []float64) (Prediction, error) {
	petalLength := features[2]

	var index int
	var confidence float64
	switch {
	case petalLength < setosaPetalMax:
		index, confidence = 0, setosaConfidence
	case petalLength < virginicaPetalMin:
		index, confidence = 1, versicolorConfidence
	default:
		index, confidence = 2, virginicaConfidence
	}

	// Winner gets the fixed confidence, the rest of the mass is split
	// evenly so the distribution still sums to 1.
	rest := (1 - confidence) / float64(len(ClassNames)-1)
	dist := make([]float64, len(ClassNames))
	for i := range dist {
		if i == index {
			dist[i] = confidence
		} else {
			dist[i] = rest
		}
	}

	return predictionFromDist(dist), nil
}
