package ml

import "fmt"

// Model type names accepted in config.
const (
	ModelTypeForest = "forest"
	ModelTypeRules  = "rules"
)

// LoadModel builds a classifier of the given type. For forests the
// path must point at an artifact written by (*RandomForest).Save.
func LoadModel(modelType, path string) (Classifier, error) {
	switch modelType {
	case ModelTypeForest:
		forest := &RandomForest{}
		if err := forest.Load(path); err != nil {
			return nil, err
		}
		return forest, nil
	case ModelTypeRules:
		return &RuleClassifier{}, nil
	default:
		return nil, fmt.Errorf("unsupported model type %q", modelType)
	}
}
