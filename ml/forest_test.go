package ml

import (
	"math"
	"path/filepath"
	"reflect"
	"testing"
)

func trainTestForest(t *testing.T, cfg ForestConfig) *RandomForest {
	t.Helper()
	dataset, err := LoadIris()
	if err != nil {
		t.Fatalf("load iris: %v", err)
	}
	forest, err := TrainForest(dataset.Features, dataset.Labels, cfg)
	if err != nil {
		t.Fatalf("train forest: %v", err)
	}
	return forest
}

func TestForestPredictProbabilitiesSumToOne(t *testing.T) {
	forest := trainTestForest(t, ForestConfig{Trees: 20, MaxDepth: 5, Seed: 42})

	inputs := [][]float64{
		{5.1, 3.5, 1.4, 0.2},
		{6.0, 3.0, 4.5, 1.5},
		{7.0, 3.0, 6.0, 2.0},
		{0, 0, 0, 0},
	}
	for _, input := range inputs {
		pred, err := forest.Predict(input)
		if err != nil {
			t.Fatalf("predict %v: %v", input, err)
		}

		sum := 0.0
		for _, p := range pred.Probabilities {
			sum += p
		}
		if math.Abs(sum-1.0) > 1e-6 {
			t.Fatalf("probabilities for %v sum to %v", input, sum)
		}
		if pred.Index < 0 || pred.Index > 2 {
			t.Fatalf("index out of range: %d", pred.Index)
		}
		if pred.Label != ClassNames[pred.Index] {
			t.Fatalf("label %q inconsistent with index %d", pred.Label, pred.Index)
		}
		if pred.Confidence != pred.Probabilities[pred.Label] {
			t.Fatalf("confidence %v != winner probability %v", pred.Confidence, pred.Probabilities[pred.Label])
		}
	}
}

func TestForestKnownSamples(t *testing.T) {
	forest := trainTestForest(t, ForestConfig{Trees: 50, MaxDepth: 5, Seed: 42})

	cases := []struct {
		input []float64
		want  string
	}{
		{[]float64{5.1, 3.5, 1.4, 0.2}, "setosa"},
		{[]float64{6.0, 3.0, 4.5, 1.5}, "versicolor"},
		{[]float64{7.0, 3.0, 6.0, 2.0}, "virginica"},
	}
	for _, tc := range cases {
		pred, err := forest.Predict(tc.input)
		if err != nil {
			t.Fatalf("predict %v: %v", tc.input, err)
		}
		if pred.Label != tc.want {
			t.Fatalf("predict %v = %q, want %q", tc.input, pred.Label, tc.want)
		}
	}
}

func TestForestDeterministicWithSeed(t *testing.T) {
	cfg := ForestConfig{Trees: 15, MaxDepth: 4, Seed: 7}
	first := trainTestForest(t, cfg)
	second := trainTestForest(t, cfg)

	inputs := [][]float64{
		{5.0, 3.4, 1.5, 0.2},
		{6.4, 2.9, 4.3, 1.3},
		{6.5, 3.0, 5.8, 2.2},
	}
	for _, input := range inputs {
		a, err := first.Predict(input)
		if err != nil {
			t.Fatalf("predict: %v", err)
		}
		b, err := second.Predict(input)
		if err != nil {
			t.Fatalf("predict: %v", err)
		}
		if a.Label != b.Label || !reflect.DeepEqual(a.Probabilities, b.Probabilities) {
			t.Fatalf("same seed gave different results: %+v vs %+v", a, b)
		}
	}
}

func TestForestTrainingAccuracy(t *testing.T) {
	forest := trainTestForest(t, ForestConfig{Trees: 30, MaxDepth: 5, Seed: 42})

	dataset, err := LoadIris()
	if err != nil {
		t.Fatalf("load iris: %v", err)
	}
	accuracy, err := forest.Accuracy(dataset.Features, dataset.Labels)
	if err != nil {
		t.Fatalf("accuracy: %v", err)
	}
	if accuracy < 0.9 {
		t.Fatalf("training accuracy %.3f below 0.9", accuracy)
	}
}

func TestForestSaveLoadRoundTrip(t *testing.T) {
	forest := trainTestForest(t, ForestConfig{Trees: 10, MaxDepth: 4, Seed: 42})

	path := filepath.Join(t.TempDir(), "forest.json")
	if err := forest.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded := &RandomForest{}
	if err := loaded.Load(path); err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded.Trees) != len(forest.Trees) {
		t.Fatalf("tree count changed: %d vs %d", len(loaded.Trees), len(forest.Trees))
	}

	input := []float64{5.9, 3.0, 5.1, 1.8}
	a, err := forest.Predict(input)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	b, err := loaded.Predict(input)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("round trip changed prediction: %+v vs %+v", a, b)
	}
}

func TestForestSaveUntrained(t *testing.T) {
	forest := &RandomForest{}
	if err := forest.Save(filepath.Join(t.TempDir(), "forest.json")); err == nil {
		t.Fatal("expected error saving untrained forest")
	}
}
