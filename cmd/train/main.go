// Command train fits a random forest on the bundled iris dataset and
// writes the artifact the server's model.path setting points at.
package main

import (
	"flag"
	"log"
	"math/rand"
	"os"
	"path/filepath"

	"irisserve/ml"
)

func main() {
	out := flag.String("out", "models/forest.json", "artifact output path")
	trees := flag.Int("trees", 100, "number of trees")
	maxDepth := flag.Int("max-depth", 5, "maximum tree depth")
	seed := flag.Int64("seed", 42, "training seed")
	holdout := flag.Float64("holdout", 0.2, "fraction of samples held out for evaluation")
	flag.Parse()

	dataset, err := ml.LoadIris()
	if err != nil {
		log.Fatalf("Failed to load dataset: %v", err)
	}
	log.Printf("Loaded %d samples", len(dataset.Features))

	trainX, trainY, testX, testY := splitDataset(dataset.Features, dataset.Labels, *holdout, *seed)

	forest, err := ml.TrainForest(trainX, trainY, ml.ForestConfig{
		Trees:    *trees,
		MaxDepth: *maxDepth,
		Seed:     *seed,
	})
	if err != nil {
		log.Fatalf("Training failed: %v", err)
	}

	if len(testX) > 0 {
		accuracy, err := forest.Accuracy(testX, testY)
		if err != nil {
			log.Fatalf("Evaluation failed: %v", err)
		}
		log.Printf("Holdout accuracy: %.1f%% (%d samples)", accuracy*100, len(testX))
	}

	if dir := filepath.Dir(*out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatalf("Failed to create output directory: %v", err)
		}
	}
	if err := forest.Save(*out); err != nil {
		log.Fatalf("Failed to save model: %v", err)
	}
	log.Printf("Model saved to %s (%d trees)", *out, *trees)
}

func splitDataset(features [][]float64, labels []int, testRatio float64, seed int64) (trainX [][]float64, trainY []int, testX [][]float64, testY []int) {
	if testRatio <= 0 || testRatio >= 1 {
		return features, labels, nil, nil
	}
	rnd := rand.New(rand.NewSource(seed))
	indices := rnd.Perm(len(features))

	split := len(features) - int(float64(len(features))*testRatio)
	for i, idx := range indices {
		if i < split {
			trainX = append(trainX, features[idx])
			trainY = append(trainY, labels[idx])
		} else {
			testX = append(testX, features[idx])
			testY = append(testY, labels[idx])
		}
	}
	return trainX, trainY, testX, testY
}
