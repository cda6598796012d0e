package ml

import (
	"errors"
	"math"
	"math/rand"
	"sort"
)

// decisionTree is a CART classification tree stored as a flat node
// array. Child links are absolute indices into Nodes; the root is 0.
type decisionTree struct {
	Nodes []treeNode `json:"nodes"`
}

type treeNode struct {
	FeatureIdx int       `json:"feature_idx"`
	Threshold  float64   `json:"threshold"`
	LeftChild  int       `json:"left_child"`
	RightChild int       `json:"right_child"`
	ClassDist  []float64 `json:"class_dist"`
	IsLeaf     bool      `json:"is_leaf"`
}

// trainTree fits a tree on the given samples. mtry features are drawn
// at random for every split; pass mtry >= feature count to consider
// all of them.
func trainTree(features [][]float64, labels []int, classCount, maxDepth, mtry int, rng *rand.Rand) (*decisionTree, error) {
	if len(features) == 0 || len(labels) == 0 {
		return nil, errors.New("features or labels empty")
	}
	if len(features) != len(labels) {
		return nil, errors.New("features and labels size mismatch")
	}
	if maxDepth <= 0 {
		maxDepth = 5
	}
	if mtry <= 0 {
		mtry = len(features[0])
	}

	tree := &decisionTree{}
	tree.Nodes = buildNode(features, labels, classCount, 0, maxDepth, mtry, rng)
	for i := range tree.Nodes {
		// Relative child offsets become absolute indices once the
		// subtrees are concatenated.
		if !tree.Nodes[i].IsLeaf {
			tree.Nodes[i].LeftChild += i
			tree.Nodes[i].RightChild += i
		}
	}
	return tree, nil
}

func (dt *decisionTree) predictDist(features []float64) ([]float64, error) {
	if len(dt.Nodes) == 0 {
		return nil, errors.New("tree not trained")
	}
	idx := 0
	for {
		node := dt.Nodes[idx]
		if node.IsLeaf {
			return node.ClassDist, nil
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= len(features) {
			return nil, errors.New("feature index out of range")
		}
		if features[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
		if idx < 0 || idx >= len(dt.Nodes) {
			return nil, errors.New("invalid tree state")
		}
	}
}

// buildNode returns the subtree rooted at the current sample set as a
// flat slice with the root first. Child indices are relative to the
// root until trainTree fixes them up.
func buildNode(features [][]float64, labels []int, classCount, depth, maxDepth, mtry int, rng *rand.Rand) []treeNode {
	if depth >= maxDepth || isPure(labels) {
		return []treeNode{leafNode(labels, classCount)}
	}

	bestFeature, threshold, ok := findBestSplit(features, labels, mtry, rng)
	if !ok {
		return []treeNode{leafNode(labels, classCount)}
	}

	leftFeatures, leftLabels, rightFeatures, rightLabels := splitData(features, labels, bestFeature, threshold)
	if len(leftLabels) == 0 || len(rightLabels) == 0 {
		return []treeNode{leafNode(labels, classCount)}
	}

	leftNodes := buildNode(leftFeatures, leftLabels, classCount, depth+1, maxDepth, mtry, rng)
	rightNodes := buildNode(rightFeatures, rightLabels, classCount, depth+1, maxDepth, mtry, rng)

	root := treeNode{
		FeatureIdx: bestFeature,
		Threshold:  threshold,
		LeftChild:  1,
		RightChild: 1 + len(leftNodes),
		IsLeaf:     false,
	}

	nodes := make([]treeNode, 0, 1+len(leftNodes)+len(rightNodes))
	nodes = append(nodes, root)
	nodes = append(nodes, leftNodes...)
	nodes = append(nodes, rightNodes...)
	return nodes
}

func leafNode(labels []int, classCount int) treeNode {
	return treeNode{
		FeatureIdx: -1,
		LeftChild:  -1,
		RightChild: -1,
		ClassDist:  classDistribution(labels, classCount),
		IsLeaf:     true,
	}
}

// findBestSplit scans candidate thresholds (midpoints between adjacent
// distinct values) on a random subset of mtry features and keeps the
// one with the lowest weighted gini impurity.
func findBestSplit(features [][]float64, labels []int, mtry int, rng *rand.Rand) (int, float64, bool) {
	featureCount := len(features[0])
	candidates := featureSubset(featureCount, mtry, rng)

	bestFeature := -1
	bestThreshold := 0.0
	bestImpurity := math.MaxFloat64

	for _, featureIdx := range candidates {
		values := make([]float64, len(features))
		for i := range features {
			values[i] = features[i][featureIdx]
		}
		sort.Float64s(values)

		for i := 1; i < len(values); i++ {
			if values[i] == values[i-1] {
				continue
			}
			threshold := (values[i-1] + values[i]) / 2
			leftLabels, rightLabels := splitLabels(features, labels, featureIdx, threshold)
			if len(leftLabels) == 0 || len(rightLabels) == 0 {
				continue
			}
			impurity := weightedGini(leftLabels, rightLabels)
			if impurity < bestImpurity {
				bestImpurity = impurity
				bestFeature = featureIdx
				bestThreshold = threshold
			}
		}
	}
	if bestFeature == -1 {
		return -1, 0, false
	}
	return bestFeature, bestThreshold, true
}

func featureSubset(featureCount, mtry int, rng *rand.Rand) []int {
	if mtry >= featureCount || rng == nil {
		all := make([]int, featureCount)
		for i := range all {
			all[i] = i
		}
		return all
	}
	return rng.Perm(featureCount)[:mtry]
}

func splitData(features [][]float64, labels []int, featureIdx int, threshold float64) ([][]float64, []int, [][]float64, []int) {
	leftFeatures := make([][]float64, 0)
	leftLabels := make([]int, 0)
	rightFeatures := make([][]float64, 0)
	rightLabels := make([]int, 0)
	for i, feature := range features {
		if feature[featureIdx] <= threshold {
			leftFeatures = append(leftFeatures, feature)
			leftLabels = append(leftLabels, labels[i])
		} else {
			rightFeatures = append(rightFeatures, feature)
			rightLabels = append(rightLabels, labels[i])
		}
	}
	return leftFeatures, leftLabels, rightFeatures, rightLabels
}

func splitLabels(features [][]float64, labels []int, featureIdx int, threshold float64) ([]int, []int) {
	leftLabels := make([]int, 0)
	rightLabels := make([]int, 0)
	for i, feature := range features {
		if feature[featureIdx] <= threshold {
			leftLabels = append(leftLabels, labels[i])
		} else {
			rightLabels = append(rightLabels, labels[i])
		}
	}
	return leftLabels, rightLabels
}

func weightedGini(leftLabels, rightLabels []int) float64 {
	leftWeight := float64(len(leftLabels))
	rightWeight := float64(len(rightLabels))
	total := leftWeight + rightWeight
	return (leftWeight/total)*gini(leftLabels) + (rightWeight/total)*gini(rightLabels)
}

func gini(labels []int) float64 {
	if len(labels) == 0 {
		return 0
	}
	counts := make(map[int]int)
	for _, label := range labels {
		counts[label]++
	}
	impurity := 1.0
	for _, count := range counts {
		prob := float64(count) / float64(len(labels))
		impurity -= prob * prob
	}
	return impurity
}

func classDistribution(labels []int, classCount int) []float64 {
	dist := make([]float64, classCount)
	if len(labels) == 0 {
		return dist
	}
	for _, label := range labels {
		if label >= 0 && label < classCount {
			dist[label]++
		}
	}
	for i := range dist {
		dist[i] /= float64(len(labels))
	}
	return dist
}

func isPure(labels []int) bool {
	if len(labels) == 0 {
		return true
	}
	first := labels[0]
	for _, label := range labels[1:] {
		if label != first {
			return false
		}
	}
	return true
}
