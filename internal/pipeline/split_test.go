package pipeline

import (
	"errors"
	"reflect"
	"testing"

	"github.com/mikey/phishing-filter/internal/core"
)

func balancedLabels(perClass int) []int {
	labels := make([]int, 0, 2*perClass)
	for i := 0; i < perClass; i++ {
		labels = append(labels, core.ClassPhishing)
	}
	for i := 0; i < perClass; i++ {
		labels = append(labels, core.ClassLegitimate)
	}
	return labels
}

func TestStratifiedSplit(t *testing.T) {
	labels := balancedLabels(20)

	train, test, err := stratifiedSplit(labels, 0.2, 42)
	if err != nil {
		t.Fatalf("stratifiedSplit failed: %v", err)
	}
	if len(train) != 32 || len(test) != 8 {
		t.Fatalf("got %d train / %d test, want 32 / 8", len(train), len(test))
	}

	var testCounts [core.NumClasses]int
	for _, i := range test {
		testCounts[labels[i]]++
	}
	if testCounts[0] != 4 || testCounts[1] != 4 {
		t.Errorf("test class counts = %v, want [4 4]", testCounts)
	}

	seen := make(map[int]bool)
	for _, i := range append(append([]int{}, train...), test...) {
		if seen[i] {
			t.Fatalf("index %d appears twice", i)
		}
		seen[i] = true
	}
	if len(seen) != len(labels) {
		t.Errorf("split covers %d of %d examples", len(seen), len(labels))
	}
}

func TestStratifiedSplitDeterministic(t *testing.T) {
	labels := balancedLabels(20)

	trainA, testA, err := stratifiedSplit(labels, 0.2, 7)
	if err != nil {
		t.Fatal(err)
	}
	trainB, testB, err := stratifiedSplit(labels, 0.2, 7)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(trainA, trainB) || !reflect.DeepEqual(testA, testB) {
		t.Error("same seed produced different splits")
	}
}

func TestStratifiedSplitClampsSmallClasses(t *testing.T) {
	// 0.2 * 2 rounds to 0 but each side still needs one example per class
	labels := []int{0, 0, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1}
	train, test, err := stratifiedSplit(labels, 0.2, 1)
	if err != nil {
		t.Fatal(err)
	}

	var trainCounts, testCounts [core.NumClasses]int
	for _, i := range train {
		trainCounts[labels[i]]++
	}
	for _, i := range test {
		testCounts[labels[i]]++
	}
	for c := 0; c < core.NumClasses; c++ {
		if trainCounts[c] == 0 || testCounts[c] == 0 {
			t.Errorf("class %d: train %d, test %d", c, trainCounts[c], testCounts[c])
		}
	}
}

func TestStratifiedSplitErrors(t *testing.T) {
	if _, _, err := stratifiedSplit([]int{0, 0, 0, 1}, 0.2, 1); !errors.Is(err, core.ErrDatasetFormat) {
		t.Errorf("single phishing example: got %v, want ErrDatasetFormat", err)
	}
	if _, _, err := stratifiedSplit([]int{0, 0, 1, 1}, 0, 1); err == nil {
		t.Error("test fraction 0: expected error")
	}
	if _, _, err := stratifiedSplit([]int{0, 0, 1, 1}, 1, 1); err == nil {
		t.Error("test fraction 1: expected error")
	}
}
