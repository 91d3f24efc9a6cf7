package pipeline

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/mikey/phishing-filter/internal/core"
)

// stratifiedSplit partitions example indices into train and test sets so that
// both keep the class proportions of the full dataset. Each class contributes
// round(testFraction * n_c) test examples, clamped so that both sides receive
// at least one example of every class.
func stratifiedSplit(labels []int, testFraction float64, seed uint64) (train, test []int, err error) {
	if testFraction <= 0 || testFraction >= 1 {
		return nil, nil, fmt.Errorf("test fraction must be in (0, 1), got %g", testFraction)
	}

	byClass := make([][]int, core.NumClasses)
	for i, label := range labels {
		if label < 0 || label >= core.NumClasses {
			return nil, nil, fmt.Errorf("%w: label %d is not 0 or 1", core.ErrDatasetFormat, label)
		}
		byClass[label] = append(byClass[label], i)
	}

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	for c, idx := range byClass {
		if len(idx) < 2 {
			return nil, nil, fmt.Errorf("%w: class %d has %d examples, need at least 2 to stratify",
				core.ErrDatasetFormat, c, len(idx))
		}

		nTest := int(math.Round(testFraction * float64(len(idx))))
		nTest = max(1, min(nTest, len(idx)-1))

		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		test = append(test, idx[:nTest]...)
		train = append(train, idx[nTest:]...)
	}

	sort.Ints(train)
	sort.Ints(test)
	return train, test, nil
}
