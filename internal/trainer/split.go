package trainer

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/danielpatrickdp/medalfit/internal/features"
)

// #region split
// Split holds row indices of the training and held-out sets, ascending.
type Split struct {
	Train []int
	Test  []int
}

// StratifiedSplit partitions row indices so each class keeps its proportion
// in both sets. Every class contributes at least one row to each side. The
// result depends only on labels, ratio and seed.
func StratifiedSplit(labels []string, ratio float64, seed int64) (Split, error) {
	if ratio <= 0 || ratio >= 1 {
		return Split{}, fmt.Errorf("split ratio %v outside (0, 1)", ratio)
	}

	byClass := map[string][]int{}
	for i, l := range labels {
		byClass[l] = append(byClass[l], i)
	}
	classes := features.SortedClasses(labels)
	for _, c := range classes {
		if n := len(byClass[c]); n < 2 {
			return Split{}, &InsufficientClassSamplesError{Class: c, Count: n}
		}
	}

	rng := rand.New(rand.NewSource(seed))
	var s Split
	for _, c := range classes {
		idx := append([]int(nil), byClass[c]...)
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })

		n := len(idx)
		nTest := int(math.Round(ratio * float64(n)))
		nTest = max(1, min(nTest, n-1))
		s.Test = append(s.Test, idx[:nTest]...)
		s.Train = append(s.Train, idx[nTest:]...)
	}
	sort.Ints(s.Train)
	sort.Ints(s.Test)
	return s, nil
}
// #endregion split
