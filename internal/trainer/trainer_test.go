package trainer

import (
	"errors"
	"testing"

	"github.com/danielpatrickdp/medalfit/internal/features"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

// #region helpers
// tenRecords is the 10-row synthetic set: Age 20..29, Rank 1..10.
func tenRecords() features.Result {
	medals := []string{"Gold", "Silver", "Bronze", "Gold", "Silver", "Bronze", "Gold", "Silver", "Bronze", "Gold"}
	genders := []string{"M", "F"}
	nocs := []string{"USA", "CHN"}
	res := features.Result{
		Numeric:     []string{"Age", "Rank"},
		Categorical: []string{"Gender", "NOC", "Discipline", "Sport"},
	}
	for i := 0; i < 10; i++ {
		res.Vectors = append(res.Vectors, features.Vector{
			Index:       i,
			Numeric:     []float64{float64(20 + i), float64(1 + i)},
			Categorical: []string{genders[i%2], nocs[(i/2)%2], "D", "S"},
		})
		res.Labels = append(res.Labels, medals[i])
	}
	return res
}
// #endregion helpers

// #region split-tests
func TestStratifiedSplit_PreservesEveryClass(t *testing.T) {
	labels := []string{"A", "A", "A", "A", "A", "B", "B", "B", "B", "B", "C", "C"}
	s, err := StratifiedSplit(labels, 0.2, 42)
	require.NoError(t, err)

	assert.Len(t, append(s.Train, s.Test...), len(labels))
	seen := map[int]bool{}
	for _, i := range append(s.Train, s.Test...) {
		assert.False(t, seen[i], "index %d twice", i)
		seen[i] = true
	}

	count := func(idx []int) map[string]int {
		m := map[string]int{}
		for _, i := range idx {
			m[labels[i]]++
		}
		return m
	}
	test := count(s.Test)
	train := count(s.Train)
	assert.Equal(t, map[string]int{"A": 1, "B": 1, "C": 1}, test)
	assert.Equal(t, map[string]int{"A": 4, "B": 4, "C": 1}, train)
}

func TestStratifiedSplit_ProportionOnLargerSet(t *testing.T) {
	var labels []string
	for i := 0; i < 100; i++ {
		labels = append(labels, "A")
	}
	for i := 0; i < 50; i++ {
		labels = append(labels, "B")
	}
	s, err := StratifiedSplit(labels, 0.2, 42)
	require.NoError(t, err)
	assert.Len(t, s.Test, 30)
	assert.Len(t, s.Train, 120)
}

func TestStratifiedSplit_Deterministic(t *testing.T) {
	labels := tenRecords().Labels
	a, err := StratifiedSplit(labels, 0.2, 42)
	require.NoError(t, err)
	b, err := StratifiedSplit(labels, 0.2, 42)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestStratifiedSplit_InsufficientClassSamples(t *testing.T) {
	_, err := StratifiedSplit([]string{"Gold", "Gold", "Silver"}, 0.2, 42)
	require.Error(t, err)

	var ice *InsufficientClassSamplesError
	require.True(t, errors.As(err, &ice))
	assert.Equal(t, "Silver", ice.Class)
	assert.Equal(t, 1, ice.Count)
}

func TestStratifiedSplit_BadRatio(t *testing.T) {
	_, err := StratifiedSplit([]string{"A", "A"}, 1.5, 42)
	require.Error(t, err)
}
// #endregion split-tests

// #region train-tests
func TestTrain_TenRecords(t *testing.T) {
	res := tenRecords()
	out, err := Train(res, features.DefaultColumnSpec(), DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, []string{"Bronze", "Gold", "Silver"}, out.Model.Classes())
	assert.Equal(t, 10, out.TrainSize+out.TestSize)
	assert.Equal(t, 3, out.TestSize)
	assert.Len(t, out.Report.Classes, 3)
	assert.Equal(t, out.TestSize, out.Report.Total)

	p, err := out.Model.PredictProba(res.Vectors[0])
	require.NoError(t, err)
	assert.Len(t, p, 3)
	assert.InDelta(t, 1.0, floats.Sum(p), 1e-9)
}

func TestTrain_FitsOnTrainingSplitOnly(t *testing.T) {
	res := tenRecords()
	// make one record's NOC unique so where it lands decides the vocabulary
	res.Vectors[9].Categorical[1] = "ZZZ"
	out, err := Train(res, features.DefaultColumnSpec(), DefaultOptions())
	require.NoError(t, err)

	inTest := false
	for _, i := range out.Split.Test {
		if i == 9 {
			inTest = true
		}
	}
	vocab := out.Model.Preprocessor.OneHot().Vocabulary("NOC")
	assert.Equal(t, !inTest, contains(vocab, "ZZZ"))
}

func TestTrain_Idempotent(t *testing.T) {
	a, err := Train(tenRecords(), features.DefaultColumnSpec(), DefaultOptions())
	require.NoError(t, err)
	b, err := Train(tenRecords(), features.DefaultColumnSpec(), DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, a.Model.Classes(), b.Model.Classes())
	assert.Equal(t, a.Model.Preprocessor.Scaler().Scales(), b.Model.Preprocessor.Scaler().Scales())
	for _, col := range features.DefaultColumnSpec().Categorical {
		assert.Equal(t, a.Model.Preprocessor.OneHot().Vocabulary(col), b.Model.Preprocessor.OneHot().Vocabulary(col))
	}
	assert.Equal(t, a.Model.Classifier.Biases(), b.Model.Classifier.Biases())
}

func TestTrain_PropagatesSplitError(t *testing.T) {
	res := tenRecords()
	res.Labels[9] = "Platinum"
	_, err := Train(res, features.DefaultColumnSpec(), DefaultOptions())

	var ice *InsufficientClassSamplesError
	assert.True(t, errors.As(err, &ice))
}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}
// #endregion train-tests
