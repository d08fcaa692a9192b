package dataset

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `Name,Age,Medal
a,21,Gold
b,22,
c,NA,Silver
d,24,NaN
e,25,Bronze
`

// #region read-tests
func TestReadCSV_ParsesHeaderAndRows(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	assert.Equal(t, []string{"Name", "Age", "Medal"}, tbl.Columns)
	require.Equal(t, 5, tbl.Len())
	for i, rec := range tbl.Records {
		assert.Equal(t, i, rec.Index)
	}

	v, ok := tbl.Records[0].Get("Age")
	assert.True(t, ok)
	assert.Equal(t, "21", v)

	_, ok = tbl.Records[2].Get("Age")
	assert.False(t, ok, "NA should be missing")
}

func TestReadCSV_ShortRowLeavesColumnAbsent(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader("A,B,C\n1,2\n"))
	require.NoError(t, err)

	_, exists := tbl.Records[0].Raw("C")
	assert.False(t, exists)
	raw, exists := tbl.Records[0].Raw("A")
	assert.True(t, exists)
	assert.Equal(t, "1", raw)
	_, ok := tbl.Records[0].Get("C")
	assert.False(t, ok)
}

func TestReadCSV_Empty(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingData))
}

func TestReadCSV_StripsByteOrderMark(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader("\ufeffAge,Medal\n1,Gold\n"))
	require.NoError(t, err)
	assert.True(t, tbl.HasColumn("Age"))
}

func TestLoadCSV_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o644))

	tbl, err := LoadCSV(path)
	require.NoError(t, err)
	assert.Equal(t, 5, tbl.Len())
}

func TestLoadCSV_MissingFile(t *testing.T) {
	_, err := LoadCSV(filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
}
// #endregion read-tests

// #region filter-tests
func TestFilterLabeled_DropsMissingTargets(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	out, err := FilterLabeled(tbl, "Medal")
	require.NoError(t, err)

	// rows b (empty) and d (NaN) carry no label
	require.Equal(t, 3, out.Len())
	var names []string
	for _, rec := range out.Records {
		n, _ := rec.Get("Name")
		names = append(names, n)
	}
	assert.Equal(t, []string{"a", "c", "e"}, names)
	assert.Equal(t, []int{0, 2, 4}, []int{out.Records[0].Index, out.Records[1].Index, out.Records[2].Index})
}

func TestFilterLabeled_Cardinality(t *testing.T) {
	var b strings.Builder
	b.WriteString("Medal\n")
	labeled := 0
	for i := 0; i < 50; i++ {
		if i%3 == 0 {
			b.WriteString("\"\"\n")
			continue
		}
		b.WriteString("Gold\n")
		labeled++
	}
	tbl, err := ReadCSV(strings.NewReader(b.String()))
	require.NoError(t, err)
	require.Equal(t, 50, tbl.Len())

	out, err := FilterLabeled(tbl, "Medal")
	require.NoError(t, err)
	assert.Equal(t, labeled, out.Len())
	for _, rec := range out.Records {
		_, ok := rec.Get("Medal")
		assert.True(t, ok)
	}
}

func TestFilterLabeled_MissingTargetColumn(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader("Age\n1\n"))
	require.NoError(t, err)

	_, err = FilterLabeled(tbl, "Medal")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingColumn))
}

func TestFilterLabeled_NothingLabeled(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader("Age,Medal\n1,\n2,NA\n"))
	require.NoError(t, err)

	_, err = FilterLabeled(tbl, "Medal")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingData))
}
// #endregion filter-tests
