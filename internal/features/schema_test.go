package features

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openhoops/match-predictor/internal/models"
)

func TestCanonicalSchema(t *testing.T) {
	assert.Equal(t, 15, CanonicalSchema.Width())
	assert.Equal(t, "v1", CanonicalSchema.Version)

	// Every team feature in the schema must be carried by TeamFeatureVector.
	names := map[string]bool{}
	for _, n := range models.FeatureNames() {
		names[n] = true
	}
	for _, c := range CanonicalSchema.Columns[3:] {
		assert.True(t, names[c], "column %s not in TeamFeatureVector", c)
	}
}

func TestSchemaVector(t *testing.T) {
	tf := models.TeamFeatureVector{PtsAvg5: 110, FGPctAvg5: 0.47, OvertimeRate10: 0.1, WinStreak5: 3}
	v, err := CanonicalSchema.Vector(4, 7, tf)
	require.NoError(t, err)
	require.Len(t, v, 15)
	assert.Equal(t, 4.0, v[0])
	assert.Equal(t, 7.0, v[1])
	assert.Equal(t, 1.0, v[2])
	assert.Equal(t, 110.0, v[3])
	assert.Equal(t, 0.47, v[4])
	assert.Equal(t, 3.0, v[11])
	assert.Equal(t, 0.1, v[14])
}

func TestSchemaVector_UnknownColumn(t *testing.T) {
	s := Schema{Version: "test", Columns: []string{ColIsHome, "h2h_win_rate"}}
	_, err := s.Vector(0, 0, models.TeamFeatureVector{})
	assert.Error(t, err)
}

func TestRollingColumn(t *testing.T) {
	assert.Equal(t, "fg3_pct_avg5", RollingColumn(ColFG3Pct, 5))
	assert.Equal(t, "pts_avg10", RollingColumn(ColPoints, 10))
}

func TestTeamEncoder(t *testing.T) {
	enc := FitTeamEncoder([]int64{30, 10}, []int64{20, 10})
	assert.Equal(t, []int64{10, 20, 30}, enc.Classes())

	code, err := enc.Transform(20)
	require.NoError(t, err)
	assert.Equal(t, 1, code)

	_, err = enc.Transform(15)
	var uce *UnknownCategoryError
	require.True(t, errors.As(err, &uce))
	assert.Equal(t, int64(15), uce.TeamID)
}

func TestNewTeamEncoder(t *testing.T) {
	enc, err := NewTeamEncoder([]int64{1, 5, 9})
	require.NoError(t, err)
	assert.Equal(t, 3, enc.Len())

	_, err = NewTeamEncoder([]int64{5, 1})
	assert.Error(t, err)
	_, err = NewTeamEncoder(nil)
	assert.Error(t, err)
}

func TestFrame(t *testing.T) {
	f := NewFrame(2)
	require.NoError(t, f.SetFloat("a", []float64{1, 2}))
	require.NoError(t, f.SetString("b", []string{"x", "y"}))
	assert.Error(t, f.SetFloat("c", []float64{1}))

	// Replacing a column keeps its position.
	require.NoError(t, f.SetFloat("a", []float64{3, 4}))
	assert.Equal(t, []string{"a", "b"}, f.Columns())

	c := f.Clone()
	v, _ := c.Float("a")
	v[0] = 99
	orig, _ := f.Float("a")
	assert.Equal(t, 3.0, orig[0])
}
