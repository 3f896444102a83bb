package synthesis_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/02loveslollipop/shizuku-synthesis/services/api/synthesis"
)

func Test_ParseTimeFrequency(t *testing.T) {
	f, err := synthesis.ParseTimeFrequency("")
	require.NoError(t, err)
	assert.Equal(t, synthesis.FrequencyDay, f)

	f, err = synthesis.ParseTimeFrequency(" hour ")
	require.NoError(t, err)
	assert.Equal(t, synthesis.FrequencyHour, f)

	f, err = synthesis.ParseTimeFrequency("NONE")
	require.NoError(t, err)
	assert.Equal(t, synthesis.FrequencyNone, f)

	_, err = synthesis.ParseTimeFrequency("FORTNIGHT")
	assert.Error(t, err)
}

func Test_ParseVocabularies(t *testing.T) {
	st, err := synthesis.ParseStatistic("total")
	require.NoError(t, err)
	assert.Equal(t, synthesis.StatisticTotal, st)
	_, err = synthesis.ParseStatistic("MEDIAN")
	assert.Error(t, err)

	rq, err := synthesis.ParseResultQuality("partially_checked")
	require.NoError(t, err)
	assert.Equal(t, synthesis.QualityPartiallyChecked, rq)
	_, err = synthesis.ParseResultQuality("GOOD")
	assert.Error(t, err)

	ft, err := synthesis.ParseFeatureType("vertical_path")
	require.NoError(t, err)
	assert.Equal(t, synthesis.FeatureVerticalPath, ft)
	_, err = synthesis.ParseFeatureType("TREE")
	assert.Error(t, err)
}

func Test_ShapeOf(t *testing.T) {
	assert.Equal(t, synthesis.ShapePoint, synthesis.ShapeOf(synthesis.FeaturePoint))
	assert.Equal(t, synthesis.ShapeCurve, synthesis.ShapeOf(synthesis.FeatureHorizontalPath))
	assert.Equal(t, synthesis.ShapeSurface, synthesis.ShapeOf(synthesis.FeatureSubbasin))
}
