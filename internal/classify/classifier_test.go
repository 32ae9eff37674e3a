package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockrecon/internal/model"
	"stockrecon/internal/sheet"
)

const (
	colCode     = 3
	colBaseline = 10 // J
	colMetric   = 12 // L
)

var spans = []Span{{From: 1, To: 11}, {From: 13, To: 20}} // A:K, M:T

func newOptions() Options {
	return Options{
		CodeColumn:     colCode,
		BaselineColumn: colBaseline,
		MetricColumn:   colMetric,
		SkipCodes:      []string{"00514", "4928"},
		ContextSpans:   spans,
	}
}

func row(tb *sheet.Table, r int, c, baseline, metric any) {
	tb.SetCell(r, colCode, c)
	tb.SetCell(r, colBaseline, baseline)
	tb.SetCell(r, colMetric, metric)
}

func TestEvaluate_Boundaries(t *testing.T) {
	cases := []struct {
		baseline, metric float64
		want             model.Category
	}{
		{10, 0, model.CategoryNone},
		{0, 0, model.CategoryNone},
		{-3, 0, model.CategoryNone},
		{5, -1, model.CategoryNone},
		{0, 5, model.CategoryCritical},
		{10, 5, model.CategoryModerate},
		{10, 10, model.CategorySevere},
		{10, 25, model.CategorySevere},
		{-3, 5, model.CategoryCritical},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Evaluate(tc.baseline, tc.metric), "baseline=%v metric=%v", tc.baseline, tc.metric)
	}
}

func TestEvaluate_TotalForPositiveMetric(t *testing.T) {
	for b := -20.0; b <= 20; b += 0.5 {
		for m := 0.5; m <= 20; m += 0.5 {
			got := Evaluate(b, m)
			require.Contains(t, []model.Category{model.CategoryCritical, model.CategoryModerate, model.CategorySevere}, got)
			require.Equal(t, got, Evaluate(b, m))
		}
	}
}

func TestClassify_HighlightsFocusAndContext(t *testing.T) {
	tb := sheet.New("库存表")
	row(tb, 5, "10023", 0.0, 5.0)   // CRITICAL
	row(tb, 6, "10024", 10.0, 5.0)  // MODERATE
	row(tb, 7, "10025", 10.0, 10.0) // SEVERE
	row(tb, 8, "10026", 10.0, 0.0)  // NONE

	report := New(newOptions(), nil).Classify(tb, model.RowRange{First: 5, End: 9})

	assert.Equal(t, 1, report.Counts[model.CategoryCritical])
	assert.Equal(t, 1, report.Counts[model.CategoryModerate])
	assert.Equal(t, 1, report.Counts[model.CategorySevere])
	assert.Equal(t, 1, report.Counts[model.CategoryNone])

	assert.Equal(t, model.HighlightCriticalFocus, tb.Highlight(5, colMetric))
	assert.Equal(t, model.HighlightCriticalContext, tb.Highlight(5, 1))
	assert.Equal(t, model.HighlightCriticalContext, tb.Highlight(5, 11))
	assert.Equal(t, model.HighlightCriticalContext, tb.Highlight(5, 20))
	assert.Equal(t, model.HighlightNone, tb.Highlight(5, 21))

	assert.Equal(t, model.HighlightModerateFocus, tb.Highlight(6, colMetric))
	assert.Equal(t, model.HighlightNone, tb.Highlight(6, 1), "moderate has no context highlight")

	assert.Equal(t, model.HighlightSevereFocus, tb.Highlight(7, colMetric))
	assert.Equal(t, model.HighlightSevereContext, tb.Highlight(7, 13))

	for col := 1; col <= 20; col++ {
		assert.Equal(t, model.HighlightNone, tb.Highlight(8, col))
	}
	assert.Len(t, report.Shortages(), 2)
}

func TestClassify_SkipListWins(t *testing.T) {
	tb := sheet.New("库存表")
	row(tb, 5, "00514", 0.0, 50.0)
	row(tb, 6, "4928", -1.0, 3.0)
	row(tb, 7, 514.0, 10.0, 10.0)

	report := New(newOptions(), nil).Classify(tb, model.RowRange{First: 5, End: 8})

	assert.Equal(t, 3, report.Counts[model.CategorySkipped])
	for r := 5; r <= 7; r++ {
		for col := 1; col <= 20; col++ {
			assert.Equal(t, model.HighlightNone, tb.Highlight(r, col), "row %d col %d", r, col)
		}
	}
}

func TestClassify_ClearSkippedRemovesStaleHighlights(t *testing.T) {
	tb := sheet.New("库存表")
	row(tb, 5, "00514", 0.0, 50.0)
	tb.SetHighlight(5, colMetric, model.HighlightSevereFocus)
	tb.SetHighlight(5, 2, model.HighlightSevereContext)

	opts := newOptions()
	opts.ClearSkipped = true
	New(opts, nil).Classify(tb, model.RowRange{First: 5, End: 6})

	assert.Equal(t, model.HighlightNone, tb.Highlight(5, colMetric))
	assert.Equal(t, model.HighlightNone, tb.Highlight(5, 2))
}

func TestClassify_NonEmptyPolicy(t *testing.T) {
	tb := sheet.New("库存表")
	row(tb, 5, "10023", 0.0, 5.0)
	tb.SetCell(5, 15, 3.0)

	opts := newOptions()
	opts.Policy = ContextNonEmpty
	New(opts, nil).Classify(tb, model.RowRange{First: 5, End: 6})

	assert.Equal(t, model.HighlightCriticalContext, tb.Highlight(5, colCode))
	assert.Equal(t, model.HighlightCriticalContext, tb.Highlight(5, 15))
	assert.Equal(t, model.HighlightNone, tb.Highlight(5, 1), "empty cell skipped")
	assert.Equal(t, model.HighlightNone, tb.Highlight(5, 16), "empty cell skipped")
}

func TestClassify_Idempotent(t *testing.T) {
	tb := sheet.New("库存表")
	row(tb, 5, "10023", 0.0, 5.0)
	row(tb, 6, "10024", 10.0, "=L5*2")
	row(tb, 7, "10025", "无", 10.0)

	c := New(newOptions(), nil)
	first := c.Classify(tb, model.RowRange{First: 5, End: 8})
	snapshot := tb.Clone()
	second := c.Classify(tb, model.RowRange{First: 5, End: 8})

	assert.Equal(t, first, second)
	for r := 5; r <= 7; r++ {
		for col := 1; col <= 20; col++ {
			assert.Equal(t, snapshot.Highlight(r, col), tb.Highlight(r, col))
		}
	}
	assert.Equal(t, model.CategoryNone, first.Rows[1].Category, "formula metric coerces to 0")
	assert.Equal(t, model.CategoryCritical, first.Rows[2].Category, "text baseline coerces to 0")
}

func TestValidateSpans(t *testing.T) {
	assert.NoError(t, ValidateSpans("库存表", spans))
	assert.Error(t, ValidateSpans("库存表", []Span{{1, 11}, {11, 20}}))
	assert.Error(t, ValidateSpans("库存表", []Span{{5, 3}}))
}
