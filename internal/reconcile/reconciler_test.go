package reconcile

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockrecon/internal/model"
	"stockrecon/internal/sheet"
)

const (
	colRaw   = 2
	colCode  = 3
	colQty   = 13
	firstRow = 5
)

// newTarget 构造目标表：前 4 行为表头，数据从第 5 行开始
func newTarget(codes ...string) (*sheet.Table, model.RowRange) {
	tb := sheet.New("库存表")
	tb.SetCell(4, colRaw, "名称")
	tb.SetCell(4, colCode, "编号")
	tb.SetCell(4, colQty, "家里库存")
	for i, c := range codes {
		row := firstRow + i
		tb.SetCell(row, colRaw, "型号"+c)
		tb.SetCell(row, colCode, c)
	}
	return tb, model.RowRange{First: firstRow, End: firstRow + len(codes)}
}

func homeSource(rows ...model.SourceRow) model.Source {
	return model.Source{Name: "家里库存", Fields: []string{"家里库存"}, Rows: rows}
}

func TestBuildIndex_LastRowWins(t *testing.T) {
	tb, rng := newTarget("00514", "04928", "00514", "", "10023")
	ix := BuildIndex(tb, colCode, rng)

	assert.Equal(t, 7, ix.Full["00514"], "last duplicate wins")
	assert.Equal(t, 9, ix.Suffix["0023"])
	assert.Equal(t, 1, ix.Duplicates)
	assert.Equal(t, 4, ix.Rows)
	_, ok := ix.Full[""]
	assert.False(t, ok, "empty code must not be indexed")
}

func TestReconcile_SuffixAndFull(t *testing.T) {
	tb, rng := newTarget("00514", "04928", "10023")
	ix := BuildIndex(tb, colCode, rng)

	src := homeSource(
		model.SourceRow{Line: 2, Key: "0023-", Values: []model.Value{12.0}},
		model.SourceRow{Line: 3, Key: "00514", Values: []model.Value{30.0}},
	)
	report, err := NewReconciler(nil).Reconcile(tb, ix, src, []int{colQty})
	require.NoError(t, err)

	assert.Equal(t, 1, report.SuffixMatched)
	assert.Equal(t, 1, report.FullMatched)
	assert.Empty(t, report.Unmatched)
	assert.Equal(t, 12.0, tb.Cell(7, colQty), "0023- resolves to 10023")
	assert.Equal(t, 30.0, tb.Cell(5, colQty))
	assert.Nil(t, tb.Cell(6, colQty))
}

func TestReconcile_UnmatchedReasons(t *testing.T) {
	tb, rng := newTarget("00514")
	ix := BuildIndex(tb, colCode, rng)

	src := homeSource(
		model.SourceRow{Line: 2, Key: "", Values: []model.Value{1.0}},
		model.SourceRow{Line: 3, Key: "KFR-35", Values: []model.Value{1.0}},
		model.SourceRow{Line: 4, Key: "99999", Values: []model.Value{1.0}},
		model.SourceRow{Line: 5, Key: "9999-", Values: []model.Value{1.0}},
	)
	report, err := NewReconciler(nil).Reconcile(tb, ix, src, []int{colQty})
	require.NoError(t, err)

	want := []model.Unmatched{
		{Line: 2, RawCode: "", Reason: model.ReasonFormat},
		{Line: 3, RawCode: "KFR-35", Reason: model.ReasonFormat},
		{Line: 4, RawCode: "99999", Reason: model.ReasonNoTarget},
		{Line: 5, RawCode: "9999-", Reason: model.ReasonNoTarget},
	}
	if diff := cmp.Diff(want, report.Unmatched); diff != "" {
		t.Errorf("unmatched mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 0, report.Matched())
	assert.Equal(t, 0, report.UpdatedRows)
	assert.Nil(t, tb.Cell(5, colQty), "no mutation on miss")
}

func TestReconcile_RoundTripDistinctRows(t *testing.T) {
	const n = 25
	codes := make([]string, n)
	rows := make([]model.SourceRow, n)
	for i := 0; i < n; i++ {
		codes[i] = fmt.Sprintf("%05d", 20000+i)
		rows[i] = model.SourceRow{Line: i + 2, Key: codes[i], Values: []model.Value{float64(i)}}
	}
	tb, rng := newTarget(codes...)
	ix := BuildIndex(tb, colCode, rng)

	report, err := NewReconciler(nil).Reconcile(tb, ix, homeSource(rows...), []int{colQty})
	require.NoError(t, err)

	assert.Equal(t, n, report.UpdatedRows)
	assert.Equal(t, n, report.FullMatched)
	assert.Empty(t, report.Unmatched)
	assert.Equal(t, 0, report.Overwritten)
	for i := 0; i < n; i++ {
		assert.Equal(t, float64(i), tb.Cell(firstRow+i, colQty))
	}
}

func TestReconcile_SameTargetLastWriteWins(t *testing.T) {
	tb, rng := newTarget("10023")
	ix := BuildIndex(tb, colCode, rng)

	src := homeSource(
		model.SourceRow{Line: 2, Key: "10023", Values: []model.Value{1.0}},
		model.SourceRow{Line: 3, Key: "0023-", Values: []model.Value{2.0}},
	)
	report, err := NewReconciler(nil).Reconcile(tb, ix, src, []int{colQty})
	require.NoError(t, err)

	assert.Equal(t, 2.0, tb.Cell(5, colQty))
	assert.Equal(t, 1, report.UpdatedRows)
	assert.Equal(t, 1, report.Overwritten)
}

func TestReconcile_TargetMismatchIsConfigError(t *testing.T) {
	tb, rng := newTarget("00514")
	ix := BuildIndex(tb, colCode, rng)

	_, err := NewReconciler(nil).Reconcile(tb, ix, homeSource(), []int{colQty, 14})
	var cfgErr *model.ConfigError
	require.True(t, errors.As(err, &cfgErr))
}

func TestJoinExact(t *testing.T) {
	tb, rng := newTarget("00514", "04928")
	src := model.Source{
		Name:   "出入库明细表",
		Fields: []string{"外仓出库总量", "外仓入库总量"},
		Rows: []model.SourceRow{
			{Line: 4, Key: "型号04928", Values: []model.Value{7.0, 3.0}},
			{Line: 5, Key: "型号99999", Values: []model.Value{1.0, 1.0}},
		},
	}
	report, err := NewReconciler(nil).JoinExact(tb, colRaw, rng, src, []int{18, 19})
	require.NoError(t, err)

	assert.Equal(t, 1, report.ExactMatched)
	assert.Equal(t, 1, report.CountReason(model.ReasonNoTarget))
	assert.Equal(t, 7.0, tb.Cell(6, 18))
	assert.Equal(t, 3.0, tb.Cell(6, 19))
}

func TestJoinExact_DuplicateTargetKeys(t *testing.T) {
	tb, rng := newTarget("21012345", "21012345", "00514")
	src := model.Source{
		Name:   "需求计划",
		Fields: []string{"外应存"},
		Rows:   []model.SourceRow{{Line: 2, Key: "21012345", Values: []model.Value{7.0}}},
	}
	report, err := NewReconciler(nil).JoinExact(tb, colCode, rng, src, []int{4})
	require.NoError(t, err)

	assert.Equal(t, 1, report.ExactMatched)
	assert.Equal(t, 2, report.UpdatedRows)
	assert.Equal(t, 0, report.Overwritten)
	assert.Equal(t, 7.0, tb.Cell(5, 4))
	assert.Equal(t, 7.0, tb.Cell(6, 4))
	assert.Nil(t, tb.Cell(7, 4))
}

func TestFillCodes(t *testing.T) {
	tb := sheet.New("库存表")
	tb.SetCell(5, colRaw, "ABC-00514备件")
	tb.SetCell(6, colRaw, 4928.0)
	tb.SetCell(7, colRaw, "无编码")
	tb.SetCell(7, colCode, "stale")

	n := FillCodes(tb, colRaw, colCode, model.RowRange{First: 5, End: 8})

	assert.Equal(t, 2, n)
	assert.Equal(t, "00514", tb.Cell(5, colCode))
	assert.Equal(t, "04928", tb.Cell(6, colCode))
	assert.Equal(t, "stale", tb.Cell(7, colCode), "no digits keeps the existing code")
}
