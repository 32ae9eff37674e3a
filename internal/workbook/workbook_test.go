package workbook

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/simplifiedchinese"

	"stockrecon/internal/config"
	"stockrecon/internal/model"
)

// newInventoryFile 生成一个最小的总库存工作簿并落盘
func newInventoryFile(t *testing.T) string {
	t.Helper()
	f := excelize.NewFile()
	t.Cleanup(func() { _ = f.Close() })

	require.NoError(t, f.SetSheetName("Sheet1", "库存表"))
	require.NoError(t, f.SetSheetRow("库存表", "A1", &[]any{"名称", "编号", "合计", "备注"}))
	require.NoError(t, f.SetCellStr("库存表", "A2", "空调"))
	require.NoError(t, f.SetCellStr("库存表", "B2", "00514"))
	require.NoError(t, f.SetCellFormula("库存表", "C2", "D2*2"))
	require.NoError(t, f.SetCellValue("库存表", "D2", 12))

	path := filepath.Join(t.TempDir(), "总库存1019.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestLoadTable_KeepsTextCodesAndFormulas(t *testing.T) {
	wb, err := Open(newInventoryFile(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = wb.Close() })

	tb, err := wb.LoadTable("库存表")
	require.NoError(t, err)

	assert.Equal(t, "00514", tb.Cell(2, 2), "text code must keep leading zeros")
	assert.Equal(t, "=D2*2", tb.Cell(2, 3))
	assert.Equal(t, 12.0, tb.Cell(2, 4))
	assert.Equal(t, 4, tb.Columns(1)["备注"])
}

func TestLoadTable_MissingSheet(t *testing.T) {
	wb, err := Open(newInventoryFile(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = wb.Close() })

	_, err = wb.LoadTable("不存在")
	var cfgErr *model.ConfigError
	require.True(t, errors.As(err, &cfgErr), "want ConfigError, got %v", err)
	assert.Equal(t, "不存在", cfgErr.Table)
}

func TestApply_WritesValuesAndStyles(t *testing.T) {
	path := newInventoryFile(t)
	wb, err := Open(path)
	require.NoError(t, err)

	tb, err := wb.LoadTable("库存表")
	require.NoError(t, err)
	tb.SetCell(2, 3, 5.0)
	tb.SetHighlight(2, 1, model.HighlightCriticalFocus)
	tb.SetEmphasis(2, 4, model.EmphasisMuted)

	palette := PaletteFromConfig(config.DefaultConfig().Classify.Colors)
	require.NoError(t, wb.Apply(tb, palette))
	require.NoError(t, wb.Save())
	require.NoError(t, wb.Close())

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	formula, err := f.GetCellFormula("库存表", "C2")
	require.NoError(t, err)
	assert.Empty(t, formula, "written value must replace the formula")
	v, err := f.GetCellValue("库存表", "C2")
	require.NoError(t, err)
	assert.Equal(t, "5", v)

	fill := cellStyle(t, f, "A2")
	require.NotEmpty(t, fill.Fill.Color)
	assert.True(t, sameColor(fill.Fill.Color[0], "3F0065"), "fill = %v", fill.Fill.Color)

	muted := cellStyle(t, f, "D2")
	require.NotNil(t, muted.Font)
	assert.True(t, sameColor(muted.Font.Color, "D8D8D8"), "font = %s", muted.Font.Color)
}

func TestApply_ClearHighlight(t *testing.T) {
	path := newInventoryFile(t)
	wb, err := Open(path)
	require.NoError(t, err)
	palette := PaletteFromConfig(config.DefaultConfig().Classify.Colors)

	tb, err := wb.LoadTable("库存表")
	require.NoError(t, err)
	tb.SetHighlight(2, 1, model.HighlightSevereFocus)
	require.NoError(t, wb.Apply(tb, palette))

	tb, err = wb.LoadTable("库存表")
	require.NoError(t, err)
	tb.SetHighlight(2, 1, model.HighlightNone)
	require.NoError(t, wb.Apply(tb, palette))

	style := cellStyle(t, wb.File(), "A2")
	assert.Empty(t, style.Fill.Color)
	require.NoError(t, wb.Close())
}

func TestFindLatest(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "总库存1001.xlsx")
	latest := filepath.Join(dir, "总库存1019.xlsx")
	lock := filepath.Join(dir, "~$总库存1020.xlsx")
	for _, p := range []string{old, latest, lock, filepath.Join(dir, "其他.xlsx")} {
		require.NoError(t, os.WriteFile(p, []byte("x"), 0644))
	}
	now := time.Now()
	require.NoError(t, os.Chtimes(old, now.Add(-time.Hour), now.Add(-time.Hour)))
	require.NoError(t, os.Chtimes(latest, now, now))
	require.NoError(t, os.Chtimes(lock, now.Add(time.Hour), now.Add(time.Hour)))

	got, err := FindLatest(dir, "总库存*.xlsx")
	require.NoError(t, err)
	assert.Equal(t, latest, got)

	_, err = FindLatest(t.TempDir(), "总库存*.xlsx")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadCSV_GB18030(t *testing.T) {
	encoded, err := simplifiedchinese.GB18030.NewEncoder().String("仓库,存货名称,主数量\n成品库,00514空调,7\n")
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "第一页.csv")
	require.NoError(t, os.WriteFile(path, []byte(encoded), 0644))

	rows, err := ReadRows(path, "", "gb18030")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"仓库", "存货名称", "主数量"}, rows[0])
	assert.Equal(t, "00514空调", rows[1][1])
}

func TestLoadCSV_UTF8BOM(t *testing.T) {
	path := filepath.Join(t.TempDir(), "list.csv")
	require.NoError(t, os.WriteFile(path, []byte("\xEF\xBB\xBF编号,外应存\n00514,3\n"), 0644))

	rows, err := LoadCSV(path, "utf-8")
	require.NoError(t, err)
	assert.Equal(t, "编号", rows[0][0])

	_, err = LoadCSV(path, "latin1")
	assert.Error(t, err)
}

func TestBackup(t *testing.T) {
	path := newInventoryFile(t)
	wb, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = wb.Close() })

	dst, err := wb.Backup(filepath.Join(t.TempDir(), "backups"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filepath.Base(dst), "总库存1019_"))
	_, err = os.Stat(dst)
	assert.NoError(t, err)
}

func cellStyle(t *testing.T, f *excelize.File, cell string) *excelize.Style {
	t.Helper()
	idx, err := f.GetCellStyle("库存表", cell)
	require.NoError(t, err)
	style, err := f.GetStyle(idx)
	require.NoError(t, err)
	return style
}

func sameColor(got, want string) bool {
	return strings.HasSuffix(strings.ToUpper(strings.TrimPrefix(got, "#")), want)
}
