// Package workbook 总库存工作簿的读写
package workbook

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"stockrecon/internal/model"
	"stockrecon/internal/parser"
	"stockrecon/internal/sheet"
)

// ErrNotFound 没有匹配的工作簿
var ErrNotFound = errors.New("no matching workbook")

// FindLatest 在 dir 下查找匹配 pattern 的最新工作簿，忽略 Excel 锁文件 ~$
func FindLatest(dir, pattern string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return "", fmt.Errorf("glob %s: %w", pattern, err)
	}

	type candidate struct {
		path    string
		modTime time.Time
	}
	var candidates []candidate
	for _, m := range matches {
		if strings.HasPrefix(filepath.Base(m), "~$") {
			continue
		}
		info, err := os.Stat(m)
		if err != nil || info.IsDir() {
			continue
		}
		candidates = append(candidates, candidate{path: m, modTime: info.ModTime()})
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("%w: %s in %s", ErrNotFound, pattern, dir)
	}

	sort.Slice(candidates, func(i, j int) bool {
		if !candidates[i].modTime.Equal(candidates[j].modTime) {
			return candidates[i].modTime.After(candidates[j].modTime)
		}
		return candidates[i].path < candidates[j].path
	})
	return candidates[0].path, nil
}

// Workbook 打开的工作簿
type Workbook struct {
	path string
	file *excelize.File
}

// Open 打开工作簿
func Open(path string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	return &Workbook{path: path, file: f}, nil
}

// New 包装已打开的 excelize 文件（测试和上传使用）
func New(path string, f *excelize.File) *Workbook {
	return &Workbook{path: path, file: f}
}

// Path 文件路径
func (w *Workbook) Path() string {
	return w.path
}

// File 底层 excelize 文件
func (w *Workbook) File() *excelize.File {
	return w.file
}

// Close 关闭工作簿
func (w *Workbook) Close() error {
	if w.file == nil {
		return nil
	}
	return w.file.Close()
}

// Sheets 工作表列表
func (w *Workbook) Sheets() []string {
	return w.file.GetSheetList()
}

// HasSheet 是否存在工作表
func (w *Workbook) HasSheet(name string) bool {
	idx, err := w.file.GetSheetIndex(name)
	return err == nil && idx >= 0
}

// Rows 读取工作表为文本行
func (w *Workbook) Rows(sheetName string) ([][]string, error) {
	if !w.HasSheet(sheetName) {
		return nil, &model.ConfigError{Table: sheetName, Reason: "sheet not found"}
	}
	rows, err := w.file.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheetName, err)
	}
	return rows, nil
}

// Heads 每个工作表的前 n 行，用于识别工作表类型
func (w *Workbook) Heads(n int) map[string][][]string {
	out := make(map[string][][]string)
	for _, name := range w.Sheets() {
		rows, err := w.file.GetRows(name)
		if err != nil {
			continue
		}
		if len(rows) > n {
			rows = rows[:n]
		}
		out[name] = rows
	}
	return out
}

// LoadTable 把工作表读入内存表
// 数值单元格为 float64，文本为 string，公式单元格为 "=" 加公式文本
func (w *Workbook) LoadTable(sheetName string) (*sheet.Table, error) {
	if !w.HasSheet(sheetName) {
		return nil, &model.ConfigError{Table: sheetName, Reason: "sheet not found"}
	}
	rows, err := w.file.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheetName, err)
	}
	maxRow := len(rows)
	maxCol := 0
	for _, r := range rows {
		if len(r) > maxCol {
			maxCol = len(r)
		}
	}

	values := make([][]model.Value, maxRow)
	for r := 1; r <= maxRow; r++ {
		raw := rows[r-1]
		line := make([]model.Value, maxCol)
		for c := 1; c <= maxCol; c++ {
			cell, err := excelize.CoordinatesToCellName(c, r)
			if err != nil {
				return nil, err
			}
			formula, err := w.file.GetCellFormula(sheetName, cell)
			if err != nil {
				return nil, err
			}
			if strings.TrimSpace(formula) != "" {
				line[c-1] = "=" + strings.TrimPrefix(formula, "=")
				continue
			}
			s := ""
			if c <= len(raw) {
				s = raw[c-1]
			}
			line[c-1], err = w.typedValue(sheetName, cell, s)
			if err != nil {
				return nil, err
			}
		}
		values[r-1] = line
	}
	return sheet.FromRows(sheetName, values), nil
}

// typedValue 共享字符串和内联字符串保留文本（例如 "00514"），其余可解析为数值的转 float64
func (w *Workbook) typedValue(sheetName, cell, s string) (model.Value, error) {
	if s == "" {
		return nil, nil
	}
	typ, err := w.file.GetCellType(sheetName, cell)
	if err != nil {
		return nil, err
	}
	switch typ {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString:
		return s, nil
	}
	if f, ok := parser.ToFloat(s); ok {
		return f, nil
	}
	return s, nil
}

// Apply 把内存表的修改写回工作表：值、填充色、字体色
func (w *Workbook) Apply(tb *sheet.Table, palette Palette) error {
	styles := newStyleCache(w.file, palette)
	for _, e := range tb.Dirty() {
		cell, err := excelize.CoordinatesToCellName(e.Col, e.Row)
		if err != nil {
			return err
		}
		if e.Change.Has(sheet.ChangeValue) {
			if err := setCellValueAndClearFormula(w.file, tb.Name(), cell, tb.Cell(e.Row, e.Col)); err != nil {
				return fmt.Errorf("write %s!%s: %w", tb.Name(), cell, err)
			}
		}
		if e.Change.Has(sheet.ChangeHighlight) || e.Change.Has(sheet.ChangeEmphasis) {
			if err := styles.apply(tb, e, cell); err != nil {
				return fmt.Errorf("style %s!%s: %w", tb.Name(), cell, err)
			}
		}
	}
	return nil
}

// Save 保存到原路径
func (w *Workbook) Save() error {
	return w.SaveAs(w.path)
}

// SaveAs 另存为
func (w *Workbook) SaveAs(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := w.file.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %s: %w", path, err)
	}
	return nil
}

// Backup 把磁盘上的原文件复制到 dir，返回备份路径
func (w *Workbook) Backup(dir string) (string, error) {
	src, err := os.Open(w.path)
	if err != nil {
		return "", fmt.Errorf("open original: %w", err)
	}
	defer src.Close()

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	ext := filepath.Ext(w.path)
	base := strings.TrimSuffix(filepath.Base(w.path), ext)
	dst := filepath.Join(dir, fmt.Sprintf("%s_%s%s", base, time.Now().Format("20060102_150405"), ext))

	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return "", err
	}
	return dst, out.Close()
}

func setCellValueAndClearFormula(f *excelize.File, sheetName, cell string, value model.Value) error {
	if err := f.SetCellValue(sheetName, cell, value); err != nil {
		return err
	}
	_ = f.SetCellFormula(sheetName, cell, "")
	return nil
}
