package workbook

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"stockrecon/internal/config"
	"stockrecon/internal/model"
	"stockrecon/internal/sheet"
)

// Palette 高亮与灰显的颜色表
type Palette struct {
	Fills  map[model.Highlight]string
	Muted  string
	Normal string
}

// PaletteFromConfig 由配置生成颜色表
func PaletteFromConfig(c config.ColorConfig) Palette {
	return Palette{
		Fills: map[model.Highlight]string{
			model.HighlightCriticalFocus:   c.CriticalFocus,
			model.HighlightModerateFocus:   c.ModerateFocus,
			model.HighlightSevereFocus:     c.SevereFocus,
			model.HighlightCriticalContext: c.CriticalContext,
			model.HighlightSevereContext:   c.SevereContext,
		},
		Muted:  c.Muted,
		Normal: "000000",
	}
}

type styleKey struct {
	base  int
	fill  string
	font  string
	clear bool
}

// styleCache 在原单元格样式上叠加填充色和字体色，相同组合只创建一次
type styleCache struct {
	file    *excelize.File
	palette Palette
	ids     map[styleKey]int
}

func newStyleCache(f *excelize.File, p Palette) *styleCache {
	return &styleCache{file: f, palette: p, ids: make(map[styleKey]int)}
}

func (s *styleCache) apply(tb *sheet.Table, e sheet.Edit, cell string) error {
	base, err := s.file.GetCellStyle(tb.Name(), cell)
	if err != nil {
		return err
	}
	key := styleKey{base: base}

	if e.Change.Has(sheet.ChangeHighlight) {
		h := tb.Highlight(e.Row, e.Col)
		if h == model.HighlightNone {
			key.clear = true
		} else {
			color, ok := s.palette.Fills[h]
			if !ok || color == "" {
				return fmt.Errorf("no color for highlight %s", h)
			}
			key.fill = normalizeColor(color)
		}
	}
	if e.Change.Has(sheet.ChangeEmphasis) {
		if em, ok := tb.Emphasis(e.Row, e.Col); ok && em == model.EmphasisMuted {
			key.font = normalizeColor(s.palette.Muted)
		} else {
			key.font = normalizeColor(s.palette.Normal)
		}
	}

	id, ok := s.ids[key]
	if !ok {
		id, err = s.create(key)
		if err != nil {
			return err
		}
		s.ids[key] = id
	}
	return s.file.SetCellStyle(tb.Name(), cell, cell, id)
}

func (s *styleCache) create(key styleKey) (int, error) {
	style, err := s.file.GetStyle(key.base)
	if err != nil || style == nil {
		style = &excelize.Style{}
	}
	switch {
	case key.clear:
		style.Fill = excelize.Fill{}
	case key.fill != "":
		style.Fill = excelize.Fill{Type: "pattern", Color: []string{"#" + key.fill}, Pattern: 1}
	}
	if key.font != "" {
		font := excelize.Font{}
		if style.Font != nil {
			font = *style.Font
		}
		font.Color = "#" + key.font
		style.Font = &font
	}
	return s.file.NewStyle(style)
}

func normalizeColor(c string) string {
	return strings.ToUpper(strings.TrimPrefix(strings.TrimSpace(c), "#"))
}
