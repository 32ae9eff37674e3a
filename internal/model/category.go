package model

// Category 缺货严重程度分类
type Category string

const (
	CategoryNone     Category = "NONE"
	CategorySkipped  Category = "SKIPPED"
	CategoryCritical Category = "CRITICAL"
	CategoryModerate Category = "MODERATE"
	CategorySevere   Category = "SEVERE"
)

// AllCategories 按报告顺序排列
var AllCategories = []Category{
	CategoryCritical,
	CategorySevere,
	CategoryModerate,
	CategoryNone,
	CategorySkipped,
}

// Highlight 单元格高亮（显示元数据）
type Highlight int

const (
	HighlightNone Highlight = iota
	HighlightCriticalFocus
	HighlightModerateFocus
	HighlightSevereFocus
	HighlightCriticalContext
	HighlightSevereContext
)

var highlightNames = map[Highlight]string{
	HighlightNone:            "none",
	HighlightCriticalFocus:   "critical_focus",
	HighlightModerateFocus:   "moderate_focus",
	HighlightSevereFocus:     "severe_focus",
	HighlightCriticalContext: "critical_context",
	HighlightSevereContext:   "severe_context",
}

func (h Highlight) String() string {
	if name, ok := highlightNames[h]; ok {
		return name
	}
	return "unknown"
}

// Focus 指标列的高亮
func (c Category) Focus() Highlight {
	switch c {
	case CategoryCritical:
		return HighlightCriticalFocus
	case CategoryModerate:
		return HighlightModerateFocus
	case CategorySevere:
		return HighlightSevereFocus
	}
	return HighlightNone
}

// Context 整行范围高亮，仅 CRITICAL 和 SEVERE 有
func (c Category) Context() Highlight {
	switch c {
	case CategoryCritical:
		return HighlightCriticalContext
	case CategorySevere:
		return HighlightSevereContext
	}
	return HighlightNone
}

// Shortage 是否属于缺货提醒（需要在汇总中列出）
func (c Category) Shortage() bool {
	return c == CategoryCritical || c == CategorySevere
}
