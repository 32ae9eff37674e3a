package parser

// SheetType Sheet 类型
type SheetType string

const (
	SheetTypeTarget    SheetType = "target"     // 库存表
	SheetTypeHomeRaw   SheetType = "home_raw"   // ERP 导出的家里库存（第一页）
	SheetTypeHomeStock SheetType = "home_stock" // 整理后的家里库存
	SheetTypeMovement  SheetType = "movement"   // 外仓出入库明细
	SheetTypeDemand    SheetType = "demand"     // 量化需求计划
	SheetTypeUnknown   SheetType = "unknown"
)

// SheetRecognitionResult Sheet 识别结果
type SheetRecognitionResult struct {
	SheetName  string    `json:"sheetName"`
	SheetType  SheetType `json:"sheetType"`
	Confidence float64   `json:"confidence"` // 置信度 0-1
	HeaderRow  int       `json:"headerRow"`  // 识别出的表头行（1 起）
}

// MovementStats 出入库明细汇总统计
type MovementStats struct {
	Rows     int `json:"rows"`
	Inbound  int `json:"inbound"`
	Outbound int `json:"outbound"`
	Other    int `json:"other"` // 其他库存变动类别，不计入汇总
	Codes    int `json:"codes"`
}
