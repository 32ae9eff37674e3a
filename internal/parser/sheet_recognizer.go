package parser

import (
	"strings"
)

// 识别时最多扫描的表头候选行数
const maxHeaderScan = 6

// SheetRecognizer Sheet 类型识别器
type SheetRecognizer struct {
	profiles []sheetProfile
}

type sheetProfile struct {
	sheetType SheetType
	keyFields []string // 支持 "a|b" 正则
	names     []string // Sheet 名关键词
	minConf   float64
}

// NewSheetRecognizer 创建识别器
func NewSheetRecognizer() *SheetRecognizer {
	return &SheetRecognizer{
		profiles: []sheetProfile{
			{
				sheetType: SheetTypeTarget,
				keyFields: []string{"编号", "外应存", "家应存", "家里库存", "最小发货", "排产"},
				names:     []string{"库存表"},
				minConf:   0.5,
			},
			{
				sheetType: SheetTypeMovement,
				keyFields: []string{"库存变动类别", "美的编码", "本期收入", "本期发出", "出入库日期"},
				names:     []string{"出入库明细"},
				minConf:   0.6,
			},
			{
				sheetType: SheetTypeHomeRaw,
				keyFields: []string{"^仓库$", "存货名称", "主数量"},
				names:     []string{"第一页"},
				minConf:   0.6,
			},
			{
				sheetType: SheetTypeHomeStock,
				keyFields: []string{"编号|存货编码", "存货名称", "^数量$"},
				names:     []string{"家里库存"},
				minConf:   0.6,
			},
			{
				sheetType: SheetTypeDemand,
				keyFields: []string{"编码|编号", "外应存", "家应存", "月计划"},
				names:     []string{"需求", "计划"},
				minConf:   0.75,
			},
		},
	}
}

// Recognize 识别 Sheet 类型，rows 为 Sheet 顶部若干行
func (r *SheetRecognizer) Recognize(sheetName string, rows [][]string) SheetRecognitionResult {
	best := SheetRecognitionResult{
		SheetName: sheetName,
		SheetType: SheetTypeUnknown,
	}

	for i := 0; i < len(rows) && i < maxHeaderScan; i++ {
		// 规范化列名
		normalized := make([]string, len(rows[i]))
		for j, col := range rows[i] {
			normalized[j] = NormalizeColumnName(col)
		}

		for _, p := range r.profiles {
			conf := matchRatio(p.keyFields, normalized)
			if conf < p.minConf {
				continue
			}
			// Sheet 名称辅助判定
			if ContainsAny(sheetName, p.names) {
				conf += 0.2
			}
			if conf > best.Confidence {
				best = SheetRecognitionResult{
					SheetName:  sheetName,
					SheetType:  p.sheetType,
					Confidence: conf,
					HeaderRow:  i + 1,
				}
			}
		}
	}

	if best.Confidence > 1 {
		best.Confidence = 1
	}
	return best
}

// FindSheet 在多个 Sheet 中查找指定类型，置信度最高者胜出
func (r *SheetRecognizer) FindSheet(sheets map[string][][]string, want SheetType) (SheetRecognitionResult, bool) {
	var best SheetRecognitionResult
	found := false
	for name, rows := range sheets {
		res := r.Recognize(name, rows)
		if res.SheetType != want {
			continue
		}
		if !found || res.Confidence > best.Confidence ||
			(res.Confidence == best.Confidence && strings.Compare(name, best.SheetName) < 0) {
			best = res
			found = true
		}
	}
	return best, found
}

func matchRatio(keyFields, columns []string) float64 {
	if len(keyFields) == 0 {
		return 0
	}
	matchCount := 0
	for _, field := range keyFields {
		for _, col := range columns {
			if col != "" && MatchPattern(col, field) {
				matchCount++
				break
			}
		}
	}
	return float64(matchCount) / float64(len(keyFields))
}
