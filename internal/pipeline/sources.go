package pipeline

import (
	"path/filepath"

	"go.uber.org/zap"

	"stockrecon/internal/config"
	"stockrecon/internal/model"
	"stockrecon/internal/parser"
	"stockrecon/internal/workbook"
)

// sources 本次运行要回填的源数据
type sources struct {
	home     *model.Source
	demand   *model.Source
	movement *model.Source
	moves    parser.MovementStats
}

func (s *sources) all() []*model.Source {
	var out []*model.Source
	for _, src := range []*model.Source{s.home, s.demand, s.movement} {
		if src != nil {
			out = append(out, src)
		}
	}
	return out
}

// sheetLocator 先按配置的名称找工作表，找不到时用识别器按表头猜
type sheetLocator struct {
	wb         *workbook.Workbook
	recognizer *parser.SheetRecognizer
	heads      map[string][][]string
	logger     *zap.Logger
}

func (l *sheetLocator) find(name string, types ...parser.SheetType) (parser.SheetRecognitionResult, bool) {
	if name != "" && l.wb.HasSheet(name) {
		return parser.SheetRecognitionResult{SheetName: name}, true
	}
	if l.heads == nil {
		l.heads = l.wb.Heads(6)
	}
	for _, t := range types {
		if res, ok := l.recognizer.FindSheet(l.heads, t); ok {
			l.logger.Info("sheet recognized",
				zap.String("configured", name),
				zap.String("sheet", res.SheetName),
				zap.String("type", string(res.SheetType)),
				zap.Float64("confidence", res.Confidence),
			)
			return res, true
		}
	}
	return parser.SheetRecognitionResult{}, false
}

func sheetNotFound(name string) error {
	return &model.ConfigError{Table: name, Missing: []string{name}, Reason: "sheet not found"}
}

// resolvePath 相对路径按输入目录解析
func resolvePath(dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

// loadHome 家里库存：指定了文件时读文件（CSV 或工作簿），否则读总库存工作簿内的工作表
func loadHome(cfg config.HomeSourceConfig, inputDir string, loc *sheetLocator) (model.Source, error) {
	opts := parser.HomeStockOptions{
		HeaderRow:       cfg.HeaderRow,
		WarehouseColumn: cfg.WarehouseColumn,
		Warehouse:       cfg.Warehouse,
		CodeColumn:      cfg.CodeColumn,
		NameColumn:      cfg.NameColumn,
		QuantityColumn:  cfg.QuantityColumn,
		Field:           cfg.Target,
	}

	if cfg.File != "" {
		path := resolvePath(inputDir, cfg.File)
		rows, err := workbook.ReadRows(path, cfg.Sheet, cfg.Encoding)
		if err != nil {
			return model.Source{}, err
		}
		return parser.ExtractHomeStock(filepath.Base(path), rows, opts)
	}

	res, ok := loc.find(cfg.Sheet, parser.SheetTypeHomeRaw, parser.SheetTypeHomeStock)
	if !ok {
		return model.Source{}, sheetNotFound(cfg.Sheet)
	}
	if res.SheetType == parser.SheetTypeHomeStock {
		// 整理后的家里库存：编号 / 存货名称 / 数量，无仓库列
		opts.WarehouseColumn = ""
		opts.CodeColumn = "编号"
		opts.QuantityColumn = "数量"
	}
	if res.HeaderRow > 0 {
		opts.HeaderRow = res.HeaderRow
	}
	rows, err := loc.wb.Rows(res.SheetName)
	if err != nil {
		return model.Source{}, err
	}
	return parser.ExtractHomeStock(res.SheetName, rows, opts)
}

// loadDemand 量化需求计划文件
func loadDemand(cfg config.DemandSourceConfig, path, encoding string) (model.Source, error) {
	rows, err := workbook.ReadRows(path, cfg.Sheet, encoding)
	if err != nil {
		return model.Source{}, err
	}
	return parser.ExtractDemand(filepath.Base(path), rows, parser.DemandOptions{
		HeaderRow:    cfg.HeaderRow,
		CodeColumn:   cfg.CodeColumn,
		ValueColumns: cfg.ValueColumns,
		Fields:       cfg.Targets,
	})
}

// loadMovement 外仓出入库明细，在总库存工作簿内
func loadMovement(cfg config.MovementSourceConfig, loc *sheetLocator) (model.Source, parser.MovementStats, error) {
	res, ok := loc.find(cfg.Sheet, parser.SheetTypeMovement)
	if !ok {
		return model.Source{}, parser.MovementStats{}, sheetNotFound(cfg.Sheet)
	}
	headerRow := cfg.HeaderRow
	if res.HeaderRow > 0 {
		headerRow = res.HeaderRow
	}
	rows, err := loc.wb.Rows(res.SheetName)
	if err != nil {
		return model.Source{}, parser.MovementStats{}, err
	}
	return parser.SummarizeMovements(res.SheetName, rows, parser.MovementOptions{
		HeaderRow:      headerRow,
		CategoryColumn: cfg.CategoryColumn,
		CodeColumn:     cfg.CodeColumn,
		InColumn:       cfg.InColumn,
		OutColumn:      cfg.OutColumn,
		DateColumn:     cfg.DateColumn,
		InboundLabel:   cfg.InboundLabel,
		OutboundLabel:  cfg.OutboundLabel,
		OutboundField:  cfg.OutboundTarget,
		InboundField:   cfg.InboundTarget,
	})
}
