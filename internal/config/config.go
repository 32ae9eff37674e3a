package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/samber/lo"
)

// AppConfig 应用配置
type AppConfig struct {
	Server    ServerConfig    `toml:"server"`
	Data      DataConfig      `toml:"data"`
	Log       LogConfig       `toml:"log"`
	Workbook  WorkbookConfig  `toml:"workbook"`
	Sources   SourcesConfig   `toml:"sources"`
	Metrics   MetricsConfig   `toml:"metrics"`
	Classify  ClassifyConfig  `toml:"classify"`
	Aggregate AggregateConfig `toml:"aggregate"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port    int  `toml:"port"`
	DevMode bool `toml:"dev_mode"`
}

// DataConfig 数据配置
type DataConfig struct {
	DataDir    string `toml:"data_dir"`
	InputDir   string `toml:"input_dir"` // 总库存文件所在目录
	AutoBackup bool   `toml:"auto_backup"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level       string `toml:"level"`
	Development bool   `toml:"development"`
}

// WorkbookConfig 目标库存表布局
// 列引用既可以是表头名，也可以是列字母
type WorkbookConfig struct {
	FilePattern string `toml:"file_pattern"`
	TargetSheet string `toml:"target_sheet"`
	HeaderRow   int    `toml:"header_row"`
	FirstRow    int    `toml:"first_row"`
	KeyColumn   string `toml:"key_column"`  // 判定数据范围的列（B 列名称）
	CodeColumn  string `toml:"code_column"` // 规范化编号列
	NameColumn  string `toml:"name_column"`
	FillCodes   bool   `toml:"fill_codes"` // 由 key_column 生成编号列
}

// SourcesConfig 源数据配置
type SourcesConfig struct {
	Home     HomeSourceConfig     `toml:"home"`
	Demand   DemandSourceConfig   `toml:"demand"`
	Movement MovementSourceConfig `toml:"movement"`
}

// HomeSourceConfig 家里库存
type HomeSourceConfig struct {
	Enabled         bool   `toml:"enabled"`
	File            string `toml:"file"` // 为空时从总库存工作簿读取
	Sheet           string `toml:"sheet"`
	HeaderRow       int    `toml:"header_row"`
	WarehouseColumn string `toml:"warehouse_column"`
	Warehouse       string `toml:"warehouse"`
	CodeColumn      string `toml:"code_column"`
	NameColumn      string `toml:"name_column"`
	QuantityColumn  string `toml:"quantity_column"`
	Encoding        string `toml:"encoding"` // CSV 源文件编码：utf-8 / gb18030
	Target          string `toml:"target"`
}

// DemandSourceConfig 量化需求
type DemandSourceConfig struct {
	Enabled      bool     `toml:"enabled"`
	File         string   `toml:"file"`
	Sheet        string   `toml:"sheet"`
	HeaderRow    int      `toml:"header_row"`
	CodeColumn   string   `toml:"code_column"`
	ValueColumns []string `toml:"value_columns"`
	Targets      []string `toml:"targets"`
	MatchColumn  string   `toml:"match_column"` // 目标表中用于精确匹配的列
}

// MovementSourceConfig 外仓出入库明细
type MovementSourceConfig struct {
	Enabled        bool   `toml:"enabled"`
	Sheet          string `toml:"sheet"`
	HeaderRow      int    `toml:"header_row"`
	CategoryColumn string `toml:"category_column"`
	CodeColumn     string `toml:"code_column"`
	InColumn       string `toml:"in_column"`
	OutColumn      string `toml:"out_column"`
	DateColumn     string `toml:"date_column"`
	InboundLabel   string `toml:"inbound_label"`
	OutboundLabel  string `toml:"outbound_label"`
	OutboundTarget string `toml:"outbound_target"`
	InboundTarget  string `toml:"inbound_target"`
	MatchColumn    string `toml:"match_column"`
}

// MetricsConfig 衍生指标列
type MetricsConfig struct {
	ExternalStock   string `toml:"external_stock"`
	HomeRequirement string `toml:"home_requirement"`
	HomeStock       string `toml:"home_stock"`
	Reference       string `toml:"reference"`
	MinShip         string `toml:"min_ship"`
	ProductionNeed  string `toml:"production_need"`
	MonthlyPlan     string `toml:"monthly_plan"`
	TotalStock      string `toml:"total_stock"`
	ExternalShipped string `toml:"external_shipped"`
	MonthlyGap      string `toml:"monthly_gap"`
}

// ClassifyConfig 分类与高亮
type ClassifyConfig struct {
	Baseline      string      `toml:"baseline"`
	Metric        string      `toml:"metric"`
	SkipColumn    string      `toml:"skip_column"`
	SkipCodes     []string    `toml:"skip_codes"`
	ContextRanges []string    `toml:"context_ranges"` // 形如 "A:K"
	ContextPolicy string      `toml:"context_policy"` // all / non_empty
	ClearSkipped  bool        `toml:"clear_skipped"`
	Colors        ColorConfig `toml:"colors"`
}

// ColorConfig 高亮颜色（RGB 十六进制）
type ColorConfig struct {
	CriticalFocus   string `toml:"critical_focus"`
	ModerateFocus   string `toml:"moderate_focus"`
	SevereFocus     string `toml:"severe_focus"`
	CriticalContext string `toml:"critical_context"`
	SevereContext   string `toml:"severe_context"`
	Muted           string `toml:"muted"`
}

// AggregateConfig 合计行
type AggregateConfig struct {
	Enabled     bool     `toml:"enabled"`
	Columns     []string `toml:"columns"`
	NonNegative []string `toml:"non_negative"`
}

// LoadConfigInfo 配置加载元信息
type LoadConfigInfo struct {
	Path          string
	PortSpecified bool
	FromFile      bool
}

// DefaultConfig 默认配置
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:    20262,
			DevMode: false,
		},
		Data: DataConfig{
			DataDir:    "data",
			InputDir:   "data",
			AutoBackup: true,
		},
		Log: LogConfig{
			Level: "info",
		},
		Workbook: WorkbookConfig{
			FilePattern: "总库存*.xlsx",
			TargetSheet: "库存表",
			HeaderRow:   4,
			FirstRow:    5,
			KeyColumn:   "B",
			CodeColumn:  "C",
			NameColumn:  "B",
			FillCodes:   true,
		},
		Sources: SourcesConfig{
			Home: HomeSourceConfig{
				Enabled:         true,
				Sheet:           "第一页",
				HeaderRow:       1,
				WarehouseColumn: "仓库",
				Warehouse:       "成品库",
				NameColumn:      "存货名称",
				QuantityColumn:  "主数量",
				Encoding:        "gb18030",
				Target:          "家里库存",
			},
			Demand: DemandSourceConfig{
				Enabled:      false,
				File:         "list.xlsx",
				Sheet:        "",
				HeaderRow:    1,
				CodeColumn:   "A",
				ValueColumns: []string{"B", "C", "D"},
				Targets:      []string{"外应存", "家应存", "月计划"},
				MatchColumn:  "C",
			},
			Movement: MovementSourceConfig{
				Enabled:        true,
				Sheet:          "出入库明细表",
				HeaderRow:      3,
				CategoryColumn: "库存变动类别",
				CodeColumn:     "美的编码",
				InColumn:       "本期收入",
				OutColumn:      "本期发出",
				DateColumn:     "出入库日期",
				InboundLabel:   "入库",
				OutboundLabel:  "出库",
				OutboundTarget: "外仓出库总量",
				InboundTarget:  "外仓入库总量",
				MatchColumn:    "B",
			},
		},
		Metrics: MetricsConfig{
			ExternalStock:   "外应存",
			HomeRequirement: "家应存",
			HomeStock:       "家里库存",
			Reference:       "J",
			MinShip:         "最小发货",
			ProductionNeed:  "排产",
			MonthlyPlan:     "月计划",
			TotalStock:      "J",
			ExternalShipped: "外仓出库总量",
			MonthlyGap:      "月计划缺口",
		},
		Classify: ClassifyConfig{
			Baseline:      "J",
			Metric:        "L",
			SkipColumn:    "C",
			SkipCodes:     []string{"00514", "04928"},
			ContextRanges: []string{"A:K", "M:T"},
			ContextPolicy: "all",
			ClearSkipped:  false,
			Colors: ColorConfig{
				CriticalFocus:   "3F0065",
				ModerateFocus:   "00FF00",
				SevereFocus:     "FF0000",
				CriticalContext: "CCC0DA",
				SevereContext:   "E6B8B7",
				Muted:           "D8D8D8",
			},
		},
		Aggregate: AggregateConfig{
			Enabled:     true,
			Columns:     []string{"J", "P", "Q", "R", "S"},
			NonNegative: []string{"Q"},
		},
	}
}

// Validate 检查与工作表内容无关的配置项
func (c *AppConfig) Validate() error {
	var errs []error
	if c.Workbook.HeaderRow <= 0 {
		errs = append(errs, fmt.Errorf("workbook.header_row must be positive"))
	}
	if c.Workbook.FirstRow <= c.Workbook.HeaderRow {
		errs = append(errs, fmt.Errorf("workbook.first_row must be after header_row"))
	}
	if c.Workbook.KeyColumn == "" || c.Workbook.CodeColumn == "" {
		errs = append(errs, fmt.Errorf("workbook.key_column and workbook.code_column are required"))
	}
	switch c.Classify.ContextPolicy {
	case "all", "non_empty":
	default:
		errs = append(errs, fmt.Errorf("classify.context_policy %q must be all or non_empty", c.Classify.ContextPolicy))
	}
	for _, r := range c.Classify.ContextRanges {
		if _, _, ok := SplitRange(r); !ok {
			errs = append(errs, fmt.Errorf("classify.context_ranges entry %q must look like A:K", r))
		}
	}
	if extra, _ := lo.Difference(c.Aggregate.NonNegative, c.Aggregate.Columns); len(extra) > 0 {
		errs = append(errs, fmt.Errorf("aggregate.non_negative %v not listed in aggregate.columns", extra))
	}
	if len(c.Sources.Demand.ValueColumns) != len(c.Sources.Demand.Targets) {
		errs = append(errs, fmt.Errorf("sources.demand value_columns and targets differ in length"))
	}
	switch strings.ToLower(c.Sources.Home.Encoding) {
	case "", "utf-8", "utf8", "gb18030", "gbk":
	default:
		errs = append(errs, fmt.Errorf("sources.home.encoding %q unsupported", c.Sources.Home.Encoding))
	}
	return errors.Join(errs...)
}

// SplitRange 拆分 "A:K" 形式的列范围
func SplitRange(r string) (from, to string, ok bool) {
	parts := strings.Split(strings.ToUpper(strings.TrimSpace(r)), ":")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

func isPortSpecifiedInToml(data []byte) bool {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return false
	}

	serverAny, ok := raw["server"]
	if !ok {
		return false
	}

	serverMap, ok := serverAny.(map[string]any)
	if !ok {
		return false
	}

	_, ok = serverMap["port"]
	return ok
}

// GetExeDir 获取可执行文件所在目录
func GetExeDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(exe), nil
}

// DefaultPath 默认配置文件路径：可执行文件同目录下的 config.toml
func DefaultPath() string {
	exeDir, err := GetExeDir()
	if err != nil {
		// 无法获取可执行文件目录，使用当前目录
		exeDir = "."
	}
	return filepath.Join(exeDir, "config.toml")
}

// LoadConfigWithInfo 从 config.toml 加载配置并返回元信息
// path 为空时使用 DefaultPath；文件不存在时使用默认配置
func LoadConfigWithInfo(path string) (*AppConfig, LoadConfigInfo, error) {
	if path == "" {
		path = DefaultPath()
	}
	info := LoadConfigInfo{Path: path}
	config := DefaultConfig()

	// .env 只补充未设置的环境变量
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, info, err
		}
		// 配置文件不存在，使用默认配置
	} else {
		info.FromFile = true
		info.PortSpecified = isPortSpecifiedInToml(data)
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, info, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	applyEnv(config, &info)

	if err := config.Validate(); err != nil {
		return nil, info, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return config, info, nil
}

// applyEnv 环境变量覆盖
func applyEnv(config *AppConfig, info *LoadConfigInfo) {
	if v := os.Getenv("STOCKRECON_DATA_DIR"); v != "" {
		config.Data.DataDir = v
	}
	if v := os.Getenv("STOCKRECON_INPUT_DIR"); v != "" {
		config.Data.InputDir = v
	}
	if v := os.Getenv("STOCKRECON_LOG_LEVEL"); v != "" {
		config.Log.Level = v
	}
	if v := os.Getenv("STOCKRECON_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			config.Server.Port = port
			info.PortSpecified = true
		}
	}
}

// LoadConfig 从默认路径加载配置
func LoadConfig() (*AppConfig, error) {
	config, _, err := LoadConfigWithInfo("")
	return config, err
}

// SaveConfig 保存配置到指定路径，path 为空时使用 DefaultPath
func SaveConfig(config *AppConfig, path string) error {
	if path == "" {
		path = DefaultPath()
	}

	data, err := toml.Marshal(config)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// EnsureDataDir 确保数据目录存在
// 相对路径基于可执行文件所在目录
func EnsureDataDir(config *AppConfig) (string, error) {
	dataDir := resolveDir(config.Data.DataDir)

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", err
	}

	// 创建子目录
	subdirs := []string{"uploads", "outputs", "backups"}
	for _, subdir := range subdirs {
		path := filepath.Join(dataDir, subdir)
		if err := os.MkdirAll(path, 0755); err != nil {
			return "", err
		}
	}

	return dataDir, nil
}

// GetDataPath 获取数据文件路径
func GetDataPath(config *AppConfig, subdir, filename string) string {
	return filepath.Join(resolveDir(config.Data.DataDir), subdir, filename)
}

// InputDir 总库存文件所在目录
func InputDir(config *AppConfig) string {
	return resolveDir(config.Data.InputDir)
}

func resolveDir(dir string) string {
	if filepath.IsAbs(dir) {
		return dir
	}
	exeDir, err := GetExeDir()
	if err != nil || exeDir == "" {
		exeDir = "."
	}
	return filepath.Join(exeDir, dir)
}
