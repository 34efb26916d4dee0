package config

import (
	"GexPrep/src/utils"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// 可选的列过滤方式
const (
	FilterAll              = "all"
	FilterExcludeSexTissue = "exclude_sex_tissue"
	FilterImmune           = "immune"
)

// 可选的缩放方式
const (
	ScalerNone          = "none"
	ScalerStandard      = "standard"
	ScalerMinMax        = "minMax"
	ScalerFractionOfMax = "fractionOfMax"
)

// Config 结构体定义了一次数据准备运行的参数
type Config struct {
	FilePath       string   `json:"filepath"`         // 输入表格路径
	ColumnFilter   string   `json:"column_filter"`    // all / exclude_sex_tissue / immune
	Scaler         string   `json:"scaler"`           // none / standard / minMax / fractionOfMax
	Split          float64  `json:"split"`            // 训练集比例
	RandomState    int64    `json:"random_state"`     // 划分随机种子
	OutputDir      string   `json:"output_dir"`       // 输出目录，必须已存在
	ImmuneGeneList string   `json:"immune_gene_list"` // 免疫基因白名单，每行一个
	SheetName      string   `json:"sheet_name"`       // 输入为xlsx时使用的工作表
	CheckInterval  Duration `json:"check_interval"`   // schedule 模式的运行间隔

	LogName    string `json:"log_name"`
	LogLevel   string `json:"log_level"`
	LogMaxSize string `json:"log_max_size"`
}

// DataConfig 描述输入表格的列约定
type DataConfig struct {
	DropColumns         []string `json:"drop_columns"`          // 必须存在并删除的管理列
	OptionalDropColumns []string `json:"optional_drop_columns"` // 存在时才删除
	CategoricalColumns  []string `json:"categorical_columns"`   // 需要独热编码的列
	LabelColumn         string   `json:"label_column"`
}

// Default 返回内置默认参数
func Default() *Config {
	return &Config{
		ColumnFilter:   FilterAll,
		Scaler:         ScalerNone,
		Split:          0.8,
		RandomState:    42,
		OutputDir:      "../ProcessedData/ScaledData",
		ImmuneGeneList: "../ProcessedData/ImmuneGenes.txt",
		CheckInterval:  Duration(5 * time.Minute),
		LogName:        "app.log",
		LogLevel:       "INFO",
		LogMaxSize:     "10 * 1024 * 1024",
	}
}

// DefaultData 返回测序元数据表的默认列约定
func DefaultData() *DataConfig {
	return &DataConfig{
		DropColumns: []string{
			"Sample_run", "LoadDate", "spots", "bases", "avgLength", "size_MB",
			"Experiment", "LibraryStrategy", "LibraryLayout", "Platform",
			"SRAStudy", "BioProject", "Sample", "BioSample", "Notes", "GSM",
		},
		OptionalDropColumns: []string{"NA"},
		CategoricalColumns:  []string{"Sex", "Tissue"},
		LabelColumn:         "Age",
	}
}

// LoadConfig 从 jsonFolder 读取两个配置文件，文件不存在时使用默认值
func LoadConfig(jsonFolder, jsonFile, dataJsonFile string) (*Config, *DataConfig, error) {
	configFile := filepath.Join(jsonFolder, jsonFile)
	dataConfigFile := filepath.Join(jsonFolder, dataJsonFile)

	configData, err := readFile(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	dataConfigData, err := readFile(dataConfigFile)
	if err != nil {
		return nil, nil, fmt.Errorf("读取数据配置文件失败: %w", err)
	}

	cfgChan := make(chan *Config, 1)
	dcfgChan := make(chan *DataConfig, 1)
	errChan := make(chan error, 2)

	go parseConfig(configData, cfgChan, errChan)
	go parseDataConfig(dataConfigData, dcfgChan, errChan)

	return waitForResults(cfgChan, dcfgChan, errChan)
}

// readFile 读取文件，不存在时返回 nil
func readFile(filePath string) ([]byte, error) {
	data, err := os.ReadFile(filePath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: 无法读取文件 %s: %v", utils.ErrIO, filePath, err)
	}
	return data, nil
}

func parseConfig(data []byte, resultChan chan<- *Config, errChan chan<- error) {
	cfg := Default()
	if data != nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			errChan <- fmt.Errorf("%w: 解析Config失败: %v", utils.ErrConfig, err)
			return
		}
	}
	resultChan <- cfg
}

func parseDataConfig(data []byte, resultChan chan<- *DataConfig, errChan chan<- error) {
	dcfg := DefaultData()
	if data != nil {
		if err := json.Unmarshal(data, dcfg); err != nil {
			errChan <- fmt.Errorf("%w: 解析DataConfig失败: %v", utils.ErrConfig, err)
			return
		}
	}
	resultChan <- dcfg
}

func waitForResults(
	cfgChan <-chan *Config,
	dcfgChan <-chan *DataConfig,
	errChan <-chan error,
) (*Config, *DataConfig, error) {
	var (
		cfg  *Config
		dcfg *DataConfig
		errs []error
	)

	for i := 0; i < 2; i++ {
		select {
		case c := <-cfgChan:
			cfg = c
		case d := <-dcfgChan:
			dcfg = d
		case err := <-errChan:
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return nil, nil, errors.Join(errs...)
	}

	if cfg == nil || dcfg == nil {
		return nil, nil, fmt.Errorf("%w: 部分配置未加载成功", utils.ErrConfig)
	}

	return cfg, dcfg, nil
}

// Validate 在读取任何文件之前检查运行参数
func (c *Config) Validate() error {
	switch c.ColumnFilter {
	case FilterAll, FilterExcludeSexTissue, FilterImmune:
	default:
		return fmt.Errorf("%w: invalid column filter: %s", utils.ErrConfig, c.ColumnFilter)
	}
	switch c.Scaler {
	case ScalerNone, ScalerStandard, ScalerMinMax, ScalerFractionOfMax:
	default:
		return fmt.Errorf("%w: invalid encoding: %s", utils.ErrConfig, c.Scaler)
	}
	if !(c.Split > 0 && c.Split < 1) {
		return fmt.Errorf("%w: split must be in (0,1), got %v", utils.ErrConfig, c.Split)
	}
	if c.FilePath == "" {
		return fmt.Errorf("%w: filepath is empty", utils.ErrConfig)
	}
	return nil
}

// Duration 是time.Duration的自定义包装类型
// 用于支持JSON序列化和反序列化
type Duration time.Duration

// UnmarshalJSON 实现json.Unmarshaler接口
// 用于从JSON字符串解析Duration
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalJSON 实现json.Marshaler接口
// 用于将Duration序列化为JSON字符串
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}
