// data.go
package processor

import (
	"GexPrep/src/config"
	"GexPrep/src/datasource/file"
	"GexPrep/src/storage"
	"GexPrep/src/utils"
	"fmt"
	"time"
)

// Result 一次运行的输出摘要
type Result struct {
	TrainPath string
	TestPath  string
	TrainRows int
	TestRows  int
	Features  int
}

// DatasetPreparer 读取表达矩阵，过滤、划分、缩放后写出训练/测试集
type DatasetPreparer struct {
	cfg    *config.Config
	dcfg   *config.DataConfig
	logger *storage.Logger
}

func NewDatasetPreparer(cfg *config.Config, dcfg *config.DataConfig, logger *storage.Logger) *DatasetPreparer {
	return &DatasetPreparer{cfg: cfg, dcfg: dcfg, logger: logger}
}

// Run 执行一次完整流程。参数非法时在读取任何文件之前返回，不会产生输出
func (p *DatasetPreparer) Run() (*Result, error) {
	t1 := time.Now()
	cfg, dcfg := p.cfg, p.dcfg

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	scaler, err := NewScaler(cfg.Scaler)
	if err != nil {
		return nil, err
	}
	writer := storage.NewPartitionWriter(cfg.OutputDir)
	if err := writer.CheckDir(); err != nil {
		return nil, err
	}

	// 1. 读取
	required := append([]string{}, dcfg.DropColumns...)
	required = append(required, dcfg.LabelColumn)
	if cfg.ColumnFilter != config.FilterImmune {
		required = append(required, dcfg.CategoricalColumns...)
	}
	df, err := file.LoadTable(cfg.FilePath, cfg.SheetName, required)
	if err != nil {
		return nil, err
	}
	p.logger.Info(fmt.Sprintf("读取 %s: %d 行 x %d 列", cfg.FilePath, df.Nrow(), df.Ncol()))
	if p.logger.Enabled(storage.DEBUG) {
		p.logger.Debug(df.String())
	}

	// 2. 删除固定列并按模式过滤
	if df, err = DropColumns(df, dcfg.DropColumns, dcfg.OptionalDropColumns); err != nil {
		return nil, err
	}
	opts := FilterOptions{Categorical: dcfg.CategoricalColumns, Label: dcfg.LabelColumn}
	if cfg.ColumnFilter == config.FilterImmune {
		if opts.AllowList, err = file.ReadAllowList(cfg.ImmuneGeneList); err != nil {
			return nil, err
		}
	}
	if df, err = ApplyColumnFilter(df, cfg.ColumnFilter, opts, p.logger); err != nil {
		return nil, err
	}

	// 3. 划分
	split, err := TrainTestSplit(df, dcfg.LabelColumn, cfg.Split, cfg.RandomState)
	if err != nil {
		return nil, err
	}

	// 4. 缩放，参数只来自训练集
	xTrain, err := MatrixFromDataFrame(split.XTrain)
	if err != nil {
		return nil, err
	}
	xTest, err := MatrixFromDataFrame(split.XTest)
	if err != nil {
		return nil, err
	}
	trainScaled, testScaled, err := FitTransform(scaler, xTrain, xTest)
	if err != nil {
		return nil, err
	}

	// 5. 接回标签并写出
	trainPath, testPath := writer.OutputPaths(cfg.FilePath, cfg.ColumnFilter, cfg.Scaler)
	partitions := []struct {
		path   string
		index  []int
		matrix *Matrix
		labels []string
	}{
		{trainPath, split.TrainIndex, trainScaled, utils.Records(split.YTrain)},
		{testPath, split.TestIndex, testScaled, utils.Records(split.YTest)},
	}
	for _, part := range partitions {
		err := writer.Write(part.path, storage.Partition{
			Index:     part.index,
			Names:     part.matrix.Names,
			Cols:      part.matrix.Cols,
			BitSize:   scaler.BitSize(),
			LabelName: dcfg.LabelColumn,
			Labels:    part.labels,
		})
		if err != nil {
			return nil, err
		}
	}

	res := &Result{
		TrainPath: trainPath,
		TestPath:  testPath,
		TrainRows: len(split.TrainIndex),
		TestRows:  len(split.TestIndex),
		Features:  trainScaled.Ncol(),
	}
	p.logger.Info(fmt.Sprintf("已写出 %s (%d 行) 与 %s (%d 行)，特征 %d 列，耗时 %v",
		res.TrainPath, res.TrainRows, res.TestPath, res.TestRows, res.Features, time.Since(t1)))
	return res, nil
}
