package storage

import (
	"GexPrep/src/utils"
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Partition 一个待写出的数据分区
type Partition struct {
	Index     []int       // 原始行号
	Names     []string    // 特征列名
	Cols      [][]float64 // 按列存储的特征
	BitSize   int         // 32 或 64
	LabelName string
	Labels    []string
}

// PartitionWriter 将训练/测试分区写入固定目录
type PartitionWriter struct {
	OutputDir string
}

func NewPartitionWriter(outputDir string) *PartitionWriter {
	return &PartitionWriter{OutputDir: outputDir}
}

// OutputPaths 返回 {basename}_train_{filter}_{scaler}.csv 与对应的测试集路径
func (w *PartitionWriter) OutputPaths(inputPath, filter, scaler string) (train, test string) {
	base := filepath.Base(inputPath)
	train = filepath.Join(w.OutputDir, fmt.Sprintf("%s_train_%s_%s.csv", base, filter, scaler))
	test = filepath.Join(w.OutputDir, fmt.Sprintf("%s_test_%s_%s.csv", base, filter, scaler))
	return train, test
}

// CheckDir 确认输出目录存在且为目录
func (w *PartitionWriter) CheckDir() error {
	info, err := os.Stat(w.OutputDir)
	if err != nil {
		return fmt.Errorf("%w: output dir: %v", utils.ErrIO, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s exists but is not a directory", utils.ErrIO, w.OutputDir)
	}
	return nil
}

// Write 写出一个分区，首列为行号(表头为空)，末列为标签
func (w *PartitionWriter) Write(path string, p Partition) error {
	if err := p.check(); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: create %s: %v", utils.ErrIO, path, err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	cw := csv.NewWriter(bw)

	record := make([]string, 0, len(p.Names)+2)
	record = append(record, "")
	record = append(record, p.Names...)
	record = append(record, p.LabelName)
	if err := cw.Write(record); err != nil {
		return fmt.Errorf("%w: write %s: %v", utils.ErrIO, path, err)
	}

	for i, idx := range p.Index {
		record = record[:0]
		record = append(record, strconv.Itoa(idx))
		for _, col := range p.Cols {
			record = append(record, utils.FormatFloat(col[i], p.BitSize))
		}
		record = append(record, p.Labels[i])
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("%w: write %s: %v", utils.ErrIO, path, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("%w: write %s: %v", utils.ErrIO, path, err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("%w: flush %s: %v", utils.ErrIO, path, err)
	}
	return nil
}

// check 列名、列数据、标签与行号的长度必须一致
func (p Partition) check() error {
	n := len(p.Index)
	if len(p.Labels) != n {
		return fmt.Errorf("%w: %d labels for %d rows", utils.ErrSchema, len(p.Labels), n)
	}
	if len(p.Cols) != len(p.Names) {
		return fmt.Errorf("%w: %d columns for %d names", utils.ErrSchema, len(p.Cols), len(p.Names))
	}
	for j, name := range p.Names {
		if len(p.Cols[j]) != n {
			return fmt.Errorf("%w: column %q has %d rows, want %d", utils.ErrSchema, name, len(p.Cols[j]), n)
		}
	}
	return nil
}
