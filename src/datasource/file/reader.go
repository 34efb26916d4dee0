// reader.go
package file

import (
	"GexPrep/src/utils"
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/tealeg/xlsx"
)

// 视为缺失值的单元格文本
var nanValues = []string{"", "NA", "NaN", "nan", "<nil>"}

// LoadTable 读取输入表格并检查 required 列是否齐全
func LoadTable(filePath, sheetName string, required []string) (dataframe.DataFrame, error) {
	var (
		df  dataframe.DataFrame
		err error
	)
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".xlsx":
		df, err = ReadXLSXToDataFrame(filePath, sheetName)
	case ".tsv", ".txt":
		df, err = ReadCSVToDataFrame(filePath, '\t')
	default:
		df, err = ReadCSVToDataFrame(filePath, ',')
	}
	if err != nil {
		return df, err
	}

	if missing := utils.MissingColumns(df, required); len(missing) > 0 {
		return df, fmt.Errorf("%w: %s missing columns %v", utils.ErrSchema, filePath, missing)
	}
	return df, nil
}

// ReadCSVToDataFrame 以字符串类型读取分隔符文件，数值解析留给缩放阶段
func ReadCSVToDataFrame(filePath string, delimiter rune) (dataframe.DataFrame, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return dataframe.New(), fmt.Errorf("%w: %v", utils.ErrIO, err)
	}
	defer f.Close()

	df := dataframe.ReadCSV(bufio.NewReader(f),
		dataframe.WithDelimiter(delimiter),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(nanValues),
	)
	if df.Err != nil {
		return df, fmt.Errorf("%w: parse %s: %v", utils.ErrSchema, filePath, df.Err)
	}
	return df, nil
}

// ReadXLSXToDataFrame 读取xlsx工作表，sheetName为空时取第一个工作表
func ReadXLSXToDataFrame(filePath, sheetName string) (dataframe.DataFrame, error) {
	// 1. 使用tealeg/xlsx打开Excel文件
	xlFile, err := xlsx.OpenFile(filePath)
	if err != nil {
		return dataframe.New(), fmt.Errorf("%w: xlsx open file false: %v", utils.ErrIO, err)
	}

	// 2. 获取工作表
	if len(xlFile.Sheets) == 0 {
		return dataframe.New(), fmt.Errorf("%w: excel文件中没有工作表: %s", utils.ErrSchema, filePath)
	}
	sheet := xlFile.Sheets[0]
	if sheetName != "" {
		s, ok := xlFile.Sheet[sheetName]
		if !ok {
			return dataframe.New(), fmt.Errorf("%w: 工作表 %s 不存在", utils.ErrSchema, sheetName)
		}
		sheet = s
	}

	// 3. 转换为Gota DataFrame
	return convertSheetToDataFrame(sheet)
}

// convertSheetToDataFrame 将xlsx.Sheet转换为dataframe.DataFrame，第一行为标题行
func convertSheetToDataFrame(sheet *xlsx.Sheet) (dataframe.DataFrame, error) {
	if len(sheet.Rows) == 0 {
		return dataframe.New(), fmt.Errorf("%w: sheet %s is empty", utils.ErrSchema, sheet.Name)
	}

	var headers []string
	for _, cell := range sheet.Rows[0].Cells {
		headers = append(headers, strings.TrimSpace(cell.String()))
	}

	// 准备数据行，短行用空值补齐
	records := make([][]string, 0, len(sheet.Rows))
	records = append(records, headers)
	for _, row := range sheet.Rows[1:] {
		rec := make([]string, len(headers))
		for i, cell := range row.Cells {
			if i < len(headers) { // 确保不超出列数范围
				rec[i] = cell.String()
			}
		}
		records = append(records, rec)
	}

	df := dataframe.LoadRecords(records,
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(nanValues),
	)
	if df.Err != nil {
		return df, fmt.Errorf("%w: %v", utils.ErrSchema, df.Err)
	}
	return df, nil
}

// ReadAllowList 逐行读取基因白名单，忽略空行与重复项
func ReadAllowList(filePath string) ([]string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrIO, err)
	}
	defer f.Close()

	seen := make(map[string]struct{})
	var out []string

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	for scanner.Scan() {
		name := strings.TrimSpace(scanner.Text())
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", utils.ErrIO, filePath, err)
	}
	return out, nil
}
