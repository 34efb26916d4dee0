package utils

import (
	"math"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

func Contains[T comparable](slice []T, item T) bool {
	for _, v := range slice {
		if v == item {
			return true
		}
	}
	return false
}

// 辅助函数：判断DataFrame是否有某列
func HasColumn(df dataframe.DataFrame, name string) bool {
	for _, n := range df.Names() {
		if n == name {
			return true
		}
	}
	return false
}

// ColumnIndex 列名到下标的映射，只调用一次 Names()
func ColumnIndex(df dataframe.DataFrame) map[string]int {
	names := df.Names()
	index := make(map[string]int, len(names))
	for i, n := range names {
		index[n] = i
	}
	return index
}

// Span 返回 [from, to) 的下标
func Span(from, to int) []int {
	out := make([]int, 0, to-from)
	for i := from; i < to; i++ {
		out = append(out, i)
	}
	return out
}

// MissingColumns 返回 cols 中 DataFrame 不存在的列名，保持原顺序
func MissingColumns(df dataframe.DataFrame, cols []string) []string {
	index := ColumnIndex(df)
	var missing []string
	for _, c := range cols {
		if _, ok := index[c]; !ok {
			missing = append(missing, c)
		}
	}
	return missing
}

// ParseNumeric 解析单元格数值，支持 True/False
func ParseNumeric(s string) (float64, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "true":
		return 1, nil
	case "false":
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

// FormatFloat 按位宽格式化，缺失值输出空字符串
func FormatFloat(v float64, bitSize int) string {
	if math.IsNaN(v) {
		return ""
	}
	if bitSize == 32 {
		return strconv.FormatFloat(float64(float32(v)), 'g', -1, 32)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Records 取出列的文本值，NA 转为空字符串
func Records(s series.Series) []string {
	out := make([]string, s.Len())
	for i := 0; i < s.Len(); i++ {
		e := s.Elem(i)
		if e.IsNA() {
			continue
		}
		out[i] = e.String()
	}
	return out
}
