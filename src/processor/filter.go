package processor

import (
	"GexPrep/src/config"
	"GexPrep/src/storage"
	"GexPrep/src/utils"
	"fmt"
	"sort"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"golang.org/x/text/unicode/norm"
)

// FilterOptions 列过滤需要的列约定
type FilterOptions struct {
	Categorical []string // all 模式下独热编码，exclude 模式下删除
	Label       string
	AllowList   []string // 仅 immune 模式使用
}

// DropColumns 删除固定的管理列，required 缺失时返回 ErrSchema
func DropColumns(df dataframe.DataFrame, required, optional []string) (dataframe.DataFrame, error) {
	if missing := utils.MissingColumns(df, required); len(missing) > 0 {
		return df, fmt.Errorf("%w: missing columns %v", utils.ErrSchema, missing)
	}

	index := utils.ColumnIndex(df)
	drop := append([]string{}, required...)
	for _, c := range optional {
		if _, ok := index[c]; ok && !utils.Contains(drop, c) {
			drop = append(drop, c)
		}
	}
	if len(drop) == 0 {
		return df, nil
	}

	out := df.Drop(drop)
	if out.Err != nil {
		return df, fmt.Errorf("%w: %v", utils.ErrSchema, out.Err)
	}
	return out, nil
}

// ApplyColumnFilter 按 mode 选择特征列，mode 非法时返回 ErrConfig
func ApplyColumnFilter(df dataframe.DataFrame, mode string, opts FilterOptions, logger *storage.Logger) (dataframe.DataFrame, error) {
	var err error
	switch mode {
	case config.FilterAll:
		for _, col := range opts.Categorical {
			if df, err = OneHotInsert(df, col); err != nil {
				return df, err
			}
		}
	case config.FilterExcludeSexTissue:
		if missing := utils.MissingColumns(df, opts.Categorical); len(missing) > 0 {
			return df, fmt.Errorf("%w: missing columns %v", utils.ErrSchema, missing)
		}
		df = df.Drop(opts.Categorical)
	case config.FilterImmune:
		df, err = selectAllowed(df, opts, logger)
		if err != nil {
			return df, err
		}
	default:
		return df, fmt.Errorf("%w: invalid column filter: %s", utils.ErrConfig, mode)
	}

	if df.Err != nil {
		return df, fmt.Errorf("%w: %v", utils.ErrSchema, df.Err)
	}
	logger.Info(fmt.Sprintf("列过滤(%s)完成: %d 行 x %d 列", mode, df.Nrow(), df.Ncol()))
	if logger.Enabled(storage.DEBUG) {
		logger.Debug(df.String())
	}
	return df, nil
}

// selectAllowed 只保留白名单中存在的列，末尾追加标签列
func selectAllowed(df dataframe.DataFrame, opts FilterOptions, logger *storage.Logger) (dataframe.DataFrame, error) {
	index := utils.ColumnIndex(df)
	labelIdx, ok := index[opts.Label]
	if !ok {
		return df, fmt.Errorf("%w: missing label column %s", utils.ErrSchema, opts.Label)
	}
	logger.Info(fmt.Sprintf("免疫基因白名单共 %d 项", len(opts.AllowList)))

	keep := make([]int, 0, len(opts.AllowList)+1)
	var skipped int
	for _, name := range opts.AllowList {
		if name == opts.Label {
			continue
		}
		j, ok := index[name]
		if !ok {
			skipped++
			logger.Debug("白名单基因不在输入表中: " + name)
			continue
		}
		keep = append(keep, j)
	}
	if skipped > 0 {
		logger.Warning(fmt.Sprintf("白名单中有 %d 项不在输入表中，已跳过", skipped))
	}
	keep = append(keep, labelIdx)
	return df.Select(keep), nil
}

// OneHotInsert 用每个取值一列的0/1指示列替换 col，指示列插在原列位置。
// 指示列与已有列重名时返回 ErrSchema
func OneHotInsert(df dataframe.DataFrame, col string) (dataframe.DataFrame, error) {
	index := utils.ColumnIndex(df)
	pos, ok := index[col]
	if !ok {
		return df, fmt.Errorf("%w: missing column %s", utils.ErrSchema, col)
	}

	s := df.Col(col)
	n := s.Len()
	values := make([]string, n)
	vocab := make(map[string]struct{})
	for i := 0; i < n; i++ {
		e := s.Elem(i)
		if e.IsNA() {
			continue
		}
		v := NormalizeCategory(e.String())
		if v == "" {
			continue
		}
		values[i] = v
		vocab[v] = struct{}{}
	}

	categories := make([]string, 0, len(vocab))
	for v := range vocab {
		categories = append(categories, v)
	}
	sort.Strings(categories)

	indicators := make([]series.Series, len(categories))
	for k, c := range categories {
		name := col + "_" + c
		if _, clash := index[name]; clash {
			return df, fmt.Errorf("%w: indicator column %s already exists", utils.ErrSchema, name)
		}
		ind := make([]int, n)
		for i, v := range values {
			if v == c {
				ind[i] = 1
			}
		}
		indicators[k] = series.New(ind, series.Int, name)
	}

	// 原列左侧 + 指示列 + 原列右侧
	var parts []dataframe.DataFrame
	if pos > 0 {
		parts = append(parts, df.Select(utils.Span(0, pos)))
	}
	if len(indicators) > 0 {
		parts = append(parts, dataframe.New(indicators...))
	}
	if pos+1 < df.Ncol() {
		parts = append(parts, df.Select(utils.Span(pos+1, df.Ncol())))
	}
	if len(parts) == 0 {
		return dataframe.New(), nil
	}

	out := parts[0]
	for _, p := range parts[1:] {
		out = out.CBind(p)
	}
	if out.Err != nil {
		return df, fmt.Errorf("%w: encode %s: %v", utils.ErrSchema, col, out.Err)
	}
	return out, nil
}

// NormalizeCategory 统一类别文本的Unicode形式并去掉首尾空白
func NormalizeCategory(v string) string {
	return strings.TrimSpace(norm.NFC.String(v))
}
