package processor

import (
	"GexPrep/src/config"
	"GexPrep/src/utils"
	"fmt"
	"math"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Matrix 按列存储的数值特征，NaN 表示缺失
type Matrix struct {
	Names []string
	Cols  [][]float64
}

func (m *Matrix) Nrow() int {
	if len(m.Cols) == 0 {
		return 0
	}
	return len(m.Cols[0])
}

func (m *Matrix) Ncol() int { return len(m.Cols) }

// MatrixFromDataFrame 把特征表解析为数值矩阵，无法解析的值返回 ErrSchema。
// 用一次 Capply 按位置遍历各列
func MatrixFromDataFrame(df dataframe.DataFrame) (*Matrix, error) {
	m := &Matrix{
		Names: make([]string, 0, df.Ncol()),
		Cols:  make([][]float64, 0, df.Ncol()),
	}
	var firstErr error
	df.Capply(func(s series.Series) series.Series {
		if firstErr != nil {
			return s
		}
		col, err := seriesToFloats(s)
		if err != nil {
			firstErr = fmt.Errorf("%w: column %q: %v", utils.ErrSchema, s.Name, err)
			return s
		}
		m.Names = append(m.Names, s.Name)
		m.Cols = append(m.Cols, col)
		return s
	})
	if firstErr != nil {
		return nil, firstErr
	}
	return m, nil
}

func seriesToFloats(s series.Series) ([]float64, error) {
	switch s.Type() {
	case series.Float, series.Int, series.Bool:
		return s.Float(), nil
	}
	out := make([]float64, s.Len())
	for i := range out {
		e := s.Elem(i)
		if e.IsNA() {
			out[i] = math.NaN()
			continue
		}
		v, err := utils.ParseNumeric(e.String())
		if err != nil {
			return nil, fmt.Errorf("row %d: non-numeric value %q", i, e.String())
		}
		out[i] = v
	}
	return out, nil
}

// Scaler 只在训练集上拟合，再以相同参数变换训练集和测试集
type Scaler interface {
	Fit(X *Matrix) error
	Transform(X *Matrix) (*Matrix, error)
	// BitSize 输出数值的浮点位宽
	BitSize() int
}

// NewScaler 根据名称创建缩放器，名称非法时返回 ErrConfig
func NewScaler(name string) (Scaler, error) {
	switch name {
	case config.ScalerNone:
		return &IdentityScaler{}, nil
	case config.ScalerStandard:
		return &StandardScaler{}, nil
	case config.ScalerMinMax:
		return &MinMaxScaler{}, nil
	case config.ScalerFractionOfMax:
		return &FractionOfMaxScaler{}, nil
	}
	return nil, fmt.Errorf("%w: invalid encoding: %s", utils.ErrConfig, name)
}

// FitTransform 拟合 train 后变换 train 与 test
func FitTransform(s Scaler, train, test *Matrix) (*Matrix, *Matrix, error) {
	if err := s.Fit(train); err != nil {
		return nil, nil, err
	}
	trainOut, err := s.Transform(train)
	if err != nil {
		return nil, nil, err
	}
	testOut, err := s.Transform(test)
	if err != nil {
		return nil, nil, err
	}
	return trainOut, testOut, nil
}

// present 返回列中的非缺失值
func present(col []float64) []float64 {
	out := make([]float64, 0, len(col))
	for _, v := range col {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// affine 用每列的 (x - shift) / scale 生成新矩阵
func affine(X *Matrix, shift, scale []float64) (*Matrix, error) {
	if X.Ncol() != len(scale) {
		return nil, fmt.Errorf("%w: scaler fitted on %d columns, got %d", utils.ErrSchema, len(scale), X.Ncol())
	}
	out := &Matrix{Names: X.Names, Cols: make([][]float64, X.Ncol())}
	for j, col := range X.Cols {
		dst := make([]float64, len(col))
		for i, v := range col {
			dst[i] = (v - shift[j]) / scale[j]
		}
		out.Cols[j] = dst
	}
	return out, nil
}

var errNotFitted = fmt.Errorf("%w: scaler is not fitted", utils.ErrConfig)

// IdentityScaler 不缩放，仅转为32位浮点
type IdentityScaler struct{}

func (s *IdentityScaler) Fit(X *Matrix) error { return nil }

func (s *IdentityScaler) Transform(X *Matrix) (*Matrix, error) {
	out := &Matrix{Names: X.Names, Cols: make([][]float64, X.Ncol())}
	for j, col := range X.Cols {
		out.Cols[j] = append([]float64(nil), col...)
	}
	return out, nil
}

func (s *IdentityScaler) BitSize() int { return 32 }

// StandardScaler 每列减均值除以总体标准差，标准差为0时除以1
type StandardScaler struct {
	Mean []float64
	Std  []float64
	fit  bool
}

func (s *StandardScaler) Fit(X *Matrix) error {
	s.Mean = make([]float64, X.Ncol())
	s.Std = make([]float64, X.Ncol())
	for j, col := range X.Cols {
		vals := present(col)
		s.Std[j] = 1
		if len(vals) == 0 {
			continue
		}
		mean, variance := stat.PopMeanVariance(vals, nil)
		s.Mean[j] = mean
		if std := math.Sqrt(variance); std > 0 {
			s.Std[j] = std
		}
	}
	s.fit = true
	return nil
}

func (s *StandardScaler) Transform(X *Matrix) (*Matrix, error) {
	if !s.fit {
		return nil, errNotFitted
	}
	return affine(X, s.Mean, s.Std)
}

func (s *StandardScaler) BitSize() int { return 64 }

// MinMaxScaler 按训练集的最小/最大值线性映射到[0,1]
type MinMaxScaler struct {
	Min   []float64
	Range []float64
	fit   bool
}

func (s *MinMaxScaler) Fit(X *Matrix) error {
	s.Min = make([]float64, X.Ncol())
	s.Range = make([]float64, X.Ncol())
	for j, col := range X.Cols {
		vals := present(col)
		s.Range[j] = 1
		if len(vals) == 0 {
			continue
		}
		lo, hi := floats.Min(vals), floats.Max(vals)
		s.Min[j] = lo
		if hi > lo {
			s.Range[j] = hi - lo
		}
	}
	s.fit = true
	return nil
}

func (s *MinMaxScaler) Transform(X *Matrix) (*Matrix, error) {
	if !s.fit {
		return nil, errNotFitted
	}
	return affine(X, s.Min, s.Range)
}

func (s *MinMaxScaler) BitSize() int { return 64 }

// FractionOfMaxScaler 每列除以训练集最大值，最大值为0时除以1
type FractionOfMaxScaler struct {
	Max []float64
	fit bool
}

func (s *FractionOfMaxScaler) Fit(X *Matrix) error {
	s.Max = make([]float64, X.Ncol())
	for j, col := range X.Cols {
		s.Max[j] = 1
		vals := present(col)
		if len(vals) == 0 {
			continue
		}
		if m := floats.Max(vals); m != 0 {
			s.Max[j] = m
		}
	}
	s.fit = true
	return nil
}

func (s *FractionOfMaxScaler) Transform(X *Matrix) (*Matrix, error) {
	if !s.fit {
		return nil, errNotFitted
	}
	return affine(X, make([]float64, len(s.Max)), s.Max)
}

func (s *FractionOfMaxScaler) BitSize() int { return 32 }
