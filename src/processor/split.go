package processor

import (
	"GexPrep/src/utils"
	"fmt"
	"math"
	"math/rand"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Split 训练/测试划分结果，X 与 y 按行对齐
type Split struct {
	XTrain, XTest         dataframe.DataFrame
	YTrain, YTest         series.Series
	TrainIndex, TestIndex []int // 原始行号
}

// TrainTestSplit 按 split 比例和 seed 划分行。
// 前 n_test 个置换下标为测试集，其余为训练集；相同输入、比例与种子得到相同划分。
func TrainTestSplit(df dataframe.DataFrame, label string, split float64, seed int64) (*Split, error) {
	if !(split > 0 && split < 1) {
		return nil, fmt.Errorf("%w: split must be in (0,1), got %v", utils.ErrConfig, split)
	}
	if !utils.HasColumn(df, label) {
		return nil, fmt.Errorf("%w: missing label column %s", utils.ErrSchema, label)
	}

	n := df.Nrow()
	nTrain := int(math.Floor(split * float64(n)))
	nTest := n - nTrain
	if nTrain == 0 || nTest == 0 {
		return nil, fmt.Errorf("%w: split %v of %d rows leaves an empty partition", utils.ErrConfig, split, n)
	}

	perm := rand.New(rand.NewSource(seed)).Perm(n)
	testIdx := append([]int{}, perm[:nTest]...)
	trainIdx := append([]int{}, perm[nTest:]...)

	X := df.Drop(label)
	y := df.Col(label)

	s := &Split{
		XTrain:     X.Subset(trainIdx),
		XTest:      X.Subset(testIdx),
		YTrain:     y.Subset(trainIdx),
		YTest:      y.Subset(testIdx),
		TrainIndex: trainIdx,
		TestIndex:  testIdx,
	}
	for _, part := range []dataframe.DataFrame{s.XTrain, s.XTest} {
		if part.Err != nil {
			return nil, fmt.Errorf("%w: %v", utils.ErrSchema, part.Err)
		}
	}
	return s, nil
}
