package storage

import (
	"GexPrep/src/utils"
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

func TestOutputPaths(t *testing.T) {
	w := NewPartitionWriter("/out")
	train, test := w.OutputPaths("/data/SRR_AllGex_Normal.csv", "all", "minMax")
	if train != "/out/SRR_AllGex_Normal.csv_train_all_minMax.csv" {
		t.Errorf("train = %s", train)
	}
	if test != "/out/SRR_AllGex_Normal.csv_test_all_minMax.csv" {
		t.Errorf("test = %s", test)
	}
}

func TestWritePartition(t *testing.T) {
	dir := t.TempDir()
	w := NewPartitionWriter(dir)
	if err := w.CheckDir(); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(dir, "train.csv")
	p := Partition{
		Index:     []int{3, 0},
		Names:     []string{"GENE1", "Sex_F"},
		Cols:      [][]float64{{0.5, math.NaN()}, {1, 0}},
		BitSize:   32,
		LabelName: "Age",
		Labels:    []string{"61", "45"},
	}
	if err := w.Write(path, p); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}

	want := [][]string{
		{"", "GENE1", "Sex_F", "Age"},
		{"3", "0.5", "1", "61"},
		{"0", "", "0", "45"},
	}
	if len(records) != len(want) {
		t.Fatalf("rows = %d", len(records))
	}
	for i := range want {
		for j := range want[i] {
			if records[i][j] != want[i][j] {
				t.Errorf("records[%d][%d] = %q, want %q", i, j, records[i][j], want[i][j])
			}
		}
	}
}

func TestWriterMissingDir(t *testing.T) {
	w := NewPartitionWriter(filepath.Join(t.TempDir(), "missing"))
	if err := w.CheckDir(); !errors.Is(err, utils.ErrIO) {
		t.Fatalf("CheckDir err = %v", err)
	}
	err := w.Write(filepath.Join(w.OutputDir, "x.csv"), Partition{LabelName: "Age"})
	if !errors.Is(err, utils.ErrIO) {
		t.Fatalf("Write err = %v", err)
	}
}

func TestWritePartitionMismatch(t *testing.T) {
	dir := t.TempDir()
	w := NewPartitionWriter(dir)
	tests := []struct {
		name string
		p    Partition
	}{
		{"labels", Partition{Index: []int{0, 1}, Labels: []string{"1"}}},
		{"names", Partition{Index: []int{0}, Names: []string{"A", "B"}, Cols: [][]float64{{1}}, Labels: []string{"1"}}},
		{"rows", Partition{Index: []int{0}, Names: []string{"A"}, Cols: [][]float64{{1, 2}}, Labels: []string{"1"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".csv")
			if err := w.Write(path, tt.p); !errors.Is(err, utils.ErrSchema) {
				t.Fatalf("err = %v", err)
			}
			if _, err := os.Stat(path); !os.IsNotExist(err) {
				t.Error("长度不一致时不应创建文件")
			}
		})
	}
}

func TestWriteWidePartition(t *testing.T) {
	const rows, cols = 5, 5000
	p := Partition{BitSize: 64, LabelName: "Age"}
	for i := 0; i < rows; i++ {
		p.Index = append(p.Index, i)
		p.Labels = append(p.Labels, strconv.Itoa(40+i))
	}
	for j := 0; j < cols; j++ {
		p.Names = append(p.Names, "GENE"+strconv.Itoa(j))
		col := make([]float64, rows)
		for i := range col {
			col[i] = float64(i*cols + j)
		}
		p.Cols = append(p.Cols, col)
	}

	path := filepath.Join(t.TempDir(), "wide.csv")
	if err := NewPartitionWriter(filepath.Dir(path)).Write(path, p); err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != rows+1 || len(records[0]) != cols+2 {
		t.Fatalf("shape = %d x %d", len(records), len(records[0]))
	}
	if records[0][cols] != "GENE"+strconv.Itoa(cols-1) || records[0][cols+1] != "Age" {
		t.Errorf("header tail = %v", records[0][cols:])
	}
	if got, want := records[3][cols], strconv.Itoa(2*cols+cols-1); got != want {
		t.Errorf("records[3][%d] = %s, want %s", cols, got, want)
	}
}
