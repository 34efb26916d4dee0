package file

import (
	"GexPrep/src/utils"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tealeg/xlsx"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadTableCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gex.csv")
	writeFile(t, path, "GSM,Sex,GENE1,Age\nGSM1,F,1.5,45\nGSM2,NA,,61\n")

	df, err := LoadTable(path, "", []string{"GSM", "Age"})
	if err != nil {
		t.Fatal(err)
	}
	if df.Nrow() != 2 || df.Ncol() != 4 {
		t.Fatalf("dims = %dx%d", df.Nrow(), df.Ncol())
	}
	if !df.Col("Sex").Elem(1).IsNA() || !df.Col("GENE1").Elem(1).IsNA() {
		t.Error("NA 与空值应视为缺失")
	}
	if got := df.Col("Age").Elem(0).String(); got != "45" {
		t.Errorf("Age[0] = %q", got)
	}
}

func TestLoadTableTSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gex.tsv")
	writeFile(t, path, "GSM\tAge\nGSM1\t45\n")

	df, err := LoadTable(path, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if df.Ncol() != 2 {
		t.Fatalf("ncol = %d", df.Ncol())
	}
}

func TestLoadTableErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadTable(filepath.Join(dir, "missing.csv"), "", nil); !errors.Is(err, utils.ErrIO) {
		t.Errorf("missing file err = %v", err)
	}

	path := filepath.Join(dir, "gex.csv")
	writeFile(t, path, "Sex,Age\nF,45\n")
	_, err := LoadTable(path, "", []string{"GSM", "Age"})
	if !errors.Is(err, utils.ErrSchema) {
		t.Errorf("missing column err = %v", err)
	}
}

func TestLoadTableXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gex.xlsx")

	f := xlsx.NewFile()
	sheet, err := f.AddSheet("samples")
	if err != nil {
		t.Fatal(err)
	}
	for _, rec := range [][]string{{"Tissue", "GENE1", "Age"}, {"liver", "2", "50"}, {"lung", "3"}} {
		row := sheet.AddRow()
		for _, v := range rec {
			row.AddCell().Value = v
		}
	}
	if err := f.Save(path); err != nil {
		t.Fatal(err)
	}

	df, err := LoadTable(path, "samples", []string{"Tissue", "Age"})
	if err != nil {
		t.Fatal(err)
	}
	if df.Nrow() != 2 {
		t.Fatalf("nrow = %d", df.Nrow())
	}
	if !df.Col("Age").Elem(1).IsNA() {
		t.Error("短行应补齐为缺失值")
	}

	if _, err := LoadTable(path, "other", nil); !errors.Is(err, utils.ErrSchema) {
		t.Errorf("unknown sheet err = %v", err)
	}
}

func TestReadAllowList(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "immune.txt")
	writeFile(t, path, "CD4\n\nCD8A\nCD4\r\nIL6\n")

	got, err := ReadAllowList(path)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"CD4", "CD8A", "IL6"}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	if _, err := ReadAllowList(filepath.Join(dir, "none.txt")); !errors.Is(err, utils.ErrIO) {
		t.Errorf("err = %v", err)
	}
}

func TestFileMonitor(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gex.csv")
	writeFile(t, path, "Age\n1\n")

	monitor, err := NewFileMonitor(path)
	if err != nil {
		t.Fatal(err)
	}
	defer monitor.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	seen := make(chan string, 4)
	done := make(chan error, 1)
	go func() {
		done <- monitor.Watch(ctx, func(name string) { seen <- name })
	}()

	// 同目录下的其他文件不触发
	writeFile(t, filepath.Join(dir, "other.csv"), "x\n")
	writeFile(t, path, "Age\n2\n")

	select {
	case name := <-seen:
		if filepath.Base(name) != "gex.csv" {
			t.Errorf("handler got %s", name)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("未收到文件变更通知")
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatal(err)
	}
}
