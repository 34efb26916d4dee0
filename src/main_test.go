package main

import (
	"GexPrep/src/config"
	"GexPrep/src/storage"
	"GexPrep/src/utils"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"
	"testing"
	"time"
)

// writeFixture 在临时目录写入输入表、两个配置文件和输出目录
func writeFixture(t *testing.T) (dir, input, out string) {
	t.Helper()
	dir = t.TempDir()
	out = filepath.Join(dir, "out")
	if err := os.Mkdir(out, 0755); err != nil {
		t.Fatal(err)
	}
	input = filepath.Join(dir, "gex.csv")
	csv := "GSM,Sex,Tissue,GENE0,Age\n" +
		"g1,F,liver,1,40\n" +
		"g2,M,lung,2,50\n" +
		"g3,F,lung,3,60\n" +
		"g4,M,liver,4,70\n" +
		"g5,F,blood,5,80\n"
	files := map[string]string{
		input:                                 csv,
		filepath.Join(dir, "config.json"):     `{"log_name":"` + filepath.Join(dir, "run.log") + `","log_level":"WARN"}`,
		filepath.Join(dir, "dataconfig.json"): `{"drop_columns":["GSM"],"optional_drop_columns":[]}`,
	}
	for path, content := range files {
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir, input, out
}

func TestApplyFlags(t *testing.T) {
	opts := &options{}
	cmd := newRootCmd(opts)
	if err := cmd.ParseFlags([]string{"--scaler", "minMax", "--split", "0.7", "--filepath", "gex.csv"}); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	applyFlags(cmd.Flags(), opts, cfg)
	if cfg.Scaler != config.ScalerMinMax || cfg.Split != 0.7 || cfg.FilePath != "gex.csv" {
		t.Errorf("cfg = %+v", cfg)
	}
	// 未指定的参数保留配置值
	if cfg.RandomState != 42 || cfg.ColumnFilter != config.FilterAll {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestRootCommand(t *testing.T) {
	dir, input, out := writeFixture(t)

	cmd := newRootCmd(&options{})
	cmd.SetArgs([]string{
		"--config-dir", dir,
		"--filepath", input,
		"--scaler", "standard",
		"--output-dir", out,
	})
	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"gex.csv_train_all_standard.csv", "gex.csv_test_all_standard.csv"} {
		if _, err := os.Stat(filepath.Join(out, name)); err != nil {
			t.Errorf("missing output %s: %v", name, err)
		}
	}

	bad := newRootCmd(&options{})
	bad.SetArgs([]string{"--config-dir", dir, "--filepath", input, "--scaler", "bogus", "--output-dir", out})
	bad.SetErr(io.Discard)
	if err := bad.Execute(); err == nil {
		t.Error("非法缩放方式应返回错误")
	}
}

func TestNewScheduler(t *testing.T) {
	dir, input, out := writeFixture(t)
	cfg, dcfg, err := config.LoadConfig(dir, "config.json", "dataconfig.json")
	if err != nil {
		t.Fatal(err)
	}
	cfg.FilePath = input
	cfg.OutputDir = out
	logger := storage.NewConsoleLogger(io.Discard)

	for _, interval := range []time.Duration{0, -time.Second} {
		cfg.CheckInterval = config.Duration(interval)
		if _, err := newScheduler(cfg, dcfg, logger); !errors.Is(err, utils.ErrConfig) {
			t.Errorf("interval %v: err = %v", interval, err)
		}
	}

	cfg.CheckInterval = config.Duration(time.Hour)
	c, err := newScheduler(cfg, dcfg, logger)
	if err != nil {
		t.Fatal(err)
	}
	entries := c.Entries()
	if len(entries) != 1 {
		t.Fatalf("entries = %d", len(entries))
	}
	entries[0].Job.Run()
	for _, name := range []string{"gex.csv_train_all_none.csv", "gex.csv_test_all_none.csv"} {
		if _, err := os.Stat(filepath.Join(out, name)); err != nil {
			t.Errorf("missing output %s: %v", name, err)
		}
	}
}

func TestSkipIfRunning(t *testing.T) {
	var buf bytes.Buffer
	logger := storage.NewConsoleLogger(&buf)

	var calls int32
	started := make(chan struct{}, 2)
	release := make(chan struct{})
	job := skipIfRunning(logger, func() {
		atomic.AddInt32(&calls, 1)
		started <- struct{}{}
		<-release
	})

	done := make(chan struct{})
	go func() {
		job()
		close(done)
	}()
	<-started

	// 第一次仍在运行，这次应立即返回
	job()
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("calls = %d", n)
	}
	close(release)
	<-done

	job()
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Errorf("calls = %d", n)
	}
	if !strings.Contains(buf.String(), "跳过") {
		t.Errorf("log = %s", buf.String())
	}
}

func TestReopenOnHangup(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "run.log")
	logger, err := storage.NewLogger(name)
	if err != nil {
		t.Fatal(err)
	}
	defer logger.Close()

	logger.Warning("before rotate")
	if err := os.Rename(name, name+".1"); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sig := make(chan os.Signal)
	done := make(chan struct{})
	go func() {
		reopenOnHangup(ctx, logger, name, sig)
		close(done)
	}()
	// 无缓冲通道，第二次发送成功说明第一次已处理完
	sig <- syscall.SIGHUP
	sig <- syscall.SIGHUP
	cancel()
	<-done

	logger.Warning("after rotate")
	data, err := os.ReadFile(name)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "after rotate") || strings.Contains(string(data), "before rotate") {
		t.Errorf("log = %s", data)
	}
}
