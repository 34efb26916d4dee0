package main

import (
	"GexPrep/src/config"
	"GexPrep/src/datasource/file"
	"GexPrep/src/processor"
	"GexPrep/src/storage"
	"GexPrep/src/utils"
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/robfig/cron"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// options 命令行参数，非空时覆盖配置文件
type options struct {
	configDir    string
	filePath     string
	columnFilter string
	scaler       string
	split        float64
	randomState  int64
	outputDir    string
	immuneList   string
}

func main() {
	if err := newRootCmd(&options{}).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(opts *options) *cobra.Command {
	root := &cobra.Command{
		Use:          "gexprep",
		Short:        "过滤、划分并缩放基因表达矩阵，输出训练/测试集",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, dcfg, logger, err := setup(cmd.Flags(), opts)
			if err != nil {
				return err
			}
			defer logger.Close()
			_, err = runOnce(cfg, dcfg, logger)
			return err
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&opts.configDir, "config-dir", "./config", "包含 config.json 与 dataconfig.json 的目录")
	f.StringVar(&opts.filePath, "filepath", "", "输入表格 (.csv/.tsv/.xlsx)")
	f.StringVar(&opts.columnFilter, "column-filter", "", "all | exclude_sex_tissue | immune")
	f.StringVar(&opts.scaler, "scaler", "", "none | standard | minMax | fractionOfMax")
	f.Float64Var(&opts.split, "split", 0.8, "训练集比例")
	f.Int64Var(&opts.randomState, "random-state", 42, "划分随机种子")
	f.StringVar(&opts.outputDir, "output-dir", "", "输出目录")
	f.StringVar(&opts.immuneList, "immune-list", "", "免疫基因白名单文件")

	root.AddCommand(newWatchCmd(opts), newScheduleCmd(opts))
	return root
}

func newWatchCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "输入文件每次写入后重新生成",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, dcfg, logger, err := setup(cmd.Flags(), opts)
			if err != nil {
				return err
			}
			defer logger.Close()

			monitor, err := file.NewFileMonitor(cfg.FilePath)
			if err != nil {
				logger.Fatal("监听输入文件失败: " + err.Error())
				return err
			}
			defer monitor.Close()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			go reopenOnHangup(ctx, logger, cfg.LogName, hangup(ctx))

			runLogged(cfg, dcfg, logger)
			logger.Info("开始监听 " + cfg.FilePath + "，按Ctrl+C退出")
			return monitor.Watch(ctx, func(name string) {
				logger.Info("检测到文件更新: " + name)
				runLogged(cfg, dcfg, logger)
			})
		},
	}
}

func newScheduleCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "按 check_interval 定时重新生成",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, dcfg, logger, err := setup(cmd.Flags(), opts)
			if err != nil {
				return err
			}
			defer logger.Close()

			c, err := newScheduler(cfg, dcfg, logger)
			if err != nil {
				logger.Fatal(err.Error())
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			go reopenOnHangup(ctx, logger, cfg.LogName, hangup(ctx))

			c.Start()
			defer c.Stop()
			logger.Info(fmt.Sprintf("定时任务已启动(间隔: %v)，按Ctrl+C退出", time.Duration(cfg.CheckInterval)))
			<-ctx.Done()
			logger.Info("收到退出信号，停止定时任务")
			return nil
		},
	}
}

// newScheduler 按 check_interval 注册定时任务，间隔必须为正
func newScheduler(cfg *config.Config, dcfg *config.DataConfig, logger *storage.Logger) (*cron.Cron, error) {
	interval := time.Duration(cfg.CheckInterval)
	if interval <= 0 {
		return nil, fmt.Errorf("%w: check_interval must be positive, got %v", utils.ErrConfig, interval)
	}

	c := cron.New()
	cronSpec := fmt.Sprintf("@every %s", interval)
	job := skipIfRunning(logger, func() { runLogged(cfg, dcfg, logger) })
	if err := c.AddFunc(cronSpec, job); err != nil {
		return nil, fmt.Errorf("%w: 创建定时任务失败: %v", utils.ErrConfig, err)
	}
	return c, nil
}

// skipIfRunning 上一次未结束时跳过本次
func skipIfRunning(logger *storage.Logger, fn func()) func() {
	var running sync.Mutex
	return func() {
		if !running.TryLock() {
			logger.Warning("上一次运行尚未结束，跳过")
			return
		}
		defer running.Unlock()
		fn()
	}
}

// hangup 在 ctx 结束前把 SIGHUP 转发到返回的通道
func hangup(ctx context.Context) <-chan os.Signal {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGHUP)
	go func() {
		<-ctx.Done()
		signal.Stop(ch)
	}()
	return ch
}

// reopenOnHangup 每收到一次信号就重新打开日志文件，配合外部 logrotate 使用
func reopenOnHangup(ctx context.Context, logger *storage.Logger, filename string, sig <-chan os.Signal) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-sig:
			if err := logger.Reopen(filename); err != nil {
				logger.Error("重新打开日志失败: " + err.Error())
				continue
			}
			logger.Info("已重新打开日志文件 " + filename)
		}
	}
}

// setup 读取配置、应用命令行覆盖并初始化日志
func setup(flags *pflag.FlagSet, opts *options) (*config.Config, *config.DataConfig, *storage.Logger, error) {
	cfg, dcfg, err := config.LoadConfig(opts.configDir, "config.json", "dataconfig.json")
	if err != nil {
		return nil, nil, nil, err
	}
	applyFlags(flags, opts, cfg)

	logger, err := storage.NewLogger(cfg.LogName)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("初始化日志失败: %w", err)
	}
	logger.SetLevel(cfg.LogLevel)
	return cfg, dcfg, logger, nil
}

func applyFlags(flags *pflag.FlagSet, opts *options, cfg *config.Config) {
	if opts.filePath != "" {
		cfg.FilePath = opts.filePath
	}
	if opts.columnFilter != "" {
		cfg.ColumnFilter = opts.columnFilter
	}
	if opts.scaler != "" {
		cfg.Scaler = opts.scaler
	}
	if opts.outputDir != "" {
		cfg.OutputDir = opts.outputDir
	}
	if opts.immuneList != "" {
		cfg.ImmuneGeneList = opts.immuneList
	}
	if flags.Changed("split") {
		cfg.Split = opts.split
	}
	if flags.Changed("random-state") {
		cfg.RandomState = opts.randomState
	}
}

func runOnce(cfg *config.Config, dcfg *config.DataConfig, logger *storage.Logger) (*processor.Result, error) {
	res, err := processor.NewDatasetPreparer(cfg, dcfg, logger).Run()
	if err != nil {
		logger.Fatal(err.Error())
		return nil, err
	}
	return res, nil
}

// runLogged 用于长期运行模式，失败只记录不退出
func runLogged(cfg *config.Config, dcfg *config.DataConfig, logger *storage.Logger) {
	if _, err := processor.NewDatasetPreparer(cfg, dcfg, logger).Run(); err != nil {
		logger.Error("本次运行失败: " + err.Error())
	}
	if err := logger.CheckRotate(cfg); err != nil {
		logger.Warning("日志轮转失败: " + err.Error())
	}
}
