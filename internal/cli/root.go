package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/nerdneilsfield/go-novel-mt/internal/chapter"
	"github.com/nerdneilsfield/go-novel-mt/internal/config"
	"github.com/nerdneilsfield/go-novel-mt/internal/logger"
	"github.com/nerdneilsfield/go-novel-mt/internal/progress"
	"github.com/nerdneilsfield/go-novel-mt/pkg/glossary"
	"github.com/nerdneilsfield/go-novel-mt/pkg/translation"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// rootOptions 命令行标志
type rootOptions struct {
	cfgFile       string
	provider      string
	glossaryPath  string
	encoding      string
	segmentSize   int
	bilingual     bool
	columns       int
	markerPolicy  string
	debug         bool
	quiet         bool
	listProviders bool
}

// NewRootCommand 创建根命令
func NewRootCommand(version, commit, buildDate string) *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "translator [flags] input_file [output_file]",
		Short: "网络小说章节机器翻译工具",
		Long: `网络小说章节机器翻译工具，逐行翻译章节文本并保持行数不变。

处理流程：跳过空行 -> 术语替换 -> 按长度分段 -> 调用网页翻译后端 -> 还原术语。

支持的翻译后端:
  - baidu: 百度翻译网页接口
  - youdao: 有道翻译网页接口`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if opts.listProviders {
				return nil
			}
			return cobra.RangeArgs(1, 2)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate(cmd, opts, args)
		},
	}

	flags := rootCmd.Flags()
	rootCmd.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "配置文件路径 (默认 $HOME/.novel-mt.yaml)")
	rootCmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "启用调试日志")
	flags.StringVarP(&opts.provider, "provider", "p", "", "翻译后端 (baidu, youdao)")
	flags.StringVarP(&opts.glossaryPath, "glossary", "g", "", "术语表文件 (.toml, .json, .txt)")
	flags.StringVarP(&opts.encoding, "encoding", "e", "", "输入文件编码 (auto, shift_jis, euc-jp, gbk, ...)")
	flags.IntVar(&opts.segmentSize, "segment-size", 0, "每次请求的最大字符数")
	flags.BoolVarP(&opts.bilingual, "bilingual", "b", false, "输出原文与译文对照")
	flags.IntVar(&opts.columns, "columns", 0, "对照输出时原文列宽，0 表示上下排列")
	flags.StringVar(&opts.markerPolicy, "marker-policy", "", "术语标记策略 (target, token)")
	flags.BoolVarP(&opts.quiet, "quiet", "q", false, "不显示进度条与汇总")
	flags.BoolVar(&opts.listProviders, "list-providers", false, "列出支持的翻译后端")

	rootCmd.AddCommand(NewStatsCommand(&opts.cfgFile))

	return rootCmd
}

// loadConfig 加载配置并应用命令行覆盖
func loadConfig(cmd *cobra.Command, opts *rootOptions) (*config.Config, error) {
	cfg, err := config.LoadConfig(opts.cfgFile)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("provider") {
		cfg.Provider = opts.provider
	}
	if flags.Changed("glossary") {
		cfg.GlossaryPath = opts.glossaryPath
	}
	if flags.Changed("encoding") {
		cfg.Encoding = opts.encoding
	}
	if flags.Changed("segment-size") {
		cfg.SegmentSize = opts.segmentSize
	}
	if flags.Changed("marker-policy") {
		cfg.MarkerPolicy = opts.markerPolicy
	}
	if opts.debug {
		cfg.Debug = true
		cfg.LogLevel = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runTranslate(cmd *cobra.Command, opts *rootOptions, args []string) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}

	log, err := logger.NewLoggerWithLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() {
		_ = log.Sync()
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	app, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer app.Close()

	if opts.listProviders {
		printProviders(cmd.OutOrStdout(), app)
		return nil
	}

	lines, err := readInput(args[0], cfg.Encoding)
	if err != nil {
		return err
	}

	var g *glossary.Glossary
	if cfg.GlossaryPath != "" {
		g, err = glossary.LoadFile(cfg.GlossaryPath)
		if err != nil {
			return err
		}
		log.Info("glossary loaded", zap.String("path", cfg.GlossaryPath), zap.Int("terms", g.Len()))
	}

	policy, err := translation.ParseMarkerPolicy(cfg.MarkerPolicy)
	if err != nil {
		return err
	}

	tracker := progress.NewTracker("翻译进度", progress.WithWriter(cmd.ErrOrStderr()),
		progress.WithQuiet(opts.quiet), progress.WithLogger(log))

	misses := 0
	pipeline := translation.NewPipeline(app.segment,
		translation.WithProvider(app.provider.Name()),
		translation.WithGlossary(g),
		translation.WithMarkerPolicy(policy),
		translation.WithSegmentSize(cfg.SegmentSize),
		translation.WithProgressTracker(tracker),
		translation.WithRestoreMissHandler(func(translation.RestoreMiss) { misses++ }),
		translation.WithLogger(log),
	)

	if err := app.provider.Init(ctx); err != nil {
		log.Warn("provider init failed, will retry lazily", zap.Error(err))
	}

	translated, translateErr := pipeline.Translate(ctx, lines)
	app.SaveStats()

	if !opts.quiet {
		var cacheStats *translation.CacheStats
		if app.cache != nil {
			s := app.cache.Stats()
			cacheStats = &s
		}
		progress.RenderSummary(cmd.ErrOrStderr(), app.provider.Name(), tracker.Summary(), cacheStats)
	}
	if translateErr != nil {
		return fmt.Errorf("translation failed: %w", translateErr)
	}
	if misses > 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), color.YellowString("%d glossary markers could not be restored", misses))
	}

	return writeOutput(cmd.OutOrStdout(), args, lines, translated, opts)
}

func readInput(path, encodingName string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	defer f.Close()
	return chapter.ReadLines(f, encodingName)
}

func writeOutput(stdout io.Writer, args []string, source, translated []string, opts *rootOptions) error {
	w := stdout
	toFile := len(args) > 1
	if toFile {
		f, err := os.Create(args[1])
		if err != nil {
			return fmt.Errorf("failed to create output: %w", err)
		}
		defer f.Close()
		w = f
	}

	if opts.bilingual {
		return chapter.WriteBilingual(w, source, translated, chapter.BilingualOptions{
			Columns: opts.columns,
			Color:   !toFile && !color.NoColor,
		})
	}
	return chapter.WriteLines(w, translated)
}

func printProviders(w io.Writer, a *app) {
	fmt.Fprintln(w, "支持的翻译后端:")
	for _, name := range a.registry.List() {
		p, err := a.registry.Get(name)
		if err != nil {
			continue
		}
		caps := p.Capabilities()
		marker := "  "
		if name == a.provider.Name() {
			marker = color.GreenString("* ")
		}
		fmt.Fprintf(w, "%s%s (%s -> %s)\n", marker, name, caps.SourceLanguage, caps.TargetLanguage)
	}
}

// Execute 执行根命令
func Execute(ctx context.Context, version, commit, buildDate string) error {
	return NewRootCommand(version, commit, buildDate).ExecuteContext(ctx)
}
