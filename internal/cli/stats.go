package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/nerdneilsfield/go-novel-mt/internal/config"
	"github.com/nerdneilsfield/go-novel-mt/pkg/providers/stats"
	"github.com/spf13/cobra"
)

// statsOptions stats 命令的标志
type statsOptions struct {
	format string
	reset  bool
	yes    bool
}

// NewStatsCommand 创建 stats 命令
func NewStatsCommand(cfgFile *string) *cobra.Command {
	opts := &statsOptions{}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "查看各翻译后端的请求统计",
		Long: `查看各翻译后端的请求统计，包括请求数、成功率、错误类别与延迟。

Examples:
  # 表格形式显示
  translator stats

  # 输出 JSON
  translator stats --format json

  # 清空统计
  translator stats --reset`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(*cfgFile)
			if err != nil {
				return err
			}
			return runStats(cmd, cfg, opts)
		},
	}

	statsCmd.Flags().StringVar(&opts.format, "format", "table", "输出格式 (table, json)")
	statsCmd.Flags().BoolVar(&opts.reset, "reset", false, "清空所有统计（需要确认）")
	statsCmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "跳过确认")

	return statsCmd
}

func runStats(cmd *cobra.Command, cfg *config.Config, opts *statsOptions) error {
	manager := stats.NewManager(cfg.StatsPath, nil)
	if err := manager.Load(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.reset {
		return handleStatsReset(cmd.InOrStdin(), out, manager, opts.yes)
	}

	all := manager.All()
	switch opts.format {
	case "json":
		data, err := json.MarshalIndent(all, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal statistics: %w", err)
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	case "table":
		renderStatsTable(out, all)
		return nil
	default:
		return fmt.Errorf("unsupported format %q", opts.format)
	}
}

// handleStatsReset 处理统计重置
func handleStatsReset(in io.Reader, out io.Writer, manager *stats.Manager, yes bool) error {
	if !yes {
		fmt.Fprint(out, "Are you sure you want to reset all statistics? This cannot be undone. (y/N): ")
		answer, _ := bufio.NewReader(in).ReadString('\n')
		switch strings.TrimSpace(answer) {
		case "y", "Y", "yes":
		default:
			fmt.Fprintln(out, "Statistics reset cancelled.")
			return nil
		}
	}

	manager.Reset()
	if err := manager.Save(); err != nil {
		return fmt.Errorf("failed to reset statistics: %w", err)
	}
	fmt.Fprintln(out, color.GreenString("Statistics have been reset."))
	return nil
}

func renderStatsTable(w io.Writer, all []stats.ProviderStats) {
	if len(all) == 0 {
		fmt.Fprintln(w, color.YellowString("No statistics recorded yet."))
		return
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"后端", "请求", "成功率", "发送字符", "接收字符", "平均延迟", "最大延迟", "错误", "最近请求"})
	for _, ps := range all {
		tw.AppendRow(table.Row{
			ps.ProviderName,
			formatNumber(ps.TotalRequests),
			fmt.Sprintf("%.1f%%", ps.SuccessRate()),
			formatNumber(ps.CharsSent),
			formatNumber(ps.CharsReceived),
			formatDuration(ps.AverageLatency),
			formatDuration(ps.MaxLatency),
			formatErrorKinds(ps.ErrorKinds),
			formatTime(ps.LastRequestTime),
		})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})
	tw.SetStyle(table.StyleLight)
	tw.Render()
}

func formatErrorKinds(kinds map[string]int64) string {
	if len(kinds) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(kinds))
	for kind, n := range kinds {
		parts = append(parts, fmt.Sprintf("%s=%d", kind, n))
	}
	sort.Strings(parts)
	return strings.Join(parts, ", ")
}

// formatDuration 格式化耗时
func formatDuration(d time.Duration) string {
	if d == 0 {
		return "0s"
	}
	if d < time.Second {
		return fmt.Sprintf("%.0fms", float64(d.Nanoseconds())/1e6)
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%.1fm", d.Minutes())
}

// formatNumber 格式化数字（添加千位分隔符）
func formatNumber(n int64) string {
	str := fmt.Sprintf("%d", n)
	if len(str) <= 3 {
		return str
	}

	var result strings.Builder
	for i, char := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result.WriteString(",")
		}
		result.WriteRune(char)
	}
	return result.String()
}

// formatTime 格式化时间
func formatTime(t time.Time) string {
	if t.IsZero() {
		return "N/A"
	}
	now := time.Now()
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Format("15:04:05")
	}
	return t.Format("2006-01-02 15:04")
}
