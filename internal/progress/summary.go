package progress

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/nerdneilsfield/go-novel-mt/pkg/translation"
)

// RenderSummary 渲染最终的总结表格
func RenderSummary(w io.Writer, provider string, s Summary, cache *translation.CacheStats) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)

	tw.AppendRow(table.Row{"项", "值"})
	tw.AppendSeparator()
	tw.AppendRow(table.Row{"后端", provider})
	tw.AppendRow(table.Row{"分段", fmt.Sprintf("%d/%d", s.Completed, s.Segments)})
	tw.AppendRow(table.Row{"行数", s.Lines})
	tw.AppendRow(table.Row{"字符数", s.Chars})
	tw.AppendRow(table.Row{"总耗时", formatDuration(s.Elapsed)})

	if cache != nil {
		tw.AppendSeparator()
		tw.AppendRow(table.Row{"缓存命中", cache.Hits})
		tw.AppendRow(table.Row{"缓存未命中", cache.Misses})
	}
	if s.Err != nil {
		tw.AppendSeparator()
		tw.AppendRow(table.Row{"错误", s.Err.Error()})
	}

	tw.SetStyle(table.StyleLight)
	tw.Render()
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(100 * time.Millisecond).String()
}
