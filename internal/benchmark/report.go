package benchmark

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"askdata-ai/internal/resolver"
)

// Summary aggregates the benchmark per strategy.
type Summary struct {
	Mode        resolver.Mode
	AvgLatency  time.Duration
	SuccessRate float64 // percent
	// FastestCount is the number of questions this strategy answered faster
	// than every other strategy.
	FastestCount int
}

// Summarize computes per-strategy aggregates from benchmark results. Empty
// modes falls back to all four strategies.
func Summarize(results []QuestionResult, modes []resolver.Mode) []Summary {
	if len(modes) == 0 {
		modes = []resolver.Mode{
			resolver.ModeSQLAgent,
			resolver.ModeRAG,
			resolver.ModeHybridSimple,
			resolver.ModeHybridEnhanced,
		}
	}
	type acc struct {
		total     time.Duration
		successes int
		fastest   int
		count     int
	}
	accs := make(map[resolver.Mode]*acc, len(modes))
	for _, m := range modes {
		accs[m] = &acc{}
	}

	for _, qr := range results {
		var fastestMode resolver.Mode
		var fastest time.Duration
		for _, m := range qr.Measurements {
			a, ok := accs[m.Mode]
			if !ok {
				continue
			}
			a.count++
			a.total += m.Latency
			if m.Success {
				a.successes++
			}
			if fastestMode == "" || m.Latency < fastest {
				fastestMode = m.Mode
				fastest = m.Latency
			}
		}
		if a, ok := accs[fastestMode]; ok {
			a.fastest++
		}
	}

	summaries := make([]Summary, 0, len(modes))
	for _, m := range modes {
		a := accs[m]
		s := Summary{Mode: m, FastestCount: a.fastest}
		if a.count > 0 {
			s.AvgLatency = a.total / time.Duration(a.count)
			s.SuccessRate = float64(a.successes) / float64(a.count) * 100
		}
		summaries = append(summaries, s)
	}
	return summaries
}

// WriteMarkdown renders the benchmark report as Markdown.
func WriteMarkdown(w io.Writer, results []QuestionResult, modes []resolver.Mode) error {
	summaries := Summarize(results, modes)

	var b strings.Builder
	b.WriteString("# Performance Benchmark Report: Query Resolution Strategies\n\n")
	b.WriteString("## Summary Statistics\n\n")

	b.WriteString("| Metric |")
	for _, s := range summaries {
		fmt.Fprintf(&b, " %s |", s.Mode)
	}
	b.WriteString("\n|--------|")
	for range summaries {
		b.WriteString("------|")
	}
	b.WriteString("\n| Average Response Time (s) |")
	for _, s := range summaries {
		fmt.Fprintf(&b, " %.2f |", s.AvgLatency.Seconds())
	}
	b.WriteString("\n| Success Rate (%) |")
	for _, s := range summaries {
		fmt.Fprintf(&b, " %.1f |", s.SuccessRate)
	}
	b.WriteString("\n| Fastest Strategy Count |")
	for _, s := range summaries {
		fmt.Fprintf(&b, " %d |", s.FastestCount)
	}
	b.WriteString("\n\n## Detailed Results\n\n")

	for i, qr := range results {
		fmt.Fprintf(&b, "### Question %d: %s\n\n", i+1, qr.Question)
		for _, m := range qr.Measurements {
			fmt.Fprintf(&b, "- %s: %.2fs, Success: %t", m.Mode, m.Latency.Seconds(), m.Success)
			if !m.Success && m.Reason != "" {
				fmt.Fprintf(&b, " (%s)", m.Reason)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteHTML renders the Markdown report to HTML.
func WriteHTML(w io.Writer, results []QuestionResult, modes []resolver.Mode) error {
	var md bytes.Buffer
	if err := WriteMarkdown(&md, results, modes); err != nil {
		return err
	}
	// GFM extension for table rendering.
	renderer := goldmark.New(goldmark.WithExtensions(extension.GFM))
	if err := renderer.Convert(md.Bytes(), w); err != nil {
		return fmt.Errorf("failed to render HTML report: %w", err)
	}
	return nil
}
