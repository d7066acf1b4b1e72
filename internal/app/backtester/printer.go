package backtester

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"
)

// ConsolePrinter — вывод результатов таблицей
type ConsolePrinter struct {
	out io.Writer
}

// NewConsolePrinter — печать в stdout
func NewConsolePrinter() *ConsolePrinter {
	return NewWriterPrinter(os.Stdout)
}

func NewWriterPrinter(out io.Writer) *ConsolePrinter {
	return &ConsolePrinter{out: out}
}

// PrintComparison — выводит сравнительную таблицу стратегий
func (p *ConsolePrinter) PrintComparison(results []BenchmarkResult) {
	sorted := append([]BenchmarkResult(nil), results...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TotalProfit > sorted[j].TotalProfit
	})

	fmt.Fprintln(p.out, "\n"+strings.Repeat("=", 100))
	fmt.Fprintln(p.out, "📊 СРАВНЕНИЕ СТРАТЕГИЙ")
	fmt.Fprintln(p.out, strings.Repeat("=", 100))
	fmt.Fprintf(p.out, "%-18s %-12s %-10s %-15s %-10s %-12s\n", "Стратегия", "Прибыль", "Сделки", "Финал, $", "Время", "Ранг")
	fmt.Fprintln(p.out, strings.Repeat("-", 100))

	for i, r := range sorted {
		rankStr := fmt.Sprintf("%d", i+1)
		switch i {
		case 0:
			rankStr = "🥇 " + rankStr
		case 1:
			rankStr = "🥈 " + rankStr
		case 2:
			rankStr = "🥉 " + rankStr
		default:
			rankStr = "  " + rankStr
		}

		profit := fmt.Sprintf("%.2f%%", r.TotalProfit*100)
		if r.TotalProfit > 0 {
			profit = "+" + profit
		}

		fmt.Fprintf(p.out, "%-18s %-12s %-10d $%-14.2f %-10s %-12s\n",
			r.Name,
			profit,
			r.TradeCount,
			r.FinalPortfolio,
			formatDuration(r.ExecutionTime),
			rankStr)
		if r.Config != nil {
			fmt.Fprintf(p.out, "%-18s %s\n", "", r.Config.String())
		}
	}
}

// PrintProgress — выводит прогресс выполнения стратегий
func (p *ConsolePrinter) PrintProgress(current, total int) {
	fmt.Fprintf(p.out, "📊 Прогресс: %d/%d стратегий завершено\n", current, total)
}

func formatDuration(d time.Duration) string {
	if d > time.Second {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%.0fms", float64(d.Nanoseconds())/1e6)
}
