// Package report renders an interactive HTML summary of a training run:
// learning curves, the test confusion matrix and per-team win rates.
package report

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/openhoops/match-predictor/internal/evaluation"
	"github.com/openhoops/match-predictor/internal/models"
	"github.com/openhoops/match-predictor/internal/predictor"
)

// ChartConfig holds sizing and colors shared by every chart.
type ChartConfig struct {
	Width  string
	Height string
	Theme  string
	Colors []string
}

// DefaultChartConfig returns default chart configuration.
func DefaultChartConfig() ChartConfig {
	return ChartConfig{
		Width:  "900px",
		Height: "450px",
		Theme:  "light",
		Colors: []string{"#5470C6", "#91CC75", "#FAC858", "#EE6666"},
	}
}

// TeamWinRate is one bar of the win-rate chart.
type TeamWinRate struct {
	Abbreviation string
	Games        int
	WinRate      float64
}

// Input is everything a report shows. Nil or empty parts are skipped.
type Input struct {
	Title    string
	History  []predictor.EpochMetrics
	Test     *evaluation.Report
	WinRates []TeamWinRate
}

// Render writes the report page to w.
func Render(w io.Writer, in Input, cfg ChartConfig) error {
	if len(in.History) == 0 && in.Test == nil && len(in.WinRates) == 0 {
		return errors.New("report: nothing to render")
	}

	page := components.NewPage()
	page.PageTitle = in.Title
	page.SetLayout(components.PageFlexLayout)

	if len(in.History) > 0 {
		page.AddCharts(lossChart(in.History, cfg), accuracyChart(in.History, cfg))
	}
	if in.Test != nil {
		page.AddCharts(confusionChart(in.Test, cfg))
	}
	if len(in.WinRates) > 0 {
		page.AddCharts(winRateChart(in.WinRates, cfg))
	}

	if err := page.Render(w); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	return nil
}

// WriteFile renders the report to path, creating parent directories.
func WriteFile(path string, in Input, cfg ChartConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	if err := Render(f, in, cfg); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WinRates computes each team's share of decided games, sorted from best
// to worst record. Rows without a W or L are ignored.
func WinRates(games []models.GameRecord) []TeamWinRate {
	type tally struct {
		abbr      string
		wins, dec int
	}
	byTeam := make(map[int64]*tally)
	for _, g := range games {
		if g.WL != "W" && g.WL != "L" {
			continue
		}
		t, ok := byTeam[g.TeamID]
		if !ok {
			t = &tally{}
			byTeam[g.TeamID] = t
		}
		t.abbr = g.TeamAbbreviation
		t.dec++
		if g.WL == "W" {
			t.wins++
		}
	}

	out := make([]TeamWinRate, 0, len(byTeam))
	for _, t := range byTeam {
		out = append(out, TeamWinRate{
			Abbreviation: t.abbr,
			Games:        t.dec,
			WinRate:      float64(t.wins) / float64(t.dec),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].WinRate != out[j].WinRate {
			return out[i].WinRate > out[j].WinRate
		}
		return out[i].Abbreviation < out[j].Abbreviation
	})
	return out
}

func globalOpts(title, subtitle string, cfg ChartConfig) []charts.GlobalOpts {
	return []charts.GlobalOpts{
		charts.WithInitializationOpts(opts.Initialization{
			Width:  cfg.Width,
			Height: cfg.Height,
			Theme:  cfg.Theme,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: subtitle,
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:    opts.Bool(true),
			Trigger: "axis",
		}),
		charts.WithLegendOpts(opts.Legend{
			Show: opts.Bool(true),
			Top:  "bottom",
		}),
	}
}

func epochLabels(history []predictor.EpochMetrics) []string {
	labels := make([]string, len(history))
	for i, m := range history {
		labels[i] = strconv.Itoa(m.Epoch)
	}
	return labels
}

func lineSeries(history []predictor.EpochMetrics, value func(predictor.EpochMetrics) float64) []opts.LineData {
	data := make([]opts.LineData, len(history))
	for i, m := range history {
		data[i] = opts.LineData{Value: value(m)}
	}
	return data
}

func hasValidation(history []predictor.EpochMetrics) bool {
	for _, m := range history {
		if m.ValLoss != 0 || m.ValAccuracy != 0 {
			return true
		}
	}
	return false
}

func lossChart(history []predictor.EpochMetrics, cfg ChartConfig) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(globalOpts("Loss", "binary cross-entropy per epoch", cfg)...)
	line.SetXAxis(epochLabels(history)).
		AddSeries("train", lineSeries(history, func(m predictor.EpochMetrics) float64 { return m.Loss }),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: cfg.Colors[0]}))
	if hasValidation(history) {
		line.AddSeries("validation", lineSeries(history, func(m predictor.EpochMetrics) float64 { return m.ValLoss }),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: cfg.Colors[3%len(cfg.Colors)]}))
	}
	line.SetSeriesOptions(
		charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}),
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(false)}),
	)
	return line
}

func accuracyChart(history []predictor.EpochMetrics, cfg ChartConfig) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(globalOpts("Accuracy", "per epoch", cfg)...)
	line.SetXAxis(epochLabels(history)).
		AddSeries("train", lineSeries(history, func(m predictor.EpochMetrics) float64 { return m.Accuracy }),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: cfg.Colors[0]}))
	if hasValidation(history) {
		line.AddSeries("validation", lineSeries(history, func(m predictor.EpochMetrics) float64 { return m.ValAccuracy }),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: cfg.Colors[1%len(cfg.Colors)]}))
	}
	line.SetSeriesOptions(
		charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}),
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(false)}),
	)
	return line
}

func confusionChart(r *evaluation.Report, cfg ChartConfig) *charts.HeatMap {
	labels := []string{evaluation.ClassLabels[0], evaluation.ClassLabels[1]}

	data := make([]opts.HeatMapData, 0, 4)
	peak := 0
	for t := 0; t < 2; t++ {
		for p := 0; p < 2; p++ {
			n := r.Confusion[t][p]
			if n > peak {
				peak = n
			}
			// x is the predicted class, y the true class
			data = append(data, opts.HeatMapData{Value: [3]interface{}{p, t, n}})
		}
	}

	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Width:  cfg.Width,
			Height: cfg.Height,
			Theme:  cfg.Theme,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Confusion Matrix",
			Subtitle: fmt.Sprintf("test accuracy %.3f over %d games", r.Accuracy, r.Total),
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "predicted", Type: "category", Data: labels}),
		charts.WithYAxisOpts(opts.YAxis{Name: "actual", Type: "category", Data: labels}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(peak),
			InRange:    &opts.VisualMapInRange{Color: []string{"#f6efa6", cfg.Colors[0]}},
		}),
	)
	hm.SetXAxis(labels).AddSeries("games", data,
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true)}))
	return hm
}

func winRateChart(rates []TeamWinRate, cfg ChartConfig) *charts.Bar {
	labels := make([]string, len(rates))
	data := make([]opts.BarData, len(rates))
	for i, r := range rates {
		labels[i] = r.Abbreviation
		data[i] = opts.BarData{Value: r.WinRate, Name: fmt.Sprintf("%s (%d games)", r.Abbreviation, r.Games)}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(globalOpts("Win Rate", "share of decided games in the training data", cfg)...)
	bar.SetXAxis(labels).
		AddSeries("win rate", data, charts.WithItemStyleOpts(opts.ItemStyle{Color: cfg.Colors[1%len(cfg.Colors)]})).
		SetSeriesOptions(charts.WithLabelOpts(opts.Label{Show: opts.Bool(false)}))
	return bar
}
