package monitor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/stat"
)

// DatasetStats is the source of the numbers the dashboard renders. The sqlite
// store satisfies it; tests use a stub.
type DatasetStats interface {
	CountsByFormat() (map[string]int, error)
	Areas() ([]float64, error)
}

// AreaSummary describes the distribution of annotation areas.
type AreaSummary struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
	P50   float64 `json:"p50"`
	P90   float64 `json:"p90"`
	Max   float64 `json:"max"`
}

// SummarizeAreas computes distribution statistics over annotation areas.
func SummarizeAreas(areas []float64) AreaSummary {
	if len(areas) == 0 {
		return AreaSummary{}
	}
	sorted := append([]float64(nil), areas...)
	sort.Float64s(sorted)
	return AreaSummary{
		Count: len(sorted),
		Mean:  stat.Mean(sorted, nil),
		P50:   stat.Quantile(0.5, stat.Empirical, sorted, nil),
		P90:   stat.Quantile(0.9, stat.Empirical, sorted, nil),
		Max:   sorted[len(sorted)-1],
	}
}

// StatsServer serves the dataset statistics dashboard.
type StatsServer struct {
	stats DatasetStats
}

// NewStatsServer creates a StatsServer over the given stats source.
func NewStatsServer(stats DatasetStats) *StatsServer {
	return &StatsServer{stats: stats}
}

// RegisterRoutes registers the dashboard routes on the provided mux.
func (ss *StatsServer) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/debug/dataset/formats", ss.handleFormatChart)
	mux.HandleFunc("/debug/dataset/areas", ss.handleAreaHistogram)
	mux.HandleFunc("/debug/dataset/areas.json", ss.handleAreaSummary)
}

// handleFormatChart renders a bar chart of annotation counts per
// segmentation format.
func (ss *StatsServer) handleFormatChart(w http.ResponseWriter, r *http.Request) {
	counts, err := ss.stats.CountsByFormat()
	if err != nil {
		ss.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to load format counts: %v", err))
		return
	}

	formats := make([]string, 0, len(counts))
	for format := range counts {
		formats = append(formats, format)
	}
	sort.Strings(formats)

	data := make([]opts.BarData, 0, len(formats))
	for _, format := range formats {
		data = append(data, opts.BarData{Value: counts[format]})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Segmentation Formats", Theme: "dark"}),
		charts.WithTitleOpts(opts.Title{Title: "Annotations per segmentation format"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(formats)
	bar.AddSeries("annotations", data)

	ss.renderChart(w, bar)
}

// handleAreaHistogram renders a histogram of annotation areas.
func (ss *StatsServer) handleAreaHistogram(w http.ResponseWriter, r *http.Request) {
	areas, err := ss.stats.Areas()
	if err != nil {
		ss.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to load areas: %v", err))
		return
	}

	labels, buckets := histogram(areas, 20)
	data := make([]opts.BarData, 0, len(buckets))
	for _, n := range buckets {
		data = append(data, opts.BarData{Value: n})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Annotation Areas", Theme: "dark"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Annotation area distribution",
			Subtitle: fmt.Sprintf("n=%d", len(areas)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(labels)
	bar.AddSeries("annotations", data)

	ss.renderChart(w, bar)
}

// handleAreaSummary returns the area distribution statistics as JSON.
func (ss *StatsServer) handleAreaSummary(w http.ResponseWriter, r *http.Request) {
	areas, err := ss.stats.Areas()
	if err != nil {
		ss.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to load areas: %v", err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(SummarizeAreas(areas))
}

type chartRenderer interface {
	Render(w io.Writer) error
}

func (ss *StatsServer) renderChart(w http.ResponseWriter, chart chartRenderer) {
	var buf bytes.Buffer
	if err := chart.Render(&buf); err != nil {
		ss.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (ss *StatsServer) writeJSONError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]interface{}{"error": message})
}

// histogram bins values into n equal-width buckets and returns the bucket
// labels (lower bound of each bucket) alongside the counts.
func histogram(values []float64, n int) ([]string, []int) {
	if len(values) == 0 || n < 1 {
		return nil, nil
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	width := (hi - lo) / float64(n)
	if width == 0 {
		return []string{fmt.Sprintf("%.0f", lo)}, []int{len(values)}
	}

	buckets := make([]int, n)
	for _, v := range values {
		i := int((v - lo) / width)
		if i >= n {
			i = n - 1
		}
		buckets[i]++
	}
	labels := make([]string, n)
	for i := range labels {
		labels[i] = fmt.Sprintf("%.0f", lo+float64(i)*width)
	}
	return labels, buckets
}
