package services

import (
  "fmt"
  "math"
  "os"
  "path/filepath"
  "sort"

  "github.com/fogleman/gg"
  "github.com/golang/freetype/truetype"
  "golang.org/x/image/font"
  "golang.org/x/image/font/gofont/goregular"

  "github.com/nexalyze/nexalyze-backend/internal/logger"
)

var chartPalette = []string{
  "#4F46E5", "#06B6D4", "#10B981", "#F59E0B", "#EF4444",
  "#8B5CF6", "#EC4899", "#14B8A6", "#F97316", "#6366F1",
}

// ChartService renders PNG charts into the configured charts directory and
// returns the written file path.
type ChartService interface {
  BarChart(title string, data map[string]int, filename string) (string, error)
  PieChart(title string, data map[string]int, filename string) (string, error)
}

type chartService struct {
  log *logger.Logger
  dir string

  titleFace font.Face
  labelFace font.Face
}

func NewChartService(baseLog *logger.Logger, dir string) (ChartService, error) {
  if err := os.MkdirAll(dir, 0o755); err != nil {
    return nil, fmt.Errorf("create charts dir: %w", err)
  }
  parsed, err := truetype.Parse(goregular.TTF)
  if err != nil {
    return nil, fmt.Errorf("parse chart font: %w", err)
  }
  return &chartService{
    log:       baseLog.With("service", "ChartService"),
    dir:       dir,
    titleFace: truetype.NewFace(parsed, &truetype.Options{Size: 22}),
    labelFace: truetype.NewFace(parsed, &truetype.Options{Size: 13}),
  }, nil
}

type chartEntry struct {
  label string
  value int
}

// sortedEntries orders by value descending, then label, and caps the series
// so labels stay readable.
func sortedEntries(data map[string]int, max int) []chartEntry {
  entries := make([]chartEntry, 0, len(data))
  for label, value := range data {
    if value <= 0 {
      continue
    }
    entries = append(entries, chartEntry{label: label, value: value})
  }
  sort.Slice(entries, func(i, j int) bool {
    if entries[i].value != entries[j].value {
      return entries[i].value > entries[j].value
    }
    return entries[i].label < entries[j].label
  })
  if len(entries) > max {
    entries = entries[:max]
  }
  return entries
}

func (s *chartService) BarChart(title string, data map[string]int, filename string) (string, error) {
  entries := sortedEntries(data, 8)
  if len(entries) == 0 {
    return "", fmt.Errorf("no data for chart %q", title)
  }

  const width, height = 800, 500
  dc := gg.NewContext(width, height)
  dc.SetHexColor("#FFFFFF")
  dc.Clear()

  dc.SetFontFace(s.titleFace)
  dc.SetHexColor("#1F2937")
  dc.DrawStringAnchored(title, width/2, 34, 0.5, 0.5)

  maxValue := entries[0].value
  const (
    left   = 60.0
    right  = 40.0
    top    = 70.0
    bottom = 80.0
  )
  plotW := float64(width) - left - right
  plotH := float64(height) - top - bottom

  dc.SetFontFace(s.labelFace)
  barW := plotW / float64(len(entries))
  for i, entry := range entries {
    h := plotH * float64(entry.value) / float64(maxValue)
    x := left + float64(i)*barW + barW*0.15
    y := top + plotH - h

    dc.SetHexColor(chartPalette[i%len(chartPalette)])
    dc.DrawRectangle(x, y, barW*0.7, h)
    dc.Fill()

    dc.SetHexColor("#374151")
    dc.DrawStringAnchored(fmt.Sprintf("%d", entry.value), x+barW*0.35, y-12, 0.5, 0.5)
    dc.DrawStringAnchored(truncate(entry.label, 14), x+barW*0.35, top+plotH+20, 0.5, 0.5)
  }

  dc.SetHexColor("#9CA3AF")
  dc.SetLineWidth(1)
  dc.DrawLine(left, top+plotH, left+plotW, top+plotH)
  dc.Stroke()

  return s.save(dc, filename)
}

func (s *chartService) PieChart(title string, data map[string]int, filename string) (string, error) {
  entries := sortedEntries(data, 8)
  if len(entries) == 0 {
    return "", fmt.Errorf("no data for chart %q", title)
  }

  const width, height = 800, 500
  dc := gg.NewContext(width, height)
  dc.SetHexColor("#FFFFFF")
  dc.Clear()

  dc.SetFontFace(s.titleFace)
  dc.SetHexColor("#1F2937")
  dc.DrawStringAnchored(title, width/2, 34, 0.5, 0.5)

  total := 0
  for _, entry := range entries {
    total += entry.value
  }

  const (
    cx     = 280.0
    cy     = 280.0
    radius = 170.0
  )
  angle := -math.Pi / 2
  dc.SetFontFace(s.labelFace)
  for i, entry := range entries {
    sweep := 2 * math.Pi * float64(entry.value) / float64(total)

    dc.SetHexColor(chartPalette[i%len(chartPalette)])
    dc.MoveTo(cx, cy)
    dc.DrawArc(cx, cy, radius, angle, angle+sweep)
    dc.ClosePath()
    dc.Fill()

    // Legend swatch and label down the right side.
    ly := 90.0 + float64(i)*32
    dc.DrawRectangle(520, ly, 18, 18)
    dc.Fill()
    dc.SetHexColor("#374151")
    pct := 100 * float64(entry.value) / float64(total)
    dc.DrawString(fmt.Sprintf("%s (%.1f%%)", truncate(entry.label, 22), pct), 548, ly+14)

    angle += sweep
  }

  return s.save(dc, filename)
}

func (s *chartService) save(dc *gg.Context, filename string) (string, error) {
  path := filepath.Join(s.dir, filename)
  f, err := os.Create(path)
  if err != nil {
    return "", fmt.Errorf("create chart file: %w", err)
  }
  defer f.Close()
  if err := dc.EncodePNG(f); err != nil {
    return "", fmt.Errorf("encode chart: %w", err)
  }
  s.log.Debug("Chart written", "path", path)
  return path, nil
}
