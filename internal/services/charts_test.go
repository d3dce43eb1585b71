package services

import (
  "bytes"
  "os"
  "testing"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func TestBarChart_WritesPNG(t *testing.T) {
  svc, err := NewChartService(testLogger(t), t.TempDir())
  if err != nil {
    t.Fatalf("init chart service: %v", err)
  }

  path, err := svc.BarChart("Companies by Industry", map[string]int{"AI": 12, "FinTech": 8, "SaaS": 5}, "bar.png")
  if err != nil {
    t.Fatalf("bar chart: %v", err)
  }
  raw, err := os.ReadFile(path)
  if err != nil {
    t.Fatalf("read chart: %v", err)
  }
  if !bytes.HasPrefix(raw, pngMagic) {
    t.Fatalf("expected PNG output, got prefix %v", raw[:4])
  }
}

func TestPieChart_WritesPNG(t *testing.T) {
  svc, err := NewChartService(testLogger(t), t.TempDir())
  if err != nil {
    t.Fatalf("init chart service: %v", err)
  }

  path, err := svc.PieChart("Companies by Location", map[string]int{"SF": 10, "NYC": 6}, "pie.png")
  if err != nil {
    t.Fatalf("pie chart: %v", err)
  }
  raw, err := os.ReadFile(path)
  if err != nil {
    t.Fatalf("read chart: %v", err)
  }
  if !bytes.HasPrefix(raw, pngMagic) {
    t.Fatalf("expected PNG output, got prefix %v", raw[:4])
  }
}

func TestCharts_RejectEmptyData(t *testing.T) {
  svc, err := NewChartService(testLogger(t), t.TempDir())
  if err != nil {
    t.Fatalf("init chart service: %v", err)
  }
  if _, err := svc.BarChart("empty", map[string]int{}, "x.png"); err == nil {
    t.Fatalf("expected error for empty bar data")
  }
  if _, err := svc.PieChart("empty", map[string]int{"zeroed": 0}, "y.png"); err == nil {
    t.Fatalf("expected error for all-zero pie data")
  }
}

func TestSortedEntries_OrdersAndCaps(t *testing.T) {
  entries := sortedEntries(map[string]int{"a": 1, "b": 5, "c": 3, "d": 5}, 3)
  if len(entries) != 3 {
    t.Fatalf("expected cap at 3, got %d", len(entries))
  }
  if entries[0].label != "b" || entries[1].label != "d" {
    t.Fatalf("expected value desc then label asc, got %+v", entries)
  }
}
