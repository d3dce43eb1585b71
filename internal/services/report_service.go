package services

import (
  "context"
  "encoding/json"
  "errors"
  "fmt"
  "html"
  "os"
  "path/filepath"
  "regexp"
  "sort"
  "strings"
  "time"

  docx "github.com/fumiama/go-docx"
  "github.com/google/uuid"
  "github.com/jung-kurt/gofpdf"
  "golang.org/x/sync/errgroup"
  "gorm.io/datatypes"

  "github.com/nexalyze/nexalyze-backend/internal/logger"
  "github.com/nexalyze/nexalyze-backend/internal/repos"
  "github.com/nexalyze/nexalyze-backend/internal/types"
)

var (
  ErrEmptyTopic       = errors.New("topic is required")
  ErrInvalidFilename  = errors.New("invalid filename")
  ErrReportNotFound   = errors.New("report not found")
)

const (
  reportMaxAttempts     = 3
  reportRetryDelay      = 30 * time.Second
  reportStaleProcessing = 5 * time.Minute
  reportPollInterval    = 1 * time.Second
  reportHeartbeatEvery  = 15 * time.Second
  reportCleanupEvery    = 1 * time.Hour
)

type ReportGenerationService interface {
  // Enqueue validates input and creates a pending task. Nothing is persisted
  // when validation fails.
  Enqueue(ctx context.Context, topic, reportType, format string) (*types.ReportTask, error)
  Task(ctx context.Context, id uuid.UUID) (*types.ReportTask, error)
  List(ctx context.Context, limit int) ([]*types.ReportTask, error)

  // ResolveReportFile maps a bare filename onto a file inside the reports
  // directory, rejecting anything that could escape it.
  ResolveReportFile(filename string) (string, error)

  StartWorker(ctx context.Context)
  StartCleanup(ctx context.Context)
  CleanupNow(ctx context.Context) (tasksDeleted int64, filesDeleted int, err error)
}

type reportService struct {
  log      *logger.Logger
  taskRepo repos.ReportTaskRepo
  data     CompanyDataService
  research ResearchService
  gen      TextGenerator
  charts   ChartService

  reportsDir         string
  sectionConcurrency int
  taskRetention      time.Duration
  fileRetention      time.Duration
}

func NewReportGenerationService(
  baseLog *logger.Logger,
  taskRepo repos.ReportTaskRepo,
  data CompanyDataService,
  research ResearchService,
  gen TextGenerator,
  charts ChartService,
  reportsDir string,
  sectionConcurrency int,
  taskRetention time.Duration,
  reportCleanupDays int,
) (ReportGenerationService, error) {
  if err := os.MkdirAll(reportsDir, 0o755); err != nil {
    return nil, fmt.Errorf("create reports dir: %w", err)
  }
  if sectionConcurrency <= 0 {
    sectionConcurrency = 5
  }
  if taskRetention <= 0 {
    taskRetention = 24 * time.Hour
  }
  if reportCleanupDays <= 0 {
    reportCleanupDays = 7
  }
  return &reportService{
    log:                baseLog.With("service", "ReportGenerationService"),
    taskRepo:           taskRepo,
    data:               data,
    research:           research,
    gen:                gen,
    charts:             charts,
    reportsDir:         reportsDir,
    sectionConcurrency: sectionConcurrency,
    taskRetention:      taskRetention,
    fileRetention:      time.Duration(reportCleanupDays) * 24 * time.Hour,
  }, nil
}

func (s *reportService) Enqueue(ctx context.Context, topic, reportType, format string) (*types.ReportTask, error) {
  topic = strings.TrimSpace(topic)
  if topic == "" {
    return nil, ErrEmptyTopic
  }
  reportType = strings.TrimSpace(strings.ToLower(reportType))
  if reportType == "" {
    reportType = "comprehensive"
  }
  format = strings.TrimSpace(strings.ToLower(format))
  switch format {
  case "":
    format = "pdf"
  case "pdf", "docx":
  default:
    return nil, fmt.Errorf("unsupported format %q (want pdf or docx)", format)
  }

  task := &types.ReportTask{
    ID:         uuid.New(),
    Topic:      topic,
    ReportType: reportType,
    Format:     format,
    Status:     types.ReportTaskStatusPending,
    Progress:   0,
    Message:    "queued",
  }
  created, err := s.taskRepo.Create(ctx, nil, []*types.ReportTask{task})
  if err != nil {
    return nil, fmt.Errorf("create report task: %w", err)
  }
  s.log.Info("Report task queued", "task_id", task.ID, "topic", topic, "format", format)
  return created[0], nil
}

func (s *reportService) Task(ctx context.Context, id uuid.UUID) (*types.ReportTask, error) {
  return s.taskRepo.GetByID(ctx, nil, id)
}

func (s *reportService) List(ctx context.Context, limit int) ([]*types.ReportTask, error) {
  return s.taskRepo.List(ctx, nil, limit)
}

func (s *reportService) ResolveReportFile(filename string) (string, error) {
  if filename == "" ||
    strings.Contains(filename, "..") ||
    strings.ContainsAny(filename, "/\\") {
    return "", ErrInvalidFilename
  }
  ext := strings.ToLower(filepath.Ext(filename))
  if ext != ".pdf" && ext != ".docx" {
    return "", ErrInvalidFilename
  }
  path := filepath.Join(s.reportsDir, filename)
  if _, err := os.Stat(path); err != nil {
    if os.IsNotExist(err) {
      return "", ErrReportNotFound
    }
    return "", err
  }
  return path, nil
}

// StartWorker polls for runnable tasks and processes them one at a time.
// Section-level fan-out happens inside a task, not across tasks.
func (s *reportService) StartWorker(ctx context.Context) {
  go func() {
    ticker := time.NewTicker(reportPollInterval)
    defer ticker.Stop()
    s.log.Info("Report worker started")
    for {
      select {
      case <-ctx.Done():
        s.log.Info("Report worker stopping")
        return
      case <-ticker.C:
        task, err := s.taskRepo.ClaimNextRunnable(ctx, nil, reportMaxAttempts, reportRetryDelay, reportStaleProcessing)
        if err != nil {
          s.log.Error("Claim failed", "error", err)
          continue
        }
        if task == nil {
          continue
        }
        s.processTask(ctx, task)
      }
    }
  }()
}

func (s *reportService) StartCleanup(ctx context.Context) {
  go func() {
    ticker := time.NewTicker(reportCleanupEvery)
    defer ticker.Stop()
    for {
      select {
      case <-ctx.Done():
        return
      case <-ticker.C:
        if _, _, err := s.CleanupNow(ctx); err != nil {
          s.log.Error("Cleanup pass failed", "error", err)
        }
      }
    }
  }()
}

func (s *reportService) CleanupNow(ctx context.Context) (int64, int, error) {
  tasksDeleted, err := s.taskRepo.DeleteOlderThan(ctx, nil, time.Now().Add(-s.taskRetention))
  if err != nil {
    return 0, 0, fmt.Errorf("delete old tasks: %w", err)
  }

  filesDeleted := 0
  cutoff := time.Now().Add(-s.fileRetention)
  entries, err := os.ReadDir(s.reportsDir)
  if err != nil {
    return tasksDeleted, 0, fmt.Errorf("read reports dir: %w", err)
  }
  for _, entry := range entries {
    if entry.IsDir() {
      continue
    }
    info, err := entry.Info()
    if err != nil {
      continue
    }
    if info.ModTime().After(cutoff) {
      continue
    }
    if err := os.Remove(filepath.Join(s.reportsDir, entry.Name())); err != nil {
      s.log.Warn("Failed to remove old report", "file", entry.Name(), "error", err)
      continue
    }
    filesDeleted++
  }
  if tasksDeleted > 0 || filesDeleted > 0 {
    s.log.Info("Cleanup pass done", "tasks_deleted", tasksDeleted, "files_deleted", filesDeleted)
  }
  return tasksDeleted, filesDeleted, nil
}

func (s *reportService) processTask(ctx context.Context, task *types.ReportTask) {
  log := s.log.With("task_id", task.ID, "topic", task.Topic)
  log.Info("Processing report task", "attempt", task.Attempts+1)

  stopHeartbeat := make(chan struct{})
  go func() {
    ticker := time.NewTicker(reportHeartbeatEvery)
    defer ticker.Stop()
    for {
      select {
      case <-stopHeartbeat:
        return
      case <-ticker.C:
        if err := s.taskRepo.Heartbeat(ctx, nil, task.ID); err != nil {
          log.Warn("Heartbeat failed", "error", err)
        }
      }
    }
  }()
  defer close(stopHeartbeat)

  progress := func(pct int, message string) {
    if err := s.taskRepo.UpdateFields(ctx, nil, task.ID, map[string]interface{}{
      "progress": pct,
      "message":  message,
    }); err != nil {
      log.Warn("Progress update failed", "error", err)
    }
  }
  // Failed is terminal; a task with attempts left is parked back as pending so the
  // claimer can pick it up after the retry delay without regressing a terminal status.
  fail := func(cause error) {
    log.Error("Report task failed", "error", cause)
    now := time.Now()
    updates := map[string]interface{}{
      "error":         cause.Error(),
      "last_error_at": now,
    }
    if task.Attempts+1 < reportMaxAttempts {
      updates["status"] = types.ReportTaskStatusPending
      updates["message"] = "report generation failed, retrying"
    } else {
      updates["status"] = types.ReportTaskStatusFailed
      updates["message"] = "report generation failed"
    }
    if err := s.taskRepo.UpdateFields(ctx, nil, task.ID, updates); err != nil {
      log.Error("Failed to record task failure", "error", err)
    }
  }

  result, err := s.generate(ctx, task, progress)
  if err != nil {
    fail(err)
    return
  }

  payload, err := json.Marshal(result)
  if err != nil {
    fail(fmt.Errorf("encode result: %w", err))
    return
  }
  now := time.Now()
  if err := s.taskRepo.UpdateFields(ctx, nil, task.ID, map[string]interface{}{
    "status":       types.ReportTaskStatusCompleted,
    "progress":     100,
    "message":      "report ready",
    "result":       datatypes.JSON(payload),
    "completed_at": now,
  }); err != nil {
    log.Error("Failed to mark task completed", "error", err)
    return
  }
  log.Info("Report task completed", "filename", result.ReportFilename)
}

type reportOutline struct {
  Title    string           `json:"title"`
  Summary  string           `json:"summary"`
  Sections []outlineSection `json:"sections"`
}

type outlineSection struct {
  Heading string   `json:"heading"`
  Focus   []string `json:"focus_elements"`
  Notes   string   `json:"notes"`
}

type reportSection struct {
  Heading string
  HTML    string
}

func (s *reportService) generate(ctx context.Context, task *types.ReportTask, progress func(int, string)) (*types.ReportResult, error) {
  progress(5, "building report outline")
  outline := s.buildOutline(ctx, task)

  progress(15, "collecting company data")
  dataCtx := s.collectData(ctx, task.Topic)

  progress(25, "generating sections")
  sections, err := s.generateSections(ctx, task, outline, dataCtx)
  if err != nil {
    return nil, err
  }

  progress(70, "rendering charts")
  chartPaths := s.renderCharts(task, dataCtx)

  progress(85, "assembling document")
  filename := fmt.Sprintf("report_%s_%d.%s", slugify(task.Topic), time.Now().Unix(), task.Format)
  path := filepath.Join(s.reportsDir, filename)

  switch task.Format {
  case "docx":
    err = writeDOCXReport(path, outline, sections)
  default:
    err = writePDFReport(path, outline, sections, chartPaths)
  }
  if err != nil {
    return nil, fmt.Errorf("assemble %s: %w", task.Format, err)
  }

  return &types.ReportResult{
    ReportFilename:    filename,
    ReportPath:        path,
    SectionsGenerated: len(sections),
    ChartsGenerated:   len(chartPaths),
  }, nil
}

var jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

func (s *reportService) buildOutline(ctx context.Context, task *types.ReportTask) *reportOutline {
  fallback := defaultOutline(task.Topic, task.ReportType)
  if s.gen == nil {
    return fallback
  }

  prompt := fmt.Sprintf(`You are planning a %s competitive intelligence report about "%s".

Return ONLY a JSON object with this exact shape, no markdown fences, no commentary:
{
  "title": "report title",
  "summary": "one paragraph describing the report",
  "sections": [
    {"heading": "section heading", "focus_elements": ["thing to cover"], "notes": "guidance for the writer"}
  ]
}

Produce 4 to 7 sections appropriate for the report type.`, task.ReportType, task.Topic)

  raw, err := s.gen.GenerateText(ctx, prompt, 0.2)
  if err != nil {
    s.log.Warn("Outline generation failed, using default", "task_id", task.ID, "error", err)
    return fallback
  }
  blob := jsonObjectPattern.FindString(raw)
  if blob == "" {
    s.log.Warn("No JSON object in outline response, using default", "task_id", task.ID)
    return fallback
  }
  var outline reportOutline
  if err := json.Unmarshal([]byte(blob), &outline); err != nil || len(outline.Sections) == 0 {
    s.log.Warn("Outline parse failed, using default", "task_id", task.ID, "error", err)
    return fallback
  }
  if outline.Title == "" {
    outline.Title = fallback.Title
  }
  return &outline
}

func defaultOutline(topic, reportType string) *reportOutline {
  title := fmt.Sprintf("%s: %s Report", topic, strings.Title(strings.ReplaceAll(reportType, "_", " ")))
  return &reportOutline{
    Title:   title,
    Summary: fmt.Sprintf("A %s analysis of %s covering market position, competitors, and outlook.", reportType, topic),
    Sections: []outlineSection{
      {Heading: "Executive Summary", Notes: "Key findings at a glance."},
      {Heading: "Company Overview", Notes: "What the company does and where it operates."},
      {Heading: "Market Landscape", Notes: "Industry size, trends, and dynamics."},
      {Heading: "Competitive Analysis", Notes: "Main competitors and differentiation."},
      {Heading: "Key Insights and Outlook", Notes: "Strategic takeaways and forward view."},
    },
  }
}

// reportDataContext holds everything gathered up front so section writers do
// not hit the database concurrently.
type reportDataContext struct {
  companies []*types.Company
  analysis  *CompanyAnalysis
  stats     *CompanyStats
}

func (s *reportService) collectData(ctx context.Context, topic string) *reportDataContext {
  dataCtx := &reportDataContext{}
  if s.data == nil {
    return dataCtx
  }

  companies, err := s.data.SearchCompanies(ctx, topic, 10, types.CompanyFilters{})
  if err != nil {
    s.log.Warn("Company search failed for report", "topic", topic, "error", err)
  } else {
    dataCtx.companies = companies
  }

  if s.research != nil {
    analysis, err := s.research.AnalyzeCompany(ctx, topic, true)
    if err != nil {
      s.log.Warn("Analysis failed for report", "topic", topic, "error", err)
    } else {
      dataCtx.analysis = analysis
    }
  }

  stats, err := s.data.Stats(ctx)
  if err != nil {
    s.log.Warn("Stats failed for report", "topic", topic, "error", err)
  } else {
    dataCtx.stats = stats
  }
  return dataCtx
}

func (s *reportService) generateSections(ctx context.Context, task *types.ReportTask, outline *reportOutline, dataCtx *reportDataContext) ([]reportSection, error) {
  sections := make([]reportSection, len(outline.Sections))

  g, gctx := errgroup.WithContext(ctx)
  g.SetLimit(s.sectionConcurrency)

  for i, spec := range outline.Sections {
    g.Go(func() error {
      content, err := s.generateSection(gctx, task, outline, spec, dataCtx)
      if err != nil {
        // One retry, then a placeholder section so the document still ships.
        content, err = s.generateSection(gctx, task, outline, spec, dataCtx)
        if err != nil {
          s.log.Warn("Section failed twice", "task_id", task.ID, "heading", spec.Heading, "error", err)
          content = errorSection(spec.Heading)
        }
      }
      sections[i] = reportSection{Heading: spec.Heading, HTML: content}
      return nil
    })
  }
  if err := g.Wait(); err != nil {
    return nil, err
  }
  return sections, nil
}

func (s *reportService) generateSection(ctx context.Context, task *types.ReportTask, outline *reportOutline, spec outlineSection, dataCtx *reportDataContext) (string, error) {
  if s.gen == nil {
    return "", fmt.Errorf("no text generator configured")
  }

  var b strings.Builder
  fmt.Fprintf(&b, "Write the %q section of a %s report titled %q about %q.\n\n", spec.Heading, task.ReportType, outline.Title, task.Topic)
  if len(spec.Focus) > 0 {
    fmt.Fprintf(&b, "Cover: %s.\n", strings.Join(spec.Focus, "; "))
  }
  if spec.Notes != "" {
    fmt.Fprintf(&b, "Guidance: %s\n", spec.Notes)
  }
  if facts := sectionFacts(spec.Heading, dataCtx); facts != "" {
    fmt.Fprintf(&b, "\nUse these facts where relevant:\n%s\n", facts)
  }
  b.WriteString(`
Output rules:
- Return ONLY HTML wrapped in a single <section> element.
- Start with an <h2> matching the section heading.
- Use <p>, <ul>, <li>, <strong> only.
- 2 to 4 paragraphs, factual and specific. No markdown, no commentary.`)

  raw, err := s.gen.GenerateText(ctx, b.String(), 0.4)
  if err != nil {
    return "", err
  }
  raw = strings.TrimSpace(raw)
  if idx := strings.Index(raw, "<section"); idx >= 0 {
    if end := strings.LastIndex(raw, "</section>"); end > idx {
      return raw[idx : end+len("</section>")], nil
    }
  }
  // Model skipped the wrapper; keep the content anyway.
  return fmt.Sprintf("<section><h2>%s</h2>%s</section>", html.EscapeString(spec.Heading), raw), nil
}

// sectionFacts picks data for a section by heading keywords, mirroring how
// analysts would scope each chapter.
func sectionFacts(heading string, dataCtx *reportDataContext) string {
  lower := strings.ToLower(heading)
  var b strings.Builder

  switch {
  case strings.Contains(lower, "competit"):
    if dataCtx.analysis != nil && len(dataCtx.analysis.Competitors) > 0 {
      b.WriteString("Known competitors:\n")
      for _, competitor := range dataCtx.analysis.Competitors {
        fmt.Fprintf(&b, "- %s (%s): %s\n", competitor.Name, orNA(competitor.Industry), truncate(orNA(competitor.Description), 120))
      }
    }
  case strings.Contains(lower, "market") || strings.Contains(lower, "industry") || strings.Contains(lower, "landscape"):
    if dataCtx.stats != nil {
      fmt.Fprintf(&b, "Tracked companies in database: %d\n", dataCtx.stats.TotalCompanies)
      if len(dataCtx.stats.TopIndustries) > 0 {
        b.WriteString("Top industries by company count:\n")
        for _, entry := range sortedInt64Entries(dataCtx.stats.TopIndustries, 5) {
          fmt.Fprintf(&b, "- %s: %d\n", entry.label, entry.value)
        }
      }
    }
  default:
    if dataCtx.analysis != nil && dataCtx.analysis.Company != nil {
      company := dataCtx.analysis.Company
      fmt.Fprintf(&b, "Subject company: %s\n- Industry: %s\n- Location: %s\n- Description: %s\n",
        company.Name, orNA(company.Industry), orNA(company.Location), orNA(company.Description))
      if company.Funding != "" {
        fmt.Fprintf(&b, "- Funding: %s\n", company.Funding)
      }
    } else if len(dataCtx.companies) > 0 {
      b.WriteString("Related companies:\n")
      for i, company := range dataCtx.companies {
        if i >= 5 {
          break
        }
        fmt.Fprintf(&b, "- %s (%s): %s\n", company.Name, orNA(company.Industry), truncate(orNA(company.Description), 120))
      }
    }
  }
  return b.String()
}

func errorSection(heading string) string {
  return fmt.Sprintf("<section><h2>%s</h2><p>This section could not be generated. The rest of the report is unaffected.</p></section>", html.EscapeString(heading))
}

func (s *reportService) renderCharts(task *types.ReportTask, dataCtx *reportDataContext) []string {
  if s.charts == nil || dataCtx.stats == nil {
    return nil
  }
  var paths []string
  stamp := time.Now().Unix()

  if len(dataCtx.stats.TopIndustries) > 0 {
    path, err := s.charts.BarChart(
      "Companies by Industry",
      toIntMap(dataCtx.stats.TopIndustries),
      fmt.Sprintf("industries_%s_%d.png", slugify(task.Topic), stamp),
    )
    if err != nil {
      s.log.Warn("Industry chart failed", "task_id", task.ID, "error", err)
    } else {
      paths = append(paths, path)
    }
  }
  if len(dataCtx.stats.TopLocations) > 0 {
    path, err := s.charts.PieChart(
      "Companies by Location",
      toIntMap(dataCtx.stats.TopLocations),
      fmt.Sprintf("locations_%s_%d.png", slugify(task.Topic), stamp),
    )
    if err != nil {
      s.log.Warn("Location chart failed", "task_id", task.ID, "error", err)
    } else {
      paths = append(paths, path)
    }
  }
  return paths
}

func writePDFReport(path string, outline *reportOutline, sections []reportSection, chartPaths []string) error {
  pdf := gofpdf.New("P", "mm", "A4", "")
  pdf.SetAutoPageBreak(true, 20)

  pdf.AddPage()
  pdf.SetFont("Helvetica", "B", 22)
  pdf.MultiCell(0, 10, outline.Title, "", "C", false)
  pdf.Ln(6)
  if outline.Summary != "" {
    pdf.SetFont("Helvetica", "I", 11)
    pdf.MultiCell(0, 6, outline.Summary, "", "L", false)
    pdf.Ln(4)
  }
  pdf.SetFont("Helvetica", "", 9)
  pdf.MultiCell(0, 5, "Generated "+time.Now().UTC().Format("2006-01-02 15:04 UTC"), "", "C", false)

  for _, section := range sections {
    pdf.AddPage()
    pdf.SetFont("Helvetica", "B", 15)
    pdf.MultiCell(0, 8, section.Heading, "", "L", false)
    pdf.Ln(2)
    pdf.SetFont("Helvetica", "", 11)
    for _, para := range htmlToParagraphs(section.HTML, section.Heading) {
      pdf.MultiCell(0, 6, para, "", "L", false)
      pdf.Ln(2)
    }
  }

  if len(chartPaths) > 0 {
    pdf.AddPage()
    pdf.SetFont("Helvetica", "B", 15)
    pdf.MultiCell(0, 8, "Data Appendix", "", "L", false)
    for _, chartPath := range chartPaths {
      pdf.Ln(4)
      pdf.ImageOptions(chartPath, 15, pdf.GetY(), 180, 0, true, gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")
    }
  }

  return pdf.OutputFileAndClose(path)
}

func writeDOCXReport(path string, outline *reportOutline, sections []reportSection) error {
  doc := docx.New().WithDefaultTheme()

  doc.AddParagraph().AddText(outline.Title).Size("36").Bold()
  if outline.Summary != "" {
    doc.AddParagraph().AddText(outline.Summary).Italic()
  }
  doc.AddParagraph().AddText("Generated " + time.Now().UTC().Format("2006-01-02 15:04 UTC")).Size("18")

  for _, section := range sections {
    doc.AddParagraph()
    doc.AddParagraph().AddText(section.Heading).Size("28").Bold()
    for _, para := range htmlToParagraphs(section.HTML, section.Heading) {
      doc.AddParagraph().AddText(para)
    }
  }

  f, err := os.Create(path)
  if err != nil {
    return err
  }
  defer f.Close()
  _, err = doc.WriteTo(f)
  return err
}

var (
  htmlBlockPattern = regexp.MustCompile(`(?i)</(p|li|h[1-6]|section)>`)
  htmlTagPattern   = regexp.MustCompile(`<[^>]*>`)
)

// htmlToParagraphs flattens section HTML to plain text paragraphs, dropping
// the leading heading since the document renders it separately.
func htmlToParagraphs(sectionHTML, heading string) []string {
  normalized := htmlBlockPattern.ReplaceAllString(sectionHTML, "\n")
  normalized = htmlTagPattern.ReplaceAllString(normalized, "")
  normalized = html.UnescapeString(normalized)

  var paras []string
  for _, line := range strings.Split(normalized, "\n") {
    line = strings.TrimSpace(line)
    if line == "" || strings.EqualFold(line, heading) {
      continue
    }
    paras = append(paras, line)
  }
  return paras
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(s string) string {
  slug := slugPattern.ReplaceAllString(strings.ToLower(s), "_")
  slug = strings.Trim(slug, "_")
  if len(slug) > 40 {
    slug = slug[:40]
  }
  if slug == "" {
    slug = "report"
  }
  return slug
}

func toIntMap(in map[string]int64) map[string]int {
  out := make(map[string]int, len(in))
  for k, v := range in {
    out[k] = int(v)
  }
  return out
}

func sortedInt64Entries(data map[string]int64, max int) []struct {
  label string
  value int64
} {
  type kv = struct {
    label string
    value int64
  }
  entries := make([]kv, 0, len(data))
  for label, value := range data {
    entries = append(entries, kv{label, value})
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
