// Package report renders the consolidated analysis PDF shared after
// each full run.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/Xavi146570/team-specialist-bot/pkg/bot/analysis"
)

// Generator renders analysis snapshots into PDF files under OutputDir.
type Generator struct {
	OutputDir string
}

// NewGenerator creates a generator, ensuring the output directory
// exists.
func NewGenerator(dir string) (*Generator, error) {
	if dir == "" {
		dir = "reports"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create report dir: %w", err)
	}
	return &Generator{OutputDir: dir}, nil
}

// Consolidated renders one PDF covering every analyzed team and
// returns the file path.
func (g *Generator) Consolidated(analyses []*analysis.TeamAnalysis) (string, error) {
	if len(analyses) == 0 {
		return "", fmt.Errorf("render report: no analyses")
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)

	writeCover(pdf, analyses)
	writeMethodology(pdf)
	for _, a := range analyses {
		writeTeamPage(pdf, a)
	}

	name := fmt.Sprintf("specialist_report_%s.pdf", time.Now().UTC().Format("2006-01-02"))
	path := filepath.Join(g.OutputDir, name)
	if err := pdf.OutputFileAndClose(path); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}

func writeCover(pdf *fpdf.Fpdf, analyses []*analysis.TeamAnalysis) {
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 22)
	pdf.CellFormat(0, 14, "Team Specialist Report", "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(0, 8, time.Now().UTC().Format("02 January 2006"), "", 1, "C", false, 0, "")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 11)
	for _, a := range analyses {
		line := fmt.Sprintf("%s: %d matches (%s to %s)",
			a.TeamName, a.TotalMatches,
			a.RangeStart.Format("2006-01-02"), a.RangeEnd.Format("2006-01-02"))
		pdf.CellFormat(0, 7, line, "", 1, "C", false, 0, "")
	}
}

func writeMethodology(pdf *fpdf.Fpdf) {
	pdf.AddPage()
	sectionTitle(pdf, "Methodology")

	pdf.SetFont("Helvetica", "", 10)
	paragraphs := []string{
		"Minimum values are nearest-rank percentiles over the historical window, split by venue. A minimum at 80% confidence means the team reached at least that value in 80% of comparable matches.",
		"Stakes follow the Kelly Criterion, f = (b*p - q) / b with b the net decimal odds, capped at 25% of bankroll. Probabilities come from historical scenario frequencies, never projections.",
		"Pre-match triggers fire on opponent strength, recent form and schedule congestion. Live triggers fire between minutes 30 and 45 on half-time score patterns with sufficient historical sample.",
		"Entries are phased: 40% pre-match, 30% at 15-20 minutes if goalless, 30% at half-time when triggers stay active.",
	}
	for _, p := range paragraphs {
		pdf.MultiCell(0, 5.5, p, "", "L", false)
		pdf.Ln(2)
	}
}

func writeTeamPage(pdf *fpdf.Fpdf, a *analysis.TeamAnalysis) {
	pdf.AddPage()
	sectionTitle(pdf, a.TeamName)

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Window: %s to %s  |  %d matches",
		a.RangeStart.Format("2006-01-02"), a.RangeEnd.Format("2006-01-02"), a.TotalMatches),
		"", 1, "L", false, 0, "")
	pdf.Ln(4)

	writeVenueTable(pdf, "Home", a.Home)
	pdf.Ln(6)
	writeVenueTable(pdf, "Away", a.Away)

	if len(a.Patterns) > 0 {
		pdf.Ln(6)
		writePatternTable(pdf, a.Patterns)
	}
}

func writeVenueTable(pdf *fpdf.Fpdf, label string, v analysis.VenueStats) {
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 7, fmt.Sprintf("%s (%d matches)", label, v.Matches), "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	headers := []string{"Statistic", "Min 70%", "Min 80%", "Min 90%", "Sample"}
	widths := []float64{60, 28, 28, 28, 28}
	for i, h := range headers {
		pdf.CellFormat(widths[i], 6, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	rows := []struct {
		name string
		set  analysis.MinimumSet
	}{
		{"Team goals", v.TeamGoals},
		{"Total goals", v.TotalGoals},
		{"Half-time goals", v.HTGoals},
	}
	for _, r := range rows {
		pdf.CellFormat(widths[0], 6, r.name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 6, fmt.Sprintf("%d", r.set.Min70), "1", 0, "C", false, 0, "")
		pdf.CellFormat(widths[2], 6, fmt.Sprintf("%d", r.set.Min80), "1", 0, "C", false, 0, "")
		pdf.CellFormat(widths[3], 6, fmt.Sprintf("%d", r.set.Min90), "1", 0, "C", false, 0, "")
		sample := fmt.Sprintf("%d", r.set.SampleSize)
		if r.set.Degenerate {
			sample += " *"
		}
		pdf.CellFormat(widths[4], 6, sample, "1", 1, "C", false, 0, "")
	}

	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 6, fmt.Sprintf("Win %.0f%%  |  Clean sheet %.0f%%  |  BTTS %.0f%%  |  Over 2.5 %.0f%%",
		v.WinRate*100, v.CleanSheetRate*100, v.BTTSRate*100, v.Over25Rate*100),
		"", 1, "L", false, 0, "")
}

func writePatternTable(pdf *fpdf.Fpdf, patterns map[string]int) {
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 7, "Historical trigger patterns", "", 1, "L", false, 0, "")

	keys := make([]string, 0, len(patterns))
	for k := range patterns {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pdf.SetFont("Helvetica", "", 9)
	for _, k := range keys {
		pdf.CellFormat(100, 6, k, "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%d", patterns[k]), "1", 1, "C", false, 0, "")
	}
}

func sectionTitle(pdf *fpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, title, "", 1, "L", false, 0, "")
	pdf.SetDrawColor(120, 120, 120)
	x, y := pdf.GetXY()
	pdf.Line(x, y, 200, y)
	pdf.Ln(4)
}
