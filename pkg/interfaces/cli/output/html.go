package output

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/vsinha/costing/pkg/application/dto"
	"github.com/vsinha/costing/pkg/domain/entities"
)

//go:embed templates/*.html
var templateFS embed.FS

// ReportRow is one flattened line of the HTML breakdown table
type ReportRow struct {
	Indent         template.CSS
	SKU            string
	Name           string
	Quantity       string
	UnitCost       string
	ExtendedCost   string
	Source         string
	IsOverhead     bool
	HasEstimate    bool
	EstimateReason string
}

// TemplateData contains all data for rendering the COGS report
type TemplateData struct {
	*dto.CogsResult
	Rows        []ReportRow
	AsOf        string
	GeneratedAt string
}

var now = time.Now

// CogsHTML renders a self-contained HTML COGS report
func CogsHTML(w io.Writer, r *dto.CogsResult) error {
	tmpl, err := template.ParseFS(templateFS, "templates/cogs_report.html")
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	data := &TemplateData{
		CogsResult:  r,
		Rows:        reportRows(r.Breakdown),
		AsOf:        "current",
		GeneratedAt: now().Format("2006-01-02 15:04:05"),
	}
	if r.AsOf != nil {
		data.AsOf = r.AsOf.Format(dateLayout)
	}

	if err := tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}
	return nil
}

func reportRows(root *entities.CostNode) []ReportRow {
	var rows []ReportRow
	root.Walk(func(n *entities.CostNode) {
		rows = append(rows, ReportRow{
			Indent:         template.CSS(fmt.Sprintf("padding-left: %dem", 1+2*n.Level)),
			SKU:            n.SKU,
			Name:           n.Name,
			Quantity:       n.QuantityPerParent.String(),
			UnitCost:       n.UnitCost.StringFixed(2),
			ExtendedCost:   n.ExtendedCost.StringFixed(2),
			Source:         strings.ToLower(n.CostSource.String()),
			IsOverhead:     n.IsOverhead,
			HasEstimate:    n.HasEstimate,
			EstimateReason: n.EstimateReason,
		})
	})
	return rows
}
