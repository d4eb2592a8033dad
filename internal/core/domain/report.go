package domain

import (
	"strings"
	"time"
)

// ValidationCategory groups validation warnings by the field they concern
type ValidationCategory string

const (
	CategoryFilename      ValidationCategory = "filename"
	CategoryInvoiceNumber ValidationCategory = "invoice_number"
	CategoryVendor        ValidationCategory = "vendor"
	CategoryInvoiceDate   ValidationCategory = "invoice_date"
	CategoryGrandTotal    ValidationCategory = "grand_total"
	CategoryTaxes         ValidationCategory = "taxes"
	CategoryFinalTotal    ValidationCategory = "final_total"
	CategoryTotals        ValidationCategory = "totals"
	CategoryPages         ValidationCategory = "pages"
	CategoryItems         ValidationCategory = "items"
)

// ValidationCategories lists every category in report order
var ValidationCategories = []ValidationCategory{
	CategoryFilename,
	CategoryInvoiceNumber,
	CategoryVendor,
	CategoryInvoiceDate,
	CategoryGrandTotal,
	CategoryTaxes,
	CategoryFinalTotal,
	CategoryTotals,
	CategoryPages,
	CategoryItems,
}

// ValidationReport lists the warnings raised for one invoice
type ValidationReport struct {
	IsValid     bool                            `json:"is_valid"`
	Warnings    []string                        `json:"warnings"`
	Categorized map[ValidationCategory][]string `json:"categorized_warnings"`
}

// NewValidationReport returns an empty, valid report with every category present
func NewValidationReport() *ValidationReport {
	r := &ValidationReport{
		IsValid:     true,
		Warnings:    []string{},
		Categorized: make(map[ValidationCategory][]string, len(ValidationCategories)),
	}
	for _, c := range ValidationCategories {
		r.Categorized[c] = []string{}
	}
	return r
}

// Add records a warning under category
func (r *ValidationReport) Add(category ValidationCategory, warning string) {
	r.Warnings = append(r.Warnings, warning)
	r.Categorized[category] = append(r.Categorized[category], warning)
	r.IsValid = false
}

// InvoiceReport pairs an invoice with its validation report
type InvoiceReport struct {
	Filename      string            `json:"filename"`
	InvoiceNumber string            `json:"invoice_number,omitempty"`
	Report        *ValidationReport `json:"report"`
}

// FlaggedInvoice is an invoice with at least one anomaly flag
type FlaggedInvoice struct {
	Invoice *Invoice `json:"invoice"`
	Flags   []string `json:"flags"`
}

// ExportFormat is a downloadable artifact format
type ExportFormat string

const (
	ExportCSV   ExportFormat = "csv"
	ExportExcel ExportFormat = "excel"
)

// ParseExportFormat maps a query value to a format
func ParseExportFormat(s string) (ExportFormat, error) {
	switch ExportFormat(strings.ToLower(strings.TrimSpace(s))) {
	case ExportCSV:
		return ExportCSV, nil
	case ExportExcel, "xlsx":
		return ExportExcel, nil
	}
	return "", ErrInvalidFormat
}

// Extension returns the file extension for the format
func (f ExportFormat) Extension() string {
	if f == ExportExcel {
		return "xlsx"
	}
	return "csv"
}

// ContentType returns the MIME type for the format
func (f ExportFormat) ContentType() string {
	if f == ExportExcel {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv"
}

// ArtifactName returns the download filename for a job's export
func (f ExportFormat) ArtifactName(jobID string) string {
	return jobID + "_invoices." + f.Extension()
}

// JobResult holds everything produced by a completed job
type JobResult struct {
	JobID           string                  `json:"job_id"`
	Invoices        []*Invoice              `json:"invoices"`
	Reports         []InvoiceReport         `json:"reports"`
	Anomalies       []FlaggedInvoice        `json:"anomalies"`
	Artifacts       map[ExportFormat]string `json:"artifacts"`
	TotalInvoices   int                     `json:"total_invoices"`
	FlaggedInvoices int                     `json:"flagged_invoices"`
	CompletedAt     time.Time               `json:"completed_at"`
}
