package domain

import (
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Supported MIME types for uploads and archive entries.
const (
	MIMEPDF  = "application/pdf"
	MIMEJPEG = "image/jpeg"
	MIMEPNG  = "image/png"
	MIMEZIP  = "application/zip"
)

// SupportedUploadTypes lists the MIME types accepted at submission.
var SupportedUploadTypes = []string{MIMEPDF, MIMEJPEG, MIMEPNG, MIMEZIP}

// IsSupportedUploadType reports whether mimeType may be submitted.
func IsSupportedUploadType(mimeType string) bool {
	base := baseType(mimeType)
	for _, t := range SupportedUploadTypes {
		if base == t {
			return true
		}
	}
	return false
}

// MIMEOctetStream is reported when content sniffing is inconclusive
const MIMEOctetStream = "application/octet-stream"

// DetectContentType classifies data by its content. The declared type and
// then the filename extension are consulted only when sniffing finds
// nothing. Only an exact match counts as supported: zip-based containers
// such as DOCX or JAR keep their own type and are not treated as a ZIP.
func DetectContentType(data []byte, declared, filename string) string {
	detected := mimetype.Detect(data)
	for _, t := range SupportedUploadTypes {
		if detected.Is(t) {
			return t
		}
	}
	if !detected.Is(MIMEOctetStream) {
		return detected.String()
	}
	if base := baseType(declared); base != "" && base != MIMEOctetStream {
		return base
	}
	if byExt := baseType(mime.TypeByExtension(strings.ToLower(filepath.Ext(filename)))); byExt != "" {
		return byExt
	}
	return MIMEOctetStream
}

func baseType(mimeType string) string {
	return strings.ToLower(strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0]))
}

// SourceFile is one uploaded file before normalization
type SourceFile struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"-"`
}

// Document is one invoice candidate: a single image or a single rendered PDF page
type Document struct {
	// Filename identifies the document, e.g. "scan.png" or "batch_page2"
	Filename string `json:"filename"`

	// Data is the raw image bytes
	Data []byte `json:"-"`

	// MIMEType is the detected type of Data
	MIMEType string `json:"mime_type"`

	// Page is the 1-based page number within the source file
	Page int `json:"page"`

	// PageCount is the number of pages of the source file
	PageCount int `json:"page_count"`
}

// IsMultipage returns true if the document came from a multi-page source
func (d *Document) IsMultipage() bool {
	return d.PageCount > 1
}

// Pages returns the page count, never less than one
func (d *Document) Pages() int {
	if d.PageCount < 1 {
		return 1
	}
	return d.PageCount
}

// Point is a pixel coordinate on a page
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Box is the four-corner polygon around a recognized word
type Box [4]Point

// NewBox builds a rectangular box from an origin and size.
func NewBox(x, y, w, h int) Box {
	return Box{{x, y}, {x + w, y}, {x + w, y + h}, {x, y + h}}
}

// OCRResult is the raw text recognition output for one document
type OCRResult struct {
	Text          string            `json:"text"`
	Words         []string          `json:"words"`
	Boxes         []Box             `json:"boxes"`
	Tables        [][][]string      `json:"tables,omitempty"`
	KeyValuePairs map[string]string `json:"key_value_pairs,omitempty"`
	IsMultipage   bool              `json:"is_multipage"`
	NumPages      int               `json:"num_pages"`
}

// Entity field names produced by structured extraction back ends.
const (
	EntityInvoiceID       = "invoice_id"
	EntitySupplierName    = "supplier_name"
	EntitySupplierAddress = "supplier_address"
	EntitySupplierCity    = "supplier_city"
	EntitySupplierState   = "supplier_state"
	EntitySupplierCountry = "supplier_country"
	EntitySupplierZip     = "supplier_zip"
	EntityInvoiceDate     = "invoice_date"
	EntityNetAmount       = "net_amount"
	EntityTotalTaxAmount  = "total_tax_amount"
	EntityTotalAmount     = "total_amount"
)

// Entities is the output of a structured document-understanding back end
type Entities struct {
	// Fields maps entity names (see Entity* constants) to their text
	Fields map[string]string `json:"fields"`

	// LineItems holds the raw text of each line_item entity
	LineItems []string `json:"line_items,omitempty"`

	// Tables are tables detected by the back end as rows of cells
	Tables [][][]string `json:"tables,omitempty"`
}

// Field returns the trimmed value of an entity field
func (e *Entities) Field(name string) string {
	if e == nil || e.Fields == nil {
		return ""
	}
	return strings.TrimSpace(e.Fields[name])
}

// IsEmpty returns true if nothing was extracted
func (e *Entities) IsEmpty() bool {
	if e == nil {
		return true
	}
	for _, v := range e.Fields {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return len(e.LineItems) == 0 && len(e.Tables) == 0
}

// Recognition bundles the vision output for one document
type Recognition struct {
	OCR      *OCRResult `json:"ocr"`
	Entities *Entities  `json:"entities,omitempty"`
}
