package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/sandeepkv93/event-credential-service/internal/domain"
	"github.com/sandeepkv93/event-credential-service/internal/observability"
	"github.com/sandeepkv93/event-credential-service/internal/scancode"
)

const (
	DefaultFileName = "CTF_Certification_IDs.pdf"
	DefaultTitle    = "CEG Tech Forum - Generated QR Codes"
	DefaultIssuer   = "CEG Tech Forum | College of Engineering, Guindy"

	EntriesPerPage = 5
)

// Page geometry in millimetres on A4 portrait.
const (
	pageCenterX   = 105.0
	marginLeft    = 10.0
	marginRight   = 200.0
	headerY       = 15.0
	headerRuleY   = 20.0
	firstEntryY   = 30.0
	entryPitch    = 50.0
	entryBoxWidth = 190.0
	entryBoxH     = 40.0
	qrX           = 15.0
	qrSize        = 30.0
	textX         = 50.0
	footerPageY   = 290.0
	footerIssuerY = 295.0
)

// ContentType is the media type of every rendered document.
const ContentType = "application/pdf"

var ErrNothingToRender = errors.New("document: no credentials to render")

// RenderError reports the credential whose code could not be produced.
// When it is returned no document is produced.
type RenderError struct {
	Index    int
	UniqueID string
	Err      error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render credential %d (%s): %v", e.Index, e.UniqueID, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

type Document struct {
	Name        string
	Bytes       []byte
	Pages       int
	PageEntries [][]string
	GeneratedAt time.Time
}

type RenderOptions struct {
	GeneratedAt time.Time
}

type Config struct {
	Title    string
	Issuer   string
	FileName string
}

type Renderer struct {
	encoder scancode.Encoder
	cfg     Config
}

func NewRenderer(encoder scancode.Encoder, cfg Config) *Renderer {
	if cfg.Title == "" {
		cfg.Title = DefaultTitle
	}
	if cfg.Issuer == "" {
		cfg.Issuer = DefaultIssuer
	}
	if cfg.FileName == "" {
		cfg.FileName = DefaultFileName
	}
	return &Renderer{encoder: encoder, cfg: cfg}
}

// Render lays the credentials out five per page with a header and footer on
// every page. Every code is encoded before any page is drawn.
func (r *Renderer) Render(ctx context.Context, creds []domain.Credential, opts RenderOptions) (_ *Document, err error) {
	ctx, span := otel.Tracer("document").Start(ctx, "document.render")
	defer span.End()
	start := time.Now()
	outcome := "success"
	pages := 0
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		observability.RecordDocumentRender(ctx, outcome, pages, time.Since(start))
	}()

	if len(creds) == 0 {
		outcome = "empty"
		return nil, ErrNothingToRender
	}
	span.SetAttributes(attribute.Int("document.entries", len(creds)))

	codes := make([][][]bool, len(creds))
	for i, c := range creds {
		matrix, encErr := r.encoder.Matrix(c.UniqueID)
		if encErr != nil {
			outcome = "encode_error"
			return nil, &RenderError{Index: i, UniqueID: c.UniqueID, Err: encErr}
		}
		codes[i] = matrix
	}

	generatedAt := opts.GeneratedAt
	if generatedAt.IsZero() {
		generatedAt = time.Now()
	}
	generatedAt = generatedAt.UTC()

	sh := newSheet(r.cfg, generatedAt)
	var layout [][]string
	for i, c := range creds {
		if i%EntriesPerPage == 0 {
			if i > 0 {
				sh.footer(len(layout))
			}
			sh.pdf.AddPage()
			sh.header()
			layout = append(layout, make([]string, 0, EntriesPerPage))
		}
		sh.entry(c, codes[i], i%EntriesPerPage)
		layout[len(layout)-1] = append(layout[len(layout)-1], c.UniqueID)
	}
	sh.footer(len(layout))

	var buf bytes.Buffer
	if outErr := sh.pdf.Output(&buf); outErr != nil {
		outcome = "output_error"
		return nil, fmt.Errorf("write pdf: %w", outErr)
	}
	pages = len(layout)
	span.SetAttributes(attribute.Int("document.pages", pages))
	return &Document{
		Name:        r.cfg.FileName,
		Bytes:       buf.Bytes(),
		Pages:       pages,
		PageEntries: layout,
		GeneratedAt: generatedAt,
	}, nil
}

// sheet owns one fpdf document for the duration of a single Render call.
type sheet struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
	cfg Config
	at  time.Time
}

func newSheet(cfg Config, at time.Time) *sheet {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCatalogSort(true)
	pdf.SetCreationDate(at)
	pdf.SetModificationDate(at)
	pdf.SetTitle(cfg.Title, true)
	pdf.SetAuthor(cfg.Issuer, true)
	return &sheet{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor(""), cfg: cfg, at: at}
}

func (s *sheet) header() {
	s.pdf.SetFont("Helvetica", "B", 16)
	s.centered(s.cfg.Title, pageCenterX, headerY)

	s.pdf.SetFont("Helvetica", "", 10)
	date := "Date: " + s.at.Format("2006-01-02")
	s.pdf.Text(marginRight-s.pdf.GetStringWidth(date), headerY, date)

	s.pdf.SetLineWidth(0.5)
	s.pdf.Line(marginLeft, headerRuleY, marginRight, headerRuleY)
}

func (s *sheet) entry(c domain.Credential, code [][]bool, slot int) {
	y := firstEntryY + float64(slot)*entryPitch

	s.pdf.SetLineWidth(0.2)
	s.pdf.Rect(marginLeft, y-10, entryBoxWidth, entryBoxH, "D")
	s.code(code, qrX, y)

	s.pdf.SetFont("Helvetica", "", 12)
	s.pdf.Text(textX, y+15, s.tr("Unique ID: "+c.UniqueID))

	if summary := c.Summary(); summary != "" {
		s.pdf.SetFont("Helvetica", "", 10)
		s.pdf.Text(textX, y+25, s.tr(summary))
	}
}

// code draws the module matrix as filled rectangles, one per horizontal run
// of dark modules. Vector output keeps the file free of image objects, whose
// order fpdf does not fix.
func (s *sheet) code(matrix [][]bool, x, y float64) {
	if len(matrix) == 0 {
		return
	}
	module := qrSize / float64(len(matrix))
	s.pdf.SetFillColor(0, 0, 0)
	for row, cells := range matrix {
		for col := 0; col < len(cells); {
			if !cells[col] {
				col++
				continue
			}
			run := col
			for run < len(cells) && cells[run] {
				run++
			}
			s.pdf.Rect(x+float64(col)*module, y+float64(row)*module, float64(run-col)*module, module, "F")
			col = run
		}
	}
}

func (s *sheet) footer(page int) {
	s.pdf.SetFont("Helvetica", "I", 10)
	s.centered(fmt.Sprintf("Page %d", page), pageCenterX, footerPageY)

	s.pdf.SetFont("Helvetica", "", 8)
	s.centered(s.cfg.Issuer, pageCenterX, footerIssuerY)
}

func (s *sheet) centered(text string, x, y float64) {
	text = s.tr(text)
	s.pdf.Text(x-s.pdf.GetStringWidth(text)/2, y, text)
}
