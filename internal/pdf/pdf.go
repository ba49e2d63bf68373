// Package pdf renders delivery notes as printable documents.
package pdf

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-pdf/fpdf"
)

const (
	lineHeight = 16.0
	dateLayout = "2006-01-02 15:04:05 MST"
)

// Party holds the client block printed on the note.
type Party struct {
	Name     string
	Lastname string
	Email    string
	Address  string
}

// Item is one printed line.
type Item struct {
	Type     string
	Name     string
	Quantity float64
}

// Document is everything printed for one delivery note.
type Document struct {
	NoteID             string
	ProjectName        string
	ProjectDescription string
	ProjectCreatedAt   time.Time
	Client             Party
	CreatedAt          time.Time
	Items              []Item
	// Signature holds the raw image bytes; nil means the note is unsigned.
	Signature []byte
}

// Renderer writes Documents as PDF.
type Renderer struct {
	// BoxSize bounds the signature image on both axes, in points.
	BoxSize  float64
	compress bool
}

func NewRenderer(boxSize float64) *Renderer {
	return &Renderer{BoxSize: boxSize, compress: true}
}

// Render writes doc to w.
func (r *Renderer) Render(w io.Writer, doc Document) error {
	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetCompression(r.compress)
	pdf.SetTitle("Delivery note "+doc.NoteID, true)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "", 12)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	line := func(format string, args ...interface{}) {
		pdf.MultiCell(0, lineHeight, tr(fmt.Sprintf(format, args...)), "", "L", false)
	}

	line("Delivery Note: %s", doc.NoteID)
	line("Project: %s", doc.ProjectName)
	line("Project Description: %s", doc.ProjectDescription)
	line("Project Created At: %s", doc.ProjectCreatedAt.Format(dateLayout))
	pdf.Ln(lineHeight)
	line("Client: %s %s", doc.Client.Name, doc.Client.Lastname)
	line("Client Email: %s", doc.Client.Email)
	line("Client Address: %s", doc.Client.Address)
	line("Created At: %s", doc.CreatedAt.Format(dateLayout))
	pdf.Ln(lineHeight)
	line("Delivery Note Data:")
	for _, item := range doc.Items {
		line("- %s: %s (%s)", item.Type, item.Name, strconv.FormatFloat(item.Quantity, 'f', -1, 64))
	}
	pdf.Ln(lineHeight)
	line("Signature:")

	if doc.Signature == nil {
		line("No signature")
	} else if err := r.placeSignature(pdf, doc.Signature); err != nil {
		return err
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return pdf.Output(w)
}

func (r *Renderer) placeSignature(pdf *fpdf.Fpdf, data []byte) error {
	imageType, err := fpdfImageType(data)
	if err != nil {
		return err
	}

	opts := fpdf.ImageOptions{ImageType: imageType}
	info := pdf.RegisterImageOptionsReader("signature", opts, bytes.NewReader(data))
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("decode signature: %w", err)
	}

	width, height := Fit(info.Width(), info.Height(), r.BoxSize)
	left, _, _, _ := pdf.GetMargins()
	pdf.ImageOptions("signature", left, pdf.GetY(), width, height, true, opts, 0, "")
	return nil
}

// Fit scales (w, h) to the largest size that fits a box x box square, keeping the aspect ratio.
func Fit(w, h, box float64) (float64, float64) {
	if w <= 0 || h <= 0 {
		return box, box
	}
	scale := box / w
	if s := box / h; s < scale {
		scale = s
	}
	return w * scale, h * scale
}

func fpdfImageType(data []byte) (string, error) {
	switch mimetype.Detect(data).String() {
	case "image/png":
		return "PNG", nil
	case "image/jpeg":
		return "JPG", nil
	case "image/gif":
		return "GIF", nil
	default:
		return "", fmt.Errorf("unsupported signature image type %s", mimetype.Detect(data).String())
	}
}
