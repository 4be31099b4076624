/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

// Package engine ties the parser, content-stream interpreter, font extractor
// and output assembler together into the single entry point collaborators
// call: ConvertPDF takes raw document bytes and a ConversionConfig and
// returns a finished OutputBundle or a classified error. The engine runs on
// a single cooperative thread per document and touches no shared mutable
// state, so two calls on disjoint inputs are safe to run concurrently.
package engine

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/windrose-labs/pdfrender/assemble"
	"github.com/windrose-labs/pdfrender/common"
	"github.com/windrose-labs/pdfrender/contentstream"
	"github.com/windrose-labs/pdfrender/extractor"
	"github.com/windrose-labs/pdfrender/fonts"
	"github.com/windrose-labs/pdfrender/internal/raster"
	"github.com/windrose-labs/pdfrender/model"
	"github.com/windrose-labs/pdfrender/safety"
)

// maxPagesPerCall caps how many pages a single ConvertPDF call processes,
// regardless of how wide a page_range is requested.
const maxPagesPerCall = 1000

// highRiskScore is the safety.Audit.RiskScore threshold at or above which
// the engine refuses to parse a document at all.
const highRiskScore = 80

// ConversionConfig collects the options ConvertPDF accepts. The zero value
// is not a usable config; build one with DefaultConfig and functional
// options.
//
// embed_javascript is a recognized option name collaborators may pass
// through a host-level config map, but it has no corresponding field or
// Option here: the engine never emits script tags, so the option is always
// effectively false and there is nothing for a setter to toggle.
type ConversionConfig struct {
	pageStart, pageEnd int
	zoom               float64
	dpi                float64
	correctVisibility  bool
	embedCSS           bool
	embedFont          bool
	embedImage         bool
	bgFormat           string
	timeout            time.Duration
	ownerPassword      string
	userPassword       string
	fallback           bool
}

// Option configures a ConversionConfig.
type Option func(*ConversionConfig)

// DefaultConfig returns the engine's default options: the whole document,
// no scaling, every asset inlined, no deadline, correct-text-visibility off.
func DefaultConfig() ConversionConfig {
	return ConversionConfig{
		pageStart:  1,
		pageEnd:    maxPagesPerCall,
		zoom:       1.0,
		embedCSS:   true,
		embedFont:  true,
		embedImage: true,
		bgFormat:   "png",
	}
}

// WithPageRange restricts conversion to the 1-based inclusive page range
// [start, end]. Both ends are clamped to the document's actual page count
// and to a 1000-page span at conversion time.
func WithPageRange(start, end int) Option {
	return func(c *ConversionConfig) { c.pageStart, c.pageEnd = start, end }
}

// WithZoom sets the multiplicative scale applied to each page's reported
// width and height. It does not affect the relative layout of text spans
// and images within a page.
func WithZoom(zoom float64) Option {
	return func(c *ConversionConfig) { c.zoom = zoom }
}

// WithDPI sets an effective-pixel scale of dpi/72, applied on top of zoom to
// each page's reported width and height, and used to resample synthesized
// raster images so they match the requested resolution rather than being
// left at native size and stretched by CSS. Zero (the default) leaves pixel
// units and image samples at the PDF's native 72 dpi.
func WithDPI(dpi float64) Option {
	return func(c *ConversionConfig) { c.dpi = dpi }
}

// WithCorrectTextVisibility enables the covered-text pass: characters whose
// four corners are all covered by later opaque paints are omitted.
func WithCorrectTextVisibility(enabled bool) Option {
	return func(c *ConversionConfig) { c.correctVisibility = enabled }
}

// WithEmbedAssets controls whether CSS, fonts and images are inlined into
// the HTML/CSS via data URIs (true, the default) or returned as separate
// byte blobs in the bundle for the caller to write out itself.
func WithEmbedAssets(css, font, image bool) Option {
	return func(c *ConversionConfig) { c.embedCSS, c.embedFont, c.embedImage = css, font, image }
}

// WithBackgroundFormat sets the reserved page-background image format
// ("png", "jpeg" or "svg"). The current engine only ever emits the detected
// fill-rectangle background color, so this has no visible effect yet.
func WithBackgroundFormat(format string) Option {
	return func(c *ConversionConfig) { c.bgFormat = format }
}

// WithTimeout sets the wall-clock deadline for the whole call. Zero (the
// default) means no deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *ConversionConfig) { c.timeout = d }
}

// WithPasswords supplies the owner and user passwords to try against a
// standard-security encrypted document.
func WithPasswords(owner, user string) Option {
	return func(c *ConversionConfig) { c.ownerPassword, c.userPassword = owner, user }
}

// WithFallback controls whether an unsupported filter or feature aborts the
// document (false, the default) or is replaced with an empty payload so
// conversion can continue (true).
func WithFallback(fallback bool) Option {
	return func(c *ConversionConfig) { c.fallback = fallback }
}

// NewConfig builds a ConversionConfig from DefaultConfig plus the given
// options, in order.
func NewConfig(opts ...Option) ConversionConfig {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// RenderedFont is a font (or font substitute) the bundle references,
// deduplicated by content hash.
type RenderedFont = fonts.RenderedFont

// RenderedPage describes one converted page's reported geometry, already
// scaled by the config's zoom and dpi.
type RenderedPage struct {
	Number        int
	WidthPx       float64
	HeightPx      float64
	SpanCount     int
	ImageCount    int
	BackgroundCSS string
}

// OutputBundle is the complete result of a conversion: the rendered HTML
// and CSS documents, the fonts referenced, and (when the corresponding
// embed_* option is false) the font and image bytes the caller must write
// out itself under the filenames referenced from the HTML/CSS.
type OutputBundle struct {
	Pages []RenderedPage
	Fonts []RenderedFont

	HTML []byte
	CSS  []byte

	// Images holds non-embedded image bytes keyed by content-addressed
	// filename, populated only when WithEmbedAssets's image flag is false.
	Images map[string][]byte
}

// EngineResult is ConvertPDF's return value: either a complete Bundle, or a
// classified Err. A caller must never see both a non-nil Bundle and a
// non-nil Err, matching the "never a partially populated bundle alongside
// success" rule.
type EngineResult struct {
	Bundle *OutputBundle
	Err    error
	Audit  safety.Audit
}

// ConvertPDF parses `data` as a PDF document and renders the configured page
// range to a self-contained HTML/CSS/font OutputBundle. It returns in
// bounded time when cfg carries a timeout: the deadline is checked at every
// page boundary, and a page already in progress always finishes before the
// call aborts, so partial pages are never emitted.
func ConvertPDF(data []byte, cfg ConversionConfig) EngineResult {
	audit := safety.RunAudit(data)
	if audit.RiskScore >= highRiskScore {
		return EngineResult{
			Err:   common.NewZipBombError(fmt.Sprintf("document failed preflight audit (risk score %d)", audit.RiskScore), float64(audit.RiskScore)/100),
			Audit: audit,
		}
	}
	if len(data) == 0 {
		return EngineResult{Err: common.NewError(common.KindParse, "empty input", nil), Audit: audit}
	}
	if !bytes.HasPrefix(bytes.TrimLeft(data, "\x00\r\n\t "), []byte("%PDF-1.")) {
		// Real-world PDFs sometimes carry leading junk before the header;
		// the reader's own scanner tolerates that. An input that still
		// doesn't contain a recognizable header anywhere near the front is
		// rejected here rather than spending a full parse attempt on it.
		if !bytes.Contains(data[:min(len(data), 2048)], []byte("%PDF-1.")) {
			return EngineResult{Err: common.NewError(common.KindParse, "missing PDF header", nil), Audit: audit}
		}
	}

	deadline := safety.NewDeadline(cfg.timeout)

	reader, err := model.NewPdfReader(bytes.NewReader(data))
	if err != nil {
		return EngineResult{Err: common.NewError(common.KindParse, "failed reading PDF structure", err), Audit: audit}
	}

	if reader.IsEncrypted() {
		ok, err := reader.Decrypt(cfg.ownerPassword, cfg.userPassword)
		if err != nil {
			return EngineResult{Err: common.NewError(common.KindUnsupported, "unsupported encryption", err), Audit: audit}
		}
		if !ok {
			return EngineResult{Err: common.NewError(common.KindParse, "document is encrypted and could not be decrypted", nil), Audit: audit}
		}
	}

	numPages, err := reader.GetNumPages()
	if err != nil {
		return EngineResult{Err: common.NewError(common.KindParse, "failed reading page tree", err), Audit: audit}
	}
	if numPages == 0 {
		return EngineResult{Err: common.NewError(common.KindParse, "document has no pages", nil), Audit: audit}
	}

	start, end := clampPageRange(cfg.pageStart, cfg.pageEnd, numPages)

	extractorPool := fonts.NewExtractor()
	asm := assemble.NewAssembler()
	bundle := &OutputBundle{Images: make(map[string][]byte)}

	pixelScale := cfg.zoom
	if cfg.dpi > 0 {
		pixelScale *= cfg.dpi / 72.0
	}
	if pixelScale <= 0 {
		pixelScale = 1.0
	}

	for pageNum := start; pageNum <= end; pageNum++ {
		if err := deadline.CheckErr(); err != nil {
			common.Log.Debug("deadline exceeded before page %d (remaining %s); %d pages already rendered discarded",
				pageNum, deadline.Remaining(), len(bundle.Pages))
			return EngineResult{Err: err, Audit: audit}
		}

		rendered, pageErr := renderPage(reader, pageNum, cfg, deadline, extractorPool)
		if pageErr != nil {
			if common.IsKind(pageErr, common.KindTimeout) {
				common.Log.Debug("deadline exceeded mid-page %d (remaining %s)", pageNum, deadline.Remaining())
				return EngineResult{Err: pageErr, Audit: audit}
			}
			if common.IsKind(pageErr, common.KindUnsupported) && cfg.fallback {
				common.Log.Debug("page %d: unsupported feature, continuing past it (fallback=true): %v", pageNum, pageErr)
				rendered = &pageResult{}
			} else {
				return EngineResult{Err: pageErr, Audit: audit}
			}
		}

		widthPx := rendered.width * pixelScale
		heightPx := rendered.height * pixelScale
		asm.AddPage(widthPx, heightPx, rendered.background, rendered.images, rendered.spans, cfg.embedImage)
		bundle.Pages = append(bundle.Pages, RenderedPage{
			Number:        pageNum,
			WidthPx:       widthPx,
			HeightPx:      heightPx,
			SpanCount:     len(rendered.spans),
			ImageCount:    len(rendered.images),
			BackgroundCSS: rendered.background,
		})
	}

	bundle.Fonts = dedupedFonts(extractorPool)
	sort.Slice(bundle.Fonts, func(i, j int) bool { return bundle.Fonts[i].Filename < bundle.Fonts[j].Filename })

	var fontFaces strings.Builder
	for _, rf := range bundle.Fonts {
		if rf.Data == nil {
			continue
		}
		fontFaces.WriteString(assemble.FontFace(familyFor(rf), rf.Filename, rf.Format, rf.Data, cfg.embedFont))
	}

	bundle.CSS = []byte(asm.CSS())
	bundle.HTML = []byte(assemble.HTML(asm.HTMLBody(), fontFaces.String(), asm.CSS(), cfg.embedCSS))
	if !cfg.embedImage {
		for name, data := range asm.Images() {
			bundle.Images[name] = data
		}
	}

	return EngineResult{Bundle: bundle, Audit: audit}
}

// clampPageRange applies the spec's page-range law: 1-based inclusive,
// clamped to the document size, capped at maxPagesPerCall pages processed.
func clampPageRange(a, b, numPages int) (start, end int) {
	if a < 1 {
		a = 1
	}
	if a > numPages {
		a = numPages
	}
	if b > numPages {
		b = numPages
	}
	if b > a+maxPagesPerCall-1 {
		b = a + maxPagesPerCall - 1
	}
	if b < a {
		b = a
	}
	return a, b
}

type pageResult struct {
	width, height float64
	background    string
	images        []assemble.Image
	spans         []assemble.Span
}

// renderPage interprets one page's content streams and returns its spans,
// images and background ready for assembly, applying the covered-text pass
// when configured.
func renderPage(reader *model.PdfReader, pageNum int, cfg ConversionConfig, deadline safety.Deadline, pool *fonts.Extractor) (*pageResult, error) {
	page, err := reader.GetPage(pageNum)
	if err != nil {
		return nil, common.NewError(common.KindParse, fmt.Sprintf("failed loading page %d", pageNum), err)
	}

	width, height := page.EffectiveSize()
	content, err := page.GetAllContentStreams()
	if err != nil {
		return nil, common.NewError(common.KindParse, fmt.Sprintf("failed decoding content stream for page %d", pageNum), err)
	}

	parser := contentstream.NewContentStreamParser(content)
	ops, err := parser.Parse()
	if err != nil {
		return nil, common.NewError(common.KindParse, fmt.Sprintf("failed parsing content stream for page %d", pageNum), err)
	}

	proc := contentstream.NewContentStreamProcessor(*ops, width, height)
	proc.SetResolver(reader)
	proc.SetDeadline(deadline)
	if cfg.dpi > 0 {
		proc.SetImageScale(raster.FactorForDPI(cfg.dpi))
	}
	if err := proc.Process(page.Resources); err != nil {
		if common.IsKind(err, common.KindTimeout) {
			return nil, err
		}
		return nil, common.NewError(common.KindRender, fmt.Sprintf("failed interpreting content stream for page %d", pageNum), err)
	}

	rawSpans := proc.Spans()
	covered := make([]bool, len(rawSpans))
	if cfg.correctVisibility {
		covered = coveredTextFor(rawSpans, proc.Paints())
	}

	result := &pageResult{width: width, height: height, background: proc.Background()}
	for i, sp := range rawSpans {
		if covered[i] {
			continue
		}
		family := ""
		if sp.Font != nil {
			if rf, err := pool.Extract(reader, sp.Font); err == nil && rf != nil {
				if rf.Data != nil {
					// An embedded program gets its own @font-face, keyed by
					// content hash since several PdfFonts can share one
					// program; the span must name that same hash-derived
					// family for the rule to apply.
					family = familyFor(*rf)
				} else {
					// No program to ship: name the span after the document's
					// own font name instead of the generic RenderedFont, so
					// distinct unembedded fonts (e.g. Times-Bold vs
					// Helvetica) don't all collapse onto one meaningless
					// family with no matching rule.
					family = fonts.FamilyName(sp.Font)
				}
			}
		}
		result.spans = append(result.spans, assemble.Span{
			Text:       sp.Text,
			X:          clampNonNegative(sp.X),
			Y:          clampNonNegative(sp.Y),
			FontSizePx: clampFontSize(sp.FontSizePx),
			ColorCSS:   sp.ColorCSS,
			FontFamily: family,
		})
	}
	for _, img := range proc.Images() {
		result.images = append(result.images, assemble.Image{
			X: img.X, Y: img.Y, W: img.W, H: img.H,
			Data: img.Data, Format: img.Format,
		})
	}
	return result, nil
}

// coveredTextFor adapts the interpreter's TextSpan/PaintRect pairs into the
// extractor package's types and runs the covered-text pass over them.
func coveredTextFor(spans []contentstream.TextSpan, paints []contentstream.PaintRect) []bool {
	extSpans := make([]extractor.TextSpan, len(spans))
	seqs := make([]int, len(spans))
	for i, s := range spans {
		extSpans[i] = extractor.TextSpan{Text: s.Text, BBox: s.BBox}
		seqs[i] = s.Seq
	}
	extPaints := make([]extractor.PaintRect, len(paints))
	for i, p := range paints {
		extPaints[i] = extractor.PaintRect{BBox: p.BBox, Seq: p.Seq}
	}
	return extractor.CoveredTextPass(extSpans, extPaints, seqs)
}

// dedupedFonts collects the distinct RenderedFonts produced for a document.
// The extractor's own byHash cache already guarantees uniqueness; the
// caller is responsible for imposing a stable order (filename sort)
// afterward, since map iteration order isn't.
func dedupedFonts(pool *fonts.Extractor) []RenderedFont {
	all := pool.All()
	out := make([]RenderedFont, len(all))
	for i, rf := range all {
		out[i] = *rf
	}
	return out
}

// familyFor returns the CSS font-family name a RenderedFont's @font-face
// rule and its spans share; derived from the filename since RenderedFont
// itself carries no PdfFont back-reference after extraction.
func familyFor(rf RenderedFont) string {
	return "pdf-" + rf.Filename[:min(8, len(rf.Filename))]
}

func clampNonNegative(v float64) float64 {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func clampFontSize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 1
	}
	if v >= 1000 {
		return 999
	}
	return v
}
