/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package contentstream

import (
	"bytes"
	"errors"
	"image/png"
	"math"

	"github.com/windrose-labs/pdfrender/common"
	"github.com/windrose-labs/pdfrender/core"
	"github.com/windrose-labs/pdfrender/internal/color"
	"github.com/windrose-labs/pdfrender/internal/geom"
	"github.com/windrose-labs/pdfrender/internal/matrix"
	"github.com/windrose-labs/pdfrender/internal/raster"
	"github.com/windrose-labs/pdfrender/model"
)

// TextSpan is a single run of text placed by the interpreter, already
// converted to CSS pixel space (top-left origin, Y growing downward).
type TextSpan struct {
	Text       string
	X, Y       float64
	FontSizePx float64
	Font       *model.PdfFont
	ColorCSS   string
	endX       float64 // device-space X the span currently ends at, for merge decisions.

	// BBox is the span's bounding box in unrotated PDF user space (not the
	// CSS pixel space of X/Y), and Seq the operator index it was first drawn
	// at; both feed the covered-text visibility pass.
	BBox model.PdfRectangle
	Seq  int
}

// PaintRect is an opaque (non-text) region painted on the page - a filled
// rectangle or a placed image - recorded for the covered-text pass to check
// later paints against earlier text.
type PaintRect struct {
	BBox model.PdfRectangle
	Seq  int
}

// PageImage is a raster or passthrough-encoded image placed by a Do
// operator, in CSS pixel space.
type PageImage struct {
	X, Y, W, H float64
	Data       []byte
	// Format is the MIME subtype the bytes in Data are already encoded as:
	// "jpeg", "jp2" or "png".
	Format string
}

// backgroundCoverFraction is how much of the page a single `re f` rectangle
// must cover, in both dimensions, to be treated as a page background.
const backgroundCoverFraction = 0.9

// mergeMaxDeltaY is the maximum baseline drift, in CSS pixels, for two
// consecutive text draws to be merged into one span.
const mergeMaxDeltaY = 0.5

// handleCommand_Tc sets character spacing.
func (proc *ContentStreamProcessor) handleCommand_Tc(op *ContentStreamOperation) error {
	v, err := floatParam(op, 0)
	if err != nil {
		return err
	}
	proc.graphicsState.Tc = v
	return nil
}

// handleCommand_Tw sets word spacing.
func (proc *ContentStreamProcessor) handleCommand_Tw(op *ContentStreamOperation) error {
	v, err := floatParam(op, 0)
	if err != nil {
		return err
	}
	proc.graphicsState.Tw = v
	return nil
}

// handleCommand_Tz sets the horizontal scaling percentage (default 100).
func (proc *ContentStreamProcessor) handleCommand_Tz(op *ContentStreamOperation) error {
	v, err := floatParam(op, 0)
	if err != nil {
		return err
	}
	proc.graphicsState.Tz = v
	return nil
}

// handleCommand_TL sets the leading used by T*, ' and TD.
func (proc *ContentStreamProcessor) handleCommand_TL(op *ContentStreamOperation) error {
	v, err := floatParam(op, 0)
	if err != nil {
		return err
	}
	proc.graphicsState.TL = v
	return nil
}

// handleCommand_Ts sets the text rise.
func (proc *ContentStreamProcessor) handleCommand_Ts(op *ContentStreamOperation) error {
	v, err := floatParam(op, 0)
	if err != nil {
		return err
	}
	proc.graphicsState.Trise = v
	return nil
}

// handleCommand_Tr sets the text rendering mode.
func (proc *ContentStreamProcessor) handleCommand_Tr(op *ContentStreamOperation) error {
	if len(op.Params) != 1 {
		return errors.New("invalid number of parameters for Tr")
	}
	i, ok := core.GetIntVal(op.Params[0])
	if !ok {
		return errors.New("Tr parameter not a number")
	}
	proc.graphicsState.Tmode = int64(i)
	return nil
}

// handleCommand_Tf sets the current font and size, resolving and caching the
// font by resource name.
func (proc *ContentStreamProcessor) handleCommand_Tf(op *ContentStreamOperation, resources *model.PdfPageResources) error {
	if len(op.Params) != 2 {
		return errors.New("invalid number of parameters for Tf")
	}
	name, ok := op.Params[0].(*core.PdfObjectName)
	if !ok {
		return errors.New("Tf font name not a name object")
	}
	size, err := core.GetNumberAsFloat(op.Params[1])
	if err != nil {
		return err
	}

	key := fontCacheKey{resources: resources, name: *name}
	font, cached := proc.fontCache[key]
	if !cached {
		fontObj, has := resources.GetFontByName(*name)
		if !has {
			common.Log.Debug("Tf referenced unknown font resource %q", string(*name))
			return nil
		}
		font, err = model.NewPdfFontFromPdfObject(fontObj)
		if err != nil {
			common.Log.Debug("Failed loading font %q: %v", string(*name), err)
			return nil
		}
		proc.fontCache[key] = font
	}

	proc.graphicsState.Font = font
	proc.graphicsState.FontSize = size
	return nil
}

// handleCommand_Td moves to the start of the next line, offset by tx, ty
// from the start of the current line.
func (proc *ContentStreamProcessor) handleCommand_Td(op *ContentStreamOperation) error {
	f, err := core.GetNumbersAsFloat(op.Params)
	if err != nil || len(f) != 2 {
		return errors.New("invalid parameters for Td")
	}
	proc.graphicsState.Tlm.Concat(matrix.TranslationMatrix(f[0], f[1]))
	proc.graphicsState.Tm = proc.graphicsState.Tlm
	return nil
}

// handleCommand_TD is Td but also sets the leading to -ty.
func (proc *ContentStreamProcessor) handleCommand_TD(op *ContentStreamOperation) error {
	f, err := core.GetNumbersAsFloat(op.Params)
	if err != nil || len(f) != 2 {
		return errors.New("invalid parameters for TD")
	}
	proc.graphicsState.TL = -f[1]
	proc.graphicsState.Tlm.Concat(matrix.TranslationMatrix(f[0], f[1]))
	proc.graphicsState.Tm = proc.graphicsState.Tlm
	return nil
}

// handleCommand_Tm sets the text and text-line matrices directly.
func (proc *ContentStreamProcessor) handleCommand_Tm(op *ContentStreamOperation) error {
	f, err := core.GetNumbersAsFloat(op.Params)
	if err != nil || len(f) != 6 {
		return errors.New("invalid parameters for Tm")
	}
	m := matrix.NewMatrix(f[0], f[1], f[2], f[3], f[4], f[5])
	proc.graphicsState.Tm = m
	proc.graphicsState.Tlm = m
	return nil
}

// nextLine implements T*: move to the start of the next line using the
// current leading.
func (proc *ContentStreamProcessor) nextLine() {
	proc.graphicsState.Tlm.Concat(matrix.TranslationMatrix(0, -proc.graphicsState.TL))
	proc.graphicsState.Tm = proc.graphicsState.Tlm
}

// handleCommand_Tj shows a text string.
func (proc *ContentStreamProcessor) handleCommand_Tj(op *ContentStreamOperation) error {
	if len(op.Params) != 1 {
		return errors.New("invalid number of parameters for Tj")
	}
	str, ok := op.Params[0].(*core.PdfObjectString)
	if !ok {
		return errors.New("Tj parameter not a string")
	}
	return proc.showText([]byte(str.Str()))
}

// handleCommand_doubleQuote implements `aw ac string "`: sets word and
// character spacing, moves to the next line and shows the string.
func (proc *ContentStreamProcessor) handleCommand_doubleQuote(op *ContentStreamOperation) error {
	if len(op.Params) != 3 {
		return errors.New("invalid number of parameters for \"")
	}
	aw, err := core.GetNumberAsFloat(op.Params[0])
	if err != nil {
		return err
	}
	ac, err := core.GetNumberAsFloat(op.Params[1])
	if err != nil {
		return err
	}
	str, ok := op.Params[2].(*core.PdfObjectString)
	if !ok {
		return errors.New("\" text parameter not a string")
	}
	proc.graphicsState.Tw = aw
	proc.graphicsState.Tc = ac
	proc.nextLine()
	return proc.showText([]byte(str.Str()))
}

// handleCommand_TJ shows an array mixing strings and positioning
// adjustments (thousandths of text space units, subtracted from the
// cursor).
func (proc *ContentStreamProcessor) handleCommand_TJ(op *ContentStreamOperation) error {
	if len(op.Params) != 1 {
		return errors.New("invalid number of parameters for TJ")
	}
	arr, ok := op.Params[0].(*core.PdfObjectArray)
	if !ok {
		return errors.New("TJ parameter not an array")
	}
	for _, elem := range arr.Elements() {
		switch v := elem.(type) {
		case *core.PdfObjectString:
			if err := proc.showText([]byte(v.Str())); err != nil {
				return err
			}
		default:
			adj, err := core.GetNumberAsFloat(v)
			if err != nil {
				continue
			}
			th := proc.graphicsState.Tz / 100.0
			tx := -adj / 1000.0 * proc.graphicsState.FontSize * th
			proc.graphicsState.Tm.Concat(matrix.TranslationMatrix(tx, 0))
		}
	}
	return nil
}

// showText draws `data` at the current text position, emitting or extending
// a TextSpan, and advances Tm by the string's total displacement.
func (proc *ContentStreamProcessor) showText(data []byte) error {
	gs := &proc.graphicsState
	if gs.Font == nil {
		common.Log.Debug("Text shown with no font set, skipping")
		return nil
	}
	// Tmode 3 (invisible, used for OCR text layers over scanned images)
	// still advances the cursor below but emits nothing.
	text, _, _ := gs.Font.CharcodeBytesToUnicode(data)
	charcodes := gs.Font.BytesToCharcodes(data)

	th := gs.Tz / 100.0
	var totalAdvance float64
	for _, code := range charcodes {
		w0 := 0.0
		if m, ok := gs.Font.GetCharMetrics(code); ok {
			w0 = m.Wx / 1000.0
		}
		tx := (w0*gs.FontSize + gs.Tc) * th
		if code == 32 {
			tx += gs.Tw * th
		}
		totalAdvance += tx
	}

	// Combined text-to-device matrix: CTM x Tm, per the order `cm` already
	// establishes (the inner transform is the argument to Concat).
	combined := gs.CTM
	combined.Concat(gs.Tm)
	px, py := combined.Transform(0, gs.Trise)
	effFontSize := gs.FontSize * combined.ScalingFactorY()

	if gs.Tmode != 3 && text != "" {
		x := px
		y := proc.pageHeight - py - 0.85*effFontSize
		colorCSS := color.ToCSS(gs.ColorspaceNonStroking, gs.ColorNonStroking)
		endPx := px + totalAdvance*combined.ScalingFactorX()
		bbox := model.PdfRectangle{
			Llx: math.Min(px, endPx), Urx: math.Max(px, endPx),
			Lly: py - 0.25*effFontSize, Ury: py + 0.9*effFontSize,
		}
		proc.appendSpan(text, x, y, effFontSize, gs.Font, colorCSS, endPx, bbox)
	}

	gs.Tm.Concat(matrix.TranslationMatrix(totalAdvance, 0))
	return nil
}

// appendSpan either extends the last emitted span (same baseline, close
// enough horizontally, and unchanged font/size/color) or starts a new one.
// Merging widens the span's BBox but keeps its original (earliest) Seq, so
// the covered-text pass judges the whole run by when it first appeared.
func (proc *ContentStreamProcessor) appendSpan(text string, x, y, fontSizePx float64, font *model.PdfFont, colorCSS string, endX float64, bbox model.PdfRectangle) {
	if n := len(proc.spans); n > 0 {
		last := &proc.spans[n-1]
		sameStyle := last.Font == font && math.Abs(last.FontSizePx-fontSizePx) < 0.01 && last.ColorCSS == colorCSS
		closeEnough := math.Abs(last.Y-y) < mergeMaxDeltaY && (x-last.endX) < 2*fontSizePx && (x-last.endX) > -fontSizePx
		if sameStyle && closeEnough {
			last.Text += text
			last.endX = endX
			last.BBox.Urx = math.Max(last.BBox.Urx, bbox.Urx)
			last.BBox.Ury = math.Max(last.BBox.Ury, bbox.Ury)
			last.BBox.Lly = math.Min(last.BBox.Lly, bbox.Lly)
			return
		}
	}
	proc.spans = append(proc.spans, TextSpan{
		Text:       text,
		X:          x,
		Y:          y,
		FontSizePx: fontSizePx,
		Font:       font,
		ColorCSS:   colorCSS,
		endX:       endX,
		BBox:       bbox,
		Seq:        proc.opSeq,
	})
}

// handleCommand_re records a rectangle's device-space bounding box as a
// background-fill candidate; the next fill operator acts on it unless a
// stroking, clipping or `n` operator clears it first.
func (proc *ContentStreamProcessor) handleCommand_re(op *ContentStreamOperation) error {
	f, err := core.GetNumbersAsFloat(op.Params)
	if err != nil || len(f) != 4 {
		return errors.New("invalid parameters for re")
	}
	x, y, w, h := f[0], f[1], f[2], f[3]
	corners := []geom.Point{}
	for _, c := range [][2]float64{{x, y}, {x + w, y}, {x, y + h}, {x + w, y + h}} {
		px, py := proc.graphicsState.CTM.Transform(c[0], c[1])
		corners = append(corners, geom.Point{X: px, Y: py})
	}
	r := geom.NewRectFromPoints(corners...)
	proc.pendingRect = &r
	return nil
}

// handleCommand_fill checks whether the most recent `re` qualifies as a
// full-page background: the spec requires it cover at least 90% of the page
// in both dimensions, be the first such rectangle seen, and use a fill
// color other than the device default black (otherwise every unstyled PDF
// would report a black background).
func (proc *ContentStreamProcessor) handleCommand_fill() {
	r := proc.pendingRect
	proc.pendingRect = nil
	if r == nil {
		return
	}
	proc.paints = append(proc.paints, PaintRect{
		BBox: model.PdfRectangle{Llx: r.X, Lly: r.Y, Urx: r.X + r.W, Ury: r.Y + r.H},
		Seq:  proc.opSeq,
	})

	if proc.background != "" || !r.CoversPage(proc.pageWidth, proc.pageHeight, backgroundCoverFraction) {
		return
	}
	css := color.ToCSS(proc.graphicsState.ColorspaceNonStroking, proc.graphicsState.ColorNonStroking)
	if color.IsDefaultBlack(css) {
		return
	}
	proc.background = css
}

// handleCommand_Do draws an XObject: an Image is decoded (or passed through,
// for DCT/JPX-filtered streams) into a PageImage; a Form is recursively
// interpreted with its own Matrix and Resources, bounded by the safety
// package's recursion guard.
func (proc *ContentStreamProcessor) handleCommand_Do(op *ContentStreamOperation, resources *model.PdfPageResources) error {
	if len(op.Params) != 1 {
		return errors.New("invalid number of parameters for Do")
	}
	name, ok := op.Params[0].(*core.PdfObjectName)
	if !ok {
		return errors.New("Do parameter not a name")
	}

	stream, xtype := resources.GetXObjectByName(*name)
	if stream == nil {
		common.Log.Debug("Do referenced unknown XObject %q", string(*name))
		return nil
	}

	switch xtype {
	case model.XObjectTypeImage:
		return proc.drawImage(stream)
	case model.XObjectTypeForm:
		return proc.drawForm(stream, resources)
	default:
		common.Log.Debug("Do XObject %q has unsupported subtype, skipping", string(*name))
		return nil
	}
}

// drawImage places an image XObject at the unit square mapped through the
// current CTM. DCT/JPX-filtered streams are embedded as-is (their
// "undecoded" bytes already are valid JPEG/JP2 file bytes); everything else
// is decoded to raw samples and re-encoded as PNG.
func (proc *ContentStreamProcessor) drawImage(stream *core.PdfObjectStream) error {
	corners := []geom.Point{}
	for _, c := range [][2]float64{{0, 0}, {1, 0}, {0, 1}, {1, 1}} {
		px, py := proc.graphicsState.CTM.Transform(c[0], c[1])
		corners = append(corners, geom.Point{X: px, Y: py})
	}
	r := geom.NewRectFromPoints(corners...)

	data, format, err := encodeImageStream(proc.res, stream)
	if err != nil {
		common.Log.Debug("Skipping undecodable image: %v", err)
		return nil
	}
	if format == "png" && proc.imageScale != 1 {
		if scaled, err := raster.Scale(data, proc.imageScale); err == nil {
			data = scaled
		} else {
			common.Log.Debug("could not rescale image to target DPI, embedding at native resolution: %v", err)
		}
	}

	proc.paints = append(proc.paints, PaintRect{
		BBox: model.PdfRectangle{Llx: r.X, Lly: r.Y, Urx: r.X + r.W, Ury: r.Y + r.H},
		Seq:  proc.opSeq,
	})

	proc.images = append(proc.images, PageImage{
		X:      r.X,
		Y:      proc.pageHeight - r.Y - r.H,
		W:      r.W,
		H:      r.H,
		Data:   data,
		Format: format,
	})
	return nil
}

// encodeImageStream returns embeddable image bytes and their format for a
// raw image XObject stream, branching on the original filter before
// deciding whether to decode-then-PNG-synthesize or pass the bytes through
// untouched.
func encodeImageStream(res core.Resolver, stream *core.PdfObjectStream) ([]byte, string, error) {
	switch filterName(stream.PdfObjectDictionary) {
	case "DCTDecode":
		return stream.Stream, "jpeg", nil
	case "JPXDecode":
		return stream.Stream, "jp2", nil
	}

	ximg, err := model.NewXObjectImageFromStream(res, stream)
	if err != nil {
		return nil, "", err
	}
	img, err := ximg.ToImage()
	if err != nil {
		return nil, "", err
	}
	goImg, err := img.ToGoImage()
	if err != nil {
		return nil, "", err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, goImg); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), "png", nil
}

// filterName returns the (first, if chained) /Filter name on a stream
// dictionary, or "" if none is set.
func filterName(dict *core.PdfObjectDictionary) string {
	switch t := dict.Get("Filter").(type) {
	case *core.PdfObjectName:
		return string(*t)
	case *core.PdfObjectArray:
		if t.Len() > 0 {
			if n, ok := core.GetName(t.Get(0)); ok {
				return string(*n)
			}
		}
	}
	return ""
}

// drawForm recursively interprets a Form XObject's content stream, applying
// its Matrix to the CTM and substituting its own Resources dictionary
// (falling back to the parent's when the form doesn't define one). Depth
// and cycles are bounded by the processor's safety.RecursionGuard.
func (proc *ContentStreamProcessor) drawForm(stream *core.PdfObjectStream, parentResources *model.PdfPageResources) error {
	if err := proc.formGuard.Enter(stream.ObjectNumber); err != nil {
		common.Log.Debug("Form recursion bound hit, skipping Do: %v", err)
		return nil
	}
	defer proc.formGuard.Leave(stream.ObjectNumber)

	form, err := model.NewXObjectFormFromStream(proc.res, stream)
	if err != nil {
		return nil
	}

	savedGS := proc.graphicsState
	defer func() { proc.graphicsState = savedGS }()

	if arr, ok := core.GetArray(core.Resolve(proc.res, form.Matrix)); ok {
		f, err := arr.ToFloat64Array(proc.res)
		if err == nil && len(f) == 6 {
			m := matrix.NewMatrix(f[0], f[1], f[2], f[3], f[4], f[5])
			proc.graphicsState.CTM.Concat(m)
		}
	}

	resources := parentResources
	if form.Resources != nil {
		resources = form.Resources
	}

	parser := NewContentStreamParser(string(form.Stream))
	ops, err := parser.Parse()
	if err != nil {
		return nil
	}

	return proc.run(*ops, resources)
}

// floatParam extracts the numeric parameter at `idx`, requiring exactly one
// parameter in total (the common shape for single-operand text state
// operators).
func floatParam(op *ContentStreamOperation, idx int) (float64, error) {
	if len(op.Params) != 1 {
		return 0, errors.New("invalid number of parameters")
	}
	return core.GetNumberAsFloat(op.Params[idx])
}
