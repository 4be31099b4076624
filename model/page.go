/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

//
// Allow higher level manipulation of PDF files and pages.
//

package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/windrose-labs/pdfrender/core"
)

// PdfPage represents a page in a PDF document (7.7.3.3 - Table 30), with
// inheritable attributes already resolved to their effective per-page value.
type PdfPage struct {
	Parent    core.PdfObject
	Resources *PdfPageResources
	CropBox   *PdfRectangle
	MediaBox  *PdfRectangle
	Contents  core.PdfObject
	Rotate    int64

	// Primitive container.
	pageDict  *core.PdfObjectDictionary
	primitive *core.PdfIndirectObject

	reader *PdfReader
}

func (p *PdfPage) setContainer(container *core.PdfIndirectObject) {
	p.primitive = container
}

// newPdfPageFromDict builds a PdfPage from its underlying dictionary,
// falling back to inherited for any of Resources/MediaBox/CropBox/Rotate the
// page doesn't set for itself (PDF spec §7.7.3.4).
func (r *PdfReader) newPdfPageFromDict(p *core.PdfObjectDictionary, inherited inheritableAttrs) (*PdfPage, error) {
	page := &PdfPage{pageDict: p, reader: r}

	pType, ok := core.GetName(p.Get("Type"))
	if !ok {
		return nil, errors.New("missing/invalid Page dictionary Type")
	}
	if string(*pType) != "Page" {
		return nil, errors.New("page dictionary Type != Page")
	}

	if obj := p.Get("Parent"); obj != nil {
		page.Parent = obj
	}

	resDict := inherited.Resources
	if obj := p.Get("Resources"); obj != nil {
		if d, ok := core.GetDict(r.resolve(obj)); ok {
			resDict = d
		}
	}
	if resDict == nil {
		resDict = core.MakeDict()
	}
	resources, err := newPdfPageResourcesFromDict(r.parser, resDict)
	if err != nil {
		return nil, err
	}
	page.Resources = resources

	mediaBox := inherited.MediaBox
	page.MediaBox = &mediaBox
	if obj := p.Get("MediaBox"); obj != nil {
		if rect, err := rectFromObject(r.resolve(obj)); err == nil {
			page.MediaBox = &rect
		}
	}

	page.CropBox = inherited.CropBox
	if obj := p.Get("CropBox"); obj != nil {
		if rect, ok := rectFromObjectPtr(r.resolve(obj)); ok {
			page.CropBox = rect
		}
	}

	page.Rotate = int64(inherited.Rotate)
	if v, ok := core.GetIntVal(p.Get("Rotate")); ok {
		page.Rotate = int64(v)
	}

	if obj := p.Get("Contents"); obj != nil {
		page.Contents = obj
	}

	return page, nil
}

// EffectiveSize returns the page's rendered width and height: CropBox
// overrides MediaBox when present, per §3's Page entity definition.
func (p *PdfPage) EffectiveSize() (width, height float64) {
	rect := p.MediaBox
	if p.CropBox != nil {
		rect = p.CropBox
	}
	if rect == nil {
		return 612, 792
	}
	return rect.Width(), rect.Height()
}

// GetContainingPdfObject returns the page as a dictionary within a
// PdfIndirectObject.
func (p *PdfPage) GetContainingPdfObject() core.PdfObject {
	return p.primitive
}

// HasXObjectByName checks if has XObject resource by name.
func (p *PdfPage) HasXObjectByName(name core.PdfObjectName) bool {
	xresDict, has := core.GetDict(p.Resources.XObject)
	if !has {
		return false
	}
	return xresDict.Get(name) != nil
}

// GetXObjectByName gets XObject by name.
func (p *PdfPage) GetXObjectByName(name core.PdfObjectName) (core.PdfObject, bool) {
	xresDict, has := core.GetDict(p.Resources.XObject)
	if !has {
		return nil, false
	}
	if obj := xresDict.Get(name); obj != nil {
		return obj, true
	}
	return nil, false
}

// HasFontByName checks if has font resource by name.
func (p *PdfPage) HasFontByName(name core.PdfObjectName) bool {
	fontDict, has := core.GetDict(p.Resources.Font)
	if !has {
		return false
	}
	return fontDict.Get(name) != nil
}

func getContentStreamAsString(res core.Resolver, cstreamObj core.PdfObject) (string, error) {
	cstreamObj = core.TraceToDirectObject(core.Resolve(res, cstreamObj))

	switch v := cstreamObj.(type) {
	case *core.PdfObjectString:
		return v.Str(), nil
	case *core.PdfObjectStream:
		buf, err := core.DecodeStream(v)
		if err != nil {
			return "", err
		}
		return string(buf), nil
	}

	return "", fmt.Errorf("invalid content stream object holder (%T)", cstreamObj)
}

// GetContentStreams returns the page's content streams, each decoded to a
// plain string of content-stream operators.
func (p *PdfPage) GetContentStreams() ([]string, error) {
	if p.Contents == nil {
		return nil, nil
	}
	contents := core.TraceToDirectObject(p.reader.resolve(p.Contents))

	var cStreamObjs []core.PdfObject
	if contArray, ok := contents.(*core.PdfObjectArray); ok {
		cStreamObjs = contArray.Elements()
	} else {
		cStreamObjs = []core.PdfObject{contents}
	}

	var cStreams []string
	for _, cStreamObj := range cStreamObjs {
		cStreamStr, err := getContentStreamAsString(p.reader.parser, cStreamObj)
		if err != nil {
			return nil, err
		}
		cStreams = append(cStreams, cStreamStr)
	}

	return cStreams, nil
}

// GetAllContentStreams concatenates a page's content streams into one
// operator stream, per PDF spec §7.8.2: "the effect shall be as if all of
// the streams in the array were concatenated".
func (p *PdfPage) GetAllContentStreams() (string, error) {
	cstreams, err := p.GetContentStreams()
	if err != nil {
		return "", err
	}
	return strings.Join(cstreams, " "), nil
}

// PdfPageResourcesColorspaces contains the colorspace in the PdfPageResources.
// Needs to have matching name and colorspace map entry. The Names define the order.
type PdfPageResourcesColorspaces struct {
	Names       []string
	Colorspaces map[string]PdfColorspace

	container *core.PdfIndirectObject
}

func newPdfPageResourcesColorspacesFromPdfObject(obj core.PdfObject) (*PdfPageResourcesColorspaces, error) {
	colorspaces := &PdfPageResourcesColorspaces{}

	if indObj, isIndirect := obj.(*core.PdfIndirectObject); isIndirect {
		colorspaces.container = indObj
		obj = indObj.PdfObject
	}

	dict, ok := core.GetDict(obj)
	if !ok {
		return nil, errors.New("CS attribute type error")
	}

	colorspaces.Names = []string{}
	colorspaces.Colorspaces = map[string]PdfColorspace{}

	for _, csName := range dict.Keys() {
		csObj := dict.Get(csName)
		colorspaces.Names = append(colorspaces.Names, string(csName))
		cs, err := NewPdfColorspaceFromPdfObject(csObj)
		if err != nil {
			return nil, err
		}
		colorspaces.Colorspaces[string(csName)] = cs
	}

	return colorspaces, nil
}
