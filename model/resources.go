/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package model

import (
	"errors"

	"github.com/windrose-labs/pdfrender/common"
	"github.com/windrose-labs/pdfrender/core"
)

// PdfPageResources is a Page resources model (PDF spec §7.8.3).
type PdfPageResources struct {
	ExtGState  core.PdfObject
	ColorSpace core.PdfObject
	Pattern    core.PdfObject
	Shading    core.PdfObject
	XObject    core.PdfObject
	Font       core.PdfObject
	ProcSet    core.PdfObject
	Properties core.PdfObject

	// Primitive resource container.
	primitive *core.PdfObjectDictionary

	// Loaded objects.
	colorspace *PdfPageResourcesColorspaces

	res core.Resolver
}

// NewPdfPageResources returns a new, empty PdfPageResources object.
func NewPdfPageResources() *PdfPageResources {
	r := &PdfPageResources{}
	r.primitive = core.MakeDict()
	return r
}

// NewPdfPageResourcesFromDict creates and returns a new PdfPageResources object
// from the input dictionary.
func NewPdfPageResourcesFromDict(dict *core.PdfObjectDictionary) (*PdfPageResources, error) {
	return newPdfPageResourcesFromDict(nil, dict)
}

func newPdfPageResourcesFromDict(res core.Resolver, dict *core.PdfObjectDictionary) (*PdfPageResources, error) {
	r := NewPdfPageResources()
	r.res = res
	r.primitive = dict

	if obj := dict.Get("ExtGState"); obj != nil {
		r.ExtGState = obj
	}
	if obj := dict.Get("ColorSpace"); obj != nil && !core.IsNullObject(obj) {
		r.ColorSpace = obj
	}
	if obj := dict.Get("Pattern"); obj != nil {
		r.Pattern = obj
	}
	if obj := dict.Get("Shading"); obj != nil {
		r.Shading = obj
	}
	if obj := dict.Get("XObject"); obj != nil {
		r.XObject = obj
	}
	if obj := core.Resolve(res, dict.Get("Font")); obj != nil {
		r.Font = obj
	}
	if obj := dict.Get("ProcSet"); obj != nil {
		r.ProcSet = obj
	}
	if obj := dict.Get("Properties"); obj != nil {
		r.Properties = obj
	}

	return r, nil
}

// GetColorspaces loads PdfPageResourcesColorspaces from `r.ColorSpace` and returns an error if there
// is a problem loading. Once loaded, the same object is returned on multiple calls.
func (r *PdfPageResources) GetColorspaces() (*PdfPageResourcesColorspaces, error) {
	if r.colorspace != nil {
		return r.colorspace, nil
	}
	if r.ColorSpace == nil {
		return nil, nil
	}

	colorspaces, err := newPdfPageResourcesColorspacesFromPdfObject(core.Resolve(r.res, r.ColorSpace))
	if err != nil {
		return nil, err
	}
	r.colorspace = colorspaces
	return r.colorspace, nil
}

// GetContainingPdfObject returns the container of the resources object.
func (r *PdfPageResources) GetContainingPdfObject() core.PdfObject {
	return r.primitive
}

// GetExtGState gets the ExtGState specified by keyName. Returns a bool
// indicating whether it was found or not.
func (r *PdfPageResources) GetExtGState(keyName core.PdfObjectName) (core.PdfObject, bool) {
	if r.ExtGState == nil {
		return nil, false
	}

	dict, ok := core.GetDict(core.Resolve(r.res, r.ExtGState))
	if !ok {
		common.Log.Debug("ERROR: Invalid ExtGState entry - not a dict (got %T)", r.ExtGState)
		return nil, false
	}
	if obj := dict.Get(keyName); obj != nil {
		return obj, true
	}

	return nil, false
}

// GetFontByName gets the font specified by keyName. Returns the PdfObject which
// the entry refers to. Returns a bool value indicating whether or not the entry was found.
func (r *PdfPageResources) GetFontByName(keyName core.PdfObjectName) (core.PdfObject, bool) {
	if r.Font == nil {
		return nil, false
	}

	fontDict, has := core.GetDict(core.Resolve(r.res, r.Font))
	if !has {
		common.Log.Debug("ERROR: Font not a dictionary! (got %T)", r.Font)
		return nil, false
	}
	if obj := fontDict.Get(keyName); obj != nil {
		return obj, true
	}

	return nil, false
}

// HasFontByName checks whether a font is defined by the specified keyName.
func (r *PdfPageResources) HasFontByName(keyName core.PdfObjectName) bool {
	_, has := r.GetFontByName(keyName)
	return has
}

// GetColorspaceByName returns the colorspace with the specified name from the page resources.
func (r *PdfPageResources) GetColorspaceByName(keyName core.PdfObjectName) (PdfColorspace, bool) {
	colorspace, err := r.GetColorspaces()
	if err != nil {
		common.Log.Debug("ERROR getting colorspace: %v", err)
		return nil, false
	}

	if colorspace == nil {
		return nil, false
	}

	cs, has := colorspace.Colorspaces[string(keyName)]
	if !has {
		return nil, false
	}

	return cs, true
}

// HasXObjectByName checks if an XObject with a specified keyName is defined.
func (r *PdfPageResources) HasXObjectByName(keyName core.PdfObjectName) bool {
	obj, _ := r.GetXObjectByName(keyName)
	return obj != nil
}

// XObjectType represents the type of an XObject.
type XObjectType int

// XObject types.
const (
	XObjectTypeUndefined XObjectType = iota
	XObjectTypeImage
	XObjectTypeForm
	XObjectTypePS
	XObjectTypeUnknown
)

// GetXObjectByName returns the XObject with the specified keyName and the object type.
func (r *PdfPageResources) GetXObjectByName(keyName core.PdfObjectName) (*core.PdfObjectStream, XObjectType) {
	if r.XObject == nil {
		return nil, XObjectTypeUndefined
	}

	xresDict, has := core.GetDict(core.Resolve(r.res, r.XObject))
	if !has {
		common.Log.Debug("ERROR: XObject not a dictionary! (got %T)", r.XObject)
		return nil, XObjectTypeUndefined
	}

	obj := core.Resolve(r.res, xresDict.Get(keyName))
	if obj == nil {
		return nil, XObjectTypeUndefined
	}

	stream, ok := core.GetStream(obj)
	if !ok {
		common.Log.Debug("XObject not pointing to a stream %T", obj)
		return nil, XObjectTypeUndefined
	}
	dict := stream.PdfObjectDictionary

	name, ok := core.GetName(core.Resolve(r.res, dict.Get("Subtype")))
	if !ok {
		common.Log.Debug("XObject Subtype not a Name, dict: %s", dict.String())
		return nil, XObjectTypeUndefined
	}

	switch *name {
	case "Image":
		return stream, XObjectTypeImage
	case "Form":
		return stream, XObjectTypeForm
	case "PS":
		return stream, XObjectTypePS
	default:
		common.Log.Debug("XObject Subtype not known (%s)", *name)
		return nil, XObjectTypeUndefined
	}
}

// GetXObjectImageByName returns the XObjectImage with the specified name from the
// page resources, if it exists.
func (r *PdfPageResources) GetXObjectImageByName(keyName core.PdfObjectName) (*XObjectImage, error) {
	stream, xtype := r.GetXObjectByName(keyName)
	if stream == nil {
		return nil, nil
	}
	if xtype != XObjectTypeImage {
		return nil, errors.New("not an image")
	}

	return NewXObjectImageFromStream(r.res, stream)
}

// GetXObjectFormByName returns the XObjectForm with the specified name from the
// page resources, if it exists.
func (r *PdfPageResources) GetXObjectFormByName(keyName core.PdfObjectName) (*XObjectForm, error) {
	stream, xtype := r.GetXObjectByName(keyName)
	if stream == nil {
		return nil, nil
	}
	if xtype != XObjectTypeForm {
		return nil, errors.New("not a form")
	}

	return NewXObjectFormFromStream(r.res, stream)
}
