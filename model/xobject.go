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

// XObjectForm (Table 95 in 8.10.2).
type XObjectForm struct {
	FormType      core.PdfObject
	BBox          core.PdfObject
	Matrix        core.PdfObject
	Resources     *PdfPageResources
	Group         core.PdfObject
	Ref           core.PdfObject
	MetaData      core.PdfObject
	PieceInfo     core.PdfObject
	LastModified  core.PdfObject
	StructParent  core.PdfObject
	StructParents core.PdfObject
	OPI           core.PdfObject
	OC            core.PdfObject
	Name          core.PdfObject

	// Decoded content stream.
	Stream []byte
	// Primitive
	primitive *core.PdfObjectStream
}

// NewXObjectFormFromStream builds the Form XObject from a stream object.
func NewXObjectFormFromStream(res core.Resolver, stream *core.PdfObjectStream) (*XObjectForm, error) {
	form := &XObjectForm{}
	form.primitive = stream

	dict := *(stream.PdfObjectDictionary)

	decoded, err := core.DecodeStream(stream)
	if err != nil {
		return nil, err
	}
	form.Stream = decoded

	if obj := dict.Get("Subtype"); obj != nil {
		name, ok := core.GetName(core.Resolve(res, obj))
		if !ok {
			return nil, errors.New("type error")
		}
		if *name != "Form" {
			common.Log.Debug("Invalid form subtype")
			return nil, errors.New("invalid form subtype")
		}
	}

	if obj := dict.Get("FormType"); obj != nil {
		form.FormType = obj
	}
	if obj := dict.Get("BBox"); obj != nil {
		form.BBox = obj
	}
	if obj := dict.Get("Matrix"); obj != nil {
		form.Matrix = obj
	}
	if obj := dict.Get("Resources"); obj != nil {
		obj = core.Resolve(res, obj)
		d, ok := core.GetDict(obj)
		if !ok {
			common.Log.Debug("Invalid XObject Form Resources object, pointing to non-dictionary")
			return nil, core.ErrTypeError
		}
		resources, err := newPdfPageResourcesFromDict(res, d)
		if err != nil {
			common.Log.Debug("Failed getting form resources")
			return nil, err
		}
		form.Resources = resources
		common.Log.Trace("Form resources: %#v", form.Resources)
	}

	form.Group = dict.Get("Group")
	form.Ref = dict.Get("Ref")
	form.MetaData = dict.Get("MetaData")
	form.PieceInfo = dict.Get("PieceInfo")
	form.LastModified = dict.Get("LastModified")
	form.StructParent = dict.Get("StructParent")
	form.StructParents = dict.Get("StructParents")
	form.OPI = dict.Get("OPI")
	form.OC = dict.Get("OC")
	form.Name = dict.Get("Name")

	return form, nil
}

// GetContainingPdfObject returns the XObject Form's containing object (indirect object).
func (xform *XObjectForm) GetContainingPdfObject() core.PdfObject {
	return xform.primitive
}

// GetContentStream returns the XObject Form's decoded content stream.
func (xform *XObjectForm) GetContentStream() ([]byte, error) {
	return xform.Stream, nil
}

// XObjectImage (Table 89 in 8.9.5.1).
// Implements PdfModel interface.
type XObjectImage struct {
	Width            *int64
	Height           *int64
	ColorSpace       PdfColorspace
	BitsPerComponent *int64

	Intent       core.PdfObject
	ImageMask    core.PdfObject
	Mask         core.PdfObject
	Matte        core.PdfObject
	Decode       core.PdfObject
	Interpolate  core.PdfObject
	Alternatives core.PdfObject
	SMask        core.PdfObject
	SMaskInData  core.PdfObject
	Name         core.PdfObject
	StructParent core.PdfObject
	ID           core.PdfObject
	OPI          core.PdfObject
	Metadata     core.PdfObject
	OC           core.PdfObject

	// Decoded image stream.
	Stream []byte
	// Primitive
	primitive *core.PdfObjectStream
}

// NewXObjectImageFromStream builds the image xobject from a stream object.
// An image dictionary is the dictionary portion of a stream object representing an image XObject.
func NewXObjectImageFromStream(res core.Resolver, stream *core.PdfObjectStream) (*XObjectImage, error) {
	img := &XObjectImage{}
	img.primitive = stream

	dict := *(stream.PdfObjectDictionary)

	if obj := core.Resolve(res, dict.Get("Width")); obj != nil {
		iVal, ok := core.GetIntVal(obj)
		if !ok {
			return nil, errors.New("invalid image width object")
		}
		v := int64(iVal)
		img.Width = &v
	} else {
		return nil, errors.New("width missing")
	}

	if obj := core.Resolve(res, dict.Get("Height")); obj != nil {
		iVal, ok := core.GetIntVal(obj)
		if !ok {
			return nil, errors.New("invalid image height object")
		}
		v := int64(iVal)
		img.Height = &v
	} else {
		return nil, errors.New("height missing")
	}

	if obj := core.Resolve(res, dict.Get("ColorSpace")); obj != nil {
		cs, err := NewPdfColorspaceFromPdfObject(obj)
		if err != nil {
			return nil, err
		}
		img.ColorSpace = cs
	} else {
		common.Log.Debug("XObject Image colorspace not specified - assuming 1 color component")
		img.ColorSpace = NewPdfColorspaceDeviceGray()
	}

	if obj := core.Resolve(res, dict.Get("BitsPerComponent")); obj != nil {
		iVal, ok := core.GetIntVal(obj)
		if !ok {
			return nil, errors.New("invalid image bits per component object")
		}
		v := int64(iVal)
		img.BitsPerComponent = &v
	}

	img.Intent = dict.Get("Intent")
	img.ImageMask = dict.Get("ImageMask")
	img.Mask = dict.Get("Mask")
	img.Decode = dict.Get("Decode")
	img.Interpolate = dict.Get("Interpolate")
	img.Alternatives = dict.Get("Alternatives")
	img.SMask = dict.Get("SMask")
	img.SMaskInData = dict.Get("SMaskInData")
	img.Matte = dict.Get("Matte")
	img.Name = dict.Get("Name")
	img.StructParent = dict.Get("StructParent")
	img.ID = dict.Get("ID")
	img.OPI = dict.Get("OPI")
	img.Metadata = dict.Get("Metadata")
	img.OC = dict.Get("OC")

	decoded, err := core.DecodeStream(stream)
	if err != nil {
		return nil, err
	}
	img.Stream = decoded

	return img, nil
}

// ToImage converts the XObject to an Image which can be transformed or saved out.
func (ximg *XObjectImage) ToImage() (*Image, error) {
	image := &Image{}

	if ximg.Height == nil {
		return nil, errors.New("height attribute missing")
	}
	image.Height = *ximg.Height

	if ximg.Width == nil {
		return nil, errors.New("width attribute missing")
	}
	image.Width = *ximg.Width

	if ximg.BitsPerComponent == nil {
		return nil, errors.New("bits per component missing")
	}
	image.BitsPerComponent = *ximg.BitsPerComponent

	image.ColorComponents = ximg.ColorSpace.GetNumComponents()
	image.Data = ximg.Stream

	if ximg.Decode != nil {
		darr, ok := core.GetArray(ximg.Decode)
		if !ok {
			common.Log.Debug("Invalid Decode object")
			return nil, errors.New("invalid type")
		}
		decode, err := darr.ToFloat64Array(nil)
		if err != nil {
			return nil, err
		}
		image.decode = decode
	}

	return image, nil
}

// GetContainingPdfObject returns the container of the image object (indirect object).
func (ximg *XObjectImage) GetContainingPdfObject() core.PdfObject {
	return ximg.primitive
}
