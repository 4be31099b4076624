/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package core

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strings"

	"github.com/windrose-labs/pdfrender/common"
)

// xrefType indicates whether a cross-reference entry came from a classic
// xref table or a type-2 (compressed) entry inside an xref stream.
type xrefType int

const (
	// XrefTypeTableEntry indicates a normal xref table entry (object number, offset).
	XrefTypeTableEntry xrefType = iota

	// XrefTypeObjectStream indicates a type-2 entry pointing into an object stream.
	XrefTypeObjectStream
)

// XrefObject is one cross-reference table entry: the location of an object,
// either as a file offset (table entry) or as a position inside an object
// stream (compressed entry).
type XrefObject struct {
	XType        xrefType
	ObjectNumber int
	Generation   int
	// Offset is the byte offset, set when XType == XrefTypeTableEntry.
	Offset int64
	// OsObjNumber/OsObjIndex locate the entry within an object stream, set
	// when XType == XrefTypeObjectStream.
	OsObjNumber int
	OsObjIndex  int
}

// XrefTable maps object number to its XrefObject.
type XrefTable struct {
	ObjectMap map[int]XrefObject

	// sortedObjects is a lazily-built, offset-ascending index used to find
	// the object nearest after a given offset (stream-length validation).
	sortedObjects []XrefObject
}

// objectStream holds a decoded ObjStm's object count and per-object offset table.
type objectStream struct {
	N       int
	ds      []byte
	offsets map[int]int64
}

type objectStreams map[int]objectStream

// objectCache caches already-parsed objects keyed by object number.
type objectCache map[int]PdfObject

func (parser *PdfParser) lookupObjectViaOS(sobjNumber int, objNum int) (PdfObject, error) {
	var bufReader *bytes.Reader
	var objstm objectStream
	var cached bool

	objstm, cached = parser.objstms[sobjNumber]
	if !cached {
		soi, err := parser.LookupByNumber(sobjNumber)
		if err != nil {
			common.Log.Debug("Missing object stream with number %d", sobjNumber)
			return nil, err
		}

		so, ok := soi.(*PdfObjectStream)
		if !ok {
			return nil, errors.New("invalid object stream")
		}

		sod := so.PdfObjectDictionary
		name, ok := sod.Get("Type").(*PdfObjectName)
		if !ok {
			return nil, errors.New("object stream missing Type")
		}
		if strings.ToLower(string(*name)) != "objstm" {
			return nil, errors.New("object stream type != ObjStm")
		}

		N, ok := sod.Get("N").(*PdfObjectInteger)
		if !ok {
			return nil, errors.New("invalid N in stream dictionary")
		}
		firstOffset, ok := sod.Get("First").(*PdfObjectInteger)
		if !ok {
			return nil, errors.New("invalid First in stream dictionary")
		}

		ds, err := DecodeStream(so)
		if err != nil {
			return nil, err
		}

		bakOffset := parser.GetFileOffset()
		defer func() { parser.SetFileOffset(bakOffset) }()

		bufReader = bytes.NewReader(ds)
		parser.reader = bufio.NewReader(bufReader)

		offsets := map[int]int64{}
		for i := 0; i < int(*N); i++ {
			parser.skipSpaces()
			obj, err := parser.parseNumber()
			if err != nil {
				return nil, err
			}
			onum, ok := obj.(*PdfObjectInteger)
			if !ok {
				return nil, errors.New("invalid object stream offset table")
			}

			parser.skipSpaces()
			obj, err = parser.parseNumber()
			if err != nil {
				return nil, err
			}
			offset, ok := obj.(*PdfObjectInteger)
			if !ok {
				return nil, errors.New("invalid object stream offset table")
			}

			offsets[int(*onum)] = int64(*firstOffset + *offset)
		}

		objstm = objectStream{N: int(*N), ds: ds, offsets: offsets}
		parser.objstms[sobjNumber] = objstm
	} else {
		bakOffset := parser.GetFileOffset()
		defer func() { parser.SetFileOffset(bakOffset) }()

		bufReader = bytes.NewReader(objstm.ds)
		parser.reader = bufio.NewReader(bufReader)
	}

	offset := objstm.offsets[objNum]
	bufReader.Seek(offset, io.SeekStart)
	parser.reader = bufio.NewReader(bufReader)

	val, err := parser.parseObject()
	if err != nil {
		common.Log.Debug("ERROR Fail to read object (%s)", err)
		return nil, err
	}
	if val == nil {
		return nil, errors.New("object cannot be null")
	}

	io := PdfIndirectObject{}
	io.ObjectNumber = int64(objNum)
	io.PdfObject = val

	return &io, nil
}

// LookupByNumber looks up a PdfObject by object number, attempting repairs on failure.
func (parser *PdfParser) LookupByNumber(objNumber int) (PdfObject, error) {
	obj, _, err := parser.lookupByNumberWrapper(objNumber, true)
	return obj, err
}

func (parser *PdfParser) lookupByNumberWrapper(objNumber int, attemptRepairs bool) (PdfObject, bool, error) {
	obj, inObjStream, err := parser.lookupByNumber(objNumber, attemptRepairs)
	if err != nil {
		return nil, inObjStream, err
	}

	if !inObjStream && parser.crypt != nil && !parser.crypt.isDecrypted(obj) {
		if err := parser.crypt.decryptObject(obj); err != nil {
			return nil, inObjStream, err
		}
	}

	return obj, inObjStream, nil
}

func getObjectNumber(obj PdfObject) (int64, int64, error) {
	if io, isIndirect := obj.(*PdfIndirectObject); isIndirect {
		return io.ObjectNumber, io.GenerationNumber, nil
	}
	if so, isStream := obj.(*PdfObjectStream); isStream {
		return so.ObjectNumber, so.GenerationNumber, nil
	}
	return 0, 0, errors.New("not an indirect/stream object")
}

func (parser *PdfParser) lookupByNumber(objNumber int, attemptRepairs bool) (PdfObject, bool, error) {
	obj, ok := parser.ObjCache[objNumber]
	if ok {
		return obj, false, nil
	}

	xref, ok := parser.xrefs.ObjectMap[objNumber]
	if !ok {
		// An indirect reference to an undefined object is not an error;
		// treat it as a reference to the null object.
		var nullObj PdfObjectNull
		return &nullObj, false, nil
	}

	if xref.XType == XrefTypeTableEntry {
		parser.rs.Seek(xref.Offset, io.SeekStart)
		parser.reader = bufio.NewReader(parser.rs)

		obj, err := parser.ParseIndirectObject()
		if err != nil {
			if attemptRepairs {
				common.Log.Debug("Attempting to repair xrefs (top down)")
				xrefTable, err := parser.repairRebuildXrefsTopDown()
				if err != nil {
					return nil, false, err
				}
				parser.xrefs = *xrefTable
				return parser.lookupByNumber(objNumber, false)
			}
			return nil, false, err
		}

		if attemptRepairs {
			realObjNum, _, _ := getObjectNumber(obj)
			if int(realObjNum) != objNumber {
				if err := parser.rebuildXrefTable(); err != nil {
					return nil, false, err
				}
				parser.ObjCache = objectCache{}
				return parser.lookupByNumberWrapper(objNumber, false)
			}
		}

		parser.ObjCache[objNumber] = obj
		return obj, false, nil
	} else if xref.XType == XrefTypeObjectStream {
		if xref.OsObjNumber == objNumber {
			return nil, true, errors.New("xref circular reference")
		}

		if _, exists := parser.xrefs.ObjectMap[xref.OsObjNumber]; exists {
			optr, err := parser.lookupObjectViaOS(xref.OsObjNumber, objNumber)
			if err != nil {
				return nil, true, err
			}
			parser.ObjCache[objNumber] = optr
			if parser.crypt != nil {
				parser.crypt.markDecrypted(optr)
			}
			return optr, true, nil
		}

		return nil, true, errors.New("os belongs to a non cross referenced object")
	}
	return nil, false, errors.New("unknown xref type")
}

// LookupByReference looks up a PdfObject by a reference.
func (parser *PdfParser) LookupByReference(ref PdfObjectReference) (PdfObject, error) {
	return parser.LookupByNumber(int(ref.ObjectNumber))
}

// Resolve implements the core.Resolver interface used by PdfObject accessors.
func (parser *PdfParser) Resolve(ref *PdfObjectReference) (PdfObject, error) {
	bakOffset := parser.GetFileOffset()
	defer func() { parser.SetFileOffset(bakOffset) }()

	o, err := parser.LookupByReference(*ref)
	if err != nil {
		return nil, err
	}
	if io, isInd := o.(*PdfIndirectObject); isInd {
		return io.PdfObject, nil
	}
	return o, nil
}
