/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

// Package core implements the PDF object model: the lexer/object parser,
// the cross-reference resolver, and the stream filter pipeline. It is the
// lowest layer of the engine — everything else (content-stream parsing,
// page-tree walking, font/image extraction) is built on the PdfObject sum
// type and the dereferencing primitives defined here.
package core

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/windrose-labs/pdfrender/common"
)

// PdfObject is the sum type every parsed PDF primitive implements:
// null, bool, integer, float, string, name, array, dictionary, stream,
// and indirect reference (§3 "Object (sum type)").
type PdfObject interface {
	// String returns a short debug representation.
	String() string
}

// PdfObjectBool represents the PDF boolean object.
type PdfObjectBool bool

// PdfObjectInteger represents the PDF integer numerical object.
type PdfObjectInteger int64

// PdfObjectFloat represents the PDF floating point numerical object.
type PdfObjectFloat float64

// PdfObjectString represents a PDF string object. It keeps the exact raw
// bytes (as parsed, before any text decoding) because hex-strings and
// literal strings must survive byte-for-byte for ToUnicode CMap lookup
// and RC4 decryption; Str returns those bytes unchanged as a Go string
// for debug and lookup contexts only — callers needing proper text
// decoding go through a font's ToUnicode CMap instead.
type PdfObjectString struct {
	raw   []byte
	isHex bool
}

// PdfObjectName represents a PDF name object (e.g. /Type).
type PdfObjectName string

// PdfObjectArray represents a PDF array object.
type PdfObjectArray struct {
	vec []PdfObject
}

// PdfObjectDictionary represents a PDF dictionary, preserving key
// insertion order as required by §3.
type PdfObjectDictionary struct {
	dict map[PdfObjectName]PdfObject
	keys []PdfObjectName
}

// PdfObjectNull represents the PDF null object.
type PdfObjectNull struct{}

// PdfObjectReference represents an indirect reference "N G R".
type PdfObjectReference struct {
	ObjectNumber     int64
	GenerationNumber int64
}

// PdfIndirectObject wraps a direct object with the (id, gen) it was
// read from; produced when the parser reads an "N G obj ... endobj" body.
type PdfIndirectObject struct {
	PdfObjectReference
	PdfObject
}

// PdfObjectStream is a dictionary immediately followed by raw stream bytes.
type PdfObjectStream struct {
	PdfObjectReference
	*PdfObjectDictionary
	Stream []byte // Raw (still-encoded) bytes; decode via DecodeStream.
}

// MakeDict creates an empty PdfObjectDictionary.
func MakeDict() *PdfObjectDictionary {
	return &PdfObjectDictionary{dict: map[PdfObjectName]PdfObject{}}
}

// MakeName creates a PdfObjectName from a string.
func MakeName(s string) *PdfObjectName {
	n := PdfObjectName(s)
	return &n
}

// MakeInteger creates a PdfObjectInteger.
func MakeInteger(val int64) *PdfObjectInteger {
	n := PdfObjectInteger(val)
	return &n
}

// MakeFloat creates a PdfObjectFloat.
func MakeFloat(val float64) *PdfObjectFloat {
	n := PdfObjectFloat(val)
	return &n
}

// MakeArray creates a PdfObjectArray from the given objects.
func MakeArray(objects ...PdfObject) *PdfObjectArray {
	return &PdfObjectArray{vec: append([]PdfObject{}, objects...)}
}

// MakeArrayFromFloats creates a PdfObjectArray from a slice of float64s, where each array element
// is a PdfObjectFloat.
func MakeArrayFromFloats(vals []float64) *PdfObjectArray {
	array := MakeArray()
	for _, val := range vals {
		array.Append(MakeFloat(val))
	}
	return array
}

// MakeStringFromBytes creates a literal-string PdfObjectString from raw bytes.
func MakeStringFromBytes(data []byte) *PdfObjectString {
	return &PdfObjectString{raw: append([]byte{}, data...)}
}

// MakeHexString creates a hex-string PdfObjectString from raw bytes.
func MakeHexString(data []byte) *PdfObjectString {
	return &PdfObjectString{raw: append([]byte{}, data...), isHex: true}
}

// MakeNull creates a PdfObjectNull.
func MakeNull() *PdfObjectNull { return &PdfObjectNull{} }

// MakeIndirectObject wraps obj in a bare PdfIndirectObject container (object
// number 0), for code that needs an indirect-object-shaped wrapper around an
// already in-memory direct object rather than one read off disk.
func MakeIndirectObject(obj PdfObject) *PdfIndirectObject {
	return &PdfIndirectObject{PdfObject: obj}
}

// TraceToDirectObject unwraps PdfIndirectObject containers around obj,
// returning the direct object they hold. It does not dereference
// PdfObjectReference - callers that may still be holding an unresolved
// reference must call Resolve first; by the time a value reaches this deep
// into the object model it is expected to already be direct.
func TraceToDirectObject(obj PdfObject) PdfObject {
	for i := 0; i < 10; i++ {
		ind, ok := obj.(*PdfIndirectObject)
		if !ok {
			return obj
		}
		obj = ind.PdfObject
	}
	return obj
}

// String implements PdfObject.
func (b *PdfObjectBool) String() string {
	if *b {
		return "true"
	}
	return "false"
}

func (i *PdfObjectInteger) String() string { return strconv.FormatInt(int64(*i), 10) }

func (f *PdfObjectFloat) String() string { return strconv.FormatFloat(float64(*f), 'f', -1, 64) }

// Str returns the raw bytes unchanged as a Go string, with no character
// decoding. Use Bytes for exact byte access and the font's ToUnicode CMap
// for real text decoding.
func (s *PdfObjectString) Str() string { return string(s.raw) }

// Bytes returns the exact bytes the lexer read for this string, as
// required by §3: "byte-string ... must survive as exact bytes".
func (s *PdfObjectString) Bytes() []byte { return s.raw }

// IsHex reports whether the string was written in <...> hex notation.
func (s *PdfObjectString) IsHex() bool { return s.isHex }

func (s *PdfObjectString) String() string { return string(s.raw) }

func (n *PdfObjectName) String() string { return string(*n) }

// Elements returns the array's elements, or nil for a nil array.
func (a *PdfObjectArray) Elements() []PdfObject {
	if a == nil {
		return nil
	}
	return a.vec
}

// Len returns the number of elements, 0 for a nil array.
func (a *PdfObjectArray) Len() int {
	if a == nil {
		return 0
	}
	return len(a.vec)
}

// Get returns the i-th element, or nil if i is out of bounds.
func (a *PdfObjectArray) Get(i int) PdfObject {
	if a == nil || i < 0 || i >= len(a.vec) {
		return nil
	}
	return a.vec[i]
}

// Append appends objects to the array.
func (a *PdfObjectArray) Append(objects ...PdfObject) { a.vec = append(a.vec, objects...) }

// Set sets the PdfObject at index i of the array. An error is returned if the index is outside bounds.
func (a *PdfObjectArray) Set(i int, obj PdfObject) error {
	if i < 0 || i >= len(a.vec) {
		return ErrRangeError
	}
	a.vec[i] = obj
	return nil
}

// ToFloat64Array converts every element to float64; fails if any element
// isn't numeric (PdfObjectInteger or PdfObjectFloat, after dereferencing).
func (a *PdfObjectArray) ToFloat64Array(res Resolver) ([]float64, error) {
	out := make([]float64, 0, a.Len())
	for _, obj := range a.Elements() {
		v, err := GetNumberAsFloat(Resolve(res, obj))
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// ToIntegerArray converts every element to int; fails if any element isn't
// a PdfObjectInteger (after dereferencing).
func (a *PdfObjectArray) ToIntegerArray(res Resolver) ([]int, error) {
	out := make([]int, 0, a.Len())
	for _, obj := range a.Elements() {
		i, ok := Resolve(res, obj).(*PdfObjectInteger)
		if !ok {
			return nil, ErrTypeError
		}
		out = append(out, int(*i))
	}
	return out, nil
}

func (a *PdfObjectArray) String() string {
	var b strings.Builder
	b.WriteString("[")
	for i, o := range a.vec {
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString(o.String())
	}
	b.WriteString("]")
	return b.String()
}

// Set sets key -> val, appending key to the order list if new.
func (d *PdfObjectDictionary) Set(key PdfObjectName, val PdfObject) {
	if d.dict == nil {
		d.dict = map[PdfObjectName]PdfObject{}
	}
	if _, found := d.dict[key]; !found {
		d.keys = append(d.keys, key)
	}
	d.dict[key] = val
}

// Get returns the value for key, or nil if absent.
func (d *PdfObjectDictionary) Get(key PdfObjectName) PdfObject {
	if d == nil {
		return nil
	}
	return d.dict[key]
}

// Keys returns keys in insertion order; nil for a nil dictionary.
func (d *PdfObjectDictionary) Keys() []PdfObjectName {
	if d == nil {
		return nil
	}
	return d.keys
}

func (d *PdfObjectDictionary) String() string {
	var b strings.Builder
	b.WriteString("Dict(")
	for _, k := range d.keys {
		fmt.Fprintf(&b, "%s: %s, ", k.String(), d.dict[k].String())
	}
	b.WriteString(")")
	return b.String()
}

func (r *PdfObjectReference) String() string {
	return fmt.Sprintf("%d %d R", r.ObjectNumber, r.GenerationNumber)
}

func (i *PdfIndirectObject) String() string {
	return fmt.Sprintf("IObject(%d %d): %v", i.ObjectNumber, i.GenerationNumber, i.PdfObject)
}

func (s *PdfObjectStream) String() string {
	return fmt.Sprintf("Stream(%d %d): %d bytes", s.ObjectNumber, s.GenerationNumber, len(s.Stream))
}

func (n *PdfObjectNull) String() string { return "null" }

// Resolver dereferences an indirect reference to its underlying object.
// Implemented by *PdfParser; kept as an interface here so core's helper
// functions don't need to know about the parser's internals.
type Resolver interface {
	Resolve(ref *PdfObjectReference) (PdfObject, error)
}

// Resolve follows obj through a reference (using res) and through any
// wrapping PdfIndirectObject, returning the direct object underneath.
// A reference that fails to resolve (free entry, out-of-bounds, cycle)
// yields a PdfObjectNull rather than propagating the error, matching
// §7's "never a crash" policy for missing references; callers that must
// distinguish "missing" from "present but null" should call res.Resolve
// directly.
func Resolve(res Resolver, obj PdfObject) PdfObject {
	const maxDepth = 16
	for depth := 0; depth < maxDepth; depth++ {
		switch t := obj.(type) {
		case *PdfObjectReference:
			if res == nil {
				return MakeNull()
			}
			resolved, err := res.Resolve(t)
			if err != nil || resolved == nil {
				common.Log.Debug("Resolve: %v - returning null", err)
				return MakeNull()
			}
			obj = resolved
		case *PdfIndirectObject:
			obj = t.PdfObject
		default:
			return obj
		}
	}
	common.Log.Error("Resolve: reference chain too deep - returning null")
	return MakeNull()
}

// GetNumberAsFloat returns obj's numeric value as a float64.
func GetNumberAsFloat(obj PdfObject) (float64, error) {
	switch t := obj.(type) {
	case *PdfObjectFloat:
		return float64(*t), nil
	case *PdfObjectInteger:
		return float64(*t), nil
	}
	return 0, ErrNotANumber
}

// GetNumbersAsFloat converts a slice of numeric objects to float64.
func GetNumbersAsFloat(objects []PdfObject) ([]float64, error) {
	out := make([]float64, 0, len(objects))
	for _, obj := range objects {
		v, err := GetNumberAsFloat(obj)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// GetIntVal type-asserts obj as an integer; a reference is not resolved.
func GetIntVal(obj PdfObject) (val int, found bool) {
	i, ok := obj.(*PdfObjectInteger)
	if !ok {
		return 0, false
	}
	return int(*i), true
}

// GetNumberVal type-asserts obj as either integer or float kind.
func GetNumberVal(obj PdfObject) (val float64, found bool) {
	v, err := GetNumberAsFloat(obj)
	return v, err == nil
}

// GetStringVal type-asserts obj as a string and returns its Str() value.
func GetStringVal(obj PdfObject) (val string, found bool) {
	s, ok := obj.(*PdfObjectString)
	if !ok {
		return "", false
	}
	return s.Str(), true
}

// GetNameVal type-asserts obj as a name.
func GetNameVal(obj PdfObject) (val string, found bool) {
	n, ok := obj.(*PdfObjectName)
	if !ok {
		return "", false
	}
	return string(*n), true
}

// GetName type-asserts obj as a name.
func GetName(obj PdfObject) (name *PdfObjectName, found bool) {
	name, found = obj.(*PdfObjectName)
	return
}

// GetArray type-asserts obj as an array.
func GetArray(obj PdfObject) (arr *PdfObjectArray, found bool) {
	arr, found = obj.(*PdfObjectArray)
	return
}

// GetDict type-asserts obj (unwrapped if it is an indirect object) as a
// dictionary, also accepting a stream (returning its dictionary) since
// callers frequently don't care which.
func GetDict(obj PdfObject) (dict *PdfObjectDictionary, found bool) {
	switch t := TraceToDirectObject(obj).(type) {
	case *PdfObjectDictionary:
		return t, true
	case *PdfObjectStream:
		return t.PdfObjectDictionary, true
	}
	return nil, false
}

// GetStream type-asserts obj as a stream.
func GetStream(obj PdfObject) (stream *PdfObjectStream, found bool) {
	stream, found = obj.(*PdfObjectStream)
	return
}

// GetString type-asserts obj (unwrapped if it is an indirect object) as a
// string.
func GetString(obj PdfObject) (so *PdfObjectString, found bool) {
	so, found = TraceToDirectObject(obj).(*PdfObjectString)
	return
}

// GetIndirect type-asserts obj as an indirect object.
func GetIndirect(obj PdfObject) (ind *PdfIndirectObject, found bool) {
	ind, found = obj.(*PdfIndirectObject)
	return
}

// IsNullObject reports whether obj is a PDF null (direct, not a reference to one).
func IsNullObject(obj PdfObject) bool {
	_, isNull := obj.(*PdfObjectNull)
	return isNull
}
