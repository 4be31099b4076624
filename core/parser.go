/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package core

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/windrose-labs/pdfrender/common"
)

// Regular expressions used to recognize object signatures while lexing.
var (
	rePdfVersion     = regexp.MustCompile(`%PDF-(\d)\.(\d)`)
	reEOF            = regexp.MustCompile("%%EOF?")
	reXrefTable      = regexp.MustCompile(`\s*xref\s*`)
	reStartXref      = regexp.MustCompile(`startx?ref\s*(\d+)`)
	reNumeric        = regexp.MustCompile(`^[\+-.]*([0-9.]+)`)
	reExponential    = regexp.MustCompile(`^[\+-.]*([0-9.]+)[eE][\+-.]*([0-9.]+)`)
	reReference      = regexp.MustCompile(`^\s*[-]*(\d+)\s+(\d+)\s+R`)
	reIndirectObject = regexp.MustCompile(`(\d+)\s+(\d+)\s+obj`)
	reXrefSubsection = regexp.MustCompile(`(\d+)\s+(\d+)\s*$`)
	reXrefEntry      = regexp.MustCompile(`(\d+)\s+(\d+)\s+([nf])\s*$`)
)

// maxXrefPrevSections bounds the /Prev chain walked in loadXrefs. A document
// whose xref sections loop or exceed this stops being walked there: the
// sections already loaded are kept and the rest are ignored.
const maxXrefPrevSections = 32

// PdfParser lexes and parses a PDF file, resolving indirect references on demand.
type PdfParser struct {
	version Version

	rs         io.ReadSeeker
	reader     *bufio.Reader
	fileSize   int64
	xrefs      XrefTable
	xrefOffset int64
	xrefType   *xrefType
	objstms    objectStreams
	trailer    *PdfObjectDictionary
	crypt      *crypt

	repairsAttempted bool

	ObjCache objectCache

	// streamLengthReferenceLookupInProgress guards against infinite recursion
	// when a stream's /Length is itself an indirect reference that (directly
	// or through repair) loops back to the same object.
	streamLengthReferenceLookupInProgress map[int64]bool
}

// Version is a PDF standard version (e.g. 1.7).
type Version struct {
	Major int
	Minor int
}

func (v Version) String() string { return fmt.Sprintf("%d.%d", v.Major, v.Minor) }

// PdfVersion returns the document's declared PDF version.
func (parser *PdfParser) PdfVersion() Version { return parser.version }

// GetTrailer returns the trailer dictionary.
func (parser *PdfParser) GetTrailer() *PdfObjectDictionary { return parser.trailer }

// GetXrefTable returns the resolved cross-reference table.
func (parser *PdfParser) GetXrefTable() XrefTable { return parser.xrefs }

// IsEncrypted reports whether the trailer carries an /Encrypt entry.
func (parser *PdfParser) IsEncrypted() bool {
	return parser.trailer != nil && parser.trailer.Get("Encrypt") != nil
}

// NeedsDecryption reports whether the document is encrypted and no password
// has been supplied yet via DecryptWithPasswords.
func (parser *PdfParser) NeedsDecryption() bool {
	return parser.IsEncrypted() && parser.crypt == nil
}

func (parser *PdfParser) skipSpaces() (int, error) {
	cnt := 0
	for {
		b, err := parser.reader.ReadByte()
		if err != nil {
			return cnt, err
		}
		if IsWhiteSpace(b) {
			cnt++
		} else {
			parser.reader.UnreadByte()
			break
		}
	}
	return cnt, nil
}

func (parser *PdfParser) skipComments() error {
	if _, err := parser.skipSpaces(); err != nil {
		return err
	}
	isFirst := true
	for {
		bb, err := parser.reader.Peek(1)
		if err != nil {
			return err
		}
		if isFirst && bb[0] != '%' {
			return nil
		}
		isFirst = false
		if bb[0] != '\r' && bb[0] != '\n' {
			parser.reader.ReadByte()
		} else {
			break
		}
	}
	return parser.skipComments()
}

func (parser *PdfParser) readComment() (string, error) {
	var r bytes.Buffer
	if _, err := parser.skipSpaces(); err != nil {
		return r.String(), err
	}
	isFirst := true
	for {
		bb, err := parser.reader.Peek(1)
		if err != nil {
			return r.String(), err
		}
		if isFirst && bb[0] != '%' {
			return r.String(), errors.New("comment should start with %")
		}
		isFirst = false
		if bb[0] != '\r' && bb[0] != '\n' {
			b, _ := parser.reader.ReadByte()
			r.WriteByte(b)
		} else {
			break
		}
	}
	return r.String(), nil
}

func (parser *PdfParser) readTextLine() (string, error) {
	var r bytes.Buffer
	for {
		bb, err := parser.reader.Peek(1)
		if err != nil {
			return r.String(), err
		}
		if bb[0] != '\r' && bb[0] != '\n' {
			b, _ := parser.reader.ReadByte()
			r.WriteByte(b)
		} else {
			break
		}
	}
	return r.String(), nil
}

// parseName reads a name starting with '/', decoding #XX hex escapes.
func (parser *PdfParser) parseName() (PdfObjectName, error) {
	var r bytes.Buffer
	nameStarted := false
	for {
		bb, err := parser.reader.Peek(1)
		if err == io.EOF {
			break
		}
		if err != nil {
			return PdfObjectName(r.String()), err
		}

		if !nameStarted {
			if bb[0] == '/' {
				nameStarted = true
				parser.reader.ReadByte()
			} else if bb[0] == '%' {
				parser.readComment()
				parser.skipSpaces()
			} else {
				return PdfObjectName(r.String()), fmt.Errorf("invalid name: (%c)", bb[0])
			}
		} else {
			if IsWhiteSpace(bb[0]) {
				break
			} else if bb[0] == '/' || bb[0] == '[' || bb[0] == '(' || bb[0] == ']' || bb[0] == '<' || bb[0] == '>' {
				break
			} else if bb[0] == '#' {
				hexcode, err := parser.reader.Peek(3)
				if err != nil {
					return PdfObjectName(r.String()), err
				}
				code, err := hex.DecodeString(string(hexcode[1:3]))
				if err != nil {
					r.WriteByte('#')
					parser.reader.Discard(1)
					continue
				}
				parser.reader.Discard(3)
				r.Write(code)
			} else {
				b, _ := parser.reader.ReadByte()
				r.WriteByte(b)
			}
		}
	}
	return PdfObjectName(r.String()), nil
}

func (parser *PdfParser) parseNumber() (PdfObject, error) {
	return ParseNumber(parser.reader)
}

// parseString reads a literal string "(...)" with backslash escapes.
func (parser *PdfParser) parseString() (*PdfObjectString, error) {
	parser.reader.ReadByte()

	var r bytes.Buffer
	count := 1
	for {
		bb, err := parser.reader.Peek(1)
		if err != nil {
			return MakeStringFromBytes(r.Bytes()), err
		}

		if bb[0] == '\\' {
			parser.reader.ReadByte()
			b, err := parser.reader.ReadByte()
			if err != nil {
				return MakeStringFromBytes(r.Bytes()), err
			}

			if IsOctalDigit(b) {
				bb, err := parser.reader.Peek(2)
				if err != nil {
					return MakeStringFromBytes(r.Bytes()), err
				}
				numeric := []byte{b}
				for _, val := range bb {
					if IsOctalDigit(val) {
						numeric = append(numeric, val)
					} else {
						break
					}
				}
				parser.reader.Discard(len(numeric) - 1)
				code, err := strconv.ParseUint(string(numeric), 8, 32)
				if err != nil {
					return MakeStringFromBytes(r.Bytes()), err
				}
				r.WriteByte(byte(code))
				continue
			}

			switch b {
			case 'n':
				r.WriteByte('\n')
			case 'r':
				r.WriteByte('\r')
			case 't':
				r.WriteByte('\t')
			case 'b':
				r.WriteByte('\b')
			case 'f':
				r.WriteByte('\f')
			case '(':
				r.WriteByte('(')
			case ')':
				r.WriteByte(')')
			case '\\':
				r.WriteByte('\\')
			case '\r', '\n':
				// Line continuation: backslash followed by EOL is elided.
			default:
				r.WriteByte(b)
			}
			continue
		} else if bb[0] == '(' {
			count++
		} else if bb[0] == ')' {
			count--
			if count == 0 {
				parser.reader.ReadByte()
				break
			}
		}

		b, _ := parser.reader.ReadByte()
		r.WriteByte(b)
	}

	return MakeStringFromBytes(r.Bytes()), nil
}

// parseHexString reads a hex string "<...>".
func (parser *PdfParser) parseHexString() (*PdfObjectString, error) {
	parser.reader.ReadByte()

	var r bytes.Buffer
	for {
		bb, err := parser.reader.Peek(1)
		if err != nil {
			return MakeHexString(nil), err
		}
		if bb[0] == '>' {
			parser.reader.ReadByte()
			break
		}
		b, _ := parser.reader.ReadByte()
		if !IsWhiteSpace(b) {
			r.WriteByte(b)
		}
	}

	if r.Len()%2 == 1 {
		r.WriteByte('0')
	}

	buf, _ := hex.DecodeString(r.String())
	return MakeHexString(buf), nil
}

func (parser *PdfParser) parseArray() (*PdfObjectArray, error) {
	arr := MakeArray()
	parser.reader.ReadByte()

	for {
		parser.skipSpaces()
		bb, err := parser.reader.Peek(1)
		if err != nil {
			return arr, err
		}
		if bb[0] == ']' {
			parser.reader.ReadByte()
			break
		}
		obj, err := parser.parseObject()
		if err != nil {
			return arr, err
		}
		arr.Append(obj)
	}
	return arr, nil
}

func (parser *PdfParser) parseBool() (PdfObjectBool, error) {
	bb, err := parser.reader.Peek(4)
	if err != nil {
		return PdfObjectBool(false), err
	}
	if len(bb) >= 4 && string(bb[:4]) == "true" {
		parser.reader.Discard(4)
		return PdfObjectBool(true), nil
	}

	bb, err = parser.reader.Peek(5)
	if err != nil {
		return PdfObjectBool(false), err
	}
	if len(bb) >= 5 && string(bb[:5]) == "false" {
		parser.reader.Discard(5)
		return PdfObjectBool(false), nil
	}

	return PdfObjectBool(false), errors.New("unexpected boolean string")
}

func parseReference(refStr string) (PdfObjectReference, error) {
	objref := PdfObjectReference{}
	result := reReference.FindStringSubmatch(refStr)
	if len(result) < 3 {
		return objref, errors.New("unable to parse reference")
	}
	objNum, _ := strconv.Atoi(result[1])
	genNum, _ := strconv.Atoi(result[2])
	objref.ObjectNumber = int64(objNum)
	objref.GenerationNumber = int64(genNum)
	return objref, nil
}

func (parser *PdfParser) parseNull() (PdfObjectNull, error) {
	_, err := parser.reader.Discard(4)
	return PdfObjectNull{}, err
}

// parseObject detects the object signature at the current position and
// dispatches to the matching production.
func (parser *PdfParser) parseObject() (PdfObject, error) {
	parser.skipSpaces()
	for {
		bb, err := parser.reader.Peek(2)
		if err != nil {
			if err != io.EOF || len(bb) == 0 {
				return nil, err
			}
			if len(bb) == 1 {
				bb = append(bb, ' ')
			}
		}

		if bb[0] == '/' {
			name, err := parser.parseName()
			return &name, err
		} else if bb[0] == '(' {
			return parser.parseString()
		} else if bb[0] == '[' {
			return parser.parseArray()
		} else if bb[0] == '<' && bb[1] == '<' {
			return parser.ParseDict()
		} else if bb[0] == '<' {
			return parser.parseHexString()
		} else if bb[0] == '%' {
			parser.readComment()
			parser.skipSpaces()
		} else {
			bb, _ = parser.reader.Peek(15)
			peekStr := string(bb)

			if len(peekStr) > 3 && peekStr[:4] == "null" {
				null, err := parser.parseNull()
				return &null, err
			} else if len(peekStr) > 4 && peekStr[:5] == "false" {
				b, err := parser.parseBool()
				return &b, err
			} else if len(peekStr) > 3 && peekStr[:4] == "true" {
				b, err := parser.parseBool()
				return &b, err
			}

			if result1 := reReference.FindStringSubmatch(peekStr); len(result1) > 1 {
				bb, _ = parser.reader.ReadBytes('R')
				ref, err := parseReference(string(bb))
				return &ref, err
			}

			if result2 := reNumeric.FindStringSubmatch(peekStr); len(result2) > 1 {
				return parser.parseNumber()
			}

			if result2 := reExponential.FindStringSubmatch(peekStr); len(result2) > 1 {
				return parser.parseNumber()
			}

			return nil, errors.New("object parsing error - unexpected pattern")
		}
	}
}

// ParseDict reads a dictionary enclosed in "<<" and ">>".
func (parser *PdfParser) ParseDict() (*PdfObjectDictionary, error) {
	dict := MakeDict()

	c, _ := parser.reader.ReadByte()
	if c != '<' {
		return nil, errors.New("invalid dict")
	}
	c, _ = parser.reader.ReadByte()
	if c != '<' {
		return nil, errors.New("invalid dict")
	}

	for {
		parser.skipSpaces()
		parser.skipComments()

		bb, err := parser.reader.Peek(2)
		if err != nil {
			return nil, err
		}

		if bb[0] == '>' && bb[1] == '>' {
			parser.reader.ReadByte()
			parser.reader.ReadByte()
			break
		}

		keyName, err := parser.parseName()
		if err != nil {
			return nil, err
		}

		if len(keyName) > 4 && keyName[len(keyName)-4:] == "null" {
			// Compatibility: some writers append "null" to the key name
			// without a separating space, e.g. "/Boundsnull".
			newKey := keyName[0 : len(keyName)-4]
			parser.skipSpaces()
			bb, _ := parser.reader.Peek(1)
			if bb[0] == '/' {
				dict.Set(newKey, MakeNull())
				continue
			}
		}

		parser.skipSpaces()

		val, err := parser.parseObject()
		if err != nil {
			return nil, err
		}
		dict.Set(keyName, val)
	}

	return dict, nil
}

// parsePdfVersion sniffs the "%PDF-M.N" header in the first 20 bytes,
// falling back to a top-down scan for files with leading garbage.
func (parser *PdfParser) parsePdfVersion() (int, int, error) {
	var offset int64 = 20
	b := make([]byte, offset)
	parser.rs.Seek(0, io.SeekStart)
	parser.rs.Read(b)

	var err error
	var major, minor int

	if match := rePdfVersion.FindStringSubmatch(string(b)); len(match) < 3 {
		if major, minor, err = parser.seekPdfVersionTopDown(); err != nil {
			return 0, 0, err
		}
		parser.rs, err = newOffsetReader(parser.rs, parser.GetFileOffset()-8)
		if err != nil {
			return 0, 0, err
		}
	} else {
		if major, err = strconv.Atoi(match[1]); err != nil {
			return 0, 0, err
		}
		if minor, err = strconv.Atoi(match[2]); err != nil {
			return 0, 0, err
		}
		parser.SetFileOffset(0)
	}
	parser.reader = bufio.NewReader(parser.rs)
	return major, minor, nil
}

// parseXrefTable parses a classic xref table starting at "xref" and its trailer.
func (parser *PdfParser) parseXrefTable() (*PdfObjectDictionary, error) {
	var trailer *PdfObjectDictionary

	txt, err := parser.readTextLine()
	if err != nil {
		return nil, err
	}
	_ = txt

	curObjNum := -1
	secObjects := 0
	insideSubsection := false
	unmatchedContent := ""
	for {
		parser.skipSpaces()
		if _, err := parser.reader.Peek(1); err != nil {
			return nil, err
		}

		txt, err = parser.readTextLine()
		if err != nil {
			return nil, err
		}

		result1 := reXrefSubsection.FindStringSubmatch(txt)
		if len(result1) == 0 {
			tryMatch := len(unmatchedContent) > 0
			unmatchedContent += txt + "\n"
			if tryMatch {
				result1 = reXrefSubsection.FindStringSubmatch(unmatchedContent)
			}
		}
		if len(result1) == 3 {
			first, _ := strconv.Atoi(result1[1])
			second, _ := strconv.Atoi(result1[2])
			curObjNum = first
			secObjects = second
			_ = secObjects
			insideSubsection = true
			unmatchedContent = ""
			continue
		}
		result2 := reXrefEntry.FindStringSubmatch(txt)
		if len(result2) == 4 {
			if !insideSubsection {
				return nil, errors.New("xref invalid format")
			}

			first, _ := strconv.ParseInt(result2[1], 10, 64)
			gen, _ := strconv.Atoi(result2[2])
			third := result2[3]
			unmatchedContent = ""

			if strings.ToLower(third) == "n" && first > 1 {
				x, ok := parser.xrefs.ObjectMap[curObjNum]
				if !ok || gen > x.Generation {
					obj := XrefObject{ObjectNumber: curObjNum, XType: XrefTypeTableEntry, Offset: first, Generation: gen}
					parser.xrefs.ObjectMap[curObjNum] = obj
				}
			}

			curObjNum++
			continue
		}

		if len(txt) > 6 && txt[:7] == "trailer" {
			if len(txt) > 9 {
				offset := parser.GetFileOffset()
				parser.SetFileOffset(offset - int64(len(txt)) + 7)
			}
			parser.skipSpaces()
			parser.skipComments()
			trailer, err = parser.ParseDict()
			if err != nil {
				return nil, err
			}
			break
		}

		if txt == "%%EOF" {
			return nil, errors.New("end of file - trailer not found")
		}
	}

	if parser.xrefType == nil {
		t := XrefTypeTableEntry
		parser.xrefType = &t
	}

	return trailer, nil
}

// parseXrefStream parses an xref-stream object (type-0/1/2 entries) and its trailer.
func (parser *PdfParser) parseXrefStream(xstm *PdfObjectInteger) (*PdfObjectDictionary, error) {
	if xstm != nil {
		parser.rs.Seek(int64(*xstm), io.SeekStart)
		parser.reader = bufio.NewReader(parser.rs)
	}

	xsOffset := parser.GetFileOffset()

	xrefObj, err := parser.ParseIndirectObject()
	if err != nil {
		return nil, errors.New("failed to read xref object")
	}

	xs, ok := xrefObj.(*PdfObjectStream)
	if !ok {
		return nil, errors.New("XRefStm pointing to a non-stream object")
	}

	trailerDict := xs.PdfObjectDictionary

	sizeObj, ok := xs.PdfObjectDictionary.Get("Size").(*PdfObjectInteger)
	if !ok {
		return nil, errors.New("missing Size from xref stm")
	}
	if int64(*sizeObj) > 8388607 {
		return nil, errors.New("range check error")
	}

	wArr, ok := xs.PdfObjectDictionary.Get("W").(*PdfObjectArray)
	if !ok {
		return nil, errors.New("invalid W in xref stream")
	}
	if wArr.Len() != 3 {
		return nil, errors.New("unsupported xref stm len(W) != 3")
	}

	var b []int64
	for i := 0; i < 3; i++ {
		wVal, ok := GetIntVal(wArr.Get(i))
		if !ok {
			return nil, errors.New("invalid w object type")
		}
		b = append(b, int64(wVal))
	}

	ds, err := DecodeStream(xs)
	if err != nil {
		return nil, err
	}

	s0 := int(b[0])
	s1 := int(b[0] + b[1])
	s2 := int(b[0] + b[1] + b[2])
	deltab := s2

	if s0 < 0 || s1 < 0 || s2 < 0 {
		return nil, errors.New("range check error")
	}
	if deltab == 0 {
		return trailerDict, nil
	}

	entries := len(ds) / deltab

	objCount := 0
	var indexList []int
	if indexObj := xs.PdfObjectDictionary.Get("Index"); indexObj != nil {
		indicesArray, ok := indexObj.(*PdfObjectArray)
		if !ok {
			return nil, errors.New("invalid Index object")
		}
		if indicesArray.Len()%2 != 0 {
			return nil, errors.New("range check error")
		}

		indices := make([]int, 0, indicesArray.Len())
		for _, o := range indicesArray.Elements() {
			v, ok := o.(*PdfObjectInteger)
			if !ok {
				return nil, errors.New("invalid Index entry")
			}
			indices = append(indices, int(*v))
		}

		for i := 0; i < len(indices); i += 2 {
			startIdx := indices[i]
			numObjs := indices[i+1]
			for j := 0; j < numObjs; j++ {
				indexList = append(indexList, startIdx+j)
			}
			objCount += numObjs
		}
	} else {
		for i := 0; i < int(*sizeObj); i++ {
			indexList = append(indexList, i)
		}
		objCount = int(*sizeObj)
	}

	if entries == objCount+1 {
		// Compatibility: Index missing coverage of one object - append one.
		maxIndex := objCount - 1
		for _, ind := range indexList {
			if ind > maxIndex {
				maxIndex = ind
			}
		}
		indexList = append(indexList, maxIndex+1)
		objCount++
	}

	if entries != len(indexList) {
		return nil, errors.New("xref stm num entries != len(indices)")
	}

	convertBytes := func(v []byte) int64 {
		var tmp int64
		for i := 0; i < len(v); i++ {
			tmp += int64(v[i]) * (1 << uint(8*(len(v)-i-1)))
		}
		return tmp
	}

	objIndex := 0
	for i := 0; i < len(ds); i += deltab {
		if err := checkBounds(len(ds), i, i+s0); err != nil {
			return nil, err
		}
		p1 := ds[i : i+s0]
		if err := checkBounds(len(ds), i+s0, i+s1); err != nil {
			return nil, err
		}
		p2 := ds[i+s0 : i+s1]
		if err := checkBounds(len(ds), i+s1, i+s2); err != nil {
			return nil, err
		}
		p3 := ds[i+s1 : i+s2]

		ftype := convertBytes(p1)
		n2 := convertBytes(p2)
		n3 := convertBytes(p3)

		if b[0] == 0 {
			ftype = 1
		}

		if objIndex >= len(indexList) {
			break
		}
		objNum := indexList[objIndex]
		objIndex++

		switch ftype {
		case 0:
			// Free object.
		case 1:
			if n2 == xsOffset {
				objNum = int(xs.ObjectNumber)
			}
			if xr, ok := parser.xrefs.ObjectMap[objNum]; !ok || int(n3) > xr.Generation {
				obj := XrefObject{ObjectNumber: objNum, XType: XrefTypeTableEntry, Offset: n2, Generation: int(n3)}
				parser.xrefs.ObjectMap[objNum] = obj
			}
		case 2:
			if _, ok := parser.xrefs.ObjectMap[objNum]; !ok {
				obj := XrefObject{ObjectNumber: objNum, XType: XrefTypeObjectStream, OsObjNumber: int(n2), OsObjIndex: int(n3)}
				parser.xrefs.ObjectMap[objNum] = obj
			}
		default:
			// §7.5.8.3: any other type is a reference to the null object.
		}
	}

	if parser.xrefType == nil {
		t := XrefTypeObjectStream
		parser.xrefType = &t
	}

	return trailerDict, nil
}

// parseXref parses the xref section at the current position, classic or stream.
func (parser *PdfParser) parseXref() (*PdfObjectDictionary, error) {
	const bufLen = 20
	bb, _ := parser.reader.Peek(bufLen)
	for i := 0; i < 2; i++ {
		if parser.xrefOffset == 0 {
			parser.xrefOffset = parser.GetFileOffset()
		}
		if reIndirectObject.Match(bb) {
			return parser.parseXrefStream(nil)
		}
		if reXrefTable.Match(bb) {
			return parser.parseXrefTable()
		}

		offset := parser.GetFileOffset()
		if parser.xrefOffset == 0 {
			parser.xrefOffset = offset
		}
		parser.SetFileOffset(offset - bufLen)
		defer parser.SetFileOffset(offset)

		lbb, _ := parser.reader.Peek(bufLen)
		bb = append(lbb, bb...)
	}

	common.Log.Debug("Unable to find xref table or stream - attempting repair")
	if err := parser.repairSeekXrefMarker(); err != nil {
		return nil, err
	}
	return parser.parseXrefTable()
}

func (parser *PdfParser) seekToEOFMarker(fSize int64) error {
	var offset int64
	var buflen int64 = 2048

	for offset < fSize-4 {
		if fSize <= buflen+offset {
			buflen = fSize - offset
		}
		if _, err := parser.rs.Seek(-offset-buflen, io.SeekEnd); err != nil {
			return err
		}
		b1 := make([]byte, buflen)
		parser.rs.Read(b1)
		ind := reEOF.FindAllStringIndex(string(b1), -1)
		if ind != nil {
			lastInd := ind[len(ind)-1]
			parser.rs.Seek(-offset-buflen+int64(lastInd[0]), io.SeekEnd)
			return nil
		}
		offset += buflen - 4
	}

	return errors.New("EOF not found")
}

// loadXrefs loads the cross-reference table, starting from the primary
// section pointed to by the trailing "startxref" and walking /Prev sections
// (older-to-newer precedence reversed: first section wins ties), capped at
// maxXrefPrevSections sections to guard against malformed or cyclic chains.
func (parser *PdfParser) loadXrefs() (*PdfObjectDictionary, error) {
	parser.xrefs.ObjectMap = make(map[int]XrefObject)
	parser.objstms = make(objectStreams)

	fSize, err := parser.rs.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, err
	}
	parser.fileSize = fSize

	if err := parser.seekToEOFMarker(fSize); err != nil {
		return nil, err
	}

	curOffset, err := parser.rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, err
	}

	var numBytes int64 = 64
	offset := curOffset - numBytes
	if offset < 0 {
		offset = 0
	}
	if _, err := parser.rs.Seek(offset, io.SeekStart); err != nil {
		return nil, err
	}

	b2 := make([]byte, numBytes)
	if _, err := parser.rs.Read(b2); err != nil {
		return nil, err
	}

	result := reStartXref.FindStringSubmatch(string(b2))
	if len(result) < 2 {
		return nil, errors.New("startxref not found")
	}
	offsetXref, _ := strconv.ParseInt(result[1], 10, 64)

	if offsetXref > fSize {
		offsetXref, err = parser.repairLocateXref()
		if err != nil {
			return nil, err
		}
	}

	parser.rs.Seek(offsetXref, io.SeekStart)
	parser.reader = bufio.NewReader(parser.rs)

	trailerDict, err := parser.parseXref()
	if err != nil {
		return nil, err
	}

	if xx := trailerDict.Get("XRefStm"); xx != nil {
		xo, ok := xx.(*PdfObjectInteger)
		if !ok {
			return nil, errors.New("XRefStm != int")
		}
		if _, err := parser.parseXrefStream(xo); err != nil {
			return nil, err
		}
	}

	var seenOffsets []int64
	seenOffsets = append(seenOffsets, offsetXref)
	xx := trailerDict.Get("Prev")
	for sections := 1; xx != nil; sections++ {
		if sections >= maxXrefPrevSections {
			common.Log.Debug("xref /Prev chain exceeds %d sections - stopping", maxXrefPrevSections)
			break
		}

		prevInt, ok := xx.(*PdfObjectInteger)
		if !ok {
			common.Log.Debug("Invalid Prev reference: not an integer (%T)", xx)
			return trailerDict, nil
		}

		off := int64(*prevInt)
		for _, seen := range seenOffsets {
			if seen == off {
				common.Log.Debug("Preventing circular xref referencing")
				return trailerDict, nil
			}
		}
		seenOffsets = append(seenOffsets, off)

		parser.rs.Seek(off, io.SeekStart)
		parser.reader = bufio.NewReader(parser.rs)

		ptrailerDict, err := parser.parseXref()
		if err != nil {
			common.Log.Debug("Failed loading Prev trailer - ignoring: %v", err)
			break
		}

		xx = ptrailerDict.Get("Prev")
	}

	return trailerDict, nil
}

func (parser *PdfParser) xrefNextObjectOffset(offset int64) int64 {
	nextOffset := int64(0)

	if len(parser.xrefs.ObjectMap) == 0 {
		return 0
	}

	if len(parser.xrefs.sortedObjects) == 0 {
		count := 0
		for _, xref := range parser.xrefs.ObjectMap {
			if xref.Offset > 0 {
				count++
			}
		}
		if count == 0 {
			return 0
		}
		parser.xrefs.sortedObjects = make([]XrefObject, 0, count)
		for _, xref := range parser.xrefs.ObjectMap {
			if xref.Offset > 0 {
				parser.xrefs.sortedObjects = append(parser.xrefs.sortedObjects, xref)
			}
		}
		sort.Slice(parser.xrefs.sortedObjects, func(i, j int) bool {
			return parser.xrefs.sortedObjects[i].Offset < parser.xrefs.sortedObjects[j].Offset
		})
	}

	i := sort.Search(len(parser.xrefs.sortedObjects), func(i int) bool {
		return parser.xrefs.sortedObjects[i].Offset >= offset
	})
	if i < len(parser.xrefs.sortedObjects) {
		nextOffset = parser.xrefs.sortedObjects[i].Offset
	}
	return nextOffset
}

// traceStreamLength resolves a stream's /Length entry, guarding against a
// reference that (directly or via repair) loops back onto itself.
func (parser *PdfParser) traceStreamLength(lengthObj PdfObject) (PdfObject, error) {
	lengthRef, isRef := lengthObj.(*PdfObjectReference)
	if !isRef {
		return lengthObj, nil
	}

	if parser.streamLengthReferenceLookupInProgress[lengthRef.ObjectNumber] {
		return nil, errors.New("illegal recursive loop")
	}
	parser.streamLengthReferenceLookupInProgress[lengthRef.ObjectNumber] = true
	defer delete(parser.streamLengthReferenceLookupInProgress, lengthRef.ObjectNumber)

	return parser.Resolve(lengthRef)
}

// ParseIndirectObject parses "N G obj ... endobj", which may be a plain
// indirect object or a stream object.
func (parser *PdfParser) ParseIndirectObject() (PdfObject, error) {
	indirect := PdfIndirectObject{}

	bb, err := parser.reader.Peek(20)
	if err != nil && err != io.EOF {
		return &indirect, err
	}

	indices := reIndirectObject.FindStringSubmatchIndex(string(bb))
	if len(indices) < 6 {
		if err == io.EOF {
			return nil, err
		}
		return &indirect, errors.New("unable to detect indirect object signature")
	}
	parser.reader.Discard(indices[0])

	hlen := indices[1] - indices[0]
	hb := make([]byte, hlen)
	if _, err = parser.ReadAtLeast(hb, hlen); err != nil {
		return nil, err
	}

	result := reIndirectObject.FindStringSubmatch(string(hb))
	if len(result) < 3 {
		return &indirect, errors.New("unable to detect indirect object signature")
	}

	on, _ := strconv.Atoi(result[1])
	gn, _ := strconv.Atoi(result[2])
	indirect.ObjectNumber = int64(on)
	indirect.GenerationNumber = int64(gn)

	for {
		bb, err := parser.reader.Peek(2)
		if err != nil {
			return &indirect, err
		}

		if IsWhiteSpace(bb[0]) {
			parser.skipSpaces()
		} else if bb[0] == '%' {
			parser.skipComments()
		} else if bb[0] == '<' && bb[1] == '<' {
			indirect.PdfObject, err = parser.ParseDict()
			if err != nil {
				return &indirect, err
			}
		} else if bb[0] == '/' || bb[0] == '(' || bb[0] == '[' || bb[0] == '<' {
			indirect.PdfObject, err = parser.parseObject()
			if err != nil {
				return &indirect, err
			}
		} else if bb[0] == ']' {
			parser.reader.Discard(1)
		} else {
			if bb[0] == 'e' {
				lineStr, err := parser.readTextLine()
				if err != nil {
					return nil, err
				}
				if len(lineStr) >= 6 && lineStr[0:6] == "endobj" {
					break
				}
			} else if bb[0] == 's' {
				bb, _ = parser.reader.Peek(10)
				if len(bb) >= 6 && string(bb[:6]) == "stream" {
					return parser.finishParsingStream(&indirect, bb)
				}
			}

			indirect.PdfObject, err = parser.parseObject()
			if indirect.PdfObject == nil {
				indirect.PdfObject = MakeNull()
			}
			return &indirect, err
		}
	}
	if indirect.PdfObject == nil {
		indirect.PdfObject = MakeNull()
	}
	return &indirect, nil
}

// finishParsingStream reads the raw stream body once "stream" has been peeked,
// validating /Length against the xref table's next-object offset.
func (parser *PdfParser) finishParsingStream(indirect *PdfIndirectObject, peeked []byte) (PdfObject, error) {
	discardBytes := 6
	if len(peeked) > 6 {
		if IsWhiteSpace(peeked[discardBytes]) && peeked[discardBytes] != '\r' && peeked[discardBytes] != '\n' {
			discardBytes++
		}
		if peeked[discardBytes] == '\r' {
			discardBytes++
			if peeked[discardBytes] == '\n' {
				discardBytes++
			}
		} else if peeked[discardBytes] == '\n' {
			discardBytes++
		}
	}
	parser.reader.Discard(discardBytes)

	dict, isDict := indirect.PdfObject.(*PdfObjectDictionary)
	if !isDict {
		return nil, errors.New("stream object missing dictionary")
	}

	slo, err := parser.traceStreamLength(dict.Get("Length"))
	if err != nil {
		return nil, err
	}

	pstreamLength, ok := slo.(*PdfObjectInteger)
	if !ok {
		return nil, errors.New("stream length needs to be an integer")
	}
	streamLength := int64(*pstreamLength)
	if streamLength < 0 {
		return nil, errors.New("stream needs to be longer than 0")
	}

	streamStartOffset := parser.GetFileOffset()
	nextObjectOffset := parser.xrefNextObjectOffset(streamStartOffset)
	if streamStartOffset+streamLength > nextObjectOffset && nextObjectOffset > streamStartOffset {
		newLength := nextObjectOffset - streamStartOffset - 17
		if newLength < 0 {
			return nil, errors.New("invalid stream length, going past boundaries")
		}
		streamLength = newLength
		dict.Set("Length", MakeInteger(newLength))
	}

	if streamLength > parser.fileSize {
		return nil, errors.New("invalid stream length, larger than file size")
	}

	stream := make([]byte, streamLength)
	if _, err = parser.ReadAtLeast(stream, int(streamLength)); err != nil {
		return nil, err
	}

	streamobj := PdfObjectStream{}
	streamobj.Stream = stream
	streamobj.PdfObjectDictionary = dict
	streamobj.ObjectNumber = indirect.ObjectNumber
	streamobj.GenerationNumber = indirect.GenerationNumber

	parser.skipSpaces()
	parser.reader.Discard(9) // "endstream"
	parser.skipSpaces()
	return &streamobj, nil
}

// NewParserFromString builds a parser over an in-memory string, for tests.
func NewParserFromString(txt string) *PdfParser {
	bufReader := bytes.NewReader([]byte(txt))
	parser := &PdfParser{
		ObjCache:                              objectCache{},
		rs:                                    bufReader,
		reader:                                bufio.NewReader(bufReader),
		fileSize:                              int64(len(txt)),
		streamLengthReferenceLookupInProgress: map[int64]bool{},
	}
	parser.xrefs.ObjectMap = make(map[int]XrefObject)
	return parser
}

// NewParser parses a PDF's version, xref table and trailer from rs. It
// does not decrypt the document; call DecryptWithPasswords for that.
func NewParser(rs io.ReadSeeker) (*PdfParser, error) {
	parser := &PdfParser{
		rs:                                    rs,
		ObjCache:                              make(objectCache),
		streamLengthReferenceLookupInProgress: map[int64]bool{},
	}

	majorVersion, minorVersion, err := parser.parsePdfVersion()
	if err != nil {
		return nil, err
	}
	parser.version.Major = majorVersion
	parser.version.Minor = minorVersion

	if parser.trailer, err = parser.loadXrefs(); err != nil {
		return nil, err
	}

	if len(parser.xrefs.ObjectMap) == 0 {
		return nil, fmt.Errorf("empty xref table - invalid")
	}

	return parser, nil
}

// DecryptWithPasswords builds the standard-security RC4 decryptor from the
// trailer's /Encrypt dictionary, if present, using the PDF spec's Algorithm 2
// key derivation. Returns false if the document isn't encrypted. A wrong
// password is not detected here (no verification against /U is performed,
// per §7's "no error may cause a panic" policy) - garbled text from a wrong
// key surfaces as a TextError downstream.
func (parser *PdfParser) DecryptWithPasswords(ownerPassword, userPassword string) (bool, error) {
	if parser.trailer == nil {
		return false, nil
	}
	e := parser.trailer.Get("Encrypt")
	if e == nil {
		return false, nil
	}

	var dict *PdfObjectDictionary
	switch t := e.(type) {
	case *PdfObjectDictionary:
		dict = t
	case *PdfObjectReference:
		obj, err := parser.LookupByReference(*t)
		if err != nil {
			return false, err
		}
		io, ok := obj.(*PdfIndirectObject)
		if !ok {
			return false, errors.New("encrypt object not indirect")
		}
		d, ok := io.PdfObject.(*PdfObjectDictionary)
		if !ok {
			return false, errors.New("encrypt object not a dictionary")
		}
		dict = d
	case *PdfObjectNull:
		return false, nil
	default:
		return false, fmt.Errorf("unsupported encrypt entry type: %T", e)
	}

	var id0 []byte
	if idArr, ok := parser.trailer.Get("ID").(*PdfObjectArray); ok && idArr.Len() > 0 {
		if s, ok := idArr.Get(0).(*PdfObjectString); ok {
			id0 = s.Bytes()
		}
	}

	c, err := newCrypt(dict, id0, ownerPassword, userPassword)
	if err != nil {
		logUnsupportedEncryption(err.Error())
		return false, err
	}
	parser.crypt = c
	return true, nil
}
