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
	"sort"
	"strconv"

	"github.com/windrose-labs/pdfrender/common"
)

// checkBounds verifies that slice[a:b] is a valid range for a slice of length sliceLen.
func checkBounds(sliceLen, a, b int) error {
	if a < 0 || a > sliceLen {
		return errors.New("slice index a out of bounds")
	}
	if b < a {
		return errors.New("invalid slice index b < a")
	}
	if b > sliceLen {
		return errors.New("slice index b out of bounds")
	}
	return nil
}

// printXrefTable logs a debug dump of the xref table after a repair rebuild.
func printXrefTable(xrefs XrefTable) {
	nums := make([]int, 0, len(xrefs.ObjectMap))
	for n := range xrefs.ObjectMap {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	for _, n := range nums {
		x := xrefs.ObjectMap[n]
		common.Log.Trace("xref %d %d -> offset=%d ostype=%v", x.ObjectNumber, x.Generation, x.Offset, x.XType)
	}
}

// GetObjectNums returns a sorted list of object numbers present in the xref table.
func (parser *PdfParser) GetObjectNums() []int {
	var objNums []int
	for _, x := range parser.xrefs.ObjectMap {
		objNums = append(objNums, x.ObjectNumber)
	}
	sort.Ints(objNums)
	return objNums
}

// ReadAtLeast reads exactly n bytes into p (or returns an error).
func (parser *PdfParser) ReadAtLeast(p []byte, n int) (int, error) {
	remaining := n
	start := 0
	for remaining > 0 {
		nRead, err := parser.reader.Read(p[start:])
		if err != nil {
			return start, errors.New("failed reading")
		}
		start += nRead
		remaining -= nRead
	}
	return start, nil
}

// GetFileOffset returns the current file offset, accounting for the bufio read-ahead buffer.
func (parser *PdfParser) GetFileOffset() int64 {
	offset, _ := parser.rs.Seek(0, io.SeekCurrent)
	offset -= int64(parser.reader.Buffered())
	return offset
}

// SetFileOffset seeks to offset and resets the read buffer.
func (parser *PdfParser) SetFileOffset(offset int64) {
	parser.rs.Seek(offset, io.SeekStart)
	parser.reader = bufio.NewReader(parser.rs)
}

// offsetReader wraps an io.ReadSeeker, making position 0 correspond to base
// in the wrapped stream. Used to recover from a PDF whose header is preceded
// by garbage bytes (seekPdfVersionTopDown repair path).
type offsetReader struct {
	rs   io.ReadSeeker
	base int64
}

func newOffsetReader(rs io.ReadSeeker, base int64) (io.ReadSeeker, error) {
	if base < 0 {
		return nil, errors.New("negative offset base")
	}
	return &offsetReader{rs: rs, base: base}, nil
}

func (o *offsetReader) Read(p []byte) (int, error) {
	return o.rs.Read(p)
}

func (o *offsetReader) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = o.base + offset
	case io.SeekCurrent:
		cur, err := o.rs.Seek(0, io.SeekCurrent)
		if err != nil {
			return 0, err
		}
		abs = cur + offset
	case io.SeekEnd:
		n, err := o.rs.Seek(offset, io.SeekEnd)
		if err != nil {
			return 0, err
		}
		return n - o.base, nil
	default:
		return 0, errors.New("invalid whence")
	}
	n, err := o.rs.Seek(abs, io.SeekStart)
	if err != nil {
		return 0, err
	}
	return n - o.base, nil
}

// ParseNumber parses a numeric object (integer or float, PDF spec §7.3.3) from
// a buffered stream. Malformed writers sometimes emit exponential notation
// (disallowed by the spec but tolerated here); unparsable digit runs fall
// back to 0 rather than failing the whole object.
func ParseNumber(buf *bufio.Reader) (PdfObject, error) {
	isFloat := false
	allowSigns := true
	var r bytes.Buffer
	for {
		bb, err := buf.Peek(1)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if allowSigns && (bb[0] == '-' || bb[0] == '+') {
			b, _ := buf.ReadByte()
			r.WriteByte(b)
			allowSigns = false
		} else if IsDecimalDigit(bb[0]) {
			b, _ := buf.ReadByte()
			r.WriteByte(b)
		} else if bb[0] == '.' {
			b, _ := buf.ReadByte()
			r.WriteByte(b)
			isFloat = true
		} else if bb[0] == 'e' || bb[0] == 'E' {
			b, _ := buf.ReadByte()
			r.WriteByte(b)
			isFloat = true
			allowSigns = true
		} else {
			break
		}
	}

	if isFloat {
		fVal, err := strconv.ParseFloat(r.String(), 64)
		if err != nil {
			common.Log.Debug("Error parsing number %v err=%v. Using 0.0.", r.String(), err)
			fVal = 0.0
		}
		return MakeFloat(fVal), nil
	}

	intVal, err := strconv.ParseInt(r.String(), 10, 64)
	if err != nil {
		common.Log.Debug("Error parsing number %v err=%v. Using 0.", r.String(), err)
		intVal = 0
	}
	return MakeInteger(intVal), nil
}
