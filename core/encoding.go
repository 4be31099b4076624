/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package core

// Stream filter decoding. Currently supported:
//   - FlateDecode, including the PNG and TIFF predictors (§7.4.4 / §7.4.4.4)
//   - Raw (identity, no /Filter entry)
//
// Every other filter name (LZWDecode, DCTDecode, RunLengthDecode,
// ASCIIHexDecode, ASCII85Decode, CCITTFaxDecode, JBIG2Decode, JPXDecode) is
// passed through undecoded: for DCTDecode/JPXDecode this is the desired
// behavior (the bytes are already JPEG/JPEG2000, the format PageImage wants
// for web delivery); for the rest it means the consumer sees filtered bytes
// it cannot use, logged once as a debug warning rather than failing the
// whole document.

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"

	"github.com/windrose-labs/pdfrender/common"
)

// Stream encoding filter names (PDF spec §7.4).
const (
	StreamEncodingFilterNameFlate     = "FlateDecode"
	StreamEncodingFilterNameLZW       = "LZWDecode"
	StreamEncodingFilterNameDCT       = "DCTDecode"
	StreamEncodingFilterNameRunLength = "RunLengthDecode"
	StreamEncodingFilterNameASCIIHex  = "ASCIIHexDecode"
	StreamEncodingFilterNameASCII85   = "ASCII85Decode"
	StreamEncodingFilterNameCCITTFax  = "CCITTFaxDecode"
	StreamEncodingFilterNameJBIG2     = "JBIG2Decode"
	StreamEncodingFilterNameJPX       = "JPXDecode"
	StreamEncodingFilterNameRaw       = "Raw"
)

// maxInflateRatio and maxInflateBytes bound FlateDecode output: a stream
// decompressing past either is rejected as a zip bomb (spec.md's S6 safety
// scenario) rather than allowed to exhaust memory.
const (
	maxInflateRatio = 100
	maxInflateBytes = 100 << 20 // 100 MiB
)

// Prediction filters, PNG (§7.4.4.4) and TIFF (§7.4.4.3 via Predictor 2).
const (
	pfNone  = 0
	pfSub   = 1
	pfUp    = 2
	pfAvg   = 3
	pfPaeth = 4
)

// FlateEncoder decodes a FlateDecode-filtered stream, applying a PNG or TIFF
// predictor if /DecodeParms names one.
type FlateEncoder struct {
	Predictor        int
	BitsPerComponent int
	Columns          int
	Colors           int
}

// NewFlateEncoder returns a FlateEncoder with the filter's defaults: no
// prediction, 8 bits per component, one column of one color.
func NewFlateEncoder() *FlateEncoder {
	return &FlateEncoder{Predictor: 1, BitsPerComponent: 8, Colors: 1, Columns: 1}
}

// newFlateEncoderFromParams builds a FlateEncoder from a (possibly nil)
// /DecodeParms dictionary.
func newFlateEncoderFromParams(parms *PdfObjectDictionary) *FlateEncoder {
	enc := NewFlateEncoder()
	if parms == nil {
		return enc
	}
	if v, ok := GetIntVal(parms.Get("Predictor")); ok {
		enc.Predictor = v
	}
	if v, ok := GetIntVal(parms.Get("BitsPerComponent")); ok {
		enc.BitsPerComponent = v
	}
	if enc.Predictor > 1 {
		enc.Columns = 1
		if v, ok := GetIntVal(parms.Get("Columns")); ok {
			enc.Columns = v
		}
		enc.Colors = 1
		if v, ok := GetIntVal(parms.Get("Colors")); ok {
			enc.Colors = v
		}
	}
	return enc
}

// DecodeBytes inflates a zlib/deflate stream, rejecting output that grows
// past maxInflateRatio times the compressed size or maxInflateBytes outright.
func (enc *FlateEncoder) DecodeBytes(encoded []byte) ([]byte, error) {
	if len(encoded) == 0 {
		return []byte{}, nil
	}

	r, err := zlib.NewReader(bytes.NewReader(encoded))
	if err != nil {
		return nil, err
	}
	defer r.Close()

	limit := int64(maxInflateBytes)
	if ratioLimit := int64(len(encoded)) * maxInflateRatio; ratioLimit > 0 && ratioLimit < limit {
		limit = ratioLimit
	}

	var outBuf bytes.Buffer
	n, err := io.CopyN(&outBuf, r, limit+1)
	if err != nil && err != io.EOF {
		return nil, err
	}
	if n > limit {
		ratio := float64(n) / float64(len(encoded))
		return nil, common.NewZipBombError("FlateDecode output exceeds safety ceiling", ratio)
	}

	return outBuf.Bytes(), nil
}

// postDecodePredict reverses the PNG or TIFF predictor applied to outData,
// grounded on the PDF spec's §7.4.4.4 sample-reconstruction algorithm.
func (enc *FlateEncoder) postDecodePredict(outData []byte) ([]byte, error) {
	if enc.Predictor <= 1 {
		return outData, nil
	}

	if enc.Predictor == 2 {
		rowLength := enc.Columns * enc.Colors
		if rowLength < 1 {
			return []byte{}, nil
		}
		if len(outData)%rowLength != 0 {
			return nil, fmt.Errorf("invalid TIFF predictor row length (%d/%d)", len(outData), rowLength)
		}
		rows := len(outData) / rowLength

		var out bytes.Buffer
		for i := 0; i < rows; i++ {
			row := outData[rowLength*i : rowLength*(i+1)]
			for j := enc.Colors; j < rowLength; j++ {
				row[j] += row[j-enc.Colors]
			}
			out.Write(row)
		}
		return out.Bytes(), nil
	}

	if enc.Predictor < 10 || enc.Predictor > 15 {
		return nil, fmt.Errorf("unsupported predictor (%d)", enc.Predictor)
	}

	rowLength := enc.Columns*enc.Colors + 1
	if rowLength <= 1 {
		return nil, fmt.Errorf("invalid PNG predictor row length (%d)", rowLength)
	}
	if len(outData)%rowLength != 0 {
		return nil, fmt.Errorf("invalid PNG predictor row length (%d/%d)", len(outData), rowLength)
	}
	rows := len(outData) / rowLength
	bytesPerPixel := enc.Colors

	var out bytes.Buffer
	prevRow := make([]byte, rowLength)
	for i := 0; i < rows; i++ {
		row := outData[rowLength*i : rowLength*(i+1)]
		switch row[0] {
		case pfNone:
		case pfSub:
			for j := 1 + bytesPerPixel; j < rowLength; j++ {
				row[j] += row[j-bytesPerPixel]
			}
		case pfUp:
			for j := 1; j < rowLength; j++ {
				row[j] += prevRow[j]
			}
		case pfAvg:
			for j := 1; j < bytesPerPixel+1; j++ {
				row[j] += prevRow[j] / 2
			}
			for j := bytesPerPixel + 1; j < rowLength; j++ {
				row[j] += byte((int(row[j-bytesPerPixel]) + int(prevRow[j])) / 2)
			}
		case pfPaeth:
			for j := 1; j < rowLength; j++ {
				var a, b, c byte
				b = prevRow[j]
				if j >= bytesPerPixel+1 {
					a = row[j-bytesPerPixel]
					c = prevRow[j-bytesPerPixel]
				}
				row[j] += paeth(a, b, c)
			}
		default:
			return nil, fmt.Errorf("invalid PNG predictor filter byte (%d) at row %d", row[0], i)
		}
		copy(prevRow, row)
		out.Write(row[1:])
	}
	return out.Bytes(), nil
}

// decodeFlate decodes one FlateDecode filter stage.
func decodeFlate(data []byte, parms *PdfObjectDictionary) ([]byte, error) {
	enc := newFlateEncoderFromParams(parms)
	if enc.BitsPerComponent != 8 {
		return nil, fmt.Errorf("invalid BitsPerComponent=%d (only 8 supported)", enc.BitsPerComponent)
	}
	decoded, err := enc.DecodeBytes(data)
	if err != nil {
		return nil, err
	}
	return enc.postDecodePredict(decoded)
}
