/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package core

import (
	"github.com/windrose-labs/pdfrender/common"
)

// filterStage decodes one stage of a stream's filter chain.
type filterStage func(data []byte, parms *PdfObjectDictionary) ([]byte, error)

// filterStages maps a filter name to the stage that decodes it. A name
// absent from this map is passed through undecoded by DecodeStream.
var filterStages = map[string]filterStage{
	StreamEncodingFilterNameFlate: decodeFlate,
}

// filterChain reads /Filter and /DecodeParms (accepting the legacy /DP alias)
// off dict, returning the filter names in application order together with
// their per-stage parameters (nil where a stage has none).
func filterChain(dict *PdfObjectDictionary) (names []string, parms []*PdfObjectDictionary) {
	switch t := dict.Get("Filter").(type) {
	case *PdfObjectName:
		names = []string{string(*t)}
	case *PdfObjectArray:
		for _, o := range t.Elements() {
			if n, ok := o.(*PdfObjectName); ok {
				names = append(names, string(*n))
			}
		}
	}
	if len(names) == 0 {
		return nil, nil
	}

	parmsObj := dict.Get("DecodeParms")
	if parmsObj == nil {
		parmsObj = dict.Get("DP")
	}
	switch t := parmsObj.(type) {
	case *PdfObjectDictionary:
		parms = []*PdfObjectDictionary{t}
	case *PdfObjectArray:
		for _, o := range t.Elements() {
			d, _ := o.(*PdfObjectDictionary)
			parms = append(parms, d)
		}
	}
	return names, parms
}

// DecodeStream runs streamObj's bytes through its filter chain in dictionary
// order, per spec §3: "Filter chain is applied in dictionary order". A
// filter this engine doesn't implement is left undecoded with a logged
// warning rather than failing the whole stream.
func DecodeStream(streamObj *PdfObjectStream) ([]byte, error) {
	names, parms := filterChain(streamObj.PdfObjectDictionary)

	data := streamObj.Stream
	for i, name := range names {
		if name == "" || name == StreamEncodingFilterNameRaw {
			continue
		}

		stage, ok := filterStages[name]
		if !ok {
			common.Log.Debug("unsupported filter %q - passing stream through undecoded", name)
			continue
		}

		var p *PdfObjectDictionary
		if i < len(parms) {
			p = parms[i]
		}

		decoded, err := stage(data, p)
		if err != nil {
			return nil, err
		}
		data = decoded
	}

	return data, nil
}
