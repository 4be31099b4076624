/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package model

import (
	"errors"
	"fmt"
	"io"

	"github.com/windrose-labs/pdfrender/common"
	"github.com/windrose-labs/pdfrender/core"
)

// maxPageTreeDepth bounds the recursion depth of the page tree walk, guarding
// against a malicious or corrupted /Kids cycle that the visited-node map
// doesn't otherwise catch (a long Pages->Pages->...->Page chain rather than
// a back-reference).
const maxPageTreeDepth = 100

// PdfReader represents a PDF file reader. It is a frontend to the lower level
// parsing mechanism and provides higher level access to the page tree and
// the resources (fonts, images, form XObjects) hung off it.
type PdfReader struct {
	parser    *core.PdfParser
	root      core.PdfObject
	pages     *core.PdfObjectDictionary
	pageList  []*core.PdfIndirectObject
	PageList  []*PdfPage
	pageCount int
	catalog   *core.PdfObjectDictionary

	modelManager *modelManager

	rs io.ReadSeeker
}

// NewPdfReader returns a new PdfReader for an input io.ReadSeeker. Immediately
// loads and traverses the PDF structure including the page tree (if the
// document is not encrypted).
func NewPdfReader(rs io.ReadSeeker) (*PdfReader, error) {
	pdfReader := &PdfReader{
		rs:           rs,
		modelManager: newModelManager(),
	}

	parser, err := core.NewParser(rs)
	if err != nil {
		return nil, err
	}
	pdfReader.parser = parser

	if !pdfReader.IsEncrypted() {
		if err := pdfReader.loadStructure(); err != nil {
			return nil, err
		}
	}

	return pdfReader, nil
}

// PdfVersion returns version of the PDF file.
func (r *PdfReader) PdfVersion() core.Version {
	return r.parser.PdfVersion()
}

// IsEncrypted returns true if the PDF file is encrypted.
func (r *PdfReader) IsEncrypted() bool {
	return r.parser.IsEncrypted()
}

// Decrypt decrypts the PDF file with the specified owner/user passwords
// (either may be empty) and, on success, loads the page tree.
func (r *PdfReader) Decrypt(ownerPassword, userPassword string) (bool, error) {
	success, err := r.parser.DecryptWithPasswords(ownerPassword, userPassword)
	if err != nil {
		return false, err
	}
	if !success {
		return false, nil
	}

	if err := r.loadStructure(); err != nil {
		common.Log.Debug("ERROR: Fail to load structure (%s)", err)
		return false, err
	}

	return true, nil
}

// resolve dereferences obj through the parser, satisfying the core.Resolver
// contract this reader is bound to.
func (r *PdfReader) resolve(obj core.PdfObject) core.PdfObject {
	return core.Resolve(r.parser, obj)
}

// Resolve implements core.Resolver so model code can hand the reader itself
// down to helpers that only need reference dereferencing.
func (r *PdfReader) Resolve(ref *core.PdfObjectReference) (core.PdfObject, error) {
	return r.parser.Resolve(ref)
}

// loadStructure loads the catalog and walks the page tree.
func (r *PdfReader) loadStructure() error {
	if r.parser.NeedsDecryption() {
		return errors.New("file needs to be decrypted first")
	}

	trailerDict := r.parser.GetTrailer()
	if trailerDict == nil {
		return errors.New("missing trailer")
	}

	rootRef, ok := trailerDict.Get("Root").(*core.PdfObjectReference)
	if !ok {
		return fmt.Errorf("invalid Root (trailer: %s)", trailerDict)
	}
	oc, err := r.parser.LookupByReference(*rootRef)
	if err != nil {
		common.Log.Debug("ERROR: Failed to read root element catalog: %s", err)
		return err
	}
	pcatalog, ok := oc.(*core.PdfIndirectObject)
	if !ok {
		common.Log.Debug("ERROR: Missing catalog: (root %v)", oc)
		return errors.New("missing catalog")
	}
	catalog, ok := pcatalog.PdfObject.(*core.PdfObjectDictionary)
	if !ok {
		common.Log.Debug("ERROR: Invalid catalog (%s)", pcatalog.PdfObject)
		return errors.New("invalid catalog")
	}
	common.Log.Trace("Catalog: %s", catalog)

	pagesRef, ok := catalog.Get("Pages").(*core.PdfObjectReference)
	if !ok {
		return errors.New("pages in catalog should be a reference")
	}
	op, err := r.parser.LookupByReference(*pagesRef)
	if err != nil {
		common.Log.Debug("ERROR: Failed to read pages")
		return err
	}
	ppages, ok := op.(*core.PdfIndirectObject)
	if !ok {
		common.Log.Debug("ERROR: Pages object invalid")
		return errors.New("pages object invalid")
	}
	pages, ok := ppages.PdfObject.(*core.PdfObjectDictionary)
	if !ok {
		common.Log.Debug("ERROR: Pages object invalid (%s)", ppages)
		return errors.New("pages object invalid")
	}

	if _, ok = core.GetName(pages.Get("Type")); !ok {
		common.Log.Debug("Pages dict Type field not set. Setting Type to Pages.")
		pages.Set("Type", core.MakeName("Pages"))
	}

	r.root = rootRef
	r.catalog = catalog
	r.pages = pages
	r.pageList = []*core.PdfIndirectObject{}

	inherited := inheritableAttrs{
		MediaBox: defaultMediaBox(),
	}
	if obj := pages.Get("Resources"); obj != nil {
		inherited.Resources, _ = core.GetDict(r.resolve(obj))
	}
	if obj := pages.Get("MediaBox"); obj != nil {
		if rect, err := rectFromObject(r.resolve(obj)); err == nil {
			inherited.MediaBox = rect
		}
	}
	if obj := pages.Get("CropBox"); obj != nil {
		inherited.CropBox, _ = rectFromObjectPtr(r.resolve(obj))
	}
	if v, ok := core.GetIntVal(pages.Get("Rotate")); ok {
		inherited.Rotate = v
	}

	traversedPageNodes := map[core.PdfObject]struct{}{}
	if err := r.buildPageList(ppages, inherited, traversedPageNodes, 0); err != nil {
		return err
	}
	r.pageCount = len(r.pageList)

	common.Log.Trace("---")
	common.Log.Trace("TOC")
	common.Log.Trace("Pages")
	common.Log.Trace("%d: %s", len(r.pageList), r.pageList)

	return nil
}

// inheritableAttrs carries the page-tree attributes (§7.7.3.4 of the PDF
// spec) that propagate from a Pages node down to its Page descendants unless
// overridden.
type inheritableAttrs struct {
	Resources *core.PdfObjectDictionary
	MediaBox  PdfRectangle
	CropBox   *PdfRectangle
	Rotate    int
}

// buildPageList walks the page tree rooted at node, materializing a PdfPage
// for every /Type /Page leaf and merging inheritable attributes down through
// /Type /Pages intermediates. depth guards against pathological trees that
// the already-visited map doesn't catch (a long non-cyclic chain).
func (r *PdfReader) buildPageList(node *core.PdfIndirectObject, inherited inheritableAttrs, traversedPageNodes map[core.PdfObject]struct{}, depth int) error {
	if node == nil {
		return nil
	}
	if depth > maxPageTreeDepth {
		return errors.New("page tree exceeds maximum depth")
	}
	if _, alreadyTraversed := traversedPageNodes[node]; alreadyTraversed {
		common.Log.Debug("Cyclic recursion, skipping (%v)", node.ObjectNumber)
		return nil
	}
	traversedPageNodes[node] = struct{}{}

	nodeDict, ok := node.PdfObject.(*core.PdfObjectDictionary)
	if !ok {
		return errors.New("node not a dictionary")
	}

	objType, ok := core.GetName(nodeDict.Get("Type"))
	if !ok {
		if nodeDict.Get("Kids") == nil {
			return errors.New("node missing Type (Required)")
		}
		common.Log.Debug("ERROR: node missing Type, but has Kids. Assuming Pages node.")
		objType = core.MakeName("Pages")
		nodeDict.Set("Type", objType)
	}

	next := mergeInheritable(inherited, nodeDict, r)

	if string(*objType) == "Page" {
		p, err := r.newPdfPageFromDict(nodeDict, next)
		if err != nil {
			return err
		}
		p.setContainer(node)
		p.reader = r

		r.pageList = append(r.pageList, node)
		r.PageList = append(r.PageList, p)
		return nil
	}
	if string(*objType) != "Pages" {
		common.Log.Debug("ERROR: Table of content containing non Page/Pages object! (%s)", objType)
		return errors.New("table of content containing non Page/Pages object")
	}

	kidsObj := r.resolve(nodeDict.Get("Kids"))
	kids, ok := kidsObj.(*core.PdfObjectArray)
	if !ok {
		kidsIndirect, isIndirect := kidsObj.(*core.PdfIndirectObject)
		if !isIndirect {
			return errors.New("invalid Kids object")
		}
		kids, ok = kidsIndirect.PdfObject.(*core.PdfObjectArray)
		if !ok {
			return errors.New("invalid Kids indirect object")
		}
	}

	for idx, child := range kids.Elements() {
		childInd, ok := core.GetIndirect(r.resolve(child))
		if !ok {
			common.Log.Debug("ERROR: Page not indirect object - (%s)", child)
			return errors.New("page not indirect object")
		}
		kids.Set(idx, childInd)
		if err := r.buildPageList(childInd, next, traversedPageNodes, depth+1); err != nil {
			return err
		}
	}

	return nil
}

// mergeInheritable merges nodeDict's own Resources/MediaBox/CropBox/Rotate
// over parent, per the inheritance rules of PDF spec §7.7.3.4.
func mergeInheritable(parent inheritableAttrs, nodeDict *core.PdfObjectDictionary, res core.Resolver) inheritableAttrs {
	out := parent
	if obj := nodeDict.Get("Resources"); obj != nil {
		if d, ok := core.GetDict(core.Resolve(res, obj)); ok {
			out.Resources = d
		}
	}
	if obj := nodeDict.Get("MediaBox"); obj != nil {
		if rect, err := rectFromObject(core.Resolve(res, obj)); err == nil {
			out.MediaBox = rect
		}
	}
	if obj := nodeDict.Get("CropBox"); obj != nil {
		if rect, ok := rectFromObjectPtr(core.Resolve(res, obj)); ok {
			out.CropBox = rect
		}
	}
	if v, ok := core.GetIntVal(nodeDict.Get("Rotate")); ok {
		out.Rotate = v
	}
	return out
}

// GetNumPages returns the number of pages in the document.
func (r *PdfReader) GetNumPages() (int, error) {
	if r.parser.NeedsDecryption() {
		return 0, errors.New("file needs to be decrypted first")
	}
	return len(r.pageList), nil
}

// PageFromIndirectObject returns the PdfPage and 1-based page number for a
// given indirect object.
func (r *PdfReader) PageFromIndirectObject(ind *core.PdfIndirectObject) (*PdfPage, int, error) {
	if len(r.PageList) != len(r.pageList) {
		return nil, 0, errors.New("page list invalid")
	}
	for i, pageInd := range r.pageList {
		if pageInd == ind {
			return r.PageList[i], i + 1, nil
		}
	}
	return nil, 0, errors.New("page not found")
}

// GetPage returns the PdfPage model for the specified 1-based page number.
func (r *PdfReader) GetPage(pageNumber int) (*PdfPage, error) {
	if r.parser.NeedsDecryption() {
		return nil, errors.New("file needs to be decrypted first")
	}
	if len(r.pageList) < pageNumber {
		return nil, errors.New("invalid page number (page count too short)")
	}
	idx := pageNumber - 1
	if idx < 0 {
		return nil, fmt.Errorf("page numbering must start at 1")
	}
	return r.PageList[idx], nil
}

// GetObjectNums returns the object numbers of the PDF objects in the file.
func (r *PdfReader) GetObjectNums() []int {
	return r.parser.GetObjectNums()
}

// GetIndirectObjectByNumber retrieves and returns a specific PdfObject by
// object number.
func (r *PdfReader) GetIndirectObjectByNumber(number int) (core.PdfObject, error) {
	return r.parser.LookupByNumber(number)
}

// GetTrailer returns the PDF's trailer dictionary.
func (r *PdfReader) GetTrailer() (*core.PdfObjectDictionary, error) {
	trailerDict := r.parser.GetTrailer()
	if trailerDict == nil {
		return nil, errors.New("trailer missing")
	}
	return trailerDict, nil
}
