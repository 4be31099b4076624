/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package contentstream

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/windrose-labs/pdfrender/core"
)

// TestTJArrayParsing checks that a TJ operator mixing strings and numeric
// spacing adjustments parses into a single operation carrying both kinds of
// array element in order, the shape handleCommand_TJ relies on to decide
// where to insert a word-space gap.
func TestTJArrayParsing(t *testing.T) {
	content := `BT
	[(are)-328(hypothesized)]TJ
	ET`

	ops, err := NewContentStreamParser(content).Parse()
	require.NoError(t, err)
	require.Len(t, *ops, 3)
	require.Equal(t, "BT", (*ops)[0].Operand)
	require.Equal(t, "ET", (*ops)[2].Operand)

	tj := (*ops)[1]
	require.Equal(t, "TJ", tj.Operand)
	require.Len(t, tj.Params, 1)

	arr, ok := tj.Params[0].(*core.PdfObjectArray)
	require.True(t, ok)
	require.Equal(t, 3, arr.Len())

	str, ok := arr.Get(0).(*core.PdfObjectString)
	require.True(t, ok)
	require.Equal(t, "are", str.Str())

	adj, err := core.GetNumberAsFloat(arr.Get(1))
	require.NoError(t, err)
	require.Equal(t, -328.0, adj)

	str, ok = arr.Get(2).(*core.PdfObjectString)
	require.True(t, ok)
	require.Equal(t, "hypothesized", str.Str())
}
