/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

// Package safety implements the conversion engine's safety envelope: a
// wall-clock deadline polled between pages, bounded recursion for Form
// XObjects and the q/Q graphics-state stack, and a pre-flight audit of the
// raw document bytes that flags documents likely to be adversarial before
// any object is parsed.
package safety

import (
	"bytes"
	"regexp"
	"time"

	"github.com/windrose-labs/pdfrender/common"
)

// MaxFormDepth bounds how many nested Form XObjects the interpreter will
// follow through Do. PDF allows arbitrarily nested forms; a form that
// invokes itself (directly or through a cycle) would otherwise loop
// forever.
const MaxFormDepth = 8

// MaxGraphicsStackDepth bounds nested q...Q pairs. A content stream with
// more opens than this is almost certainly corrupt or adversarial rather
// than legitimately structured.
const MaxGraphicsStackDepth = 32

// MaxKidsDepth flags page trees nested deeper than a legitimate document
// would need; riskScore adds 50 for a /Kids run longer than it and 20 for
// one longer than half of it.
const MaxKidsDepth = 64

// Deadline wraps a wall-clock cutoff that the engine polls at page
// boundaries (and may poll more often inside a single page's interpreter
// loop). Once expired, Expired returns true for the rest of the document's
// conversion so the caller can stop early and return whatever pages it has
// already rendered.
type Deadline struct {
	deadline time.Time
	enabled  bool
}

// NewDeadline returns a Deadline that expires after `d`. A non-positive `d`
// returns a Deadline that never expires, the engine's "no timeout" mode.
func NewDeadline(d time.Duration) Deadline {
	if d <= 0 {
		return Deadline{}
	}
	return Deadline{deadline: time.Now().Add(d), enabled: true}
}

// Expired reports whether the deadline has passed.
func (d Deadline) Expired() bool {
	return d.enabled && time.Now().After(d.deadline)
}

// CheckErr returns a KindTimeout error if the deadline has expired, nil
// otherwise. Callers poll this between pages and, for large pages, between
// content stream operators.
func (d Deadline) CheckErr() error {
	if d.Expired() {
		return common.NewError(common.KindTimeout, "conversion deadline exceeded", nil)
	}
	return nil
}

// Remaining returns the time left before the deadline expires, so a caller
// that gets back a Timeout error can report which page it died on relative
// to how much budget it had. A disabled Deadline (no timeout configured)
// returns -1, which is never a usable duration and so can't be confused
// with "about to expire".
func (d Deadline) Remaining() time.Duration {
	if !d.enabled {
		return -1
	}
	return time.Until(d.deadline)
}

// RecursionGuard tracks Form XObject re-entry depth and the set of object
// references currently on the call stack, so a form that invokes itself
// (directly, or through a longer cycle) is caught even when the nominal
// depth bound hasn't been reached yet.
type RecursionGuard struct {
	depth   int
	active  map[int64]bool
}

// NewRecursionGuard returns an empty RecursionGuard.
func NewRecursionGuard() *RecursionGuard {
	return &RecursionGuard{active: make(map[int64]bool)}
}

// Enter attempts to push `objNum` onto the active call stack. It returns an
// error if the depth bound is exceeded or `objNum` is already active
// (a cycle). The caller must call Leave when it returns.
func (g *RecursionGuard) Enter(objNum int64) error {
	if g.depth >= MaxFormDepth {
		return common.NewError(common.KindRender, "form xobject recursion depth exceeded", nil)
	}
	if g.active[objNum] {
		return common.NewError(common.KindRender, "form xobject recursion cycle detected", nil)
	}
	g.active[objNum] = true
	g.depth++
	return nil
}

// Leave pops `objNum` off the active call stack.
func (g *RecursionGuard) Leave(objNum int64) {
	g.depth--
	delete(g.active, objNum)
}

// Audit is the result of a pre-flight scan of the raw, unparsed document
// bytes: cheap signals the engine checks before committing to a full parse.
type Audit struct {
	// SizeBytes is the length of the scanned document.
	SizeBytes int
	// ObjectCount is the number of "N G obj" markers found.
	ObjectCount int
	// MaxKidsChainLength is the longest run of consecutive /Kids tokens
	// found, a rough proxy for page-tree nesting depth.
	MaxKidsChainLength int
	// RiskScore is a 0-100 heuristic risk score; higher means more likely
	// to be adversarial or pathological. It is not a guarantee either way,
	// only an ordering signal for logging and for the caller to act on.
	RiskScore int
}

var (
	objRe  = regexp.MustCompile(`\d+\s+\d+\s+obj\b`)
	kidsRe = regexp.MustCompile(`/Kids\b`)
)

// RunAudit scans `data`, the raw bytes of the document before any parsing
// has happened, and returns an Audit summarizing size and structural
// signals used to flag documents worth extra caution.
func RunAudit(data []byte) Audit {
	a := Audit{SizeBytes: len(data)}
	a.ObjectCount = len(objRe.FindAll(data, -1))
	a.MaxKidsChainLength = longestRun(data, kidsRe)
	a.RiskScore = riskScore(a)
	return a
}

// longestRun returns the length of the longest run of consecutive matches
// of `re` separated by gaps of at most 64 bytes that contain no "endobj", used as a
// crude proxy for deeply nested /Kids arrays without doing a full parse.
func longestRun(data []byte, re *regexp.Regexp) int {
	locs := re.FindAllIndex(data, -1)
	if len(locs) == 0 {
		return 0
	}
	best, run := 1, 1
	const window = 64
	for i := 1; i < len(locs); i++ {
		gap := data[locs[i-1][1]:locs[i][0]]
		if len(gap) <= window && !bytes.Contains(gap, []byte("endobj")) {
			run++
		} else {
			run = 1
		}
		if run > best {
			best = run
		}
	}
	return best
}

// riskScore combines the audit's raw signals into a single 0-100 score.
// Weights are heuristic, tuned to flag the zip-bomb and deeply-nested-tree
// shapes the engine is most exposed to, not a statistically derived model.
func riskScore(a Audit) int {
	score := 0
	if a.SizeBytes > 0 {
		objectsPerKB := float64(a.ObjectCount) / (float64(a.SizeBytes) / 1024.0)
		if objectsPerKB > 5 {
			score += 30
		}
	}
	if a.MaxKidsChainLength > MaxKidsDepth {
		score += 50
	} else if a.MaxKidsChainLength > MaxKidsDepth/2 {
		score += 20
	}
	if a.ObjectCount > 500000 {
		score += 30
	}
	if score > 100 {
		score = 100
	}
	return score
}
