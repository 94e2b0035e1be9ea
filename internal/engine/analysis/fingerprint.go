// Package analysis implements the analysis orchestration core: the
// fingerprint cache over extracted document variants, the guardrail gate
// and rate limiter that decide whether a paid analysis may run, the
// zero-cost local scoring engine, and the context chain that compresses
// one stage's result into the next stage's prompt context.
package analysis

import (
	"crypto/sha256"
	"encoding/hex"
)

// fingerprintSep separates resume from JD text before hashing. Fixed so the
// hash is order-sensitive: swapping the two texts changes the fingerprint.
const fingerprintSep = "\x1f::\x1f"

// Fingerprint returns the content hash of a (resume, JD) text pair.
// Deterministic; any single-character edit to either text changes it.
func Fingerprint(resumeText, jdText string) string {
	h := sha256.New()
	h.Write([]byte(resumeText))
	h.Write([]byte(fingerprintSep))
	h.Write([]byte(jdText))
	return hex.EncodeToString(h.Sum(nil))
}
