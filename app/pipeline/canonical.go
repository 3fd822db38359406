package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Documents shorter than this after normalization are noise, not errors.
const minDocumentRunes = 20

var (
	crlfRuns = regexp.MustCompile(`(\r\n)+`)
	lfRuns   = regexp.MustCompile(`\n{2,}`)
)

// Canonicalize normalizes raw document text: bytes that cannot round-trip
// through UTF-8 are dropped, runs of line breaks collapse to one, and
// surrounding whitespace is trimmed. Returns false for documents too short
// to be worth indexing.
func Canonicalize(text string) (string, bool) {
	text = strings.ToValidUTF8(text, "")
	text = crlfRuns.ReplaceAllString(text, "\r\n")
	text = lfRuns.ReplaceAllString(text, "\n")
	text = strings.TrimSpace(text)

	if utf8.RuneCountInString(text) < minDocumentRunes {
		return "", false
	}
	return text, true
}

// ContentHash is the identity of a document: sha256 over the UTF-8 bytes
// of its normalized text, hex-encoded. Identical normalized text always
// yields an identical hash, which makes every downstream insert idempotent.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
