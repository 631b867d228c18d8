package xray

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

// parenthetical matches ASCII and full-width parenthesized content, e.g.
// "约翰 (旁白者)" or "胡安娜（帕拉太太）".
var parenthetical = regexp.MustCompile(`[（(][^）)]*[）)]`)

// CanonicalName normalizes a display name into its deduplication
// identity: lowercased, trimmed, parenthetical content stripped, internal
// whitespace collapsed. Two records with the same canonical name are the
// same entity.
func CanonicalName(name string) string {
	name = parenthetical.ReplaceAllString(name, "")
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.Join(strings.Fields(name), " ")
}

// EntityID derives a stable id from a display name: prefix plus the
// first 8 hex chars of a content hash. The same name always yields the
// same id across runs.
func EntityID(prefix, name string) string {
	sum := sha256.Sum256([]byte(name))
	return fmt.Sprintf("%s_%s", prefix, hex.EncodeToString(sum[:])[:8])
}
