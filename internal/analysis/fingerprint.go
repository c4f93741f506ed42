package analysis

import (
	"crypto/sha256"
	"fmt"
	"strconv"
	"strings"
)

// Identity selects what identifies a file in its fingerprint.
type Identity string

const (
	// IdentityName keys results by file name only. Two different files
	// uploaded under the same name share a result.
	IdentityName Identity = "name"
	// IdentityContent keys results by name plus a hash of the content.
	IdentityContent Identity = "content"
)

// ParseIdentity validates an identity name. An empty string selects
// IdentityContent.
func ParseIdentity(s string) (Identity, error) {
	switch Identity(s) {
	case "", IdentityContent:
		return IdentityContent, nil
	case IdentityName:
		return IdentityName, nil
	default:
		return "", fmt.Errorf("unknown cache identity: %s (want name or content)", s)
	}
}

// HashKey creates a SHA-256 hash of the given key material.
func HashKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return fmt.Sprintf("%x", h)
}

// Fingerprint derives the cache key for one submission. Only the dimensions
// that change the service's output for cfg.Mode participate, so editing an
// unrelated option does not invalidate a cached result.
func Fingerprint(id Identity, name string, content []byte, cfg RunConfig) string {
	parts := []string{fileIdentity(id, name, content), string(cfg.Mode)}
	switch cfg.Mode {
	case ModeFormat:
		parts = append(parts, cfg.Format.Indent, cfg.Format.Brace, cfg.Format.Comma)
	case ModeGPTFormat:
		parts = append(parts, cfg.Model, cfg.Language)
	case ModeReview:
		parts = append(parts, cfg.Model, strconv.FormatBool(cfg.SummaryOnly))
	case ModeScan:
		parts = append(parts, strconv.FormatBool(cfg.GPTFeedback))
		if cfg.GPTFeedback {
			parts = append(parts, cfg.Model)
		}
	}
	// Length-prefix each part so no separator inside a value can collide.
	var b strings.Builder
	for _, p := range parts {
		fmt.Fprintf(&b, "%d:%s;", len(p), p)
	}
	return HashKey(b.String())
}

func fileIdentity(id Identity, name string, content []byte) string {
	if id == IdentityName {
		return name
	}
	h := sha256.Sum256(content)
	return fmt.Sprintf("%s@%x", name, h)
}
