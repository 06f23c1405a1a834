package admission

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const (
	maxNameLength = 128
	suffixBytes   = 4
)

// Namer derives the registered thing name from a claim identity. The result
// depends on nothing but the prefix and the identity, so retried attempts for
// one device always converge on one name.
type Namer struct {
	Prefix string
}

func (n Namer) NameFor(identity string) string {
	sanitized := sanitize(identity)
	name := n.Prefix + sanitized
	if sanitized == identity && len(name) <= maxNameLength {
		return name
	}

	// Sanitizing or truncating can map distinct identities onto one string;
	// the hash of the raw identity keeps them apart.
	sum := sha256.Sum256([]byte(identity))
	suffix := hex.EncodeToString(sum[:suffixBytes])
	keep := maxNameLength - len(n.Prefix) - 1 - len(suffix)
	if keep < 0 {
		keep = 0
	}
	if len(sanitized) > keep {
		sanitized = sanitized[:keep]
	}
	return n.Prefix + sanitized + "_" + suffix
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == ':' || r == '_' || r == '-':
			return r
		default:
			return '_'
		}
	}, s)
}
