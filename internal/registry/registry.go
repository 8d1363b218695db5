// Package registry fetches the skill index and skill bodies from a remote
// HTTPS source or a local filesystem mirror.
//
// Both variants expose the same two operations and are indistinguishable to
// callers. Errors are classified into four sentinel kinds so the routing
// layer can pick the right cache fallback.
package registry

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"skillrouter/internal/index"
)

// Error kinds. Callers classify with errors.Is.
var (
	ErrNotFound           = errors.New("registry: not found")
	ErrNetworkUnavailable = errors.New("registry: network unavailable")
	ErrMalformed          = errors.New("registry: malformed index")
	ErrIntegrityMismatch  = errors.New("registry: body integrity mismatch")
)

// indexPath is the index document location under the registry root.
const indexPath = "index.json"

// Registry is a source of skill indexes and skill bodies.
type Registry interface {
	// FetchIndex retrieves and parses the skill index.
	FetchIndex(ctx context.Context) (index.Index, error)

	// FetchBody retrieves the full instruction text for one skill, located
	// by the descriptor's body path. The returned bytes are verified
	// against the descriptor's body hash; on disagreement the body is
	// discarded and ErrIntegrityMismatch is returned.
	FetchBody(ctx context.Context, desc index.Descriptor) ([]byte, error)
}

// HashHex returns the lowercase SHA-256 hex digest of data.
func HashHex(data []byte) string {
	sum := sha256.Sum256(data)

	return hex.EncodeToString(sum[:])
}

func verifyBody(data []byte, expectedHash string) ([]byte, error) {
	if got := HashHex(data); got != expectedHash {
		return nil, ErrIntegrityMismatch
	}

	return data, nil
}
