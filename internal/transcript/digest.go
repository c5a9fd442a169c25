package transcript

import (
	"fmt"
	"io"

	"github.com/zeebo/blake3"
)

// Digest returns the hex BLAKE3 hash of a source text.
func Digest(src string) string {
	h := blake3.New()
	_, _ = io.WriteString(h, src)
	return fmt.Sprintf("%x", h.Sum(nil))
}
