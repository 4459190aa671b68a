package xid

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// New returns a prefixed identifier such as "inv-3f0c...".
func New(prefix string) string {
	id, err := uuid.NewRandom()
	if err != nil {
		buf := make([]byte, 16)
		_, _ = rand.Read(buf)
		return fmt.Sprintf("%s-%s", prefix, hex.EncodeToString(buf))
	}
	return fmt.Sprintf("%s-%s", prefix, id.String())
}
