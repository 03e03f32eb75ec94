package id

import (
	"crypto/rand"

	"github.com/oklog/ulid/v2"
)

// New generates a new ULID string. ULIDs are lexicographically sortable
// by creation time; session tokens use them as their jti.
func New() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}
