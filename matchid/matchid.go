// Package matchid generates and validates the short codes players type to
// find each other's matches.
package matchid

import (
	"math/rand/v2"
	"strings"

	"github.com/google/uuid"
)

// Length is the number of characters in a match id.
const Length = 5

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// groupNamespace scopes GroupKey so match ids never collide with other
// name-based UUIDs derived from the same strings.
var groupNamespace = uuid.NewMD5(uuid.NameSpaceOID, []byte("matchlobby/match-group"))

// GetRandomMatchID returns a random code of Length characters, each drawn
// uniformly from A-Z and 0-9. Uniqueness is not guaranteed; the registry
// rejects ids that are already live.
func GetRandomMatchID() string {
	var sb strings.Builder
	sb.Grow(Length)
	for i := 0; i < Length; i++ {
		sb.WriteByte(alphabet[rand.IntN(len(alphabet))])
	}
	return sb.String()
}

// Normalize trims and upper-cases user input.
func Normalize(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

// Validate reports whether id is exactly Length characters of [A-Z0-9].
func Validate(id string) bool {
	if len(id) != Length {
		return false
	}
	for i := 0; i < len(id); i++ {
		if strings.IndexByte(alphabet, id[i]) < 0 {
			return false
		}
	}
	return true
}

// GroupKey derives the fixed 16-byte routing key for a match id. Players of
// the same match share the key; it is stable across processes.
func GroupKey(id string) uuid.UUID {
	return uuid.NewMD5(groupNamespace, []byte(id))
}
