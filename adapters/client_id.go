package adapters

import (
	"strings"

	"github.com/google/uuid"
)

const ClientIDLength = 16

// RandomClientID returns ClientIDLength random alphanumeric characters.
func RandomClientID() string {
	var b strings.Builder
	for b.Len() < ClientIDLength {
		b.WriteString(strings.ReplaceAll(uuid.NewString(), "-", ""))
	}
	return b.String()[:ClientIDLength]
}
