package app

import (
	"strings"

	"github.com/google/uuid"
)

func newID() string {
	return uuid.NewString()
}

// newMerchantRef returns the reference handed to payment providers. It is
// short enough for mobile-money memo fields.
func newMerchantRef() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "UF-" + strings.ToUpper(raw[:16])
}

// validID reports whether s can name a stored row. Postgres answers any
// other value with 22P02, which aborts the surrounding transaction.
func validID(s string) bool {
	return uuid.Validate(s) == nil
}
