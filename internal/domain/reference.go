package domain

import (
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

const DefaultReferencePrefix = "CREDIT"

const (
	emailFragmentLen  = 4
	referenceHexChars = 10
)

// NewReference builds a transaction reference of the form
// PREFIX-EMAL-<productID>-<10 upper hex chars>. The random suffix makes
// collisions unlikely but nothing checks for them.
func NewReference(prefix, email string, productID int) string {
	if prefix == "" {
		prefix = DefaultReferencePrefix
	}
	id := uuid.New()
	suffix := strings.ToUpper(hex.EncodeToString(id[:])[:referenceHexChars])
	return fmt.Sprintf("%s-%s-%d-%s", prefix, emailFragment(email), productID, suffix)
}

// emailFragment keeps only letters and digits so the reference stays within
// the gateway's allowed alphabet.
func emailFragment(email string) string {
	var b strings.Builder
	for _, r := range email {
		if b.Len() == emailFragmentLen {
			break
		}
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	if b.Len() == 0 {
		return "USER"
	}
	return b.String()
}
