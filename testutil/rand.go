package testutil

import (
	"fmt"

	"github.com/brianvoe/gofakeit/v6"
)

// RandomAccount generates a random account identifier.
func RandomAccount() string {
	return fmt.Sprintf("acct-%s", gofakeit.LetterN(12))
}

// RandomAsset generates a random asset reference.
func RandomAsset() string {
	return fmt.Sprintf("asset-%s", gofakeit.LetterN(8))
}
