package services

import (
	"fmt"

	"github.com/teris-io/shortid"
)

// ShortCodeGenerator produces candidate short codes. Uniqueness is enforced by the store.
type ShortCodeGenerator interface {
	Generate() (string, error)
}

type ShortIDGenerator struct{}

func NewShortCodeGenerator() ShortCodeGenerator {
	return ShortIDGenerator{}
}

func (ShortIDGenerator) Generate() (string, error) {
	code, err := shortid.Generate()
	if err != nil {
		return "", fmt.Errorf("failed to generate short code: %w", err)
	}
	return code, nil
}
