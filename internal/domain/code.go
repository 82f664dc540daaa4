package domain

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
)

const (
	DefaultCodeLength = 6

	joinCodeChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// CodeGenerator produces candidate room codes. Candidates may collide; the
// registry is responsible for retrying.
type CodeGenerator interface {
	Generate() (string, error)
}

type randomCodeGenerator struct {
	length  int
	charset string
	max     *big.Int
}

// NewCodeGenerator returns a generator of uppercase alphanumeric codes of the
// given length. A non-positive length falls back to DefaultCodeLength.
func NewCodeGenerator(length int) CodeGenerator {
	if length <= 0 {
		length = DefaultCodeLength
	}

	return &randomCodeGenerator{
		length:  length,
		charset: joinCodeChars,
		max:     big.NewInt(int64(len(joinCodeChars))),
	}
}

func (g *randomCodeGenerator) Generate() (string, error) {
	var sb strings.Builder
	sb.Grow(g.length)

	for i := 0; i < g.length; i++ {
		n, err := rand.Int(rand.Reader, g.max)
		if err != nil {
			return "", err
		}
		sb.WriteByte(g.charset[n.Int64()])
	}

	return sb.String(), nil
}

// CodeGeneratorFunc adapts a plain function to CodeGenerator.
type CodeGeneratorFunc func() (string, error)

func (f CodeGeneratorFunc) Generate() (string, error) {
	return f()
}

var errEmptyCode = errors.New("generator returned an empty code")

// ValidateGeneratedCode rejects codes no room may carry.
func ValidateGeneratedCode(code string) error {
	if strings.TrimSpace(code) == "" {
		return errEmptyCode
	}
	return nil
}

// NormalizeCode maps client input onto the canonical code form so that
// transcription differences in case or surrounding whitespace still resolve.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
