// Package accesscode generates short random codes and issues them with a
// bounded number of retries when the store reports a collision.
package accesscode

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"

	"github.com/dukerupert/flock/internal/model"
)

const (
	// CodeAlphabet omits 0, O, I, 1 and L so codes survive being read aloud or
	// retyped from an SMS.
	CodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
	CodeLength   = 6

	// PasswordAlphabet is base58.
	PasswordAlphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"
	PasswordLength   = 8

	DefaultAttempts = 10
)

// ErrCodeSpaceExhausted is returned when every attempt collided with an existing code.
var ErrCodeSpaceExhausted = errors.New("accesscode: no unique code after max attempts")

// Generator draws fixed-length strings from an alphabet using a
// cryptographically strong source.
type Generator struct {
	Alphabet string
	Length   int
	Rand     io.Reader
}

// NewCodeGenerator returns the generator for livestream access codes.
func NewCodeGenerator() Generator {
	return Generator{Alphabet: CodeAlphabet, Length: CodeLength, Rand: rand.Reader}
}

// NewPasswordGenerator returns the generator for livestream passwords.
func NewPasswordGenerator() Generator {
	return Generator{Alphabet: PasswordAlphabet, Length: PasswordLength, Rand: rand.Reader}
}

func (g Generator) Generate() (string, error) {
	if g.Length <= 0 || g.Alphabet == "" {
		return "", fmt.Errorf("generate code: empty alphabet or length")
	}
	src := g.Rand
	if src == nil {
		src = rand.Reader
	}

	max := big.NewInt(int64(len(g.Alphabet)))
	out := make([]byte, g.Length)
	for i := range out {
		n, err := rand.Int(src, max)
		if err != nil {
			return "", fmt.Errorf("generate code: %w", err)
		}
		out[i] = g.Alphabet[n.Int64()]
	}
	return string(out), nil
}

// Issuer retries generate-then-insert until the insert succeeds or the
// attempt budget runs out. Only model.ErrDuplicateCode triggers a retry; any
// other insert error is returned immediately.
type Issuer struct {
	Generate func() (string, error)
	Attempts int
}

// NewIssuer returns an issuer for access codes with the default attempt budget.
func NewIssuer() Issuer {
	return Issuer{Generate: NewCodeGenerator().Generate, Attempts: DefaultAttempts}
}

// Issue returns the code that was stored and how many attempts it took.
func (i Issuer) Issue(ctx context.Context, insert func(ctx context.Context, code string) error) (string, int, error) {
	attempts := i.Attempts
	if attempts <= 0 {
		attempts = DefaultAttempts
	}

	for n := 1; n <= attempts; n++ {
		if err := ctx.Err(); err != nil {
			return "", n - 1, err
		}
		code, err := i.Generate()
		if err != nil {
			return "", n, err
		}
		err = insert(ctx, code)
		if err == nil {
			return code, n, nil
		}
		if !errors.Is(err, model.ErrDuplicateCode) {
			return "", n, err
		}
	}
	return "", attempts, ErrCodeSpaceExhausted
}
