package accesscode

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dukerupert/flock/internal/model"
)

func TestGenerateUsesAlphabet(t *testing.T) {
	g := NewCodeGenerator()
	for i := 0; i < 500; i++ {
		code, err := g.Generate()
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if len(code) != CodeLength {
			t.Fatalf("len(code) = %d, want %d", len(code), CodeLength)
		}
		for _, c := range code {
			if !strings.ContainsRune(CodeAlphabet, c) {
				t.Fatalf("code %q contains %q outside alphabet", code, c)
			}
			if strings.ContainsRune("0O1IL", c) {
				t.Fatalf("code %q contains ambiguous character %q", code, c)
			}
		}
	}
}

func TestPasswordGenerator(t *testing.T) {
	if len(PasswordAlphabet) != 58 {
		t.Fatalf("len(PasswordAlphabet) = %d, want 58", len(PasswordAlphabet))
	}
	pw, err := NewPasswordGenerator().Generate()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(pw) != PasswordLength {
		t.Errorf("len(pw) = %d, want %d", len(pw), PasswordLength)
	}
}

func TestGenerateEmptyAlphabet(t *testing.T) {
	if _, err := (Generator{Length: 6}).Generate(); err == nil {
		t.Fatal("expected error for empty alphabet")
	}
}

func TestIssueSucceedsFirstTry(t *testing.T) {
	iss := Issuer{Generate: func() (string, error) { return "ABC234", nil }, Attempts: 10}

	var stored []string
	code, n, err := iss.Issue(context.Background(), func(_ context.Context, c string) error {
		stored = append(stored, c)
		return nil
	})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if code != "ABC234" || n != 1 {
		t.Errorf("code, attempts = %q, %d, want ABC234, 1", code, n)
	}
	if len(stored) != 1 {
		t.Errorf("insert called %d times, want 1", len(stored))
	}
}

func TestIssueRetriesOnCollision(t *testing.T) {
	codes := []string{"AAAAAA", "BBBBBB", "CCCCCC"}
	next := 0
	iss := Issuer{
		Generate: func() (string, error) {
			c := codes[next]
			next++
			return c, nil
		},
		Attempts: 10,
	}
	taken := map[string]bool{"AAAAAA": true, "BBBBBB": true}

	code, n, err := iss.Issue(context.Background(), func(_ context.Context, c string) error {
		if taken[c] {
			return model.ErrDuplicateCode
		}
		return nil
	})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if code != "CCCCCC" {
		t.Errorf("code = %q, want CCCCCC", code)
	}
	if n != 3 {
		t.Errorf("attempts = %d, want 3", n)
	}
}

func TestIssueExhausted(t *testing.T) {
	calls := 0
	iss := Issuer{Generate: func() (string, error) { return "AAAAAA", nil }, Attempts: 10}

	_, n, err := iss.Issue(context.Background(), func(context.Context, string) error {
		calls++
		return model.ErrDuplicateCode
	})
	if !errors.Is(err, ErrCodeSpaceExhausted) {
		t.Fatalf("err = %v, want ErrCodeSpaceExhausted", err)
	}
	if calls != 10 || n != 10 {
		t.Errorf("calls = %d, attempts = %d, want 10, 10", calls, n)
	}
}

func TestIssueStopsOnOtherErrors(t *testing.T) {
	boom := errors.New("disk full")
	calls := 0
	iss := Issuer{Generate: func() (string, error) { return "AAAAAA", nil }, Attempts: 10}

	_, _, err := iss.Issue(context.Background(), func(context.Context, string) error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}
