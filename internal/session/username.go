package session

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"unicode/utf8"
)

const (
	MinUsernameLength = 3
	MaxUsernameLength = 20
)

var (
	ErrUsernameTooShort = errors.New("Username must be at least 3 characters")
	ErrUsernameTooLong  = errors.New("Username must be 20 characters or less")
	ErrUsernameInvalid  = errors.New("Username can only contain letters, numbers, and underscores")
)

// ValidateUsername checks length before charset so the reported reason
// matches the first rule broken.
func ValidateUsername(name string) error {
	n := utf8.RuneCountInString(name)
	if n < MinUsernameLength {
		return ErrUsernameTooShort
	}
	if n > MaxUsernameLength {
		return ErrUsernameTooLong
	}
	for _, r := range name {
		if !isUsernameRune(r) {
			return ErrUsernameInvalid
		}
	}
	return nil
}

func isUsernameRune(r rune) bool {
	return r == '_' ||
		(r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9')
}

var adjectives = []string{
	"swift", "quiet", "brave", "clever", "cosmic", "cyber", "digital", "electric",
	"fast", "ghost", "hidden", "laser", "lunar", "neon", "phantom", "pixel",
	"quantum", "rapid", "shadow", "silent", "solar", "stealth", "turbo", "void",
	"zen", "binary", "chrome", "dark", "echo", "flux", "hyper", "jade",
}

var nouns = []string{
	"wolf", "hawk", "fox", "bear", "tiger", "eagle", "raven", "dragon",
	"phoenix", "serpent", "falcon", "panther", "cobra", "viper", "lynx", "owl",
	"shark", "storm", "blade", "star", "nova", "pulse", "wave", "spark",
	"byte", "core", "node", "port", "root", "shell", "stack", "kernel",
}

// GenerateUsername returns a random adjective_nounNN name. A nil rng uses the
// global source.
func GenerateUsername(rng *rand.Rand) string {
	intn := rand.IntN
	if rng != nil {
		intn = rng.IntN
	}
	return fmt.Sprintf("%s_%s%d", adjectives[intn(len(adjectives))], nouns[intn(len(nouns))], intn(100))
}
