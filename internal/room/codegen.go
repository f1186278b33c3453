package room

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	codeLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	codeDigits  = "0123456789"
)

// GenerateCode produces a uniformly random ABCD-1234 style room code,
// shared by roommanager and the standalone relay.
func GenerateCode() (string, error) {
	letters := make([]byte, 4)
	if err := fillRandom(letters, codeLetters); err != nil {
		return "", err
	}
	digits := make([]byte, 4)
	if err := fillRandom(digits, codeDigits); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s", letters, digits), nil
}

func fillRandom(dst []byte, alphabet string) error {
	n := big.NewInt(int64(len(alphabet)))
	for i := range dst {
		idx, err := rand.Int(rand.Reader, n)
		if err != nil {
			return fmt.Errorf("room: generate code: %w", err)
		}
		dst[i] = alphabet[idx.Int64()]
	}
	return nil
}
