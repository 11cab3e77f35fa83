package security

import (
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/scrypt"
)

// Parameters of the legacy "hex(key).salt" scrypt hashes found in imported data
const (
	legacyScryptN      = 16384
	legacyScryptR      = 8
	legacyScryptP      = 1
	legacyScryptKeyLen = 64
)

// HashPassword hashes a password with bcrypt
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword compares a password with a stored hash. bcrypt hashes are
// checked directly; anything else is treated as a legacy scrypt hash.
func CheckPassword(password, hash string) bool {
	if strings.HasPrefix(hash, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
	}
	return checkLegacyScrypt(password, hash)
}

func checkLegacyScrypt(password, stored string) bool {
	hashed, salt, ok := strings.Cut(stored, ".")
	if !ok || salt == "" {
		return false
	}
	want, err := hex.DecodeString(hashed)
	if err != nil || len(want) != legacyScryptKeyLen {
		return false
	}
	got, err := scrypt.Key([]byte(password), []byte(salt), legacyScryptN, legacyScryptR, legacyScryptP, legacyScryptKeyLen)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(got, want) == 1
}
