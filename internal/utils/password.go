package utils

import "golang.org/x/crypto/bcrypt"

// HashOperatorCode returns a bcrypt hash of an event's operator code
// using the given cost.
func HashOperatorCode(plain string, cost int) (string, error) {
    b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
    if err != nil {
        return "", err
    }
    return string(b), nil
}

// VerifyOperatorCode safely compares a bcrypt hash and a plain code.
func VerifyOperatorCode(hash, plain string) bool {
    return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
