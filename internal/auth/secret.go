package auth

import "golang.org/x/crypto/bcrypt"

// HashSecret produces the bcrypt hash stored in PAYMENT_WEBHOOK_SECRET_HASH.
func HashSecret(s string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(s), bcrypt.DefaultCost)
	return string(b), err
}

func VerifySecret(plain, hash string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
}
