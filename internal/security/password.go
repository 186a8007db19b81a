package security

import "golang.org/x/crypto/bcrypt"

// Hash password hashes a plain text password with bcrypt.
func HashPassword(plain string) (string, error) {
	return hashWithCost(plain, bcrypt.DefaultCost)
}

// helper that compares a bcrypt hash with a plaintext password.

func CheckPassword(hash, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
}

// BcryptHasher lets services hash without importing bcrypt; tests lower the cost.
type BcryptHasher struct {
	Cost int
}

func NewBcryptHasher() BcryptHasher {
	return BcryptHasher{Cost: bcrypt.DefaultCost}
}

func (h BcryptHasher) Hash(plain string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return hashWithCost(plain, cost)
}

func (h BcryptHasher) Compare(hash, plain string) error {
	return CheckPassword(hash, plain)
}

func hashWithCost(plain string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), cost)

	if err != nil {
		return "", err
	}

	return string(hash), nil
}
