package application

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

var (
	ErrInvalidTokenHash         = errors.New("invalid admin token hash format")
	ErrIncompatibleTokenVersion = errors.New("incompatible admin token hash version")
)

type Argon2idParams struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

var DefaultArgon2idParams = Argon2idParams{
	Memory:      64 * 1024,
	Iterations:  3,
	Parallelism: 2,
	SaltLength:  16,
	KeyLength:   32,
}

// HashAdminToken derives an encoded argon2id hash for token, suitable for the
// ADMIN_TOKEN_HASH setting.
func HashAdminToken(token string, params Argon2idParams) (string, error) {
	if token == "" {
		return "", fmt.Errorf("admin token must not be empty")
	}
	salt := make([]byte, params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(token), salt, params.Iterations, params.Memory, params.Parallelism, params.KeyLength)

	b64Salt := base64.RawStdEncoding.EncodeToString(salt)
	b64Hash := base64.RawStdEncoding.EncodeToString(hash)

	// Format is $argon2id$v=19$m=...,t=...,p=...$salt$hash
	format := "$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s"
	return fmt.Sprintf(format, argon2.Version, params.Memory, params.Iterations, params.Parallelism, b64Salt, b64Hash), nil
}

// ValidateAdminTokenHash reports whether encoded is a well-formed argon2id hash.
func ValidateAdminTokenHash(encoded string) error {
	_, _, _, err := decodeTokenHash(encoded)
	return err
}

// VerifyAdminToken compares token against an encoded argon2id hash in
// constant time. A mismatch returns ErrInvalidCredentials.
func VerifyAdminToken(encoded, token string) error {
	params, salt, expected, err := decodeTokenHash(encoded)
	if err != nil {
		return err
	}

	comparisonHash := argon2.IDKey([]byte(token), salt, params.Iterations, params.Memory, params.Parallelism, params.KeyLength)

	if subtle.ConstantTimeCompare(expected, comparisonHash) == 1 {
		return nil
	}

	return ErrInvalidCredentials
}

func decodeTokenHash(encoded string) (Argon2idParams, []byte, []byte, error) {
	var params Argon2idParams

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return params, nil, nil, ErrInvalidTokenHash
	}

	if parts[1] != "argon2id" {
		return params, nil, nil, ErrInvalidTokenHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return params, nil, nil, fmt.Errorf("%w: %v", ErrInvalidTokenHash, err)
	}
	if version != argon2.Version {
		return params, nil, nil, ErrIncompatibleTokenVersion
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.Memory, &params.Iterations, &params.Parallelism); err != nil {
		return params, nil, nil, fmt.Errorf("%w: %v", ErrInvalidTokenHash, err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return params, nil, nil, fmt.Errorf("%w: %v", ErrInvalidTokenHash, err)
	}
	params.SaltLength = uint32(len(salt))

	decodedHash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return params, nil, nil, fmt.Errorf("%w: %v", ErrInvalidTokenHash, err)
	}
	params.KeyLength = uint32(len(decodedHash))
	if params.KeyLength == 0 {
		return params, nil, nil, ErrInvalidTokenHash
	}

	return params, salt, decodedHash, nil
}
