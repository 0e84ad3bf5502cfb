package sanitize

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
)

const (
	gcmNonceSize = 12
	hashPrefix   = "HASH:"
	saltSize     = 16
)

// secureOriginal protects text for audit storage. With a secret it returns
// base64(nonce || AES-256-GCM ciphertext) and the base64 nonce. Without
// one it returns "HASH:" + base64(SHA-256(salt || text)) and the salt.
func secureOriginal(text, secret string, random io.Reader) (encrypted, salt string, err error) {
	if secret == "" {
		return hashOriginal(text, random)
	}

	key := sha256.Sum256([]byte(secret))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return "", "", fmt.Errorf("creating cipher: %w", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, gcmNonceSize)
	if err != nil {
		return "", "", fmt.Errorf("creating gcm: %w", err)
	}

	nonce := make([]byte, gcmNonceSize)
	if _, err := io.ReadFull(random, nonce); err != nil {
		return "", "", fmt.Errorf("reading nonce: %w", err)
	}
	sealed := gcm.Seal(append([]byte(nil), nonce...), nonce, []byte(text), nil)
	return base64.StdEncoding.EncodeToString(sealed), base64.StdEncoding.EncodeToString(nonce), nil
}

func hashOriginal(text string, random io.Reader) (string, string, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(random, salt); err != nil {
		return "", "", fmt.Errorf("reading salt: %w", err)
	}
	h := sha256.New()
	h.Write(salt)
	h.Write([]byte(text))
	return hashPrefix + base64.StdEncoding.EncodeToString(h.Sum(nil)), base64.StdEncoding.EncodeToString(salt), nil
}

// DecryptOriginal reverses the AES-GCM form produced when an encryption
// secret is configured.
func DecryptOriginal(encrypted, secret string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encrypted)
	if err != nil {
		return "", fmt.Errorf("decoding ciphertext: %w", err)
	}
	if len(raw) < gcmNonceSize {
		return "", fmt.Errorf("ciphertext too short")
	}
	key := sha256.Sum256([]byte(secret))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return "", fmt.Errorf("creating cipher: %w", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, gcmNonceSize)
	if err != nil {
		return "", fmt.Errorf("creating gcm: %w", err)
	}
	plain, err := gcm.Open(nil, raw[:gcmNonceSize], raw[gcmNonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("decrypting: %w", err)
	}
	return string(plain), nil
}
