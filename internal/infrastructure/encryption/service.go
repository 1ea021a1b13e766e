package encryption

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"saleor-apps-core/internal/domain"
	"saleor-apps-core/internal/ports"
)

const (
	keySize = 32
	ivSize  = aes.BlockSize
)

// Service implements ports.EncryptionService with AES-256-CBC.
// Ciphertext is stored as hex(iv) + ":" + hex(ciphertext), so decrypting needs only the key.
type Service struct {
	block cipher.Block
}

// NewService creates an encryption service from the process-wide secret
func NewService(secret string) (ports.EncryptionService, error) {
	if secret == "" {
		return nil, fmt.Errorf("%w: encryption secret is required", domain.ErrMisconfigured)
	}
	block, err := aes.NewCipher(DeriveKey(secret))
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	return &Service{block: block}, nil
}

// DeriveKey normalizes the secret into a 32-byte key.
// A 64-character hex string is used as the key itself; anything else is
// hashed with SHA-256. Both forms are accepted for compatibility with
// already-deployed secrets.
func DeriveKey(secret string) []byte {
	if len(secret) == keySize*2 {
		if key, err := hex.DecodeString(secret); err == nil {
			return key
		}
	}
	sum := sha256.Sum256([]byte(secret))
	return sum[:]
}

// Encrypt encrypts plaintext with a fresh random IV
func (s *Service) Encrypt(plaintext string) (string, error) {
	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("failed to generate iv: %w", err)
	}

	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(s.block, iv).CryptBlocks(out, padded)

	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(out), nil
}

// Decrypt reverses Encrypt. Malformed or tampered input yields domain.ErrDecryption.
func (s *Service) Decrypt(ciphertext string) (string, error) {
	ivHex, dataHex, ok := strings.Cut(ciphertext, ":")
	if !ok || ivHex == "" || dataHex == "" {
		return "", fmt.Errorf("%w: invalid input", domain.ErrDecryption)
	}

	iv, err := hex.DecodeString(ivHex)
	if err != nil || len(iv) != ivSize {
		return "", fmt.Errorf("%w: invalid iv", domain.ErrDecryption)
	}
	data, err := hex.DecodeString(dataHex)
	if err != nil {
		return "", fmt.Errorf("%w: invalid ciphertext encoding", domain.ErrDecryption)
	}
	if len(data) == 0 || len(data)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: ciphertext is not a multiple of the block size", domain.ErrDecryption)
	}

	out := make([]byte, len(data))
	cipher.NewCBCDecrypter(s.block, iv).CryptBlocks(out, data)

	plain, err := pkcs7Unpad(out, aes.BlockSize)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrDecryption, err)
	}
	return string(plain), nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty plaintext")
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, fmt.Errorf("bad padding")
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, fmt.Errorf("bad padding")
		}
	}
	return data[:len(data)-n], nil
}
