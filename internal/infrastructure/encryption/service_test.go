package encryption

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"

	"saleor-apps-core/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveKey(t *testing.T) {
	hexKey := strings.Repeat("ab", 32)
	key := DeriveKey(hexKey)
	expected, _ := hex.DecodeString(hexKey)
	assert.Equal(t, expected, key)

	sum := sha256.Sum256([]byte("not-a-hex-key"))
	assert.Equal(t, sum[:], DeriveKey("not-a-hex-key"))

	// 64 chars but not hex falls back to hashing
	notHex := strings.Repeat("zz", 32)
	sum = sha256.Sum256([]byte(notHex))
	assert.Equal(t, sum[:], DeriveKey(notHex))
}

func TestService_RoundTrip(t *testing.T) {
	svc, err := NewService("some secret")
	require.NoError(t, err)

	for _, plain := range []string{"rk_test_123", "", "whsec_" + strings.Repeat("x", 64), "żółć"} {
		encrypted, err := svc.Encrypt(plain)
		require.NoError(t, err)
		assert.Contains(t, encrypted, ":")

		decrypted, err := svc.Decrypt(encrypted)
		require.NoError(t, err)
		assert.Equal(t, plain, decrypted)
	}
}

func TestService_FreshIVPerEncryption(t *testing.T) {
	svc, err := NewService("some secret")
	require.NoError(t, err)

	a, err := svc.Encrypt("rk_test_123")
	require.NoError(t, err)
	b, err := svc.Encrypt("rk_test_123")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestService_HexAndHashedKeysInteroperate(t *testing.T) {
	secret := "some secret"
	sum := sha256.Sum256([]byte(secret))

	hashed, err := NewService(secret)
	require.NoError(t, err)
	direct, err := NewService(hex.EncodeToString(sum[:]))
	require.NoError(t, err)

	encrypted, err := hashed.Encrypt("rk_live_abc")
	require.NoError(t, err)
	decrypted, err := direct.Decrypt(encrypted)
	require.NoError(t, err)
	assert.Equal(t, "rk_live_abc", decrypted)
}

func TestService_DecryptRejectsMalformedInput(t *testing.T) {
	svc, err := NewService("some secret")
	require.NoError(t, err)

	valid, err := svc.Encrypt("secret")
	require.NoError(t, err)
	ivHex, dataHex, _ := strings.Cut(valid, ":")

	// flipping the IV's last byte flips the last plaintext byte, which is the padding length
	iv, _ := hex.DecodeString(ivHex)
	iv[len(iv)-1] ^= 0x2a
	tampered := hex.EncodeToString(iv) + ":" + dataHex

	cases := map[string]string{
		"no separator":    strings.ReplaceAll(valid, ":", ""),
		"empty":           "",
		"non hex iv":      "zz:" + dataHex,
		"short iv":        "abcd:" + dataHex,
		"non hex data":    ivHex + ":nothex",
		"partial block":   ivHex + ":" + dataHex[:len(dataHex)-2],
		"tampered iv":     tampered,
		"missing payload": ivHex + ":",
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Decrypt(input)
			assert.ErrorIs(t, err, domain.ErrDecryption)
		})
	}
}

func TestNewService_RequiresSecret(t *testing.T) {
	_, err := NewService("")
	assert.ErrorIs(t, err, domain.ErrMisconfigured)
}
