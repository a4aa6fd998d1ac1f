package encryption

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rmacfarlane24/archivist-sub002/internal/config"
)

func newAgeFixture(t *testing.T) *AgeEncryptor {
	t.Helper()
	keys := filepath.Join(t.TempDir(), "keys")
	return NewAgeEncryptor(config.EncryptionConfig{
		PublicKeyPath:  filepath.Join(keys, "archivist.pub"),
		PrivateKeyPath: filepath.Join(keys, "archivist.key"),
	})
}

func TestAgeEncryptor_Setup(t *testing.T) {
	t.Parallel()
	e := newAgeFixture(t)

	if e.IsConfigured() {
		t.Error("IsConfigured() = true before Setup")
	}
	if err := e.Setup("correct horse"); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if !e.IsConfigured() {
		t.Error("IsConfigured() = false after Setup")
	}

	// The identity file is wrapped; the raw X25519 secret must not appear in
	// it as plaintext.
	raw, err := os.ReadFile(e.identityPath)
	if err != nil {
		t.Fatalf("reading identity file: %v", err)
	}
	if bytes.Contains(raw, []byte("AGE-SECRET-KEY-")) {
		t.Error("identity file stores the secret key unwrapped")
	}
}

func TestAgeEncryptor_RoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		plain []byte
	}{
		{name: "text", plain: []byte("drive snapshot bytes")},
		{name: "empty", plain: []byte{}},
		{name: "binary", plain: []byte{0x00, 0xff, 0x10, 0xfe}},
		{name: "large", plain: bytes.Repeat([]byte("sqlite3\x00"), 8192)},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e := newAgeFixture(t)
			if err := e.Setup("hunter2"); err != nil {
				t.Fatalf("Setup() error = %v", err)
			}

			var sealed bytes.Buffer
			if err := e.Encrypt(bytes.NewReader(tt.plain), &sealed); err != nil {
				t.Fatalf("Encrypt() error = %v", err)
			}
			if len(tt.plain) > 0 && bytes.Contains(sealed.Bytes(), tt.plain) {
				t.Error("ciphertext contains the plaintext")
			}

			dec, err := e.Unlock("hunter2")
			if err != nil {
				t.Fatalf("Unlock() error = %v", err)
			}
			var opened bytes.Buffer
			if err := dec.Decrypt(bytes.NewReader(sealed.Bytes()), &opened); err != nil {
				t.Fatalf("Decrypt() error = %v", err)
			}
			if !bytes.Equal(opened.Bytes(), tt.plain) {
				t.Errorf("round trip produced %d bytes, want %d", opened.Len(), len(tt.plain))
			}
		})
	}
}

func TestAgeEncryptor_UnlockWrongPassphrase(t *testing.T) {
	t.Parallel()
	e := newAgeFixture(t)
	if err := e.Setup("right"); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if _, err := e.Unlock("wrong"); err == nil {
		t.Error("Unlock() succeeded with the wrong passphrase")
	}
}

func TestAgeEncryptor_WithoutKeys(t *testing.T) {
	t.Parallel()
	e := newAgeFixture(t)

	var buf bytes.Buffer
	if err := e.Encrypt(bytes.NewReader([]byte("data")), &buf); err == nil {
		t.Error("Encrypt() succeeded without a recipient key")
	}
	if _, err := e.Unlock("anything"); err == nil {
		t.Error("Unlock() succeeded without an identity file")
	}
}
