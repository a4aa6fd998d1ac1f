package encryption

import (
	"bytes"
	"strings"
	"testing"
)

func TestMarkerEncryptor_RoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		plain []byte
	}{
		{name: "text", plain: []byte("snapshot payload")},
		{name: "empty", plain: []byte{}},
		{name: "binary", plain: []byte{0x00, 0xff, 0x01}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e := NewMarkerEncryptor()
			var tagged bytes.Buffer
			if err := e.Encrypt(bytes.NewReader(tt.plain), &tagged); err != nil {
				t.Fatalf("Encrypt() error = %v", err)
			}
			if bytes.Equal(tagged.Bytes(), tt.plain) {
				t.Error("tagged output is identical to the input")
			}
			if !bytes.HasPrefix(tagged.Bytes(), []byte(markerHeader)) {
				t.Error("output does not start with the marker header")
			}

			dec, err := e.Unlock("ignored")
			if err != nil {
				t.Fatalf("Unlock() error = %v", err)
			}
			var restored bytes.Buffer
			if err := dec.Decrypt(bytes.NewReader(tagged.Bytes()), &restored); err != nil {
				t.Fatalf("Decrypt() error = %v", err)
			}
			if !bytes.Equal(restored.Bytes(), tt.plain) {
				t.Errorf("round trip = %q, want %q", restored.Bytes(), tt.plain)
			}
		})
	}
}

func TestMarkerEncryptor_Decrypt_rejectsForeignData(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
	}{
		{name: "wrong header", input: "SQLite format 3\x00 and more"},
		{name: "truncated", input: markerHeader[:3]},
		{name: "empty", input: ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var out bytes.Buffer
			err := markerContext{}.Decrypt(strings.NewReader(tt.input), &out)
			if err == nil {
				t.Fatalf("Decrypt(%q) succeeded, want error", tt.input)
			}
		})
	}
}

func TestMarkerEncryptor_IsConfigured(t *testing.T) {
	t.Parallel()
	if !NewMarkerEncryptor().IsConfigured() {
		t.Error("IsConfigured() = false, want true")
	}
}

func TestMarkerEncryptor_Deterministic(t *testing.T) {
	t.Parallel()

	e := NewMarkerEncryptor()
	var a, b bytes.Buffer
	for _, buf := range []*bytes.Buffer{&a, &b} {
		if err := e.Encrypt(strings.NewReader("same input"), buf); err != nil {
			t.Fatalf("Encrypt() error = %v", err)
		}
	}
	if !bytes.Equal(a.Bytes(), b.Bytes()) {
		t.Error("two runs over the same input differ")
	}
}
