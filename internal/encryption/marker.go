package encryption

import (
	"bytes"
	"fmt"
	"io"

	"github.com/rmacfarlane24/archivist-sub002/internal/snapshot"
)

// markerHeader is prepended by MarkerEncryptor so its output is never mistaken
// for a plain snapshot file.
const markerHeader = "arcv\x00mark"

// MarkerEncryptor is the keyless encryptor behind the "test" config type. It
// tags data with a fixed header instead of encrypting it, which keeps the
// export path exercisable end to end (distinct object bytes, the .age object
// suffix, the Unlock step on import) without any key material.
type MarkerEncryptor struct{}

var _ snapshot.Encryptor = MarkerEncryptor{}

func NewMarkerEncryptor() MarkerEncryptor { return MarkerEncryptor{} }

func (MarkerEncryptor) IsConfigured() bool { return true }

func (MarkerEncryptor) Setup(passphrase string) error { return nil }

func (MarkerEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	if _, err := io.WriteString(w, markerHeader); err != nil {
		return fmt.Errorf("writing marker: %w", err)
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying payload: %w", err)
	}
	return nil
}

func (MarkerEncryptor) Unlock(passphrase string) (snapshot.DecryptionContext, error) {
	return markerContext{}, nil
}

// markerContext verifies and strips the marker header.
type markerContext struct{}

var _ snapshot.DecryptionContext = markerContext{}

func (markerContext) Decrypt(r io.Reader, w io.Writer) error {
	header := make([]byte, len(markerHeader))
	if _, err := io.ReadFull(r, header); err != nil {
		return fmt.Errorf("reading marker: %w", err)
	}
	if !bytes.Equal(header, []byte(markerHeader)) {
		return fmt.Errorf("data does not carry the marker header")
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying payload: %w", err)
	}
	return nil
}
