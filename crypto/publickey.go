package crypto

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil/base58"
)

// KeyType identifies the curve a public key belongs to.
type KeyType string

const (
	KeyTypeED25519   KeyType = "ed25519"
	KeyTypeSECP256K1 KeyType = "secp256k1"
)

func (t KeyType) size() int {
	switch t {
	case KeyTypeED25519:
		return 32
	case KeyTypeSECP256K1:
		return 64
	default:
		return 0
	}
}

// PublicKey is a typed public key identifier in the "<type>:<base58>" form
// used on the wire. It carries no signing or verification behaviour.
type PublicKey struct {
	keyType KeyType
	data    []byte
}

// NewPublicKey builds a key from raw bytes, checking the length for the type.
func NewPublicKey(keyType KeyType, data []byte) (PublicKey, error) {
	want := keyType.size()
	if want == 0 {
		return PublicKey{}, fmt.Errorf("unsupported key type %q", keyType)
	}
	if len(data) != want {
		return PublicKey{}, fmt.Errorf("%s public key must be %d bytes, got %d", keyType, want, len(data))
	}
	return PublicKey{keyType: keyType, data: append([]byte(nil), data...)}, nil
}

// ParsePublicKey decodes "<type>:<base58>". A bare base58 payload is read as ed25519.
func ParsePublicKey(s string) (PublicKey, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return PublicKey{}, fmt.Errorf("empty public key")
	}
	keyType := KeyTypeED25519
	payload := s
	if prefix, rest, found := strings.Cut(s, ":"); found {
		keyType = KeyType(strings.ToLower(prefix))
		payload = rest
	}
	data := base58.Decode(payload)
	if len(data) == 0 {
		return PublicKey{}, fmt.Errorf("invalid base58 public key %q", s)
	}
	return NewPublicKey(keyType, data)
}

// MustParsePublicKey is ParsePublicKey for constants and tests.
func MustParsePublicKey(s string) PublicKey {
	key, err := ParsePublicKey(s)
	if err != nil {
		panic(err)
	}
	return key
}

func (k PublicKey) Type() KeyType { return k.keyType }

// Bytes returns a copy of the raw key material.
func (k PublicKey) Bytes() []byte { return append([]byte(nil), k.data...) }

func (k PublicKey) IsZero() bool { return len(k.data) == 0 }

func (k PublicKey) String() string {
	if k.IsZero() {
		return ""
	}
	return string(k.keyType) + ":" + base58.Encode(k.data)
}

func (k PublicKey) Equal(other PublicKey) bool {
	return k.String() == other.String()
}

func (k PublicKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *PublicKey) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParsePublicKey(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
