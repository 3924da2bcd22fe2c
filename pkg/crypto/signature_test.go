package crypto

import (
	"bytes"
	"encoding/hex"
	"errors"
	"strings"
	"testing"
)

func TestGenerateKey(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error: %v", err)
	}

	if got := len(key.PublicKey()); got != PublicKeySize {
		t.Errorf("PublicKey() length = %d, want %d", got, PublicKeySize)
	}
	if got := len(key.Serialize()); got != PrivateKeySize {
		t.Errorf("Serialize() length = %d, want %d", got, PrivateKeySize)
	}
}

func TestGenerateKeyPair(t *testing.T) {
	priv, pub, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair() error: %v", err)
	}
	if len(priv) != 2*PrivateKeySize {
		t.Errorf("private key hex length = %d, want %d", len(priv), 2*PrivateKeySize)
	}
	if len(pub) != 2*PublicKeySize {
		t.Errorf("public key hex length = %d, want %d", len(pub), 2*PublicKeySize)
	}
	if !strings.HasPrefix(pub, "02") && !strings.HasPrefix(pub, "03") {
		t.Errorf("public key %s is not compressed", pub)
	}

	key, err := PrivateKeyFromHex(priv)
	if err != nil {
		t.Fatalf("PrivateKeyFromHex() error: %v", err)
	}
	if key.PublicKeyHex() != pub {
		t.Error("public key does not match private key")
	}
}

func TestGenerateKeyPair_Unique(t *testing.T) {
	p1, _, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair() error: %v", err)
	}
	p2, _, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair() error: %v", err)
	}
	if p1 == p2 {
		t.Error("two generated keys should not be identical")
	}
}

func TestPrivateKeyFromHex_Invalid(t *testing.T) {
	tests := []struct {
		name string
		hex  string
	}{
		{"empty", ""},
		{"not hex", "zz" + strings.Repeat("00", 31)},
		{"odd length", strings.Repeat("1", 63)},
		{"too short", strings.Repeat("01", 31)},
		{"too long", strings.Repeat("01", 33)},
		{"zero scalar", strings.Repeat("00", 32)},
		{"above curve order", strings.Repeat("ff", 32)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := PrivateKeyFromHex(tt.hex)
			if !errors.Is(err, ErrInvalidKeyEncoding) {
				t.Errorf("PrivateKeyFromHex(%q) error = %v, want ErrInvalidKeyEncoding", tt.hex, err)
			}
		})
	}
}

func TestSign_InvalidKey(t *testing.T) {
	_, _, err := Sign("abcd", []byte("msg"))
	if !errors.Is(err, ErrInvalidKeyEncoding) {
		t.Errorf("Sign() error = %v, want ErrInvalidKeyEncoding", err)
	}
}

func TestSign_Verify(t *testing.T) {
	priv, pub, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair() error: %v", err)
	}
	msg := []byte("send 60 to addr1")

	sig, signedBy, err := Sign(priv, msg)
	if err != nil {
		t.Fatalf("Sign() error: %v", err)
	}
	if signedBy != pub {
		t.Errorf("Sign() public key = %s, want %s", signedBy, pub)
	}
	if !Verify(pub, msg, sig) {
		t.Error("valid signature should verify")
	}
}

func TestSign_Deterministic(t *testing.T) {
	priv, _, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair() error: %v", err)
	}
	msg := []byte("deterministic")

	s1, _, err := Sign(priv, msg)
	if err != nil {
		t.Fatalf("Sign() error: %v", err)
	}
	s2, _, err := Sign(priv, msg)
	if err != nil {
		t.Fatalf("Sign() error: %v", err)
	}
	if s1 != s2 {
		t.Error("signatures over the same message should match")
	}
}

func flipBit(t *testing.T, hexStr string, bit int) string {
	t.Helper()
	b, err := hex.DecodeString(hexStr)
	if err != nil {
		t.Fatalf("decode %q: %v", hexStr, err)
	}
	b[bit/8] ^= 1 << (bit % 8)
	return hex.EncodeToString(b)
}

func TestVerify_BitFlips(t *testing.T) {
	priv, pub, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair() error: %v", err)
	}
	msg := []byte("flip me")
	sig, _, err := Sign(priv, msg)
	if err != nil {
		t.Fatalf("Sign() error: %v", err)
	}

	t.Run("message", func(t *testing.T) {
		for bit := 0; bit < len(msg)*8; bit++ {
			flipped := bytes.Clone(msg)
			flipped[bit/8] ^= 1 << (bit % 8)
			if Verify(pub, flipped, sig) {
				t.Fatalf("verify succeeded with message bit %d flipped", bit)
			}
		}
	})

	t.Run("signature", func(t *testing.T) {
		for bit := 0; bit < len(sig)/2*8; bit++ {
			if Verify(pub, msg, flipBit(t, sig, bit)) {
				t.Fatalf("verify succeeded with signature bit %d flipped", bit)
			}
		}
	})

	t.Run("public key", func(t *testing.T) {
		for bit := 0; bit < PublicKeySize*8; bit++ {
			if Verify(flipBit(t, pub, bit), msg, sig) {
				t.Fatalf("verify succeeded with public key bit %d flipped", bit)
			}
		}
	})
}

func TestVerify_WrongKey(t *testing.T) {
	priv, _, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair() error: %v", err)
	}
	_, otherPub, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair() error: %v", err)
	}
	msg := []byte("msg")
	sig, _, err := Sign(priv, msg)
	if err != nil {
		t.Fatalf("Sign() error: %v", err)
	}
	if Verify(otherPub, msg, sig) {
		t.Error("signature should not verify under another key")
	}
}

func TestVerify_InvalidInputs(t *testing.T) {
	priv, pub, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair() error: %v", err)
	}
	msg := []byte("msg")
	sig, _, err := Sign(priv, msg)
	if err != nil {
		t.Fatalf("Sign() error: %v", err)
	}

	tests := []struct {
		name string
		pub  string
		sig  string
	}{
		{"empty pubkey", "", sig},
		{"empty signature", pub, ""},
		{"non-hex pubkey", "xyz", sig},
		{"non-hex signature", pub, "not-hex"},
		{"truncated pubkey", pub[:20], sig},
		{"truncated signature", pub, sig[:10]},
		{"uncompressed junk", "04" + strings.Repeat("00", 64), sig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if Verify(tt.pub, msg, tt.sig) {
				t.Error("malformed input should not verify")
			}
		})
	}
}

func TestPrivateKey_Zero(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error: %v", err)
	}
	key.Zero()

	if !bytes.Equal(key.Serialize(), make([]byte, PrivateKeySize)) {
		t.Error("Serialize() after Zero() should be all zeros")
	}
	if _, err := key.Sign([]byte("msg")); !errors.Is(err, ErrInvalidKeyEncoding) {
		t.Errorf("Sign() after Zero() error = %v, want ErrInvalidKeyEncoding", err)
	}
}

func TestPrivateKey_Hex_Roundtrip(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error: %v", err)
	}
	restored, err := PrivateKeyFromHex(key.Hex())
	if err != nil {
		t.Fatalf("PrivateKeyFromHex() error: %v", err)
	}
	if !bytes.Equal(key.PublicKey(), restored.PublicKey()) {
		t.Error("restored key should have same public key")
	}
}

func TestECDSAVerifier_Interface(t *testing.T) {
	var _ Verifier = ECDSAVerifier{}
	var _ Signer = (*PrivateKey)(nil)

	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error: %v", err)
	}
	msg := []byte("interface")
	sig, err := key.Sign(msg)
	if err != nil {
		t.Fatalf("Sign() error: %v", err)
	}

	var v Verifier = ECDSAVerifier{}
	if !v.Verify(key.PublicKeyHex(), msg, sig) {
		t.Error("ECDSAVerifier should verify a valid signature")
	}
}
