package types

import (
	"encoding/json"
	"strings"
	"testing"
)

const abcDigest = "4f8b42c22dd3729b519ba6f68d2da7cc5b2d606d05daed5ad5128cc03e6c6358"

func TestHexToHash(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{"digest", abcDigest, false},
		{"zero", strings.Repeat("0", 64), false},
		{"short", abcDigest[:62], true},
		{"long", abcDigest + "00", true},
		{"not hex", strings.Repeat("zz", 32), true},
		{"empty", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := HexToHash(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("HexToHash(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && h.String() != tt.in {
				t.Errorf("String() = %s, want %s", h, tt.in)
			}
		})
	}
}

func TestHash_NaturalByteOrder(t *testing.T) {
	var h Hash
	h[0], h[31] = 0xab, 0xcd
	s := h.String()
	if !strings.HasPrefix(s, "ab") || !strings.HasSuffix(s, "cd") {
		t.Errorf("String() = %s, want first byte first", s)
	}
	if h.IsZero() || !ZeroHash.IsZero() {
		t.Error("IsZero mismatch")
	}
}

func TestHash_JSON(t *testing.T) {
	h, _ := HexToHash(abcDigest)
	data, err := json.Marshal(map[string]Hash{"txid": h})
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	if string(data) != `{"txid":"`+abcDigest+`"}` {
		t.Errorf("Marshal() = %s", data)
	}

	var got struct{ TxID Hash }
	if err := json.Unmarshal([]byte(`{"TxID":"`+abcDigest+`"}`), &got); err != nil || got.TxID != h {
		t.Errorf("Unmarshal() = %v, %v", got.TxID, err)
	}

	got.TxID = h
	if err := json.Unmarshal([]byte(`{"TxID":""}`), &got); err != nil || !got.TxID.IsZero() {
		t.Errorf("Unmarshal(empty) = %v, %v; want zero hash", got.TxID, err)
	}

	if err := json.Unmarshal([]byte(`{"TxID":"abc"}`), &got); err == nil {
		t.Error("Unmarshal() should reject a short hash")
	}
}
