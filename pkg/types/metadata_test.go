package types

import (
	"encoding/json"
	"testing"
)

func TestMetadataRoundTripKeepsVariant(t *testing.T) {
	meta, err := NewMetadata(VerificationMetadata{Method: VerificationWalletSignature, Network: "solana", TxHash: "5xyz"})
	if err != nil {
		t.Fatalf("new metadata: %v", err)
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded Metadata
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	v, ok := decoded.Variant().(VerificationMetadata)
	if !ok {
		t.Fatalf("expected verification variant, got %T", decoded.Variant())
	}
	if v.TxHash != "5xyz" || v.Network != "solana" {
		t.Fatalf("unexpected variant %+v", v)
	}
}

func TestMetadataRejectsUnknownKind(t *testing.T) {
	var m Metadata
	if err := json.Unmarshal([]byte(`{"kind":"notes","data":{"text":"hi"}}`), &m); err == nil {
		t.Fatal("expected unknown kind to fail")
	}
}

func TestMetadataValidatesVariants(t *testing.T) {
	if _, err := NewMetadata(TagsMetadata{}); err == nil {
		t.Fatal("expected empty tags to fail")
	}
	if _, err := NewMetadata(VerificationMetadata{Method: VerificationWalletSignature}); err == nil {
		t.Fatal("expected wallet verification without tx hash to fail")
	}
	if _, err := NewMetadata(CategoryMetadata{Category: "food"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMetadataZeroValuePersistsAsNull(t *testing.T) {
	var m Metadata
	value, err := m.Value()
	if err != nil {
		t.Fatalf("value: %v", err)
	}
	if value != nil {
		t.Fatalf("expected nil driver value, got %v", value)
	}

	var scanned Metadata
	if err := scanned.Scan([]byte(`{"kind":"category","data":{"category":"coffee"}}`)); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if scanned.Variant().Kind() != MetadataKindCategory {
		t.Fatalf("unexpected kind %s", scanned.Variant().Kind())
	}
}
