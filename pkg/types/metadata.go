package types

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// MetadataKind names the variant stored in a Metadata value.
type MetadataKind string

const (
	MetadataKindCategory     MetadataKind = "category"
	MetadataKindTags         MetadataKind = "tags"
	MetadataKindVerification MetadataKind = "verification"
)

// MetadataVariant is implemented only by the variants in this package.
type MetadataVariant interface {
	Kind() MetadataKind
	validate() error
}

// CategoryMetadata classifies an investment or escrow record.
type CategoryMetadata struct {
	Category string `json:"category"`
}

func (CategoryMetadata) Kind() MetadataKind { return MetadataKindCategory }

func (m CategoryMetadata) validate() error {
	if strings.TrimSpace(m.Category) == "" {
		return fmt.Errorf("category metadata requires a category")
	}
	return nil
}

// TagsMetadata carries free-form labels.
type TagsMetadata struct {
	Tags []string `json:"tags"`
}

func (TagsMetadata) Kind() MetadataKind { return MetadataKindTags }

func (m TagsMetadata) validate() error {
	if len(m.Tags) == 0 {
		return fmt.Errorf("tags metadata requires at least one tag")
	}
	for _, tag := range m.Tags {
		if strings.TrimSpace(tag) == "" {
			return fmt.Errorf("tags metadata contains an empty tag")
		}
	}
	return nil
}

// VerificationMethod describes how an external payment was proven.
type VerificationMethod string

const (
	VerificationWalletSignature VerificationMethod = "wallet_signature"
	VerificationBankTransfer    VerificationMethod = "bank_transfer"
	VerificationCard            VerificationMethod = "card"
)

// VerificationMetadata records how the payment reference was verified upstream.
type VerificationMetadata struct {
	Method  VerificationMethod `json:"method"`
	Network string             `json:"network,omitempty"`
	TxHash  string             `json:"txHash,omitempty"`
}

func (VerificationMetadata) Kind() MetadataKind { return MetadataKindVerification }

func (m VerificationMetadata) validate() error {
	switch m.Method {
	case VerificationWalletSignature:
		if strings.TrimSpace(m.TxHash) == "" {
			return fmt.Errorf("wallet verification requires txHash")
		}
	case VerificationBankTransfer, VerificationCard:
	default:
		return fmt.Errorf("unknown verification method %q", m.Method)
	}
	return nil
}

// Metadata is a closed tagged union over the variants above. The zero value
// holds no variant and persists as NULL.
type Metadata struct {
	variant MetadataVariant
}

// NewMetadata wraps a variant after validating it.
func NewMetadata(v MetadataVariant) (Metadata, error) {
	if v == nil {
		return Metadata{}, nil
	}
	if err := v.validate(); err != nil {
		return Metadata{}, err
	}
	return Metadata{variant: v}, nil
}

// Variant returns the wrapped variant or nil.
func (m Metadata) Variant() MetadataVariant { return m.variant }

// IsZero reports whether no variant is set.
func (m Metadata) IsZero() bool { return m.variant == nil }

type metadataWire struct {
	Kind MetadataKind    `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// MarshalJSON implements json.Marshaler.
func (m Metadata) MarshalJSON() ([]byte, error) {
	if m.variant == nil {
		return []byte("null"), nil
	}
	data, err := json.Marshal(m.variant)
	if err != nil {
		return nil, err
	}
	return json.Marshal(metadataWire{Kind: m.variant.Kind(), Data: data})
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Metadata) UnmarshalJSON(raw []byte) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		m.variant = nil
		return nil
	}
	var wire metadataWire
	if err := json.Unmarshal(trimmed, &wire); err != nil {
		return fmt.Errorf("metadata: %w", err)
	}
	var variant MetadataVariant
	switch wire.Kind {
	case MetadataKindCategory:
		var v CategoryMetadata
		if err := json.Unmarshal(wire.Data, &v); err != nil {
			return fmt.Errorf("metadata category: %w", err)
		}
		variant = v
	case MetadataKindTags:
		var v TagsMetadata
		if err := json.Unmarshal(wire.Data, &v); err != nil {
			return fmt.Errorf("metadata tags: %w", err)
		}
		variant = v
	case MetadataKindVerification:
		var v VerificationMetadata
		if err := json.Unmarshal(wire.Data, &v); err != nil {
			return fmt.Errorf("metadata verification: %w", err)
		}
		variant = v
	default:
		return fmt.Errorf("metadata: unknown kind %q", wire.Kind)
	}
	if err := variant.validate(); err != nil {
		return fmt.Errorf("metadata: %w", err)
	}
	m.variant = variant
	return nil
}

// Value implements driver.Valuer for jsonb columns.
func (m Metadata) Value() (driver.Value, error) {
	if m.variant == nil {
		return nil, nil
	}
	raw, err := m.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// Scan implements sql.Scanner.
func (m *Metadata) Scan(value interface{}) error {
	if value == nil {
		m.variant = nil
		return nil
	}
	raw, ok := toString(value)
	if !ok {
		return fmt.Errorf("metadata: unsupported scan type %T", value)
	}
	return m.UnmarshalJSON([]byte(raw))
}

func toString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case []byte:
		return string(v), true
	case fmt.Stringer:
		return v.String(), true
	default:
		return "", false
	}
}
