package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// ErrInvalidID is returned when a JSON value is neither an integer nor a string.
var ErrInvalidID = errors.New("invalid id")

// IDKind tags which arm of the ID union is populated.
type IDKind uint8

// ID kinds. The zero ID has KindNone.
const (
	KindNone IDKind = iota
	KindInt
	KindString
)

// ID is an identifier delivered by the backend as either an integer or a string.
// Two IDs are the same identity when their String projections are equal, so
// IntID(7) and StringID("7") name the same moment.
type ID struct {
	kind IDKind
	num  int64
	str  string
}

// IntID returns a numeric ID.
func IntID(n int64) ID { return ID{kind: KindInt, num: n} }

// StringID returns a string ID.
func StringID(s string) ID { return ID{kind: KindString, str: s} }

// ParseID reads an ID from text such as a URL path segment. Decimal integers
// become numeric IDs; anything else is kept verbatim.
func ParseID(s string) ID {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return IntID(n)
	}
	return StringID(s)
}

// Kind reports which arm is populated.
func (id ID) Kind() IDKind { return id.kind }

// IsZero reports whether the ID was never set.
func (id ID) IsZero() bool { return id.kind == KindNone }

// Int returns the numeric value when the ID is numeric.
func (id ID) Int() (int64, bool) { return id.num, id.kind == KindInt }

// String is the canonical projection used for identity.
func (id ID) String() string {
	switch id.kind {
	case KindInt:
		return strconv.FormatInt(id.num, 10)
	case KindString:
		return id.str
	default:
		return ""
	}
}

// Equal compares canonical projections.
func (id ID) Equal(other ID) bool { return id.String() == other.String() }

// MarshalJSON encodes the ID in its original kind.
func (id ID) MarshalJSON() ([]byte, error) {
	switch id.kind {
	case KindInt:
		return []byte(strconv.FormatInt(id.num, 10)), nil
	case KindString:
		return json.Marshal(id.str)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts a JSON string or an integral JSON number.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ID{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidID, err)
		}
		*id = StringID(s)
		return nil
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidID, data)
	}
	*id = IntID(n)
	return nil
}
