package json

// Raw is a raw encoded JSON value. It can be used to delay JSON decoding, as
// the gateway does for payloads that may be replayed later.
type Raw []byte

// MarshalJSON returns m as the JSON encoding of m.
func (m Raw) MarshalJSON() ([]byte, error) {
	if m == nil {
		return []byte("null"), nil
	}
	return m, nil
}

func (m *Raw) UnmarshalJSON(data []byte) error {
	*m = append((*m)[0:0], data...)
	return nil
}

// Copy returns a copy of m that does not share the backing array.
func (m Raw) Copy() Raw {
	if m == nil {
		return nil
	}
	return append(Raw(nil), m...)
}

func (m Raw) String() string {
	return string(m)
}
