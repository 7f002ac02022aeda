package models

// Blob is a binary payload with its declared MIME type.
type Blob struct {
	Data []byte
	Type string
}

// Size returns the payload length in bytes.
func (b Blob) Size() int {
	return len(b.Data)
}

// Clone returns a copy that shares no memory with b.
func (b Blob) Clone() Blob {
	if b.Data == nil {
		return Blob{Type: b.Type}
	}
	data := make([]byte, len(b.Data))
	copy(data, b.Data)
	return Blob{Data: data, Type: b.Type}
}
