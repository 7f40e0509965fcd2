package secrets

// BytesWrapper contains the WithBytes method that provides gated access to a cell's buffer.
type BytesWrapper interface {
	WithBytes(action func([]byte) error) (err error)
}
