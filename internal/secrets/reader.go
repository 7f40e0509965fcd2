package secrets

import "io"

// Reader streams the buffer of a BytesWrapper. Each Read goes through WithBytes, so the wrapper's checks apply to
// every call.
type Reader struct {
	secret BytesWrapper
	i      int
}

// Read implements io.Reader. Errors from the wrapper, such as an expired or wiped cell, are returned with n == 0.
func (r *Reader) Read(p []byte) (n int, err error) {
	err = r.secret.WithBytes(func(b []byte) error {
		if r.i >= len(b) {
			return io.EOF
		}

		n = copy(p, b[r.i:])
		r.i += n

		if r.i >= len(b) {
			return io.EOF
		}

		return nil
	})

	return
}

// NewReader returns a new Reader reading from s.
func NewReader(s BytesWrapper) *Reader {
	return &Reader{
		secret: s,
	}
}
