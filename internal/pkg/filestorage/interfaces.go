package filestorage

import "io"

// Upload is an attachment payload handed in by the transport layer.
type Upload struct {
	Reader   io.Reader
	Filename string
	Size     int64
}

// IsEmpty reports whether there is no usable payload.
func (u *Upload) IsEmpty() bool {
	return u == nil || u.Reader == nil || u.Size == 0
}

// AttachmentStore defines durable storage for record attachments. No other
// component may write into the storage directory without going through it.
type AttachmentStore interface {
	// Store writes the payload under a fresh filename derived from recordKey
	// and returns the absolute storage path. Overwrites never happen; every
	// call produces a new file.
	Store(upload *Upload, recordKey string) (string, error)

	// Retrieve opens a stored attachment and probes its content type.
	Retrieve(storagePath string) (io.ReadSeekCloser, string, error)

	// Delete removes a stored attachment. Absence is not an error; I/O
	// failures are returned so callers can log them, but callers treat
	// deletion as best-effort and never fail their primary operation on it.
	Delete(storagePath string) error
}
