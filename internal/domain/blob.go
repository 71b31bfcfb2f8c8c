package domain

import (
	"bytes"
	"errors"
	"io"
)

// ErrBlobNotFound is returned when a blob does not exist in its repository.
var ErrBlobNotFound = errors.New("blob not found")

// BlobID identifies a stored blob. Avatar blobs use the Crockford Base32
// encoded content hash, resized variants append "_<width>".
type BlobID string

func (id BlobID) String() string {
	return string(id)
}

// Blob is an opaque binary object kept by a blob repository.
type Blob struct {
	ID   BlobID
	Body []byte
}

func NewBlob(id BlobID, body []byte) *Blob {
	return &Blob{ID: id, Body: body}
}

func (blob *Blob) Size() int64 {
	return int64(len(blob.Body))
}

// Reader returns a reader over the blob's content.
func (blob *Blob) Reader() io.Reader {
	return bytes.NewReader(blob.Body)
}
