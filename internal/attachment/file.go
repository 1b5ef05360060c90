package attachment

import (
	"bytes"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
)

// File is a picked image not yet read
type File interface {
	Name() string
	Open() (io.ReadCloser, error)
}

type bytesFile struct {
	name string
	data []byte
}

// FromBytes wraps in-memory content
func FromBytes(name string, data []byte) File {
	return &bytesFile{name: name, data: data}
}

func (f *bytesFile) Name() string { return f.name }

func (f *bytesFile) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f.data)), nil
}

type headerFile struct {
	fh *multipart.FileHeader
}

// FromFileHeader wraps one part of a multipart upload
func FromFileHeader(fh *multipart.FileHeader) File {
	return &headerFile{fh: fh}
}

func (f *headerFile) Name() string { return f.fh.Filename }

func (f *headerFile) Open() (io.ReadCloser, error) {
	return f.fh.Open()
}

type pathFile string

// FromPath wraps a file on disk
func FromPath(path string) File {
	return pathFile(path)
}

func (f pathFile) Name() string { return filepath.Base(string(f)) }

func (f pathFile) Open() (io.ReadCloser, error) {
	return os.Open(string(f))
}
