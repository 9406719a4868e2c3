// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package kar

import (
	"bytes"
	"io"
	"io/ioutil"

	"github.com/pierrec/lz4"
	"github.com/pkg/errors"
	"golang.org/x/exp/mmap"
)

// maxHeaderSize guards against reading garbage as a header size
const maxHeaderSize = 64 << 20

// Open opens the kar archive from r. It will also check
// if the file is actually a kar archive, will return an error
// when file incorrect.
func Open(r io.ReaderAt) (*Archive, error) {
	prefix := make([]byte, MagicLength+HeaderSizeNumberLength)
	if num, err := r.ReadAt(prefix, 0); num < len(prefix) {
		if err == nil || err == io.EOF {
			err = ErrFileFormat
		}
		return nil, err
	}
	if !bytes.Equal(prefix[:MagicLength], magic[:]) {
		return nil, ErrFileFormat
	}

	headerSize, err := binaryToint64(prefix[MagicLength:])
	if err != nil {
		return nil, err
	}
	if headerSize <= 0 || headerSize > maxHeaderSize {
		return nil, errors.Wrapf(ErrFileFormat, "header size %d", headerSize)
	}

	headerBytes := make([]byte, headerSize)
	if num, err := r.ReadAt(headerBytes, int64(len(prefix))); int64(num) < headerSize {
		if err == nil || err == io.EOF {
			err = ErrFileFormat
		}
		return nil, err
	}

	var header Header
	if err := gobDecode(&header, headerBytes); err != nil {
		return nil, errors.Wrap(ErrFileFormat, err.Error())
	}

	return &Archive{
		reader:    r,
		header:    header,
		dataStart: int64(len(prefix)) + headerSize,
	}, nil
}

// OpenFile memory maps the archive at path. Close releases the mapping.
func OpenFile(path string) (*Archive, error) {
	r, err := mmap.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "mmap.Open()")
	}
	ar, err := Open(r)
	if err != nil {
		r.Close()
		return nil, errors.Wrap(err, path)
	}
	ar.closer = r
	return ar, nil
}

// Archive provides concurrent io for a kar file, and can provide
// an io.Reader for each file separately to perform actions on.
type Archive struct {
	reader    io.ReaderAt
	closer    io.Closer
	header    Header
	dataStart int64
}

// Header returns the archive header including the index.
func (a *Archive) Header() Header {
	return a.header
}

// List returns the names of all files in index order.
func (a *Archive) List() []string {
	names := make([]string, 0, len(a.header.Index))
	for _, e := range a.header.Index {
		names = append(names, e.Name)
	}
	return names
}

// Open returns a Reader for a file in the Archive
func (a *Archive) Open(name string) (io.Reader, error) {
	entry, ok := a.header.Lookup(name)
	if !ok {
		return nil, errors.Wrap(ErrNotFound, name)
	}
	section := io.NewSectionReader(a.reader, a.dataStart+entry.Offset, entry.CompressedSize)
	return lz4.NewReader(section), nil
}

// ReadAll returns the entire contents of a file with a given name
func (a *Archive) ReadAll(name string) ([]byte, error) {
	entry, ok := a.header.Lookup(name)
	if !ok {
		return nil, errors.Wrap(ErrNotFound, name)
	}
	r, err := a.Open(name)
	if err != nil {
		return nil, err
	}
	data, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, errors.Wrapf(err, "decompress %s", name)
	}
	if int64(len(data)) != entry.Size {
		return nil, errors.Wrapf(ErrFileFormat, "%s: size %d, want %d", name, len(data), entry.Size)
	}
	return data, nil
}

// Find is ReadAll under the name packr boxes use.
func (a *Archive) Find(name string) ([]byte, error) {
	return a.ReadAll(name)
}

// Close releases the underlying file if the archive owns it.
func (a *Archive) Close() error {
	if a.closer == nil {
		return nil
	}
	err := a.closer.Close()
	a.closer = nil
	return err
}
