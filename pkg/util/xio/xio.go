package xio

import (
	"errors"
	"fmt"
	"io"
	"reflect"
)

const (
	_   = iota
	KiB = 1 << (10 * iota)
	MiB
	GiB
)

// IsNil checks for nil and nil interface.
func IsNil(i interface{}) bool {
	if i == nil {
		return true
	}
	refval := reflect.ValueOf(i)
	return refval.Kind() == reflect.Pointer && refval.IsNil()
}

// LimitCopy limits the copy from the reader. This is useful when extracting files from
// archives to protect against decompression bomb attacks.
func LimitCopy(w io.Writer, r io.Reader, limit int64) error {
	written, err := io.Copy(w, io.LimitReader(r, limit))
	if written >= limit || errors.Is(err, io.EOF) {
		return fmt.Errorf("size to read limit hit (potential decompression bomb attack): %d", limit)
	}
	return nil
}

// ReadAtMost reads up to n bytes from the reader. A stream shorter than n
// returns the bytes read so far together with io.EOF.
func ReadAtMost(r io.Reader, n int) ([]byte, error) {
	buf := make([]byte, n)
	read, err := io.ReadFull(r, buf)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		err = io.EOF
	}
	return buf[:read], err
}
