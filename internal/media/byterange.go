// Package media streams asset bytes to players with HTTP range support.
package media

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrMalformedRange = errors.New("malformed range header")
	ErrUnsatisfiable  = errors.New("range not satisfiable")
)

// ByteRange is an inclusive span of bytes.
type ByteRange struct {
	First int64
	Last  int64
}

// Len returns the number of bytes in the span.
func (b ByteRange) Len() int64 {
	return b.Last - b.First + 1
}

// Header formats the Content-Range value for a resource of size bytes.
func (b ByteRange) Header(size int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", b.First, b.Last, size)
}

// ParseByteRange reads the first span of a Range header against a resource
// of size bytes. An empty header yields nil, nil. Players only ever ask for
// one span, so later spans are dropped.
func ParseByteRange(header string, size int64) (*ByteRange, error) {
	if header == "" {
		return nil, nil
	}
	ranges, ok := strings.CutPrefix(header, "bytes=")
	if !ok {
		return nil, ErrMalformedRange
	}
	if first, _, found := strings.Cut(ranges, ","); found {
		ranges = first
	}
	from, to, found := strings.Cut(strings.TrimSpace(ranges), "-")
	if !found {
		return nil, ErrMalformedRange
	}

	var b ByteRange
	switch {
	case from == "":
		n, err := strconv.ParseInt(to, 10, 64)
		if err != nil || n <= 0 {
			return nil, ErrMalformedRange
		}
		b.First = max(size-n, 0)
		b.Last = size - 1

	default:
		first, err := strconv.ParseInt(from, 10, 64)
		if err != nil || first < 0 {
			return nil, ErrMalformedRange
		}
		b.First = first
		b.Last = size - 1
		if to != "" {
			last, err := strconv.ParseInt(to, 10, 64)
			if err != nil {
				return nil, ErrMalformedRange
			}
			b.Last = last
		}
	}

	if b.First > b.Last || b.First >= size {
		return nil, ErrUnsatisfiable
	}
	b.Last = min(b.Last, size-1)
	return &b, nil
}
