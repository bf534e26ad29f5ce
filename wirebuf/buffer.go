/*
Licensed to the Apache Software Foundation (ASF) under one
or more contributor license agreements.  See the NOTICE file
distributed with this work for additional information
regarding copyright ownership.  The ASF licenses this file
to you under the Apache License, Version 2.0 (the
"License"); you may not use this file except in compliance
with the License.  You may obtain a copy of the License at

  http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing,
software distributed under the License is distributed on an
"AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
KIND, either express or implied.  See the License for the
specific language governing permissions and limitations
under the License.
*/

// Package wirebuf implements the growable byte region that backs an
// encoded OpenFlow object tree.
//
// A Buffer has a fixed allocated capacity and a logical size that only
// grows. All integers are read and written in network byte order.
package wirebuf

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// MaxMessageLength is the largest OpenFlow message; the 16 bit
	// header length field cannot describe anything bigger.
	MaxMessageLength = 0xffff

	// MaxCapacity bounds a single allocation. Requests above it fail
	// with ErrOutOfMemory.
	MaxCapacity = 1 << 20
)

var (
	ErrOutOfMemory       = errors.New("out of memory")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrResourceExhausted = errors.New("resource exhausted")
)

// ReleaseFunc is called with the bound storage when a Buffer created by
// Bind is released.
type ReleaseFunc func(data []byte)

type Buffer struct {
	data     []byte
	current  int
	release  ReleaseFunc
	released bool
}

// New allocates a buffer able to hold capacity bytes. The logical size
// starts at zero.
func New(capacity int) (*Buffer, error) {
	if capacity <= 0 || capacity > MaxCapacity {
		return nil, fmt.Errorf("allocating %d byte wire buffer: %w", capacity, ErrOutOfMemory)
	}

	return &Buffer{
		data: make([]byte, capacity),
	}, nil
}

// Bind wraps caller supplied storage. The buffer is full: its logical size
// and capacity both equal len(data). release, if not nil, is handed the
// storage back on Release.
func Bind(data []byte, release ReleaseFunc) (*Buffer, error) {
	b := &Buffer{}
	if err := b.Reset(data, release); err != nil {
		return nil, err
	}

	return b, nil
}

// Reset rebinds b in place to data without allocating. It is used to
// decode into storage owned by the caller.
func (b *Buffer) Reset(data []byte, release ReleaseFunc) error {
	if len(data) == 0 {
		return fmt.Errorf("binding empty wire buffer: %w", ErrInvalidArgument)
	}

	b.data = data
	b.current = len(data)
	b.release = release
	b.released = false
	return nil
}

// Alloc returns the allocated capacity.
func (b *Buffer) Alloc() int {
	b.check()
	return len(b.data)
}

// Current returns the logical size.
func (b *Buffer) Current() int {
	b.check()
	return b.current
}

// CanHold reports whether size bytes fit in the allocated capacity.
func (b *Buffer) CanHold(size int) bool {
	b.check()
	return size >= 0 && size <= len(b.data)
}

// Grow extends the logical size to size. Shrinking is a no-op. Bytes
// exposed by growth are zeroed.
func (b *Buffer) Grow(size int) error {
	b.check()
	if size <= b.current {
		return nil
	}
	if size > len(b.data) {
		return fmt.Errorf("growing wire buffer to %d bytes, capacity %d: %w",
			size, len(b.data), ErrResourceExhausted)
	}

	zero := b.data[b.current:size]
	for i := range zero {
		zero[i] = 0
	}
	b.current = size
	return nil
}

// Bytes returns the logical contents. The slice aliases the buffer.
func (b *Buffer) Bytes() []byte {
	b.check()
	return b.data[:b.current]
}

// Slice returns n bytes starting at offset, aliasing the buffer.
func (b *Buffer) Slice(offset, n int) []byte {
	b.bounds(offset, n)
	return b.data[offset : offset+n]
}

// Copy writes src at offset.
func (b *Buffer) Copy(offset int, src []byte) {
	b.bounds(offset, len(src))
	copy(b.data[offset:], src)
}

func (b *Buffer) U8(offset int) uint8 {
	b.bounds(offset, 1)
	return b.data[offset]
}

func (b *Buffer) SetU8(offset int, v uint8) {
	b.bounds(offset, 1)
	b.data[offset] = v
}

func (b *Buffer) U16(offset int) uint16 {
	b.bounds(offset, 2)
	return binary.BigEndian.Uint16(b.data[offset:])
}

func (b *Buffer) SetU16(offset int, v uint16) {
	b.bounds(offset, 2)
	binary.BigEndian.PutUint16(b.data[offset:], v)
}

func (b *Buffer) U32(offset int) uint32 {
	b.bounds(offset, 4)
	return binary.BigEndian.Uint32(b.data[offset:])
}

func (b *Buffer) SetU32(offset int, v uint32) {
	b.bounds(offset, 4)
	binary.BigEndian.PutUint32(b.data[offset:], v)
}

func (b *Buffer) U64(offset int) uint64 {
	b.bounds(offset, 8)
	return binary.BigEndian.Uint64(b.data[offset:])
}

func (b *Buffer) SetU64(offset int, v uint64) {
	b.bounds(offset, 8)
	binary.BigEndian.PutUint64(b.data[offset:], v)
}

// Steal hands the logical contents to the caller and empties b. The
// release function is not called; the caller now owns the bytes.
func (b *Buffer) Steal() []byte {
	b.check()
	data := b.data[:b.current]
	b.data = nil
	b.current = 0
	b.release = nil
	return data
}

// Release gives up the storage. Any later use of b panics.
func (b *Buffer) Release() {
	if b.released {
		panic("wirebuf: buffer released twice")
	}

	if b.release != nil && b.data != nil {
		b.release(b.data)
	}
	b.data = nil
	b.current = 0
	b.release = nil
	b.released = true
}

// Released reports whether Release has been called.
func (b *Buffer) Released() bool {
	return b.released
}

func (b *Buffer) check() {
	if b.released {
		panic("wirebuf: use of released buffer")
	}
}

// Reads and writes must stay within the logical size; growth is always
// explicit.
func (b *Buffer) bounds(offset, n int) {
	b.check()
	if offset < 0 || n < 0 || offset+n > b.current {
		panic(fmt.Sprintf("wirebuf: access [%d:%d] outside logical size %d",
			offset, offset+n, b.current))
	}
}
