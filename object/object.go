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

// Package object represents a tree of OpenFlow protocol structures in
// place over a single wire buffer.
//
// Exactly one object per buffer owns it: the root created by New, Create,
// Dup, BindBuffer or NewFromMessage. Every other object referring to the
// buffer is a view attached with Attach or the list functions; views are
// only valid while the owner is alive and the buffer is not modified
// behind them.
package object

import (
	"fmt"

	"k8s.io/klog"

	"github.com/k-vswitch/ofwire/validate"
	"github.com/k-vswitch/ofwire/wirebuf"
)

type wireObject struct {
	buf    *wirebuf.Buffer
	offset int
	owned  bool
}

// Object is a handle on the bytes of one protocol structure.
type Object struct {
	Version Version
	ID      ObjectID
	// Length counts this object and its descendants, starting at its
	// offset.
	Length int
	// Parent is nil for a root. It is only used to find offsets and to
	// propagate length changes, never for ownership.
	Parent *Object

	// OnDelete, if set, runs once when the object is deleted.
	OnDelete func(o *Object)

	wire    wireObject
	ops     *WireOps
	deleted bool
}

// Storage holds an object and its buffer descriptor so a received
// message can be decoded without allocating.
type Storage struct {
	obj Object
	buf wirebuf.Buffer
}

// New allocates an object. If capacity is positive the object also owns a
// new buffer of that capacity; otherwise it starts unbound.
func New(capacity int) (*Object, error) {
	o := &Object{}
	if capacity > 0 {
		buf, err := wirebuf.New(capacity)
		if err != nil {
			return nil, err
		}
		o.wire = wireObject{buf: buf, owned: true}
	}

	return o, nil
}

// Delete runs the delete callback and releases the buffer if o owns it.
// Deleting a nil object is a no-op; deleting an object twice panics.
func (o *Object) Delete() {
	if o == nil {
		return
	}
	if o.deleted {
		panicf("%s deleted twice", o.ID)
	}

	if o.OnDelete != nil {
		o.OnDelete(o)
	}
	if o.wire.owned && o.wire.buf != nil {
		o.wire.buf.Release()
	}

	o.wire = wireObject{}
	o.ops = nil
	o.Parent = nil
	o.deleted = true
}

// Dup returns an independent copy of src in a new buffer of exactly
// src.Length bytes. src must have been initialized.
func Dup(src *Object) (*Object, error) {
	if src == nil || src.ID == None {
		return nil, fmt.Errorf("duplicating uninitialized object: %w", ErrInvalidArgument)
	}

	dst, err := New(src.Length)
	if err != nil {
		return nil, err
	}

	if dst.wire.buf != nil {
		if err := dst.wire.buf.Grow(src.Length); err != nil {
			dst.Delete()
			return nil, err
		}
	}

	Init(dst, src.ID, src.Version, src.Length, 0)
	if src.Length > 0 {
		dst.wire.buf.Copy(0, src.Bytes())
	}

	return dst, nil
}

// NewFromMessage validates msg and returns an owning root object over it.
// msg is not copied; release, if not nil, receives it back when the
// object is deleted.
func NewFromMessage(msg []byte, release wirebuf.ReleaseFunc) (*Object, error) {
	version, err := checkMessage(msg)
	if err != nil {
		return nil, err
	}

	o, err := New(0)
	if err != nil {
		return nil, err
	}
	if err := o.BindBuffer(msg, release); err != nil {
		return nil, err
	}

	o.Version = version
	Init(o, messageID(version, msg[1]), version, len(msg), 0)
	return o, nil
}

// NewFromMessagePreallocated is NewFromMessage without heap allocation.
// The returned object lives in storage and is valid for the shorter of
// the lifetimes of storage and msg. Deleting it never releases msg.
func NewFromMessagePreallocated(storage *Storage, msg []byte) (*Object, error) {
	*storage = Storage{}

	version, err := checkMessage(msg)
	if err != nil {
		return nil, err
	}

	if err := storage.buf.Reset(msg, nil); err != nil {
		return nil, err
	}

	o := &storage.obj
	o.Version = version
	o.wire = wireObject{buf: &storage.buf}
	Init(o, messageID(version, msg[1]), version, len(msg), 0)
	return o, nil
}

func checkMessage(msg []byte) (Version, error) {
	if len(msg) == 0 {
		return VersionUnknown, fmt.Errorf("empty message: %w", ErrInvalidArgument)
	}

	version := Version(msg[0])
	if !version.Valid() {
		return VersionUnknown, fmt.Errorf("message version 0x%02x: %w", msg[0], ErrInvalidVersion)
	}

	if err := validate.Message(msg); err != nil {
		klog.Errorf("message validation failed: %v", err)
		return VersionUnknown, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	return version, nil
}

// BindBuffer makes o the owner of data and sets its length to len(data).
// o must not already be bound.
func (o *Object) BindBuffer(data []byte, release wirebuf.ReleaseFunc) error {
	buf, err := wirebuf.Bind(data, release)
	if err != nil {
		return err
	}

	o.wire = wireObject{buf: buf, owned: true}
	o.Length = len(data)
	return nil
}

// StealBuffer detaches the encoded bytes from o and hands them to the
// caller. o and every view into its buffer are unusable afterwards.
func (o *Object) StealBuffer() []byte {
	if o.wire.buf == nil || !o.wire.owned {
		panicf("steal from non-owning %s", o.ID)
	}

	data := o.wire.buf.Steal()
	o.wire = wireObject{}
	return data
}

// Offset returns the absolute offset of o in its buffer.
func (o *Object) Offset() int {
	return o.wire.offset
}

// Buffer returns the buffer o refers to, or nil.
func (o *Object) Buffer() *wirebuf.Buffer {
	return o.wire.buf
}

// Owned reports whether o owns its buffer.
func (o *Object) Owned() bool {
	return o.wire.owned
}

// Bytes returns the Length bytes of o, aliasing the buffer, or nil for an
// unbound object.
func (o *Object) Bytes() []byte {
	if o.wire.buf == nil {
		return nil
	}
	return o.wire.buf.Slice(o.wire.offset, o.Length)
}

func (o *Object) String() string {
	return fmt.Sprintf("%s %s len=%d off=%d", o.Version, o.ID, o.Length, o.wire.offset)
}
