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

package object

import "fmt"

// Attach points child at parent's buffer, offset bytes (relative to
// parent) into parent.
//
// If bytes is positive this is a write attach: the buffer grows to cover
// the child and child.Length becomes bytes. Otherwise it is a read attach
// and child.Length and child.ID are left for the caller to derive.
//
// If a write attach fails the child must be attached again before use.
func Attach(parent, child *Object, offset, bytes int) error {
	buf := parent.wire.buf
	if buf == nil {
		panicf("attach to unbound %s", parent.ID)
	}

	child.Parent = parent
	child.wire = wireObject{
		buf:    buf,
		offset: parent.wire.offset + offset,
	}

	if bytes > 0 {
		if err := buf.Grow(parent.wire.offset + offset + bytes); err != nil {
			return fmt.Errorf("attaching %d bytes at %d: %w", bytes, child.wire.offset, err)
		}
		child.Length = bytes
	}

	return nil
}

// CanGrow reports whether o could be newLen bytes long without exceeding
// its buffer's allocated capacity.
func (o *Object) CanGrow(newLen int) bool {
	if o.wire.buf == nil {
		return false
	}
	return o.wire.buf.CanHold(o.wire.offset + newLen)
}

// Extend appends n zero bytes to the end of o and propagates the new
// length. o must end at the tail of the buffer.
func Extend(o *Object, n int) error {
	if o.wire.buf == nil || n < 0 {
		return ErrInvalidArgument
	}
	if n == 0 {
		return nil
	}
	if !o.CanGrow(o.Length + n) {
		return fmt.Errorf("extending %s by %d bytes: %w", o.ID, n, ErrResourceExhausted)
	}

	if err := o.wire.buf.Grow(o.wire.offset + o.Length + n); err != nil {
		return err
	}
	PropagateLength(o, n)
	return nil
}
