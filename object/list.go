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

// A list is an object whose elements are laid out back to back from its
// own offset. Appends only work on a list that ends at the tail of the
// buffer. Any append invalidates cursors obtained from First and Next.

// AppendBind attaches elem at the end of list, growing the buffer by
// elem.Length, stamps elem's wire type and length, and propagates the
// new length up the tree. elem is then a view to be filled in place.
func AppendBind(list, elem *Object) error {
	if list == nil || elem == nil || list.wire.buf == nil {
		return ErrInvalidArgument
	}
	if elem.wire.owned {
		return fmt.Errorf("%s owns its buffer, append a copy instead: %w", elem.ID, ErrInvalidArgument)
	}
	if elem.Length <= 0 {
		return fmt.Errorf("appending %s of length %d: %w", elem.ID, elem.Length, ErrInvalidArgument)
	}

	if !list.CanGrow(list.Length + elem.Length) {
		return fmt.Errorf("appending %d byte %s to %s: %w",
			elem.Length, elem.ID, list.ID, ErrResourceExhausted)
	}

	if err := Attach(list, elem, list.Length, elem.Length); err != nil {
		return err
	}

	if elem.ops != nil {
		if elem.ops.LengthSet != nil {
			elem.ops.LengthSet(elem, elem.Length)
		}
		if elem.ops.TypeSet != nil {
			elem.ops.TypeSet(elem)
		}
	}

	PropagateLength(list, elem.Length)
	return nil
}

// Append copies the encoded bytes of item, which may live in another
// buffer, to the end of list. No header is rewritten.
func Append(list, item *Object) error {
	if list == nil || item == nil || list.wire.buf == nil {
		return ErrInvalidArgument
	}
	if item.Length == 0 {
		return nil
	}
	if item.wire.buf == nil {
		return ErrInvalidArgument
	}

	newLen := list.Length + item.Length
	if !list.CanGrow(newLen) {
		return fmt.Errorf("appending %d bytes to %s: %w", item.Length, list.ID, ErrResourceExhausted)
	}

	buf := list.wire.buf
	if err := buf.Grow(list.wire.offset + newLen); err != nil {
		return err
	}
	buf.Copy(list.wire.offset+list.Length, item.Bytes())

	PropagateLength(list, item.Length)
	return nil
}

// First points cursor at the first element of list. The cursor's kind
// and length are not set.
func First(list, cursor *Object) error {
	if list.Length == 0 {
		return ErrEndOfSequence
	}

	return Attach(list, cursor, 0, 0)
}

// IsLast reports whether cursor reaches the end of list.
func IsLast(list, cursor *Object) bool {
	return cursor.wire.offset+cursor.Length >= list.wire.offset+list.Length
}

// Next advances cursor past its current element. cursor.Length must
// have been set since the previous First or Next.
func Next(list, cursor *Object) error {
	if cursor.Length <= 0 {
		panicf("advancing %s cursor with no length", list.ID)
	}

	if IsLast(list, cursor) {
		return ErrEndOfSequence
	}

	offset := cursor.wire.offset - list.wire.offset + cursor.Length
	return Attach(list, cursor, offset, 0)
}
