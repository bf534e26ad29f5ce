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

// ElementFamily returns the family of the elements of list kind id.
func ElementFamily(id ObjectID) ObjectID {
	switch id {
	case ListAction:
		return Action
	case ListInstruction:
		return Instruction
	case ListOXM:
		return OXM
	}
	return None
}

// FirstElement points cursor at the first element of a typed list and
// decodes its kind and length.
func FirstElement(list, cursor *Object) error {
	if err := First(list, cursor); err != nil {
		return err
	}
	return initElement(list, cursor)
}

// NextElement advances cursor and decodes the element it lands on.
func NextElement(list, cursor *Object) error {
	if err := Next(list, cursor); err != nil {
		return err
	}
	return initElement(list, cursor)
}

func initElement(list, cursor *Object) error {
	base := ElementFamily(list.ID)
	if base == None {
		return fmt.Errorf("%s is not a typed list: %w", list.ID, ErrInvalidArgument)
	}

	Init(cursor, base, list.Version, -1, 0)
	remaining := list.wire.offset + list.Length - cursor.wire.offset
	return WireInit(cursor, base, remaining)
}

// ForEach calls fn with a cursor on each element of a typed list. The
// cursor is reused between calls. Iteration stops at the first error,
// which is returned.
func ForEach(list *Object, fn func(elem *Object) error) error {
	var cursor Object

	err := FirstElement(list, &cursor)
	for err == nil {
		if err = fn(&cursor); err != nil {
			return err
		}
		err = NextElement(list, &cursor)
	}

	if err == ErrEndOfSequence {
		return nil
	}
	return err
}
