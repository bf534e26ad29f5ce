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

// WireInit derives the concrete kind and length of o from the bytes it
// is attached to. o must already be initialized as base (or a kind of
// that family) with its version set.
//
// With a type getter the wire tag must name a kind of the base family
// defined in o's version. With a length getter the encoded length must
// cover the header and, if maxLen is positive, not exceed maxLen.
// Without one the fixed length of base is used.
func WireInit(o *Object, base ObjectID, maxLen int) error {
	if o.wire.buf == nil {
		return fmt.Errorf("wire init of unbound %s: %w", base, ErrInvalidArgument)
	}

	c := classOf(base)
	if c.header > 0 {
		if maxLen > 0 && maxLen < c.header {
			return fmt.Errorf("%d bytes left, %s header needs %d: %w", maxLen, base, c.header, ErrParse)
		}
		if o.wire.offset+c.header > o.wire.buf.Current() {
			return fmt.Errorf("%s header at %d runs past buffer end %d: %w",
				base, o.wire.offset, o.wire.buf.Current(), ErrParse)
		}
	}

	if o.ops != nil && o.ops.TypeGet != nil {
		id := o.ops.TypeGet(o)
		if !specializes(id, base, o.Version) {
			return fmt.Errorf("wire type %s at %d is not a %s in %s: %w",
				id, o.wire.offset, base, o.Version, ErrParse)
		}
		Init(o, id, o.Version, -1, 0)
	}

	if o.ops != nil && o.ops.LengthGet != nil {
		length := o.ops.LengthGet(o)
		if length < 0 || (maxLen > 0 && length > maxLen) {
			return fmt.Errorf("%s length %d exceeds %d: %w", o.ID, length, maxLen, ErrParse)
		}
		if length < c.header || o.wire.offset+length > o.wire.buf.Current() {
			return fmt.Errorf("%s length %d at %d is malformed: %w", o.ID, length, o.wire.offset, ErrParse)
		}
		o.Length = length
	} else {
		o.Length = FixedLength(o.Version, base)
	}

	return nil
}

func specializes(id, base ObjectID, v Version) bool {
	if id <= None || id >= numObjectIDs {
		return false
	}
	if id != base && classes[id].family != base {
		return false
	}
	return Available(v, id)
}
