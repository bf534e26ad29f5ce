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

package connection

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/Kmotiko/gofc/ofprotocol/ofp13"

	"github.com/k-vswitch/ofwire/object"
)

const headerLen = 8

// SerializeMessage returns a copy of the encoded bytes of a message tree.
func SerializeMessage(msg *object.Object) []byte {
	return append([]byte(nil), msg.Bytes()...)
}

// ParseMessage validates buf and decodes it in place. buf must not be
// modified while the returned object is in use.
func ParseMessage(buf []byte) (*object.Object, error) {
	return object.NewFromMessage(buf, nil)
}

// WriteMessage writes the encoded bytes of a message tree to w.
func WriteMessage(w io.Writer, msg *object.Object) error {
	if !msg.ID.IsMessage() {
		return fmt.Errorf("writing %s: %w", msg.ID, object.ErrInvalidArgument)
	}

	_, err := w.Write(msg.Bytes())
	return err
}

// FromOFMessage encodes a gofc message and decodes the result into an
// object tree that owns the encoded bytes.
func FromOFMessage(msg ofp13.OFMessage) (*object.Object, error) {
	return object.NewFromMessage(msg.Serialize(), nil)
}

// ToOFMessage converts a message tree to its gofc representation. gofc
// only parses messages sent by a switch; other kinds are rejected.
func ToOFMessage(msg *object.Object) (ofp13.OFMessage, error) {
	if !msg.ID.IsMessage() || msg.Version != object.Version13 {
		return nil, fmt.Errorf("no gofc form for %s: %w", msg, object.ErrInvalidArgument)
	}

	parsed := ofp13.Parse(SerializeMessage(msg))
	if parsed == nil {
		return nil, fmt.Errorf("no gofc form for %s: %w", msg, object.ErrInvalidArgument)
	}
	return parsed, nil
}

func MessageLength(buf []byte) int {
	// Length attribute in OFP header is uint16 read in BigEndian
	// buf[2:] because first byte is version, second byte is type and
	// length is next
	if len(buf) < 4 {
		return 0
	}
	return int(binary.BigEndian.Uint16(buf[2:]))
}
