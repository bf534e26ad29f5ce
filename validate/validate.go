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

// Package validate checks the structure of OpenFlow messages received
// from an untrusted peer before they are decoded in place.
package validate

import (
	"encoding/binary"
	"fmt"

	"github.com/Kmotiko/gofc/ofprotocol/ofp13"
)

const (
	headerLen        = 8
	flowModFixedLen  = 48
	packetInFixedLen = 24
	packetOutFixed   = 24
	featuresReplyLen = 32
	matchHeaderLen   = 4
	oxmHeaderLen     = 4
	tlvHeaderLen     = 4
	minTLVLen        = 8

	version10 = 0x01
	version13 = 0x04
	version14 = 0x05

	// OF1.0 numbers barriers before the group and table messages.
	barrierRequest10 = 18
	barrierReply10   = 19
)

// Error describes the first structural problem found in a message.
type Error struct {
	Offset int
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("offset %d: %s", e.Offset, e.Reason)
}

func fail(offset int, format string, args ...interface{}) error {
	return &Error{Offset: offset, Reason: fmt.Sprintf(format, args...)}
}

// Message returns nil if msg is a complete, well formed message of a
// supported kind. It does not allocate unless msg is rejected.
func Message(msg []byte) error {
	if len(msg) < headerLen {
		return fail(0, "message of %d bytes is shorter than a header", len(msg))
	}

	version := msg[0]
	if version < version10 || version > version14 {
		return fail(0, "unsupported version 0x%02x", version)
	}

	length := int(binary.BigEndian.Uint16(msg[2:]))
	if length != len(msg) {
		return fail(2, "header length %d, message has %d bytes", length, len(msg))
	}

	t := msg[1]
	if version == version10 {
		switch t {
		case ofp13.OFPT_HELLO, ofp13.OFPT_ECHO_REQUEST, ofp13.OFPT_ECHO_REPLY:
			return nil
		case ofp13.OFPT_FEATURES_REQUEST, barrierRequest10, barrierReply10:
			return exact(msg, headerLen)
		}
		return fail(1, "unsupported message type %d in version 0x%02x", t, version)
	}

	switch t {
	case ofp13.OFPT_HELLO, ofp13.OFPT_ECHO_REQUEST, ofp13.OFPT_ECHO_REPLY:
		return nil
	case ofp13.OFPT_FEATURES_REQUEST, ofp13.OFPT_BARRIER_REQUEST, ofp13.OFPT_BARRIER_REPLY:
		return exact(msg, headerLen)
	}

	if version < version13 {
		return fail(1, "unsupported message type %d in version 0x%02x", t, version)
	}

	switch t {
	case ofp13.OFPT_FEATURES_REPLY:
		return exact(msg, featuresReplyLen)
	case ofp13.OFPT_FLOW_MOD:
		return flowMod(msg)
	case ofp13.OFPT_PACKET_IN:
		return packetIn(msg)
	case ofp13.OFPT_PACKET_OUT:
		return packetOut(msg)
	}
	return fail(1, "unsupported message type %d in version 0x%02x", t, version)
}

func exact(msg []byte, n int) error {
	if len(msg) != n {
		return fail(2, "message type %d must be %d bytes, got %d", msg[1], n, len(msg))
	}
	return nil
}

func flowMod(msg []byte) error {
	end, err := match(msg, flowModFixedLen)
	if err != nil {
		return err
	}
	return instructions(msg, end, len(msg))
}

func packetIn(msg []byte) error {
	end, err := match(msg, packetInFixedLen)
	if err != nil {
		return err
	}
	if end+2 > len(msg) {
		return fail(end, "packet in has no room for data padding")
	}
	return nil
}

func packetOut(msg []byte) error {
	if len(msg) < packetOutFixed {
		return fail(0, "packet out of %d bytes is shorter than %d", len(msg), packetOutFixed)
	}

	n := int(binary.BigEndian.Uint16(msg[16:]))
	if packetOutFixed+n > len(msg) {
		return fail(16, "actions length %d runs past message end", n)
	}
	return actions(msg, packetOutFixed, packetOutFixed+n)
}

// match checks the OXM match at offset and returns the offset following
// its padding.
func match(msg []byte, offset int) (int, error) {
	if offset+minTLVLen > len(msg) {
		return 0, fail(offset, "no room for a match")
	}

	if t := binary.BigEndian.Uint16(msg[offset:]); t != ofp13.OFPMT_OXM {
		return 0, fail(offset, "match type %d is not OXM", t)
	}

	length := int(binary.BigEndian.Uint16(msg[offset+2:]))
	if length < matchHeaderLen {
		return 0, fail(offset+2, "match length %d is shorter than its header", length)
	}

	end := offset + pad8(length)
	if end > len(msg) {
		return 0, fail(offset+2, "match length %d runs past message end", length)
	}

	if err := oxms(msg, offset+matchHeaderLen, offset+length); err != nil {
		return 0, err
	}
	return end, nil
}

func oxms(msg []byte, offset, end int) error {
	for offset < end {
		if offset+oxmHeaderLen > end {
			return fail(offset, "truncated OXM header")
		}

		n := oxmHeaderLen + int(msg[offset+3])
		if offset+n > end {
			return fail(offset, "OXM of %d bytes runs past match end", n)
		}
		offset += n
	}
	return nil
}

// tlv checks the type/length header at offset and returns the length.
func tlv(msg []byte, offset, end int, what string) (uint16, int, error) {
	if offset+tlvHeaderLen > end {
		return 0, 0, fail(offset, "truncated %s header", what)
	}

	t := binary.BigEndian.Uint16(msg[offset:])
	n := int(binary.BigEndian.Uint16(msg[offset+2:]))
	switch {
	case n < minTLVLen:
		return 0, 0, fail(offset+2, "%s length %d is shorter than %d", what, n, minTLVLen)
	case n%8 != 0:
		return 0, 0, fail(offset+2, "%s length %d is not a multiple of 8", what, n)
	case offset+n > end:
		return 0, 0, fail(offset+2, "%s length %d runs past its container", what, n)
	}
	return t, n, nil
}

func instructions(msg []byte, offset, end int) error {
	for offset < end {
		t, n, err := tlv(msg, offset, end, "instruction")
		if err != nil {
			return err
		}

		switch t {
		case ofp13.OFPIT_WRITE_ACTIONS, ofp13.OFPIT_APPLY_ACTIONS:
			if err := actions(msg, offset+8, offset+n); err != nil {
				return err
			}
		case ofp13.OFPIT_WRITE_METADATA:
			if n < 24 {
				return fail(offset+2, "write metadata instruction of %d bytes", n)
			}
		}
		offset += n
	}
	return nil
}

func actions(msg []byte, offset, end int) error {
	for offset < end {
		t, n, err := tlv(msg, offset, end, "action")
		if err != nil {
			return err
		}

		switch t {
		case ofp13.OFPAT_OUTPUT:
			if n < 16 {
				return fail(offset+2, "output action of %d bytes", n)
			}
		case ofp13.OFPAT_SET_FIELD:
			// one OXM, then zero padding
			oxm := offset + tlvHeaderLen
			if oxm+oxmHeaderLen+int(msg[oxm+3]) > offset+n {
				return fail(oxm, "set field OXM runs past action end")
			}
		}
		offset += n
	}
	return nil
}

func pad8(n int) int {
	return (n + 7) &^ 7
}
