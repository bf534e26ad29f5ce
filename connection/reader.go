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
	"bufio"
	"fmt"
	"io"

	"k8s.io/klog"

	"github.com/k-vswitch/ofwire/object"
	"github.com/k-vswitch/ofwire/wirebuf"
)

// ErrFraming is returned when a header announces a length shorter than
// the header itself. The stream cannot be resynchronized after it.
var ErrFraming = fmt.Errorf("bad message framing: %w", object.ErrParse)

// Reader splits a stream of OpenFlow messages.
type Reader struct {
	reader *bufio.Reader

	// scratch space for ReadMessagePreallocated
	storage object.Storage
	buf     []byte
}

func NewReader(r io.Reader) *Reader {
	return &Reader{
		reader: bufio.NewReader(r),
	}
}

// next reads one framed message into buf, or into a new slice if buf is
// nil. It returns io.EOF only at a message boundary.
func (r *Reader) next(buf []byte) ([]byte, error) {
	// peek into the first 8 bytes (the size of OF header messages)
	// the header message contains the length of the entire message
	// which we need later to move the reader forward
	header, err := r.reader.Peek(headerLen)
	if err != nil {
		if err == io.EOF && len(header) > 0 {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}

	msgLen := MessageLength(header)
	if msgLen < headerLen {
		return nil, fmt.Errorf("message length %d: %w", msgLen, ErrFraming)
	}

	if buf == nil {
		buf = make([]byte, msgLen)
	}
	buf = buf[:msgLen]

	if _, err := io.ReadFull(r.reader, buf); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return buf, nil
}

// ReadMessage reads and decodes the next message. The returned tree owns
// its bytes. A message that fails validation is consumed and reported
// with object.ErrValidationFailed; the stream stays usable.
func (r *Reader) ReadMessage() (*object.Object, error) {
	buf, err := r.next(nil)
	if err != nil {
		return nil, err
	}

	msg, err := object.NewFromMessage(buf, nil)
	if err != nil {
		return nil, err
	}

	klog.V(5).Infof("received %s", msg)
	return msg, nil
}

// ReadMessagePreallocated is ReadMessage without per message allocation.
// The returned tree is only valid until the next call.
func (r *Reader) ReadMessagePreallocated() (*object.Object, error) {
	if r.buf == nil {
		r.buf = make([]byte, wirebuf.MaxMessageLength)
	}

	buf, err := r.next(r.buf)
	if err != nil {
		return nil, err
	}

	return object.NewFromMessagePreallocated(&r.storage, buf)
}
