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
	"errors"
	"io"
	"sync"

	"k8s.io/klog"

	"github.com/k-vswitch/ofwire/object"
)

// OFConnect moves message trees over one established OpenFlow channel.
// Serve feeds received messages to Receive; Send queues messages that
// ProcessQueue writes in order.
type OFConnect struct {
	reader *Reader

	queue     []*object.Object
	queueMu   sync.Mutex
	queueCond sync.Cond
	closed    bool

	conn   io.Writer
	connMu sync.Mutex

	receiveCh chan *object.Object
}

func NewOFConnect(conn io.ReadWriter) *OFConnect {
	of := &OFConnect{
		reader:    NewReader(conn),
		queue:     make([]*object.Object, 0),
		conn:      conn,
		receiveCh: make(chan *object.Object),
	}

	of.queueCond.L = &of.queueMu
	return of
}

// Receive returns the next received message, or false once Serve has
// returned.
func (of *OFConnect) Receive() (*object.Object, bool) {
	msg, ok := <-of.receiveCh
	return msg, ok
}

// Send queues msg. The connection takes ownership and deletes it once
// written.
func (of *OFConnect) Send(msg *object.Object) {
	of.queueMu.Lock()
	defer of.queueMu.Unlock()

	of.queue = append(of.queue, msg)
	of.queueCond.Broadcast()
}

// Close stops ProcessQueue once the queue is drained.
func (of *OFConnect) Close() {
	of.queueMu.Lock()
	defer of.queueMu.Unlock()

	of.closed = true
	of.queueCond.Broadcast()
}

func (of *OFConnect) WriteConnection(msg *object.Object) error {
	of.connMu.Lock()
	defer of.connMu.Unlock()

	defer msg.Delete()
	return WriteMessage(of.conn, msg)
}

func (of *OFConnect) ProcessQueue() {
	for {
		of.queueMu.Lock()
		for len(of.queue) == 0 && !of.closed {
			of.queueCond.Wait()
		}

		if len(of.queue) == 0 {
			of.queueMu.Unlock()
			return
		}

		msg := of.queue[0]
		of.queue = of.queue[1:]
		of.queueMu.Unlock()

		klog.V(5).Infof("sending %s", msg)
		if err := of.WriteConnection(msg); err != nil {
			klog.Errorf("error writing to connection: %v", err)
		}
	}
}

// Serve reads messages until the stream ends or breaks. Messages that
// fail validation are logged and skipped. It returns nil at a clean end
// of stream.
func (of *OFConnect) Serve() error {
	defer close(of.receiveCh)

	for {
		msg, err := of.reader.ReadMessage()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			if errors.Is(err, object.ErrValidationFailed) || errors.Is(err, object.ErrInvalidVersion) {
				klog.Errorf("dropping message: %v", err)
				continue
			}

			klog.Errorf("error reading connection: %v", err)
			return err
		}

		of.receiveCh <- msg
	}
}
