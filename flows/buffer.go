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

package flows

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"k8s.io/klog"

	"github.com/k-vswitch/ofwire/connection"
	"github.com/k-vswitch/ofwire/object"
)

type FlowsBuffer struct {
	buffer *bytes.Buffer
	flows  []*Flow
}

func NewFlowsBuffer() *FlowsBuffer {
	buffer := bytes.NewBuffer(nil)

	return &FlowsBuffer{
		buffer: buffer,
	}
}

func (f *FlowsBuffer) AddFlow(flow *Flow) {
	f.buffer.WriteString(flow.String())
	f.buffer.WriteByte('\n')
	f.flows = append(f.flows, flow)
}

func (f *FlowsBuffer) String() string {
	return f.buffer.String()
}

func (f *FlowsBuffer) Reset() {
	f.buffer.Reset()
	f.flows = nil
}

// Messages encodes the buffered flows as a replacement of the switch's
// flow tables: a delete of every flow, one add per flow, and a barrier
// request. The caller owns the returned messages.
func (f *FlowsBuffer) Messages(version object.Version) ([]*object.Object, error) {
	msgs := make([]*object.Object, 0, len(f.flows)+2)
	cleanup := func() {
		for _, msg := range msgs {
			msg.Delete()
		}
	}

	deleteAll, err := DeleteAllFlows(version)
	if err != nil {
		return nil, err
	}
	msgs = append(msgs, deleteAll)

	for _, flow := range f.flows {
		fm, err := flow.Encode(version)
		if err != nil {
			cleanup()
			return nil, err
		}
		msgs = append(msgs, fm)
	}

	barrier, err := object.Create(object.BarrierRequest, version)
	if err != nil {
		cleanup()
		return nil, err
	}
	msgs = append(msgs, barrier)

	return msgs, nil
}

// SyncFlows replaces the flows of the switch at the other end of w with
// the buffered flows.
func (f *FlowsBuffer) SyncFlows(w io.Writer, version object.Version) error {
	startTime := time.Now()

	msgs, err := f.Messages(version)
	if err != nil {
		return fmt.Errorf("failed to sync flows: %v", err)
	}

	for i, msg := range msgs {
		if err == nil {
			err = connection.WriteMessage(w, msg)
			if err != nil {
				err = fmt.Errorf("failed to sync flows: error writing message %d of %d: %v", i+1, len(msgs), err)
			}
		}
		msg.Delete()
	}
	if err != nil {
		return err
	}

	klog.V(5).Infof("replace-flow took %s", time.Since(startTime).String())
	return nil
}
