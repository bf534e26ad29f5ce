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
	"github.com/Kmotiko/gofc/ofprotocol/ofp13"

	"github.com/k-vswitch/ofwire/object"
)

// NewPacketOut builds an unbuffered packet out sending frame through
// outPort as if it had arrived on inPort.
func NewPacketOut(version object.Version, inPort, outPort uint32, frame []byte) (*object.Object, error) {
	po, err := object.Create(object.PacketOut, version)
	if err != nil {
		return nil, err
	}

	po.SetU32(object.PacketOutBufferIDOffset, ofp13.OFP_NO_BUFFER)
	po.SetU32(object.PacketOutInPortOffset, inPort)

	var actions object.Object
	if err := object.PacketOutActions(po, &actions); err != nil {
		po.Delete()
		return nil, err
	}

	w := &writer{list: &actions}
	w.output(outPort)
	if w.err != nil {
		po.Delete()
		return nil, w.err
	}
	po.SetU16(object.PacketOutActionsLenOffset, uint16(actions.Length))

	if err := object.Extend(po, len(frame)); err != nil {
		po.Delete()
		return nil, err
	}
	po.Copy(po.Length-len(frame), frame)

	return po, nil
}
