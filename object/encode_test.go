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

import (
	"encoding/binary"
	"net"
	"testing"

	"github.com/Kmotiko/gofc/ofprotocol/ofp13"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gofcFlowMod builds in_port=1,ip actions=goto_table:1,apply(output:2).
func gofcFlowMod() []byte {
	match := ofp13.NewOfpMatch()
	match.Append(ofp13.NewOxmInPort(1))
	match.Append(ofp13.NewOxmEthType(0x0800))

	apply := ofp13.NewOfpInstructionActions(ofp13.OFPIT_APPLY_ACTIONS)
	apply.Append(ofp13.NewOfpActionOutput(2, 0))

	fm := ofp13.NewOfpFlowModAdd(0, 0, 0, 100, 0, match,
		[]ofp13.OfpInstruction{ofp13.NewOfpInstructionGotoTable(1), apply})
	return fm.Serialize()
}

func appendOXM(t *testing.T, list *Object, id ObjectID) *Object {
	oxm := &Object{}
	Init(oxm, id, list.Version, -1, 0)
	require.NoError(t, AppendBind(list, oxm))
	return oxm
}

func Test_EncodeFlowModMatchesGofc(t *testing.T) {
	expected := gofcFlowMod()

	oxms := newList(t, ListOXM, 64)
	defer oxms.Delete()
	appendOXM(t, oxms, OXMInPort).SetU32(OXMValueOffset, 1)
	appendOXM(t, oxms, OXMEthType).SetU16(OXMValueOffset, 0x0800)

	fm, err := Create(FlowMod, Version13)
	require.NoError(t, err)
	defer fm.Delete()

	require.NoError(t, fm.SetXID(binary.BigEndian.Uint32(expected[4:])))
	fm.SetU16(FlowModPriorityOffset, 100)
	fm.SetU32(FlowModBufferIDOffset, ofp13.OFP_NO_BUFFER)
	fm.SetU32(FlowModOutPortOffset, ofp13.OFPP_ANY)
	fm.SetU32(FlowModOutGroupOffset, ofp13.OFPG_ANY)

	require.NoError(t, AppendMatch(fm, oxms))

	var insts Object
	require.NoError(t, FlowModInstructions(fm, &insts))

	var inst Object
	Init(&inst, InstructionGotoTable, Version13, -1, 0)
	require.NoError(t, AppendBind(&insts, &inst))
	inst.SetU8(InstructionGotoTableOffset, 1)

	Init(&inst, InstructionApplyActions, Version13, -1, 0)
	require.NoError(t, AppendBind(&insts, &inst))

	var actions Object
	require.NoError(t, InstructionActions(&inst, &actions))

	var out Object
	Init(&out, ActionOutput, Version13, -1, 0)
	require.NoError(t, AppendBind(&actions, &out))
	out.SetU32(ActionOutputPortOffset, 2)

	assert.Equal(t, expected, fm.Bytes())
}

func Test_DecodeFlowMod(t *testing.T) {
	fm, err := NewFromMessage(gofcFlowMod(), nil)
	require.NoError(t, err)
	defer fm.Delete()

	assert.Equal(t, FlowMod, fm.ID)
	assert.Equal(t, uint16(100), fm.U16(FlowModPriorityOffset))

	var m, oxms Object
	require.NoError(t, FlowModMatch(fm, &m))
	assert.Equal(t, 18, m.Length)
	require.NoError(t, MatchOXMs(&m, &oxms))

	var fields []ObjectID
	require.NoError(t, ForEach(&oxms, func(oxm *Object) error {
		fields = append(fields, oxm.ID)
		return nil
	}))
	assert.Equal(t, []ObjectID{OXMInPort, OXMEthType}, fields)

	var insts, cursor Object
	require.NoError(t, FlowModInstructions(fm, &insts))
	require.NoError(t, FirstElement(&insts, &cursor))
	assert.Equal(t, InstructionGotoTable, cursor.ID)
	assert.Equal(t, uint8(1), cursor.U8(InstructionGotoTableOffset))

	require.NoError(t, NextElement(&insts, &cursor))
	assert.Equal(t, InstructionApplyActions, cursor.ID)
	assert.Equal(t, 24, cursor.Length)

	var actions, action Object
	require.NoError(t, InstructionActions(&cursor, &actions))
	require.NoError(t, FirstElement(&actions, &action))
	assert.Equal(t, ActionOutput, action.ID)
	assert.Equal(t, uint32(2), action.U32(ActionOutputPortOffset))
	assert.Equal(t, ErrEndOfSequence, NextElement(&actions, &action))

	assert.Equal(t, ErrEndOfSequence, NextElement(&insts, &cursor))
}

func Test_EncodeSetFieldMatchesGofc(t *testing.T) {
	oxm, err := ofp13.NewOxmEthDst("aa:bb:cc:dd:ee:ff")
	require.NoError(t, err)
	expected := ofp13.NewOfpActionSetField(oxm).Serialize()

	actions := newList(t, ListAction, 64)
	defer actions.Delete()

	var sf Object
	Init(&sf, ActionSetField, Version13, SetFieldLength(FixedLength(Version13, OXMEthDst)), 0)
	require.NoError(t, AppendBind(actions, &sf))

	var field Object
	require.NoError(t, Attach(&sf, &field, ActionSetFieldOXMOffset, 0))
	Init(&field, OXMEthDst, Version13, -1, InitWire)
	mac, err := net.ParseMAC("aa:bb:cc:dd:ee:ff")
	require.NoError(t, err)
	field.Copy(OXMValueOffset, mac)

	assert.Equal(t, expected, actions.Bytes())

	var decoded Object
	require.NoError(t, ActionSetFieldOXM(&sf, &decoded))
	assert.Equal(t, OXMEthDst, decoded.ID)
	assert.Equal(t, []byte(mac), decoded.Slice(OXMValueOffset, 6))
}

func Test_EncodePacketOutMatchesGofc(t *testing.T) {
	data := []byte{0xde, 0xad, 0xbe, 0xef}
	gofc := ofp13.NewOfpPacketOut(ofp13.OFP_NO_BUFFER, ofp13.OFPP_CONTROLLER,
		[]ofp13.OfpAction{ofp13.NewOfpActionOutput(3, 0)}, data)
	expected := gofc.Serialize()

	po, err := Create(PacketOut, Version13)
	require.NoError(t, err)
	defer po.Delete()

	require.NoError(t, po.SetXID(binary.BigEndian.Uint32(expected[4:])))
	po.SetU32(PacketOutBufferIDOffset, ofp13.OFP_NO_BUFFER)
	po.SetU32(PacketOutInPortOffset, ofp13.OFPP_CONTROLLER)

	var actions Object
	require.NoError(t, PacketOutActions(po, &actions))
	var out Object
	Init(&out, ActionOutput, Version13, -1, 0)
	require.NoError(t, AppendBind(&actions, &out))
	out.SetU32(ActionOutputPortOffset, 3)
	po.SetU16(PacketOutActionsLenOffset, uint16(actions.Length))

	require.NoError(t, Extend(po, len(data)))
	po.Copy(po.Length-len(data), data)

	assert.Equal(t, expected, po.Bytes())
	assert.Equal(t, data, PacketOutData(po))
}

func Test_DecodePacketIn(t *testing.T) {
	frame := []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x00, 0x11}

	msg := make([]byte, 24+16+2+len(frame))
	msg[0] = 0x04
	msg[1] = ofp13.OFPT_PACKET_IN
	binary.BigEndian.PutUint16(msg[2:], uint16(len(msg)))
	binary.BigEndian.PutUint32(msg[8:], ofp13.OFP_NO_BUFFER)
	binary.BigEndian.PutUint16(msg[12:], uint16(len(frame)))
	copy(msg[24:], ofp13.NewOfpMatch().Serialize())
	binary.BigEndian.PutUint16(msg[26:], 12)
	copy(msg[28:], ofp13.NewOxmInPort(5).Serialize())
	copy(msg[24+16+2:], frame)

	pi, err := NewFromMessage(msg, nil)
	require.NoError(t, err)
	defer pi.Delete()
	assert.Equal(t, PacketIn, pi.ID)

	var m, oxms, inPort Object
	require.NoError(t, PacketInMatch(pi, &m))
	require.NoError(t, MatchOXMs(&m, &oxms))
	require.NoError(t, FirstElement(&oxms, &inPort))
	assert.Equal(t, OXMInPort, inPort.ID)
	assert.Equal(t, uint32(5), inPort.U32(OXMValueOffset))

	got, err := PacketInData(pi)
	require.NoError(t, err)
	assert.Equal(t, frame, got)
}
