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

// Field offsets, relative to the start of the object, for OF1.3 and
// OF1.4.
const (
	HeaderTypeOffset   = 1
	HeaderLengthOffset = 2
	HeaderXIDOffset    = 4

	FeaturesReplyDatapathIDOffset   = 8
	FeaturesReplyNBuffersOffset     = 16
	FeaturesReplyNTablesOffset      = 20
	FeaturesReplyAuxiliaryIDOffset  = 21
	FeaturesReplyCapabilitiesOffset = 24

	FlowModCookieOffset      = 8
	FlowModCookieMaskOffset  = 16
	FlowModTableIDOffset     = 24
	FlowModCommandOffset     = 25
	FlowModIdleTimeoutOffset = 26
	FlowModHardTimeoutOffset = 28
	FlowModPriorityOffset    = 30
	FlowModBufferIDOffset    = 32
	FlowModOutPortOffset     = 36
	FlowModOutGroupOffset    = 40
	FlowModFlagsOffset       = 44
	FlowModMatchOffset       = 48

	PacketOutBufferIDOffset   = 8
	PacketOutInPortOffset     = 12
	PacketOutActionsLenOffset = 16
	PacketOutActionsOffset    = 24

	PacketInBufferIDOffset = 8
	PacketInTotalLenOffset = 12
	PacketInReasonOffset   = 14
	PacketInTableIDOffset  = 15
	PacketInCookieOffset   = 16
	PacketInMatchOffset    = 24

	ActionOutputPortOffset     = 4
	ActionOutputMaxLenOffset   = 8
	ActionGroupIDOffset        = 4
	ActionSetQueueIDOffset     = 4
	ActionTTLOffset            = 4
	ActionPushEtherTypeOffset  = 4
	ActionSetFieldOXMOffset    = 4
	InstructionGotoTableOffset = 4
	InstructionMetadataOffset  = 8
	InstructionMetaMaskOffset  = 16
	InstructionMeterIDOffset   = 4
	InstructionActionsOffset   = 8
	MatchOXMsOffset            = 4
	OXMValueOffset             = 4
)

// Pad8 rounds n up to a multiple of 8.
func Pad8(n int) int {
	return (n + 7) &^ 7
}

// SetFieldLength is the encoded length of a set_field action carrying an
// OXM of oxmLen bytes.
func SetFieldLength(oxmLen int) int {
	return Pad8(ActionSetFieldOXMOffset + oxmLen)
}

func (o *Object) U8(offset int) uint8 {
	return o.wire.buf.U8(o.wire.offset + offset)
}

func (o *Object) SetU8(offset int, v uint8) {
	o.wire.buf.SetU8(o.wire.offset+offset, v)
}

func (o *Object) U16(offset int) uint16 {
	return o.wire.buf.U16(o.wire.offset + offset)
}

func (o *Object) SetU16(offset int, v uint16) {
	o.wire.buf.SetU16(o.wire.offset+offset, v)
}

func (o *Object) U32(offset int) uint32 {
	return o.wire.buf.U32(o.wire.offset + offset)
}

func (o *Object) SetU32(offset int, v uint32) {
	o.wire.buf.SetU32(o.wire.offset+offset, v)
}

func (o *Object) U64(offset int) uint64 {
	return o.wire.buf.U64(o.wire.offset + offset)
}

func (o *Object) SetU64(offset int, v uint64) {
	o.wire.buf.SetU64(o.wire.offset+offset, v)
}

// Slice returns n bytes at offset, aliasing the buffer.
func (o *Object) Slice(offset, n int) []byte {
	return o.wire.buf.Slice(o.wire.offset+offset, n)
}

// Copy writes data at offset. The bytes must already be inside o.
func (o *Object) Copy(offset int, data []byte) {
	if offset+len(data) > o.Length {
		panicf("copy of %d bytes at %d overruns %s", len(data), offset, o.ID)
	}
	o.wire.buf.Copy(o.wire.offset+offset, data)
}

// XID returns the transaction id of a message.
func (o *Object) XID() (uint32, error) {
	if o.wire.buf == nil {
		return 0, ErrInvalidArgument
	}
	return o.U32(HeaderXIDOffset), nil
}

// SetXID sets the transaction id of a message.
func (o *Object) SetXID(xid uint32) error {
	if o.wire.buf == nil {
		return ErrInvalidArgument
	}
	o.SetU32(HeaderXIDOffset, xid)
	return nil
}

// FlowModMatch binds m as a view of the match of a flow mod.
func FlowModMatch(fm, m *Object) error {
	return bindMatch(fm, m, FlowModMatchOffset)
}

// PacketInMatch binds m as a view of the match of a packet in.
func PacketInMatch(pi, m *Object) error {
	return bindMatch(pi, m, PacketInMatchOffset)
}

func bindMatch(msg, m *Object, offset int) error {
	if msg.Length < offset+FixedLength(msg.Version, Match) {
		return fmt.Errorf("%s of %d bytes has no match: %w", msg.ID, msg.Length, ErrParse)
	}
	if err := Attach(msg, m, offset, 0); err != nil {
		return err
	}

	Init(m, Match, msg.Version, -1, 0)
	return WireInit(m, Match, msg.Length-offset)
}

// FlowModInstructions binds list as a view of the instructions of a flow
// mod; they follow the padded match.
func FlowModInstructions(fm, list *Object) error {
	var m Object
	if err := FlowModMatch(fm, &m); err != nil {
		return err
	}

	offset := FlowModMatchOffset + Pad8(m.Length)
	if offset > fm.Length {
		return fmt.Errorf("flow mod match padding runs past %d bytes: %w", fm.Length, ErrParse)
	}
	return bindList(fm, list, ListInstruction, offset, fm.Length-offset)
}

// MatchOXMs binds list as a view of the OXMs of a match.
func MatchOXMs(m, list *Object) error {
	return bindList(m, list, ListOXM, MatchOXMsOffset, m.Length-MatchOXMsOffset)
}

// InstructionActions binds list as a view of the actions of a write or
// apply actions instruction.
func InstructionActions(inst, list *Object) error {
	if inst.ID != InstructionWriteActions && inst.ID != InstructionApplyActions {
		return fmt.Errorf("%s carries no actions: %w", inst.ID, ErrInvalidArgument)
	}
	return bindList(inst, list, ListAction, InstructionActionsOffset, inst.Length-InstructionActionsOffset)
}

// PacketOutActions binds list as a view of the actions of a packet out.
func PacketOutActions(po, list *Object) error {
	n := int(po.U16(PacketOutActionsLenOffset))
	return bindList(po, list, ListAction, PacketOutActionsOffset, n)
}

// PacketOutData returns the frame carried by a packet out.
func PacketOutData(po *Object) []byte {
	offset := PacketOutActionsOffset + int(po.U16(PacketOutActionsLenOffset))
	if offset >= po.Length {
		return nil
	}
	return po.Slice(offset, po.Length-offset)
}

// PacketInData returns the frame carried by a packet in. It follows the
// padded match and two bytes of padding.
func PacketInData(pi *Object) ([]byte, error) {
	var m Object
	if err := PacketInMatch(pi, &m); err != nil {
		return nil, err
	}

	offset := PacketInMatchOffset + Pad8(m.Length) + 2
	if offset > pi.Length {
		return nil, fmt.Errorf("packet in data offset %d past %d bytes: %w", offset, pi.Length, ErrParse)
	}
	return pi.Slice(offset, pi.Length-offset), nil
}

// ActionSetFieldOXM binds oxm as a view of the field set by a set_field
// action.
func ActionSetFieldOXM(a, oxm *Object) error {
	if a.ID != ActionSetField {
		return fmt.Errorf("%s carries no field: %w", a.ID, ErrInvalidArgument)
	}
	if err := Attach(a, oxm, ActionSetFieldOXMOffset, 0); err != nil {
		return err
	}

	Init(oxm, OXM, a.Version, -1, 0)
	return WireInit(oxm, OXM, a.Length-ActionSetFieldOXMOffset)
}

func bindList(parent, list *Object, id ObjectID, offset, length int) error {
	if length < 0 || offset+length > parent.Length {
		return fmt.Errorf("%s of %d bytes at %d overruns %s: %w", id, length, offset, parent.ID, ErrParse)
	}
	if err := Attach(parent, list, offset, 0); err != nil {
		return err
	}

	Init(list, id, parent.Version, length, 0)
	return nil
}

// AppendMatch encodes a match holding the OXMs of oxms at the end of msg
// and pads it to 8 bytes. oxms may live in another buffer and may be nil.
func AppendMatch(msg, oxms *Object) error {
	n := 0
	if oxms != nil {
		n = oxms.Length
	}
	fixed := FixedLength(msg.Version, Match)
	if fixed == 0 {
		return fmt.Errorf("no OXM match in %s: %w", msg.Version, ErrInvalidVersion)
	}
	if !msg.CanGrow(msg.Length + Pad8(fixed+n)) {
		return fmt.Errorf("appending %d byte match to %s: %w", Pad8(fixed+n), msg.ID, ErrResourceExhausted)
	}

	var m Object
	Init(&m, Match, msg.Version, -1, 0)
	if err := Attach(msg, &m, msg.Length, m.Length); err != nil {
		return err
	}
	m.pushWire()
	PropagateLength(msg, m.Length)

	if n > 0 {
		var list Object
		if err := MatchOXMs(&m, &list); err != nil {
			return err
		}
		if err := Append(&list, oxms); err != nil {
			return err
		}
	}

	return Extend(msg, Pad8(m.Length)-m.Length)
}
