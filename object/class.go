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
	"fmt"

	"github.com/Kmotiko/gofc/ofprotocol/ofp13"

	"github.com/k-vswitch/ofwire/wirebuf"
)

// WireOps is the capability record of a polymorphic kind: how its
// concrete type and length are encoded in its own header. Any member may
// be nil.
type WireOps struct {
	TypeGet   func(o *Object) ObjectID
	TypeSet   func(o *Object)
	LengthGet func(o *Object) int
	LengthSet func(o *Object, length int)
}

// InitFlags modify Init.
type InitFlags int

const (
	// InitWire pushes the kind's wire type and length into the buffer.
	InitWire InitFlags = 1 << iota
)

type class struct {
	name   string
	family ObjectID
	// oldest version defining the kind
	since Version
	// length of the fixed part; also the smallest legal encoding
	fixed int
	// kinds whose encoding may extend past the fixed part
	variable bool
	// wire tag within the family: action or instruction type, or the
	// full OXM type_len header
	tag uint32
	// bytes needed to read type and length; families and Match only
	header int
	ops    *WireOps
}

var headerOps = &WireOps{
	TypeGet: func(o *Object) ObjectID {
		return messageID(o.Version, o.U8(1))
	},
	TypeSet: func(o *Object) {
		t, ok := messageType(o.Version, o.ID)
		if !ok {
			panicf("%s has no message type in %s", o.ID, o.Version)
		}
		o.SetU8(0, uint8(o.Version))
		o.SetU8(1, t)
	},
	LengthGet: func(o *Object) int {
		return int(o.U16(2))
	},
	LengthSet: func(o *Object, length int) {
		o.SetU16(2, uint16(length))
	},
}

// Actions and instructions share the type(16) length(16) TLV header.
func tlvOps(lookup map[uint16]ObjectID) *WireOps {
	return &WireOps{
		TypeGet: func(o *Object) ObjectID {
			if id, ok := lookup[o.U16(0)]; ok {
				return id
			}
			return None
		},
		TypeSet: func(o *Object) {
			o.SetU16(0, uint16(classes[o.ID].tag))
		},
		LengthGet: func(o *Object) int {
			return int(o.U16(2))
		},
		LengthSet: func(o *Object, length int) {
			o.SetU16(2, uint16(length))
		},
	}
}

// The OXM header carries type and payload length together, so there is
// no separate length setter.
var oxmOps = &WireOps{
	TypeGet: func(o *Object) ObjectID {
		if id, ok := oxmByHeader[o.U32(0)]; ok {
			return id
		}
		return None
	},
	TypeSet: func(o *Object) {
		o.SetU32(0, classes[o.ID].tag)
	},
	LengthGet: func(o *Object) int {
		return 4 + int(o.U32(0)&0xff)
	},
}

// The match length field excludes the trailing padding.
var matchOps = &WireOps{
	TypeSet: func(o *Object) {
		o.SetU16(0, ofp13.OFPMT_OXM)
	},
	LengthGet: func(o *Object) int {
		return int(o.U16(2))
	},
	LengthSet: func(o *Object, length int) {
		o.SetU16(2, uint16(length))
	},
}

var (
	actionByType      = map[uint16]ObjectID{}
	instructionByType = map[uint16]ObjectID{}
	oxmByHeader       = map[uint32]ObjectID{}
)

var classes = [numObjectIDs]class{
	None: {name: "none"},

	Header:      {name: "header", since: Version10, fixed: 8, variable: true, header: 8},
	Action:      {name: "action", since: Version13, fixed: 8, variable: true, header: 4},
	Instruction: {name: "instruction", since: Version13, fixed: 8, variable: true, header: 4},
	OXM:         {name: "oxm", since: Version13, fixed: 4, variable: true, header: 4},

	Hello:           {name: "hello", family: Header, since: Version10, fixed: 8, variable: true},
	EchoRequest:     {name: "echo_request", family: Header, since: Version10, fixed: 8, variable: true},
	EchoReply:       {name: "echo_reply", family: Header, since: Version10, fixed: 8, variable: true},
	FeaturesRequest: {name: "features_request", family: Header, since: Version10, fixed: 8},
	FeaturesReply:   {name: "features_reply", family: Header, since: Version13, fixed: 32},
	BarrierRequest:  {name: "barrier_request", family: Header, since: Version10, fixed: 8},
	BarrierReply:    {name: "barrier_reply", family: Header, since: Version10, fixed: 8},
	PacketIn:        {name: "packet_in", family: Header, since: Version13, fixed: 24, variable: true},
	PacketOut:       {name: "packet_out", family: Header, since: Version13, fixed: 24, variable: true},
	FlowMod:         {name: "flow_mod", family: Header, since: Version13, fixed: 48, variable: true},

	ActionOutput:     {name: "action_output", family: Action, since: Version13, fixed: 16, tag: ofp13.OFPAT_OUTPUT},
	ActionCopyTTLOut: {name: "action_copy_ttl_out", family: Action, since: Version13, fixed: 8, tag: ofp13.OFPAT_COPY_TTL_OUT},
	ActionCopyTTLIn:  {name: "action_copy_ttl_in", family: Action, since: Version13, fixed: 8, tag: ofp13.OFPAT_COPY_TTL_IN},
	ActionSetMPLSTTL: {name: "action_set_mpls_ttl", family: Action, since: Version13, fixed: 8, tag: ofp13.OFPAT_SET_MPLS_TTL},
	ActionDecMPLSTTL: {name: "action_dec_mpls_ttl", family: Action, since: Version13, fixed: 8, tag: ofp13.OFPAT_DEC_MPLS_TTL},
	ActionPushVLAN:   {name: "action_push_vlan", family: Action, since: Version13, fixed: 8, tag: ofp13.OFPAT_PUSH_VLAN},
	ActionPopVLAN:    {name: "action_pop_vlan", family: Action, since: Version13, fixed: 8, tag: ofp13.OFPAT_POP_VLAN},
	ActionSetQueue:   {name: "action_set_queue", family: Action, since: Version13, fixed: 8, tag: ofp13.OFPAT_SET_QUEUE},
	ActionGroup:      {name: "action_group", family: Action, since: Version13, fixed: 8, tag: ofp13.OFPAT_GROUP},
	ActionSetNwTTL:   {name: "action_set_nw_ttl", family: Action, since: Version13, fixed: 8, tag: ofp13.OFPAT_SET_NW_TTL},
	ActionDecNwTTL:   {name: "action_dec_nw_ttl", family: Action, since: Version13, fixed: 8, tag: ofp13.OFPAT_DEC_NW_TTL},
	ActionSetField:   {name: "action_set_field", family: Action, since: Version13, fixed: 8, variable: true, tag: ofp13.OFPAT_SET_FIELD},

	InstructionGotoTable:     {name: "instruction_goto_table", family: Instruction, since: Version13, fixed: 8, tag: ofp13.OFPIT_GOTO_TABLE},
	InstructionWriteMetadata: {name: "instruction_write_metadata", family: Instruction, since: Version13, fixed: 24, tag: ofp13.OFPIT_WRITE_METADATA},
	InstructionWriteActions:  {name: "instruction_write_actions", family: Instruction, since: Version13, fixed: 8, variable: true, tag: ofp13.OFPIT_WRITE_ACTIONS},
	InstructionApplyActions:  {name: "instruction_apply_actions", family: Instruction, since: Version13, fixed: 8, variable: true, tag: ofp13.OFPIT_APPLY_ACTIONS},
	InstructionClearActions:  {name: "instruction_clear_actions", family: Instruction, since: Version13, fixed: 8, tag: ofp13.OFPIT_CLEAR_ACTIONS},
	InstructionMeter:         {name: "instruction_meter", family: Instruction, since: Version13, fixed: 8, tag: ofp13.OFPIT_METER},

	OXMInPort:        {name: "oxm_in_port", family: OXM, since: Version13},
	OXMMetadata:      {name: "oxm_metadata", family: OXM, since: Version13},
	OXMEthDst:        {name: "oxm_eth_dst", family: OXM, since: Version13},
	OXMEthSrc:        {name: "oxm_eth_src", family: OXM, since: Version13},
	OXMEthType:       {name: "oxm_eth_type", family: OXM, since: Version13},
	OXMVlanVID:       {name: "oxm_vlan_vid", family: OXM, since: Version13},
	OXMIPProto:       {name: "oxm_ip_proto", family: OXM, since: Version13},
	OXMIPv4Src:       {name: "oxm_ipv4_src", family: OXM, since: Version13},
	OXMIPv4SrcMasked: {name: "oxm_ipv4_src_masked", family: OXM, since: Version13},
	OXMIPv4Dst:       {name: "oxm_ipv4_dst", family: OXM, since: Version13},
	OXMIPv4DstMasked: {name: "oxm_ipv4_dst_masked", family: OXM, since: Version13},
	OXMTCPSrc:        {name: "oxm_tcp_src", family: OXM, since: Version13},
	OXMTCPDst:        {name: "oxm_tcp_dst", family: OXM, since: Version13},
	OXMUDPSrc:        {name: "oxm_udp_src", family: OXM, since: Version13},
	OXMUDPDst:        {name: "oxm_udp_dst", family: OXM, since: Version13},
	OXMARPOp:         {name: "oxm_arp_op", family: OXM, since: Version13},
	OXMARPSPA:        {name: "oxm_arp_spa", family: OXM, since: Version13},
	OXMARPTPA:        {name: "oxm_arp_tpa", family: OXM, since: Version13},
	OXMARPSHA:        {name: "oxm_arp_sha", family: OXM, since: Version13},
	OXMARPTHA:        {name: "oxm_arp_tha", family: OXM, since: Version13},
	OXMTunnelID:      {name: "oxm_tunnel_id", family: OXM, since: Version13},
	OXMTunIPv4Dst:    {name: "oxm_tun_ipv4_dst", family: OXM, since: Version13},

	Match:           {name: "match", since: Version13, fixed: 4, variable: true, header: 4},
	ListAction:      {name: "list_action", since: Version13, variable: true},
	ListInstruction: {name: "list_instruction", since: Version13, variable: true},
	ListOXM:         {name: "list_oxm", since: Version13, variable: true},
}

// Open vSwitch tunnel destination, class NXM_1 field 32.
const nxmTunIPv4Dst = 0x0001<<16 | 32<<9 | 4

// OXM kinds are keyed by their full type_len header; the fixed length
// follows from the payload length in it.
var oxmHeaders = map[ObjectID]uint32{
	OXMInPort:        ofp13.OXM_OF_IN_PORT,
	OXMMetadata:      ofp13.OXM_OF_METADATA,
	OXMEthDst:        ofp13.OXM_OF_ETH_DST,
	OXMEthSrc:        ofp13.OXM_OF_ETH_SRC,
	OXMEthType:       ofp13.OXM_OF_ETH_TYPE,
	OXMVlanVID:       ofp13.OXM_OF_VLAN_VID,
	OXMIPProto:       ofp13.OXM_OF_IP_PROTO,
	OXMIPv4Src:       ofp13.OXM_OF_IPV4_SRC,
	OXMIPv4SrcMasked: ofp13.OXM_OF_IPV4_SRC_W,
	OXMIPv4Dst:       ofp13.OXM_OF_IPV4_DST,
	OXMIPv4DstMasked: ofp13.OXM_OF_IPV4_DST_W,
	OXMTCPSrc:        ofp13.OXM_OF_TCP_SRC,
	OXMTCPDst:        ofp13.OXM_OF_TCP_DST,
	OXMUDPSrc:        ofp13.OXM_OF_UDP_SRC,
	OXMUDPDst:        ofp13.OXM_OF_UDP_DST,
	OXMARPOp:         ofp13.OXM_OF_ARP_OP,
	OXMARPSPA:        ofp13.OXM_OF_ARP_SPA,
	OXMARPTPA:        ofp13.OXM_OF_ARP_TPA,
	OXMARPSHA:        ofp13.OXM_OF_ARP_SHA,
	OXMARPTHA:        ofp13.OXM_OF_ARP_THA,
	OXMTunnelID:      ofp13.OXM_OF_TUNNEL_ID,
	OXMTunIPv4Dst:    nxmTunIPv4Dst,
}

// Message type codes from OF1.1 on. OF1.0 numbers barriers differently.
var messageTypes = map[ObjectID]uint8{
	Hello:           ofp13.OFPT_HELLO,
	EchoRequest:     ofp13.OFPT_ECHO_REQUEST,
	EchoReply:       ofp13.OFPT_ECHO_REPLY,
	FeaturesRequest: ofp13.OFPT_FEATURES_REQUEST,
	FeaturesReply:   ofp13.OFPT_FEATURES_REPLY,
	BarrierRequest:  ofp13.OFPT_BARRIER_REQUEST,
	BarrierReply:    ofp13.OFPT_BARRIER_REPLY,
	PacketIn:        ofp13.OFPT_PACKET_IN,
	PacketOut:       ofp13.OFPT_PACKET_OUT,
	FlowMod:         ofp13.OFPT_FLOW_MOD,
}

var messageTypes10 = map[ObjectID]uint8{
	BarrierRequest: 18,
	BarrierReply:   19,
}

var messageIDs [numVersions]map[uint8]ObjectID

func init() {
	actions := tlvOps(actionByType)
	instructions := tlvOps(instructionByType)

	for id := range classes {
		c := &classes[id]
		switch c.family {
		case Header:
			c.ops = headerOps
		case Action:
			c.ops = actions
			actionByType[uint16(c.tag)] = ObjectID(id)
		case Instruction:
			c.ops = instructions
			instructionByType[uint16(c.tag)] = ObjectID(id)
		case OXM:
			c.ops = oxmOps
			c.tag = oxmHeaders[ObjectID(id)]
			c.fixed = 4 + int(c.tag&0xff)
			oxmByHeader[c.tag] = ObjectID(id)
		}
	}
	classes[Header].ops = headerOps
	classes[Action].ops = actions
	classes[Instruction].ops = instructions
	classes[OXM].ops = oxmOps
	classes[Match].ops = matchOps

	for v := Version10; v <= Version14; v++ {
		ids := map[uint8]ObjectID{}
		for id := range messageTypes {
			if t, ok := messageType(v, id); ok {
				ids[t] = id
			}
		}
		messageIDs[v] = ids
	}
}

func (id ObjectID) isFamily() bool {
	return id == Header || id == Action || id == Instruction || id == OXM
}

func classOf(id ObjectID) *class {
	if id <= None || id >= numObjectIDs {
		panicf("unknown object id %d", int(id))
	}
	return &classes[id]
}

func messageType(v Version, id ObjectID) (uint8, bool) {
	if !Available(v, id) || id.Family() != Header {
		return 0, false
	}
	if v == Version10 {
		if t, ok := messageTypes10[id]; ok {
			return t, true
		}
	}
	t, ok := messageTypes[id]
	return t, ok
}

// messageID maps a header type byte back to a message kind, or None.
func messageID(v Version, t uint8) ObjectID {
	if !v.Valid() {
		return None
	}
	if id, ok := messageIDs[v][t]; ok {
		return id
	}
	return None
}

// MessageID returns the message kind encoded by type byte t in version
// v, or None.
func MessageID(v Version, t uint8) ObjectID {
	return messageID(v, t)
}

// Available reports whether kind id is defined in version v.
func Available(v Version, id ObjectID) bool {
	if !v.Valid() || id <= None || id >= numObjectIDs {
		return false
	}
	return v >= classes[id].since
}

// FixedLength returns the length of the fixed part of kind id in
// version v, or 0 when the kind does not exist in v.
func FixedLength(v Version, id ObjectID) int {
	if !Available(v, id) {
		return 0
	}
	return classes[id].fixed
}

// Init wires o as a kind id object of the given version. A negative
// length selects the fixed length. Init never touches the buffer unless
// flags has InitWire, in which case the kind's type and length are pushed
// to the wire; the buffer must already cover the object.
func Init(o *Object, id ObjectID, version Version, length int, flags InitFlags) {
	c := classOf(id)

	o.ID = id
	o.Version = version
	o.ops = c.ops
	if length < 0 {
		length = c.fixed
	}
	o.Length = length

	if flags&InitWire != 0 && o.wire.buf != nil {
		end := o.wire.offset + o.Length
		if end > o.wire.buf.Current() {
			panicf("%s init past logical end of buffer (%d > %d)",
				id, end, o.wire.buf.Current())
		}
		o.pushWire()
	}
}

func (o *Object) pushWire() {
	if o.ops == nil {
		return
	}
	if o.ops.TypeSet != nil {
		o.ops.TypeSet(o)
	}
	if o.ops.LengthSet != nil {
		o.ops.LengthSet(o, o.Length)
	}
}

// Create returns a new owning root object of kind id. Fixed size kinds
// get a buffer of exactly their length; variable kinds get room for a
// maximum size message.
func Create(id ObjectID, version Version) (*Object, error) {
	if !version.Valid() {
		return nil, fmt.Errorf("creating %s: %w", id, ErrInvalidVersion)
	}
	c := classOf(id)
	if id.isFamily() {
		return nil, fmt.Errorf("creating abstract kind %s: %w", id, ErrInvalidArgument)
	}
	if !Available(version, id) {
		return nil, fmt.Errorf("%s is not defined in %s: %w", id, version, ErrInvalidArgument)
	}

	capacity := c.fixed
	if c.variable {
		capacity = wirebuf.MaxMessageLength
	}

	o, err := New(capacity)
	if err != nil {
		return nil, err
	}
	if o.wire.buf != nil {
		if err := o.wire.buf.Grow(c.fixed); err != nil {
			o.Delete()
			return nil, err
		}
	}

	Init(o, id, version, -1, InitWire)
	return o, nil
}
