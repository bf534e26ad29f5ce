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

// Version is the OpenFlow wire protocol version carried in byte 0 of
// every message header.
type Version uint8

const (
	VersionUnknown Version = 0
	Version10      Version = 1
	Version11      Version = 2
	Version12      Version = 3
	Version13      Version = 4
	Version14      Version = 5

	numVersions = 6
)

// Valid reports whether v is a version this package can encode or decode.
func (v Version) Valid() bool {
	return v >= Version10 && v <= Version14
}

func (v Version) String() string {
	switch v {
	case Version10:
		return "OF1.0"
	case Version11:
		return "OF1.1"
	case Version12:
		return "OF1.2"
	case Version13:
		return "OF1.3"
	case Version14:
		return "OF1.4"
	}
	return fmt.Sprintf("OF(0x%02x)", uint8(v))
}

// ObjectID identifies the concrete kind of an object. Header, Action,
// Instruction and OXM are family bases; every other kind belongs to at
// most one family.
type ObjectID int

const (
	None ObjectID = iota

	// family bases
	Header
	Action
	Instruction
	OXM

	// messages
	Hello
	EchoRequest
	EchoReply
	FeaturesRequest
	FeaturesReply
	BarrierRequest
	BarrierReply
	PacketIn
	PacketOut
	FlowMod

	// actions
	ActionOutput
	ActionCopyTTLOut
	ActionCopyTTLIn
	ActionSetMPLSTTL
	ActionDecMPLSTTL
	ActionPushVLAN
	ActionPopVLAN
	ActionSetQueue
	ActionGroup
	ActionSetNwTTL
	ActionDecNwTTL
	ActionSetField

	// instructions
	InstructionGotoTable
	InstructionWriteMetadata
	InstructionWriteActions
	InstructionApplyActions
	InstructionClearActions
	InstructionMeter

	// match fields
	OXMInPort
	OXMMetadata
	OXMEthDst
	OXMEthSrc
	OXMEthType
	OXMVlanVID
	OXMIPProto
	OXMIPv4Src
	OXMIPv4SrcMasked
	OXMIPv4Dst
	OXMIPv4DstMasked
	OXMTCPSrc
	OXMTCPDst
	OXMUDPSrc
	OXMUDPDst
	OXMARPOp
	OXMARPSPA
	OXMARPTPA
	OXMARPSHA
	OXMARPTHA
	OXMTunnelID
	OXMTunIPv4Dst

	// containers
	Match
	ListAction
	ListInstruction
	ListOXM

	numObjectIDs
)

func (id ObjectID) String() string {
	if id < 0 || id >= numObjectIDs {
		return fmt.Sprintf("ObjectID(%d)", int(id))
	}
	return classes[id].name
}

// Family returns the base kind id specializes, or None.
func (id ObjectID) Family() ObjectID {
	if id <= None || id >= numObjectIDs {
		return None
	}
	return classes[id].family
}

// IsMessage reports whether id is a top level message kind.
func (id ObjectID) IsMessage() bool {
	return id.Family() == Header
}
