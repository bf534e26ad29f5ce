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
	"fmt"
	"net"

	"github.com/Kmotiko/gofc/ofprotocol/ofp13"

	"github.com/k-vswitch/ofwire/object"
)

// Decode rebuilds the Flow installed by a flow mod. A flow mod with no
// instructions decodes as a drop flow. Set_field actions on the ethernet
// addresses decode as mod_dl_dst and mod_dl_src.
func Decode(fm *object.Object) (*Flow, error) {
	if fm.ID != object.FlowMod {
		return nil, fmt.Errorf("decoding %s as a flow: %w", fm.ID, object.ErrInvalidArgument)
	}

	f := NewFlow().
		WithTable(int(fm.U8(object.FlowModTableIDOffset))).
		WithPriority(int(fm.U16(object.FlowModPriorityOffset)))

	var m, oxms, insts object.Object
	if err := object.FlowModMatch(fm, &m); err != nil {
		return nil, err
	}
	if err := object.MatchOXMs(&m, &oxms); err != nil {
		return nil, err
	}
	if err := object.ForEach(&oxms, f.decodeField); err != nil {
		return nil, err
	}

	if err := object.FlowModInstructions(fm, &insts); err != nil {
		return nil, err
	}
	if insts.Length == 0 {
		f.drop = true
		return f, nil
	}
	if err := object.ForEach(&insts, f.decodeInstruction); err != nil {
		return nil, err
	}

	return f, nil
}

func (f *Flow) decodeField(oxm *object.Object) error {
	switch oxm.ID {
	case object.OXMEthType:
		switch ethType := oxm.U16(object.OXMValueOffset); ethType {
		case ethTypeIPv4:
			if f.protocol == "" {
				f.protocol = "ip"
			}
		case ethTypeARP:
			f.protocol = "arp"
		default:
			return fmt.Errorf("eth_type 0x%04x: %w", ethType, ErrUnsupported)
		}

	case object.OXMIPProto:
		switch proto := oxm.U8(object.OXMValueOffset); proto {
		case ipProtoTCP:
			f.protocol = "tcp"
		case ipProtoUDP:
			f.protocol = "udp"
		default:
			return fmt.Errorf("ip_proto %d: %w", proto, ErrUnsupported)
		}

	case object.OXMIPv4Src:
		f.ipSrc = ipv4String(oxm)
	case object.OXMIPv4SrcMasked:
		f.ipSrc = ipv4MaskedString(oxm)
	case object.OXMIPv4Dst:
		f.ipDest = ipv4String(oxm)
	case object.OXMIPv4DstMasked:
		f.ipDest = ipv4MaskedString(oxm)
	case object.OXMARPSPA:
		f.arpSrc = ipv4String(oxm)
	case object.OXMARPTPA:
		f.arpDest = ipv4String(oxm)
	case object.OXMTCPSrc:
		f.tcpSrcPort = int(oxm.U16(object.OXMValueOffset))
	case object.OXMTCPDst:
		f.tcpDestPort = int(oxm.U16(object.OXMValueOffset))
	case object.OXMUDPSrc:
		f.udpSrcPort = int(oxm.U16(object.OXMValueOffset))
	case object.OXMUDPDst:
		f.udpDestPort = int(oxm.U16(object.OXMValueOffset))

	default:
		return fmt.Errorf("match on %s: %w", oxm.ID, ErrUnsupported)
	}

	return nil
}

func (f *Flow) decodeInstruction(inst *object.Object) error {
	switch inst.ID {
	case object.InstructionGotoTable:
		f.resubmit = int(inst.U8(object.InstructionGotoTableOffset))
		return nil

	case object.InstructionApplyActions:
		var actions object.Object
		if err := object.InstructionActions(inst, &actions); err != nil {
			return err
		}
		return object.ForEach(&actions, f.decodeAction)
	}

	return fmt.Errorf("%s: %w", inst.ID, ErrUnsupported)
}

func (f *Flow) decodeAction(action *object.Object) error {
	switch action.ID {
	case object.ActionOutput:
		switch port := action.U32(object.ActionOutputPortOffset); port {
		case ofp13.OFPP_LOCAL:
			f.local = true
		case ofp13.OFPP_IN_PORT:
			f.inPort = true
		case ofp13.OFPP_CONTROLLER:
			f.controller = true
		default:
			if f.output != 0 {
				return fmt.Errorf("second output to port %d: %w", port, ErrUnsupported)
			}
			f.output = int(port)
		}
		return nil

	case object.ActionSetField:
		var field object.Object
		if err := object.ActionSetFieldOXM(action, &field); err != nil {
			return err
		}
		return f.decodeSetField(&field)
	}

	return fmt.Errorf("%s: %w", action.ID, ErrUnsupported)
}

func (f *Flow) decodeSetField(field *object.Object) error {
	switch field.ID {
	case object.OXMEthDst:
		f.modDlDest = macString(field)
	case object.OXMEthSrc:
		f.modDlSrc = macString(field)
	case object.OXMTunIPv4Dst:
		f.tunDest = ipv4String(field)

	default:
		name, ok := fieldNames[field.ID]
		if !ok {
			return fmt.Errorf("set_field on %s: %w", field.ID, ErrUnsupported)
		}

		var value string
		switch field.ID {
		case object.OXMARPOp:
			value = fmt.Sprintf("%#x", field.U16(object.OXMValueOffset))
		case object.OXMARPSHA, object.OXMARPTHA:
			value = macString(field)
		default:
			value = ipv4String(field)
		}

		f.targetActions = append(f.targetActions, TargetAction{
			ActionType: SetField,
			Source:     value,
			Target:     name,
		})
	}

	return nil
}

func ipv4String(oxm *object.Object) string {
	return net.IP(oxm.Slice(object.OXMValueOffset, net.IPv4len)).String()
}

func ipv4MaskedString(oxm *object.Object) string {
	ipNet := &net.IPNet{
		IP:   net.IP(oxm.Slice(object.OXMValueOffset, net.IPv4len)),
		Mask: net.IPMask(oxm.Slice(object.OXMValueOffset+net.IPv4len, net.IPv4len)),
	}
	return ipNet.String()
}

func macString(oxm *object.Object) string {
	return net.HardwareAddr(oxm.Slice(object.OXMValueOffset, 6)).String()
}
