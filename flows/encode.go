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
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/Kmotiko/gofc/ofprotocol/ofp13"

	"github.com/k-vswitch/ofwire/object"
)

// ErrUnsupported is returned for flows that have no OpenFlow 1.3 flow
// mod form, and for flow mods that have no Flow form.
var ErrUnsupported = errors.New("unsupported flow")

const (
	ethTypeIPv4 = 0x0800
	ethTypeARP  = 0x0806

	ipProtoTCP = 6
	ipProtoUDP = 17

	// room for the match fields of a single flow
	maxMatchLen = 256
)

var targetFields = map[string]object.ObjectID{
	NXM_OF_ARP_OP:  object.OXMARPOp,
	NXM_OF_ETH_DST: object.OXMEthDst,
	NXM_OF_ETH_SRC: object.OXMEthSrc,
	NXM_NX_ARP_SHA: object.OXMARPSHA,
	NXM_NX_ARP_THA: object.OXMARPTHA,
	NXM_OF_ARP_SPA: object.OXMARPSPA,
	NXM_OF_ARP_TPA: object.OXMARPTPA,

	ETH_DST: object.OXMEthDst,
	ETH_SRC: object.OXMEthSrc,
	ARP_OP:  object.OXMARPOp,
	ARP_SHA: object.OXMARPSHA,
	ARP_THA: object.OXMARPTHA,
	ARP_SPA: object.OXMARPSPA,
	ARP_TPA: object.OXMARPTPA,
}

var fieldNames = map[object.ObjectID]string{
	object.OXMARPOp:  ARP_OP,
	object.OXMARPSHA: ARP_SHA,
	object.OXMARPTHA: ARP_THA,
	object.OXMARPSPA: ARP_SPA,
	object.OXMARPTPA: ARP_TPA,
}

// Encode builds the OFPFC_ADD flow mod installing f. resubmit becomes a
// goto_table instruction and every other action lands in a single
// apply_actions instruction. The caller owns the returned message.
func (f *Flow) Encode(version object.Version) (*object.Object, error) {
	fm, err := object.Create(object.FlowMod, version)
	if err != nil {
		return nil, err
	}

	if err := f.encode(fm); err != nil {
		fm.Delete()
		return nil, fmt.Errorf("error encoding flow %q: %w", f, err)
	}

	return fm, nil
}

func (f *Flow) encode(fm *object.Object) error {
	setFlowModDefaults(fm)
	fm.SetU8(object.FlowModTableIDOffset, uint8(f.table))
	fm.SetU8(object.FlowModCommandOffset, ofp13.OFPFC_ADD)
	fm.SetU16(object.FlowModPriorityOffset, uint16(f.priority))

	oxms, err := object.New(maxMatchLen)
	if err != nil {
		return err
	}
	defer oxms.Delete()
	object.Init(oxms, object.ListOXM, fm.Version, 0, 0)

	if err := f.encodeMatch(&writer{list: oxms}); err != nil {
		return err
	}
	if err := object.AppendMatch(fm, oxms); err != nil {
		return err
	}

	if f.drop {
		if f.hasActions() || f.resubmit != 0 {
			return fmt.Errorf("drop with other actions: %w", ErrUnsupported)
		}
		return nil
	}

	var insts object.Object
	if err := object.FlowModInstructions(fm, &insts); err != nil {
		return err
	}
	return f.encodeInstructions(&insts)
}

func setFlowModDefaults(fm *object.Object) {
	fm.SetU32(object.FlowModBufferIDOffset, ofp13.OFP_NO_BUFFER)
	fm.SetU32(object.FlowModOutPortOffset, ofp13.OFPP_ANY)
	fm.SetU32(object.FlowModOutGroupOffset, ofp13.OFPG_ANY)
}

func (f *Flow) encodeMatch(w *writer) error {
	var ethType uint16
	var ipProto uint8
	switch f.protocol {
	case "":
	case "ip":
		ethType = ethTypeIPv4
	case "arp":
		ethType = ethTypeARP
	case "tcp":
		ethType, ipProto = ethTypeIPv4, ipProtoTCP
	case "udp":
		ethType, ipProto = ethTypeIPv4, ipProtoUDP
	default:
		return fmt.Errorf("protocol %q: %w", f.protocol, ErrUnsupported)
	}

	if ethType == 0 && (f.ipDest != "" || f.ipSrc != "" || f.arpDest != "" || f.arpSrc != "") {
		return fmt.Errorf("address match without protocol: %w", ErrUnsupported)
	}
	if ethType == ethTypeIPv4 && (f.arpDest != "" || f.arpSrc != "") {
		return fmt.Errorf("arp match on %s flow: %w", f.protocol, ErrUnsupported)
	}
	if (f.tcpDestPort != 0 || f.tcpSrcPort != 0) && ipProto != ipProtoTCP {
		return fmt.Errorf("tcp port match on %q flow: %w", f.protocol, ErrUnsupported)
	}
	if (f.udpDestPort != 0 || f.udpSrcPort != 0) && ipProto != ipProtoUDP {
		return fmt.Errorf("udp port match on %q flow: %w", f.protocol, ErrUnsupported)
	}

	if ethType != 0 {
		w.u16(object.OXMEthType, ethType)
	}
	if ipProto != 0 {
		w.u8(object.OXMIPProto, ipProto)
	}

	if ethType == ethTypeARP {
		// nw_src and nw_dst match the ARP protocol addresses
		w.ipv4(object.OXMARPSPA, object.None, firstOf(f.arpSrc, f.ipSrc))
		w.ipv4(object.OXMARPTPA, object.None, firstOf(f.arpDest, f.ipDest))
	} else {
		w.ipv4(object.OXMIPv4Src, object.OXMIPv4SrcMasked, f.ipSrc)
		w.ipv4(object.OXMIPv4Dst, object.OXMIPv4DstMasked, f.ipDest)
	}

	if f.tcpSrcPort != 0 {
		w.u16(object.OXMTCPSrc, uint16(f.tcpSrcPort))
	}
	if f.tcpDestPort != 0 {
		w.u16(object.OXMTCPDst, uint16(f.tcpDestPort))
	}
	if f.udpSrcPort != 0 {
		w.u16(object.OXMUDPSrc, uint16(f.udpSrcPort))
	}
	if f.udpDestPort != 0 {
		w.u16(object.OXMUDPDst, uint16(f.udpDestPort))
	}

	return w.err
}

func (f *Flow) hasActions() bool {
	return f.local || f.inPort || f.controller || f.output != 0 ||
		f.modDlDest != "" || f.modDlSrc != "" || f.tunDest != "" ||
		len(f.targetActions) > 0
}

func (f *Flow) encodeInstructions(insts *object.Object) error {
	if f.hasActions() {
		var apply, actions object.Object
		object.Init(&apply, object.InstructionApplyActions, insts.Version, -1, 0)
		if err := object.AppendBind(insts, &apply); err != nil {
			return err
		}
		if err := object.InstructionActions(&apply, &actions); err != nil {
			return err
		}
		if err := f.encodeActions(&writer{list: &actions}); err != nil {
			return err
		}
	}

	if f.resubmit != 0 {
		var gotoTable object.Object
		object.Init(&gotoTable, object.InstructionGotoTable, insts.Version, -1, 0)
		if err := object.AppendBind(insts, &gotoTable); err != nil {
			return err
		}
		gotoTable.SetU8(object.InstructionGotoTableOffset, uint8(f.resubmit))
	}

	return nil
}

// encodeActions keeps the action order of String.
func (f *Flow) encodeActions(w *writer) error {
	if f.local {
		w.output(ofp13.OFPP_LOCAL)
	}
	if f.modDlDest != "" {
		w.setField(object.OXMEthDst, f.modDlDest)
	}
	if f.modDlSrc != "" {
		w.setField(object.OXMEthSrc, f.modDlSrc)
	}
	if f.tunDest != "" {
		w.setField(object.OXMTunIPv4Dst, f.tunDest)
	}
	if f.output != 0 {
		w.output(uint32(f.output))
	}
	if f.controller {
		w.output(ofp13.OFPP_CONTROLLER)
	}

	for _, action := range f.targetActions {
		switch action.ActionType {
		case Load, SetField:
			id, ok := targetFields[action.Target]
			if !ok {
				return fmt.Errorf("%s target %s: %w", action.ActionType, action.Target, ErrUnsupported)
			}
			w.setField(id, action.Source)
		default:
			return fmt.Errorf("%s action: %w", action.ActionType, ErrUnsupported)
		}
	}

	if f.inPort {
		w.output(ofp13.OFPP_IN_PORT)
	}

	return w.err
}

// writer appends elements to a list. The first error sticks and turns
// later calls into no-ops.
type writer struct {
	list *object.Object
	err  error
}

func (w *writer) add(id object.ObjectID, length int) *object.Object {
	if w.err != nil {
		return nil
	}

	elem := &object.Object{}
	object.Init(elem, id, w.list.Version, length, 0)
	if err := object.AppendBind(w.list, elem); err != nil {
		w.err = err
		return nil
	}
	return elem
}

func (w *writer) u8(id object.ObjectID, v uint8) {
	if oxm := w.add(id, -1); oxm != nil {
		oxm.SetU8(object.OXMValueOffset, v)
	}
}

func (w *writer) u16(id object.ObjectID, v uint16) {
	if oxm := w.add(id, -1); oxm != nil {
		oxm.SetU16(object.OXMValueOffset, v)
	}
}

// ipv4 matches an address or, when masked is not None, a CIDR block.
func (w *writer) ipv4(exact, masked object.ObjectID, value string) {
	if value == "" || w.err != nil {
		return
	}

	ip, mask, err := parseIPv4(value)
	if err != nil {
		w.err = err
		return
	}

	if mask == nil {
		if oxm := w.add(exact, -1); oxm != nil {
			oxm.Copy(object.OXMValueOffset, ip)
		}
		return
	}

	if masked == object.None {
		w.err = fmt.Errorf("masked %s: %w", exact, ErrUnsupported)
		return
	}
	if oxm := w.add(masked, -1); oxm != nil {
		oxm.Copy(object.OXMValueOffset, ip)
		oxm.Copy(object.OXMValueOffset+net.IPv4len, mask)
	}
}

func (w *writer) output(port uint32) {
	if action := w.add(object.ActionOutput, -1); action != nil {
		action.SetU32(object.ActionOutputPortOffset, port)
		if port == ofp13.OFPP_CONTROLLER {
			action.SetU16(object.ActionOutputMaxLenOffset, ofp13.OFPCML_NO_BUFFER)
		}
	}
}

func (w *writer) setField(id object.ObjectID, value string) {
	if w.err != nil {
		return
	}

	data, err := fieldValue(id, value)
	if err != nil {
		w.err = err
		return
	}

	oxmLen := object.FixedLength(w.list.Version, id)
	action := w.add(object.ActionSetField, object.SetFieldLength(oxmLen))
	if action == nil {
		return
	}

	var field object.Object
	if err := object.Attach(action, &field, object.ActionSetFieldOXMOffset, 0); err != nil {
		w.err = err
		return
	}
	object.Init(&field, id, w.list.Version, -1, object.InitWire)
	field.Copy(object.OXMValueOffset, data)
}

func fieldValue(id object.ObjectID, value string) ([]byte, error) {
	switch id {
	case object.OXMEthDst, object.OXMEthSrc, object.OXMARPSHA, object.OXMARPTHA:
		mac, err := net.ParseMAC(value)
		if err != nil {
			return nil, fmt.Errorf("%s value: %v: %w", id, err, ErrUnsupported)
		}
		if len(mac) != 6 {
			return nil, fmt.Errorf("%s value %q is not an ethernet address: %w", id, value, ErrUnsupported)
		}
		return mac, nil

	case object.OXMARPSPA, object.OXMARPTPA, object.OXMTunIPv4Dst:
		ip := net.ParseIP(value).To4()
		if ip == nil {
			return nil, fmt.Errorf("%s value %q is not an IPv4 address: %w", id, value, ErrUnsupported)
		}
		return ip, nil

	case object.OXMARPOp:
		op, err := strconv.ParseUint(value, 0, 16)
		if err != nil {
			return nil, fmt.Errorf("%s value: %v: %w", id, err, ErrUnsupported)
		}
		return []byte{byte(op >> 8), byte(op)}, nil
	}

	return nil, fmt.Errorf("setting %s: %w", id, ErrUnsupported)
}

// parseIPv4 returns a nil mask for a single address or a /32.
func parseIPv4(value string) (net.IP, net.IPMask, error) {
	if !strings.Contains(value, "/") {
		ip := net.ParseIP(value).To4()
		if ip == nil {
			return nil, nil, fmt.Errorf("%q is not an IPv4 address: %w", value, ErrUnsupported)
		}
		return ip, nil, nil
	}

	_, ipNet, err := net.ParseCIDR(value)
	if err != nil {
		return nil, nil, fmt.Errorf("%v: %w", err, ErrUnsupported)
	}
	ip := ipNet.IP.To4()
	if ip == nil {
		return nil, nil, fmt.Errorf("%q is not an IPv4 block: %w", value, ErrUnsupported)
	}

	if ones, bits := ipNet.Mask.Size(); ones == bits {
		return ip, nil, nil
	}
	return ip, ipNet.Mask, nil
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// DeleteAllFlows builds a flow mod removing every flow from every table.
func DeleteAllFlows(version object.Version) (*object.Object, error) {
	fm, err := object.Create(object.FlowMod, version)
	if err != nil {
		return nil, err
	}

	setFlowModDefaults(fm)
	fm.SetU8(object.FlowModTableIDOffset, ofp13.OFPTT_ALL)
	fm.SetU8(object.FlowModCommandOffset, ofp13.OFPFC_DELETE)

	if err := object.AppendMatch(fm, nil); err != nil {
		fm.Delete()
		return nil, err
	}
	return fm, nil
}
