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

// Package inspect renders decoded OpenFlow object trees for humans.
package inspect

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"sort"
	"strings"

	"github.com/Kmotiko/gofc/ofprotocol/ofp13"
	"sigs.k8s.io/yaml"

	"github.com/k-vswitch/ofwire/object"
)

// Node describes one object of a tree.
type Node struct {
	Kind     string            `json:"kind"`
	Version  string            `json:"version,omitempty"`
	Length   int               `json:"length"`
	Fields   map[string]string `json:"fields,omitempty"`
	Children []*Node           `json:"children,omitempty"`
	// layers of a carried ethernet frame
	Packet []string `json:"packet,omitempty"`
}

func newNode(o *object.Object) *Node {
	return &Node{
		Kind:   o.ID.String(),
		Length: o.Length,
	}
}

func (n *Node) set(name, format string, args ...interface{}) {
	if n.Fields == nil {
		n.Fields = map[string]string{}
	}
	n.Fields[name] = fmt.Sprintf(format, args...)
}

// Describe walks a message tree.
func Describe(msg *object.Object) (*Node, error) {
	if !msg.ID.IsMessage() {
		return nil, fmt.Errorf("describing %s: %w", msg.ID, object.ErrInvalidArgument)
	}

	n := newNode(msg)
	n.Version = msg.Version.String()
	xid, err := msg.XID()
	if err != nil {
		return nil, err
	}
	n.set("xid", "%d", xid)

	switch msg.ID {
	case object.EchoRequest, object.EchoReply, object.Hello:
		if msg.Length > 8 {
			n.set("data", "%s", hex.EncodeToString(msg.Slice(8, msg.Length-8)))
		}

	case object.FeaturesReply:
		n.set("datapath_id", "%016x", msg.U64(object.FeaturesReplyDatapathIDOffset))
		n.set("n_buffers", "%d", msg.U32(object.FeaturesReplyNBuffersOffset))
		n.set("n_tables", "%d", msg.U8(object.FeaturesReplyNTablesOffset))
		n.set("auxiliary_id", "%d", msg.U8(object.FeaturesReplyAuxiliaryIDOffset))
		n.set("capabilities", "%#x", msg.U32(object.FeaturesReplyCapabilitiesOffset))

	case object.FlowMod:
		err = describeFlowMod(msg, n)

	case object.PacketIn:
		err = describePacketIn(msg, n)

	case object.PacketOut:
		err = describePacketOut(msg, n)
	}
	if err != nil {
		return nil, err
	}

	return n, nil
}

func describeFlowMod(fm *object.Object, n *Node) error {
	n.set("cookie", "%#x", fm.U64(object.FlowModCookieOffset))
	n.set("cookie_mask", "%#x", fm.U64(object.FlowModCookieMaskOffset))
	n.set("table_id", "%s", tableName(fm.U8(object.FlowModTableIDOffset)))
	n.set("command", "%s", commandName(fm.U8(object.FlowModCommandOffset)))
	n.set("idle_timeout", "%d", fm.U16(object.FlowModIdleTimeoutOffset))
	n.set("hard_timeout", "%d", fm.U16(object.FlowModHardTimeoutOffset))
	n.set("priority", "%d", fm.U16(object.FlowModPriorityOffset))
	n.set("buffer_id", "%s", bufferName(fm.U32(object.FlowModBufferIDOffset)))
	n.set("out_port", "%s", portName(fm.U32(object.FlowModOutPortOffset)))
	n.set("out_group", "%#x", fm.U32(object.FlowModOutGroupOffset))
	n.set("flags", "%#x", fm.U16(object.FlowModFlagsOffset))

	var m, insts object.Object
	if err := object.FlowModMatch(fm, &m); err != nil {
		return err
	}
	match, err := describeMatch(&m)
	if err != nil {
		return err
	}

	if err := object.FlowModInstructions(fm, &insts); err != nil {
		return err
	}
	instructions, err := describeList(&insts, describeInstruction)
	if err != nil {
		return err
	}

	n.Children = append(n.Children, match, instructions)
	return nil
}

func describePacketIn(pi *object.Object, n *Node) error {
	n.set("buffer_id", "%s", bufferName(pi.U32(object.PacketInBufferIDOffset)))
	n.set("total_len", "%d", pi.U16(object.PacketInTotalLenOffset))
	n.set("reason", "%s", reasonName(pi.U8(object.PacketInReasonOffset)))
	n.set("table_id", "%d", pi.U8(object.PacketInTableIDOffset))
	n.set("cookie", "%#x", pi.U64(object.PacketInCookieOffset))

	var m object.Object
	if err := object.PacketInMatch(pi, &m); err != nil {
		return err
	}
	match, err := describeMatch(&m)
	if err != nil {
		return err
	}
	n.Children = append(n.Children, match)

	data, err := object.PacketInData(pi)
	if err != nil {
		return err
	}
	n.Packet = Layers(data)
	return nil
}

func describePacketOut(po *object.Object, n *Node) error {
	n.set("buffer_id", "%s", bufferName(po.U32(object.PacketOutBufferIDOffset)))
	n.set("in_port", "%s", portName(po.U32(object.PacketOutInPortOffset)))

	var actions object.Object
	if err := object.PacketOutActions(po, &actions); err != nil {
		return err
	}
	list, err := describeList(&actions, describeAction)
	if err != nil {
		return err
	}
	n.Children = append(n.Children, list)

	n.Packet = Layers(object.PacketOutData(po))
	return nil
}

func describeMatch(m *object.Object) (*Node, error) {
	n := newNode(m)

	var oxms object.Object
	if err := object.MatchOXMs(m, &oxms); err != nil {
		return nil, err
	}
	err := object.ForEach(&oxms, func(oxm *object.Object) error {
		n.Children = append(n.Children, describeOXM(oxm))
		return nil
	})
	if err != nil {
		return nil, err
	}

	return n, nil
}

// describeList walks a typed list. The cursor handed to describe is only
// valid during the call.
func describeList(list *object.Object, describe func(*object.Object) (*Node, error)) (*Node, error) {
	n := newNode(list)

	err := object.ForEach(list, func(elem *object.Object) error {
		child, err := describe(elem)
		if err != nil {
			return err
		}
		n.Children = append(n.Children, child)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return n, nil
}

func describeInstruction(inst *object.Object) (*Node, error) {
	n := newNode(inst)

	switch inst.ID {
	case object.InstructionGotoTable:
		n.set("table_id", "%d", inst.U8(object.InstructionGotoTableOffset))
	case object.InstructionWriteMetadata:
		n.set("metadata", "%#x", inst.U64(object.InstructionMetadataOffset))
		n.set("metadata_mask", "%#x", inst.U64(object.InstructionMetaMaskOffset))
	case object.InstructionMeter:
		n.set("meter_id", "%d", inst.U32(object.InstructionMeterIDOffset))
	case object.InstructionWriteActions, object.InstructionApplyActions:
		var actions object.Object
		if err := object.InstructionActions(inst, &actions); err != nil {
			return nil, err
		}
		list, err := describeList(&actions, describeAction)
		if err != nil {
			return nil, err
		}
		n.Children = list.Children
	}

	return n, nil
}

func describeAction(action *object.Object) (*Node, error) {
	n := newNode(action)

	switch action.ID {
	case object.ActionOutput:
		n.set("port", "%s", portName(action.U32(object.ActionOutputPortOffset)))
		n.set("max_len", "%d", action.U16(object.ActionOutputMaxLenOffset))
	case object.ActionGroup:
		n.set("group_id", "%d", action.U32(object.ActionGroupIDOffset))
	case object.ActionSetQueue:
		n.set("queue_id", "%d", action.U32(object.ActionSetQueueIDOffset))
	case object.ActionSetMPLSTTL, object.ActionSetNwTTL:
		n.set("ttl", "%d", action.U8(object.ActionTTLOffset))
	case object.ActionPushVLAN:
		n.set("ethertype", "%#04x", action.U16(object.ActionPushEtherTypeOffset))
	case object.ActionSetField:
		var field object.Object
		if err := object.ActionSetFieldOXM(action, &field); err != nil {
			return nil, err
		}
		n.Children = append(n.Children, describeOXM(&field))
	}

	return n, nil
}

func describeOXM(oxm *object.Object) *Node {
	n := newNode(oxm)
	n.set("value", "%s", oxmValue(oxm))
	return n
}

func oxmValue(oxm *object.Object) string {
	value := func(n int) []byte {
		return oxm.Slice(object.OXMValueOffset, n)
	}

	switch oxm.ID {
	case object.OXMEthDst, object.OXMEthSrc, object.OXMARPSHA, object.OXMARPTHA:
		return net.HardwareAddr(value(6)).String()
	case object.OXMIPv4Src, object.OXMIPv4Dst, object.OXMARPSPA, object.OXMARPTPA, object.OXMTunIPv4Dst:
		return net.IP(value(net.IPv4len)).String()
	case object.OXMIPv4SrcMasked, object.OXMIPv4DstMasked:
		ipNet := &net.IPNet{
			IP:   net.IP(value(net.IPv4len)),
			Mask: net.IPMask(oxm.Slice(object.OXMValueOffset+net.IPv4len, net.IPv4len)),
		}
		return ipNet.String()
	case object.OXMInPort:
		return portName(oxm.U32(object.OXMValueOffset))
	case object.OXMEthType:
		return fmt.Sprintf("%#04x", oxm.U16(object.OXMValueOffset))
	case object.OXMIPProto:
		return fmt.Sprintf("%d", oxm.U8(object.OXMValueOffset))
	case object.OXMVlanVID, object.OXMTCPSrc, object.OXMTCPDst, object.OXMUDPSrc,
		object.OXMUDPDst, object.OXMARPOp:
		return fmt.Sprintf("%d", oxm.U16(object.OXMValueOffset))
	case object.OXMMetadata, object.OXMTunnelID:
		return fmt.Sprintf("%#x", oxm.U64(object.OXMValueOffset))
	}

	return hex.EncodeToString(value(oxm.Length - object.OXMValueOffset))
}

func portName(port uint32) string {
	switch port {
	case ofp13.OFPP_IN_PORT:
		return "IN_PORT"
	case ofp13.OFPP_TABLE:
		return "TABLE"
	case ofp13.OFPP_NORMAL:
		return "NORMAL"
	case ofp13.OFPP_FLOOD:
		return "FLOOD"
	case ofp13.OFPP_ALL:
		return "ALL"
	case ofp13.OFPP_CONTROLLER:
		return "CONTROLLER"
	case ofp13.OFPP_LOCAL:
		return "LOCAL"
	case ofp13.OFPP_ANY:
		return "ANY"
	}
	return fmt.Sprintf("%d", port)
}

func bufferName(id uint32) string {
	if id == ofp13.OFP_NO_BUFFER {
		return "NO_BUFFER"
	}
	return fmt.Sprintf("%d", id)
}

func tableName(id uint8) string {
	if id == ofp13.OFPTT_ALL {
		return "ALL"
	}
	return fmt.Sprintf("%d", id)
}

func commandName(cmd uint8) string {
	switch cmd {
	case ofp13.OFPFC_ADD:
		return "add"
	case ofp13.OFPFC_MODIFY:
		return "modify"
	case ofp13.OFPFC_MODIFY_STRICT:
		return "modify_strict"
	case ofp13.OFPFC_DELETE:
		return "delete"
	case ofp13.OFPFC_DELETE_STRICT:
		return "delete_strict"
	}
	return fmt.Sprintf("%d", cmd)
}

func reasonName(reason uint8) string {
	switch reason {
	case ofp13.OFPR_NO_MATCH:
		return "no_match"
	case ofp13.OFPR_ACTION:
		return "action"
	case ofp13.OFPR_INVALID_TTL:
		return "invalid_ttl"
	}
	return fmt.Sprintf("%d", reason)
}

func (n *Node) JSON() ([]byte, error) {
	return json.MarshalIndent(n, "", "  ")
}

func (n *Node) YAML() ([]byte, error) {
	return yaml.Marshal(n)
}

// WriteText writes n as an indented tree with fields sorted by name.
func (n *Node) WriteText(w io.Writer) error {
	return n.writeText(w, 0)
}

func (n *Node) writeText(w io.Writer, depth int) error {
	indent := strings.Repeat("  ", depth)

	header := fmt.Sprintf("%s%s len=%d", indent, n.Kind, n.Length)
	if n.Version != "" {
		header = fmt.Sprintf("%s%s %s len=%d", indent, n.Version, n.Kind, n.Length)
	}
	if _, err := fmt.Fprintln(w, header); err != nil {
		return err
	}

	names := make([]string, 0, len(n.Fields))
	for name := range n.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, err := fmt.Fprintf(w, "%s  %s: %s\n", indent, name, n.Fields[name]); err != nil {
			return err
		}
	}

	for _, layer := range n.Packet {
		if _, err := fmt.Fprintf(w, "%s  | %s\n", indent, layer); err != nil {
			return err
		}
	}

	for _, child := range n.Children {
		if err := child.writeText(w, depth+1); err != nil {
			return err
		}
	}
	return nil
}
