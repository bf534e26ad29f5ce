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
	"strconv"
	"strings"
)

const (
	NXM_OF_ARP_OP  = "NXM_OF_ARP_OP[]"
	NXM_OF_ETH_DST = "NXM_OF_ETH_DST[]"
	NXM_OF_ETH_SRC = "NXM_OF_ETH_SRC[]"
	NXM_NX_ARP_SHA = "NXM_NX_ARP_SHA[]"
	NXM_NX_ARP_THA = "NXM_NX_ARP_THA[]"
	NXM_OF_ARP_SPA = "NXM_OF_ARP_SPA[]"
	NXM_OF_ARP_TPA = "NXM_OF_ARP_TPA[]"

	ARP_RESPONSE = "0x2"
	ETH_DST      = "eth_dst"
	ETH_SRC      = "eth_src"
	ARP_OP       = "arp_op"
	ARP_SHA      = "arp_sha"
	ARP_THA      = "arp_tha"
	ARP_SPA      = "arp_spa"
	ARP_TPA      = "arp_tpa"

	Move     Action = "move"
	Load     Action = "load"
	SetField Action = "set"
)

type Action string

type TargetAction struct {
	Source     string
	Target     string
	ActionType Action
}

type Flow struct {
	table       int
	priority    int
	tcpDestPort int
	tcpSrcPort  int
	udpDestPort int
	udpSrcPort  int
	output      int
	resubmit    int

	protocol  string
	ipDest    string
	ipSrc     string
	arpDest   string
	arpSrc    string
	tunDest   string
	modDlDest string
	modDlSrc  string

	drop       bool
	local      bool
	inPort     bool
	controller bool

	targetActions []TargetAction
}

func NewFlow() *Flow {
	return &Flow{}
}

// String renders f in ovs-ofctl syntax.
func (f *Flow) String() string {
	match := []string{fmt.Sprintf("table=%d", f.table), fmt.Sprintf("priority=%d", f.priority)}
	if f.protocol != "" {
		match = append(match, f.protocol)
	}
	match = appendSet(match, "nw_dst=", f.ipDest)
	match = appendSet(match, "nw_src=", f.ipSrc)
	match = appendSet(match, "arp_tpa=", f.arpDest)
	match = appendSet(match, "arp_spa=", f.arpSrc)
	match = appendSet(match, "tcp_dst=", portString(f.tcpDestPort))
	match = appendSet(match, "tcp_src=", portString(f.tcpSrcPort))
	match = appendSet(match, "udp_dst=", portString(f.udpDestPort))
	match = appendSet(match, "udp_src=", portString(f.udpSrcPort))

	var actions []string
	if f.local {
		actions = append(actions, "local")
	}
	actions = appendSet(actions, "mod_dl_dst:", f.modDlDest)
	actions = appendSet(actions, "mod_dl_src:", f.modDlSrc)
	if f.tunDest != "" {
		actions = append(actions, "set_field:"+f.tunDest+"->tun_dst")
	}
	actions = appendSet(actions, "output:", portString(f.output))
	if f.controller {
		actions = append(actions, "controller")
	}
	if f.resubmit != 0 {
		actions = append(actions, fmt.Sprintf("resubmit(,%d)", f.resubmit))
	}
	if f.drop {
		actions = append(actions, "drop")
	}
	for _, action := range f.targetActions {
		actions = append(actions, action.String())
	}
	if f.inPort {
		actions = append(actions, "in_port")
	}

	return fmt.Sprintf("%s actions=%s", strings.Join(match, " "), strings.Join(actions, ","))
}

func (a TargetAction) String() string {
	name := string(a.ActionType)
	if a.ActionType == SetField {
		name = "set_field"
	}
	return fmt.Sprintf("%s:%s->%s", name, a.Source, a.Target)
}

// appendSet appends prefix+value unless value is empty.
func appendSet(list []string, prefix, value string) []string {
	if value == "" {
		return list
	}
	return append(list, prefix+value)
}

func portString(port int) string {
	if port == 0 {
		return ""
	}
	return strconv.Itoa(port)
}

// Flow Matchers
func (f *Flow) WithTable(table int) *Flow {
	f.table = table
	return f
}

func (f *Flow) WithPriority(priority int) *Flow {
	f.priority = priority
	return f
}

func (f *Flow) WithProtocol(protocol string) *Flow {
	f.protocol = protocol
	return f
}

func (f *Flow) WithIPDest(ipDst string) *Flow {
	f.ipDest = ipDst
	return f
}

func (f *Flow) WithIPSrc(ipSrc string) *Flow {
	f.ipSrc = ipSrc
	return f
}

func (f *Flow) WithArpDest(arpDst string) *Flow {
	f.arpDest = arpDst
	return f
}

func (f *Flow) WithArpSrc(arpSrc string) *Flow {
	f.arpSrc = arpSrc
	return f
}

func (f *Flow) WithTCPSrcPort(srcPort int) *Flow {
	f.tcpSrcPort = srcPort
	return f
}

func (f *Flow) WithTCPDestPort(dstPort int) *Flow {
	f.tcpDestPort = dstPort
	return f
}

func (f *Flow) WithUDPSrcPort(srcPort int) *Flow {
	f.udpSrcPort = srcPort
	return f
}

func (f *Flow) WithUDPDestPort(dstPort int) *Flow {
	f.udpDestPort = dstPort
	return f
}

// Actions
func (f *Flow) WithActionModDlDest(dstMac string) *Flow {
	f.modDlDest = dstMac
	return f
}

func (f *Flow) WithActionModDlSrc(srcMac string) *Flow {
	f.modDlSrc = srcMac
	return f
}

func (f *Flow) WithActionTunnelDest(tunDst string) *Flow {
	f.tunDest = tunDst
	return f
}

func (f *Flow) WithActionOutputPort(output int) *Flow {
	f.output = output
	return f
}

func (f *Flow) WithActionDrop() *Flow {
	f.drop = true
	return f
}

func (f *Flow) WithActionResubmit(table int) *Flow {
	f.resubmit = table
	return f
}

func (f *Flow) WithActionInPort() *Flow {
	f.inPort = true
	return f
}

func (f *Flow) WithActionLocal() *Flow {
	f.local = true
	return f
}

func (f *Flow) WithActionController() *Flow {
	f.controller = true
	return f
}

func (f *Flow) WithTargetAction(targetAction TargetAction) *Flow {
	f.targetActions = append(f.targetActions, targetAction)
	return f
}
