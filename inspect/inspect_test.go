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

package inspect

import (
	"bytes"
	"encoding/json"
	"errors"
	"net"
	"strings"
	"testing"

	"github.com/Kmotiko/gofc/ofprotocol/ofp13"
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sigs.k8s.io/yaml"

	"github.com/k-vswitch/ofwire/flows"
	"github.com/k-vswitch/ofwire/object"
)

func flowMod(t *testing.T) *object.Object {
	fm, err := flows.NewFlow().WithTable(20).WithPriority(100).WithProtocol("ip").
		WithIPDest("10.244.1.0/24").WithActionModDlDest("aa:bb:cc:dd:ee:ff").
		WithActionOutputPort(2).WithActionResubmit(30).Encode(object.Version13)
	require.NoError(t, err)
	return fm
}

func arpFrame(t *testing.T) []byte {
	mac := net.HardwareAddr{0x0a, 0x58, 0x0a, 0xf4, 0x01, 0x05}
	eth := &layers.Ethernet{
		SrcMAC:       mac,
		DstMAC:       layers.EthernetBroadcast,
		EthernetType: layers.EthernetTypeARP,
	}
	arp := &layers.ARP{
		AddrType:          layers.LinkTypeEthernet,
		Protocol:          layers.EthernetTypeIPv4,
		HwAddressSize:     6,
		ProtAddressSize:   4,
		Operation:         layers.ARPRequest,
		SourceHwAddress:   mac,
		SourceProtAddress: []byte{10, 244, 1, 5},
		DstHwAddress:      make([]byte, 6),
		DstProtAddress:    []byte{10, 244, 1, 1},
	}

	buf := gopacket.NewSerializeBuffer()
	require.NoError(t, gopacket.SerializeLayers(buf, gopacket.SerializeOptions{FixLengths: true}, eth, arp))
	return buf.Bytes()
}

func Test_DescribeFlowMod(t *testing.T) {
	fm := flowMod(t)
	defer fm.Delete()

	n, err := Describe(fm)
	require.NoError(t, err)

	assert.Equal(t, "flow_mod", n.Kind)
	assert.Equal(t, "OF1.3", n.Version)
	assert.Equal(t, fm.Length, n.Length)
	assert.Equal(t, "20", n.Fields["table_id"])
	assert.Equal(t, "add", n.Fields["command"])
	assert.Equal(t, "100", n.Fields["priority"])
	assert.Equal(t, "NO_BUFFER", n.Fields["buffer_id"])
	assert.Equal(t, "ANY", n.Fields["out_port"])

	require.Len(t, n.Children, 2)
	match := n.Children[0]
	assert.Equal(t, "match", match.Kind)
	require.Len(t, match.Children, 2)
	assert.Equal(t, "oxm_eth_type", match.Children[0].Kind)
	assert.Equal(t, "0x0800", match.Children[0].Fields["value"])
	assert.Equal(t, "oxm_ipv4_dst_masked", match.Children[1].Kind)
	assert.Equal(t, "10.244.1.0/24", match.Children[1].Fields["value"])

	insts := n.Children[1]
	assert.Equal(t, "list_instruction", insts.Kind)
	require.Len(t, insts.Children, 2)

	apply := insts.Children[0]
	assert.Equal(t, "instruction_apply_actions", apply.Kind)
	require.Len(t, apply.Children, 2)
	assert.Equal(t, "action_set_field", apply.Children[0].Kind)
	require.Len(t, apply.Children[0].Children, 1)
	assert.Equal(t, "aa:bb:cc:dd:ee:ff", apply.Children[0].Children[0].Fields["value"])
	assert.Equal(t, "2", apply.Children[1].Fields["port"])

	assert.Equal(t, "instruction_goto_table", insts.Children[1].Kind)
	assert.Equal(t, "30", insts.Children[1].Fields["table_id"])
}

func Test_DescribePacketOut(t *testing.T) {
	po, err := flows.NewPacketOut(object.Version13, ofp13.OFPP_CONTROLLER, ofp13.OFPP_IN_PORT, arpFrame(t))
	require.NoError(t, err)
	defer po.Delete()

	n, err := Describe(po)
	require.NoError(t, err)

	assert.Equal(t, "CONTROLLER", n.Fields["in_port"])
	require.Len(t, n.Children, 1)
	require.Len(t, n.Children[0].Children, 1)
	assert.Equal(t, "IN_PORT", n.Children[0].Children[0].Fields["port"])

	require.True(t, len(n.Packet) >= 2)
	assert.Equal(t, "Ethernet 0a:58:0a:f4:01:05 > ff:ff:ff:ff:ff:ff ARP", n.Packet[0])
	assert.Equal(t, "ARP request 10.244.1.5 (0a:58:0a:f4:01:05) > 10.244.1.1 (00:00:00:00:00:00)", n.Packet[1])
}

func Test_DescribeEcho(t *testing.T) {
	msg, err := object.NewFromMessage([]byte{0x04, ofp13.OFPT_ECHO_REQUEST, 0x00, 0x0a, 0, 0, 0, 7, 0xbe, 0xef}, nil)
	require.NoError(t, err)
	defer msg.Delete()

	n, err := Describe(msg)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"xid": "7", "data": "beef"}, n.Fields)
	assert.Empty(t, n.Children)
}

func Test_DescribeRejectsNonMessage(t *testing.T) {
	action, err := object.Create(object.ActionOutput, object.Version13)
	require.NoError(t, err)
	defer action.Delete()

	_, err = Describe(action)
	assert.True(t, errors.Is(err, object.ErrInvalidArgument))
}

func Test_Output(t *testing.T) {
	fm := flowMod(t)
	defer fm.Delete()

	n, err := Describe(fm)
	require.NoError(t, err)

	out := &bytes.Buffer{}
	require.NoError(t, n.WriteText(out))
	lines := strings.Split(out.String(), "\n")
	assert.Equal(t, "OF1.3 flow_mod len=120", lines[0])
	assert.Contains(t, out.String(), "\n  match len=22\n")
	assert.Contains(t, out.String(), "\n      value: 10.244.1.0/24\n")

	data, err := n.JSON()
	require.NoError(t, err)
	decoded := &Node{}
	require.NoError(t, json.Unmarshal(data, decoded))
	assert.Equal(t, n, decoded)

	data, err = n.YAML()
	require.NoError(t, err)
	decoded = &Node{}
	require.NoError(t, yaml.Unmarshal(data, decoded))
	assert.Equal(t, n, decoded)
}

func Test_Layers(t *testing.T) {
	assert.Nil(t, Layers(nil))

	summary := Layers([]byte{0x01, 0x02})
	require.NotEmpty(t, summary)
	assert.True(t, strings.HasPrefix(summary[len(summary)-1], "DecodeFailure"))
}
