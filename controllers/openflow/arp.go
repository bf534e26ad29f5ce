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

package openflow

import (
	"errors"
	"fmt"
	"net"

	"github.com/Kmotiko/gofc/ofprotocol/ofp13"
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"k8s.io/klog"

	"github.com/k-vswitch/ofwire/flows"
	"github.com/k-vswitch/ofwire/object"
)

var errNoInPort = errors.New("packet in without in_port")

// handlePacketIn learns the sender of ARP traffic and answers ARP
// requests for the gateway.
func (c *controller) handlePacketIn(pi *object.Object) error {
	inPort, err := packetInPort(pi)
	if err != nil {
		return err
	}

	data, err := object.PacketInData(pi)
	if err != nil {
		return err
	}

	packet := gopacket.NewPacket(data, layers.LayerTypeEthernet, gopacket.Default)
	arp, ok := packet.Layer(layers.LayerTypeARP).(*layers.ARP)
	if !ok {
		klog.V(5).Infof("ignoring non ARP packet from port %d", inPort)
		return nil
	}

	if err := c.learnPort(arp, inPort); err != nil {
		return err
	}

	if arp.Operation != layers.ARPRequest || !net.IP(arp.DstProtAddress).Equal(c.gatewayIP) {
		return nil
	}

	frame, err := arpReply(arp, c.gatewayIP, c.gatewayMAC)
	if err != nil {
		return fmt.Errorf("error building ARP reply: %v", err)
	}

	po, err := flows.NewPacketOut(c.version, inPort, ofp13.OFPP_IN_PORT, frame)
	if err != nil {
		return err
	}

	klog.V(5).Infof("answering ARP request for %s from port %d", c.gatewayIP, inPort)
	c.connManager.Send(po)
	return nil
}

func (c *controller) learnPort(arp *layers.ARP, inPort uint32) error {
	_, podIPNet, err := net.ParseCIDR(c.podCIDR)
	if err != nil {
		return err
	}

	senderIP := net.IP(arp.SourceProtAddress)
	if !podIPNet.Contains(senderIP) || senderIP.Equal(c.gatewayIP) {
		return nil
	}

	port := portInfo{
		ip:     senderIP.String(),
		mac:    net.HardwareAddr(arp.SourceHwAddress).String(),
		ofport: int(inPort),
	}
	if !c.ports.SetPortInfo(port) {
		return nil
	}

	if err := c.installPortFlows(port); err != nil {
		// forget the port so the next ARP from it retries
		c.ports.DelPortInfo(port.ip)
		return err
	}
	return nil
}

// packetInPort finds the in_port OXM of a packet in. OXMs are walked by
// their raw header so fields without a kind, such as the tunnel metadata
// of packets from a VXLAN port, are skipped.
func packetInPort(pi *object.Object) (uint32, error) {
	var m, oxms object.Object
	if err := object.PacketInMatch(pi, &m); err != nil {
		return 0, err
	}
	if err := object.MatchOXMs(&m, &oxms); err != nil {
		return 0, err
	}

	var cursor object.Object
	err := object.First(&oxms, &cursor)
	for err == nil {
		header := cursor.U32(0)
		cursor.Length = object.OXMValueOffset + int(header&0xff)
		if cursor.Offset()+cursor.Length > oxms.Offset()+oxms.Length {
			return 0, fmt.Errorf("OXM %#08x runs past the match: %w", header, object.ErrParse)
		}

		if header == ofp13.OXM_OF_IN_PORT {
			return cursor.U32(object.OXMValueOffset), nil
		}
		err = object.Next(&oxms, &cursor)
	}
	if err != object.ErrEndOfSequence {
		return 0, err
	}

	return 0, errNoInPort
}

// arpReply builds the frame answering req on behalf of ip and mac.
func arpReply(req *layers.ARP, ip net.IP, mac net.HardwareAddr) ([]byte, error) {
	eth := &layers.Ethernet{
		SrcMAC:       mac,
		DstMAC:       net.HardwareAddr(req.SourceHwAddress),
		EthernetType: layers.EthernetTypeARP,
	}

	reply := &layers.ARP{
		AddrType:          layers.LinkTypeEthernet,
		Protocol:          layers.EthernetTypeIPv4,
		HwAddressSize:     6,
		ProtAddressSize:   4,
		Operation:         layers.ARPReply,
		SourceHwAddress:   mac,
		SourceProtAddress: ip.To4(),
		DstHwAddress:      req.SourceHwAddress,
		DstProtAddress:    req.SourceProtAddress,
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true}
	if err := gopacket.SerializeLayers(buf, opts, eth, reply); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
