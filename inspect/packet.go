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
	"fmt"
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// Layers summarizes each layer of an ethernet frame, one line per layer.
func Layers(frame []byte) []string {
	if len(frame) == 0 {
		return nil
	}

	packet := gopacket.NewPacket(frame, layers.LayerTypeEthernet, gopacket.Default)

	var summary []string
	for _, layer := range packet.Layers() {
		if layer.LayerType() == gopacket.LayerTypeDecodeFailure {
			continue
		}
		summary = append(summary, layerSummary(layer))
	}
	if errLayer := packet.ErrorLayer(); errLayer != nil {
		summary = append(summary, fmt.Sprintf("DecodeFailure %v", errLayer.Error()))
	}

	return summary
}

func layerSummary(layer gopacket.Layer) string {
	switch l := layer.(type) {
	case *layers.Ethernet:
		return fmt.Sprintf("Ethernet %s > %s %s", l.SrcMAC, l.DstMAC, l.EthernetType)
	case *layers.ARP:
		op := "request"
		if l.Operation == layers.ARPReply {
			op = "reply"
		}
		return fmt.Sprintf("ARP %s %s (%s) > %s (%s)", op,
			net.IP(l.SourceProtAddress), net.HardwareAddr(l.SourceHwAddress),
			net.IP(l.DstProtAddress), net.HardwareAddr(l.DstHwAddress))
	case *layers.IPv4:
		return fmt.Sprintf("IPv4 %s > %s %s ttl=%d", l.SrcIP, l.DstIP, l.Protocol, l.TTL)
	case *layers.TCP:
		return fmt.Sprintf("TCP %d > %d", l.SrcPort, l.DstPort)
	case *layers.UDP:
		return fmt.Sprintf("UDP %d > %d", l.SrcPort, l.DstPort)
	case *layers.ICMPv4:
		return fmt.Sprintf("ICMPv4 %s", l.TypeCode)
	}

	return fmt.Sprintf("%s len=%d", layer.LayerType(), len(layer.LayerContents())+len(layer.LayerPayload()))
}
