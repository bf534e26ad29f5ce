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
	"fmt"
	"net"
	"sync"

	"github.com/containernetworking/plugins/pkg/ip"
	"k8s.io/klog"

	"github.com/k-vswitch/ofwire/flows"
	"github.com/k-vswitch/ofwire/object"
)

type connectionManager interface {
	Receive() (*object.Object, bool)
	Send(msg *object.Object)
}

type controller struct {
	datapathID  uint64
	connManager connectionManager
	version     object.Version

	gatewayIP  net.IP
	gatewayMAC net.HardwareAddr
	podCIDR    string

	ports *portCache

	flowsLock sync.Mutex
	flows     *flows.FlowsBuffer
}

// NewController returns a controller answering for the gateway of
// podCIDR, which is the first address of the block.
func NewController(connManager connectionManager, version object.Version,
	gatewayMAC, podCIDR string) (*controller, error) {

	_, podIPNet, err := net.ParseCIDR(podCIDR)
	if err != nil {
		return nil, err
	}
	gatewayIP := ip.NextIP(podIPNet.IP.Mask(podIPNet.Mask)).To4()
	if gatewayIP == nil {
		return nil, fmt.Errorf("pod CIDR %q is not an IPv4 block", podCIDR)
	}

	mac, err := net.ParseMAC(gatewayMAC)
	if err != nil {
		return nil, err
	}

	return &controller{
		connManager: connManager,
		version:     version,
		gatewayIP:   gatewayIP,
		gatewayMAC:  mac,
		podCIDR:     podCIDR,
		ports:       NewPortCache(),
		flows:       flows.NewFlowsBuffer(),
	}, nil
}

func (c *controller) Initialize() error {
	// send initial hello which is required to establish a proper connection
	// with an open flow switch.
	hello, err := object.Create(object.Hello, c.version)
	if err != nil {
		return err
	}
	c.connManager.Send(hello)

	klog.Info("OF_HELLO message sent to switch")
	return nil
}

// Run handles messages from the switch until the connection is closed.
func (c *controller) Run() {
	for {
		msg, ok := c.connManager.Receive()
		if !ok {
			klog.Info("connection to switch closed")
			return
		}

		if err := c.handle(msg); err != nil {
			klog.Errorf("error handling %s: %v", msg, err)
		}
		msg.Delete()
	}
}

func (c *controller) handle(msg *object.Object) error {
	switch msg.ID {
	case object.EchoRequest:
		klog.V(5).Info("echo reply sent to switch")
		return c.echoReply(msg)

	case object.EchoReply:
		klog.V(5).Info("received echo reply from switch")

	case object.Hello:
		// hello received, next thing to do is send a feature request message
		// to receive the data path ID of the switch
		featureReq, err := object.Create(object.FeaturesRequest, c.version)
		if err != nil {
			return err
		}
		c.connManager.Send(featureReq)

	case object.FeaturesReply:
		c.datapathID = msg.U64(object.FeaturesReplyDatapathIDOffset)
		klog.Infof("set datapath ID to %d", c.datapathID)
		return c.syncFlows()

	case object.PacketIn:
		return c.handlePacketIn(msg)

	default:
	}

	return nil
}

// echoReply answers with the request's xid and payload.
func (c *controller) echoReply(req *object.Object) error {
	reply, err := object.Create(object.EchoReply, req.Version)
	if err != nil {
		return err
	}

	xid, err := req.XID()
	if err != nil {
		reply.Delete()
		return err
	}
	if err := reply.SetXID(xid); err != nil {
		reply.Delete()
		return err
	}

	headerLen := object.FixedLength(req.Version, object.Header)
	payload := req.Slice(headerLen, req.Length-headerLen)
	if err := object.Extend(reply, len(payload)); err != nil {
		reply.Delete()
		return err
	}
	reply.Copy(reply.Length-len(payload), payload)

	c.connManager.Send(reply)
	return nil
}
