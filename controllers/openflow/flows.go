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
	"time"

	"k8s.io/klog"

	"github.com/k-vswitch/ofwire/flows"
)

const (
	tableClassification = 0
	tableL2Rewrites     = 60
	tableLocalARP       = 100
)

// syncFlows replaces every flow of the switch with the default flows and
// the flows of the learned ports.
func (c *controller) syncFlows() error {
	c.flowsLock.Lock()
	defer c.flowsLock.Unlock()

	startTime := time.Now()

	// reset the flows buffer before each sync
	c.flows.Reset()

	c.defaultFlows()
	for _, port := range c.ports.List() {
		for _, flow := range c.flowsForPort(port) {
			c.flows.AddFlow(flow)
		}
	}

	msgs, err := c.flows.Messages(c.version)
	if err != nil {
		return fmt.Errorf("error syncing flows: %v", err)
	}
	for _, msg := range msgs {
		c.connManager.Send(msg)
	}

	klog.V(2).Infof("full sync for flows took %s", time.Since(startTime).String())
	return nil
}

func (c *controller) defaultFlows() {
	gatewayIP := c.gatewayIP.String()

	// ARP requests for the gateway are answered by the controller
	flow := flows.NewFlow().WithTable(tableClassification).
		WithPriority(500).WithProtocol("arp").
		WithArpDest(gatewayIP).WithActionController()
	c.flows.AddFlow(flow)

	// traffic for the gateway goes to the host
	flow = flows.NewFlow().WithTable(tableClassification).
		WithPriority(500).WithProtocol("ip").
		WithIPDest(gatewayIP).WithActionLocal()
	c.flows.AddFlow(flow)

	flow = flows.NewFlow().WithTable(tableClassification).
		WithPriority(300).WithProtocol("ip").WithIPDest(c.podCIDR).
		WithActionResubmit(tableL2Rewrites)
	c.flows.AddFlow(flow)

	flow = flows.NewFlow().WithTable(tableClassification).
		WithPriority(100).WithProtocol("arp").WithActionResubmit(tableLocalARP)
	c.flows.AddFlow(flow)

	flow = flows.NewFlow().WithTable(tableL2Rewrites).
		WithPriority(0).WithActionDrop()
	c.flows.AddFlow(flow)

	// ARP for unknown addresses is sent up so the sender port is learned
	flow = flows.NewFlow().WithTable(tableLocalARP).
		WithPriority(0).WithProtocol("arp").WithActionController()
	c.flows.AddFlow(flow)
}

func (c *controller) flowsForPort(port portInfo) []*flows.Flow {
	return []*flows.Flow{
		flows.NewFlow().WithTable(tableL2Rewrites).WithPriority(100).
			WithProtocol("ip").WithIPDest(port.ip).WithActionModDlDest(port.mac).
			WithActionOutputPort(port.ofport),
		flows.NewFlow().WithTable(tableLocalARP).WithPriority(100).
			WithProtocol("arp").WithArpDest(port.ip).WithActionOutputPort(port.ofport),
	}
}

// installPortFlows adds the flows of one port without a full sync.
func (c *controller) installPortFlows(port portInfo) error {
	for _, flow := range c.flowsForPort(port) {
		fm, err := flow.Encode(c.version)
		if err != nil {
			return err
		}
		c.connManager.Send(fm)
	}

	klog.V(2).Infof("installed flows for %s at port %d", port.ip, port.ofport)
	return nil
}
