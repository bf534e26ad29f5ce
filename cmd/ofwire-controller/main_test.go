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

package main

import (
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/k-vswitch/ofwire/connection"
)

func Test_NetlinkAddrForCIDR(t *testing.T) {
	addr, err := netlinkAddrForCIDR("10.244.3.0/24")
	require.NoError(t, err)
	assert.Equal(t, "10.244.3.1/24", addr.IPNet.String())

	_, err = netlinkAddrForCIDR("10.244.3.0")
	assert.Error(t, err)
}

func Test_ResolveGatewayMAC(t *testing.T) {
	mac, err := resolveGatewayMAC(config{gatewayMAC: "0a:58:0a:f4:03:01", gatewayInterface: "ignored"})
	require.NoError(t, err)
	assert.Equal(t, "0a:58:0a:f4:03:01", mac)

	_, err = resolveGatewayMAC(config{})
	assert.Error(t, err)
}

func Test_AnnounceGateway(t *testing.T) {
	defer func(orig func(net.IP, string) error) { gratuitousARP = orig }(gratuitousARP)

	var sent []string
	gratuitousARP = func(ip net.IP, ifaceName string) error {
		sent = append(sent, ip.String()+" "+ifaceName)
		return nil
	}

	announceGateway("k-vswitch0", "10.244.3.0/24")
	announceGateway("k-vswitch0", "10.244.3.0")
	assert.Equal(t, []string{"10.244.3.1 k-vswitch0"}, sent)

	gratuitousARP = func(net.IP, string) error { return errors.New("no such interface") }
	assert.NotPanics(t, func() { announceGateway("missing0", "10.244.3.0/24") })
}

func Test_ServeSwitch(t *testing.T) {
	controllerSide, switchSide := net.Pipe()

	errCh := make(chan error, 1)
	go func() {
		errCh <- serveSwitch(controllerSide, "0a:58:0a:f4:03:01", "10.244.3.0/24")
	}()

	reader := connection.NewReader(switchSide)
	msg, err := reader.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "hello", msg.ID.String())
	msg.Delete()

	require.NoError(t, switchSide.Close())
	assert.NoError(t, <-errCh)
}
