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
	"flag"
	"fmt"
	"net"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/containernetworking/plugins/pkg/ip"
	"github.com/j-keck/arping"
	"github.com/vishvananda/netlink"
	"k8s.io/klog"

	"github.com/k-vswitch/ofwire/connection"
	"github.com/k-vswitch/ofwire/controllers/openflow"
	"github.com/k-vswitch/ofwire/object"
)

const (
	defaultListenAddr = "127.0.0.1:6653"
)

var gratuitousARP = arping.GratuitousArpOverIfaceByName

type config struct {
	listenAddr       string
	bridgeName       string
	gatewayInterface string
	gatewayMAC       string
	podCIDR          string
	assignGateway    bool
}

func main() {
	klog.InitFlags(flag.CommandLine)

	cfg := config{}
	flag.StringVar(&cfg.listenAddr, "listen", defaultListenAddr, "address the switch connects to")
	flag.StringVar(&cfg.bridgeName, "bridge", "", "OVS bridge to point at this controller, left alone if empty")
	flag.StringVar(&cfg.gatewayInterface, "gateway-interface", "", "interface whose MAC answers for the pod gateway")
	flag.StringVar(&cfg.gatewayMAC, "gateway-mac", "", "MAC answering for the pod gateway, overrides -gateway-interface")
	flag.StringVar(&cfg.podCIDR, "pod-cidr", "", "pod CIDR of this node")
	flag.BoolVar(&cfg.assignGateway, "assign-gateway", false, "assign the gateway address to -gateway-interface")
	flag.Parse()

	klog.Info("starting ofwire controller")

	if cfg.podCIDR == "" {
		klog.Error("flag -pod-cidr is required")
		os.Exit(1)
	}

	gatewayMAC, err := resolveGatewayMAC(cfg)
	if err != nil {
		klog.Errorf("error resolving gateway MAC: %v", err)
		os.Exit(1)
	}

	if cfg.assignGateway {
		if err := assignGatewayAddr(cfg.gatewayInterface, cfg.podCIDR); err != nil {
			klog.Errorf("failed to assign gateway address: %v", err)
			os.Exit(1)
		}

		announceGateway(cfg.gatewayInterface, cfg.podCIDR)
	}

	if cfg.bridgeName != "" {
		if err := setControllerTarget(cfg.bridgeName, cfg.listenAddr); err != nil {
			klog.Errorf("failed to setup controller: %v", err)
			os.Exit(1)
		}

		if err := setSecureFailMode(cfg.bridgeName); err != nil {
			klog.Errorf("failed to set fail-mode to 'secure': %v", err)
			os.Exit(1)
		}
	}

	listener, err := net.Listen("tcp", cfg.listenAddr)
	if err != nil {
		klog.Errorf("error listening on %q: %v", cfg.listenAddr, err)
		os.Exit(1)
	}

	term := make(chan os.Signal, 1)
	signal.Notify(term, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-term
		listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			klog.Infof("stopped accepting switch connections: %v", err)
			return
		}

		klog.Infof("switch connected from %s", conn.RemoteAddr())
		if err := serveSwitch(conn, gatewayMAC, cfg.podCIDR); err != nil {
			klog.Errorf("error serving switch %s: %v", conn.RemoteAddr(), err)
		}
	}
}

// serveSwitch runs a controller over conn until the switch disconnects.
func serveSwitch(conn net.Conn, gatewayMAC, podCIDR string) error {
	defer conn.Close()

	connectionManager := connection.NewOFConnect(conn)
	defer connectionManager.Close()

	c, err := openflow.NewController(connectionManager, object.Version13, gatewayMAC, podCIDR)
	if err != nil {
		return err
	}

	go connectionManager.ProcessQueue()

	if err := c.Initialize(); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- connectionManager.Serve()
	}()

	c.Run()
	return <-errCh
}

func resolveGatewayMAC(cfg config) (string, error) {
	if cfg.gatewayMAC != "" {
		return cfg.gatewayMAC, nil
	}
	if cfg.gatewayInterface == "" {
		return "", fmt.Errorf("one of -gateway-mac or -gateway-interface is required")
	}

	link, err := netlink.LinkByName(cfg.gatewayInterface)
	if err != nil {
		return "", fmt.Errorf("could not lookup %q: %v", cfg.gatewayInterface, err)
	}

	return link.Attrs().HardwareAddr.String(), nil
}

func assignGatewayAddr(linkName, podCIDR string) error {
	link, err := netlink.LinkByName(linkName)
	if err != nil {
		return fmt.Errorf("could not lookup %q: %v", linkName, err)
	}

	addr, err := netlinkAddrForCIDR(podCIDR)
	if err != nil {
		return fmt.Errorf("failed to get netlink addr for CIDR %q, err: %v", podCIDR, err)
	}

	if err := netlink.AddrReplace(link, addr); err != nil {
		return fmt.Errorf("could not add addr %q to %q, err: %v", addr, linkName, err)
	}

	if err := netlink.LinkSetUp(link); err != nil {
		return fmt.Errorf("failed to bring %q up: %v", linkName, err)
	}

	return nil
}

// announceGateway sends a gratuitous ARP for the gateway address out of
// linkName so neighbors drop stale entries. Failures are not fatal.
func announceGateway(linkName, podCIDR string) {
	addr, err := netlinkAddrForCIDR(podCIDR)
	if err != nil {
		klog.Warningf("failed to get gateway address for CIDR %q: %v", podCIDR, err)
		return
	}

	if err := gratuitousARP(addr.IP, linkName); err != nil {
		klog.Warningf("failed to send gratuitous ARP for %s over %q: %v", addr.IP, linkName, err)
		return
	}

	klog.V(2).Infof("announced gateway %s over %q", addr.IP, linkName)
}

// netlinkAddrForCIDR returns the gateway address of podCIDR, the first
// address of the block.
func netlinkAddrForCIDR(podCIDR string) (*netlink.Addr, error) {
	_, podIPNet, err := net.ParseCIDR(podCIDR)
	if err != nil {
		return nil, err
	}

	gw := ip.NextIP(podIPNet.IP.Mask(podIPNet.Mask))

	return &netlink.Addr{
		IPNet: &net.IPNet{
			IP:   gw,
			Mask: podIPNet.Mask,
		},
	}, nil
}

func setSecureFailMode(bridgeName string) error {
	command := []string{
		"set-fail-mode", bridgeName, "secure",
	}

	out, err := exec.Command("ovs-vsctl", command...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("failed to set fail mode for bridge %q to 'secure', err: %v, out: %q",
			bridgeName, err, string(out))
	}

	return nil
}

func setControllerTarget(bridgeName, listenAddr string) error {
	command := []string{
		"set-controller", bridgeName, "tcp:" + listenAddr,
	}

	out, err := exec.Command("ovs-vsctl", command...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("failed to set controller target for bridge %q, err: %v, out: %q",
			bridgeName, err, string(out))
	}

	return nil
}
