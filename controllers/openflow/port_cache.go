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
	"sort"
	"sync"
)

// portCache holds the switch ports learned from ARP traffic, keyed by
// the IP address seen behind them.
type portCache struct {
	sync.Mutex

	store map[string]portInfo
}

type portInfo struct {
	ip     string
	ofport int
	mac    string
}

func NewPortCache() *portCache {
	return &portCache{
		store: make(map[string]portInfo, 0),
	}
}

func (p *portCache) GetPortInfo(ip string) (portInfo, bool) {
	p.Lock()
	defer p.Unlock()

	port, exists := p.store[ip]
	return port, exists
}

// SetPortInfo stores port and reports whether it differs from what was
// cached for its IP.
func (p *portCache) SetPortInfo(port portInfo) bool {
	p.Lock()
	defer p.Unlock()

	if cached, exists := p.store[port.ip]; exists && cached == port {
		return false
	}

	p.store[port.ip] = port
	return true
}

func (p *portCache) DelPortInfo(ip string) {
	p.Lock()
	defer p.Unlock()

	delete(p.store, ip)
}

// List returns the cached ports ordered by IP.
func (p *portCache) List() []portInfo {
	p.Lock()
	defer p.Unlock()

	ports := make([]portInfo, 0, len(p.store))
	for _, port := range p.store {
		ports = append(ports, port)
	}

	sort.Slice(ports, func(i, j int) bool {
		return ports[i].ip < ports[j].ip
	})
	return ports
}
