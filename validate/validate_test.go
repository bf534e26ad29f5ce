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

package validate

import (
	"encoding/binary"
	"testing"

	"github.com/Kmotiko/gofc/ofprotocol/ofp13"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func header(version, t uint8, length int) []byte {
	msg := make([]byte, length)
	msg[0] = version
	msg[1] = t
	binary.BigEndian.PutUint16(msg[2:], uint16(length))
	return msg
}

// testFlowMod returns an OF1.3 flow mod matching in_port=1,ip that applies
// output:2.
func testFlowMod(t *testing.T) []byte {
	match := ofp13.NewOfpMatch()
	match.Append(ofp13.NewOxmInPort(1))
	match.Append(ofp13.NewOxmEthType(0x0800))

	apply := ofp13.NewOfpInstructionActions(ofp13.OFPIT_APPLY_ACTIONS)
	apply.Append(ofp13.NewOfpActionOutput(2, 0))

	fm := ofp13.NewOfpFlowModAdd(0, 0, 0, 100, 0, match,
		[]ofp13.OfpInstruction{ofp13.NewOfpInstructionGotoTable(1), apply})
	msg := fm.Serialize()
	require.Equal(t, 48+24+8+24, len(msg))
	return msg
}

func testPacketOut() []byte {
	po := ofp13.NewOfpPacketOut(ofp13.OFP_NO_BUFFER, ofp13.OFPP_CONTROLLER,
		[]ofp13.OfpAction{ofp13.NewOfpActionOutput(3, 0)}, []byte{1, 2, 3, 4, 5, 6})
	return po.Serialize()
}

func Test_Message(t *testing.T) {
	tests := []struct {
		name  string
		msg   func(t *testing.T) []byte
		valid bool
	}{
		{
			name:  "OF1.3 hello",
			msg:   func(*testing.T) []byte { return ofp13.NewOfpHello().Serialize() },
			valid: true,
		},
		{
			name:  "OF1.0 barrier request",
			msg:   func(*testing.T) []byte { return header(0x01, 18, 8) },
			valid: true,
		},
		{
			name:  "OF1.0 flow mod is unsupported",
			msg:   func(*testing.T) []byte { return header(0x01, ofp13.OFPT_FLOW_MOD, 72) },
			valid: false,
		},
		{
			name:  "echo request with payload",
			msg:   func(*testing.T) []byte { return header(0x04, ofp13.OFPT_ECHO_REQUEST, 12) },
			valid: true,
		},
		{
			name:  "features request with trailing bytes",
			msg:   func(*testing.T) []byte { return header(0x04, ofp13.OFPT_FEATURES_REQUEST, 12) },
			valid: false,
		},
		{
			name:  "features reply",
			msg:   func(*testing.T) []byte { return header(0x04, ofp13.OFPT_FEATURES_REPLY, 32) },
			valid: true,
		},
		{
			name:  "unknown type",
			msg:   func(*testing.T) []byte { return header(0x04, ofp13.OFPT_METER_MOD, 16) },
			valid: false,
		},
		{
			name:  "unknown version",
			msg:   func(*testing.T) []byte { return header(0x07, ofp13.OFPT_HELLO, 8) },
			valid: false,
		},
		{
			name:  "short message",
			msg:   func(*testing.T) []byte { return []byte{0x04, 0x00, 0x00, 0x04} },
			valid: false,
		},
		{
			name: "header length mismatch",
			msg: func(*testing.T) []byte {
				msg := header(0x04, ofp13.OFPT_HELLO, 16)
				binary.BigEndian.PutUint16(msg[2:], 24)
				return msg
			},
			valid: false,
		},
		{
			name:  "flow mod",
			msg:   testFlowMod,
			valid: true,
		},
		{
			name: "flow mod with non OXM match",
			msg: func(t *testing.T) []byte {
				msg := testFlowMod(t)
				binary.BigEndian.PutUint16(msg[48:], 0)
				return msg
			},
			valid: false,
		},
		{
			name: "flow mod with match past the end",
			msg: func(t *testing.T) []byte {
				msg := testFlowMod(t)
				binary.BigEndian.PutUint16(msg[50:], 200)
				return msg
			},
			valid: false,
		},
		{
			name: "flow mod with truncated OXM",
			msg: func(t *testing.T) []byte {
				msg := testFlowMod(t)
				// eth_type payload length 2 -> 4 overruns the match
				msg[48+4+8+3] = 4
				return msg
			},
			valid: false,
		},
		{
			name: "flow mod with misaligned instruction",
			msg: func(t *testing.T) []byte {
				msg := testFlowMod(t)
				binary.BigEndian.PutUint16(msg[72+2:], 12)
				return msg
			},
			valid: false,
		},
		{
			name: "flow mod with short output action",
			msg: func(t *testing.T) []byte {
				msg := testFlowMod(t)
				// apply actions instruction at 80, its action at 88
				binary.BigEndian.PutUint16(msg[88+2:], 8)
				return msg
			},
			valid: false,
		},
		{
			name:  "packet out",
			msg:   func(*testing.T) []byte { return testPacketOut() },
			valid: true,
		},
		{
			name: "packet out with actions past the end",
			msg: func(*testing.T) []byte {
				msg := testPacketOut()
				binary.BigEndian.PutUint16(msg[16:], 64)
				return msg
			},
			valid: false,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := Message(test.msg(t))
			if test.valid {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			_, ok := err.(*Error)
			assert.True(t, ok, "expected *Error, got %T", err)
			t.Logf("rejected: %v", err)
		})
	}
}

func Test_MessageDoesNotAllocate(t *testing.T) {
	msg := testFlowMod(t)
	allocs := testing.AllocsPerRun(100, func() {
		if err := Message(msg); err != nil {
			t.Fatal(err)
		}
	})
	assert.Equal(t, float64(0), allocs)
}
