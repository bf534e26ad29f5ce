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

package object

// Nesting is at most message, list, element, list.
const maxParentIterations = 4

// PropagateLength adds delta to the length of o and each of its
// ancestors, rewriting wire length fields where the kind has one.
// Growth only.
func PropagateLength(o *Object, delta int) {
	if delta < 0 {
		panicf("negative length delta %d", delta)
	}

	count := 0
	for o != nil {
		count++
		if count > maxParentIterations {
			panicf("object tree deeper than %d", maxParentIterations)
		}

		o.Length += delta
		if o.ops != nil && o.ops.LengthSet != nil {
			o.ops.LengthSet(o, o.Length)
		}

		end := o.wire.offset + o.Length
		current := o.wire.buf.Current()
		if end > current {
			panicf("%s ends at %d past buffer size %d", o.ID, end, current)
		}
		if o.Parent == nil {
			if end != current {
				panicf("root %s ends at %d, buffer size %d", o.ID, end, current)
			}
		}

		o = o.Parent
	}
}
