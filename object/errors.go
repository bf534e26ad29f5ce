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

import (
	"errors"
	"fmt"

	"github.com/k-vswitch/ofwire/wirebuf"
)

// Errors returned by this package. Buffer errors are shared with wirebuf
// so errors.Is matches regardless of which layer produced them.
var (
	ErrOutOfMemory       = wirebuf.ErrOutOfMemory
	ErrInvalidArgument   = wirebuf.ErrInvalidArgument
	ErrResourceExhausted = wirebuf.ErrResourceExhausted

	// ErrEndOfSequence ends list iteration. It is not a failure.
	ErrEndOfSequence = errors.New("end of sequence")

	ErrParse            = errors.New("parse error")
	ErrInvalidVersion   = errors.New("invalid version")
	ErrValidationFailed = errors.New("message validation failed")
)

// panicf reports a programming error. Callers test the condition
// themselves so the arguments are only boxed on failure.
func panicf(format string, args ...interface{}) {
	panic("object: " + fmt.Sprintf(format, args...))
}
