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
	"bytes"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"strings"

	"k8s.io/klog"

	"github.com/k-vswitch/ofwire/connection"
	"github.com/k-vswitch/ofwire/inspect"
	"github.com/k-vswitch/ofwire/object"
)

type options struct {
	hex          bool
	output       string
	preallocated bool
}

func main() {
	klog.InitFlags(flag.CommandLine)

	input := flag.String("input", "", "file holding captured OpenFlow messages, stdin if empty")
	opts := options{}
	flag.BoolVar(&opts.hex, "hex", false, "input is hex text instead of raw bytes")
	flag.StringVar(&opts.output, "output", "text", "output format, one of text, yaml or json")
	flag.BoolVar(&opts.preallocated, "preallocated", false, "decode every message into the same preallocated storage")
	flag.Parse()

	in := io.Reader(os.Stdin)
	if *input != "" {
		f, err := os.Open(*input)
		if err != nil {
			klog.Errorf("error opening %q: %v", *input, err)
			os.Exit(1)
		}
		defer f.Close()
		in = f
	}

	if err := run(in, os.Stdout, opts); err != nil {
		klog.Errorf("error dumping messages: %v", err)
		os.Exit(1)
	}
}

// run prints every message of in. Messages that fail validation are
// reported and skipped.
func run(in io.Reader, out io.Writer, opts options) error {
	switch opts.output {
	case "text", "yaml", "json":
	default:
		return fmt.Errorf("unknown output format %q", opts.output)
	}

	if opts.hex {
		data, err := readHex(in)
		if err != nil {
			return err
		}
		in = bytes.NewReader(data)
	}

	reader := connection.NewReader(in)
	read := reader.ReadMessage
	if opts.preallocated {
		read = reader.ReadMessagePreallocated
	}

	for {
		msg, err := read()
		if err == io.EOF {
			return nil
		}
		if errors.Is(err, object.ErrValidationFailed) || errors.Is(err, object.ErrInvalidVersion) {
			klog.Warningf("skipping message: %v", err)
			continue
		}
		if err != nil {
			return err
		}

		err = dump(out, msg, opts.output)
		if !opts.preallocated {
			msg.Delete()
		}
		if err != nil {
			return err
		}
	}
}

func dump(out io.Writer, msg *object.Object, format string) error {
	n, err := inspect.Describe(msg)
	if err != nil {
		return err
	}

	switch format {
	case "yaml":
		data, err := n.YAML()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(out, "---\n%s", data)
		return err
	case "json":
		data, err := n.JSON()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(out, "%s\n", data)
		return err
	}

	return n.WriteText(out)
}

// readHex decodes hex text, ignoring whitespace and "0x" prefixes.
func readHex(in io.Reader) ([]byte, error) {
	text, err := ioutil.ReadAll(in)
	if err != nil {
		return nil, err
	}

	var digits strings.Builder
	for _, field := range strings.Fields(string(text)) {
		digits.WriteString(strings.TrimPrefix(field, "0x"))
	}

	return hex.DecodeString(digits.String())
}
