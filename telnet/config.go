/*
 * Serial-over-network bridge, config file binding.
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

package telnet

import (
	"errors"
	"fmt"
	"sync"

	config "github.com/pcxt/pcxt/config/configparser"
)

// Bound holds the bridges opened from config-file SERIAL lines, keyed by
// COM port number, for cmd/pcxt to collect once LoadConfigFile returns.
var (
	boundMu sync.Mutex
	Bound   = map[uint16]*Bridge{}
)

func init() {
	config.RegisterModel("SERIAL", config.TypeOptions, createSerial)
}

// createSerial handles a "SERIAL <port> addr=<host:port>" config line.
func createSerial(port uint16, _ string, options []config.Option) error {
	if port > 3 {
		return fmt.Errorf("serial: port %d out of range, want 0-3", port)
	}
	addr := ""
	for _, opt := range options {
		if opt.Name == "addr" {
			addr = opt.EqualOpt
		}
	}
	if addr == "" {
		return errors.New("serial: requires addr=host:port option")
	}
	b, err := Bind(addr)
	if err != nil {
		return fmt.Errorf("serial: %w", err)
	}
	boundMu.Lock()
	Bound[port] = b
	boundMu.Unlock()
	return nil
}
