/*
 * Serial-over-network bridge, registry of active bridges.
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

import "sync"

var (
	registryMu sync.Mutex
	registry   []*Bridge
)

// Bind opens a Bridge on addr and keeps track of it so StopAll can close
// every bridge a host has opened, whether from --serialN flags or a
// SERIAL config line.
func Bind(addr string) (*Bridge, error) {
	b, err := Listen(addr)
	if err != nil {
		return nil, err
	}
	registryMu.Lock()
	registry = append(registry, b)
	registryMu.Unlock()
	return b, nil
}

// StopAll closes every bridge opened through Bind.
func StopAll() {
	registryMu.Lock()
	bridges := registry
	registry = nil
	registryMu.Unlock()
	for _, b := range bridges {
		b.Close()
	}
}
