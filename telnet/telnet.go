/*
 * Serial-over-network bridge: binds a COM port to a TCP listener.
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

// Package telnet implements the COM-port-over-TCP bridge used when a host
// wants to expose a serial port to a network client instead of a local
// terminal. Unlike a real telnet session there is no option negotiation:
// the guest's serial port carries whatever byte stream the CPU writes to
// its data register, so the bridge moves bytes verbatim between the
// socket and a small receive buffer device.Serial.Receive drains.
package telnet

import (
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/pcxt/pcxt/emu/device"
)

// rxBufSize bounds how much unread inbound data a Bridge holds before it
// starts dropping bytes; the guest is expected to poll Receive regularly.
const rxBufSize = 4096

const writeTimeout = 100 * time.Millisecond

// Bridge implements device.Serial over a TCP listener: the first client
// to connect becomes "the" far end of the COM port until it disconnects,
// at which point the bridge goes back to accepting a new one.
type Bridge struct {
	addr     string
	listener net.Listener
	shutdown chan struct{}
	wg       sync.WaitGroup

	mu   sync.Mutex
	conn net.Conn
	rx   []byte
}

// Listen opens addr and starts accepting connections for bridge in the
// background. The returned Bridge is ready to use as a device.Serial
// immediately; Status reports DataReady=false and Send is a no-op until
// a client connects.
func Listen(addr string) (*Bridge, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	b := &Bridge{
		addr:     addr,
		listener: listener,
		shutdown: make(chan struct{}),
	}
	b.wg.Add(1)
	go b.acceptLoop()
	return b, nil
}

// Close stops accepting new connections, drops any active one, and waits
// for the accept goroutine to return.
func (b *Bridge) Close() {
	close(b.shutdown)
	_ = b.listener.Close()
	b.mu.Lock()
	if b.conn != nil {
		_ = b.conn.Close()
	}
	b.mu.Unlock()
	b.wg.Wait()
}

func (b *Bridge) acceptLoop() {
	defer b.wg.Done()
	for {
		conn, err := b.listener.Accept()
		if err != nil {
			select {
			case <-b.shutdown:
				return
			default:
				slog.Warn("serial bridge accept failed", "addr", b.addr, "error", err)
				return
			}
		}
		slog.Info("serial bridge client connected", "addr", b.addr, "remote", conn.RemoteAddr())
		b.mu.Lock()
		if b.conn != nil {
			_ = b.conn.Close()
		}
		b.conn = conn
		b.rx = b.rx[:0]
		b.mu.Unlock()
		b.wg.Add(1)
		go b.readLoop(conn)
	}
}

func (b *Bridge) readLoop(conn net.Conn) {
	defer b.wg.Done()
	buf := make([]byte, 256)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			b.mu.Lock()
			if b.conn == conn {
				if room := rxBufSize - len(b.rx); room > 0 {
					if room > n {
						room = n
					}
					b.rx = append(b.rx, buf[:room]...)
				}
			}
			b.mu.Unlock()
		}
		if err != nil {
			b.mu.Lock()
			if b.conn == conn {
				b.conn = nil
			}
			b.mu.Unlock()
			return
		}
	}
}

// Init is a no-op: the bridge carries raw bytes regardless of the baud
// and line-control settings the guest programs into the UART.
func (b *Bridge) Init(baud uint32, lineControl uint8) error {
	return nil
}

// Status reports whether buffered inbound data is waiting; TxEmpty is
// always true since Send either completes immediately or drops the byte.
func (b *Bridge) Status() device.SerialStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	return device.SerialStatus{DataReady: len(b.rx) > 0, TxEmpty: true}
}

// Send writes one byte to the connected client, if any. With no client
// connected, or a slow one that can't absorb the byte within the write
// timeout, the byte is silently dropped rather than stalling the CPU
// goroutine.
func (b *Bridge) Send(by uint8) error {
	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()
	if conn == nil {
		return nil
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	_, err := conn.Write([]byte{by})
	return err
}

// Receive pops the oldest buffered inbound byte, if any.
func (b *Bridge) Receive() (by uint8, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.rx) == 0 {
		return 0, false
	}
	by = b.rx[0]
	b.rx = b.rx[1:]
	return by, true
}
