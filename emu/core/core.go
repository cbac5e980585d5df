/*
   Core PC/XT emulator step loop.

   Copyright (c) 2024, Richard Cornwell

   Permission is hereby granted, free of charge, to any person obtaining a
   copy of this software and associated documentation files (the "Software"),
   to deal in the Software without restriction, including without limitation
   the rights to use, copy, modify, merge, publish, distribute, sublicense,
   and/or sell copies of the Software, and to permit persons to whom the
   Software is furnished to do so, subject to the following conditions:

   The above copyright notice and this permission notice shall be included in
   all copies or substantial portions of the Software.

   THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
   IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
   FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.  IN NO EVENT SHALL
   ROBERT M SUPNIK BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
   IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
   CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.

*/

// Package core glues emu/memory, emu/decode, emu/cpu, emu/ports, emu/video,
// and emu/audio into a runnable VM: load a BIOS image, attach disk/serial
// handles, and step the guest on its own goroutine exactly the way the
// teacher's emu/core drives its S/370 CPU.
package core

import (
	"log/slog"
	"sync"
	"time"

	"github.com/pcxt/pcxt/emu/cpu"
	"github.com/pcxt/pcxt/emu/decode"
	"github.com/pcxt/pcxt/emu/device"
	"github.com/pcxt/pcxt/emu/hostops"
	"github.com/pcxt/pcxt/emu/memory"
	"github.com/pcxt/pcxt/emu/ports"
)

// biosEntrySeg:biosEntryOff is where the BIOS image is loaded and where
// CS:IP starts, per the image format (spec.md's "F000:0100 entry point").
const (
	biosEntrySeg = 0xF000
	biosEntryOff = 0x0100
)

// EventKind identifies what a Packet sent on the master channel asks the
// VM to do. These replace the teacher's telnet-console/timer packet kinds
// with the IPL/eject/serial-connect events this emulator's host surface
// needs (spec.md §5, "floppy may be swapped at runtime").
type EventKind int

const (
	// IPL (re)boots the VM: selects the boot drive, sets DL, resets CS:IP
	// to the BIOS entry point, and starts the step loop.
	IPL EventKind = iota
	// Eject swaps the handle in one disk slot (0=floppy, 1=hard disk)
	// without touching CPU state; a nil Disk detaches the drive.
	Eject
	// SerialConnect attaches (or, with Serial == nil, detaches) a backend
	// for one of the four COM ports.
	SerialConnect
	// Stop halts the step loop without tearing down the VM; a later IPL
	// restarts it.
	Stop
)

// Event is one request sent to a running VM's master channel.
type Event struct {
	Kind   EventKind
	Drive  int // 0=floppy, 1=hard disk; used by Eject
	Disk   device.Disk
	Port   int // 0-3; used by SerialConnect
	Serial device.Serial
	HDBoot bool // used by IPL: DL=0x80 instead of 0 (spec.md §6 --hdboot)
}

// VM owns the guest address space, instruction engine, and port space, and
// runs cpu.CPU.Step in a loop on its own goroutine.
type VM struct {
	wg      sync.WaitGroup
	done    chan struct{}
	running bool
	master  chan Event

	Mem    *memory.Memory
	Tables *decode.Tables
	CPU    *cpu.CPU
	Ports  *ports.Ports

	// mipsInterval, when nonzero, is the wall-clock budget for one guest
	// instruction; Start paces Step calls to it (spec.md §6 --mips).
	mipsInterval time.Duration
}

// New builds a VM around the given BIOS image. The image is copied into
// guest memory at F000:0100 and its embedded decode-table directory is
// parsed per the BIOS image format; if the image is too short to carry a
// directory, the bundled canonical tables are used instead.
func New(bios []byte, master chan Event) *VM {
	mem := memory.New()
	dest := memory.Linear(biosEntrySeg, biosEntryOff)
	copy(mem.Slice(dest, len(bios)), bios)

	tables, err := decode.LoadFromImage(bios)
	if err != nil {
		slog.Warn("BIOS image too short for its own table directory, using canonical tables", "error", err)
		tables = decode.Canonical()
	}

	vm := &VM{
		done:   make(chan struct{}),
		master: master,
		Mem:    mem,
		Tables: tables,
		Ports:  ports.New(),
	}
	vm.CPU = cpu.New(mem, tables)
	vm.CPU.Ports = vm.Ports
	vm.CPU.SetIP(biosEntryOff)
	return vm
}

// SetMIPS sets a target instruction rate; 0 disables throttling.
func (vm *VM) SetMIPS(mips float64) {
	if mips <= 0 {
		vm.mipsInterval = 0
		return
	}
	vm.mipsInterval = time.Duration(float64(time.Second) / mips)
}

// Boot selects the boot drive (DL=0x80 for hard disk, 0 for floppy, per
// spec.md §4.3/§6) and resets CS:IP to the BIOS entry point, then starts
// the step loop.
func (vm *VM) boot(hdboot bool) {
	if hdboot {
		vm.Mem.SetReg8(memory.DL, 0x80)
	} else {
		vm.Mem.SetReg8(memory.DL, 0)
	}
	vm.Mem.SetReg16(memory.CS, biosEntrySeg)
	vm.CPU.SetIP(biosEntryOff)
	vm.running = true
}

// Start runs the step loop until Stop is called. It borrows the teacher's
// goroutine/done-channel/select shape (cpu.CPU.Step replaces cpu.CycleCPU,
// the Event channel replaces master.Packet) but, unlike the teacher's
// unconditional non-blocking select, blocks on the channel while idle
// instead of busy-spinning a core waiting for the first IPL.
func (vm *VM) Start() {
	vm.wg.Add(1)
	defer vm.wg.Done()

	var batch int
	batchStart := time.Now()

	for {
		if vm.running {
			if !vm.CPU.Step() {
				vm.running = false
			} else if vm.mipsInterval != 0 {
				batch++
				if batch >= 1000 {
					target := batchStart.Add(vm.mipsInterval * time.Duration(batch))
					if d := time.Until(target); d > 0 {
						time.Sleep(d)
					}
					batch = 0
					batchStart = time.Now()
				}
			}
		}
		if vm.running {
			// Still have guest instructions to run: don't block waiting
			// for an event, just check in passing.
			select {
			case <-vm.done:
				slog.Info("Shutdown VM core")
				return
			case event := <-vm.master:
				vm.processEvent(event)
			default:
			}
		} else {
			// Idle: block until something happens instead of spinning.
			select {
			case <-vm.done:
				slog.Info("Shutdown VM core")
				return
			case event := <-vm.master:
				vm.processEvent(event)
			}
		}
	}
}

// Stop halts the step loop and waits for Start's goroutine to return.
func (vm *VM) Stop() {
	close(vm.done)
	done := make(chan struct{})
	go func() {
		vm.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return
	case <-time.After(time.Second):
		slog.Warn("Timed out waiting for VM core to finish.")
		return
	}
}

func (vm *VM) processEvent(event Event) {
	switch event.Kind {
	case IPL:
		if event.Disk != nil {
			vm.CPU.Host.Disks[event.Drive] = event.Disk
		}
		vm.boot(event.HDBoot)
	case Eject:
		if vm.CPU.Host != nil {
			vm.CPU.Host.Disks[event.Drive] = event.Disk
		}
	case SerialConnect:
		if vm.CPU.Host != nil && event.Port >= 0 && event.Port < 4 {
			vm.CPU.Host.Serial[event.Port] = event.Serial
		}
	case Stop:
		vm.running = false
	}
}

// AttachHost wires the host capability set (disks, serial, clock, video,
// audio, port filter, putchar) into the VM before the first IPL.
func (vm *VM) AttachHost(host *hostops.Host, video device.Video, clock device.Clock, speaker ports.SpeakerSink, filter device.PortFilter) {
	vm.CPU.Host = host
	vm.CPU.Video = video
	vm.CPU.Clock = clock
	vm.CPU.Speaker = speaker
	vm.CPU.Filter = filter
}
