/*
 * pcxt - Main process.
 *
 * Copyright (c) 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a
 * copy of this software and associated documentation files (the "Software"),
 * to deal in the Software without restriction, including without limitation
 * the rights to use, copy, modify, merge, publish, distribute, sublicense,
 * and/or sell copies of the Software, and to permit persons to whom the
 * Software is furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.  IN NO EVENT SHALL
 * ROBERT M SUPNIK BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
 * IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
 * CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
 *
 */

package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	getopt "github.com/pborman/getopt/v2"

	config "github.com/pcxt/pcxt/config/configparser"
	"github.com/pcxt/pcxt/emu/audio"
	"github.com/pcxt/pcxt/emu/core"
	"github.com/pcxt/pcxt/emu/cpu"
	"github.com/pcxt/pcxt/emu/hostops"
	"github.com/pcxt/pcxt/emu/ports"
	"github.com/pcxt/pcxt/telnet"
	"github.com/pcxt/pcxt/util/debug"
	"github.com/pcxt/pcxt/util/logger"
)

var Logger *slog.Logger

func main() {
	optBios := getopt.StringLong("bios", 0, "bios.bin", "BIOS image")
	optFloppy := getopt.StringLong("floppy", 'a', "", "Floppy disk image")
	optHardDisk := getopt.StringLong("harddisk", 'c', "", "Hard disk image")
	optHDBoot := getopt.BoolLong("hdboot", 0, "Boot from hard disk instead of floppy")
	optMips := getopt.StringLong("mips", 0, "", "Throttle to a target instruction rate")
	optNoAudio := getopt.BoolLong("noaudio", 0, "Disable audio")
	optConfig := getopt.StringLong("config", 0, "", "Configuration file for serial bridging")
	optLogFile := getopt.StringLong("log", 'l', "", "Log file")
	// --debug takes a comma-separated module=mask list; it can't be
	// given more than once, but a single invocation covers every module.
	optDebug := getopt.StringLong("debug", 0, "", "Debug trace, module=mask[,module=mask...]")
	optSerial := [4]*string{}
	for n := range optSerial {
		optSerial[n] = getopt.StringLong("serial"+strconv.Itoa(n), 0, "", fmt.Sprintf("Bind COM%d to a telnet bridge address", n))
	}
	optHelp := getopt.BoolLong("help", 'h', "Help")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		os.Exit(0)
	}

	var file *os.File
	if *optLogFile != "" {
		file, _ = os.Create(*optLogFile)
	}
	programLevel := new(slog.LevelVar)
	programLevel.Set(slog.LevelDebug)
	debugEnabled := *optDebug != ""
	Logger = slog.New(logger.NewHandler(file, &slog.HandlerOptions{Level: programLevel, AddSource: false}, &debugEnabled))
	slog.SetDefault(Logger)

	applyDebugFlags(*optDebug)

	var mips float64
	if *optMips != "" {
		var err error
		mips, err = strconv.ParseFloat(*optMips, 64)
		if err != nil {
			Logger.Error("invalid --mips value", "value", *optMips, "error", err)
			os.Exit(-1)
		}
	}

	bios, err := os.ReadFile(*optBios)
	if err != nil {
		Logger.Error("can't read BIOS image", "path", *optBios, "error", err)
		os.Exit(-1)
	}

	masterChannel := make(chan core.Event, 4)
	vm := core.New(bios, masterChannel)

	host := &hostops.Host{
		Clock: wallClock{},
		Putc:  func(b byte) { os.Stdout.Write([]byte{b}) },
	}

	if *optFloppy != "" {
		d, err := openDisk(*optFloppy, !*optHDBoot)
		if err != nil {
			Logger.Error("can't open floppy image", "path", *optFloppy, "error", err)
			os.Exit(-1)
		}
		host.Disks[0] = d
	}
	if *optHardDisk != "" {
		d, err := openDisk(*optHardDisk, *optHDBoot)
		if err != nil {
			Logger.Error("can't open hard disk image", "path", *optHardDisk, "error", err)
			os.Exit(-1)
		}
		host.Disks[1] = d
	}

	for n, addr := range optSerial {
		if *addr == "" {
			continue
		}
		b, err := telnet.Bind(*addr)
		if err != nil {
			Logger.Error("can't bind serial bridge", "port", n, "addr", *addr, "error", err)
			os.Exit(-1)
		}
		host.Serial[n] = b
	}

	if *optConfig != "" {
		if err := config.LoadConfigFile(*optConfig); err != nil {
			Logger.Error(err.Error())
			os.Exit(-1)
		}
		for port, bridge := range telnet.Bound {
			if port < 4 {
				host.Serial[port] = bridge
			}
		}
	}

	kb, err := newRawKeyboard()
	if err != nil {
		Logger.Error("can't set up keyboard", "error", err)
		os.Exit(1)
	}
	video := newTerminalVideo(kb.keys)

	mixer := audio.New(0x80)
	var speaker *speakerPlayer
	if !*optNoAudio {
		speaker, err = startSpeaker(mixer)
		if err != nil {
			Logger.Warn("audio unavailable, continuing silently", "error", err)
			speaker = nil
		}
	}

	vm.AttachHost(host, video, wallClock{}, mixer, nopFilter{})
	vm.SetMIPS(mips)

	go vm.Start()

	masterChannel <- core.Event{Kind: core.IPL, HDBoot: *optHDBoot}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	Logger.Info("Shutting down CPU")
	vm.Stop()
	Logger.Info("Shutting down serial bridges")
	telnet.StopAll()
	kb.Close()
	if speaker != nil {
		speaker.Close()
	}
	Logger.Info("pcxt stopped.")
}

// applyDebugFlags parses a comma-separated "module=mask[,module=mask...]"
// --debug argument and wires the resulting per-module masks into emu/cpu,
// emu/hostops, and emu/ports, exactly the surface SPEC_FULL.md §4.8
// describes.
func applyDebugFlags(arg string) {
	if arg == "" {
		return
	}
	debug.Init(os.Stderr)
	for _, f := range strings.Split(arg, ",") {
		module, maskStr, ok := strings.Cut(f, "=")
		if !ok {
			Logger.Warn("ignoring malformed --debug flag, want module=mask", "flag", f)
			continue
		}
		mask, err := strconv.ParseInt(maskStr, 0, 64)
		if err != nil {
			Logger.Warn("ignoring malformed --debug mask", "flag", f, "error", err)
			continue
		}
		switch strings.ToUpper(module) {
		case "CPU":
			cpu.SetDebugMask(int(mask))
		case "HOSTOPS":
			hostops.SetDebugMask(int(mask))
		case "PORTS":
			ports.SetDebugMask(int(mask))
		default:
			Logger.Warn("unknown --debug module", "module", module)
		}
	}
}
