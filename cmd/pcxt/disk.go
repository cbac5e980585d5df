/*
 * pcxt - reference host, file-backed disk image.
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

import "os"

const sectorSize = 512

// fileDisk backs a floppy or hard disk image with a plain *os.File,
// matching the original host's vxt_drive_t: seek-then-read/write on a flat
// image, no partition or filesystem awareness.
type fileDisk struct {
	f     *os.File
	boot  bool
	nSect uint32
}

// openDisk opens path read/write and reports its capacity in 512-byte
// sectors; boot marks this as the drive BIOS should load the boot sector
// from (spec.md §4.3/§6 --hdboot).
func openDisk(path string, boot bool) (*fileDisk, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &fileDisk{f: f, boot: boot, nSect: uint32(info.Size() / sectorSize)}, nil
}

func (d *fileDisk) Boot() bool       { return d.boot }
func (d *fileDisk) Sectors() uint32  { return d.nSect }

func (d *fileDisk) ReadSector(lba uint32, buf []byte) error {
	_, err := d.f.ReadAt(buf, int64(lba)*sectorSize)
	return err
}

func (d *fileDisk) WriteSector(lba uint32, buf []byte) error {
	_, err := d.f.WriteAt(buf, int64(lba)*sectorSize)
	return err
}

func (d *fileDisk) Close() error { return d.f.Close() }
