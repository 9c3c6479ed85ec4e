// Copyright (c) 2016 Caleb Spare
// Copyright (c) 2022 Alexey Ivanov
//
// MIT License
//
// Permission is hereby granted, free of charge, to any person obtaining
// a copy of this software and associated documentation files (the
// "Software"), to deal in the Software without restriction, including
// without limitation the rights to use, copy, modify, merge, publish,
// distribute, sublicense, and/or sell copies of the Software, and to
// permit persons to whom the Software is furnished to do so, subject to
// the following conditions:
//
// The above copyright notice and this permission notice shall be
// included in all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
// EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF
// MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
// NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE
// LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER IN AN ACTION
// OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN CONNECTION
// WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.

package rbtz

import (
	"encoding/binary"
	"errors"
)

func (t *Table) ByteSize() int {
	return 8 + len(t.level0)*4 + 8 + len(t.level1)*4
}

func (t *Table) Serialize() ([]byte, error) {
	buf := make([]byte, t.ByteSize())
	offset := 0

	putLevel := func(level []uint32) {
		binary.LittleEndian.PutUint64(buf[offset:], uint64(len(level)))
		offset += 8
		for _, v := range level {
			binary.LittleEndian.PutUint32(buf[offset:], v)
			offset += 4
		}
	}
	putLevel(t.level0)
	putLevel(t.level1)

	return buf, nil
}

func readLevel(data []byte, name string) ([]uint32, []byte, error) {
	if len(data) < 8 {
		return nil, nil, errors.New("mph: data too short for " + name + " length")
	}
	n := binary.LittleEndian.Uint64(data)
	data = data[8:]
	if n == 0 || n&(n-1) != 0 {
		return nil, nil, errors.New("mph: " + name + " length is not a power of two")
	}
	if uint64(len(data))/4 < n {
		return nil, nil, errors.New("mph: data too short for " + name + " content")
	}
	level := make([]uint32, n)
	for i := range level {
		level[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	return level, data[n*4:], nil
}

func Deserialize(data []byte, t *Table) error {
	level0, rest, err := readLevel(data, "level0")
	if err != nil {
		return err
	}
	level1, _, err := readLevel(rest, "level1")
	if err != nil {
		return err
	}
	t.level0, t.level0Mask = level0, len(level0)-1
	t.level1, t.level1Mask = level1, len(level1)-1
	return nil
}
