// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// RmvbConv - RMVB 转 MP4 视频转换工具

package display

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// DefaultBarLength is the number of cells between the brackets
const DefaultBarLength = 30

// Bar renders progress events on a single terminal line
type Bar struct {
	out    io.Writer
	length int
	// columns is the terminal width, 0 if unknown
	columns int
	tty     bool

	mu      sync.Mutex
	lastLen int
}

// NewBar creates a bar writing to out. When out is a terminal the line is
// redrawn in place, otherwise every event is printed on its own line.
func NewBar(out io.Writer) *Bar {
	b := &Bar{out: out, length: DefaultBarLength}
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b.tty = true
		if cols, _, err := term.GetSize(int(f.Fd())); err == nil {
			b.columns = cols
		}
	}
	return b
}

// Update draws one event. Negative percentages print message alone.
func (b *Bar) Update(percent float64, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if percent < 0 {
		b.clear()
		fmt.Fprintln(b.out, message)
		return
	}

	line := Render(percent, message, b.length)
	if !b.tty {
		fmt.Fprintln(b.out, line)
		return
	}

	if b.columns > 0 && len(line) >= b.columns {
		line = line[:b.columns-1]
	}
	pad := ""
	if b.lastLen > len(line) {
		pad = strings.Repeat(" ", b.lastLen-len(line))
	}
	fmt.Fprint(b.out, "\r"+line+pad)
	b.lastLen = len(line)

	if percent >= 100 {
		fmt.Fprintln(b.out)
		b.lastLen = 0
	}
}

func (b *Bar) clear() {
	if b.tty && b.lastLen > 0 {
		fmt.Fprint(b.out, "\r"+strings.Repeat(" ", b.lastLen)+"\r")
	}
	b.lastLen = 0
}

// Render formats `[=====>    ] 50.5% message`
func Render(percent float64, message string, length int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	filled := int(float64(length) * percent / 100)
	var bar string
	if filled >= length {
		bar = strings.Repeat("=", length)
	} else {
		bar = strings.Repeat("=", filled) + ">" + strings.Repeat(" ", length-filled-1)
	}

	line := fmt.Sprintf("[%s] %.1f%%", bar, percent)
	if message != "" {
		line += " " + message
	}
	return line
}
