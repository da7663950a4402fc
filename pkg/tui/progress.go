// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tui

import (
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"tailscale.com/tstime/rate"
)

// Transfer tracks bytes moving through a reader and summarizes the rate.
type Transfer struct {
	total int64 // -1 if unknown
	sent  atomic.Int64
	rate  rate.Value
	start time.Time
}

// NewTransfer returns a Transfer expecting total bytes. A negative total
// means the size is unknown.
func NewTransfer(total int64) *Transfer {
	if total < 0 {
		total = -1
	}
	return &Transfer{
		total: total,
		rate:  rate.Value{HalfLife: 250 * time.Millisecond},
		start: time.Now(),
	}
}

// Reader wraps r so reads are counted. When the total is known the
// returned reader also reports the bytes remaining through Len, so
// consumers that size their output from Len keep working.
func (t *Transfer) Reader(r io.Reader) io.Reader {
	cr := &countingReader{r: r, t: t}
	if t.total >= 0 {
		return &sizedReader{cr}
	}
	return cr
}

func (t *Transfer) Sent() int64 { return t.sent.Load() }

func (t *Transfer) add(n int) {
	if n <= 0 {
		return
	}
	t.sent.Add(int64(n))
	t.rate.Add(float64(n))
}

// Detail describes the transfer in progress, for example
// "42% 1.00 MB/2.38 MB @ 512.00 KB/s ETA 3s".
func (t *Transfer) Detail() string {
	return FormatTransfer(float64(t.sent.Load()), float64(t.total), t.rate.Rate())
}

// Summary describes a finished transfer by its size and average rate.
func (t *Transfer) Summary() string {
	n := float64(t.sent.Load())
	if n <= 0 {
		return ""
	}
	s := FormatBytes(n)
	if secs := time.Since(t.start).Seconds(); secs > 0 {
		s = fmt.Sprintf("%s @ %s/s", s, FormatBytes(n/secs))
	}
	return s
}

type countingReader struct {
	r io.Reader
	t *Transfer
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.t.add(n)
	return n, err
}

type sizedReader struct {
	*countingReader
}

func (s *sizedReader) Len() int {
	left := s.t.total - s.t.sent.Load()
	if left < 0 {
		return 0
	}
	return int(left)
}

// FormatTransfer renders sent bytes out of total (<= 0 if unknown) at the
// given bytes-per-second rate.
func FormatTransfer(sent, total, bps float64) string {
	sent = max(sent, 0)
	if total > 0 {
		sent = min(sent, total)
	}
	var b strings.Builder
	if total > 0 {
		fmt.Fprintf(&b, "%3.0f%% %s/%s", sent/total*100, FormatBytes(sent), FormatBytes(total))
	} else {
		b.WriteString(FormatBytes(sent))
	}
	if bps > 0 {
		fmt.Fprintf(&b, " @ %s/s", FormatBytes(bps))
		if total > 0 {
			eta := time.Duration((total-sent)/bps*float64(time.Second) + 0.5)
			fmt.Fprintf(&b, " ETA %s", FormatETA(eta))
		}
	}
	return strings.TrimSpace(b.String())
}

// FormatETA renders d at second resolution: "45s", "3m07s", "2h05m".
func FormatETA(d time.Duration) string {
	if d < time.Second {
		return "0s"
	}
	secs := int64(d.Seconds() + 0.5)
	h, m, s := secs/3600, secs/60%60, secs%60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh%02dm", h, m)
	case m > 0:
		return fmt.Sprintf("%dm%02ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

// FormatBytes renders n using binary units.
func FormatBytes(n float64) string {
	const unit = 1024
	if n <= unit {
		return fmt.Sprintf("%.2f B", n)
	}
	i := -1
	for n > unit {
		i++
		n /= unit
	}
	return fmt.Sprintf("%.2f %cB", n, "KMGTPE"[i])
}
