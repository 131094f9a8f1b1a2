package mux

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// progressBlock is one report written by ffmpeg to its progress pipe.
type progressBlock struct {
	OutTimeUS int64
	TotalSize int64
	End       bool
}

// readProgress parses ffmpeg "-progress" key=value output and calls fn at the
// end of every block (the "progress=" line). It returns when r is exhausted.
func readProgress(r io.Reader, fn func(progressBlock)) error {
	var cur progressBlock
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		key, val, ok := strings.Cut(strings.TrimSpace(scanner.Text()), "=")
		if !ok {
			continue
		}
		switch key {
		case "out_time_us":
			if us, err := strconv.ParseInt(val, 10, 64); err == nil {
				cur.OutTimeUS = us
			}
		case "total_size":
			if n, err := strconv.ParseInt(val, 10, 64); err == nil {
				cur.TotalSize = n
			}
		case "progress":
			cur.End = val == "end"
			fn(cur)
			cur = progressBlock{}
		}
	}
	return scanner.Err()
}
