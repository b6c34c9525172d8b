package engine

import (
	"runtime"
	"strconv"
	"strings"
)

// goroutineID parses the current goroutine id out of the stack header
// ("goroutine N [running]:"). Debug-only; never on a hot path.
func goroutineID() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	s := strings.TrimPrefix(string(buf[:n]), "goroutine ")
	if i := strings.IndexByte(s, ' '); i > 0 {
		s = s[:i]
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return id
}
