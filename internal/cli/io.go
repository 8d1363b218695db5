package cli

import (
	"fmt"
	"io"
)

// Write helpers that ignore I/O errors; a hook cannot do anything useful
// about a broken pipe anyway.

func fprintln(w io.Writer, a ...any) {
	_, _ = fmt.Fprintln(w, a...)
}

func fprintf(w io.Writer, format string, a ...any) {
	_, _ = fmt.Fprintf(w, format, a...)
}
