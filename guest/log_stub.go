//go:build !wasip1

package guest

import "os"

// hostLogSink writes the wire record to stderr outside wasip1.
func hostLogSink(data []byte) {
	_, _ = os.Stderr.Write(append(data, '\n'))
}
