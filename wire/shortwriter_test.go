// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import "io"

// shortWriter accepts writes until limit bytes have been stored.  A write that
// does not fit is rejected whole with io.ErrShortWrite so encoders can be
// failed at every field boundary.
type shortWriter struct {
	limit   int
	written int
}

func (w *shortWriter) Write(p []byte) (int, error) {
	if w.written+len(p) > w.limit {
		return 0, io.ErrShortWrite
	}
	w.written += len(p)
	return len(p), nil
}

// newShortWriter returns a writer that fails once more than limit bytes have
// been written.
func newShortWriter(limit int) io.Writer {
	return &shortWriter{limit: limit}
}
