// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

//go:build unix

package ingest

import (
	"errors"

	"golang.org/x/sys/unix"
)

// isBusy reports whether err is a transient "file in use" condition.
func isBusy(err error) bool {
	return errors.Is(err, unix.EBUSY) ||
		errors.Is(err, unix.ETXTBSY) ||
		errors.Is(err, unix.EAGAIN)
}
