// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

//go:build !unix && !windows

package ingest

func isBusy(error) bool { return false }
