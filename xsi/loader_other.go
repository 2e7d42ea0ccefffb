// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

//go:build !((linux && !android) || darwin || freebsd)

package xsi

import (
	"runtime"

	"github.com/pkg/errors"
)

func loadLibrary(design, kernel string) (*library, error) {
	return nil, errors.Errorf("XSI is not supported on %s", runtime.GOOS)
}

func (l *library) unload() error { return nil }
