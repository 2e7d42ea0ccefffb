// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

//go:build (linux && !android) || darwin || freebsd

package xsi

import (
	"github.com/ebitengine/purego"
	"github.com/pkg/errors"
)

func loadLibrary(design, kernel string) (*library, error) {
	l := &library{}
	var err error
	if l.design, err = purego.Dlopen(design, purego.RTLD_NOW|purego.RTLD_LOCAL); err != nil {
		return nil, errors.Wrapf(err, "could not load XSI simulation shared library %s", design)
	}
	if l.kernel, err = purego.Dlopen(kernel, purego.RTLD_NOW|purego.RTLD_GLOBAL); err != nil {
		l.unload()
		return nil, errors.Wrapf(err, "could not load simulation kernel library %s", kernel)
	}

	syms := []struct {
		lib  uintptr
		name string
		fn   any
	}{
		{l.design, "xsi_open", &l.open},
		{l.kernel, "xsi_close", &l.close},
		{l.kernel, "xsi_run", &l.run},
		{l.kernel, "xsi_restart", &l.restart},
		{l.kernel, "xsi_get_value", &l.getValue},
		{l.kernel, "xsi_put_value", &l.putValue},
		{l.kernel, "xsi_get_status", &l.getStatus},
		{l.kernel, "xsi_get_error_info", &l.getErrorInfo},
		{l.kernel, "xsi_get_port_number", &l.getPortNumber},
		{l.kernel, "xsi_get_int", &l.getInt},
		{l.kernel, "xsi_get_int_port", &l.getIntPort},
		{l.kernel, "xsi_get_str_port", &l.getStrPort},
		{l.kernel, "xsi_trace_all", &l.traceAll},
	}
	for _, s := range syms {
		addr, err := purego.Dlsym(s.lib, s.name)
		if err != nil {
			l.unload()
			return nil, errors.Wrapf(err, "missing XSI function %s", s.name)
		}
		purego.RegisterFunc(s.fn, addr)
	}
	return l, nil
}

func (l *library) unload() error {
	var err error
	if l.design != 0 {
		err = purego.Dlclose(l.design)
		l.design = 0
	}
	if l.kernel != 0 {
		if kerr := purego.Dlclose(l.kernel); kerr != nil && err == nil {
			err = kerr
		}
		l.kernel = 0
	}
	return errors.Wrap(err, "unload XSI libraries")
}
