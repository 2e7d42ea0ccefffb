// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwsim

import (
	"reflect"
	"strings"

	"github.com/pkg/errors"
)

// Updater is the interface that custom components built using reflection must
// implement. See MakePart.
type Updater interface {
	Update(c *Circuit)
}

type pinField struct {
	index int
	pin   string
	bus   int // bus size, 0 for a single pin
	input bool
}

// MakePart wraps an Updater into a custom component. Input/output pins are
// identified by field tags.
//
// The field tag must be `hw:"in"` or `hw:"out"` to identify input and output
// pins. By default, the pin name is the field name in lowercase. A specific
// pin name can be forced by adding it in the tag: `hw:"in,pin_name"`.
//
// Pin fields must be of type int, and buses arrays of int. When the part is
// mounted, a new value of the underlying struct type is created and its pin
// fields are set to the pin numbers assigned by the socket.
//
// MakePart panics if t is not a struct or pointer to struct, or if a tagged
// field has an unsupported type or tag.
func MakePart(t Updater) *PartSpec {
	typ := reflect.TypeOf(t)
	if typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	if k := typ.Kind(); k != reflect.Struct {
		panic(errors.Errorf("unsupported type %q for %q", k, typ.Name()))
	}
	if !reflect.PointerTo(typ).Implements(reflect.TypeOf((*Updater)(nil)).Elem()) {
		panic(errors.Errorf("*%s does not implement Updater", typ.Name()))
	}

	sp := &PartSpec{Name: typ.Name()}
	var fields []pinField
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		tag, ok := f.Tag.Lookup("hw")
		if !ok {
			continue
		}
		pf := pinField{index: i, pin: strings.ToLower(f.Name)}
		dir, name, _ := strings.Cut(tag, ",")
		if name != "" {
			pf.pin = name
		}
		switch dir {
		case "in":
			pf.input = true
		case "out":
		default:
			panic(errors.Errorf("unsupported tag %q for field %q in %q", tag, f.Name, typ.Name()))
		}

		var pins []string
		switch ft := f.Type; {
		case ft.Kind() == reflect.Array && ft.Elem().Kind() == reflect.Int:
			pf.bus = ft.Len()
			for n := 0; n < pf.bus; n++ {
				pins = append(pins, BusPinName(pf.pin, n))
			}
		case ft.Kind() == reflect.Int:
			pins = []string{pf.pin}
		default:
			panic(errors.Errorf("unsupported type %q for field %q in %q", ft.Kind(), f.Name, typ.Name()))
		}
		if pf.input {
			sp.Inputs = append(sp.Inputs, pins...)
		} else {
			sp.Outputs = append(sp.Outputs, pins...)
		}
		fields = append(fields, pf)
	}

	sp.Mount = func(s *Socket) []Component {
		v := reflect.New(typ)
		e := v.Elem()
		for _, pf := range fields {
			fv := e.Field(pf.index)
			if pf.bus == 0 {
				fv.SetInt(int64(s.Pin(pf.pin)))
				continue
			}
			for n := 0; n < pf.bus; n++ {
				fv.Index(n).SetInt(int64(s.Pin(BusPinName(pf.pin, n))))
			}
		}
		return []Component{v.Interface().(Updater).Update}
	}
	return sp
}
