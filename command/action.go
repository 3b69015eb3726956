package command

import (
	"fmt"

	"rotary-phone-lamps/lamp"
)

type Kind string

const (
	TurnOn    Kind = "turn_on"
	TurnOff   Kind = "turn_off"
	Toggle    Kind = "toggle"
	AllOn     Kind = "all_on"
	AllOff    Kind = "all_off"
	RandomOn  Kind = "random_on"
	RandomOff Kind = "random_off"
	Custom    Kind = "custom"
)

func (k Kind) IsValid() bool {
	switch k {
	case TurnOn, TurnOff, Toggle, AllOn, AllOff, RandomOn, RandomOff, Custom:
		return true
	}
	return false
}

// NeedsLamp reports whether the kind addresses a lamp index.
func (k Kind) NeedsLamp() bool {
	return k == TurnOn || k == TurnOff || k == Toggle
}

// Action describes one lamp operation. Lamp is only read for kinds that
// address a lamp, Custom only for Custom.
type Action struct {
	Kind   Kind
	Lamp   int
	Custom string
}

func (a Action) String() string {
	switch {
	case a.Kind.NeedsLamp():
		return fmt.Sprintf("%s(%d)", a.Kind, a.Lamp)
	case a.Kind == Custom:
		return fmt.Sprintf("%s(%s)", a.Kind, a.Custom)
	}
	return string(a.Kind)
}

// CustomFunc is a named composite operation.
type CustomFunc func(lamps lamp.Interface)

// BuiltinCustoms are the custom actions every configuration may name.
func BuiltinCustoms() map[string]CustomFunc {
	return map[string]CustomFunc{
		// party switches lamps on one by one in random order
		"party": func(lamps lamp.Interface) {
			for range lamps.States() {
				lamps.RandomOn()
			}
		},
	}
}

// Apply runs a against lamps.
func Apply(lamps lamp.Interface, customs map[string]CustomFunc, a Action) error {
	switch a.Kind {
	case TurnOn:
		lamps.TurnOn(a.Lamp)
	case TurnOff:
		lamps.TurnOff(a.Lamp)
	case Toggle:
		lamps.Toggle(a.Lamp)
	case AllOn:
		lamps.AllOn()
	case AllOff:
		lamps.AllOff()
	case RandomOn:
		lamps.RandomOn()
	case RandomOff:
		lamps.RandomOff()
	case Custom:
		fn, ok := customs[a.Custom]
		if !ok {
			return fmt.Errorf("unknown custom action %q", a.Custom)
		}
		fn(lamps)
	default:
		return fmt.Errorf("unknown action kind %q", a.Kind)
	}
	return nil
}
