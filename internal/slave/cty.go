package slave

import (
	"fmt"

	"github.com/specialistvlad/cosimgo/internal/fmi"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// ValueFromCty converts a configuration value into a value of type t.
// Numbers given for an Integer must be whole and fit 32 bits.
func ValueFromCty(v cty.Value, t fmi.Type) (fmi.Value, error) {
	if v.IsNull() {
		return fmi.Value{}, fmt.Errorf("value is null")
	}
	if !v.IsWhollyKnown() {
		return fmi.Value{}, fmt.Errorf("value is not known")
	}

	var want cty.Type
	switch t {
	case fmi.Real, fmi.Integer:
		want = cty.Number
	case fmi.Boolean:
		want = cty.Bool
	default:
		want = cty.String
	}
	conv, err := convert.Convert(v, want)
	if err != nil {
		return fmi.Value{}, fmt.Errorf("cannot use %s as %s: %w", v.Type().FriendlyName(), t, err)
	}

	switch t {
	case fmi.Real:
		var f float64
		err = gocty.FromCtyValue(conv, &f)
		return fmi.RealValue(f), err
	case fmi.Integer:
		var i int32
		if err := gocty.FromCtyValue(conv, &i); err != nil {
			return fmi.Value{}, fmt.Errorf("cannot use %s as Integer: %w", conv.AsBigFloat().String(), err)
		}
		return fmi.IntegerValue(i), nil
	case fmi.Boolean:
		var b bool
		err = gocty.FromCtyValue(conv, &b)
		return fmi.BooleanValue(b), err
	default:
		var s string
		err = gocty.FromCtyValue(conv, &s)
		return fmi.StringValue(s), err
	}
}
