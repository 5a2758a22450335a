package runtime

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Wrap maps a Go value onto the value model. Values that already expose a
// capability pass through unchanged; containers are wrapped lazily so their
// elements are converted on access.
func Wrap(obj any) (Value, error) {
	if obj == nil {
		return Missing, nil
	}
	switch v := obj.(type) {
	case Scalar, Number, Boolean, Hash, Sequence, Node, Method, *MacroValue:
		return v, nil
	case missingValue:
		return v, nil
	case string:
		return StringValue{Val: v}, nil
	case bool:
		return Bool(v), nil
	case int:
		return NumberValue{Val: float64(v)}, nil
	case int64:
		return NumberValue{Val: float64(v)}, nil
	case float64:
		return NumberValue{Val: v}, nil
	}
	return wrapReflect(reflect.ValueOf(obj))
}

// MustWrap is Wrap for values known to be representable; it panics otherwise.
func MustWrap(obj any) Value {
	v, err := Wrap(obj)
	if err != nil {
		panic(err)
	}
	return v
}

func wrapReflect(rv reflect.Value) (Value, error) {
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return Missing, nil
		}
		rv = rv.Elem()
	}
	if rv.CanInterface() {
		switch rv.Interface().(type) {
		case Scalar, Number, Boolean, Hash, Sequence, Node, Method:
			return rv.Interface(), nil
		}
	}
	switch rv.Kind() {
	case reflect.String:
		return StringValue{Val: rv.String()}, nil
	case reflect.Bool:
		return Bool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return NumberValue{Val: float64(rv.Int())}, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return NumberValue{Val: float64(rv.Uint())}, nil
	case reflect.Float32, reflect.Float64:
		return NumberValue{Val: rv.Float()}, nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("wrap: map key type %s is not a string", rv.Type().Key())
		}
		return mapHash{rv: rv}, nil
	case reflect.Slice, reflect.Array:
		return sliceSequence{rv: rv}, nil
	case reflect.Struct:
		return structHash{rv: rv}, nil
	case reflect.Func:
		return funcMethod{rv: rv}, nil
	}
	return nil, fmt.Errorf("wrap: unsupported Go type %s", rv.Type())
}

// Unwrap maps a template value back to a plain Go value for host calls.
func Unwrap(v Value) any {
	switch val := v.(type) {
	case nil, missingValue:
		return nil
	case StringValue:
		return val.Val
	case NumberValue:
		return val.Val
	case BoolValue:
		return val.Val
	case mapHash:
		return val.rv.Interface()
	case sliceSequence:
		return val.rv.Interface()
	case structHash:
		return val.rv.Interface()
	case funcMethod:
		return val.rv.Interface()
	case *Namespace, *Element, *MacroValue:
		return val
	case Sequence:
		size, err := val.Size()
		if err != nil {
			return val
		}
		out := make([]any, 0, size)
		for i := 0; i < size; i++ {
			item, _ := val.At(i)
			out = append(out, Unwrap(item))
		}
		return out
	case HashEx:
		keys, err := val.Keys()
		if err != nil {
			return val
		}
		out := make(map[string]any, len(keys))
		for _, k := range keys {
			item, _ := val.Get(k)
			out[k] = Unwrap(item)
		}
		return out
	}
	return v
}

type mapHash struct {
	rv reflect.Value
}

func (h mapHash) Get(key string) (Value, error) {
	item := h.rv.MapIndex(reflect.ValueOf(key).Convert(h.rv.Type().Key()))
	if !item.IsValid() {
		return nil, nil
	}
	return wrapReflect(item)
}

func (h mapHash) IsEmpty() (bool, error) { return h.rv.Len() == 0, nil }

func (h mapHash) Keys() ([]string, error) {
	keys := make([]string, 0, h.rv.Len())
	for _, k := range h.rv.MapKeys() {
		keys = append(keys, k.String())
	}
	sort.Strings(keys)
	return keys, nil
}

type sliceSequence struct {
	rv reflect.Value
}

func (s sliceSequence) At(idx int) (Value, error) {
	if idx < 0 || idx >= s.rv.Len() {
		return nil, nil
	}
	return wrapReflect(s.rv.Index(idx))
}

func (s sliceSequence) Size() (int, error) { return s.rv.Len(), nil }

// structHash exposes exported struct fields, renamed by an `ftl:"name"` tag.
type structHash struct {
	rv reflect.Value
}

func (h structHash) field(key string) (reflect.Value, bool) {
	t := h.rv.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		if fieldName(f) == key {
			return h.rv.Field(i), true
		}
	}
	return reflect.Value{}, false
}

func fieldName(f reflect.StructField) string {
	tag := f.Tag.Get("ftl")
	if tag == "" {
		return f.Name
	}
	name, _, _ := strings.Cut(tag, ",")
	return name
}

func (h structHash) Get(key string) (Value, error) {
	f, ok := h.field(key)
	if !ok {
		return nil, nil
	}
	return wrapReflect(f)
}

func (h structHash) IsEmpty() (bool, error) {
	keys, _ := h.Keys()
	return len(keys) == 0, nil
}

func (h structHash) Keys() ([]string, error) {
	t := h.rv.Type()
	keys := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() || f.Tag.Get("ftl") == "-" {
			continue
		}
		keys = append(keys, fieldName(f))
	}
	return keys, nil
}

// funcMethod calls a Go function with unwrapped arguments. A trailing error
// result is returned as the call error.
type funcMethod struct {
	rv reflect.Value
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

func (m funcMethod) Exec(args []Value) (Value, error) {
	ft := m.rv.Type()
	if !ft.IsVariadic() && len(args) != ft.NumIn() {
		return nil, fmt.Errorf("method expects %d arguments, got %d", ft.NumIn(), len(args))
	}
	if ft.IsVariadic() && len(args) < ft.NumIn()-1 {
		return nil, fmt.Errorf("method expects at least %d arguments, got %d", ft.NumIn()-1, len(args))
	}
	in := make([]reflect.Value, 0, len(args))
	for i, arg := range args {
		var want reflect.Type
		if ft.IsVariadic() && i >= ft.NumIn()-1 {
			want = ft.In(ft.NumIn() - 1).Elem()
		} else {
			want = ft.In(i)
		}
		raw := Unwrap(arg)
		if raw == nil {
			in = append(in, reflect.Zero(want))
			continue
		}
		rv := reflect.ValueOf(raw)
		if !rv.Type().AssignableTo(want) {
			if !rv.Type().ConvertibleTo(want) {
				return nil, fmt.Errorf("argument %d: cannot use %s as %s", i+1, rv.Type(), want)
			}
			rv = rv.Convert(want)
		}
		in = append(in, rv)
	}
	out := m.rv.Call(in)
	if n := len(out); n > 0 && ft.Out(n-1) == errorType {
		if errVal := out[n-1]; !errVal.IsNil() {
			return nil, errVal.Interface().(error)
		}
		out = out[:n-1]
	}
	if len(out) == 0 {
		return Missing, nil
	}
	return wrapReflect(out[0])
}
