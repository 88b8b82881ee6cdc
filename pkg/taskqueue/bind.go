package taskqueue

import (
	"fmt"
	"reflect"
)

// Bind binds args to fn and returns a Task that invokes it, the Go
// analogue of functools.partial used to build a type-erased nullary
// task from a heterogeneous-signature callable (§9 "Dynamic callable
// with heterogeneous signatures"). fn must be a func value; if it
// returns a trailing error, that error becomes the Task's result,
// otherwise the Task always succeeds.
func Bind(fn interface{}, args ...interface{}) (Task, error) {
	fv := reflect.ValueOf(fn)
	if fv.Kind() != reflect.Func {
		return nil, fmt.Errorf("taskqueue: Bind: fn must be a function, got %T", fn)
	}
	ft := fv.Type()
	if ft.NumIn() != len(args) && !ft.IsVariadic() {
		return nil, fmt.Errorf("taskqueue: Bind: %v expects %d arguments, got %d", ft, ft.NumIn(), len(args))
	}

	in := make([]reflect.Value, len(args))
	for i, a := range args {
		av := reflect.ValueOf(a)
		if !av.IsValid() {
			var paramType reflect.Type
			if i < ft.NumIn() {
				paramType = ft.In(i)
			} else {
				paramType = ft.In(ft.NumIn() - 1).Elem()
			}
			av = reflect.Zero(paramType)
		}
		in[i] = av
	}

	return func() error {
		out := fv.Call(in)
		if len(out) == 0 {
			return nil
		}
		last := out[len(out)-1]
		if last.Type().Implements(errorType) && !last.IsNil() {
			return last.Interface().(error)
		}
		return nil
	}, nil
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()
