package builder

import (
	"github.com/kay-lambdadelta/multiemu-sub000/errors"
	"github.com/kay-lambdadelta/multiemu-sub000/rational"
	"github.com/kay-lambdadelta/multiemu-sub000/registry"
)

// InsertTask registers a task at the stated exact frequency, invoked under
// a shared (read) borrow of the component (spec.md section 4.4,
// "insert_task(name, frequency, callback)"). Go methods cannot carry their
// own type parameters, so this is a package-level generic function rather
// than a ComponentBuilder method, mirroring registry.Interact.
func InsertTask[C any](cb *ComponentBuilder, name string, frequency rational.Rational, callback func(c C, slice int64)) error {
	return insertTask(cb, name, frequency, func(fn func(C)) bool {
		return registry.Interact(cb.b.reg, cb.path, fn)
	}, callback)
}

// InsertTaskMut is the exclusive-borrow counterpart of InsertTask
// (spec.md section 4.4, "insert_task_mut").
func InsertTaskMut[C any](cb *ComponentBuilder, name string, frequency rational.Rational, callback func(c C, slice int64)) error {
	return insertTask(cb, name, frequency, func(fn func(C)) bool {
		return registry.InteractMut(cb.b.reg, cb.path, fn)
	}, callback)
}

func insertTask[C any](cb *ComponentBuilder, name string, frequency rational.Rational, borrow func(func(C)) bool, callback func(c C, slice int64)) error {
	if cb.b.sealed {
		return errors.Errorf(errors.InvalidConfig, "builder is sealed")
	}
	if frequency.Sign() <= 0 {
		return errors.Errorf(errors.InvalidConfig, "task %s/%s must have a positive frequency", cb.path, name)
	}

	period := frequency.Reciprocal()
	cb.b.sched.AddTask(cb.path, name, period, func(slice int64) {
		borrow(func(c C) { callback(c, slice) })
	})
	return nil
}
