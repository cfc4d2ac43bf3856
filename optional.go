package arkive

// Optional holds a value that may or may not have been set.
//
// Archive metadata distinguishes "not supported / not set" from an explicit
// zero (uid 0 is root, mode 0 is a real mode), so attributes are never
// represented by a bare value with a magic sentinel.
type Optional[T any] struct {
	value T
	set   bool
}

// Some returns an Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, set: true}
}

// None returns an unset Optional.
func None[T any]() Optional[T] {
	return Optional[T]{}
}

// Get returns the value and whether it was set.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.set
}

// IsSet reports whether a value was set.
func (o Optional[T]) IsSet() bool {
	return o.set
}

// OrElse returns the value if set, otherwise fallback.
func (o Optional[T]) OrElse(fallback T) T {
	if o.set {
		return o.value
	}
	return fallback
}

// Or returns o if it is set, otherwise other.
func (o Optional[T]) Or(other Optional[T]) Optional[T] {
	if o.set {
		return o
	}
	return other
}
