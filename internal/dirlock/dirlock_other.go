//go:build !linux && !darwin

package dirlock

// Lock is a no-op on platforms without flock.
type Lock struct{}

func Acquire(_ string) (*Lock, error) { return &Lock{}, nil }

func (l *Lock) Release() error { return nil }
