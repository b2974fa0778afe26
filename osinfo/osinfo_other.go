//go:build !windows

package osinfo

func foregroundWindow() (window, error) {
	return window{}, ErrUnsupported
}

func idleMillis() (uint32, error) {
	return 0, ErrUnsupported
}
