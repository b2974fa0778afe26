//go:build windows

package osinfo

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32                       = windows.NewLazySystemDLL("user32.dll")
	kernel32                     = windows.NewLazySystemDLL("kernel32.dll")
	procGetForegroundWindow      = user32.NewProc("GetForegroundWindow")
	procGetWindowThreadProcessID = user32.NewProc("GetWindowThreadProcessId")
	procGetWindowTextW           = user32.NewProc("GetWindowTextW")
	procGetLastInputInfo         = user32.NewProc("GetLastInputInfo")
	procGetTickCount             = kernel32.NewProc("GetTickCount")
)

type lastInputInfo struct {
	cbSize uint32
	dwTime uint32
}

func foregroundWindow() (window, error) {
	hwnd, _, _ := procGetForegroundWindow.Call()
	if hwnd == 0 {
		return window{}, nil
	}
	var pid uint32
	_, _, _ = procGetWindowThreadProcessID.Call(hwnd, uintptr(unsafe.Pointer(&pid)))

	buf := make([]uint16, 512)
	_, _, _ = procGetWindowTextW.Call(hwnd, uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	return window{
		handle: hwnd,
		pid:    int32(pid),
		title:  windows.UTF16ToString(buf),
	}, nil
}

// idleMillis is the tick delta since the last keyboard or mouse input.
func idleMillis() (uint32, error) {
	info := lastInputInfo{cbSize: uint32(unsafe.Sizeof(lastInputInfo{}))}
	r1, _, e1 := procGetLastInputInfo.Call(uintptr(unsafe.Pointer(&info)))
	if r1 == 0 {
		return 0, e1
	}
	now, _, _ := procGetTickCount.Call()
	// Both counters wrap after ~49 days; uint32 subtraction handles it.
	return uint32(now) - info.dwTime, nil
}
