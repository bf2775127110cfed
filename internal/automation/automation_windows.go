//go:build windows

package automation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32                   = windows.NewLazySystemDLL("user32.dll")
	getForegroundWindow      = user32.NewProc("GetForegroundWindow")
	setForegroundWindow      = user32.NewProc("SetForegroundWindow")
	isWindow                 = user32.NewProc("IsWindow")
	getWindowThreadProcessID = user32.NewProc("GetWindowThreadProcessId")
	getGUIThreadInfo         = user32.NewProc("GetGUIThreadInfo")
	postMessageW             = user32.NewProc("PostMessageW")
	sendInput                = user32.NewProc("SendInput")
	mapVirtualKeyW           = user32.NewProc("MapVirtualKeyW")
)

const (
	inputKeyboard  = 1
	keyeventfKeyup = 0x0002
	mapvkVkToVsc   = 0
	vkControl      = 0x11
	vkV            = 0x56
	wmPaste        = 0x0302
)

type keyboardInput struct {
	wVk         uint16
	wScan       uint16
	dwFlags     uint32
	time        uint32
	dwExtraInfo uintptr
}

type input struct {
	inputType uint32
	ki        keyboardInput
	padding   [8]byte // pads to sizeof(INPUT)
}

type rect struct{ left, top, right, bottom int32 }

type guiThreadInfo struct {
	cbSize        uint32
	flags         uint32
	hwndActive    uintptr
	hwndFocus     uintptr
	hwndCapture   uintptr
	hwndMenuOwner uintptr
	hwndMoveSize  uintptr
	hwndCaret     uintptr
	rcCaret       rect
}

type win32 struct{}

// New returns the Windows implementation. Window handles, formatted as hex,
// serve as application identifiers.
func New() Automation { return win32{} }

func (win32) Name() string { return "Windows user32" }

func (win32) ForegroundApp(context.Context) (string, error) {
	hwnd, _, _ := getForegroundWindow.Call()
	if hwnd == 0 {
		return "", errors.New("no foreground window")
	}
	return fmt.Sprintf("%#x", hwnd), nil
}

func (win32) Activate(_ context.Context, app string) error {
	hwnd, err := parseHandle(app)
	if err != nil {
		return err
	}
	if ok, _, _ := isWindow.Call(hwnd); ok == 0 {
		return fmt.Errorf("window %s no longer exists", app)
	}
	if ok, _, err := setForegroundWindow.Call(hwnd); ok == 0 {
		return fmt.Errorf("SetForegroundWindow failed: %w", err)
	}
	return nil
}

// SendPaste simulates Ctrl+V with scan codes for better compatibility with
// elevated applications.
func (win32) SendPaste(context.Context) error {
	ctrlScan, _, _ := mapVirtualKeyW.Call(vkControl, mapvkVkToVsc)
	vScan, _, _ := mapVirtualKeyW.Call(vkV, mapvkVkToVsc)

	key := func(vk, scan uintptr, flags uint32) input {
		return input{
			inputType: inputKeyboard,
			ki:        keyboardInput{wVk: uint16(vk), wScan: uint16(scan), dwFlags: flags},
		}
	}
	inputs := []input{
		key(vkControl, ctrlScan, 0),
		key(vkV, vScan, 0),
		key(vkV, vScan, keyeventfKeyup),
		key(vkControl, ctrlScan, keyeventfKeyup),
	}

	ret, _, err := sendInput.Call(
		uintptr(len(inputs)),
		uintptr(unsafe.Pointer(&inputs[0])),
		unsafe.Sizeof(inputs[0]),
	)
	if ret == 0 {
		return fmt.Errorf("SendInput failed: %w", err)
	}
	return nil
}

// SendPasteToFrontmost posts WM_PASTE to the focused control of the
// foreground window's thread, bypassing the keyboard input queue.
func (win32) SendPasteToFrontmost(context.Context) error {
	hwnd, _, _ := getForegroundWindow.Call()
	if hwnd == 0 {
		return errors.New("no foreground window")
	}
	tid, _, _ := getWindowThreadProcessID.Call(hwnd, 0)

	target := hwnd
	info := guiThreadInfo{}
	info.cbSize = uint32(unsafe.Sizeof(info))
	if ok, _, _ := getGUIThreadInfo.Call(tid, uintptr(unsafe.Pointer(&info))); ok != 0 && info.hwndFocus != 0 {
		target = info.hwndFocus
	}

	if ok, _, err := postMessageW.Call(target, wmPaste, 0, 0); ok == 0 {
		return fmt.Errorf("PostMessage(WM_PASTE) failed: %w", err)
	}
	return nil
}

func (win32) InvokeMenuPaste(context.Context, []MenuPath) error {
	return fmt.Errorf("%w: menu paste by label", ErrUnsupported)
}

func parseHandle(s string) (uintptr, error) {
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil || v == 0 {
		return 0, fmt.Errorf("invalid window handle %q", s)
	}
	return uintptr(v), nil
}
