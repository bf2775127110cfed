//go:build !darwin && !windows && !linux

package clip

import "errors"

func newNative() (Backend, error) {
	return nil, errors.New("no native clipboard on this platform")
}
