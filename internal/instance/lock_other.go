//go:build !unix && !windows

package instance

import "errors"

type fileLock struct{}

func acquireLock(path string) (*fileLock, error) {
	return nil, errors.New("instance locking is not supported on this platform")
}

func (l *fileLock) release() error {
	return nil
}
