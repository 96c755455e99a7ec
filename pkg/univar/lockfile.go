// NFS-safe lockfile acquisition, grounded on fish's acquire_lock_file in
// original_source/fishd.cpp: create a unique file, then hard-link it onto
// the lockfile path. link(2) is atomic even over NFS, unlike O_EXCL|O_CREAT
// on some old NFS servers, so this is the one case in this codebase that
// goes out of its way not to just use os.OpenFile(O_EXCL).
package univar

import (
	"fmt"
	"os"
	"time"
)

const lockPollInterval = 10 * time.Millisecond

// Lock is a held lockfile; release it with Release.
type Lock struct {
	path string
}

// AcquireLock polls for up to timeout trying to hard-link a fresh unique
// file onto path+".lock". If it is still held after timeout and force is
// true, the stale lock is removed and one final attempt is made.
func AcquireLock(path string, timeout time.Duration, force bool) (*Lock, error) {
	lockPath := path + ".lock"
	linkPath := fmt.Sprintf("%s.%d.%d", lockPath, os.Getpid(), time.Now().UnixNano())

	os.Remove(linkPath)
	f, err := os.OpenFile(linkPath, os.O_CREATE|os.O_RDONLY, 0600)
	if err != nil {
		return nil, err
	}
	f.Close()
	defer os.Remove(linkPath)

	deadline := time.Now().Add(timeout)
	forcedOnce := false
	for {
		if err := os.Link(linkPath, lockPath); err == nil {
			return &Lock{path: lockPath}, nil
		}
		if st, statErr := os.Stat(linkPath); statErr == nil {
			if nlink := hardLinkCount(st); nlink == 2 {
				return &Lock{path: lockPath}, nil
			}
		}
		if time.Now().After(deadline) {
			if force && !forcedOnce {
				os.Remove(lockPath)
				forcedOnce = true
				continue
			}
			return nil, fmt.Errorf("univar: timed out acquiring lock %s", lockPath)
		}
		time.Sleep(lockPollInterval)
	}
}

// Release unlinks the lockfile.
func (l *Lock) Release() error {
	return os.Remove(l.path)
}
