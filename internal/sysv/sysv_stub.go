//go:build !linux

package sysv

// Supported reports whether the host exposes System V IPC.
func Supported() bool { return false }

func ShmCreate(key, size int) (int, error) { return 0, ErrUnsupportedPlatform }

func ShmCreatePrivate(size int) (int, error) { return 0, ErrUnsupportedPlatform }

func ShmLookup(key int) (int, error) { return 0, ErrUnsupportedPlatform }

func ShmAttach(id int) ([]byte, error) { return nil, ErrUnsupportedPlatform }

func ShmDetach(data []byte) error { return ErrUnsupportedPlatform }

func ShmRemove(id int) error { return ErrUnsupportedPlatform }

func ShmSize(id int) (uint64, error) { return 0, ErrUnsupportedPlatform }

func SemCreateExclusive(key int) (int, error) { return 0, ErrUnsupportedPlatform }

func SemOpen(key int) (int, error) { return 0, ErrUnsupportedPlatform }

func SemOp(semid int, delta int16) error { return ErrUnsupportedPlatform }

func SemGetValue(semid int) (int, error) { return 0, ErrUnsupportedPlatform }

func SemSetValue(semid, value int) error { return ErrUnsupportedPlatform }

func SemRemove(semid int) error { return ErrUnsupportedPlatform }
