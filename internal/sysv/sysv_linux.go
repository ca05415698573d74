//go:build linux

package sysv

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// Supported reports whether the host exposes System V IPC.
func Supported() bool { return true }

// ShmCreate requests a new-or-existing segment of size bytes for key.
func ShmCreate(key, size int) (int, error) {
	return unix.SysvShmGet(key, size, unix.IPC_CREAT|ipcModeOwnerOnly)
}

// ShmCreatePrivate allocates an anonymous throwaway segment, used by the
// facility health probe.
func ShmCreatePrivate(size int) (int, error) {
	return unix.SysvShmGet(unix.IPC_PRIVATE, size, unix.IPC_CREAT|ipcModeOwnerOnly)
}

// ShmLookup resolves key to an existing segment id without creation rights.
func ShmLookup(key int) (int, error) {
	return unix.SysvShmGet(key, 0, 0)
}

// ShmAttach maps the segment into the process address space.
func ShmAttach(id int) ([]byte, error) {
	return unix.SysvShmAttach(id, 0, 0)
}

// ShmDetach unmaps a mapping returned by ShmAttach.
func ShmDetach(data []byte) error {
	return unix.SysvShmDetach(data)
}

// ShmRemove marks the segment for destruction. The kernel reclaims it once
// the last attached process detaches.
func ShmRemove(id int) error {
	_, err := unix.SysvShmCtl(id, unix.IPC_RMID, nil)
	return err
}

// ShmSize reads the segment's true byte size via IPC_STAT.
func ShmSize(id int) (uint64, error) {
	var desc unix.SysvShmDesc
	if _, err := unix.SysvShmCtl(id, unix.IPC_STAT, &desc); err != nil {
		return 0, err
	}
	return uint64(desc.Segsz), nil
}

// semctl command values, from include/uapi/linux/sem.h. x/sys/unix has no
// System V semaphore wrappers, so the raw syscalls live here.
const (
	semGetVal = 12
	semSetVal = 16
)

// sembuf mirrors struct sembuf.
type sembuf struct {
	semNum uint16
	semOp  int16
	semFlg int16
}

// SemCreateExclusive creates the single-slot semaphore set for key, failing
// with EEXIST when another process already created it.
func SemCreateExclusive(key int) (int, error) {
	return semget(key, unix.IPC_CREAT|unix.IPC_EXCL|ipcModeOwnerOnly)
}

// SemOpen resolves key to an existing semaphore set.
func SemOpen(key int) (int, error) {
	return semget(key, 0)
}

func semget(key, flag int) (int, error) {
	id, _, errno := unix.Syscall(unix.SYS_SEMGET, uintptr(key), 1, uintptr(flag))
	if errno != 0 {
		return 0, errno
	}
	return int(id), nil
}

// SemOp applies delta to the semaphore's single slot. A negative delta blocks
// until the slot can absorb it.
func SemOp(semid int, delta int16) error {
	sb := sembuf{semNum: 0, semOp: delta, semFlg: 0}
	_, _, errno := unix.Syscall(unix.SYS_SEMOP, uintptr(semid), uintptr(unsafe.Pointer(&sb)), 1)
	if errno != 0 {
		return errno
	}
	return nil
}

// SemGetValue reads the slot's current value.
func SemGetValue(semid int) (int, error) {
	v, _, errno := unix.Syscall6(unix.SYS_SEMCTL, uintptr(semid), 0, semGetVal, 0, 0, 0)
	if errno != 0 {
		return 0, errno
	}
	return int(v), nil
}

// SemSetValue forces the slot to value.
func SemSetValue(semid, value int) error {
	_, _, errno := unix.Syscall6(unix.SYS_SEMCTL, uintptr(semid), 0, semSetVal, uintptr(value), 0, 0)
	if errno != 0 {
		return errno
	}
	return nil
}

// SemRemove destroys the semaphore set, waking blocked waiters with EIDRM.
func SemRemove(semid int) error {
	_, _, errno := unix.Syscall6(unix.SYS_SEMCTL, uintptr(semid), 0, unix.IPC_RMID, 0, 0, 0)
	if errno != 0 {
		return errno
	}
	return nil
}
