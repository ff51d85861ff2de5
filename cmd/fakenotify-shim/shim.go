// Command fakenotify-shim builds as a C shared library (buildmode=c-shared)
// intended for LD_PRELOAD: it exports inotify_init, inotify_init1,
// inotify_add_watch, inotify_rm_watch and close with C linkage, so that an
// application dynamically linked against libc observes these calls routed
// through the daemon instead of the kernel. Only close passes a descriptor
// this shim did not create on to the real libc close; inotify_add_watch and
// inotify_rm_watch fail such a descriptor with EBADF.
package main

/*
#include <errno.h>
#include <dlfcn.h>
#include <unistd.h>

static int real_close(int fd) {
	static int (*fn)(int) = 0;
	if (!fn) {
		fn = (int (*)(int))dlsym(RTLD_NEXT, "close");
	}
	if (!fn) {
		return -1;
	}
	return fn(fd);
}
*/
import "C"

import (
	"os"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/fakenotify/fakenotify/pkg/protocol"
	"github.com/fakenotify/fakenotify/pkg/shim"
)

// fdRegistry tracks which synthetic descriptors this shim handed out, so
// close() knows whether to hand a given fd to the real libc close, and
// inotify_add_watch/inotify_rm_watch know whether to reject it with EBADF.
// A single lock guards it, per the interposed-entry-point thread model: the
// exported functions run on whatever OS thread the application calls them
// from, and the lock is never held across a blocking pipe or socket write
// (those happen inside pkg/shim, past the point the lock here is released).
var (
	fdRegistryMu sync.Mutex
	fdRegistry   = map[C.int]*os.File{}
)

func registerFd(fd C.int, reader *os.File) {
	fdRegistryMu.Lock()
	defer fdRegistryMu.Unlock()
	fdRegistry[fd] = reader
}

func lookupFd(fd C.int) (*os.File, bool) {
	fdRegistryMu.Lock()
	defer fdRegistryMu.Unlock()
	reader, ok := fdRegistry[fd]
	return reader, ok
}

func unregisterFd(fd C.int) {
	fdRegistryMu.Lock()
	defer fdRegistryMu.Unlock()
	delete(fdRegistry, fd)
}

//export inotify_init
func inotify_init() C.int {
	return inotifyInitCommon()
}

//export inotify_init1
func inotify_init1(flags C.int) C.int {
	fd := inotifyInitCommon()
	if fd < 0 {
		return fd
	}
	if flags&C.int(unix.IN_NONBLOCK) != 0 {
		unix.SetNonblock(int(fd), true)
	}
	if flags&C.int(unix.IN_CLOEXEC) != 0 {
		unix.CloseOnExec(int(fd))
	}
	return fd
}

func inotifyInitCommon() C.int {
	reader, err := shim.Get().Init()
	if err != nil {
		C.errno = C.EMFILE
		return -1
	}
	fd := C.int(reader.Fd())
	registerFd(fd, reader)
	return fd
}

//export inotify_add_watch
func inotify_add_watch(fd C.int, pathname *C.char, mask C.uint32_t) C.int {
	reader, ok := lookupFd(fd)
	if !ok {
		// Not a descriptor this shim created (e.g. a genuine kernel inotify
		// fd from a non-interposed init call); nothing for us to do with it.
		C.errno = C.EBADF
		return -1
	}

	wd, err := shim.Get().AddWatch(reader.Fd(), C.GoString(pathname), uint32(mask))
	if err != nil {
		C.errno = errnoFor(err)
		return -1
	}
	return C.int(wd)
}

//export inotify_rm_watch
func inotify_rm_watch(fd C.int, wd C.int) C.int {
	reader, ok := lookupFd(fd)
	if !ok {
		C.errno = C.EBADF
		return -1
	}

	if err := shim.Get().RemoveWatch(reader.Fd(), int32(wd)); err != nil {
		C.errno = C.EINVAL
		return -1
	}
	return 0
}

//export close
func close(fd C.int) C.int {
	reader, ok := lookupFd(fd)
	if !ok {
		return C.real_close(fd)
	}

	unregisterFd(fd)
	err := shim.Get().Close(reader.Fd())
	// The read end is the descriptor the application holds; release it as a
	// real close would, whether or not the detach succeeded.
	reader.Close()
	if err != nil {
		C.errno = C.EIO
		return -1
	}
	return 0
}

// errnoFor maps a shim operation failure to the errno class the calling
// application expects ("invalid path -> ENOENT; daemon refused -> EACCES;
// transport broken -> EIO"). Daemon-reported failures carry a
// protocol.Error classifying the rejection; anything else (a transport
// error, a local os.Pipe failure) is treated as EIO.
func errnoFor(err error) C.int {
	if protoErr, ok := err.(*protocol.Error); ok {
		switch protoErr.Code {
		case protocol.ErrorCodeNotFound:
			return C.ENOENT
		case protocol.ErrorCodePermissionDenied:
			return C.EACCES
		case protocol.ErrorCodeInvalidArgument, protocol.ErrorCodeAlreadyExists:
			return C.EINVAL
		case protocol.ErrorCodeResourceExhausted:
			return C.EMFILE
		default:
			return C.EIO
		}
	}
	if os.IsNotExist(err) {
		return C.ENOENT
	}
	if os.IsPermission(err) {
		return C.EACCES
	}
	return C.EIO
}

func main() {}
