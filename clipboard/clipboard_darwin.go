//go:build darwin

package clipboard

import (
	"context"
	"errors"
	"sync"
)

// #cgo CFLAGS: -x objective-c
// #cgo LDFLAGS: -framework Cocoa
// #import <Cocoa/Cocoa.h>
// const char* getClipboardContent() {
//     NSPasteboard *pasteboard = [NSPasteboard generalPasteboard];
//     NSString *string = [pasteboard stringForType:NSPasteboardTypeString];
//     return [string UTF8String];
// }
import "C"

var clipboardLock sync.Mutex

func readText(context.Context) (string, error) {
	clipboardLock.Lock()
	defer clipboardLock.Unlock()

	cstr := C.getClipboardContent()
	if cstr == nil {
		return "", errors.New("read clipboard: no text")
	}
	return C.GoString(cstr), nil
}
