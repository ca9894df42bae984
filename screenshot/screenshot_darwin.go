package screenshot

/*
#cgo CFLAGS: -x objective-c
#cgo LDFLAGS: -framework CoreGraphics -framework Foundation
#import <CoreGraphics/CoreGraphics.h>
#import <Foundation/Foundation.h>

bool hasScreenRecordingPermission() {
    if (@available(macOS 11.0, *)) {
        return CGPreflightScreenCaptureAccess();
    }
    return true;
}

void requestScreenRecordingPermission() {
    if (@available(macOS 11.0, *)) {
        CGRequestScreenCaptureAccess();
    }
}
*/
import "C"
import (
	"context"
	"os/exec"
)

const fileExt = ".jpg"

// HasPermission checks if the app has screen recording permission.
func HasPermission() bool {
	return bool(C.hasScreenRecordingPermission())
}

// RequestPermission requests screen recording permission from the system.
func RequestPermission() {
	C.requestScreenRecordingPermission()
}

// -x: no sound, -t jpg: JPEG output, -i: interactive selection
func command(ctx context.Context, path string, interactive bool) (*exec.Cmd, error) {
	args := []string{"-x", "-t", "jpg"}
	if interactive {
		args = append(args, "-i")
	}
	return exec.CommandContext(ctx, "screencapture", append(args, path)...), nil
}
