package provision

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// VenvPackages lists the Python packages installed into the virtual
// environment. triton only has wheels for linux/x86_64.
func VenvPackages(streaming bool, goos, machine string) []string {
	pkgs := []string{"openai-whisper"}
	if streaming {
		pkgs = append(pkgs, "faster-whisper", "librosa", "soundfile")
	}
	if goos == "linux" && machine == "x86_64" {
		pkgs = append(pkgs, "triton")
	}
	return pkgs
}

func hostPlatform() (string, string) {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return runtime.GOOS, ""
	}
	return runtime.GOOS, unix.ByteSliceToString(uts.Machine[:])
}
