package config

// AppName is the directory and unit prefix shared by every installed artifact.
const AppName = "jnickg-dictate"

const (
	// SocketPath is the Unix socket the dictation daemon listens on.
	SocketPath = "/tmp/jnickg-dictate.sock"
	// AudioPath is the temporary recording the dictation daemon writes.
	AudioPath = "/tmp/jnickg-dictation.wav"
)

const (
	InputYdotool = "ydotool"
	InputWtype   = "wtype"
	InputXdotool = "xdotool"
)

const (
	BackendSystemctl = "systemctl"
	BackendDBus      = "dbus"
)

const (
	defaultModel                 = "base.en"
	defaultInputMethod           = InputYdotool
	defaultStreamingPort         = 43007
	defaultStartupDelaySeconds   = 3
	defaultSubmoduleDir          = "whisper_streaming"
	defaultBinDir                = "~/.local/bin"
	defaultPackageManager        = "auto"
	defaultPrivilegeCommand      = "sudo"
	defaultSystemdBackend        = BackendSystemctl
	defaultSocketWaitSeconds     = 10
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultXDGConfigHomeFallback = "~/.config"
	defaultXDGCacheHomeFallback  = "~/.cache"
	defaultXDGDataHomeFallback   = "~/.local/share"
)

// InputMethods lists the supported text injection backends.
func InputMethods() []string {
	return []string{InputYdotool, InputWtype, InputXdotool}
}

// Default returns a Config populated with repository defaults. Model and input
// method stay empty so normalize can apply environment overrides first.
func Default() Config {
	return Config{
		Streaming: Streaming{
			Port:                defaultStreamingPort,
			StartupDelaySeconds: defaultStartupDelaySeconds,
			SubmoduleDir:        defaultSubmoduleDir,
		},
		Paths: Paths{
			BinDir: defaultBinDir,
		},
		Packages: Packages{
			Manager:          defaultPackageManager,
			PrivilegeCommand: defaultPrivilegeCommand,
		},
		Systemd: Systemd{
			Backend:           defaultSystemdBackend,
			SocketWaitSeconds: defaultSocketWaitSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
