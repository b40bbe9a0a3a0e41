package deps

import "dictate/internal/config"

// Requirements lists the executables the dictation daemon shells out to for
// the given input method.
func Requirements(inputMethod string) []Requirement {
	return []Requirement{
		{
			Name:        "arecord",
			Command:     "arecord",
			Description: "Records microphone audio",
		},
		{
			Name:        "netcat",
			Command:     "nc",
			Description: "Sends trigger commands to the daemon socket",
		},
		inputRequirement(inputMethod),
		{
			Name:        "ffmpeg",
			Command:     "ffmpeg",
			Description: "Decodes recordings for Whisper",
		},
		{
			Name:        "Python",
			Command:     "python3",
			Description: "Runs the dictation scripts and hosts the virtual environment",
		},
	}
}

func inputRequirement(inputMethod string) Requirement {
	switch inputMethod {
	case config.InputWtype:
		return Requirement{Name: "wtype", Command: "wtype", Description: "Types transcribed text on Wayland"}
	case config.InputXdotool:
		return Requirement{Name: "xdotool", Command: "xdotool", Description: "Types transcribed text on X11"}
	default:
		return Requirement{Name: "ydotool", Command: "ydotool", Description: "Types transcribed text through uinput"}
	}
}
