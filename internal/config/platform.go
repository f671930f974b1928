package config

import "runtime"

// Platform returns the host platform identifier used in verify
// artifact names: "macos", "windows", or "linux".
func Platform() string {
	switch runtime.GOOS {
	case "darwin":
		return "macos"
	case "windows":
		return "windows"
	default:
		return "linux"
	}
}
