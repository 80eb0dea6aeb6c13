package deps

import (
	"os/exec"
	"strings"
)

// Status represents the installation status of a dependency
type Status struct {
	Installed bool
	Path      string
	Version   string
}

// Dependency is an external program livesub can shell out to.
type Dependency struct {
	Name        string
	Purpose     string
	VersionArgs []string
}

// Report pairs a dependency with its detected status.
type Report struct {
	Dependency
	Status
}

var known = []Dependency{
	{Name: "pw-record", Purpose: "pipewire audio capture", VersionArgs: []string{"--version"}},
	{Name: "whisper-cli", Purpose: "local whisper.cpp recognition", VersionArgs: []string{"--version"}},
	{Name: "notify-send", Purpose: "desktop notifications", VersionArgs: []string{"--version"}},
}

// Known returns the external programs livesub may use.
func Known() []Dependency {
	out := make([]Dependency, len(known))
	copy(out, known)
	return out
}

// Check looks up name on PATH and, when found, records the first line of
// its version output.
func Check(name string, versionArgs ...string) Status {
	path, err := exec.LookPath(name)
	if err != nil {
		return Status{Installed: false}
	}

	status := Status{
		Installed: true,
		Path:      path,
	}
	if len(versionArgs) == 0 {
		return status
	}

	output, err := exec.Command(path, versionArgs...).CombinedOutput()
	if err == nil {
		lines := strings.Split(string(output), "\n")
		if len(lines) > 0 {
			status.Version = strings.TrimSpace(lines[0])
		}
	}
	return status
}

// CheckAll reports every known dependency.
func CheckAll() []Report {
	reports := make([]Report, 0, len(known))
	for _, d := range known {
		reports = append(reports, Report{Dependency: d, Status: Check(d.Name, d.VersionArgs...)})
	}
	return reports
}

// CheckWhisperCli checks if whisper-cli is installed and returns its status
func CheckWhisperCli() Status {
	return Check("whisper-cli", "--version")
}

// CheckPwRecord checks if pw-record is installed and returns its status
func CheckPwRecord() Status {
	return Check("pw-record", "--version")
}
