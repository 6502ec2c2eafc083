package device

import (
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/google/uuid"
)

// machineIDPaths are read in order on Linux and BSD hosts.
var machineIDPaths = []string{"/etc/machine-id", "/var/lib/dbus/machine-id"}

// Identity resolves the id stamped on every request the worker client makes.
type Identity struct {
	goos     string
	readFile func(string) ([]byte, error)
	hostname func() (string, error)
	run      func(name string, args ...string) ([]byte, error)
}

// NewIdentity probes the running host.
func NewIdentity() *Identity {
	return &Identity{
		goos:     runtime.GOOS,
		readFile: os.ReadFile,
		hostname: os.Hostname,
		run: func(name string, args ...string) ([]byte, error) {
			return exec.Command(name, args...).Output()
		},
	}
}

// Resolve returns configured when set, otherwise the host's hardware or machine id,
// otherwise a hostname-derived id, otherwise a random UUID.
func (i *Identity) Resolve(configured string) string {
	if id := strings.TrimSpace(configured); id != "" {
		return id
	}

	if id := i.platformID(); id != "" {
		return id
	}

	if host, err := i.hostname(); err == nil && host != "" {
		return i.goos + "-" + host
	}

	return uuid.NewString()
}

func (i *Identity) platformID() string {
	switch i.goos {
	case "windows":
		if out, err := i.run("wmic", "csproduct", "get", "uuid"); err == nil {
			if id := wmicValue(out, "UUID", 10); id != "" {
				return id
			}
		}
		if out, err := i.run("wmic", "bios", "get", "serialnumber"); err == nil {
			return wmicValue(out, "SerialNumber", 3)
		}
		return ""
	case "darwin":
		out, err := i.run("system_profiler", "SPHardwareDataType")
		if err != nil {
			return ""
		}
		return hardwareUUID(out)
	default:
		for _, path := range machineIDPaths {
			data, err := i.readFile(path)
			if err == nil {
				if id := strings.TrimSpace(string(data)); id != "" {
					return id
				}
			}
		}
		return ""
	}
}

// wmicValue returns the first line of wmic output that is not the column header and is
// longer than minLen.
func wmicValue(out []byte, header string, minLen int) string {
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line != "" && line != header && len(line) > minLen {
			return line
		}
	}
	return ""
}

// hardwareUUID extracts the "Hardware UUID:" field of system_profiler output.
func hardwareUUID(out []byte) string {
	for _, line := range strings.Split(string(out), "\n") {
		if _, value, ok := strings.Cut(line, "Hardware UUID:"); ok {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

// Name returns a readable device label, falling back to the hostname.
func (i *Identity) Name(configured string) string {
	if name := strings.TrimSpace(configured); name != "" {
		return name
	}
	if host, err := i.hostname(); err == nil && host != "" {
		return host
	}
	return "unknown"
}
