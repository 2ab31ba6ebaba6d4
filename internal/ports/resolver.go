package ports

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DeviceResolver locates the scanner's input device file and resolves an
// optional per-device user, per spec.md §4 collaborator interfaces.
// Grounded on original_source/scanner_device_resolver.py, reimplemented
// against the filesystem rather than a config dict.
type DeviceResolver struct {
	// ConfiguredPath, if non-empty and existing, always wins.
	ConfiguredPath string
	// DeviceFilter is an optional case-insensitive substring used to pick
	// among /dev/input/by-id/*event-kbd candidates.
	DeviceFilter string
	// UserMap maps a device path (or its basename) to a user id.
	UserMap map[string]string
}

// ResolveScannerDevice implements the policy from spec.md §4: configured
// path if it exists; else /dev/input/by-id/*event-kbd filtered by
// DeviceFilter; else the first /dev/input/event*; else the fallback
// /dev/input/event0.
func (r DeviceResolver) ResolveScannerDevice() string {
	if r.ConfiguredPath != "" {
		if _, err := os.Stat(r.ConfiguredPath); err == nil {
			return r.ConfiguredPath
		}
	}

	if candidates := byIDKeyboardCandidates(); len(candidates) > 0 {
		if r.DeviceFilter != "" {
			needle := strings.ToLower(r.DeviceFilter)
			for _, c := range candidates {
				if strings.Contains(strings.ToLower(filepath.Base(c)), needle) {
					return c
				}
			}
		}
		return candidates[0]
	}

	if first := firstEventDevice(); first != "" {
		return first
	}

	return "/dev/input/event0"
}

// ResolveUser looks up devPath (or its basename, allowing a suffix match)
// in r.UserMap, returning "" when there is no entry — UserID is optional
// per spec.md §3.
func (r DeviceResolver) ResolveUser(devPath string) string {
	if v, ok := r.UserMap[devPath]; ok {
		return v
	}

	base := filepath.Base(devPath)
	for key, val := range r.UserMap {
		keyBase := filepath.Base(key)
		if base == keyBase || strings.HasSuffix(base, keyBase) {
			return val
		}
	}
	return ""
}

func byIDKeyboardCandidates() []string {
	const dir = "/dev/input/by-id"
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var candidates []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), "event-kbd") {
			candidates = append(candidates, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(candidates)
	return candidates
}

func firstEventDevice() string {
	const dir = "/dev/input"
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}

	var matches []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "event") {
			matches = append(matches, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(matches)
	if len(matches) == 0 {
		return ""
	}
	return matches[0]
}
