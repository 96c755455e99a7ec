// Persistence for C11, grounded on fish's get_machine_identifier and
// load_or_save_variables_at_path in original_source/env_universal_common.cpp:
// the on-disk file is named by a machine identifier, begins with a fixed
// banner, and stores one "set"/"set_export" line per variable.
package univar

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
)

const banner = "# This file is automatically generated by tide.\n# Do NOT edit it directly, your changes will be overwritten.\n"

// MachineID returns the lowercase hex MAC address of the first interface
// that has one, else the hostname truncated to 32 characters, else the
// literal "nohost".
func MachineID() string {
	if mac := firstMACAddress(); mac != "" {
		return mac
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		if len(host) > 32 {
			host = host[:32]
		}
		return host
	}
	return "nohost"
}

func firstMACAddress() string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return ""
	}
	for _, iface := range ifaces {
		if len(iface.HardwareAddr) == 0 {
			continue
		}
		if iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		return strings.ReplaceAll(iface.HardwareAddr.String(), ":", "")
	}
	return ""
}

// PersistencePath returns the persistence file path for dir and a machine
// id, upgrading in place from a hostname-named file to id's name if dir
// contains one and id's own file does not yet exist (the "silent upgrade"
// spec.md §4.11 describes, for when the MAC address becomes available
// after having previously fallen back to the hostname).
func PersistencePath(dir, id string) (string, error) {
	target := filepath.Join(dir, "fishd."+id)
	if _, err := os.Stat(target); err == nil {
		return target, nil
	}
	if host, err := os.Hostname(); err == nil && host != id {
		hostID := host
		if len(hostID) > 32 {
			hostID = hostID[:32]
		}
		legacy := filepath.Join(dir, "fishd."+hostID)
		if _, err := os.Stat(legacy); err == nil {
			if err := os.Rename(legacy, target); err == nil {
				return target, nil
			}
		}
	}
	return target, nil
}

// LoadPersisted reads path, if it exists, into store, ignoring malformed
// lines per spec.md §7's "logs and skips malformed lines" posture.
func LoadPersisted(path string, store *Store) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		m, ok := ParseLine(line)
		if !ok {
			continue
		}
		store.apply(m)
	}
	return scanner.Err()
}

// SavePersisted atomically rewrites path with the banner followed by one
// set/set_export line per entry in store, via a temp-file-then-rename, the
// same atomic-save discipline pkg/history uses.
func SavePersisted(path string, store *Store) error {
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(banner); err != nil {
		f.Close()
		return err
	}
	for key, e := range store.Snapshot() {
		verb := VerbSet
		if e.Exported {
			verb = VerbSetExport
		}
		line := Message{Verb: verb, Key: key, Value: e.Value}.Encode()
		if _, err := fmt.Fprint(f, line); err != nil {
			f.Close()
			return err
		}
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
