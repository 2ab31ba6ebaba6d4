// Package runtimeenv holds the small OS-facing ambient concerns that are
// not part of the ingest pipeline itself: dropping privileges and
// notifying systemd of readiness/status, adapted from the teacher's
// pkg/runtimeEnv/setup.go.
package runtimeenv

import (
	"fmt"
	"os"
	"os/exec"
	"os/user"
	"strconv"
	"syscall"

	"github.com/ClusterCockpit/scanhub-edge/pkg/log"
)

// DropPrivileges switches the process's group and user, in that order, to
// the named accounts for the rest of the process lifetime. An empty name
// leaves that id unchanged.
func DropPrivileges(username, group string) error {
	if group != "" {
		g, err := user.LookupGroup(group)
		if err != nil {
			log.Warnf("drop privileges: lookup group %s: %v", group, err)
			return err
		}
		gid, _ := strconv.Atoi(g.Gid)
		if err := syscall.Setgid(gid); err != nil {
			log.Warnf("drop privileges: setgid %d: %v", gid, err)
			return err
		}
	}

	if username != "" {
		u, err := user.Lookup(username)
		if err != nil {
			log.Warnf("drop privileges: lookup user %s: %v", username, err)
			return err
		}
		uid, _ := strconv.Atoi(u.Uid)
		if err := syscall.Setuid(uid); err != nil {
			log.Warnf("drop privileges: setuid %d: %v", uid, err)
			return err
		}
	}

	return nil
}

// SystemdNotify reports readiness/status to systemd via sd_notify, a no-op
// outside a systemd unit (NOTIFY_SOCKET unset).
func SystemdNotify(ready bool, status string) {
	if os.Getenv("NOTIFY_SOCKET") == "" {
		return
	}

	args := []string{fmt.Sprintf("--pid=%d", os.Getpid())}
	if ready {
		args = append(args, "--ready")
	}
	if status != "" {
		args = append(args, fmt.Sprintf("--status=%s", status))
	}

	cmd := exec.Command("systemd-notify", args...)
	cmd.Run() // best-effort; nothing sensible to do with a failure here.
}
