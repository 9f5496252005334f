package agent

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	wserrors "github.com/subroutinecom/workspace/internal/errors"
	"github.com/subroutinecom/workspace/internal/logging"
	"github.com/subroutinecom/workspace/internal/runner"
)

// conflictShiftID is the id a conflicting group/user is moved to so
// the workspace user can take the host's uid/gid.
const conflictShiftID = 60000

// SyncUser aligns the workspace user's uid/gid with HOST_UID/HOST_GID so
// files written into bind-mounted host directories keep sane ownership.
// Refuses when either id is 0 or unparsable, and no-ops when already
// matching.
func SyncUser(ctx context.Context) error {
	uid, gid, ok := hostIDs()
	if !ok {
		logging.Debug("skipping uid/gid sync", "reason", "HOST_UID/HOST_GID missing or root")
		return nil
	}

	curUID, curGID, err := currentIDs(ctx, "workspace")
	if err != nil {
		return wserrors.Internal(err, "could not read current workspace user ids")
	}
	if curUID == uid && curGID == gid {
		return nil
	}

	if curGID != gid {
		if err := syncGroup(ctx, gid); err != nil {
			return err
		}
	}
	if curUID != uid {
		if err := syncUserID(ctx, uid, gid); err != nil {
			return err
		}
	}

	if _, err := runner.Run(ctx, "chown", []string{"-R", fmt.Sprintf("%d:%d", uid, gid), workspaceHome}, runner.Options{IgnoreFailure: true}); err != nil {
		return err
	}
	logging.Info("synced workspace user", "uid", uid, "gid", gid)
	return nil
}

func hostIDs() (int, int, bool) {
	uid, err1 := strconv.Atoi(os.Getenv("HOST_UID"))
	gid, err2 := strconv.Atoi(os.Getenv("HOST_GID"))
	if err1 != nil || err2 != nil || uid == 0 || gid == 0 {
		return 0, 0, false
	}
	return uid, gid, true
}

func currentIDs(ctx context.Context, user string) (int, int, error) {
	uidRes, err := runner.Run(ctx, "id", []string{"-u", user}, runner.Options{})
	if err != nil {
		return 0, 0, err
	}
	gidRes, err := runner.Run(ctx, "id", []string{"-g", user}, runner.Options{})
	if err != nil {
		return 0, 0, err
	}
	uid, err := strconv.Atoi(strings.TrimSpace(uidRes.Stdout))
	if err != nil {
		return 0, 0, err
	}
	gid, err := strconv.Atoi(strings.TrimSpace(gidRes.Stdout))
	if err != nil {
		return 0, 0, err
	}
	return uid, gid, nil
}

// syncGroup sets workspace's primary group gid, shifting away a
// conflicting group first if the gid is already taken.
func syncGroup(ctx context.Context, gid int) error {
	res, err := runner.Run(ctx, "groupmod", []string{"-g", strconv.Itoa(gid), "workspace"}, runner.Options{IgnoreFailure: true})
	if err != nil {
		return err
	}
	if res.Code != 0 {
		if name, ok := groupNameForGID(ctx, gid); ok && name != "workspace" {
			if _, err := runner.Run(ctx, "groupmod", []string{"-g", strconv.Itoa(conflictShiftID), name}, runner.Options{IgnoreFailure: true}); err != nil {
				return err
			}
			res, err = runner.Run(ctx, "groupmod", []string{"-g", strconv.Itoa(gid), "workspace"}, runner.Options{IgnoreFailure: true})
			if err != nil {
				return err
			}
		}
	}
	if res.Code != 0 {
		return wserrors.Internal(nil, "could not set workspace group to gid %d", gid)
	}
	return nil
}

// syncUserID sets workspace's uid (and primary gid), shifting away a
// conflicting user first if the uid is already taken.
func syncUserID(ctx context.Context, uid, gid int) error {
	args := []string{"-u", strconv.Itoa(uid), "-g", strconv.Itoa(gid), "workspace"}
	res, err := runner.Run(ctx, "usermod", args, runner.Options{IgnoreFailure: true})
	if err != nil {
		return err
	}
	if res.Code != 0 {
		if name, ok := userNameForUID(ctx, uid); ok && name != "workspace" {
			if _, err := runner.Run(ctx, "usermod", []string{"-u", strconv.Itoa(conflictShiftID), name}, runner.Options{IgnoreFailure: true}); err != nil {
				return err
			}
			res, err = runner.Run(ctx, "usermod", args, runner.Options{IgnoreFailure: true})
			if err != nil {
				return err
			}
		}
	}
	if res.Code != 0 {
		return wserrors.Internal(nil, "could not set workspace user to uid %d", uid)
	}
	return nil
}

func groupNameForGID(ctx context.Context, gid int) (string, bool) {
	res, err := runner.Run(ctx, "getent", []string{"group", strconv.Itoa(gid)}, runner.Options{IgnoreFailure: true})
	if err != nil || res.Code != 0 {
		return "", false
	}
	fields := strings.SplitN(strings.TrimSpace(res.Stdout), ":", 2)
	if len(fields) == 0 || fields[0] == "" {
		return "", false
	}
	return fields[0], true
}

func userNameForUID(ctx context.Context, uid int) (string, bool) {
	res, err := runner.Run(ctx, "getent", []string{"passwd", strconv.Itoa(uid)}, runner.Options{IgnoreFailure: true})
	if err != nil || res.Code != 0 {
		return "", false
	}
	fields := strings.SplitN(strings.TrimSpace(res.Stdout), ":", 2)
	if len(fields) == 0 || fields[0] == "" {
		return "", false
	}
	return fields[0], true
}
