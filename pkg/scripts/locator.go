package scripts

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"arhat.dev/pkg/log"
	"golang.org/x/sys/unix"

	"arhat.dev/linkhook/pkg/constant"
)

var (
	ErrNotRegular = errors.New("not a regular file")
	ErrFileMode   = errors.New("check file mode")
	ErrFilePerms  = errors.New("check file perms")
)

// Locator finds hook scripts for a state in a list of base directories
type Locator struct {
	dirs []string

	// required owner of scripts
	uid, gid uint32

	logger log.Interface
}

// NewLocator creates a locator for dirs, scripts must be owned by root
func NewLocator(dirs []string) *Locator {
	return NewLocatorWithOwner(dirs, 0, 0)
}

func NewLocatorWithOwner(dirs []string, uid, gid uint32) *Locator {
	return &Locator{
		dirs:   append([]string(nil), dirs...),
		uid:    uid,
		gid:    gid,
		logger: log.Log.WithName("scripts"),
	}
}

// SplitSearchPath splits a colon separated search path
func SplitSearchPath(path string) []string {
	var ret []string
	for _, p := range strings.Split(path, ":") {
		if p = strings.TrimSpace(p); p != "" {
			ret = append(ret, p)
		}
	}

	return ret
}

func (l *Locator) Dirs() []string {
	return append([]string(nil), l.dirs...)
}

// List returns scripts for the given state (e.g. `routable`)
func (l *Locator) List(state string) []string {
	return l.ListDir(state + constant.StateDirSuffix)
}

// ListDir pools executable scripts from `<base>/<subdir>` of all base dirs
// and orders them by file name
//
// a file name found in an earlier base dir shadows the same name in later
// ones, even when it is rejected or a symlink to /dev/null (masked)
func (l *Locator) ListDir(subdir string) []string {
	var (
		seen   = make(map[string]struct{})
		result []string
	)

	for _, base := range l.dirs {
		dir := filepath.Join(base, subdir)
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				l.logger.D("script dir does not exist; skipping", log.String("dir", dir))
			} else {
				l.logger.E("failed to read script dir", log.String("dir", dir), log.Error(err))
			}

			continue
		}

		for _, e := range entries {
			name := e.Name()
			if _, ok := seen[name]; ok {
				continue
			}

			seen[name] = struct{}{}

			path, err := filepath.Abs(filepath.Join(dir, name))
			if err != nil {
				l.logger.E("failed to resolve script path", log.String("name", name), log.Error(err))
				continue
			}

			if target, _ := filepath.EvalSymlinks(path); target == os.DevNull {
				l.logger.D("script masked", log.String("path", path))
				continue
			}

			if err = l.check(path); err != nil {
				l.logger.E("unable to execute script, "+err.Error(), log.String("path", path))
				continue
			}

			result = append(result, path)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		bi, bj := filepath.Base(result[i]), filepath.Base(result[j])
		if bi != bj {
			return bi < bj
		}

		return result[i] < result[j]
	})

	return result
}

func (l *Locator) check(path string) error {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return err
	}

	mode := uint32(st.Mode)
	switch {
	case mode&unix.S_IFMT != unix.S_IFREG:
		return ErrNotRegular
	case mode&unix.S_IXUSR == 0, mode&(unix.S_IWGRP|unix.S_IWOTH) != 0:
		return ErrFileMode
	case st.Uid != l.uid, st.Gid != l.gid:
		return ErrFilePerms
	}

	return nil
}
