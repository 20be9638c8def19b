// Package backup runs periodic snapshot copies of the event data file. The
// store's atomic writes keep the live file consistent; backups guard against
// the file itself being lost or clobbered.
package backup

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/robfig/cron/v3"

	appLog "webcal/internal/log"
)

const snapshotPrefix = "events-"

// Job copies the data file into the backup directory on a cron schedule and
// prunes old snapshots beyond the retention count.
type Job struct {
	dataFile string
	dir      string
	keep     int

	cron *cron.Cron
}

// NewJob prepares a backup job. Schedule it with Start.
func NewJob(dataFile, dir string, keep int) *Job {
	if keep < 1 {
		keep = 1
	}
	return &Job{
		dataFile: dataFile,
		dir:      dir,
		keep:     keep,
		cron:     cron.New(),
	}
}

// Start registers the cron entry and starts the scheduler. An invalid spec
// is returned as an error; an empty spec is the caller's signal not to call
// Start at all.
func (j *Job) Start(spec string) error {
	if _, err := j.cron.AddFunc(spec, j.runOnce); err != nil {
		return fmt.Errorf("backup: invalid cron spec %q: %w", spec, err)
	}
	j.cron.Start()
	appLog.Info("backup scheduler started", "spec", spec, "dir", j.dir, "keep", j.keep)
	return nil
}

// Stop halts the scheduler; a running snapshot finishes.
func (j *Job) Stop() {
	ctx := j.cron.Stop()
	<-ctx.Done()
}

func (j *Job) runOnce() {
	if err := j.Snapshot(); err != nil {
		appLog.Error("backup snapshot failed", err, "data_file", j.dataFile)
		return
	}
	if err := j.prune(); err != nil {
		appLog.Error("backup prune failed", err, "dir", j.dir)
	}
}

// Snapshot copies the current data file into the backup directory with a
// timestamped name. A missing data file (nothing ever written) is not an
// error; there is simply nothing to back up yet.
func (j *Job) Snapshot() error {
	src, err := os.Open(j.dataFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer src.Close()

	if err := os.MkdirAll(j.dir, 0o700); err != nil {
		return err
	}

	name := snapshotPrefix + time.Now().UTC().Format("20060102T150405Z") + ".json"
	dstPath := filepath.Join(j.dir, name)

	dst, err := os.OpenFile(dstPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(dstPath)
		return err
	}
	if err := dst.Sync(); err != nil {
		return err
	}

	appLog.Info("backup snapshot written", "path", dstPath)
	return nil
}

// prune removes the oldest snapshots beyond the retention count. Snapshot
// names sort lexicographically by timestamp.
func (j *Job) prune() error {
	entries, err := os.ReadDir(j.dir)
	if err != nil {
		return err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if n := e.Name(); filepath.Ext(n) == ".json" && len(n) > len(snapshotPrefix) && n[:len(snapshotPrefix)] == snapshotPrefix {
			names = append(names, n)
		}
	}
	if len(names) <= j.keep {
		return nil
	}

	sort.Strings(names)
	for _, n := range names[:len(names)-j.keep] {
		if err := os.Remove(filepath.Join(j.dir, n)); err != nil {
			return err
		}
	}
	return nil
}
