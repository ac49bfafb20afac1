package repo

import (
	"bytes"
	"compress/gzip"
	"io"
	"os"
	"strings"

	"github.com/pindral/brainstore/internal/brain"
	"github.com/pindral/brainstore/internal/storage"
)

// backupStamp is the UTC timestamp layout in backup file names.
const backupStamp = "20060102T150405Z"

// Backup snapshots a brain file into the backups directory and returns
// the snapshot's path. The per-brain lock is held for the duration so a
// backup never captures a half-finished write.
func (r *Repository) Backup(slug, label string, compress bool) (string, error) {
	slug, err := NormalizeSlug(slug)
	if err != nil {
		return "", err
	}
	if label == "" {
		label = "snapshot"
	}
	if label, err = NormalizeSlug(label); err != nil {
		return "", err
	}
	if !r.layout.BrainExists(slug) {
		return "", brain.NewNotFound("brain %q not found", slug).WithBrain(slug)
	}

	lock, err := r.acquire(slug)
	if err != nil {
		return "", err
	}
	defer lock.Release()

	data, err := storage.Load(r.layout.BrainPath(slug))
	if err != nil {
		return "", err
	}

	if compress {
		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		if _, err := gz.Write(data); err != nil {
			return "", brain.NewWriteFailed("failed to compress backup of %q", slug).WithBrain(slug).WithCause(err)
		}
		if err := gz.Close(); err != nil {
			return "", brain.NewWriteFailed("failed to compress backup of %q", slug).WithBrain(slug).WithCause(err)
		}
		data = buf.Bytes()
	}

	path := r.layout.BackupPath(slug, label, r.clock().UTC().Format(backupStamp), compress)
	writer := &storage.Writer{Logger: r.logger}
	if _, err := writer.Persist(path, data); err != nil {
		return "", err
	}
	r.logger.Info("brain backed up", "brain", slug, "path", path)
	return path, nil
}

// RestoreFromBackup rebuilds a brain from a snapshot file. target names
// the restored brain; empty means the slug recorded in the snapshot.
// Restoring over an existing brain requires overwrite. With activate the
// restored brain becomes the active one.
func (r *Repository) RestoreFromBackup(file, target string, overwrite, activate bool) (string, error) {
	data, err := readBackupFile(file)
	if err != nil {
		return "", err
	}
	doc, err := brain.Decode(data)
	if err != nil {
		return "", err
	}

	if target == "" {
		target = doc.Meta.Slug
	}
	if target, err = NormalizeSlug(target); err != nil {
		return "", err
	}
	if target == brain.SystemSlug && doc.Meta.Slug != brain.SystemSlug {
		return "", brain.NewConflict("cannot restore %q over the system brain", doc.Meta.Slug).WithBrain(target)
	}
	if r.layout.BrainExists(target) && !overwrite {
		return "", brain.NewConflict("brain %q already exists; restore requires overwrite", target).WithBrain(target)
	}
	doc.Meta.Slug = target

	lock, err := r.acquire(target)
	if err != nil {
		return "", err
	}
	defer lock.Release()

	if err := r.persist(target, doc); err != nil {
		return "", err
	}
	r.logger.Info("brain restored from backup", "brain", target, "file", file)

	if activate && target != brain.SystemSlug {
		if err := r.Use(target); err != nil {
			return "", err
		}
	}
	return target, nil
}

// readBackupFile reads a snapshot, transparently decompressing by the
// .gz suffix.
func readBackupFile(file string) ([]byte, error) {
	f, err := os.Open(file)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, brain.NewNotFound("no backup file at %s", file)
		}
		return nil, brain.NewWriteFailed("failed to open backup %s", file).WithCause(err)
	}
	defer f.Close()

	var reader io.Reader = f
	if strings.HasSuffix(file, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, brain.NewValidation("backup %s is not valid gzip", file).WithCause(err)
		}
		defer gz.Close()
		reader = gz
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, brain.NewWriteFailed("failed to read backup %s", file).WithCause(err)
	}
	return data, nil
}
