// Package output places rendered manifests on disk.
package output

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/moby/sys/atomicwriter"
	"github.com/stackgen-cli/topogen/internal/generator"
	"github.com/stackgen-cli/topogen/internal/models"
)

const filePerm = 0o644

// CheckTarget verifies that path has the shape the backend writes to.
// Directories are never created.
func CheckTarget(kind generator.TargetKind, path string) error {
	if path == "" {
		return fmt.Errorf("%w: no output path given", models.ErrOutputTarget)
	}

	switch kind {
	case generator.TargetFile:
		info, err := os.Stat(path)
		if err == nil && info.IsDir() {
			return fmt.Errorf("%w: %s is a directory, expected a file", models.ErrOutputTarget, path)
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %v", models.ErrOutputTarget, err)
		}
		parent := filepath.Dir(path)
		pinfo, err := os.Stat(parent)
		if err != nil {
			return fmt.Errorf("%w: parent directory %s does not exist", models.ErrOutputTarget, parent)
		}
		if !pinfo.IsDir() {
			return fmt.Errorf("%w: %s is not a directory", models.ErrOutputTarget, parent)
		}
		return nil

	case generator.TargetDirectory:
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("%w: directory %s does not exist", models.ErrOutputTarget, path)
		}
		if !info.IsDir() {
			return fmt.Errorf("%w: %s is not a directory", models.ErrOutputTarget, path)
		}
		return nil
	}

	return fmt.Errorf("%w: unknown target kind %s", models.ErrOutputTarget, kind)
}

// Commit writes out to path. A single-file target is replaced atomically.
// For a directory every file is staged next to its destination first and
// renamed only once all of them were written; files rendered by an earlier
// run that are not part of out are removed afterwards.
func Commit(kind generator.TargetKind, path string, out *generator.Output) error {
	if err := CheckTarget(kind, path); err != nil {
		return err
	}

	switch kind {
	case generator.TargetFile:
		if len(out.Files) != 1 {
			return fmt.Errorf("file target expects exactly one rendered file, got %d", len(out.Files))
		}
		if err := atomicwriter.WriteFile(path, []byte(out.Files[0].Content), filePerm); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		return nil
	case generator.TargetDirectory:
		return commitDirectory(path, out.Files)
	}
	return fmt.Errorf("%w: unknown target kind %s", models.ErrOutputTarget, kind)
}

type staged struct {
	tmp  string
	dest string
}

func commitDirectory(dir string, files []generator.File) error {
	var pending []staged
	cleanup := func() {
		for _, s := range pending {
			os.Remove(s.tmp)
		}
	}

	for _, f := range files {
		dest, err := destination(dir, f.Name)
		if err != nil {
			cleanup()
			return err
		}
		tmp, err := stage(dest, f.Content)
		if err != nil {
			cleanup()
			return err
		}
		pending = append(pending, staged{tmp: tmp, dest: dest})
	}

	stale, err := staleFiles(dir, files)
	if err != nil {
		cleanup()
		return err
	}

	for i, s := range pending {
		if err := os.Rename(s.tmp, s.dest); err != nil {
			for _, rest := range pending[i:] {
				os.Remove(rest.tmp)
			}
			return fmt.Errorf("failed to move %s into place: %w", filepath.Base(s.dest), err)
		}
	}

	for _, name := range stale {
		if err := os.Remove(filepath.Join(dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to remove stale %s: %w", name, err)
		}
	}
	return nil
}

// staleFiles lists the YAML files in dir that this tool rendered earlier but
// that are no longer part of files. Files written by anyone else are left alone.
func staleFiles(dir string, files []generator.File) ([]string, error) {
	wanted := make(map[string]bool, len(files))
	for _, f := range files {
		wanted[f.Name] = true
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	var stale []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || wanted[name] || filepath.Ext(name) != ".yaml" || strings.HasPrefix(name, ".") {
			continue
		}
		generated, err := renderedByTool(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		if generated {
			stale = append(stale, name)
		}
	}
	return stale, nil
}

func renderedByTool(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}
	defer f.Close()

	line, err := bufio.NewReader(f).ReadString('\n')
	if err != nil && line == "" {
		return false, nil
	}
	return generator.IsGenerated(line), nil
}

// destination joins name under dir and refuses anything that escapes it.
func destination(dir, name string) (string, error) {
	if name == "" || filepath.IsAbs(name) || name != filepath.Base(name) {
		return "", fmt.Errorf("%w: invalid file name %q", models.ErrOutputTarget, name)
	}
	return filepath.Join(dir, name), nil
}

func stage(dest, content string) (string, error) {
	f, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("failed to stage %s: %w", filepath.Base(dest), err)
	}
	name := f.Name()

	_, err = f.WriteString(content)
	if err == nil {
		err = f.Sync()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Chmod(name, filePerm)
	}
	if err != nil {
		os.Remove(name)
		return "", fmt.Errorf("failed to stage %s: %w", filepath.Base(dest), err)
	}
	return name, nil
}

// Drift lists the files under path whose content differs from out. The
// generation timestamp is not compared. Missing files count as drift, and so
// do files in a directory target that Commit would remove.
func Drift(kind generator.TargetKind, path string, out *generator.Output) ([]string, error) {
	var drifted []string

	for _, f := range out.Files {
		dest := path
		label := path
		if kind == generator.TargetDirectory {
			var err error
			if dest, err = destination(path, f.Name); err != nil {
				return nil, err
			}
			label = f.Name
		}

		current, err := os.ReadFile(dest)
		if errors.Is(err, fs.ErrNotExist) {
			drifted = append(drifted, label)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", dest, err)
		}
		if stripTimestamp(string(current)) != stripTimestamp(f.Content) {
			drifted = append(drifted, label)
		}
	}

	if kind == generator.TargetDirectory {
		stale, err := staleFiles(path, out.Files)
		if err != nil {
			return nil, err
		}
		drifted = append(drifted, stale...)
	}

	sort.Strings(drifted)
	return drifted, nil
}

func stripTimestamp(content string) string {
	var sb strings.Builder
	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, generator.TimestampPrefix) {
			continue
		}
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String()
}
