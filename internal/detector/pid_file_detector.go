package detector

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	gopsproc "github.com/shirou/gopsutil/v4/process"
)

// FileName is the backend pid file inside the data directory.
const FileName = "backend.pid"

// Path returns the pid file path for dataDir.
func Path(dataDir string) string { return filepath.Join(dataDir, FileName) }

// Record is the content of a pid file: the pid on the first line, then a
// JSON meta line.
type Record struct {
	PID       int
	StartUnix int64
}

type pidMeta struct {
	StartUnix int64 `json:"start_unix"`
}

// WritePID records pid and its current start time at path.
func WritePID(path string, pid int) error {
	meta, err := json.Marshal(pidMeta{StartUnix: procStartUnix(pid)})
	if err != nil {
		return err
	}
	content := strconv.Itoa(pid) + "\n" + string(meta) + "\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return fmt.Errorf("write pidfile %s: %w", path, err)
	}
	return nil
}

// ReadPID parses the pid file at path. A missing file returns fs.ErrNotExist.
func ReadPID(path string) (Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Record{}, err
	}
	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	pid, err := strconv.Atoi(strings.TrimSpace(lines[0]))
	if err != nil || pid <= 0 {
		return Record{}, fmt.Errorf("invalid pid in %s: %q", path, lines[0])
	}
	rec := Record{PID: pid}
	if len(lines) >= 2 {
		var m pidMeta
		if err := json.Unmarshal([]byte(strings.TrimSpace(lines[1])), &m); err == nil {
			rec.StartUnix = m.StartUnix
		}
	}
	return rec, nil
}

// RemovePID deletes the pid file; a missing file is not an error.
func RemovePID(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// PIDFileDetector detects the process recorded in a pid file.
type PIDFileDetector struct {
	PIDFile string
}

// Alive is true only when the recorded process runs and started at the
// recorded time. A missing file, a missing start time or a reused pid is not alive.
func (d PIDFileDetector) Alive() (bool, error) {
	rec, err := ReadPID(d.PIDFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return rec.Alive(), nil
}

func (d PIDFileDetector) Describe() string { return "pidfile:" + d.PIDFile }

// Alive reports whether the recorded process still runs with the recorded
// start time. Without a recorded or readable start time the identity is
// unknown and Alive is false.
func (r Record) Alive() bool {
	if r.StartUnix <= 0 || !pidAlive(r.PID) {
		return false
	}
	return procStartUnix(r.PID) == r.StartUnix
}

// PIDDetector detects by a provided PID number.
type PIDDetector struct{ PID int }

func (d PIDDetector) Alive() (bool, error) { return pidAlive(d.PID), nil }
func (d PIDDetector) Describe() string     { return fmt.Sprintf("pid:%d", d.PID) }

func pidAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	ok, err := gopsproc.PidExists(int32(pid))
	return err == nil && ok
}

// procStartUnix returns the process start time in Unix seconds, or 0.
func procStartUnix(pid int) int64 {
	if pid <= 0 {
		return 0
	}
	p, err := gopsproc.NewProcess(int32(pid))
	if err != nil {
		return 0
	}
	ms, err := p.CreateTime()
	if err != nil || ms <= 0 {
		return 0
	}
	return ms / 1000
}
