package detector

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadRoundTripForSelf(t *testing.T) {
	path := Path(t.TempDir())
	require.NoError(t, WritePID(path, os.Getpid()))

	rec, err := ReadPID(path)
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), rec.PID)
	assert.Positive(t, rec.StartUnix)
	assert.True(t, rec.Alive())

	alive, err := PIDFileDetector{PIDFile: path}.Alive()
	require.NoError(t, err)
	assert.True(t, alive)
}

func TestReusedPIDIsNotAlive(t *testing.T) {
	path := Path(t.TempDir())
	content := strconv.Itoa(os.Getpid()) + "\n{\"start_unix\":1}\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	alive, err := PIDFileDetector{PIDFile: path}.Alive()
	require.NoError(t, err)
	assert.False(t, alive, "start time mismatch means the pid was reused")
}

func TestUnknownStartTimeIsNotAlive(t *testing.T) {
	dir := t.TempDir()
	for name, content := range map[string]string{
		"pid-only":  strconv.Itoa(os.Getpid()) + "\n",
		"truncated": strconv.Itoa(os.Getpid()) + "\n{\"start_unix\":",
		"zero":      strconv.Itoa(os.Getpid()) + "\n{\"start_unix\":0}\n",
	} {
		path := filepath.Join(dir, name+".pid")
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		rec, err := ReadPID(path)
		require.NoError(t, err, name)
		assert.Zero(t, rec.StartUnix, name)
		assert.False(t, rec.Alive(), name)

		alive, err := PIDFileDetector{PIDFile: path}.Alive()
		require.NoError(t, err, name)
		assert.False(t, alive, "%s: a live pid of unknown identity must not count", name)
	}
}

func TestExitedProcessIsNotAlive(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires /bin/sh")
	}
	cmd := exec.Command("/bin/sh", "-c", "exit 0")
	require.NoError(t, cmd.Run())

	// Give the kernel a moment in case the pid is still being torn down.
	time.Sleep(20 * time.Millisecond)
	assert.False(t, PIDDetector{PID: cmd.Process.Pid}.mustAlive(t))
}

func TestMissingAndInvalidFiles(t *testing.T) {
	dir := t.TempDir()
	alive, err := PIDFileDetector{PIDFile: filepath.Join(dir, "none.pid")}.Alive()
	require.NoError(t, err)
	assert.False(t, alive)

	bad := filepath.Join(dir, "bad.pid")
	require.NoError(t, os.WriteFile(bad, []byte("not-a-number\n"), 0o600))
	_, err = PIDFileDetector{PIDFile: bad}.Alive()
	assert.Error(t, err)
}

func TestRemovePIDIgnoresMissing(t *testing.T) {
	path := Path(t.TempDir())
	require.NoError(t, RemovePID(path))
	require.NoError(t, WritePID(path, os.Getpid()))
	require.NoError(t, RemovePID(path))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "pidfile:/x/backend.pid", PIDFileDetector{PIDFile: "/x/backend.pid"}.Describe())
	assert.Equal(t, "pid:42", PIDDetector{PID: 42}.Describe())
	assert.False(t, PIDDetector{PID: 0}.mustAlive(t))
}

func (d PIDDetector) mustAlive(t *testing.T) bool {
	t.Helper()
	ok, err := d.Alive()
	require.NoError(t, err)
	return ok
}

// FuzzPIDFileDetectorContent ensures Alive does not panic on arbitrary content.
func FuzzPIDFileDetectorContent(f *testing.F) {
	f.Add([]byte("123\n"))
	f.Add([]byte("not-a-number"))
	f.Add([]byte("\n\n"))
	f.Add([]byte("1\n{\"start_unix\":\n"))

	f.Fuzz(func(t *testing.T, data []byte) {
		pf := filepath.Join(t.TempDir(), "pid.pid")
		_ = os.WriteFile(pf, data, 0o644)
		_, _ = PIDFileDetector{PIDFile: pf}.Alive()
	})
}
