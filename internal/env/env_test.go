package env

import (
	"reflect"
	"strings"
	"testing"
)

func TestMergeOrderAndExpansion(t *testing.T) {
	e := New()
	e.FromList([]string{"HOME=/home/u", "A=base"})
	e.Var["A"] = "global"
	e.Var["DATA"] = "${HOME}/data"
	got := e.Merge([]string{"B=per", "=skipped", "noequals"})
	want := []string{"A=global", "B=per", "DATA=/home/u/data", "HOME=/home/u"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Merge: got %v want %v", got, want)
	}
}

func TestMergeExtraOverridesVar(t *testing.T) {
	e := New()
	e.FromList(nil)
	e.Var["K"] = "1"
	got := e.Merge([]string{"K=2"})
	if !reflect.DeepEqual(got, []string{"K=2"}) {
		t.Fatalf("got %v", got)
	}
	if got := e.Merge(nil); !reflect.DeepEqual(got, []string{"K=1"}) {
		t.Fatalf("extra entries must not stick between merges, got %v", got)
	}
}

func TestSanitizeWithoutMarkerIsUnchanged(t *testing.T) {
	base := []string{"LD_LIBRARY_PATH=/x", "PATH=/usr/bin", "GTK_PATH=/y"}
	got := Sanitize(base, "linux")
	if !reflect.DeepEqual(got, base) {
		t.Fatalf("expected unchanged env, got %v", got)
	}
}

func TestSanitizeStripsBundleVars(t *testing.T) {
	base := []string{
		"APPIMAGE=/home/u/App.AppImage",
		"APPDIR=/tmp/.mount_App",
		"LD_LIBRARY_PATH=/tmp/.mount_App/usr/lib",
		"LD_PRELOAD=/tmp/.mount_App/libfoo.so",
		"GDK_PIXBUF_MODULE_FILE=/tmp/.mount_App/loaders.cache",
		"GSETTINGS_SCHEMA_DIR=/tmp/.mount_App/schemas",
		"ARGV0=App.AppImage",
		"OWD=/home/u",
		"HOME=/home/u",
		"PATH=/tmp/.mount_App/usr/bin:/usr/bin",
	}
	got := Parse(Sanitize(base, "linux"))
	for _, k := range BundleVars {
		if _, ok := got[k]; ok {
			t.Fatalf("%s survived sanitize", k)
		}
	}
	if got["HOME"] != "/home/u" {
		t.Fatalf("unrelated variable lost: %v", got)
	}
	if got["PATH"] != "/tmp/.mount_App/usr/bin:/usr/bin" {
		t.Fatalf("PATH changed without saved original: %q", got["PATH"])
	}
}

func TestSanitizeRestoresOriginalPath(t *testing.T) {
	base := []string{
		"APPIMAGE=/a.AppImage",
		"PATH=/tmp/.mount/usr/bin:/usr/bin",
		OriginalPathVar + "=/usr/local/bin:/usr/bin",
	}
	got := Parse(Sanitize(base, "linux"))
	if got["PATH"] != "/usr/local/bin:/usr/bin" {
		t.Fatalf("PATH not restored: %q", got["PATH"])
	}
	if _, ok := got[OriginalPathVar]; ok {
		t.Fatalf("%s should be removed", OriginalPathVar)
	}
}

func TestSanitizeNoopOffLinux(t *testing.T) {
	base := []string{"APPIMAGE=/a", "LD_LIBRARY_PATH=/x"}
	for _, goos := range []string{"darwin", "windows"} {
		if got := Sanitize(base, goos); !reflect.DeepEqual(got, base) {
			t.Fatalf("%s: expected unchanged env, got %v", goos, got)
		}
	}
}

func TestInAppImageEmptyMarker(t *testing.T) {
	if InAppImage([]string{"APPIMAGE="}) {
		t.Fatalf("empty marker must not count")
	}
}

// FuzzSanitize checks that no bundle variable ever survives once the marker is set.
func FuzzSanitize(f *testing.F) {
	f.Add([]byte("LD_LIBRARY_PATH=/x\nPATH=/bin"))
	f.Add([]byte("GTK_PATH=a=b\n=\nAPPDIR"))
	f.Fuzz(func(t *testing.T, b []byte) {
		base := append(strings.Split(string(b), "\n"), "APPIMAGE=/fuzz.AppImage")
		out := Sanitize(base, "linux")
		m := Parse(out)
		for _, k := range BundleVars {
			if _, ok := m[k]; ok {
				t.Fatalf("%s survived: %v", k, out)
			}
		}
		for _, kv := range out {
			if !strings.Contains(kv, "=") || strings.HasPrefix(kv, "=") {
				t.Fatalf("bad pair: %q", kv)
			}
		}
	})
}
