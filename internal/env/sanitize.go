package env

// AppImageMarker is set by the AppImage runtime when the launcher runs from a
// self-mounting bundle.
const AppImageMarker = "APPIMAGE"

// OriginalPathVar holds the PATH saved by the bundle's AppRun shim before it
// prepended the bundle directories.
const OriginalPathVar = "APPIMAGE_ORIGINAL_PATH"

// BundleVars are injected by the bundle so the launcher's own GTK/WebKit stack
// finds its libraries. An independently linked backend crashes at load time
// when it inherits them.
var BundleVars = []string{
	// library search path and preload list
	"LD_LIBRARY_PATH",
	"LD_PRELOAD",
	// icon, theme and module directories
	"GTK_PATH",
	"GTK_EXE_PREFIX",
	"GTK_DATA_PREFIX",
	"GTK_THEME",
	"GTK_IM_MODULE_FILE",
	"GDK_PIXBUF_MODULE_FILE",
	"GDK_PIXBUF_MODULEDIR",
	"GIO_MODULE_DIR",
	"GIO_EXTRA_MODULES",
	"GSETTINGS_SCHEMA_DIR",
	"GST_PLUGIN_SYSTEM_PATH",
	"GST_PLUGIN_SYSTEM_PATH_1_0",
	"QT_PLUGIN_PATH",
	"PYTHONHOME",
	"PERLLIB",
	// bundle root and image markers
	"APPDIR",
	"APPIMAGE",
	"OWD",
	// original argv[0]
	"ARGV0",
	OriginalPathVar,
}

// Sanitize returns the environment the backend should run with. On Linux,
// inside an AppImage, bundle variables are removed and the saved PATH is
// restored. Everywhere else base is returned unchanged.
func Sanitize(base []string, goos string) []string {
	if goos != "linux" || !InAppImage(base) {
		return base
	}
	m := Parse(base)
	origPath, hasOrig := m[OriginalPathVar]
	for _, k := range BundleVars {
		delete(m, k)
	}
	if hasOrig && origPath != "" {
		m["PATH"] = origPath
	}
	return m.List()
}

// InAppImage reports whether the marker variable is present and non-empty.
func InAppImage(kvs []string) bool {
	return Parse(kvs)[AppImageMarker] != ""
}
