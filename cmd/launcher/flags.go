package main

// RootFlags are persistent flags shared by every command. Values are read
// through config.Load, which only applies flags the user actually set.
type RootFlags struct {
	ConfigPath  string
	Debug       bool
	DataDir     string
	ResourceDir string
	Backend     string
	MetricsAddr string
	LogLevel    string
	LogFormat   string
	LogFile     string
}

type PowerFlags struct {
	DryRun bool
}
