//go:build !windows

package main

func attachConsole() bool { return false }
