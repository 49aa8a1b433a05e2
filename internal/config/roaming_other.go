//go:build !windows

package config

func userRoamingDir() (string, bool) { return "", false }
