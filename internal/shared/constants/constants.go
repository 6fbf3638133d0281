package constants

import (
	"io/fs"
	"time"
)

const (
	// DefaultDirPerm is the default permission used when creating directories.
	DefaultDirPerm fs.FileMode = 0o755
	// DefaultFilePerm is the default permission used when writing config files.
	DefaultFilePerm fs.FileMode = 0o600
)

const (
	// MaxResponseBytes caps how much of an upstream response body we decode.
	MaxResponseBytes = 4 << 20
	// MaxRequestBytes caps inbound JSON and form bodies.
	MaxRequestBytes = 1 << 20
	// DefaultRequestTimeout bounds a single outbound scanner or feed call.
	DefaultRequestTimeout = 120 * time.Second
	// DefaultJobTimeout bounds an asynchronous scan job.
	DefaultJobTimeout = 180 * time.Second
	// DefaultMaxRunningJobs caps concurrently running scan jobs.
	DefaultMaxRunningJobs = 8
	// DefaultMaxJobs is how many scan jobs are kept in memory.
	DefaultMaxJobs = 1000
)
