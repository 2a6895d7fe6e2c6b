package cmd

import (
	"fmt"
	goruntime "runtime"
	"runtime/debug"

	"github.com/dotcommander/scopa/internal/storage"
)

// BuildInfo is injected by the build pipeline.
type BuildInfo struct {
	Version   string
	CommitSHA string
}

// versionTemplate renders name, version, short commit, Go version, and
// OS/arch on a single line.
func versionTemplate(b BuildInfo) string {
	v := "{{.Name}} {{.Version}}"
	if len(b.CommitSHA) >= storage.SHA1Short {
		v += " (" + b.CommitSHA[:storage.SHA1Short] + ")"
	}
	return v + fmt.Sprintf(" %s %s/%s\n", goruntime.Version(), goruntime.GOOS, goruntime.GOARCH)
}

// normalizeBuildInfo fills missing version and commit fields from the
// metadata the Go toolchain embeds in the binary.
func normalizeBuildInfo(b BuildInfo) BuildInfo {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		if b.Version == "" {
			b.Version = "unknown"
		}
		return b
	}

	if b.Version == "" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		b.Version = info.Main.Version
	}

	var rev string
	dirty := false
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}

	if b.CommitSHA == "" {
		b.CommitSHA = rev
	}

	if b.Version == "" {
		b.Version = "dev"
		if len(rev) >= storage.SHA1Short {
			b.Version += "-" + rev[:storage.SHA1Short]
		}
		if dirty {
			b.Version += "-dirty"
		}
	}

	return b
}
