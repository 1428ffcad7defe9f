package buildinfo

import (
	"fmt"
	"runtime/debug"
	"strings"
)

// Info is what the Go toolchain recorded about the running binary.
type Info struct {
	Version   string
	Revision  string
	Modified  bool
	Tags      string
	GoVersion string
}

var readBuildInfo = debug.ReadBuildInfo

// Read returns the build information, with Version "dev" when the module
// version is unset.
func Read() Info {
	info := Info{Version: "dev"}
	bi, ok := readBuildInfo()
	if !ok || bi == nil {
		return info
	}
	if v := bi.Main.Version; v != "" && v != "(devel)" {
		info.Version = v
	}
	info.GoVersion = bi.GoVersion
	for _, setting := range bi.Settings {
		switch setting.Key {
		case "-tags":
			info.Tags = setting.Value
		case "vcs.revision":
			info.Revision = setting.Value
		case "vcs.modified":
			info.Modified = setting.Value == "true"
		}
	}
	return info
}

// String formats the version followed by whatever extra details are known,
// e.g. "v1.2.0 (rev 1a2b3c4-dirty, tags: netgo)".
func (i Info) String() string {
	var extra []string
	if i.Revision != "" {
		rev := i.Revision
		if len(rev) > 7 {
			rev = rev[:7]
		}
		if i.Modified {
			rev += "-dirty"
		}
		extra = append(extra, "rev "+rev)
	}
	if i.Tags != "" {
		extra = append(extra, "tags: "+i.Tags)
	}
	if len(extra) == 0 {
		return i.Version
	}
	return fmt.Sprintf("%s (%s)", i.Version, strings.Join(extra, ", "))
}
