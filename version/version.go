package version

// 版本信息在构建时通过-ldflags "-X github.com/dszqbsm/xoso/version.Version=..."注入

import (
	"fmt"
	"io"
)

var (
	BuildTS   = "None"
	GitHash   = "None"
	GitBranch = "None"
	Version   = "dev"
)

// 获取带短提交哈希的版本号
func GetVersion() string {
	if GitHash == "" || GitHash == "None" {
		return Version
	}
	h := GitHash
	if len(h) > 7 {
		h = h[:7]
	}
	return fmt.Sprintf("%s-%s", Version, h)
}

// 将全部版本信息写入w
func Fprint(w io.Writer) {
	fmt.Fprintln(w, "Version:          ", GetVersion())
	fmt.Fprintln(w, "Git Branch:       ", GitBranch)
	fmt.Fprintln(w, "Git Commit:       ", GitHash)
	fmt.Fprintln(w, "Build Time (UTC): ", BuildTS)
}
