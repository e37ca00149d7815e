package link

import (
	"regexp"
)

var packageVersionRe = regexp.MustCompile(`^(.*?)-(dev|\d.*)`)

// PackageToRequirement turns a package name with an optional version suffix
// into a requirement string. "Foo-1.2" becomes "Foo==1.2" and a name with no
// version is returned as is.
func PackageToRequirement(name string) string {
	m := packageVersionRe.FindStringSubmatch(name)
	if m == nil || m[2] == "" {
		return name
	}
	return m[1] + "==" + m[2]
}
