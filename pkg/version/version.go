package version

import (
	"fmt"
	"strings"

	"github.com/blang/semver/v4"
)

var (
	// Raw is the string representation of the version. This will be replaced
	// with the calculated version at build time.
	Raw = "v0.1.0"

	// Version is the semver representation of the version.
	Version = semver.MustParse(strings.TrimLeft(Raw, "v"))

	// String is the human-friendly representation of the version.
	String = fmt.Sprintf("kpm %s", Raw)

	// UserAgent identifies requests sent to the API server.
	UserAgent = fmt.Sprintf("kpm/%s", Version)
)
