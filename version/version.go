package version

import (
	"fmt"
	"runtime"
)

// Version information
var (
	// Version of the backend - set at build time with -ldflags
	Version = "0.1.0"
	// GitCommit is the git commit that was compiled - set at build time
	GitCommit = ""
	// BuildDate is the date of the build - set at build time
	BuildDate = ""
	// GoVersion is the version of go used to compile
	GoVersion = runtime.Version()
	// Platform is the operating system and architecture combination
	Platform = fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH)
)

const (
	// Name is the addon name reported to hosting programs
	Name = "defacto.backend"
	// AppName is the name of the CLI binary
	AppName = "defacto-backend"
	// Description of the application
	Description = "Defacto backend HTTP routing core"
)

// Info returns a formatted version string with build information
func Info() string {
	s := fmt.Sprintf("%s version %s", AppName, Version)
	if GitCommit != "" {
		s += fmt.Sprintf("\nGit commit: %s", GitCommit)
	}
	if BuildDate != "" {
		s += fmt.Sprintf("\nBuild date: %s", BuildDate)
	}
	s += fmt.Sprintf("\nGo version: %s", GoVersion)
	s += fmt.Sprintf("\nPlatform: %s", Platform)
	return s
}
