package build

import "regexp"

var (
	// Version додатку (встановлюється через ldflags)
	Version = "dev"

	// GitCommit хеш коміту (встановлюється через ldflags)
	GitCommit = "unknown"

	// BuildTime час збірки (встановлюється через ldflags)
	BuildTime = "unknown"
)

var commitSHA = regexp.MustCompile(`^[0-9a-f]{40}$`)

// CommitSHA повертає хеш коміту або "unknown", якщо збірка не з ldflags
func CommitSHA() string {
	if commitSHA.MatchString(GitCommit) {
		return GitCommit
	}
	return "unknown"
}

// Info повертає інформацію про білд
func Info() map[string]string {
	return map[string]string{
		"version":    Version,
		"git_commit": CommitSHA(),
		"build_time": BuildTime,
	}
}
