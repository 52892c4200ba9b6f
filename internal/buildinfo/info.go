package buildinfo

import "fmt"

var (
	Version    = "v1.0.0"
	CommitHash = "unknown"
)

type Info struct {
	About      string `json:"about,omitempty"`
	Service    string `json:"service,omitempty"`
	Version    string `json:"version,omitempty"`
	CommitHash string `json:"commit_hash,omitempty"`
}

func GetBuildInfo() Info {
	return Info{
		About:      "https://github.com/sasank-xyz/github-for-jira",
		Service:    "github-for-jira",
		Version:    Version,
		CommitHash: CommitHash,
	}
}

// UserAgent is sent with every request to GitHub.
func UserAgent() string {
	return fmt.Sprintf("github-for-jira/%s (commit=%s)", Version, CommitHash)
}
