package main

import "github.com/sasank-xyz/github-for-jira/cmd"

func main() {
	cmd.Execute()
}
