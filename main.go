package main

import "go.aimuz.me/clearsight/internal/cli"

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.Version, cli.GitCommit, cli.BuildDate = version, commit, date
	cli.Execute()
}
