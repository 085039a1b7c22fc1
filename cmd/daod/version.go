package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

// gitCommit is stamped at build time via -ldflags "-X main.gitCommit=...".
var gitCommit string

func fullVersion() string {
	if len(gitCommit) >= 8 {
		return fmt.Sprintf("%s-%s", version, gitCommit[:8])
	}
	return version
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the daod version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(fullVersion())
	},
}
