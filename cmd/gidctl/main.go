package main

import (
	"os"

	gidctlcmd "github.com/telekom/gcloud-identity/pkg/gidctl/cmd"
)

func main() {
	root := gidctlcmd.NewRootCommand(gidctlcmd.DefaultConfig())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
