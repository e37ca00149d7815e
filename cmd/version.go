package cmd

import (
	"runtime"

	"github.com/spf13/cobra"
)

// Set at build time with -ldflags "-X github.com/harrybrwn/scout/cmd.version=..."
var (
	version = "dev"
	commit  = ""
	date    = ""
)

type VersionInfo struct {
	Version   string
	Commit    string
	Date      string
	GoVersion string
}

func GetVersionInfo() *VersionInfo {
	return &VersionInfo{
		Version:   version,
		Commit:    commit,
		Date:      date,
		GoVersion: runtime.Version(),
	}
}

func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			v := GetVersionInfo()
			cmd.Printf("%s %s\n", cmd.Root().Name(), v.Version)
			if v.Commit != "" {
				cmd.Printf("commit: %s\n", v.Commit)
			}
			if v.Date != "" {
				cmd.Printf("built:  %s\n", v.Date)
			}
			cmd.Printf("go:     %s\n", v.GoVersion)
		},
	}
}
