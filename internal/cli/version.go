package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags.
var Version = "0.1.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(styles.Title.Render("subword"))
		fmt.Printf("%s %s\n", styles.Label.Render("Version:"), styles.Value.Render(Version))
		fmt.Printf("%s %s\n", styles.Label.Render("Go version:"), styles.Value.Render(runtime.Version()))
		fmt.Printf("%s %s/%s\n", styles.Label.Render("Platform:"), styles.Value.Render(runtime.GOOS), styles.Value.Render(runtime.GOARCH))
	},
}
