package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/Makepad-fr/workpanel/internal/cli"
)

func main() {
	// Root flags (apply to every subcommand)
	server := flag.String("server", "", "backend URL (overrides WORKPANEL_BACKEND_URL)")
	theme := flag.String("theme", "", "classic, neon or mono (overrides WORKPANEL_THEME)")
	group := flag.Bool("group", false, "group task lists by priority")
	flag.Parse()

	// Hand the remaining args to the CLI runner.
	code := cli.Run(flag.Args(), cli.Options{
		Group:  *group,
		Server: *server,
		Theme:  *theme,
	})
	if code != 0 {
		fmt.Fprintln(os.Stderr)
	}
	os.Exit(code)
}
