// Command deft wraps the deft.Ctx.Update operation for manual testing. It
// gives the resolver, store, and registry generator a runnable entry point.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/cgay/deft"
	"github.com/cgay/deft/internal/catalog"
)

func main() {
	wd, err := os.Getwd()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to get working directory:", err)
		os.Exit(1)
	}
	c := &Config{
		Args:       os.Args,
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
		WorkingDir: wd,
	}
	os.Exit(c.Run())
}

// Config specifies a full configuration for a deft execution.
type Config struct {
	WorkingDir     string
	Args           []string
	Stdout, Stderr io.Writer
}

// Run executes "deft update" and returns a process exit code.
func (c *Config) Run() int {
	fs := flag.NewFlagSet("deft", flag.ContinueOnError)
	fs.SetOutput(c.Stderr)
	catalogPath := fs.String("catalog", "catalog.toml", "path to the catalog.toml file")
	global := fs.Bool("global", false, "install into the per-user packages root instead of the workspace's")
	platform := fs.String("platform", "", "platform tag for the missing-registry-coverage report (defaults to GOOS-GOARCH)")
	verbose := fs.Bool("v", false, "enable resolver trace logging")

	if err := fs.Parse(c.Args[1:]); err != nil {
		return 1
	}

	errLogger := log.New(c.Stderr, "", 0)

	cat, err := catalog.LoadFile(*catalogPath)
	if err != nil {
		errLogger.Println("deft:", err)
		return exitCodeFor(err)
	}
	if err := cat.Validate(); err != nil {
		errLogger.Println("deft:", err)
		return exitCodeFor(err)
	}

	if *platform == "" {
		*platform = deft.DefaultPlatform()
	}
	ctx := &deft.Ctx{Global: *global, Platform: *platform}
	if *verbose {
		ctx.TraceLogger = errLogger
	}

	result, err := ctx.Update(c.WorkingDir, cat)
	if err != nil {
		errLogger.Println("deft:", err)
		return exitCodeFor(err)
	}

	for _, w := range result.Warnings {
		errLogger.Println("warning:", w)
	}
	fmt.Fprintf(c.Stdout, "resolved %d release(s), installed %d, wrote %d registry entr%s\n",
		len(result.Solution), len(result.Installed), result.Registry.Written, plural(result.Registry.Written))
	for _, name := range result.Registry.MissingForPlatform {
		fmt.Fprintf(c.Stdout, "library %q has no LID for platform %q\n", name, ctx.Platform)
	}
	return 0
}

func plural(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}

// exitCodeFor maps any error to deft's one non-zero exit code.
func exitCodeFor(err error) int {
	return 1
}
