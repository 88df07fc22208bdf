package main

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"bugshot-cli/internal/cli"
	"bugshot-cli/internal/logging"
	"bugshot-cli/internal/store"

	"github.com/joho/godotenv"
)

func isPageURL(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func rewriteQuickAddArgs(argv []string) []string {
	// Convenience: `bugshot <url>` works like `bugshot --url <url>`.
	//
	// Cobra treats the first non-flag token as a subcommand, so we rewrite argv before parsing.
	// Persistent flags may come first (e.g. `bugshot --format edn https://...`), so find the
	// first positional token rather than looking at argv[1].
	if len(argv) < 2 {
		return argv
	}

	valueFlags := map[string]bool{
		"--config-dir": true,
		"--format":     true,
		"--token":      true,
		"--api-url":    true,
		"--url":        true,
		"--title":      true,
		"--selection":  true,
		"--favicon":    true,
		"--bridge":     true,
	}

	for i := 1; i < len(argv); i++ {
		a := strings.TrimSpace(argv[i])
		if a == "" {
			continue
		}
		if a == "--" {
			if i+1 < len(argv) && isPageURL(argv[i+1]) {
				out := make([]string, 0, len(argv))
				out = append(out, argv[:i]...)
				out = append(out, "--url")
				out = append(out, argv[i+1:]...)
				return out
			}
			return argv
		}

		if strings.HasPrefix(a, "-") {
			if strings.Contains(a, "=") {
				continue
			}
			if valueFlags[a] {
				i++
			}
			continue
		}

		if isPageURL(a) {
			out := make([]string, 0, len(argv)+1)
			out = append(out, argv[:i]...)
			out = append(out, "--url")
			out = append(out, argv[i:]...)
			return out
		}
		return argv
	}

	return argv
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		os.Stderr.WriteString("warning: .env: " + err.Error() + "\n")
	}

	if dir, err := store.ConfigDir(); err == nil {
		debug := strings.TrimSpace(os.Getenv("BUGSHOT_DEBUG")) != ""
		if err := logging.Init(dir, debug); err != nil {
			os.Stderr.WriteString("warning: " + err.Error() + "\n")
		}
		defer logging.Close()
	}

	os.Args = rewriteQuickAddArgs(os.Args)

	cmd := cli.NewRootCmd()
	if err := cmd.Execute(); err != nil {
		logging.Close()
		os.Exit(1)
	}
}
