// Command installer builds the flowa binary with version metadata baked
// in and copies it onto the caller's PATH.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

func main() {
	installDir := flag.String("path", "", "Custom install directory")
	flag.Parse()

	repoRoot, err := os.Getwd()
	if err != nil {
		fail("unable to determine working directory", err)
	}

	binary := "flowa"
	if runtime.GOOS == "windows" {
		binary += ".exe"
	}
	staging := filepath.Join(repoRoot, binary)

	fmt.Println("building flowa...")
	build := exec.Command("go", "build", "-ldflags", ldflags(repoRoot), "-o", staging, "./cmd/flowa")
	build.Dir = repoRoot
	build.Stdout = os.Stdout
	build.Stderr = os.Stderr
	if err := build.Run(); err != nil {
		fail("go build failed", err)
	}
	defer os.Remove(staging)

	target := *installDir
	if target == "" {
		target = defaultInstallDir()
	}
	if err := os.MkdirAll(target, 0o755); err != nil {
		fail("unable to create install directory", err)
	}

	dest := filepath.Join(target, binary)
	fmt.Printf("installing to %s\n", dest)
	if err := copyFile(staging, dest); err != nil {
		fail("failed to copy binary (try elevated permissions)", err)
	}
	if runtime.GOOS != "windows" {
		if err := os.Chmod(dest, 0o755); err != nil {
			fail("failed to set executable bit", err)
		}
	}

	fmt.Println("done; run 'flowa --version' to verify it is on your PATH")
}

// ldflags stamps pkg/version's vars with the build date and, when the
// repo is a git checkout, the current commit.
func ldflags(repoRoot string) string {
	flags := []string{
		fmt.Sprintf("-X flowa/pkg/version.BuildDate=%s", time.Now().UTC().Format("2006-01-02")),
	}
	rev := exec.Command("git", "rev-parse", "--short", "HEAD")
	rev.Dir = repoRoot
	if out, err := rev.Output(); err == nil {
		flags = append(flags, fmt.Sprintf("-X flowa/pkg/version.GitCommit=%s", strings.TrimSpace(string(out))))
	}
	return strings.Join(flags, " ")
}

func defaultInstallDir() string {
	switch runtime.GOOS {
	case "windows":
		if base := os.Getenv("LOCALAPPDATA"); base != "" {
			return filepath.Join(base, "Programs", "Flowa")
		}
		return filepath.Join(os.TempDir(), "Flowa")
	default:
		return "/usr/local/bin"
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}

func fail(msg string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	os.Exit(1)
}
