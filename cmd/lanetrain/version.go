package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/lanetrain/internal/version"
)

type versionReport struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	BuildTime string `json:"build_time,omitempty"`
	Modified  bool   `json:"modified,omitempty"`
	Go        string `json:"go"`
	Platform  string `json:"platform"`
}

func versionCmd() *cli.Command {
	var (
		short  bool
		asJSON bool
	)
	return &cli.Command{
		Name:  "version",
		Usage: "Print the lanetrain build identity",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "short", Aliases: []string{"s"}, Usage: "print only the version and short commit", Destination: &short},
			&cli.BoolFlag{Name: "json", Usage: "print the build identity as JSON", Destination: &asJSON},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return writeVersion(os.Stdout, version.Resolve(), short, asJSON)
		},
	}
}

func writeVersion(w io.Writer, info version.Info, short, asJSON bool) error {
	r := versionReport{
		Version:   info.Version,
		Commit:    info.Commit,
		BuildTime: info.BuildTime,
		Modified:  info.Modified,
		Go:        runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	switch {
	case asJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case short:
		_, err := fmt.Fprintln(w, version.String())
		return err
	}
	fmt.Fprintf(w, "lanetrain %s\n", r.Version)
	if r.Commit != "" {
		dirty := ""
		if r.Modified {
			dirty = " (modified)"
		}
		fmt.Fprintf(w, "  commit:   %s%s\n", r.Commit, dirty)
	}
	if r.BuildTime != "" {
		fmt.Fprintf(w, "  built:    %s\n", r.BuildTime)
	}
	_, err := fmt.Fprintf(w, "  go:       %s %s\n", r.Go, r.Platform)
	return err
}
