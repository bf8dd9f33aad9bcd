package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	cli "github.com/spf13/pflag"

	"pantry/internal/ipc"
)

func main() {
	socket := cli.StringP("socket", "s", ipc.DefaultSocketPath, "Control socket of a running pantry")
	timeout := cli.DurationP("timeout", "t", 30*time.Second, "How long to wait for the reply")
	cli.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: pantry-ctl [flags] <command...>\n  e.g. pantry-ctl add 2 milk expires 2025-12-25\n\n")
		cli.PrintDefaults()
	}
	cli.Parse()

	text := strings.Join(cli.Args(), " ")
	if strings.TrimSpace(text) == "" {
		cli.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	reply, err := ipc.Send(ctx, *socket, text)
	if err != nil {
		fmt.Fprintln(os.Stderr, "pantry-ctl:", err)
		cancel()
		os.Exit(1)
	}
	fmt.Println(reply)
}
