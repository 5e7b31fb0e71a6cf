// sftpsweep applies a retention policy to a remote SFTP tree.
//
// Files in a profile's parent folder are moved into a mirrored archive
// folder once they are old enough, and archived files are deleted once
// they pass the delete threshold.
//
// Usage:
//
//	# Run one profile now
//	sftpsweep nightly
//
//	# Use a specific configuration file
//	sftpsweep nightly --config /etc/sftpsweep/config.yaml
//
//	# Run profiles on their cron schedules until SIGINT/SIGTERM
//	sftpsweep daemon start nightly hourly
//
//	# Show recent runs
//	sftpsweep history nightly --limit 20
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := execute(ctx, newRootCmd(), os.Args[1:], os.Stderr)
	stop()
	os.Exit(code)
}
