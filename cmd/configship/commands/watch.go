package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var watchFetch bool

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow template updates",
	Long: `Subscribe to the server's update stream and print a line for every
template change. Reconnects automatically until interrupted.

Examples:
  configship watch --context prod
  configship watch --fetch`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if !quiet {
			fmt.Println("Watching for template updates (Ctrl+C to stop)")
		}

		for update := range c.Watch(ctx) {
			stamp := time.Now().Format("2006-01-02 15:04:05")
			fmt.Printf("%s  %-8s  etag=%s\n", stamp, update.Event, update.ETag)

			if watchFetch && update.Event == "template" {
				tpl, _, err := c.GetTemplate(ctx, "")
				if err != nil {
					fmt.Fprintf(os.Stderr, "Failed to fetch template: %v\n", err)
					continue
				}
				fmt.Printf("%s  version %d: %s\n", stamp,
					tpl.Version.VersionNumber, tpl.Version.Description)
			}
		}

		// The channel closes on context cancellation or a terminal auth
		// error; only the latter is worth reporting.
		if ctx.Err() == nil {
			return fmt.Errorf("stream closed, check credentials")
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().BoolVar(&watchFetch, "fetch", false, "Fetch the template after each update")
}
