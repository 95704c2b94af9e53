package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/goconfigship/internal/version"
)

var versionCheck string

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show client and server versions",
	Long: `Show the CLI version and, when a server is reachable, the server
version. With --check, verify the server version against a semver
constraint and exit non-zero when it does not match.

Examples:
  configship version
  configship version --check ">= 1.2"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("configship %s\n", version.Version)

		c, err := newClient()
		if err != nil {
			// Without a configured server the local version is all
			// there is to show.
			if versionCheck != "" {
				return err
			}
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if versionCheck != "" {
			ok, serverVersion, err := c.CheckServerVersion(ctx, versionCheck)
			if err != nil {
				return fmt.Errorf("version check failed: %w", err)
			}
			fmt.Printf("server    %s\n", serverVersion)
			if !ok {
				return fmt.Errorf("server version %s does not satisfy %q", serverVersion, versionCheck)
			}
			if !quiet {
				fmt.Printf("Server version satisfies %q\n", versionCheck)
			}
			return nil
		}

		info, err := c.ServerInfo(ctx)
		if err != nil {
			fmt.Printf("server    unreachable (%v)\n", err)
			return nil
		}
		fmt.Printf("server    %s\n", info.Version)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)

	versionCmd.Flags().StringVar(&versionCheck, "check", "", "Semver constraint the server version must satisfy")
}
