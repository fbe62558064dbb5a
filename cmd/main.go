/*
Package main is the entry point of the pad server.

The root command runs the server (same as "serve"); "migrate" manages the
session table schema when sessions are stored in PostgreSQL.
*/
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "epguest",
	Short: "Collaborative pad server with read-only guest access",
	Long: `epguest serves collaborative pads. When require_authentication is set,
visitors without credentials are logged in as a read-only guest and can switch
to a real account through /ep_guest/login.

Settings are read from the file given with --config and from EPGUEST_*
environment variables. Send SIGHUP to reload users and plugin settings.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "settings file (YAML, JSON or TOML)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		os.Exit(1)
	}
}
