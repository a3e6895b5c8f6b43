// Package cmd contains the schoolscout CLI: an interactive chat mode,
// a document ingest pipeline, and session management.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "schoolscout",
	Short: "schoolscout - conversational private school search",
	Long: `schoolscout is a conversational assistant for finding private
schools in a configured area. It answers questions from indexed school
documents and can look up travel times to campuses.

Running schoolscout without arguments starts interactive chat mode.`,
	SilenceUsage: true,
	RunE:         runChat,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
