// resolverguard adds impersonation guards to the AppSync resolvers of a
// generated CloudFormation template.
//
// Installation:
//
//	go build -o resolverguard ./cmd/resolverguard
//	mv resolverguard /usr/local/bin/
//
// Usage:
//
//	resolverguard apply -f build/stacks/Widget.json --in-place
//	resolverguard plan -f build/stacks/Widget.json -o json
//	resolverguard inspect -f build/stacks/Widget.json --resource QuerylistWidgetsResolver
//	resolverguard version
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version    = "dev"
	outputFmt  string
	configFile string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "resolverguard",
		Short: "Guard AppSync resolvers against impersonated callers",
		Long: `resolverguard rewrites the resolvers of a generated AppSync template.

Query resolvers get a block that swaps the subject claim for the
impersonated subject. Mutation resolvers get a block that rejects
impersonated callers. All other resources are left as they are.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "table", "Output format: table, json, yaml")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("mode", "compose", "Rewrite mode: compose (skip guards already present) or concat (always prepend)")
	rootCmd.PersistentFlags().Bool("strict", true, "Fail on resolvers missing a mapping template instead of skipping them")
	rootCmd.PersistentFlags().String("sentinel-group", "Impersonated-User", "Group that marks an impersonated session")
	rootCmd.PersistentFlags().String("groups-claim", "cognito:groups", "Claim holding the caller's groups")

	// Add subcommands
	rootCmd.AddCommand(applyCmd())
	rootCmd.AddCommand(planCmd())
	rootCmd.AddCommand(inspectCmd())
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the resolverguard version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return outputResult(VersionResult{Version: version}, outputFmt)
		},
	}
}
