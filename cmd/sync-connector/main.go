package main

import (
	"os"

	"github.com/spf13/cobra"
)

func NewRootCommand() *cobra.Command {

	var listenAddr string
	var resources []string
	var allResources bool
	var resourceType string
	var resourceID string
	var parentID string

	// rootCmd represents the base command when called without any subcommands
	var rootCmd = &cobra.Command{
		Use:          "sync-connector",
		SilenceUsage: true,
	}

	var apiServerCmd = &cobra.Command{
		Use:   "api_server",
		Short: "Webhook receiver and sync API server",
		Run: func(cmd *cobra.Command, args []string) {
			startSyncConnectorApiServer(listenAddr)
		},
	}

	var syncCmd = &cobra.Command{
		Use:   "sync",
		Short: "Run one full sync and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd.OutOrStdout(), resources, allResources)
		},
	}

	var syncResourceCmd = &cobra.Command{
		Use:   "sync_resource",
		Short: "Refresh a single object from the provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSyncResource(cmd.OutOrStdout(), resourceType, resourceID, parentID)
		},
	}

	var statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Print the number of mirrored records per resource type",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printStatus(cmd.OutOrStdout())
		},
	}

	rootCmd.AddCommand(apiServerCmd)
	apiServerCmd.Flags().StringVarP(&listenAddr, "listen-addr", "l", ":8080", "Hostname:port")

	rootCmd.AddCommand(syncCmd)
	syncCmd.Flags().StringSliceVarP(&resources, "resources", "r", nil, "Resource types to sync (defaults to the core types)")
	syncCmd.Flags().BoolVarP(&allResources, "all", "a", false, "Sync every resource type the provider supports")
	syncCmd.MarkFlagsMutuallyExclusive("resources", "all")

	rootCmd.AddCommand(syncResourceCmd)
	syncResourceCmd.Flags().StringVarP(&resourceType, "type", "t", "", "Resource type")
	syncResourceCmd.Flags().StringVarP(&resourceID, "id", "i", "", "Provider object id")
	syncResourceCmd.Flags().StringVarP(&parentID, "parent", "p", "", "Parent object id for dependent resource types")
	syncResourceCmd.MarkFlagRequired("type")
	syncResourceCmd.MarkFlagRequired("id")

	rootCmd.AddCommand(statusCmd)

	return rootCmd
}

func main() {
	cmd := NewRootCommand()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
