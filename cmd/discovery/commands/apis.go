package commands

import (
	"context"
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fivetwenty-io/discovery-client/internal/constants"
	"github.com/fivetwenty-io/discovery-client/pkg/discovery"
)

// NewAPIsCommand creates the apis command.
func NewAPIsCommand() *cobra.Command {
	var (
		name          string
		preferredOnly bool
	)

	cmd := &cobra.Command{
		Use:     "apis",
		Aliases: []string{"directory"},
		Short:   "List APIs in the discovery directory",
		Long:    "List the APIs and versions known to the discovery directory",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient()
			if err != nil {
				return err
			}

			items, err := client.DiscoveredAPIs(context.Background())
			if err != nil {
				return fmt.Errorf("failed to list APIs: %w", err)
			}

			filtered := filterDirectory(items, name, preferredOnly)

			switch viper.GetString("output") {
			case constants.FormatJSON:
				return writeJSON(cmd.OutOrStdout(), filtered)
			case constants.FormatYAML:
				return writeYAML(cmd.OutOrStdout(), filtered)
			default:
				return renderDirectoryTable(cmd, filtered)
			}
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "only list versions of this API")
	cmd.Flags().BoolVar(&preferredOnly, "preferred", false, "only list preferred versions")

	return cmd
}

func filterDirectory(items []discovery.DirectoryItem, name string, preferredOnly bool) []discovery.DirectoryItem {
	filtered := make([]discovery.DirectoryItem, 0, len(items))

	for _, item := range items {
		if name != "" && item.Name != name {
			continue
		}

		if preferredOnly && !item.Preferred {
			continue
		}

		filtered = append(filtered, item)
	}

	return filtered
}

func renderDirectoryTable(cmd *cobra.Command, items []discovery.DirectoryItem) error {
	if len(items) == 0 {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), "No APIs found")

		return err
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.Header("Name", "Version", "Title", "Preferred")

	for _, item := range items {
		preferred := ""
		if item.Preferred {
			preferred = constants.CheckMarkSymbol
		}

		_ = table.Append(item.Name, item.Version, truncate(item.Title), preferred)
	}

	err := table.Render()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}

func truncate(s string) string {
	runes := []rune(s)
	if len(runes) <= constants.DescriptionDisplayLength {
		return s
	}

	return string(runes[:constants.DescriptionDisplayLength-3]) + "..."
}
