package commands

import (
	"context"
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fivetwenty-io/discovery-client/internal/constants"
)

type methodSummary struct {
	ID         string `json:"id"         yaml:"id"`
	HTTPMethod string `json:"httpMethod" yaml:"httpMethod"`
	Path       string `json:"path"       yaml:"path"`
}

// NewMethodsCommand creates the methods command.
func NewMethodsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "methods API [VERSION]",
		Short: "List the methods of an API",
		Long:  "List every method of an API version. The preferred version is used when VERSION is omitted.",
		Args:  cobra.RangeArgs(1, 2), //nolint:mnd // API and optional version
		RunE: func(cmd *cobra.Command, args []string) error {
			version := ""
			if len(args) > 1 {
				version = args[1]
			}

			client, err := CreateClient()
			if err != nil {
				return err
			}

			api, err := client.DiscoveredAPI(context.Background(), args[0], version)
			if err != nil {
				return fmt.Errorf("failed to discover %s: %w", args[0], err)
			}

			methods := api.AllMethods()

			summaries := make([]methodSummary, 0, len(methods))
			for _, method := range methods {
				summaries = append(summaries, methodSummary{ID: method.ID, HTTPMethod: method.HTTPMethod, Path: method.Path})
			}

			switch viper.GetString("output") {
			case constants.FormatJSON:
				return writeJSON(cmd.OutOrStdout(), summaries)
			case constants.FormatYAML:
				return writeYAML(cmd.OutOrStdout(), summaries)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n\n", api.Name, api.Version, api.MethodBase())

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.Header("Method", "HTTP", "Path")

			for _, summary := range summaries {
				_ = table.Append(summary.ID, summary.HTTPMethod, summary.Path)
			}

			err = table.Render()
			if err != nil {
				return fmt.Errorf("failed to render table: %w", err)
			}

			return nil
		},
	}
}
