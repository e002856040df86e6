package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/fivetwenty-io/discovery-client/internal/constants"
	"github.com/fivetwenty-io/discovery-client/pkg/discovery"
)

// lookupFlags selects the API and version a method id is resolved against.
type lookupFlags struct {
	api     string
	version string
}

func (f *lookupFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.api, "api", "", "API name (defaults to the first segment of the method id)")
	cmd.Flags().StringVar(&f.version, "api-version", "", "API version (defaults to the preferred version)")
}

func (f *lookupFlags) resolve(ctx context.Context, client discovery.Client, methodID string) (*discovery.Method, error) {
	method, err := client.DiscoveredMethod(ctx, methodID, f.api, f.version)
	if err != nil {
		return nil, fmt.Errorf("failed to discover %s: %w", methodID, err)
	}

	if method == nil {
		return nil, fmt.Errorf("%w: %s", constants.ErrMethodNotInAPI, methodID)
	}

	return method, nil
}

// NewDescribeCommand creates the describe command.
func NewDescribeCommand() *cobra.Command {
	var lookup lookupFlags

	cmd := &cobra.Command{
		Use:   "describe METHOD_ID",
		Short: "Describe a method",
		Long:  "Display the HTTP method, path and parameters of a discovered method",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient()
			if err != nil {
				return err
			}

			method, err := lookup.resolve(context.Background(), client, args[0])
			if err != nil {
				return err
			}

			switch viper.GetString("output") {
			case constants.FormatJSON:
				return writeJSON(cmd.OutOrStdout(), method)
			case constants.FormatYAML:
				return writeYAML(cmd.OutOrStdout(), method)
			default:
				return renderMethod(cmd.OutOrStdout(), method)
			}
		},
	}

	lookup.register(cmd)

	return cmd
}

func renderMethod(w io.Writer, method *discovery.Method) error {
	info := tablewriter.NewWriter(w)
	info.Header("Property", "Value")
	_ = info.Append("ID", method.ID)
	_ = info.Append("HTTP Method", method.HTTPMethod)
	_ = info.Append("Path", method.Path)
	_ = info.Append("Base", method.API.MethodBase())

	if method.Description != "" {
		_ = info.Append("Description", truncate(method.Description))
	}

	if len(method.ParameterOrder) > 0 {
		_ = info.Append("Parameter Order", strings.Join(method.ParameterOrder, ", "))
	}

	if len(method.Scopes) > 0 {
		_ = info.Append("Scopes", strings.Join(method.Scopes, "\n"))
	}

	err := info.Render()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	if len(method.Parameters) == 0 {
		return nil
	}

	_, _ = fmt.Fprintln(w)

	title := cases.Title(language.English)

	params := tablewriter.NewWriter(w)
	params.Header("Parameter", "Location", "Type", "Required", "Repeated", "Constraints")

	for _, name := range method.ParameterNames() {
		param := method.Parameters[name]

		_ = params.Append(
			name,
			title.String(string(param.Location)),
			title.String(param.Type),
			checkMark(param.Required),
			checkMark(param.Repeated),
			constraints(param),
		)
	}

	err = params.Render()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}

func checkMark(b bool) string {
	if b {
		return constants.CheckMarkSymbol
	}

	return ""
}

func constraints(param *discovery.Parameter) string {
	var parts []string

	if len(param.Enum) > 0 {
		parts = append(parts, "one of "+strings.Join(param.Enum, "|"))
	}

	if param.Pattern != nil {
		parts = append(parts, "pattern "+param.Pattern.String())
	}

	if param.Minimum != "" {
		parts = append(parts, "min "+param.Minimum)
	}

	if param.Maximum != "" {
		parts = append(parts, "max "+param.Maximum)
	}

	if param.Default != "" {
		parts = append(parts, "default "+param.Default)
	}

	return strings.Join(parts, "; ")
}
