package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fivetwenty-io/discovery-client/internal/constants"
	"github.com/fivetwenty-io/discovery-client/pkg/discovery"
)

// callFlags are shared by generate and execute.
type callFlags struct {
	lookupFlags

	params          []string
	headers         []string
	body            string
	bodyFile        string
	unauthenticated bool
}

func (f *callFlags) register(cmd *cobra.Command) {
	f.lookupFlags.register(cmd)

	cmd.Flags().StringArrayVarP(&f.params, "param", "p", nil, "parameter as name=value (repeat a name for repeated parameters)")
	cmd.Flags().StringArrayVarP(&f.headers, "header", "H", nil, "extra header as 'Name: value'")
	cmd.Flags().StringVarP(&f.body, "body", "d", "", "request body")
	cmd.Flags().StringVar(&f.bodyFile, "body-file", "", "read the request body from a file ('-' for stdin)")
	cmd.Flags().BoolVar(&f.unauthenticated, "unauthenticated", false, "send the request without credentials")
}

func (f *callFlags) options(cmd *cobra.Command, methodID string) (discovery.RequestOptions, error) {
	params, err := parseParameters(f.params)
	if err != nil {
		return discovery.RequestOptions{}, err
	}

	headers, err := parseHeaders(f.headers)
	if err != nil {
		return discovery.RequestOptions{}, err
	}

	body, err := f.readBody(cmd.InOrStdin())
	if err != nil {
		return discovery.RequestOptions{}, err
	}

	return discovery.RequestOptions{
		MethodID:        methodID,
		APIName:         f.api,
		Version:         f.version,
		Parameters:      params,
		Body:            body,
		Headers:         headers,
		Unauthenticated: f.unauthenticated,
	}, nil
}

func (f *callFlags) readBody(stdin io.Reader) ([]byte, error) {
	switch {
	case f.bodyFile == "-":
		return io.ReadAll(stdin)
	case f.bodyFile != "":
		// #nosec G304 -- the file is named by the user on the command line
		data, err := os.ReadFile(f.bodyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read body file: %w", err)
		}

		return data, nil
	case f.body != "":
		return []byte(f.body), nil
	default:
		return nil, nil
	}
}

// parseParameters turns name=value pairs into request parameters. A name
// given more than once becomes a list.
func parseParameters(pairs []string) (map[string]interface{}, error) {
	values := make(map[string][]string)

	var order []string

	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("%w: %q", constants.ErrInvalidParameterFlag, pair)
		}

		if _, seen := values[name]; !seen {
			order = append(order, name)
		}

		values[name] = append(values[name], value)
	}

	params := make(map[string]interface{}, len(values))

	for _, name := range order {
		if len(values[name]) == 1 {
			params[name] = values[name][0]
		} else {
			params[name] = values[name]
		}
	}

	return params, nil
}

func parseHeaders(lines []string) (http.Header, error) {
	if len(lines) == 0 {
		return nil, nil
	}

	headers := make(http.Header, len(lines))

	for _, line := range lines {
		name, value, ok := strings.Cut(line, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("header must be given as 'Name: value', got %q", line)
		}

		headers.Add(strings.TrimSpace(name), strings.TrimSpace(value))
	}

	return headers, nil
}

type requestView struct {
	Method  string            `json:"method"         yaml:"method"`
	URI     string            `json:"uri"            yaml:"uri"`
	Headers map[string]string `json:"headers"        yaml:"headers"`
	Body    string            `json:"body,omitempty" yaml:"body,omitempty"`
}

func viewRequest(req *discovery.Request) requestView {
	view := requestView{
		Method:  req.HTTPMethod,
		URI:     req.URI,
		Headers: make(map[string]string, len(req.Headers)),
		Body:    string(req.Body),
	}

	for name, values := range req.Headers {
		view.Headers[name] = strings.Join(values, ", ")
		if name == "Authorization" {
			view.Headers[name] = constants.MaskedSecret
		}
	}

	return view
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand() *cobra.Command {
	var flags callFlags

	cmd := &cobra.Command{
		Use:   "generate METHOD_ID",
		Short: "Generate a request without sending it",
		Long:  "Validate parameters against a discovered method and print the request that would be sent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options(cmd, args[0])
			if err != nil {
				return err
			}

			client, err := CreateClient()
			if err != nil {
				return err
			}

			req, err := client.GenerateRequest(context.Background(), opts)
			if err != nil {
				return err
			}

			view := viewRequest(req)

			switch viper.GetString("output") {
			case constants.FormatJSON:
				return writeJSON(cmd.OutOrStdout(), view)
			case constants.FormatYAML:
				return writeYAML(cmd.OutOrStdout(), view)
			default:
				return renderRequest(cmd.OutOrStdout(), view)
			}
		},
	}

	flags.register(cmd)

	return cmd
}

func renderRequest(w io.Writer, view requestView) error {
	_, _ = fmt.Fprintf(w, "%s %s\n\n", view.Method, view.URI)

	names := make([]string, 0, len(view.Headers))
	for name := range view.Headers {
		names = append(names, name)
	}

	sort.Strings(names)

	table := tablewriter.NewWriter(w)
	table.Header("Header", "Value")

	for _, name := range names {
		_ = table.Append(name, view.Headers[name])
	}

	err := table.Render()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	if view.Body != "" {
		_, err = fmt.Fprintf(w, "\n%s\n", view.Body)
	}

	return err
}

type resultView struct {
	Status  int               `json:"status"  yaml:"status"`
	Headers map[string]string `json:"headers" yaml:"headers"`
	Body    interface{}       `json:"body"    yaml:"body"`
}

// NewExecuteCommand creates the execute command.
func NewExecuteCommand() *cobra.Command {
	var (
		flags   callFlags
		strict  bool
		include bool
	)

	cmd := &cobra.Command{
		Use:     "execute METHOD_ID",
		Aliases: []string{"call"},
		Short:   "Execute a method",
		Long:    "Generate a request for a discovered method, send it and print the response",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options(cmd, args[0])
			if err != nil {
				return err
			}

			client, err := CreateClient()
			if err != nil {
				return err
			}

			call := client.Call
			if strict {
				call = client.CallStrict
			}

			result, err := call(context.Background(), opts)
			if err != nil {
				return err
			}

			return outputResult(cmd.OutOrStdout(), result, include)
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&strict, "strict", false, "fail on non-2xx responses")
	cmd.Flags().BoolVarP(&include, "include", "i", false, "print the response status and headers")

	return cmd
}

func outputResult(w io.Writer, result *discovery.Result, include bool) error {
	format := viper.GetString("output")

	if format == constants.FormatJSON || format == constants.FormatYAML {
		view := resultView{
			Status:  result.StatusCode(),
			Headers: make(map[string]string, len(result.Response.Headers)),
			Body:    string(result.Response.Body),
		}

		for name, values := range result.Response.Headers {
			view.Headers[name] = strings.Join(values, ", ")
		}

		var decoded interface{}
		if result.Decode(&decoded) == nil {
			view.Body = decoded
		}

		if format == constants.FormatJSON {
			return writeJSON(w, view)
		}

		return writeYAML(w, view)
	}

	if include {
		_, _ = fmt.Fprintf(w, "%d %s\n", result.StatusCode(), http.StatusText(result.StatusCode()))

		err := result.Response.Headers.Write(w)
		if err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}

		_, _ = fmt.Fprintln(w)
	}

	body := result.Response.Body

	var pretty bytes.Buffer
	if json.Indent(&pretty, body, "", strings.Repeat(" ", constants.JSONIndentSize)) == nil {
		body = pretty.Bytes()
	}

	_, err := fmt.Fprintln(w, string(body))

	return err
}
