package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/aiswide/gpudash/internal/apiclient"
	"github.com/spf13/cobra"
)

var (
	apiData    string
	apiQuery   []string
	apiHeaders []string
	apiInclude bool
)

func init() {
	apiCmd.Flags().StringVarP(&apiData, "data", "d", "", "JSON request body (@file reads it from a file, - from stdin)")
	apiCmd.Flags().StringArrayVarP(&apiQuery, "query", "q", nil, "Query parameter as key=value (repeatable)")
	apiCmd.Flags().StringArrayVarP(&apiHeaders, "header", "H", nil, "Extra header as 'Name: value' (repeatable)")
	apiCmd.Flags().BoolVarP(&apiInclude, "include", "i", false, "Print the response status line and headers")
	rootCmd.AddCommand(apiCmd)
}

var apiCmd = &cobra.Command{
	Use:   "api <method> <path>",
	Short: "Send an authenticated request to the backend",
	Long: `Send an arbitrary request with the stored session, refreshing the access
token once if the backend answers 401. The response body is printed as-is;
JSON bodies are indented.`,
	Example: `  gpudash api GET /server/my-server
  gpudash api DELETE /server/delete-pvc -d '{"name":"my-pvc","pv":false}'`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		req, err := buildAPIRequest(cmd)
		if err != nil {
			return err
		}

		method := strings.ToUpper(args[0])
		path := args[1]
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}

		resp, err := a.client.Do(cmd.Context(), method, path, req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("reading response: %w", err)
		}
		if apiInclude {
			fmt.Fprintf(a.out, "%s %s\n", resp.Proto, resp.Status)
			_ = resp.Header.Write(a.out)
			fmt.Fprintln(a.out)
		}
		writeBody(a.out, body)

		if resp.StatusCode >= 400 {
			return fmt.Errorf("%s %s: %s", method, path, resp.Status)
		}
		return nil
	},
}

func buildAPIRequest(cmd *cobra.Command) (*apiclient.Request, error) {
	req := &apiclient.Request{Header: http.Header{}, Query: url.Values{}}
	for _, kv := range apiQuery {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --query %q, want key=value", kv)
		}
		req.Query.Add(k, v)
	}
	for _, h := range apiHeaders {
		k, v, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid --header %q, want 'Name: value'", h)
		}
		req.Header.Add(strings.TrimSpace(k), strings.TrimSpace(v))
	}

	if apiData == "" {
		return req, nil
	}
	data, err := readData(cmd, apiData)
	if err != nil {
		return nil, err
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("--data is not valid JSON")
	}
	req.Body = data
	return req, nil
}

func readData(cmd *cobra.Command, arg string) ([]byte, error) {
	switch {
	case arg == "-":
		return io.ReadAll(cmd.InOrStdin())
	case strings.HasPrefix(arg, "@"):
		data, err := os.ReadFile(strings.TrimPrefix(arg, "@"))
		if err != nil {
			return nil, fmt.Errorf("reading --data file: %w", err)
		}
		return data, nil
	default:
		return []byte(arg), nil
	}
}

func writeBody(w io.Writer, body []byte) {
	if len(body) == 0 {
		return
	}
	var buf bytes.Buffer
	if json.Indent(&buf, body, "", "  ") == nil {
		fmt.Fprintln(w, buf.String())
		return
	}
	w.Write(body)
	if body[len(body)-1] != '\n' {
		fmt.Fprintln(w)
	}
}
