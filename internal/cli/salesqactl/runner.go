// Package salesqactl is the command line client for the salesqa API.
package salesqactl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var errRequest = errors.New("request failed")

type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Stdout     io.Writer
	Stderr     io.Writer
}

type client struct {
	baseURL string
	http    *http.Client
	stdout  io.Writer
}

// Run executes one command and returns the process exit code: 0 on success,
// 1 when the API call fails and 2 for usage errors.
func Run(ctx context.Context, args []string, defaults Options) int {
	stdout := defaults.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	stderr := defaults.Stderr
	if stderr == nil {
		stderr = io.Discard
	}

	if args == nil {
		args = []string{}
	}
	c := &client{stdout: stdout}
	baseURL := firstNonEmpty(defaults.BaseURL, "http://localhost:8080")
	timeout := durationOr(defaults.Timeout, 90*time.Second)

	root := &cobra.Command{
		Use:           "salesqactl",
		Short:         "Ask questions about sales data through the salesqa API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			c.baseURL = strings.TrimRight(baseURL, "/")
			c.http = defaults.HTTPClient
			if c.http == nil {
				c.http = &http.Client{Timeout: timeout}
			}
		},
		RunE: func(*cobra.Command, []string) error {
			return errors.New("a command is required")
		},
	}
	root.PersistentFlags().StringVar(&baseURL, "base-url", baseURL, "salesqa API base URL")
	root.PersistentFlags().DurationVar(&timeout, "timeout", timeout, "HTTP timeout (e.g. 90s)")
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.AddCommand(
		simpleCommand(c, "health", "Check that the API is alive", http.MethodGet, "/v1/health"),
		simpleCommand(c, "ready", "Check the store and completion service", http.MethodGet, "/v1/ready"),
		simpleCommand(c, "samples", "Show the sample rows used in prompts", http.MethodGet, "/v1/samples"),
		simpleCommand(c, "clear", "Clear the question history", http.MethodDelete, "/v1/history"),
		askCommand(c),
		historyCommand(c),
		exportCommand(c),
		archiveCommand(c),
	)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	_, _ = fmt.Fprintf(stderr, "%v\n", err)
	if errors.Is(err, errRequest) {
		return 1
	}
	_, _ = fmt.Fprintln(stderr)
	_, _ = fmt.Fprint(stderr, root.UsageString())
	return 2
}

func simpleCommand(c *client, name, short, method, path string) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			body, err := c.do(cmd.Context(), method, path, nil)
			if err != nil {
				return err
			}
			c.printJSON(body)
			return nil
		},
	}
}

func askCommand(c *client) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question and print the generated query and its result",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := json.Marshal(map[string]string{"question": strings.Join(args, " ")})
			if err != nil {
				return err
			}
			body, err := c.do(cmd.Context(), http.MethodPost, "/v1/ask", payload)
			if err != nil {
				return err
			}
			c.printJSON(body)

			var entry struct {
				Outcome struct {
					Error string `json:"error"`
				} `json:"outcome"`
			}
			if err := json.Unmarshal(body, &entry); err == nil && entry.Outcome.Error != "" {
				return fmt.Errorf("%w: %s", errRequest, entry.Outcome.Error)
			}
			return nil
		},
	}
}

func historyCommand(c *client) *cobra.Command {
	return &cobra.Command{
		Use:   "history [id]",
		Short: "List answered questions, or show one entry",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/v1/history"
			if len(args) == 1 {
				path += "/" + url.PathEscape(args[0])
			}
			body, err := c.do(cmd.Context(), http.MethodGet, path, nil)
			if err != nil {
				return err
			}
			c.printJSON(body)
			return nil
		},
	}
}

func exportCommand(c *client) *cobra.Command {
	var format, output string
	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Download the result rows of a history entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/v1/history/" + url.PathEscape(args[0]) + "/export?format=" + url.QueryEscape(format)
			body, err := c.do(cmd.Context(), http.MethodGet, path, nil)
			if err != nil {
				return err
			}
			if output == "" || output == "-" {
				_, err = c.stdout.Write(body)
				return err
			}
			if err := os.WriteFile(output, body, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "csv", "export format: csv or parquet")
	cmd.Flags().StringVarP(&output, "output", "o", "-", "output file, - for stdout")
	return cmd
}

func archiveCommand(c *client) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "archive <id>",
		Short: "Store the result rows of a history entry in the object store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/v1/history/" + url.PathEscape(args[0]) + "/archive?format=" + url.QueryEscape(format)
			body, err := c.do(cmd.Context(), http.MethodPost, path, nil)
			if err != nil {
				return err
			}
			c.printJSON(body)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "parquet", "archive format: csv or parquet")
	return cmd
}

func (c *client) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errRequest, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", errRequest, err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: http %d: %s", errRequest, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}

func (c *client) printJSON(raw []byte) {
	if pretty, ok := prettyJSON(raw); ok {
		_, _ = fmt.Fprintln(c.stdout, pretty)
		return
	}
	if len(raw) > 0 {
		_, _ = fmt.Fprintln(c.stdout, string(raw))
	}
}

func prettyJSON(raw []byte) (string, bool) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", false
	}
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", false
	}
	formatted, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return "", false
	}
	return string(formatted), true
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return strings.TrimSpace(a)
	}
	return b
}

func durationOr(v, fallback time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return fallback
}
