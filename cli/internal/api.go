package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// maxOutput caps how much of a response body is printed
const maxOutput = 4 << 20

func newAPICommand() *cobra.Command {
	var (
		data     string
		dataFile string
		raw      bool
	)

	cmd := &cobra.Command{
		Use:   "api METHOD PATH",
		Short: "Send an authenticated request to the club API",
		Long: `Send a request through the session pipeline and print the response.

The stored access token is attached, refreshed once if the server rejects it,
and the request is retried with the new token.

Examples:
  clubctl api GET /api/members/me
  clubctl api POST /api/orders --data '{"productId":"12"}'
  clubctl api PUT /api/members/me --data-file profile.json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx := getCliContext(cmd)
			method := strings.ToUpper(args[0])
			path := args[1]
			if !strings.HasPrefix(path, "/") {
				path = "/" + path
			}

			var body io.Reader
			switch {
			case data != "" && dataFile != "":
				return fmt.Errorf("--data and --data-file are mutually exclusive")
			case data != "":
				body = strings.NewReader(data)
			case dataFile != "":
				contents, err := os.ReadFile(dataFile)
				if err != nil {
					return fmt.Errorf("failed to read %s: %w", dataFile, err)
				}
				body = bytes.NewReader(contents)
			}

			req, err := cliCtx.Client.NewRequest(cmd.Context(), method, path, body)
			if err != nil {
				return err
			}
			if body != nil {
				req.Header.Set("Content-Type", "application/json")
			}

			cliCtx.Logger.Debug("sending request", "method", method, "path", path)
			resp, err := cliCtx.Client.Do(req)
			if err != nil {
				return fmt.Errorf("request failed: %w", err)
			}
			defer resp.Body.Close()

			payload, err := io.ReadAll(io.LimitReader(resp.Body, maxOutput))
			if err != nil {
				return fmt.Errorf("failed to read response: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", resp.Proto, resp.Status)
			if !raw {
				var pretty bytes.Buffer
				if json.Indent(&pretty, payload, "", "  ") == nil {
					payload = pretty.Bytes()
				}
			}
			out.Write(payload)
			if len(payload) > 0 && payload[len(payload)-1] != '\n' {
				fmt.Fprintln(out)
			}

			if resp.StatusCode == http.StatusUnauthorized {
				return sessionError(cmd, fmt.Errorf("server answered %s", resp.Status))
			}
			if resp.StatusCode >= 400 {
				return fmt.Errorf("server answered %s", resp.Status)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&data, "data", "d", "", "JSON request body")
	cmd.Flags().StringVar(&dataFile, "data-file", "", "Read the JSON request body from a file")
	cmd.Flags().BoolVar(&raw, "raw", false, "Print the response body without reformatting")

	return cmd
}
