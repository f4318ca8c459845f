package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/plml/oscquery-go/pkg/service"
	"github.com/plml/oscquery-go/pkg/version"
)

var getCmd = &cobra.Command{
	Use:   "get [path]",
	Short: "Query a server's parameter tree",
	Long: `Fetches a JSON snapshot of a node and its descendants, a single
attribute (--attr VALUE, TYPE, RANGE, ACCESS, DESCRIPTION, FULL_PATH,
CONTENTS), or the server's host info (--host-info).`,
	Args: cobra.MaximumNArgs(1),
	RunE: runGet,
}

func init() {
	rootCmd.AddCommand(getCmd)

	getCmd.Flags().String("server", fmt.Sprintf("localhost:%d", service.DefaultQueryPort), "Server query address (host:port)")
	getCmd.Flags().String("attr", "", "Return only this attribute")
	getCmd.Flags().Bool("host-info", false, "Return the host info document")
	getCmd.Flags().Duration("timeout", 5*time.Second, "Request timeout")
}

func runGet(cmd *cobra.Command, args []string) error {
	server, _ := cmd.Flags().GetString("server")
	attr, _ := cmd.Flags().GetString("attr")
	hostInfo, _ := cmd.Flags().GetBool("host-info")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	path := "/"
	if len(args) > 0 {
		path = args[0]
	}
	target, err := queryURL(server, path, attr, hostInfo)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	body, err := fetch(ctx, target)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), body)
}

// queryURL builds the request URL for a path plus optional attribute or
// host info query.
func queryURL(server, path, attr string, hostInfo bool) (string, error) {
	if server == "" {
		return "", errors.New("missing server address")
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u := url.URL{Scheme: "http", Host: server, Path: path}
	switch {
	case hostInfo:
		u.RawQuery = "HOST_INFO"
	case attr != "":
		u.RawQuery = strings.ToUpper(attr)
	}
	return u.String(), nil
}

func fetch(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return body, nil
}

// printJSON re-indents body; anything that is not JSON is printed as is.
func printJSON(w io.Writer, body []byte) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, body, "", "  "); err != nil {
		_, err = w.Write(body)
		return err
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(w)
	return err
}
