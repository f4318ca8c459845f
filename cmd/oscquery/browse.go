package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/plml/oscquery-go/pkg/discovery"
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Find OSCQuery servers on the local network",
	Args:  cobra.NoArgs,
	RunE:  runBrowse,
}

func init() {
	rootCmd.AddCommand(browseCmd)

	browseCmd.Flags().String("type", "query", "Service to browse: query or control")
	browseCmd.Flags().Duration("timeout", discovery.BrowseTimeout, "How long to listen for answers")
	browseCmd.Flags().String("interface", "", "Restrict browsing to one network interface")
}

func serviceType(name string) (string, error) {
	switch strings.ToLower(name) {
	case "query", "http", discovery.ServiceTypeQuery:
		return discovery.ServiceTypeQuery, nil
	case "control", "osc", discovery.ServiceTypeControl:
		return discovery.ServiceTypeControl, nil
	default:
		return "", fmt.Errorf("unknown service type %q (want query or control)", name)
	}
}

func runBrowse(cmd *cobra.Command, _ []string) error {
	typeName, _ := cmd.Flags().GetString("type")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	iface, _ := cmd.Flags().GetString("interface")

	svcType, err := serviceType(typeName)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	browser := discovery.NewBrowser(discovery.BrowserConfig{Interface: iface, Timeout: timeout})
	found, err := browser.List(ctx, svcType)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(found) == 0 {
		fmt.Fprintf(out, "No %s services found\n", svcType)
		return nil
	}
	printEntries(out, found)
	return nil
}

func printEntries(out io.Writer, entries []*discovery.ServiceEntry) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INSTANCE\tHOST\tPORT\tADDRESSES\tTXT")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			e.Instance, e.Host, e.Port, strings.Join(e.Addresses, ","), formatTXT(e.Text))
	}
	_ = w.Flush()
}

func formatTXT(txt discovery.TXTRecordMap) string {
	return strings.Join(discovery.TXTRecordsToStrings(txt), " ")
}
