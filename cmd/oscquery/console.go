package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"

	"github.com/plml/oscquery-go/pkg/service"
	"github.com/plml/oscquery-go/pkg/tree"
)

// Console is the interactive front end of serve -i.
type Console struct {
	srv *service.Server
	rl  *readline.Instance
	out io.Writer
}

// NewConsole creates a console. Attach a server before Run.
func NewConsole() (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "oscquery> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &Console{rl: rl, out: rl.Stdout()}, nil
}

// Attach binds the console to srv and reports its events.
func (c *Console) Attach(srv *service.Server) {
	c.srv = srv
	srv.OnEvent(c.handleEvent)
}

// Close releases the terminal.
func (c *Console) Close() error {
	return c.rl.Close()
}

// Stderr returns a writer that does not disturb the prompt.
func (c *Console) Stderr() io.Writer {
	return c.rl.Stderr()
}

// Run reads commands until quit, EOF or ctx is done.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) {
	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			fmt.Fprintln(c.out, "Exiting...")
			cancel()
			return
		}
		if !c.exec(line) {
			cancel()
			return
		}
	}
}

// exec runs one command line and reports whether the console keeps going.
func (c *Console) exec(line string) bool {
	parts := strings.Fields(strings.TrimSpace(line))
	if len(parts) == 0 {
		return true
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		c.printHelp()
	case "tree", "ls":
		c.cmdTree(args)
	case "get", "g":
		c.cmdGet(args)
	case "set", "s":
		c.cmdSet(args)
	case "listen":
		c.cmdListen(args, true)
	case "ignore":
		c.cmdListen(args, false)
	case "sessions":
		c.cmdSessions()
	case "ads":
		c.cmdAds()
	case "status":
		c.cmdStatus()
	case "quit", "exit", "q":
		fmt.Fprintln(c.out, "Exiting...")
		return false
	default:
		fmt.Fprintf(c.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return true
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.out, `
OSCQuery Server Commands:
  Parameters:
    tree [path]         - List nodes below path (default /)
    get <path>          - Show a node's value and attributes
    set <path> <value>  - Write a value (access flags are not checked)
    listen <path>       - Push changes of path to the active session
    ignore <path>       - Stop pushing changes of path

  Server:
    status              - Show addresses and state
    sessions            - Show subscription sessions
    ads                 - Show mDNS advertisements

  General:
    help                - Show this help
    quit                - Stop the server and exit`)
}

func (c *Console) cmdTree(args []string) {
	root := "/"
	if len(args) > 0 {
		root = tree.Normalize(args[0])
	}
	if _, ok := c.srv.Tree().Lookup(root); !ok {
		fmt.Fprintf(c.out, "Error: %s: %v\n", root, tree.ErrNotFound)
		return
	}
	depth := len(tree.Split(root))
	c.srv.Tree().Walk(func(v *tree.NodeView) bool {
		if v.Path != root && !strings.HasPrefix(v.Path, strings.TrimSuffix(root, "/")+"/") {
			return true
		}
		indent := strings.Repeat("  ", len(tree.Split(v.Path))-depth)
		if v.IsContainer() {
			fmt.Fprintf(c.out, "%s%s/\n", indent, v.Path)
			return true
		}
		fmt.Fprintf(c.out, "%s%s [%s %s] = %s\n", indent, v.Path, v.Kind.Tag(), v.Access, v.Value)
		return true
	})
}

func (c *Console) cmdGet(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(c.out, "Usage: get <path>")
		return
	}
	v, ok := c.srv.Tree().Lookup(args[0])
	if !ok {
		fmt.Fprintf(c.out, "Error: %s: %v\n", args[0], tree.ErrNotFound)
		return
	}
	fmt.Fprintf(c.out, "%s\n", v.Path)
	if v.Name != "" {
		fmt.Fprintf(c.out, "  description: %s\n", v.Name)
	}
	fmt.Fprintf(c.out, "  type:        %s\n", v.Kind)
	fmt.Fprintf(c.out, "  access:      %s\n", v.Access)
	if v.IsContainer() {
		fmt.Fprintf(c.out, "  contents:    %s\n", strings.Join(v.Children, ", "))
		return
	}
	fmt.Fprintf(c.out, "  value:       %s\n", v.Value)
	if v.Range != nil {
		fmt.Fprintf(c.out, "  range:       %s\n", formatRange(v.Range))
	}
	fmt.Fprintf(c.out, "  listening:   %t\n", v.Listening)
}

func formatRange(r *tree.Range) string {
	if r.IsEnum() {
		return strings.Join(r.Vals, " | ")
	}
	lo, hi := "-inf", "+inf"
	if r.Min != nil {
		lo = fmt.Sprint(*r.Min)
	}
	if r.Max != nil {
		hi = fmt.Sprint(*r.Max)
	}
	return lo + " .. " + hi
}

func (c *Console) cmdSet(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(c.out, "Usage: set <path> <value>")
		return
	}
	var value any = strings.Join(args[1:], " ")
	if len(args) == 2 {
		value = parseValues(args[1:])[0]
	}
	if err := c.srv.Tree().Set(args[0], value); err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	v, _ := c.srv.Tree().Lookup(args[0])
	fmt.Fprintf(c.out, "%s = %s\n", v.Path, v.Value)
}

func (c *Console) cmdListen(args []string, on bool) {
	if len(args) != 1 {
		fmt.Fprintln(c.out, "Usage: listen|ignore <path>")
		return
	}
	if err := c.srv.Tree().SetListening(args[0], on); err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "%s listening=%t\n", tree.Normalize(args[0]), on)
}

func (c *Console) cmdSessions() {
	hub := c.srv.Hub()
	if hub == nil {
		fmt.Fprintln(c.out, "Server not running")
		return
	}
	fmt.Fprintf(c.out, "Sessions: %d\n", hub.Sessions())
	if id := hub.ActiveSession(); id != "" {
		fmt.Fprintf(c.out, "Active:   %s\n", id)
	}
}

func (c *Console) cmdAds() {
	ads := c.srv.Advertised()
	if len(ads) == 0 {
		fmt.Fprintln(c.out, "No advertisements")
		return
	}
	for _, svc := range ads {
		fmt.Fprintf(c.out, "  %s\n", svc)
	}
}

func (c *Console) cmdStatus() {
	fmt.Fprintf(c.out, "State:   %s\n", c.srv.State())
	if addr := c.srv.QueryAddr(); addr != nil {
		fmt.Fprintf(c.out, "Query:   http://%s/\n", addr)
	}
	if addr := c.srv.ControlAddr(); addr != nil {
		fmt.Fprintf(c.out, "Control: udp://%s\n", addr)
	}
	fmt.Fprintf(c.out, "Nodes:   %d\n", c.srv.Tree().Len())
}

func (c *Console) handleEvent(e service.Event) {
	if e.Error != nil {
		fmt.Fprintf(c.out, "[%s] %s: %v\n", e.Type, e.Service, e.Error)
		return
	}
	if e.Service.Instance != "" {
		fmt.Fprintf(c.out, "[%s] %s\n", e.Type, e.Service)
	}
}
