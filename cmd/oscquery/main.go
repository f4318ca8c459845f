// Command oscquery serves and inspects OSCQuery parameter trees.
//
// Usage:
//
//	oscquery <command> [flags]
//
// Commands:
//
//	serve    Run a server (optionally with an interactive console)
//	get      Fetch a tree snapshot, an attribute or host info
//	set      Send a control message
//	browse   List OSCQuery servers on the local network
//	version  Print the version
//
// Examples:
//
//	# Serve the built-in demo parameters as "Test"
//	oscquery serve --demo --name Test
//
//	# Serve parameters from a manifest with a console
//	oscquery serve --params params.yaml --interactive
//
//	# Read a value
//	oscquery get localhost:45321 /hands/left/x --attr VALUE
//
//	# Set a value
//	oscquery set localhost:9050 /hands/left/x 0.25
package main

func main() {
	Execute()
}
