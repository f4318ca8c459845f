// Package service assembles an OSCQuery server from its parts.
//
// A Server owns one parameter tree and exposes it on
//   - an HTTP port serving tree snapshots, host info and websocket
//     subscriptions (packages query and notify)
//   - a UDP port receiving control messages (package control)
//   - mDNS, advertising the two ports as _osc._udp and _oscjson._tcp under
//     the configured service name (package discovery)
//
// Example usage:
//
//	t := tree.New()
//	_ = t.Register(tree.NewFloat("/hands/left/x", 0.5, tree.WithRange(0, 1)))
//
//	config := service.DefaultConfig()
//	config.ServiceName = "Test"
//
//	srv, err := service.New(t, config)
//	if err != nil {
//		return err
//	}
//	if err := srv.Start(ctx); err != nil {
//		return err
//	}
//	defer srv.Stop(context.Background())
//
// Start binds both ports before advertising; failing to bind either one is
// fatal. A name collision on advertising is logged and skips only that
// advertisement unless StrictDiscovery is set. Stop runs every shutdown step
// even if an earlier one fails and returns the joined errors.
package service
