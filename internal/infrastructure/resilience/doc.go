/*
Package resilience provides the circuit breaker that guards calls to a remote
namespace server.

The breaker never retries. It only stops sending requests while the server is
failing and lets a limited number through once the open timeout elapses:

	Closed --[failures]-> Open --[timeout]-> Half-Open --[successes]-> Closed
	                                           |
	                                       [failure]
	                                           v
	                                         Open

Errors the caller caused (bad credentials, missing paths) are not failures of
the server; Settings.IsSuccessful lets the owner classify them.

	breaker := resilience.New("nfs", resilience.Settings{
		IsSuccessful: func(err error) bool { return err == nil || isCallerError(err) },
	})
	entries, err := resilience.Do(breaker, func() ([]Entry, error) {
		return client.List(ctx, "/")
	})
*/
package resilience
