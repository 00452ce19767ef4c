// Package client talks to the ojtauth credential store.
//
// HTTPClient implements Client and AdminClient over the JSON API. It keeps
// the current token pair, attaches the access token to authenticated calls
// and, when one is rejected, refreshes the pair once and retries the call
// once. A second rejection surfaces as common.ErrSessionExpired.
//
// Errors returned by the server unwrap to the sentinels in internal/common;
// their Error text is the single message to show the user. Network failures
// unwrap to common.ErrTransport.
//
// HealthChecker probes the server's gRPC health service for the online
// indicator.
package client
