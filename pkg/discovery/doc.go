// Package discovery finds TAK servers advertised over DNS-SD.
//
// TAK servers and gateways can announce their TLS streaming port as
// a _takserver._ssl._tcp service. Browse watches for announcements
// and FindFirst resolves the first one, which is convenient on
// networks where the server address is not configured ahead of time.
//
// Discovery is a best-effort helper: it is not part of the publish
// path and a publisher never depends on it.
package discovery
