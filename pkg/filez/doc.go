// Package filez exposes a typed client for the Filez enterprise
// cloud-storage REST API (v2). It covers the OAuth token exchange plus the
// user, team, file and file-authorization endpoints, one method per vendor
// operation. A mock backend mirrors the same surface for offline use.
package filez
