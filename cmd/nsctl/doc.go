// Package main is nsctl, a command line client for a namespace server.
//
// Usage:
//
//	nsctl ls -r --prefix p /mnt
//	nsctl put /notes/todo.txt < todo.txt
//	nsctl save --type LocalBackend --config '{"root_path":"/srv/data"}' /mnt/data
//	nsctl load /mnt/data
//	nsctl sync --dry-run /mnt/data
//	nsctl watch
//
// The server address and credentials come from NS_URL and NS_API_KEY.
package main
