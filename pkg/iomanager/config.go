package iomanager

import "time"

// Config is the struct-tag-driven configuration IOManager.Configure loads:
// a connection list, a queue list, and the directory-client settings,
// loaded via pkg/ajan/configfx's `conf:"..."` tags the same way
// pkg/ajan/connfx.Config is.
type Config struct {
	// Session scopes directory lookups and queue access for this process.
	// Defaults to the DUNEDAQ_PARTITION environment variable when empty
	// (see IOManager.Configure).
	Session string `conf:"session"`

	// Connections is the pre-configured send-recv/pub-sub endpoint table,
	// loaded once and immutable afterwards.
	Connections []ConnectionConfig `conf:"connections"`

	// Queues is the pre-configured queue catalog queue.Registry lazily
	// instantiates from.
	Queues []QueueConfig `conf:"queues"`

	// UseDirectory, when true, constructs a directory.Client and wires it
	// into the network manager as its Resolver.
	UseDirectory bool `conf:"use_directory" default:"false"`

	// DirectoryURL is the base URL of the connectivity directory server
	// (e.g. "http://localhost:5000"), consulted only when UseDirectory.
	DirectoryURL string `conf:"directory_url" default:"http://localhost:5000"`

	// PublishInterval is both the directory client's republish tick and the
	// network manager's subscriber-refresh tick.
	PublishInterval time.Duration `conf:"publish_interval" default:"5s"`
}
