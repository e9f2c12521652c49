package domain

// Config is the runtime pod configuration handed to services and handlers.
type Config struct {
	FQDN string `yaml:"fqdn"`
	// Registration controls account creation: open, invite, close.
	Registration string `yaml:"registration"`
}

// Redis channel the signal service publishes accepted entities on.
const ChannelEntities = "wisteria-entities"
