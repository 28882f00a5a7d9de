package notification

type Platform string

const (
	PlatformAndroid Platform = "android"
	PlatformIOS     Platform = "ios"
	PlatformWeb     Platform = "web"
)

type DeviceToken struct {
	ID       int64    `json:"id" db:"id"`
	Token    string   `json:"token" db:"token"`
	Platform Platform `json:"platform" db:"platform"`
}

// PushResult summarizes one fan-out. Stale holds tokens the provider
// reported as no longer registered.
type PushResult struct {
	Sent   int
	Failed int
	Stale  []string
}

// Message is a provider-neutral push payload. Link is opened on click by web clients.
type Message struct {
	Title string
	Body  string
	Tag   string
	Link  string
	Data  map[string]string
}
