package ports

// Notification is a desktop notification.
type Notification struct {
	Title   string
	Message string
	Sound   bool
}

// Notifier shows desktop notifications.
//
//go:generate mockgen -source=notifier.go -destination=mocks/mock_notifier.go -package=mocks
type Notifier interface {
	Notify(n Notification) error
}
