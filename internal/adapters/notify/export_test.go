package notify

// NewNotifierWith creates a Notifier with replaced system calls.
func NewNotifierWith(notify func(string, string, any) error, beep func(float64, int) error) *Notifier {
	return &Notifier{notify: notify, beep: beep}
}
