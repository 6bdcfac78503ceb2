package worker

// Option configures an InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker's name for logging purposes.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		w.name = name
	}
}
