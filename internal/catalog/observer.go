package catalog

// Observer receives fetch lifecycle notifications. Implementations must not
// block: notifications are delivered on the goroutine that drives the fetch.
type Observer interface {
	FetchStarted()
	FetchFinished()
	FetchFailed(err error)
}

// ObserverFuncs adapts plain functions to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	Started  func()
	Finished func()
	Failed   func(err error)
}

func (o ObserverFuncs) FetchStarted() {
	if o.Started != nil {
		o.Started()
	}
}

func (o ObserverFuncs) FetchFinished() {
	if o.Finished != nil {
		o.Finished()
	}
}

func (o ObserverFuncs) FetchFailed(err error) {
	if o.Failed != nil {
		o.Failed(err)
	}
}

// Subscribe registers o for lifecycle notifications. The browser does not own
// o: callers must invoke the returned function when o goes away. Calling it
// more than once is harmless.
func (b *Browser) Subscribe(o Observer) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextObserverID
	b.nextObserverID++
	b.observers[id] = o

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.observers, id)
	}
}

// snapshotObservers returns the registered observers in registration order.
// Caller must hold b.mu.
func (b *Browser) snapshotObservers() []Observer {
	out := make([]Observer, 0, len(b.observers))
	for id := 0; id < b.nextObserverID; id++ {
		if o, ok := b.observers[id]; ok {
			out = append(out, o)
		}
	}
	return out
}

func (b *Browser) notifyStarted() {
	b.mu.Lock()
	obs := b.snapshotObservers()
	b.mu.Unlock()
	for _, o := range obs {
		o.FetchStarted()
	}
}
