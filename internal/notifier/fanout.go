package notifier

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"wqd/internal/providers"
)

type namedNotifier struct {
	name string
	Notifier
}

// FanOut delivers an alert over every configured channel concurrently and
// succeeds when at least one of them did.
type FanOut struct {
	channels []namedNotifier
	closers  []func()
	logger   providers.Logger
}

func NewFanOut(logger providers.Logger) *FanOut {
	return &FanOut{logger: logger}
}

func (f *FanOut) Add(name string, n Notifier) {
	f.channels = append(f.channels, namedNotifier{name: name, Notifier: n})
}

func (f *FanOut) onClose(fn func()) {
	f.closers = append(f.closers, fn)
}

func (f *FanOut) Channels() []string {
	names := make([]string, len(f.channels))
	for i, ch := range f.channels {
		names[i] = ch.name
	}
	return names
}

func (f *FanOut) Notify(ctx context.Context, alert Alert) error {
	if len(f.channels) == 0 {
		return errors.New("no notifier channels configured")
	}

	errs := make([]error, len(f.channels))
	var wg sync.WaitGroup
	for i, ch := range f.channels {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = ch.Notify(ctx, alert)
		}()
	}
	wg.Wait()

	delivered := false
	var failed []error
	for i, err := range errs {
		if err == nil {
			delivered = true
			continue
		}
		f.logger.Warnf(providers.TypeApp, "Notifier %s failed for %s: %s", f.channels[i].name, alert.SourceID, err)
		failed = append(failed, fmt.Errorf("%s: %w", f.channels[i].name, err))
	}
	if delivered {
		return nil
	}
	return errors.Join(failed...)
}

func (f *FanOut) Close() {
	for _, fn := range f.closers {
		fn()
	}
}
