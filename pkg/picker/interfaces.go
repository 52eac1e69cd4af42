package picker

import (
	"context"

	"igpicker/pkg/apify"
	"igpicker/pkg/selection"
)

// PostFetcher retrieves recent posts for one profile from the provider
type PostFetcher interface {
	FetchPosts(ctx context.Context, token, username string, limit int) ([]apify.Item, error)
}

// State is the position of a run in its lifecycle
type State string

const (
	StateIdle       State = "idle"
	StateValidating State = "validating"
	StateRejected   State = "rejected"
	StateFetching   State = "fetching"
	StateExporting  State = "exporting"
)

// Observer is notified as a run progresses. Calls happen on the goroutine
// executing Run.
type Observer interface {
	StateChanged(state State)
	UsernameStarted(index, total int, username string)
	UsernameFinished(index, total int, result selection.Result)
}

// ObserverFuncs adapts plain functions to Observer; nil fields are skipped
type ObserverFuncs struct {
	OnState    func(state State)
	OnStarted  func(index, total int, username string)
	OnFinished func(index, total int, result selection.Result)
}

func (o ObserverFuncs) StateChanged(state State) {
	if o.OnState != nil {
		o.OnState(state)
	}
}

func (o ObserverFuncs) UsernameStarted(index, total int, username string) {
	if o.OnStarted != nil {
		o.OnStarted(index, total, username)
	}
}

func (o ObserverFuncs) UsernameFinished(index, total int, result selection.Result) {
	if o.OnFinished != nil {
		o.OnFinished(index, total, result)
	}
}
