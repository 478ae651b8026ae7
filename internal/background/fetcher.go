package background

import (
	"context"

	"codechallenge/internal/api"
	"codechallenge/internal/challenges"
	"codechallenge/internal/request"
)

type FetchState int

const (
	Dirty FetchState = iota
	Fetching
	Clean
)

func (s FetchState) String() string {
	switch s {
	case Dirty:
		return "dirty"
	case Fetching:
		return "fetching"
	case Clean:
		return "clean"
	default:
		return "unknown"
	}
}

// ChallengeFetcher keeps the session's challenge list loaded. It retries on
// every tick until a fetch succeeds; there is no backoff.
type ChallengeFetcher struct {
	client    *request.Client
	logger    Logger
	onFetched func(challenges.Collection)

	state FetchState
	req   *request.Requestor
}

type FetcherOption func(*ChallengeFetcher)

func WithFetcherLogger(l Logger) FetcherOption {
	return func(f *ChallengeFetcher) { f.logger = l }
}

// WithOnFetched is called after each successful fetch, after the session
// has been updated.
func WithOnFetched(fn func(challenges.Collection)) FetcherOption {
	return func(f *ChallengeFetcher) { f.onFetched = fn }
}

func NewChallengeFetcher(client *request.Client, opts ...FetcherOption) *ChallengeFetcher {
	f := &ChallengeFetcher{client: client, logger: nopLogger{}, state: Dirty}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *ChallengeFetcher) State() FetchState { return f.state }

// MarkDirty schedules a refetch on the next tick unless one is running.
func (f *ChallengeFetcher) MarkDirty() {
	if f.state == Clean {
		f.state = Dirty
	}
}

// Tick starts a fetch when dirty and then checks the one in flight. It
// reports whether anything changed that the UI should redraw.
func (f *ChallengeFetcher) Tick(ctx context.Context) bool {
	changed := false
	if f.state == Dirty {
		f.logger.Debug("fetcher.challenges.start", nil)
		f.req = f.client.Get(api.PathChallenges, true)
		f.req.Send(ctx)
		f.state = Fetching
		changed = true
	}
	if f.state != Fetching || f.req == nil {
		return changed
	}

	st := f.req.CheckPromise()
	switch st.State {
	case request.Success:
		f.req = nil
		coll, err := challenges.Parse([]byte(st.Text))
		if err != nil {
			f.logger.Warn("fetcher.challenges.parse_failed", map[string]any{"error": err.Error()})
			f.state = Dirty
			return true
		}
		f.client.Session().SetChallenges(coll)
		f.state = Clean
		f.logger.Info("fetcher.challenges.clean", map[string]any{"count": coll.Len()})
		if f.onFetched != nil {
			f.onFetched(coll)
		}
		return true
	case request.Failed:
		f.req = nil
		f.state = Dirty
		f.logger.Warn("fetcher.challenges.failed", map[string]any{"error": st.Text})
		return true
	}
	if f.req.RefreshContext() {
		changed = true
	}
	return changed
}
