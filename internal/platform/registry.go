package platform

import (
	"net/http"
	"sort"

	"github.com/jonesrussell/syndicate/internal/domain"
	"github.com/jonesrussell/syndicate/internal/logger"
)

// Downstream platform ids.
const (
	PlatformMicroblogMain = "microblog_main"
	PlatformMicroblogAlt  = "microblog_alt"
	PlatformProNet        = "pronet"
	PlatformPhotoShare    = "photoshare"
	PlatformCommunityPage = "communitypage"
	PlatformPinwall       = "pinwall"
)

// Registry maps platform ids to posters and source ids to fetchers.
// Adding a platform means registering one adapter here, not editing a
// branch chain in the dispatcher.
type Registry struct {
	posters  map[string]Poster
	fetchers map[string]Fetcher
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		posters:  make(map[string]Poster),
		fetchers: make(map[string]Fetcher),
	}
}

// RegisterPoster registers a downstream platform adapter.
func (r *Registry) RegisterPoster(platformID string, poster Poster) {
	r.posters[platformID] = poster
}

// RegisterFetcher registers an upstream source adapter.
func (r *Registry) RegisterFetcher(sourceID string, fetcher Fetcher) {
	r.fetchers[sourceID] = fetcher
}

// Poster returns the adapter for a platform id.
func (r *Registry) Poster(platformID string) (Poster, bool) {
	p, ok := r.posters[platformID]
	return p, ok
}

// Fetcher returns the adapter for a source id.
func (r *Registry) Fetcher(sourceID string) (Fetcher, bool) {
	f, ok := r.fetchers[sourceID]
	return f, ok
}

// SourceIDs returns the registered source ids in stable order.
func (r *Registry) SourceIDs() []string {
	ids := make([]string, 0, len(r.fetchers))
	for id := range r.fetchers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// BaseURLFunc resolves an endpoint override for a platform or source id;
// it returns "" to use the adapter's production default.
type BaseURLFunc func(id string) string

// NewDefaultRegistry builds the registry with every supported platform
// and source adapter.
func NewDefaultRegistry(baseURL BaseURLFunc, client *http.Client, log logger.Logger) *Registry {
	r := NewRegistry()

	r.RegisterPoster(PlatformMicroblogMain, NewMicroblogAdapter(baseURL(PlatformMicroblogMain), client, log))
	r.RegisterPoster(PlatformMicroblogAlt, NewMicroblogAdapter(baseURL(PlatformMicroblogAlt), client, log))
	r.RegisterPoster(PlatformProNet, NewProNetAdapter(baseURL(PlatformProNet), client, log))
	r.RegisterPoster(PlatformPhotoShare, NewPhotoShareAdapter(baseURL(PlatformPhotoShare), client, log))
	r.RegisterPoster(PlatformCommunityPage, NewCommunityPageAdapter(baseURL(PlatformCommunityPage), client, log))
	r.RegisterPoster(PlatformPinwall, NewPinwallAdapter(baseURL(PlatformPinwall), client, log))

	r.RegisterFetcher(SourceLongform, NewFeedSource(SourceLongform, domain.OrientationLandscape, baseURL(SourceLongform), client, log))
	r.RegisterFetcher(SourceShorts, NewFeedSource(SourceShorts, domain.OrientationPortrait, baseURL(SourceShorts), client, log))
	r.RegisterFetcher(SourceReels, NewFeedSource(SourceReels, domain.OrientationPortrait, baseURL(SourceReels), client, log))

	return r
}
