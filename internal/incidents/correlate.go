package incidents

import (
	"sort"
	"strings"
	"time"

	"github.com/kubehealth/kubehealth-agent/pkg/model"
)

// Matcher decides whether an incident belongs to a tenant namespace.
type Matcher interface {
	Matches(incident RawIncident, namespaceUUID, organizationName string) bool
}

// ServiceMapMatcher matches incidents by an explicit PagerDuty service
// ID → namespace UUID mapping. It is the precise correlation path for
// tenants whose services are tagged.
type ServiceMapMatcher struct {
	serviceToNamespace map[string]string
}

// NewServiceMapMatcher builds a matcher from a service-ID mapping.
func NewServiceMapMatcher(serviceToNamespace map[string]string) *ServiceMapMatcher {
	return &ServiceMapMatcher{serviceToNamespace: serviceToNamespace}
}

func (m *ServiceMapMatcher) Matches(incident RawIncident, namespaceUUID, _ string) bool {
	return m.serviceToNamespace[incident.Service.ID] == namespaceUUID
}

// KeywordMatcher matches incidents whose text mentions the tenant: the
// namespace UUID verbatim, or any significant word of the organization
// name. Stop words cover Spanish function words and corporate suffixes
// so "Acme Corp S.A. de C.V." matches on "acme" alone.
type KeywordMatcher struct{}

var stopWords = map[string]struct{}{
	"de": {}, "la": {}, "el": {}, "y": {}, "del": {}, "las": {}, "los": {},
	"en": {}, "con": {}, "por": {}, "para": {}, "inc": {}, "llc": {},
	"corp": {}, "corporation": {}, "company": {}, "co": {}, "ltd": {},
	"limited": {}, "sapi": {}, "cv": {}, "sa": {},
}

func (KeywordMatcher) Matches(incident RawIncident, namespaceUUID, organizationName string) bool {
	searchText := strings.ToLower(strings.Join([]string{
		incident.Title,
		incident.Description,
		incident.Service.Summary,
	}, " "))

	if strings.Contains(searchText, strings.ToLower(namespaceUUID)) {
		return true
	}
	for _, kw := range extractKeywords(organizationName) {
		if strings.Contains(searchText, kw) {
			return true
		}
	}
	return false
}

// extractKeywords splits an organization name into significant
// lowercase words: punctuation stripped, stop words and words of two
// characters or fewer dropped.
func extractKeywords(organizationName string) []string {
	cleaned := strings.NewReplacer(",", " ", ".", " ").Replace(strings.ToLower(organizationName))

	var keywords []string
	for _, word := range strings.Fields(cleaned) {
		if len(word) <= 2 {
			continue
		}
		if _, stop := stopWords[word]; stop {
			continue
		}
		keywords = append(keywords, word)
	}
	return keywords
}

// Correlate assigns fetched incidents to tenant namespaces. Every
// namespace in the input gets an entry, empty or not, so downstream
// serialization emits [] rather than omitting tenants.
//
// Incidents without a created_at are dropped: an incident that cannot
// be placed in time cannot be judged against the lookback window.
// Incidents resolved before the window opened are dropped as stale.
// Matches are ordered newest first, ties broken by ID, so the output
// is deterministic for a fixed fetch.
func Correlate(raw []RawIncident, namespaces []string, resolve func(uuid string) string, matcher Matcher, windowStart time.Time) map[string][]model.IncidentRef {
	out := make(map[string][]model.IncidentRef, len(namespaces))

	for _, ns := range namespaces {
		refs := []model.IncidentRef{}
		orgName := resolve(ns)

		for _, inc := range raw {
			if inc.CreatedAt == nil {
				continue
			}
			if inc.Status == "resolved" && inc.LastStatusChangeAt != nil && inc.LastStatusChangeAt.Before(windowStart) {
				continue
			}
			if !matcher.Matches(inc, ns, orgName) {
				continue
			}
			refs = append(refs, model.IncidentRef{
				ID:        inc.ID,
				Title:     inc.Title,
				URL:       inc.HTMLURL,
				Status:    inc.Status,
				CreatedAt: inc.CreatedAt.UTC(),
			})
		}

		sort.Slice(refs, func(i, j int) bool {
			if !refs[i].CreatedAt.Equal(refs[j].CreatedAt) {
				return refs[i].CreatedAt.After(refs[j].CreatedAt)
			}
			return refs[i].ID < refs[j].ID
		})
		out[ns] = refs
	}
	return out
}

// CountActive returns the number of distinct active incidents across
// all correlations. An incident matched to several namespaces counts
// once.
func CountActive(correlations map[string][]model.IncidentRef) int {
	seen := map[string]struct{}{}
	for _, refs := range correlations {
		for _, ref := range refs {
			if ref.Active() {
				seen[ref.ID] = struct{}{}
			}
		}
	}
	return len(seen)
}
