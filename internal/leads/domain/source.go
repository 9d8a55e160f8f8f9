package domain

// Source identifies the channel a lead arrived through.
type Source string

const (
	SourceWebsite     Source = "WEBSITE"
	SourcePhone       Source = "PHONE"
	SourceEmail       Source = "EMAIL"
	SourceReferral    Source = "REFERRAL"
	SourceSocialMedia Source = "SOCIAL_MEDIA"
	SourceEnrichment  Source = "ENRICHMENT"
	SourceOther       Source = "OTHER"
)

var knownSources = map[Source]struct{}{
	SourceWebsite:     {},
	SourcePhone:       {},
	SourceEmail:       {},
	SourceReferral:    {},
	SourceSocialMedia: {},
	SourceEnrichment:  {},
	SourceOther:       {},
}

func IsKnownSource(s Source) bool {
	_, ok := knownSources[s]
	return ok
}
