package feed

import "time"

// Credentials is the stateless credential triple sent with every remote call.
// It is read through a CredentialFunc on each request so that hot-reloaded
// configuration takes effect without restarting.
type Credentials struct {
	Username string
	Password string
	FeedID   string
}

// CredentialFunc returns the credentials to use for the next call.
type CredentialFunc func() Credentials

// QueueItemRef identifies one remote item across list/fetch/delete calls.
type QueueItemRef struct {
	UID         string    `json:"uid"`
	Title       string    `json:"title"`
	PublishedAt time.Time `json:"publishedAt"`
}

// AssetRef is one downloadable asset belonging to a document.
type AssetRef struct {
	URL      string `json:"url"`
	FileName string `json:"fileName"`
}

// FetchedDocument holds the download locations for one queue item.
type FetchedDocument struct {
	UID         string
	DocumentURL string
	Assets      []AssetRef
}

// Wire request/response shapes. Every response carries an explicit error flag
// plus a human-readable description; callers must check the flag even when the
// HTTP exchange itself succeeded.

type listRequest struct {
	Username            string `json:"username"`
	Password            string `json:"password"`
	FeedDefinitionID    string `json:"feedDefinitionId"`
	MaxResultsRequested int    `json:"maxNumberResultsRequested"`
	Offset              int    `json:"offset"`
}

type listResponse struct {
	ErrorOccurred    bool           `json:"errorOccurred"`
	ErrorDescription string         `json:"errorDescription"`
	Items            []QueueItemRef `json:"items"`
	TotalInQueue     int            `json:"totalInQueue"`
	MoreResults      bool           `json:"moreResults"`
	StartingOffset   int            `json:"startingOffset"`
	EndingOffset     int            `json:"endingOffset"`
}

type articleRequest struct {
	Username         string `json:"username"`
	Password         string `json:"password"`
	FeedDefinitionID string `json:"feedDefinitionId"`
	UID              string `json:"uid"`
}

type articleResponse struct {
	ErrorOccurred    bool       `json:"errorOccurred"`
	ErrorDescription string     `json:"errorDescription"`
	DocumentURL      string     `json:"documentURL"`
	AssetURLs        []AssetRef `json:"assetURLs"`
}

type deleteRequest struct {
	Username         string `json:"username"`
	Password         string `json:"password"`
	FeedDefinitionID string `json:"feedDefinitionId"`
	UID              string `json:"uid"`
}

type deleteResponse struct {
	ErrorOccurred    bool   `json:"errorOccurred"`
	ErrorDescription string `json:"errorDescription"`
}
