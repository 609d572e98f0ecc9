package bsky

import "bskyfollow/pkg/models"

// Session is an authenticated account session
type Session struct {
	AccessJwt  string `json:"accessJwt"`
	RefreshJwt string `json:"refreshJwt"`
	DID        string `json:"did"`
	Handle     string `json:"handle"`
}

type createSessionRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// viewerState is the viewer's relationship to a listed profile
type viewerState struct {
	Following  string `json:"following,omitempty"`
	FollowedBy string `json:"followedBy,omitempty"`
}

type profileView struct {
	DID            string       `json:"did"`
	Handle         string       `json:"handle"`
	DisplayName    string       `json:"displayName,omitempty"`
	FollowsCount   *int         `json:"followsCount,omitempty"`
	FollowersCount *int         `json:"followersCount,omitempty"`
	PostsCount     *int         `json:"postsCount,omitempty"`
	Viewer         *viewerState `json:"viewer,omitempty"`
}

func (p profileView) account() models.Account {
	a := models.Account{
		DID:         p.DID,
		Handle:      p.Handle,
		DisplayName: p.DisplayName,
	}
	if p.Viewer != nil {
		a.FollowURI = p.Viewer.Following
	}
	return a
}

type followsPage struct {
	Follows []profileView `json:"follows"`
	Cursor  string        `json:"cursor,omitempty"`
}

type followersPage struct {
	Followers []profileView `json:"followers"`
	Cursor    string        `json:"cursor,omitempty"`
}

type createRecordRequest struct {
	Repo       string      `json:"repo"`
	Collection string      `json:"collection"`
	Record     interface{} `json:"record"`
}

type createRecordResponse struct {
	URI string `json:"uri"`
	CID string `json:"cid"`
}

type deleteRecordRequest struct {
	Repo       string `json:"repo"`
	Collection string `json:"collection"`
	RKey       string `json:"rkey"`
}

type followRecord struct {
	Type      string `json:"$type"`
	Subject   string `json:"subject"`
	CreatedAt string `json:"createdAt"`
}

type listRecord struct {
	Type        string `json:"$type"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Purpose     string `json:"purpose"`
	CreatedAt   string `json:"createdAt"`
}

type listItemRecord struct {
	Type      string `json:"$type"`
	Subject   string `json:"subject"`
	List      string `json:"list"`
	CreatedAt string `json:"createdAt"`
}
