// Package pdstest runs an in-memory Bluesky PDS for tests.
//
// The server speaks enough XRPC for the client to log in, page through the
// social graph, read profiles and write follow, list and list item records.
// Writes change the in-memory graph, so a reload after a run sees the result.
//
//	pds := pdstest.NewServer("me.test", "app-pass")
//	defer pds.Close()
//	pds.AddAccount("alice.test", 10, 20, 5)
//	pds.Follow("alice.test")
//	client := bsky.NewClient(pds.URL(), 5*time.Second, log)
package pdstest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

const (
	accessToken  = "access-token"
	refreshToken = "refresh-token"

	collectionFollow   = "app.bsky.graph.follow"
	collectionList     = "app.bsky.graph.list"
	collectionListItem = "app.bsky.graph.listitem"
)

// Profile is an account known to the server
type Profile struct {
	DID            string
	Handle         string
	FollowsCount   int
	FollowersCount int
	PostsCount     int
}

// Record is a record written to the owner's repo
type Record struct {
	URI        string
	Collection string
	Value      map[string]interface{}
}

// Fault is an injected XRPC error
type Fault struct {
	Status int
	Error  string
	// Times limits how often the fault fires. Zero fires forever.
	Times int
}

// Server is an in-memory PDS backed by httptest.
type Server struct {
	server *httptest.Server
	owner  Profile
	pass   string

	mu            sync.RWMutex
	profiles      map[string]*Profile // by DID
	byHandle      map[string]string   // lowercased handle -> DID
	follows       []string            // rkeys in creation order
	records       map[string]Record   // rkey -> record
	followers     []string            // DIDs
	faults        map[string]*Fault   // NSID -> fault
	subjectFaults map[string]*Fault   // subject DID -> fault on writes
	expired       bool
	nextRKey      int

	requests atomic.Int32
	writes   atomic.Int32
	perNSID  sync.Map // NSID -> *atomic.Int32
}

// NewServer starts a PDS whose owner logs in with handle and password
func NewServer(handle, password string) *Server {
	s := &Server{
		owner:         Profile{DID: "did:plc:" + slug(handle), Handle: handle},
		pass:          password,
		profiles:      make(map[string]*Profile),
		byHandle:      make(map[string]string),
		records:       make(map[string]Record),
		faults:        make(map[string]*Fault),
		subjectFaults: make(map[string]*Fault),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/xrpc/com.atproto.server.createSession", s.handleCreateSession)
	mux.HandleFunc("/xrpc/com.atproto.server.refreshSession", s.handleRefreshSession)
	mux.HandleFunc("/xrpc/app.bsky.graph.getFollows", s.handleGetFollows)
	mux.HandleFunc("/xrpc/app.bsky.graph.getFollowers", s.handleGetFollowers)
	mux.HandleFunc("/xrpc/app.bsky.actor.getProfile", s.handleGetProfile)
	mux.HandleFunc("/xrpc/com.atproto.repo.createRecord", s.handleCreateRecord)
	mux.HandleFunc("/xrpc/com.atproto.repo.deleteRecord", s.handleDeleteRecord)

	s.server = httptest.NewServer(mux)
	return s
}

// URL returns the service URL
func (s *Server) URL() string { return s.server.URL }

// Close shuts the server down
func (s *Server) Close() { s.server.Close() }

// OwnerDID returns the DID of the logged-in account
func (s *Server) OwnerDID() string { return s.owner.DID }

// AddAccount registers an account and returns its DID
func (s *Server) AddAccount(handle string, follows, followers, posts int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := &Profile{
		DID:            "did:plc:" + slug(handle),
		Handle:         handle,
		FollowsCount:   follows,
		FollowersCount: followers,
		PostsCount:     posts,
	}
	s.profiles[p.DID] = p
	s.byHandle[strings.ToLower(handle)] = p.DID
	return p.DID
}

// Follow makes the owner follow handle
func (s *Server) Follow(handle string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putRecord(collectionFollow, map[string]interface{}{"subject": s.byHandle[strings.ToLower(handle)]})
}

// FollowedBy makes handle follow the owner
func (s *Server) FollowedBy(handles ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range handles {
		s.followers = append(s.followers, s.byHandle[strings.ToLower(h)])
	}
}

// Fail injects a fault on every call of nsid
func (s *Server) Fail(nsid string, f Fault) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[nsid] = &f
}

// FailSubject injects a fault on record writes whose subject is handle
func (s *Server) FailSubject(handle string, f Fault) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subjectFaults[s.byHandle[strings.ToLower(handle)]] = &f
}

// ExpireToken makes the next authenticated call fail with ExpiredToken
func (s *Server) ExpireToken() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expired = true
}

// Following returns the handles the owner follows, in follow order
func (s *Server) Following() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.follows))
	for _, rkey := range s.follows {
		did, _ := s.records[rkey].Value["subject"].(string)
		if p := s.profiles[did]; p != nil {
			out = append(out, p.Handle)
		}
	}
	return out
}

// Records returns every record of collection, oldest first
func (s *Server) Records(collection string) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Record
	for _, r := range s.records {
		if r.Collection == collection {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URI < out[j].URI })
	return out
}

// RequestCount returns the number of requests served
func (s *Server) RequestCount() int { return int(s.requests.Load()) }

// WriteCount returns the number of record writes attempted
func (s *Server) WriteCount() int { return int(s.writes.Load()) }

// Calls returns the number of requests made to nsid
func (s *Server) Calls(nsid string) int {
	if v, ok := s.perNSID.Load(nsid); ok {
		return int(v.(*atomic.Int32).Load())
	}
	return 0
}

func (s *Server) count(nsid string) {
	s.requests.Add(1)
	v, _ := s.perNSID.LoadOrStore(nsid, new(atomic.Int32))
	v.(*atomic.Int32).Add(1)
}

// fault reports and consumes an injected fault for nsid
func (s *Server) fault(w http.ResponseWriter, nsid string) bool {
	s.mu.Lock()
	f := takeFault(s.faults, nsid)
	s.mu.Unlock()
	if f == nil {
		return false
	}
	sendError(w, f.Status, f.Error, "injected fault")
	return true
}

func takeFault(faults map[string]*Fault, key string) *Fault {
	f, ok := faults[key]
	if !ok {
		return nil
	}
	out := *f
	if f.Times > 0 {
		f.Times--
		if f.Times == 0 {
			delete(faults, key)
		}
	}
	return &out
}

// authorize checks the bearer token
func (s *Server) authorize(w http.ResponseWriter, r *http.Request, want string) bool {
	if r.Header.Get("Authorization") != "Bearer "+want {
		sendError(w, http.StatusUnauthorized, "AuthenticationRequired", "Invalid token")
		return false
	}
	if want != accessToken {
		return true
	}
	s.mu.Lock()
	expired := s.expired
	s.expired = false
	s.mu.Unlock()
	if expired {
		sendError(w, http.StatusBadRequest, "ExpiredToken", "Token has expired")
		return false
	}
	return true
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	s.count("com.atproto.server.createSession")
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.fault(w, "com.atproto.server.createSession") {
		return
	}

	var req struct {
		Identifier string `json:"identifier"`
		Password   string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, "InvalidRequest", err.Error())
		return
	}
	if !strings.EqualFold(req.Identifier, s.owner.Handle) || req.Password != s.pass {
		sendError(w, http.StatusUnauthorized, "AuthenticationRequired", "Invalid identifier or password")
		return
	}
	s.sendSession(w)
}

func (s *Server) handleRefreshSession(w http.ResponseWriter, r *http.Request) {
	s.count("com.atproto.server.refreshSession")
	if !s.authorize(w, r, refreshToken) {
		return
	}
	s.sendSession(w)
}

func (s *Server) sendSession(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"accessJwt":  accessToken,
		"refreshJwt": refreshToken,
		"did":        s.owner.DID,
		"handle":     s.owner.Handle,
	})
}

func (s *Server) handleGetFollows(w http.ResponseWriter, r *http.Request) {
	const nsid = "app.bsky.graph.getFollows"
	s.count(nsid)
	if !s.authorize(w, r, accessToken) || s.fault(w, nsid) {
		return
	}

	s.mu.RLock()
	views := make([]map[string]interface{}, 0, len(s.follows))
	for _, rkey := range s.follows {
		rec := s.records[rkey]
		did, _ := rec.Value["subject"].(string)
		if p := s.profiles[did]; p != nil {
			views = append(views, s.view(p, rec.URI, false))
		}
	}
	s.mu.RUnlock()

	s.sendPage(w, r, "follows", views)
}

func (s *Server) handleGetFollowers(w http.ResponseWriter, r *http.Request) {
	const nsid = "app.bsky.graph.getFollowers"
	s.count(nsid)
	if !s.authorize(w, r, accessToken) || s.fault(w, nsid) {
		return
	}

	s.mu.RLock()
	views := make([]map[string]interface{}, 0, len(s.followers))
	for _, did := range s.followers {
		if p := s.profiles[did]; p != nil {
			views = append(views, s.view(p, s.followURI(did), false))
		}
	}
	s.mu.RUnlock()

	s.sendPage(w, r, "followers", views)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	const nsid = "app.bsky.actor.getProfile"
	s.count(nsid)
	if !s.authorize(w, r, accessToken) || s.fault(w, nsid) {
		return
	}

	actor := r.URL.Query().Get("actor")
	s.mu.RLock()
	defer s.mu.RUnlock()
	did := actor
	if !strings.HasPrefix(actor, "did:") {
		did = s.byHandle[strings.ToLower(actor)]
	}
	p := s.profiles[did]
	if p == nil {
		sendError(w, http.StatusBadRequest, "InvalidRequest", "Profile not found")
		return
	}
	writeJSON(w, http.StatusOK, s.view(p, s.followURI(did), true))
}

func (s *Server) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
	const nsid = "com.atproto.repo.createRecord"
	s.count(nsid)
	if !s.authorize(w, r, accessToken) {
		return
	}
	s.writes.Add(1)
	if s.fault(w, nsid) {
		return
	}

	var req struct {
		Repo       string                 `json:"repo"`
		Collection string                 `json:"collection"`
		Record     map[string]interface{} `json:"record"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, "InvalidRequest", err.Error())
		return
	}
	if req.Repo != s.owner.DID {
		sendError(w, http.StatusBadRequest, "InvalidRequest", "repo does not match session")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if subject, _ := req.Record["subject"].(string); subject != "" {
		if f := takeFault(s.subjectFaults, subject); f != nil {
			sendError(w, f.Status, f.Error, "injected fault")
			return
		}
		if s.profiles[subject] == nil {
			sendError(w, http.StatusBadRequest, "InvalidRequest", "Unknown subject")
			return
		}
	}
	switch req.Collection {
	case collectionFollow, collectionList, collectionListItem:
	default:
		sendError(w, http.StatusBadRequest, "InvalidRequest", "Unsupported collection")
		return
	}

	rec := s.putRecord(req.Collection, req.Record)
	writeJSON(w, http.StatusOK, map[string]string{"uri": rec.URI, "cid": "bafy" + slug(rec.URI)})
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	const nsid = "com.atproto.repo.deleteRecord"
	s.count(nsid)
	if !s.authorize(w, r, accessToken) {
		return
	}
	s.writes.Add(1)
	if s.fault(w, nsid) {
		return
	}

	var req struct {
		Repo       string `json:"repo"`
		Collection string `json:"collection"`
		RKey       string `json:"rkey"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, "InvalidRequest", err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[req.RKey]
	if ok && rec.Collection == req.Collection {
		if subject, _ := rec.Value["subject"].(string); subject != "" {
			if f := takeFault(s.subjectFaults, subject); f != nil {
				sendError(w, f.Status, f.Error, "injected fault")
				return
			}
		}
		delete(s.records, req.RKey)
		for i, k := range s.follows {
			if k == req.RKey {
				s.follows = append(s.follows[:i], s.follows[i+1:]...)
				break
			}
		}
	}
	// Deleting a missing record succeeds, as on a real PDS.
	writeJSON(w, http.StatusOK, map[string]interface{}{})
}

// putRecord stores a record under a fresh rkey. Callers hold mu.
func (s *Server) putRecord(collection string, value map[string]interface{}) Record {
	s.nextRKey++
	rkey := fmt.Sprintf("3k%06d", s.nextRKey)
	rec := Record{
		URI:        fmt.Sprintf("at://%s/%s/%s", s.owner.DID, collection, rkey),
		Collection: collection,
		Value:      value,
	}
	s.records[rkey] = rec
	if collection == collectionFollow {
		s.follows = append(s.follows, rkey)
	}
	return rec
}

// followURI returns the owner's follow record URI for did. Callers hold mu.
func (s *Server) followURI(did string) string {
	for _, rkey := range s.follows {
		rec := s.records[rkey]
		if rec.Value["subject"] == did {
			return rec.URI
		}
	}
	return ""
}

func (s *Server) view(p *Profile, following string, detailed bool) map[string]interface{} {
	v := map[string]interface{}{
		"did":         p.DID,
		"handle":      p.Handle,
		"displayName": strings.TrimSuffix(p.Handle, ".test"),
	}
	viewer := map[string]string{}
	if following != "" {
		viewer["following"] = following
	}
	v["viewer"] = viewer
	if detailed {
		v["followsCount"] = p.FollowsCount
		v["followersCount"] = p.FollowersCount
		v["postsCount"] = p.PostsCount
	}
	return v
}

// sendPage writes one page of views using the offset cursor scheme
func (s *Server) sendPage(w http.ResponseWriter, r *http.Request, key string, views []map[string]interface{}) {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 50
	}
	offset := 0
	if c := r.URL.Query().Get("cursor"); c != "" {
		if offset, err = strconv.Atoi(c); err != nil {
			sendError(w, http.StatusBadRequest, "InvalidRequest", "bad cursor")
			return
		}
	}
	if offset > len(views) {
		offset = len(views)
	}
	end := offset + limit
	if end > len(views) {
		end = len(views)
	}

	resp := map[string]interface{}{key: views[offset:end]}
	if end < len(views) {
		resp["cursor"] = strconv.Itoa(end)
	}
	writeJSON(w, http.StatusOK, resp)
}

func sendError(w http.ResponseWriter, status int, code, message string) {
	if code == "RateLimitExceeded" {
		w.Header().Set("ratelimit-remaining", "0")
	}
	writeJSON(w, status, map[string]string{"error": code, "message": message})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func slug(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + 'a' - 'A'
		}
		return -1
	}, s)
}
