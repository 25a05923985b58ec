package handlers

import (
	"net/http"
	"testing"

	"github.com/tbourn/go-chat-archive/internal/repo"
)

func TestListMessages_Paging(t *testing.T) {
	a := newTestAPI(t)
	c := a.importChat(t, transcript)
	base := "/api/v1/chats/" + c.ID + "/messages"

	cases := []struct {
		query     string
		wantIDs   []string
		wantLimit int
	}{
		{"", []string{repo.MessageID(c.ID, 0), repo.MessageID(c.ID, 1), repo.MessageID(c.ID, 2)}, defaultPageSize},
		{"?limit=2", []string{repo.MessageID(c.ID, 0), repo.MessageID(c.ID, 1)}, 2},
		{"?limit=2&offset=2", []string{repo.MessageID(c.ID, 2)}, 2},
		{"?offset=10", nil, defaultPageSize},
		{"?limit=99999&refresh=true", []string{repo.MessageID(c.ID, 0), repo.MessageID(c.ID, 1), repo.MessageID(c.ID, 2)}, maxPageSize},
	}
	for _, tc := range cases {
		w := a.do(http.MethodGet, base+tc.query, "")
		if w.Code != http.StatusOK {
			t.Fatalf("%q: status=%d", tc.query, w.Code)
		}
		var page MessagesPage
		decode(t, w, &page)
		if page.Total != 3 || page.Limit != tc.wantLimit || len(page.Messages) != len(tc.wantIDs) {
			t.Fatalf("%q: unexpected page %+v", tc.query, page)
		}
		for i, id := range tc.wantIDs {
			if page.Messages[i].ID != id {
				t.Fatalf("%q: messages[%d]=%s; want %s", tc.query, i, page.Messages[i].ID, id)
			}
		}
	}

	if w := a.do(http.MethodGet, "/api/v1/chats/missing/messages", ""); w.Code != http.StatusNotFound {
		t.Fatalf("missing chat status=%d", w.Code)
	}
}

func TestListMessages_ChatLongerThanLoadPage(t *testing.T) {
	a := newTestAPI(t)
	a.svc.MessageLoadLimit = 1
	c := a.importChat(t, transcript)

	w := a.do(http.MethodGet, "/api/v1/chats/"+c.ID+"/messages?limit=1&offset=2", "")
	var page MessagesPage
	decode(t, w, &page)
	if w.Code != http.StatusOK || page.Total != 3 || len(page.Messages) != 1 || page.Messages[0].ID != repo.MessageID(c.ID, 2) {
		t.Fatalf("status=%d page=%+v", w.Code, page)
	}
}

func TestSearch(t *testing.T) {
	a := newTestAPI(t)
	c1 := a.importChat(t, transcript)
	a.importChat(t, "3/1/24, 9:00 - Carol: dinner was great")

	w := a.do(http.MethodGet, "/api/v1/search?q=DINNER", "")
	var all SearchResponse
	decode(t, w, &all)
	if w.Code != http.StatusOK || all.Total != 2 {
		t.Fatalf("status=%d resp=%+v", w.Code, all)
	}

	w = a.do(http.MethodGet, "/api/v1/search?q=dinner&chat_id="+c1.ID, "")
	var one SearchResponse
	decode(t, w, &one)
	if one.Total != 1 || one.Results[0].ChatID != c1.ID {
		t.Fatalf("scoped search: %+v", one)
	}

	w = a.do(http.MethodGet, "/api/v1/search?q=bob", "")
	var bySender SearchResponse
	decode(t, w, &bySender)
	if bySender.Total != 1 || bySender.Results[0].Sender != "Bob" {
		t.Fatalf("sender search: %+v", bySender)
	}

	w = a.do(http.MethodGet, "/api/v1/search?q=%20%20", "")
	if w.Code != http.StatusBadRequest || errCode(t, w) != ErrCodeBadRequest {
		t.Fatalf("blank query: status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestBookmarks_ToggleStatusList(t *testing.T) {
	a := newTestAPI(t)
	c := a.importChat(t, transcript)
	msgID := repo.MessageID(c.ID, 1)
	path := "/api/v1/messages/" + msgID + "/bookmark"

	status := func() BookmarkStatus {
		t.Helper()
		var s BookmarkStatus
		decode(t, a.do(http.MethodGet, path, ""), &s)
		return s
	}
	if status().Bookmarked {
		t.Fatalf("fresh message should not be bookmarked")
	}

	w := a.do(http.MethodPost, path, `{"note":"reply later"}`, "Content-Type", "application/json")
	var s BookmarkStatus
	decode(t, w, &s)
	if w.Code != http.StatusOK || !s.Bookmarked || s.MessageID != msgID {
		t.Fatalf("toggle on: status=%d %+v", w.Code, s)
	}
	if !status().Bookmarked {
		t.Fatalf("status should report bookmarked")
	}

	w = a.do(http.MethodGet, "/api/v1/bookmarks?chat_id="+c.ID, "")
	var list BookmarksResponse
	decode(t, w, &list)
	if list.Total != 1 || list.Bookmarks[0].Message.ID != msgID {
		t.Fatalf("unexpected bookmarks: %+v", list)
	}
	if n := list.Bookmarks[0].Bookmark.Note; n == nil || *n != "reply later" {
		t.Fatalf("note not stored: %v", n)
	}

	// Empty body toggles off.
	w = a.do(http.MethodPost, path, "")
	decode(t, w, &s)
	if s.Bookmarked || status().Bookmarked {
		t.Fatalf("second toggle should remove the bookmark")
	}
	decode(t, a.do(http.MethodGet, "/api/v1/bookmarks", ""), &list)
	if list.Total != 0 {
		t.Fatalf("bookmarks should be empty, got %+v", list)
	}
}

func TestToggleBookmark_Errors(t *testing.T) {
	a := newTestAPI(t)
	c := a.importChat(t, transcript)
	other := a.importChat(t, "3/1/24, 9:00 - Carol: Morning")
	path := "/api/v1/messages/" + repo.MessageID(c.ID, 0) + "/bookmark"

	cases := []struct {
		name   string
		path   string
		body   string
		status int
		code   string
	}{
		{"unknown message", "/api/v1/messages/nope-0/bookmark", "", http.StatusNotFound, ErrCodeMessageNotFound},
		{"wrong chat", path, `{"chat_id":"` + other.ID + `"}`, http.StatusNotFound, ErrCodeMessageNotFound},
		{"bad json", path, `{"note":`, http.StatusBadRequest, ErrCodeBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := a.do(http.MethodPost, tc.path, tc.body, "Content-Type", "application/json")
			if w.Code != tc.status || errCode(t, w) != tc.code {
				t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
			}
		})
	}
}
