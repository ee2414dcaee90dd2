package clients

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

const searchResponseFixture = `{
	"data": [
		{
			"id": "1001",
			"text": "Explosion reported downtown",
			"author_id": "u1",
			"created_at": "2024-03-01T10:15:00.000Z",
			"public_metrics": {"like_count": 12, "retweet_count": 3, "reply_count": 4},
			"attachments": {"media_keys": ["m1", "m2"]}
		},
		{
			"id": "1002",
			"text": "Traffic is terrible today",
			"author_id": "u2",
			"created_at": "2024-03-01T10:20:00.000Z",
			"public_metrics": {"like_count": 1, "retweet_count": 0, "reply_count": 0}
		}
	],
	"includes": {
		"users": [
			{"id": "u1", "username": "reporter_jane", "verified": true, "created_at": "2015-04-01T00:00:00.000Z", "public_metrics": {"followers_count": 54000}},
			{"id": "u2", "username": "random_guy", "public_metrics": {"followers_count": 12}}
		],
		"media": [
			{"media_key": "m1", "type": "photo", "url": "https://img.example.com/a.jpg"},
			{"media_key": "m2", "type": "video", "preview_image_url": "https://img.example.com/b.jpg"}
		]
	},
	"meta": {"next_token": "tok123", "result_count": 2}
}`

func TestParseSearchResponse(t *testing.T) {
	response, err := ParseSearchResponse([]byte(searchResponseFixture))
	require.NoError(t, err)

	require.Equal(t, 2, response.ResultCount)
	require.Equal(t, "tok123", response.NextToken)
	require.Len(t, response.Posts, 2)

	first := response.Posts[0]
	require.Equal(t, "1001", first.Id)
	require.Equal(t, "reporter_jane", first.AuthorUsername)
	require.Equal(t, 12, first.Likes)
	require.Equal(t, 3, first.Retweets)
	require.Equal(t, 4, first.Replies)
	require.Equal(t, []string{"https://img.example.com/a.jpg", "https://img.example.com/b.jpg"}, first.MediaUrls)
	require.Equal(t, 2024, first.PostedAt.Year())

	second := response.Posts[1]
	require.Equal(t, "random_guy", second.AuthorUsername)
	require.Empty(t, second.MediaUrls)
}

func TestParseSearchResponseEmptyPayload(t *testing.T) {
	response, err := ParseSearchResponse([]byte(`{"meta": {"result_count": 0}}`))
	require.NoError(t, err)
	require.Empty(t, response.Posts)
}

func TestParseSearchResponseMalformedPayload(t *testing.T) {
	_, err := ParseSearchResponse([]byte(`not json`))
	require.Error(t, err)
}

func TestSearchRecentPostsSendsCursorAndAuth(t *testing.T) {
	var gotPath, gotSinceId, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotSinceId = r.URL.Query().Get("since_id")
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(searchResponseFixture))
	}))
	defer server.Close()

	client := NewXClient("token123")
	client.baseUrl = server.URL

	response, err := client.SearchRecentPosts(context.Background(), SearchParams{
		Query:      "flood",
		MaxResults: 100,
		SinceId:    "999",
	})
	require.NoError(t, err)
	require.Len(t, response.Posts, 2)
	require.Equal(t, "/tweets/search/recent", gotPath)
	require.Equal(t, "999", gotSinceId)
	require.Equal(t, "Bearer token123", gotAuth)
}

func TestGetUsersSkipsFailedChunk(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewXClient("token123")
	client.baseUrl = server.URL

	users, err := client.GetUsers(context.Background(), []string{"u1", "u2"})
	require.NoError(t, err)
	require.Empty(t, users)
}

func TestGetUsersParsesUsers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": [{"id": "u1", "username": "jane", "verified": true, "created_at": "2020-01-01T00:00:00.000Z", "public_metrics": {"followers_count": 250}}]}`))
	}))
	defer server.Close()

	client := NewXClient("token123")
	client.baseUrl = server.URL

	users, err := client.GetUsers(context.Background(), []string{"u1"})
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.Equal(t, "jane", users["u1"].Username)
	require.Equal(t, 250, users["u1"].FollowersCount)
	require.True(t, users["u1"].Verified)
	require.NotNil(t, users["u1"].CreatedAt)
}
