//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fanline/fanline/internal/domain"
	"github.com/fanline/fanline/internal/testutil"
)

func fetchFeed(t *testing.T, client *testutil.Client, query string) []domain.Notification {
	t.Helper()

	resp, err := client.GET("/api/v1/me/notifications" + query)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var feed []domain.Notification
	testutil.DecodeData(t, resp, &feed)
	return feed
}

func TestFeed_JoinCreatesNotification(t *testing.T) {
	// Arrange
	organizer, _ := registerOrganizer(t)
	event := createActiveEvent(t, organizer, nil)
	fan, _ := registerFan(t)

	// Act
	joinQueue(t, fan, event.ID)

	// Assert
	feed := fetchFeed(t, fan, "")
	require.Len(t, feed, 1)
	assert.Equal(t, domain.NotificationQueueJoined, feed[0].Kind)
	assert.Equal(t, event.ID, feed[0].EventID)
	assert.False(t, feed[0].IsRead)
}

func TestFeed_CallNextNotifiesFan(t *testing.T) {
	// Arrange
	organizer, _ := registerOrganizer(t)
	event := createActiveEvent(t, organizer, nil)
	fan, _ := registerFan(t)
	joinQueue(t, fan, event.ID)

	// Act
	resp, err := organizer.POST("/api/v1/events/"+event.ID+"/queue/call-next", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	// Assert
	feed := fetchFeed(t, fan, "")
	kinds := make([]domain.NotificationKind, 0, len(feed))
	for _, n := range feed {
		kinds = append(kinds, n.Kind)
	}
	assert.Contains(t, kinds, domain.NotificationYourTurn)
}

func TestUnreadCount_AndMarkRead(t *testing.T) {
	// Arrange
	organizer, _ := registerOrganizer(t)
	event := createActiveEvent(t, organizer, nil)
	fan, _ := registerFan(t)
	joinQueue(t, fan, event.ID)

	resp, err := fan.GET("/api/v1/me/notifications/unread-count")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var count struct {
		Unread int `json:"unread"`
	}
	testutil.DecodeData(t, resp, &count)
	require.Equal(t, 1, count.Unread)

	feed := fetchFeed(t, fan, "")
	require.Len(t, feed, 1)

	// Act
	resp, err = fan.POST("/api/v1/notifications/"+feed[0].ID+"/read", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	// Assert
	resp, err = fan.GET("/api/v1/me/notifications/unread-count")
	require.NoError(t, err)
	testutil.DecodeData(t, resp, &count)
	assert.Equal(t, 0, count.Unread)

	unread := fetchFeed(t, fan, "?unread=true")
	assert.Empty(t, unread)
}

func TestMarkRead_OtherUsersNotificationForbidden(t *testing.T) {
	// Arrange
	organizer, _ := registerOrganizer(t)
	event := createActiveEvent(t, organizer, nil)
	fan, _ := registerFan(t)
	other, _ := registerFan(t)
	joinQueue(t, fan, event.ID)

	feed := fetchFeed(t, fan, "")
	require.Len(t, feed, 1)

	// Act
	resp, err := other.POST("/api/v1/notifications/"+feed[0].ID+"/read", nil)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestMarkAllRead(t *testing.T) {
	// Arrange
	organizer, _ := registerOrganizer(t)
	eventA := createActiveEvent(t, organizer, nil)
	eventB := createActiveEvent(t, organizer, nil)
	fan, _ := registerFan(t)
	joinQueue(t, fan, eventA.ID)
	joinQueue(t, fan, eventB.ID)

	// Act
	resp, err := fan.POST("/api/v1/me/notifications/read-all", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	// Assert
	unread := fetchFeed(t, fan, "?unread=true")
	assert.Empty(t, unread)
}
