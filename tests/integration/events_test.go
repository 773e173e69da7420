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

func TestCreateEvent_DerivesCapacityAndCode(t *testing.T) {
	// Arrange
	organizer, registered := registerOrganizer(t)

	// Act: 4 hours of 5-minute slots, no explicit capacity
	event := createEvent(t, organizer, nil)

	// Assert
	assert.Equal(t, registered.ID, event.OrganizerID)
	assert.Equal(t, 48, event.MaxCapacity)
	assert.Len(t, event.Code, 6)
	assert.True(t, event.IsActive)
}

func TestCreateEvent_FanForbidden(t *testing.T) {
	// Arrange
	fan, _ := registerFan(t)

	// Act
	resp, err := fan.POST("/api/v1/events", eventRequest())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestCreateEvent_EndBeforeStart(t *testing.T) {
	// Arrange
	organizer, _ := registerOrganizer(t)
	body := eventRequest()
	body["end_time"] = body["start_time"]

	// Act
	resp, err := organizer.POST("/api/v1/events", body)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestGetEventByCode(t *testing.T) {
	// Arrange
	organizer, _ := registerOrganizer(t)
	event := createEvent(t, organizer, nil)

	// Act
	resp, err := testClient.GET("/api/v1/events/code/" + event.Code)

	// Assert
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var found domain.Event
	testutil.DecodeData(t, resp, &found)
	assert.Equal(t, event.ID, found.ID)
}

func TestGetEvent_IncludesQueueStats(t *testing.T) {
	// Arrange
	organizer, _ := registerOrganizer(t)
	event := createActiveEvent(t, organizer, nil)

	fan, _ := registerFan(t)
	joinQueue(t, fan, event.ID)

	// Act
	resp, err := testClient.GET("/api/v1/events/" + event.ID)

	// Assert
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stats domain.EventWithQueueStats
	testutil.DecodeData(t, resp, &stats)
	assert.Equal(t, 1, stats.QueueCount)
	assert.Equal(t, event.MaxCapacity-1, stats.AvailableSlots)
}

func TestUpdateEvent_OnlyOwner(t *testing.T) {
	// Arrange
	owner, _ := registerOrganizer(t)
	other, _ := registerOrganizer(t)
	event := createEvent(t, owner, nil)

	// Update replaces the editable fields wholesale.
	update := eventRequest()
	update["max_capacity"] = event.MaxCapacity

	// Act
	update["title"] = "Hijacked"
	resp, err := other.PATCH("/api/v1/events/"+event.ID, update)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	_ = resp.Body.Close()

	update["title"] = "Renamed Session"
	resp, err = owner.PATCH("/api/v1/events/"+event.ID, update)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var updated domain.Event
	testutil.DecodeData(t, resp, &updated)
	assert.Equal(t, "Renamed Session", updated.Title)
}

func TestDeactivateEvent_ClosesQueueJoins(t *testing.T) {
	// Arrange
	organizer, _ := registerOrganizer(t)
	event := createActiveEvent(t, organizer, nil)

	resp, err := organizer.POST("/api/v1/events/"+event.ID+"/deactivate", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	fan, _ := registerFan(t)

	// Act
	resp, err = fan.POST("/api/v1/events/"+event.ID+"/queue", nil)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	_ = resp.Body.Close()
}
