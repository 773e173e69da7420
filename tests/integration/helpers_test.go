//go:build integration

package integration

import (
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fanline/fanline/internal/domain"
	"github.com/fanline/fanline/internal/testutil"
)

var emailCounter atomic.Int64

func uniqueEmail(prefix string) string {
	return fmt.Sprintf("%s-%d@example.com", prefix, emailCounter.Add(1))
}

// registerAndLogin creates an account with the given role and returns an
// authenticated client plus the created user.
func registerAndLogin(t *testing.T, role string) (*testutil.Client, domain.User) {
	t.Helper()

	email := uniqueEmail(role)
	password := "password123"

	resp, err := testClient.POST("/api/v1/auth/register", map[string]string{
		"email":        email,
		"password":     password,
		"display_name": "Test " + role,
		"role":         role,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode, testutil.ReadBody(t, resp))

	resp, err = testClient.POST("/api/v1/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var login struct {
		User   domain.User `json:"user"`
		Tokens struct {
			AccessToken  string `json:"access_token"`
			RefreshToken string `json:"refresh_token"`
		} `json:"tokens"`
	}
	testutil.DecodeData(t, resp, &login)
	require.NotEmpty(t, login.Tokens.AccessToken)

	return testClient.WithToken(login.Tokens.AccessToken), login.User
}

func registerFan(t *testing.T) (*testutil.Client, domain.User) {
	t.Helper()
	return registerAndLogin(t, "fan")
}

func registerOrganizer(t *testing.T) (*testutil.Client, domain.User) {
	t.Helper()
	return registerAndLogin(t, "organizer")
}

// eventRequest returns a valid event creation body starting an hour from now.
func eventRequest() map[string]any {
	start := time.Now().Add(time.Hour).UTC()
	return map[string]any{
		"title":         "Album Signing",
		"description":   "Meet the band",
		"location":      "Hall B",
		"start_time":    start.Format(time.RFC3339),
		"end_time":      start.Add(4 * time.Hour).Format(time.RFC3339),
		"slot_duration": 5,
	}
}

// createEvent creates an event as the given organizer, applying overrides on
// top of the default request body.
func createEvent(t *testing.T, organizer *testutil.Client, overrides map[string]any) domain.Event {
	t.Helper()

	body := eventRequest()
	for k, v := range overrides {
		body[k] = v
	}

	resp, err := organizer.POST("/api/v1/events", body)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode, testutil.ReadBody(t, resp))

	var event domain.Event
	testutil.DecodeData(t, resp, &event)
	return event
}

// createActiveEvent creates and activates an event in one step.
func createActiveEvent(t *testing.T, organizer *testutil.Client, overrides map[string]any) domain.Event {
	t.Helper()

	event := createEvent(t, organizer, overrides)

	resp, err := organizer.POST("/api/v1/events/"+event.ID+"/activate", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, testutil.ReadBody(t, resp))

	var activated domain.Event
	testutil.DecodeData(t, resp, &activated)
	require.True(t, activated.IsActive)
	return activated
}

// joinQueue joins the event's queue as the given fan.
func joinQueue(t *testing.T, fan *testutil.Client, eventID string) domain.QueueEntry {
	t.Helper()

	resp, err := fan.POST("/api/v1/events/"+eventID+"/queue", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode, testutil.ReadBody(t, resp))

	var entry domain.QueueEntry
	testutil.DecodeData(t, resp, &entry)
	return entry
}

// fetchQueue returns the event's queue as seen by the given client.
func fetchQueue(t *testing.T, client *testutil.Client, eventID string) []domain.QueueEntry {
	t.Helper()

	resp, err := client.GET("/api/v1/events/" + eventID + "/queue")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var entries []domain.QueueEntry
	testutil.DecodeData(t, resp, &entries)
	return entries
}
