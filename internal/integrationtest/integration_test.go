package integrationtest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/dirk.krummacker/contacts-store/internal/config"
	"gitlab.com/dirk.krummacker/contacts-store/internal/service"
	"gitlab.com/dirk.krummacker/contacts-store/internal/store"
	api "gitlab.com/dirk.krummacker/contacts-store/pkg/model"
)

// loadConfig reads the configuration from the environment. Without DBDRIVER=mysql the tests
// use a SQLite file in a temporary directory.
func loadConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	if cfg.Database.Driver == store.DriverSQLite {
		cfg.Database.Path = filepath.Join(t.TempDir(), "contacts.db")
	}
	return cfg
}

// startService opens the store described by cfg and returns a router serving it.
func startService(t *testing.T, cfg *config.Config) (*gin.Engine, *store.Store) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := store.Open(context.Background(), cfg.Database.Driver, cfg.Database.DSN(), store.WithLogger(logger))
	require.NoError(t, err)
	service.SetupStore(s, logger)
	gin.SetMode(gin.ReleaseMode)
	return service.SetupHttpRouter(false), s
}

func request(t *testing.T, router *gin.Engine, method string, url string, body string, expectedCode int) []byte {
	t.Helper()
	recorder := httptest.NewRecorder()
	req, _ := http.NewRequest(method, url, strings.NewReader(body))
	router.ServeHTTP(recorder, req)
	require.Equal(t, expectedCode, recorder.Code, recorder.Body.String())
	return recorder.Body.Bytes()
}

// TestContactHappyPath tests a POST, GET and two PUTs with valid data.
func TestContactHappyPath(t *testing.T) {
	cfg := loadConfig(t)
	router, s := startService(t, cfg)
	defer s.Close()

	// test the endpoint for creating a contact
	var created api.Contact
	require.NoError(t, json.Unmarshal(request(t, router, "POST", "/contacts", `
		{
			"firstname": "Erika",
			"lastname": "Mustermann",
			"emails": [
				{"type": "work", "email": "erika@work.example"},
				{"type": "home", "email": "erika@home.example"},
				{"type": "other", "email": "erika@other.example"}
			],
			"phones": [{"type": "home", "phone": "+49 0815 4711"}]
		}
	`, http.StatusCreated), &created))
	url := fmt.Sprintf("/contacts/%d", created.Id)

	// test the endpoint for finding a contact
	var got api.Contact
	require.NoError(t, json.Unmarshal(request(t, router, "GET", url, "", http.StatusOK), &got))
	assert.Equal(t, created, got)

	// drop one email and replace the phone
	update := fmt.Sprintf(`{
		"firstname": "Rudi",
		"emails": [{"id": %d, "type": "work", "email": "erika@work.example"}, {"id": %d, "type": "home", "email": "erika@home.example"}],
		"phones": [{"type": "mobile", "phone": "+49 1234567890"}]
	}`, created.Emails[0].Id, created.Emails[1].Id)
	request(t, router, "PUT", url, update, http.StatusOK)

	// test if a subsequent lookup of the contact returns the updated values
	got = api.Contact{}
	require.NoError(t, json.Unmarshal(request(t, router, "GET", url, "", http.StatusOK), &got))
	assert.Equal(t, "Rudi", got.FirstName)
	assert.Equal(t, "Mustermann", got.LastName)
	assert.Equal(t, created.Emails[:2], got.Emails)
	require.Len(t, got.Phones, 1)
	assert.Equal(t, "+49 1234567890", got.Phones[0].Phone)

	// no rows of the removed email or phone may be left behind
	orphans, err := s.EmailsWhere(context.Background(), "email", "erika@other.example")
	require.NoError(t, err)
	assert.Empty(t, orphans)
	orphanPhones, err := s.PhonesWhere(context.Background(), "phone", "+49 0815 4711")
	require.NoError(t, err)
	assert.Empty(t, orphanPhones)

	// remove all phones
	request(t, router, "PUT", url, `{"phones": []}`, http.StatusOK)
	assert.JSONEq(t, "[]", string(request(t, router, "GET", url+"/phones", "", http.StatusOK)))
}

// TestContactsSurviveRestart saves contacts, reopens the database and reads them again.
func TestContactsSurviveRestart(t *testing.T) {
	cfg := loadConfig(t)
	router, s := startService(t, cfg)

	var created api.Contact
	require.NoError(t, json.Unmarshal(request(t, router, "POST", "/contacts",
		`{"firstname": "Julius", "lastname": "Cäsar", "phones": [{"type": "home", "phone": "+39 123 456 789"}]}`,
		http.StatusCreated), &created))
	require.NoError(t, s.Close())

	router, s = startService(t, cfg)
	defer s.Close()
	var got api.Contact
	require.NoError(t, json.Unmarshal(request(t, router, "GET", fmt.Sprintf("/contacts/%d", created.Id), "", http.StatusOK), &got))
	assert.Equal(t, created, got)

	var found []api.Contact
	require.NoError(t, json.Unmarshal(request(t, router, "GET", "/contacts?lastname=Cä", "", http.StatusOK), &found))
	assert.Contains(t, found, api.Contact{Id: created.Id, FirstName: "Julius", LastName: "Cäsar"})
}
