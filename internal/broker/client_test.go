package broker

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const lastJSON = `{"created_at":"2025-03-01T10:00:00Z","entry_id":41,"field1":"25.5","field2":"71","field3":"1","field4":"0","field5":null,"field6":"26","field7":"900","field8":"1800"}`

const feedsJSON = `{"channel":{"id":123},"feeds":[
{"created_at":"2025-03-01T09:59:00Z","entry_id":39,"field1":"25.0","field2":"70","field3":"0","field4":"1","field5":"1","field6":null,"field7":null,"field8":null},
{"created_at":"2025-03-01T09:59:30Z","entry_id":40,"field1":null,"field2":null,"field3":"1","field4":null,"field5":null,"field6":null,"field7":null,"field8":null},
{"created_at":"2025-03-01T10:00:00Z","entry_id":41,"field1":"25.5","field2":"71","field3":null,"field4":null,"field5":null,"field6":"26","field7":"900","field8":"1800"}
]}`

func TestClient_Latest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/channels/123/feeds/last.json", r.URL.Path)
		assert.Equal(t, "RK", r.URL.Query().Get("api_key"))
		_, _ = io.WriteString(w, lastJSON)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "123", "RK", "WK")
	e, err := c.Latest(context.Background())
	require.NoError(t, err)

	assert.EqualValues(t, 41, e.EntryID)
	assert.Equal(t, time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC), e.CreatedAt)
	assert.Equal(t, "25.5", e.Value(FieldTemperature))
	assert.False(t, e.Has(FieldOperationMode))
}

func TestClient_Latest_EmptyChannel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "-1")
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "123", "RK", "").Latest(context.Background())
	assert.ErrorIs(t, err, ErrNoData)
}

func TestClient_FeedsAndLatestValues(t *testing.T) {
	var gotQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/channels/123/feeds.json", r.URL.Path)
		gotQuery = r.URL.Query()
		_, _ = io.WriteString(w, feedsJSON)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "123", "RK", "WK")
	folded, err := LatestValues(context.Background(), c, 20)
	require.NoError(t, err)

	assert.Equal(t, "20", gotQuery.Get("results"))
	assert.EqualValues(t, 41, folded.EntryID)
	// newest non-empty value per field
	assert.Equal(t, "25.5", folded.Value(FieldTemperature))
	assert.Equal(t, "1", folded.Value(FieldPumpStatus))
	assert.Equal(t, "1", folded.Value(FieldHeaterStatus))
	assert.Equal(t, "1", folded.Value(FieldOperationMode))
	assert.Equal(t, "900", folded.Value(FieldPumpOnTimer))

	st := ToDeviceState(folded)
	assert.True(t, st.PumpStatus)
	assert.True(t, st.HeaterStatus)
	assert.True(t, st.OperationMode)
}

func TestClient_FeedsRange(t *testing.T) {
	var gotQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		_, _ = io.WriteString(w, `{"feeds":[]}`)
	}))
	defer srv.Close()

	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)
	entries, err := NewClient(srv.URL, "123", "", "").Feeds(context.Background(), FeedQuery{Start: start, End: end})
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Equal(t, "2025-03-01 00:00:00", gotQuery.Get("start"))
	assert.Equal(t, "2025-03-02 00:00:00", gotQuery.Get("end"))
	assert.Empty(t, gotQuery.Get("api_key"))
}

func TestClient_Write(t *testing.T) {
	var form url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/update", r.URL.Path)
		require.NoError(t, r.ParseForm())
		form = r.PostForm
		_, _ = io.WriteString(w, "57")
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "123", "RK", "WK")
	id, err := c.Write(context.Background(), Update{FieldPumpStatus: FormatBool(true)})
	require.NoError(t, err)
	assert.EqualValues(t, 57, id)
	assert.Equal(t, "WK", form.Get("api_key"))
	assert.Equal(t, "1", form.Get("field3"))
	assert.Empty(t, form.Get("field4"))
}

func TestClient_Write_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "0")
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "123", "RK", "WK").Write(context.Background(), Update{FieldHeaterStatus: "1"})
	assert.ErrorIs(t, err, ErrRejected)
}

func TestClient_NotConfigured(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", "", "", "")
	_, err := c.Latest(context.Background())
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = c.Write(context.Background(), Update{FieldPumpStatus: "1"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestClient_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	var results []string
	c := NewClient(srv.URL, "123", "RK", "WK",
		WithBreaker(2, time.Minute),
		WithObserver(func(op, result string) { results = append(results, op+":"+result) }),
	)

	for i := 0; i < 3; i++ {
		_, err := c.Latest(context.Background())
		assert.ErrorIs(t, err, ErrUnavailable)
	}
	assert.EqualValues(t, 2, hits.Load(), "third call must be short-circuited")
	assert.Equal(t, []string{"latest:error", "latest:error", "latest:error"}, results)
}

func TestClient_RejectedDoesNotTripBreaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "0")
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "123", "RK", "WK", WithBreaker(1, time.Minute))
	for i := 0; i < 3; i++ {
		_, err := c.Write(context.Background(), Update{FieldPumpStatus: "1"})
		require.True(t, errors.Is(err, ErrRejected), "got %v", err)
	}
}

func TestSwitch(t *testing.T) {
	s := NewSwitch(nil)
	assert.Equal(t, SourceThingSpeak, s.Source())
	_, err := s.Latest(context.Background())
	assert.ErrorIs(t, err, ErrNotConfigured)

	fake := &stubBroker{latest: Entry{EntryID: 3}}
	s.UseEmulator(fake)
	assert.Equal(t, SourceEmulator, s.Source())
	e, err := s.Latest(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 3, e.EntryID)

	_, err = s.Write(context.Background(), Update{FieldPumpStatus: "1"})
	require.NoError(t, err)
	assert.Equal(t, 1, fake.writes)

	s.UseRemote()
	assert.Equal(t, SourceThingSpeak, s.Source())
}

func TestEntryJSONRoundTrip(t *testing.T) {
	var e Entry
	require.NoError(t, e.UnmarshalJSON([]byte(lastJSON)))
	b, err := e.MarshalJSON()
	require.NoError(t, err)

	var again Entry
	require.NoError(t, again.UnmarshalJSON(b))
	assert.Equal(t, e, again)
}

type stubBroker struct {
	latest Entry
	writes int
}

func (s *stubBroker) Latest(ctx context.Context) (Entry, error) { return s.latest, nil }
func (s *stubBroker) Feeds(ctx context.Context, q FeedQuery) ([]Entry, error) {
	return []Entry{s.latest}, nil
}
func (s *stubBroker) Write(ctx context.Context, u Update) (int64, error) {
	s.writes++
	return int64(s.writes), nil
}
