package upstream

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	appErrors "github.com/noah-isme/academy-portal/pkg/errors"
	"github.com/noah-isme/academy-portal/pkg/middleware/requestid"
)

type recordingObserver struct {
	routes   []string
	statuses []int
}

func (o *recordingObserver) ObserveUpstream(route string, status int, _ time.Duration) {
	o.routes = append(o.routes, route)
	o.statuses = append(o.statuses, status)
}

func TestClientGetForwardsCredentialsAndQuery(t *testing.T) {
	var gotCookie, gotReqID, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCookie = r.Header.Get("Cookie")
		gotReqID = r.Header.Get(requestid.Header)
		gotQuery = r.URL.RawQuery
		_ = json.NewEncoder(w).Encode(map[string]string{"name": "math"})
	}))
	defer srv.Close()

	obs := &recordingObserver{}
	client := New(Options{BaseURL: srv.URL + "/", Metrics: obs})

	ctx := WithCookie(context.Background(), "sid=abc")
	ctx = requestid.WithValue(ctx, "req-1")
	var out struct {
		Name string `json:"name"`
	}
	err := client.Get(ctx, "subjects.list", "/api/v1/subjects", url.Values{"page": {"2"}}, &out)
	require.NoError(t, err)
	assert.Equal(t, "math", out.Name)
	assert.Equal(t, "sid=abc", gotCookie)
	assert.Equal(t, "req-1", gotReqID)
	assert.Equal(t, "page=2", gotQuery)
	assert.Equal(t, []string{"subjects.list"}, obs.routes)
	assert.Equal(t, []int{http.StatusOK}, obs.statuses)
}

func TestClientMapsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Course not found"}`))
	}))
	defer srv.Close()

	client := New(Options{BaseURL: srv.URL})
	err := client.Get(context.Background(), "courses.get", "/api/v1/courses/x", nil, &struct{}{})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
	assert.Equal(t, "Course not found", appErr.Message)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestClientMapsServerErrorAndTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	client := New(Options{BaseURL: srv.URL})
	err := client.Delete(context.Background(), "courses.delete", "/api/v1/courses/1")
	assert.True(t, appErrors.Is(err, appErrors.ErrUpstream))
	srv.Close()

	err = client.Delete(context.Background(), "courses.delete", "/api/v1/courses/1")
	assert.True(t, appErrors.Is(err, appErrors.ErrUpstreamUnavailable))
}

func TestClientDeleteAcceptsNoContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := New(Options{BaseURL: srv.URL})
	require.NoError(t, client.Delete(context.Background(), "levels.delete", "/api/v1/levels/1"))
}

func TestClientSendMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "Algebra", r.FormValue("title"))
		assert.Equal(t, `["t1","t2"]`, r.FormValue("teacherIds"))
		file, header, err := r.FormFile("image")
		if !assert.NoError(t, err) {
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, "cover.png", header.Filename)
		assert.Equal(t, []byte{1, 2, 3}, data)
		_, _ = w.Write([]byte(`{"data":{"id":"c1"}}`))
	}))
	defer srv.Close()

	client := New(Options{BaseURL: srv.URL})
	var out struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	err := client.SendMultipart(context.Background(), http.MethodPatch, "courses.update", "/api/v1/courses/c1", Multipart{
		Fields: []Field{{Name: "title", Value: "Algebra"}, {Name: "teacherIds", Value: `["t1","t2"]`}},
		File:   &File{FieldName: "image", FileName: "cover.png", ContentType: "image/png", Data: []byte{1, 2, 3}},
	}, &out)
	require.NoError(t, err)
	assert.Equal(t, "c1", out.Data.ID)
}

func TestClientRecordsSpanPerCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/courses/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	client := New(Options{BaseURL: srv.URL, Tracer: provider.Tracer("test")})

	require.NoError(t, client.Get(context.Background(), "courses.list", "/api/v1/courses", nil, nil))
	err := client.Get(context.Background(), "courses.get", "/api/v1/courses/missing", nil, nil)
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "upstream courses.list", spans[0].Name())
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
	assert.Equal(t, "upstream courses.get", spans[1].Name())
	assert.Equal(t, codes.Error, spans[1].Status().Code)
	assert.Equal(t, appErrors.ErrNotFound.Code, spans[1].Status().Description)
}
