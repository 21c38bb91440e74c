package captcha

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHTTPVerifier_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.Equal(t, "s3cret", r.PostForm.Get("secret"))
		require.Equal(t, "tok-123", r.PostForm.Get("response"))
		w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	v := NewHTTPVerifier(srv.URL, "s3cret", time.Second)
	require.NoError(t, v.Verify(context.Background(), "tok-123"))
}

func TestHTTPVerifier_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"success":false}`))
	}))
	defer srv.Close()

	v := NewHTTPVerifier(srv.URL, "s3cret", time.Second)
	require.ErrorIs(t, v.Verify(context.Background(), "tok-123"), ErrVerificationFailed)
}

func TestHTTPVerifier_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	v := NewHTTPVerifier(srv.URL, "s3cret", time.Second)
	require.ErrorIs(t, v.Verify(context.Background(), "tok-123"), ErrVerificationFailed)
}

func TestHTTPVerifier_TimeoutFailsClosed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	v := NewHTTPVerifier(srv.URL, "s3cret", 20*time.Millisecond)
	require.ErrorIs(t, v.Verify(context.Background(), "tok-123"), ErrVerificationFailed)
}

func TestDisabled_AlwaysPasses(t *testing.T) {
	require.NoError(t, Disabled{}.Verify(context.Background(), ""))
}
