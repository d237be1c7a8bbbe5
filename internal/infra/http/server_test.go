package http

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestServerShutdown(t *testing.T) {
	s := NewServer(zerolog.Nop())
	errc := make(chan error, 1)
	go func() { errc <- s.Start("127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown вернул ошибку: %v", err)
	}

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			t.Fatalf("Start должен завершаться с ErrServerClosed, получили %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Start не завершился после Shutdown")
	}
}
