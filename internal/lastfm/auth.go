package lastfm

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os/exec"
	"runtime"
	"time"

	"github.com/cockroachdb/errors"
)

// DefaultAuthAddr is the local address of the authorization callback server.
const DefaultAuthAddr = "localhost:9847"

// AuthServer receives the token Last.fm redirects to after the user
// authorizes the application.
type AuthServer struct {
	server   *http.Server
	listener net.Listener
	tokens   chan string
	done     chan struct{}
}

const authPage = `<!DOCTYPE html>
<html>
<head><title>wavestream - Last.fm</title></head>
<body style="font-family: sans-serif; text-align: center; padding: 50px;">
<h1>%s</h1>
<p>%s</p>
</body>
</html>`

// StartAuthServer listens on addr and serves /callback.
func StartAuthServer(addr string) (*AuthServer, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "listen on %s", addr)
	}

	as := &AuthServer{
		listener: listener,
		tokens:   make(chan string, 1),
		done:     make(chan struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", as.handleCallback)
	as.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		_ = as.server.Serve(listener)
		close(as.done)
	}()

	return as, nil
}

func (as *AuthServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")

	w.Header().Set("Content-Type", "text/html")
	if token == "" {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, authPage, "Authorization Failed", "No token received. Please try again.")
		return
	}
	fmt.Fprintf(w, authPage, "Authorization Successful", "You can close this window.")

	select {
	case as.tokens <- token:
	default:
	}
}

// CallbackURL returns the URL to pass as the auth callback.
func (as *AuthServer) CallbackURL() string {
	return "http://" + as.listener.Addr().String() + "/callback"
}

// WaitToken blocks until a token arrives or ctx is done.
func (as *AuthServer) WaitToken(ctx context.Context) (string, error) {
	select {
	case token := <-as.tokens:
		return token, nil
	case <-ctx.Done():
		return "", errors.Wrap(ctx.Err(), "waiting for authorization")
	}
}

// Shutdown stops the server.
func (as *AuthServer) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = as.server.Shutdown(ctx)
	<-as.done
}

// OpenBrowser opens the given URL in the default browser.
func OpenBrowser(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		return errors.Newf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}
