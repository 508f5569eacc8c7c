package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"identity-mcp/internal/credential"
	"identity-mcp/internal/dispatcher"
	httpserver "identity-mcp/internal/server"
	"identity-mcp/internal/session"
	"identity-mcp/pkg/logging"
)

// runLocal serves one MCP session over stdin/stdout with the credential
// from the credential store.
func (a *Application) runLocal(ctx context.Context, stdin io.Reader, stdout io.Writer) error {
	s := a.settings

	store, err := credential.NewStore(s.CredentialDir)
	if err != nil {
		return fmt.Errorf("failed to open credential store: %w", err)
	}
	source := credential.NewStoreSource(store, s.Domain,
		credential.WithFallback(environmentCredential(a.settings)),
		credential.WithTokenURL(s.TokenURL()),
	)

	connectCtx, cancel := context.WithTimeout(ctx, s.ConnectTimeout)
	cred, err := source.Reload(connectCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to load credential: %w", err)
	}
	if err := credential.Validate(cred, time.Now()); err != nil {
		return fmt.Errorf("no usable credential for %s (%w); run `%s login` or set OAUTH_CLIENT_ID and OAUTH_CLIENT_SECRET",
			s.Domain, err, ServerName)
	}

	granted := cred.Scopes
	if len(granted) == 0 {
		// Opaque tokens and client pairs carry no readable grant; the
		// management API still enforces its own scopes.
		granted = a.services.Registry.RequiredScopes()
		logging.Debug("CLI", "Credential carries no scope claims; exposing every configured tool")
	}

	disp := dispatcher.New(dispatcher.Config{
		View:      a.services.Registry.View(a.services.Filter, granted),
		Source:    source,
		Factory:   a.services.Factory,
		Domain:    s.Domain,
		Audience:  s.Audience,
		Timeout:   s.OperationTimeout,
		Recorder:  a.services.Recorder,
		SessionID: "stdio",
	})

	mcpServer := mcpserver.NewMCPServer(ServerName, a.config.Version,
		mcpserver.WithToolCapabilities(false),
		mcpserver.WithRecovery(),
	)
	disp.Register(mcpServer)

	watcher := credential.NewStoreWatcher(credential.WatcherConfig{
		Dir:      store.Dir(),
		FileName: store.FileName(s.Domain),
		OnChange: source.Invalidate,
	})
	if err := watcher.Start(); err != nil {
		logging.Warn("CLI", "Credential store changes will not be picked up: %v", err)
	} else {
		defer watcher.Stop()
	}

	logging.Info("CLI", "Serving %d tools over stdio (%s credential)", len(disp.View().List()), cred.Mode())
	return serveStdio(ctx, mcpServer, disp, stdin, stdout)
}

// runServe runs the hosted transport until ctx is cancelled.
func (a *Application) runServe(ctx context.Context) error {
	s := a.settings

	sessions := session.NewManager(session.Config{
		ServerName:        ServerName,
		Version:           a.config.Version,
		Registry:          a.services.Registry,
		Filter:            a.services.Filter,
		Factory:           a.services.Factory,
		Domain:            s.Domain,
		Audience:          s.Audience,
		OperationTimeout:  s.OperationTimeout,
		IdleTimeout:       s.SessionIdleTimeout,
		MaxSessions:       s.MaxSessions,
		HeartbeatInterval: defaultHeartbeatInterval,
		Recorder:          a.services.Recorder,
	})
	defer sessions.Stop()

	httpSrv, err := httpserver.New(httpserver.Config{
		Domain:             s.Domain,
		ClientID:           s.ClientID,
		Audience:           s.Audience,
		AudiencePolicy:     s.AudiencePolicy,
		PublicURL:          s.PublicURL,
		RequiredScopes:     a.services.Registry.RequiredScopes(),
		Version:            a.config.Version,
		AuthorizeURL:       s.AuthorizeURL(),
		TokenURL:           s.TokenURL(),
		JWKSURL:            s.JWKSURL(),
		RateLimit:          s.RateLimitRequestsPerSec,
		RateBurst:          s.RateLimitBurst,
		RegistrationsPerIP: s.RegistrationsPerIP,
		TrustProxy:         s.TrustProxy,
		Metrics:            a.services.Metrics,
		MetricsNamespace:   s.MetricsNamespace,
	}, sessions)
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}

	listener := a.config.Listener
	if listener == nil {
		addr := net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", addr, err)
		}
	}
	if s.PublicURL == "" {
		logging.Info("CLI", "PUBLIC_SERVER_URL not set; deriving the public URL from request headers")
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- httpSrv.Serve(listener)
	}()
	notifySystemd(daemon.SdNotifyReady)

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logging.Info("CLI", "Shutting down")
	notifySystemd(daemon.SdNotifyStopping)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Open GET streams only end when their session closes.
	sessions.Stop()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("HTTP server shutdown: %w", err)
	}
	return <-serveErr
}

func notifySystemd(state string) {
	sent, err := daemon.SdNotify(false, state)
	switch {
	case err != nil:
		logging.Warn("CLI", "sd_notify %s failed: %v", state, err)
	case sent:
		logging.Debug("CLI", "Sent %s to systemd", state)
	}
}
