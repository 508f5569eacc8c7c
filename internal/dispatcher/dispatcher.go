package dispatcher

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"identity-mcp/internal/capability"
	"identity-mcp/internal/credential"
	"identity-mcp/internal/management"
	"identity-mcp/internal/metrics"
	"identity-mcp/pkg/logging"

	"github.com/mark3labs/mcp-go/mcp"
)

const subsystem = "Dispatcher"

// DefaultTimeout bounds a handler invocation when Config.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// ClientFactory builds management API clients for a credential.
type ClientFactory interface {
	Client(ctx context.Context, creds management.Credentials) (management.API, error)
}

// Envelope is one tool call as received from the client. Arguments are not
// validated yet.
type Envelope struct {
	OperationName string
	Arguments     map[string]any
}

// Config wires a Dispatcher.
type Config struct {
	// View is the catalog visible to the session.
	View *capability.View
	// Source supplies the credential attached to every call.
	Source credential.Source
	// Factory builds the management client for the credential.
	Factory ClientFactory
	// Domain is the configured tenant domain.
	Domain string
	// Audience is requested when the credential is a client pair without
	// its own audience.
	Audience string
	// Timeout bounds each handler invocation. Zero means DefaultTimeout.
	Timeout time.Duration
	// Recorder receives one observation per call. Nil disables metrics.
	Recorder metrics.Recorder
	// SessionID is only used to label log lines.
	SessionID string
	// Now is the clock used for expiry checks. Nil means time.Now.
	Now func() time.Time
}

// Dispatcher runs tool calls for one session. It is safe for concurrent use.
type Dispatcher struct {
	view      *capability.View
	source    credential.Source
	factory   ClientFactory
	domain    string
	audience  string
	timeout   time.Duration
	recorder  metrics.Recorder
	sessionID string
	now       func() time.Time
}

// New creates a Dispatcher from cfg.
func New(cfg Config) *Dispatcher {
	d := &Dispatcher{
		view:      cfg.View,
		source:    cfg.Source,
		factory:   cfg.Factory,
		domain:    cfg.Domain,
		audience:  cfg.Audience,
		timeout:   cfg.Timeout,
		recorder:  cfg.Recorder,
		sessionID: cfg.SessionID,
		now:       cfg.Now,
	}
	if d.timeout <= 0 {
		d.timeout = DefaultTimeout
	}
	if d.recorder == nil {
		d.recorder = metrics.NoOpRecorder{}
	}
	if d.now == nil {
		d.now = time.Now
	}
	return d
}

// View returns the capability view the dispatcher resolves names in.
func (d *Dispatcher) View() *capability.View {
	return d.view
}

// Dispatch runs one tool call. It never returns nil and never panics.
func (d *Dispatcher) Dispatch(ctx context.Context, env Envelope) *mcp.CallToolResult {
	start := d.now()
	name := env.OperationName
	sid := logging.TruncateSessionID(d.sessionID)

	result, outcome := d.dispatch(ctx, env)

	d.recorder.RecordDispatch(ctx, name, outcome, d.now().Sub(start))
	if result.IsError {
		logging.Info(subsystem, "[%s] %s finished with outcome=%s", sid, name, outcome)
	} else {
		logging.Debug(subsystem, "[%s] %s finished with outcome=%s in %s", sid, name, outcome, d.now().Sub(start))
	}
	return result
}

func (d *Dispatcher) dispatch(ctx context.Context, env Envelope) (*mcp.CallToolResult, string) {
	name := env.OperationName
	sid := logging.TruncateSessionID(d.sessionID)

	logging.Debug(subsystem, "[%s] resolve %s", sid, name)
	capab, err := d.view.Resolve(name)
	if err != nil {
		logging.Debug(subsystem, "[%s] resolve %s failed: %v", sid, name, err)
		return errorResult(resolveMessage(name, err)), metrics.OutcomeUnknownTool
	}

	logging.Debug(subsystem, "[%s] validate credential for %s", sid, name)
	cred, err := d.credential(ctx)
	if err != nil {
		return errorResult(credentialMessage(name, err)), metrics.OutcomeUnauthorized
	}

	if d.domain == "" {
		logging.Warn(subsystem, "[%s] %s rejected: no tenant domain configured", sid, name)
		return errorResult(fmt.Sprintf("%s: no tenant domain is configured. Set TENANT_DOMAIN and restart the server.", name)),
			metrics.OutcomeUnauthorized
	}

	logging.Debug(subsystem, "[%s] validate arguments for %s", sid, name)
	if err := capab.ValidateArguments(env.Arguments); err != nil {
		return errorResult(translateError(name, err, d.timeout)), metrics.OutcomeInvalidArgs
	}

	logging.Debug(subsystem, "[%s] invoke %s", sid, name)
	resp, err := d.invoke(ctx, capab, cred, env.Arguments)
	if err != nil {
		logging.Debug(subsystem, "[%s] invoke %s failed: %v", sid, name, err)
		return errorResult(translateError(name, err, d.timeout)), outcomeOf(err)
	}

	if resp == nil {
		resp = &management.Response{Kind: management.KindEmpty}
	}
	return mcp.NewToolResultText(resp.Text()), metrics.OutcomeSuccess
}

// credential returns a valid credential, reloading the source once when the
// held one is missing or expired.
func (d *Dispatcher) credential(ctx context.Context) (*credential.Credential, error) {
	sid := logging.TruncateSessionID(d.sessionID)

	cred := d.source.Current()
	err := credential.Validate(cred, d.now())
	if err == nil {
		return cred, nil
	}

	logging.Info(subsystem, "[%s] credential invalid (%s), reloading", sid, credential.ReasonOf(err))
	reloaded, reloadErr := d.source.Reload(ctx)
	if reloadErr != nil {
		logging.Warn(subsystem, "[%s] credential reload failed: %v", sid, reloadErr)
		return nil, err
	}
	if err := credential.Validate(reloaded, d.now()); err != nil {
		logging.Warn(subsystem, "[%s] credential still invalid after reload (%s)", sid, credential.ReasonOf(err))
		return nil, err
	}

	logging.Audit(logging.AuditEvent{
		Action:    "credential_reload",
		Outcome:   "success",
		SessionID: logging.TruncateSessionID(d.sessionID),
		Details:   "mode=" + reloaded.Mode(),
	})
	return reloaded, nil
}

// invoke builds the scoped request and runs the handler under the
// operation timeout. Panics are converted to errors.
func (d *Dispatcher) invoke(ctx context.Context, capab capability.Capability, cred *credential.Credential, args map[string]any) (resp *management.Response, err error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			logging.Error(subsystem, fmt.Errorf("%v", r), "Handler for %s panicked\n%s", capab.Name, debug.Stack())
			resp, err = nil, &panicError{value: r}
		}
	}()

	client, err := d.factory.Client(ctx, d.clientCredentials(cred))
	if err != nil {
		return nil, err
	}

	if args == nil {
		args = map[string]any{}
	}
	return capab.Handler(ctx, capability.Request{
		Token:      cred.BearerToken,
		Domain:     d.domain,
		Parameters: args,
		Client:     client,
	})
}

func (d *Dispatcher) clientCredentials(cred *credential.Credential) management.Credentials {
	if cred.HasBearer() {
		return management.Credentials{Domain: d.domain, Token: cred.BearerToken}
	}
	audience := cred.Audience
	if audience == "" {
		audience = d.audience
	}
	return management.Credentials{
		Domain:       d.domain,
		ClientID:     cred.ClientID,
		ClientSecret: cred.ClientSecret,
		Audience:     audience,
	}
}

func errorResult(msg string) *mcp.CallToolResult {
	return mcp.NewToolResultError(singleLine(msg))
}
