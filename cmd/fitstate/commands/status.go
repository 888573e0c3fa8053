package commands

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"git.home.luguber.info/inful/fitstate/internal/facade"
	"git.home.luguber.info/inful/fitstate/internal/foundation/errors"
	"git.home.luguber.info/inful/fitstate/internal/runtime"
	"git.home.luguber.info/inful/fitstate/internal/services"
	"git.home.luguber.info/inful/fitstate/internal/state"
)

// StatusCmd implements the 'status' command.
//
// Without --url it builds a local runtime from configuration (journal, admin
// and scheduler off), applies the seed, and reports on it. With --url it asks
// a running server's admin endpoint instead.
type StatusCmd struct {
	Format  string        `short:"f" help:"Output format" enum:"yaml,json" default:"yaml"`
	URL     string        `name:"url" help:"Admin base URL of a running server, e.g. http://127.0.0.1:8089"`
	Timeout time.Duration `help:"Timeout for --url requests" default:"5s"`
}

// StatusReport is the local status document.
type StatusReport struct {
	Status        facade.InitializationStatus `json:"status" yaml:"status"`
	Components    []services.ServiceInfo      `json:"components" yaml:"components"`
	State         map[string]any              `json:"state" yaml:"state"`
	Subscriptions facade.SubscriptionReport   `json:"subscriptions" yaml:"subscriptions"`
	History       []state.HistoryEntry        `json:"history" yaml:"history"`
}

func (s *StatusCmd) Run(g *Global, root *CLI) error {
	if s.URL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), s.Timeout)
		defer cancel()
		status, err := FetchRemoteStatus(ctx, http.DefaultClient, s.URL)
		if err != nil {
			return err
		}
		return writeOutput(g.out(), s.Format, status)
	}

	cfg, err := root.loadConfig(g)
	if err != nil {
		return err
	}
	cfg.Journal.Enabled = false
	cfg.Admin.Enabled = false
	cfg.Scheduler.HeartbeatInterval = 0
	cfg.Seed.Watch = false

	ctx := context.Background()
	rt, err := runtime.Create(ctx, cfg, runtime.WithLogger(g.Logger))
	if err != nil {
		return err
	}
	defer func() { _ = rt.Dispose(ctx) }()
	if err := rt.Start(ctx); err != nil {
		return err
	}

	f := rt.Facade()
	return writeOutput(g.out(), s.Format, StatusReport{
		Status:        f.GetInitializationStatus(),
		Components:    rt.Components(),
		State:         f.GetStateTree(),
		Subscriptions: f.GetSubscriptions(),
		History:       f.GetHistory(),
	})
}

// FetchRemoteStatus reads /api/status from the admin server at baseURL.
func FetchRemoteStatus(ctx context.Context, client *http.Client, baseURL string) (facade.InitializationStatus, error) {
	var status facade.InitializationStatus
	url := strings.TrimRight(baseURL, "/") + "/api/status"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return status, errors.ValidationError("invalid admin URL").WithCause(err).WithContext("url", baseURL).Build()
	}
	resp, err := client.Do(req)
	if err != nil {
		return status, errors.RuntimeError("admin server unreachable").WithCause(err).WithContext("url", url).Build()
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return status, errors.RuntimeError("failed to read admin response").WithCause(err).Build()
	}
	if resp.StatusCode != http.StatusOK {
		return status, errors.RuntimeError("admin server returned an error").
			WithContext("url", url).
			WithContext("status", resp.StatusCode).
			WithContext("body", strings.TrimSpace(string(body))).
			Build()
	}
	if err := json.Unmarshal(body, &status); err != nil {
		return status, errors.RuntimeError("invalid admin response").WithCause(err).Build()
	}
	return status, nil
}
