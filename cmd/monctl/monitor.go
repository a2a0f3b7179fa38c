package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"time"

	"github.com/monctl/monctl/internal/config"
	"github.com/monctl/monctl/internal/monitorapi"
)

// connectMonitor builds a monitorapi.Client for cfg, verifies the
// server-name tag (spec.md §6), and authenticates by token or
// username/password; after a password login it rotates the password if
// requested.
func connectMonitor(ctx context.Context, cfg config.MonitorConfig) (monitorapi.Client, error) {
	httpc := &http.Client{Timeout: 15 * time.Second}
	if cfg.SelfCert {
		httpc.Transport = &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}} //nolint:gosec // opt-in via monitor.self_cert
	}
	if err := monitorapi.CheckServerName(httpc, cfg.Endpoint, cfg.Node); err != nil {
		return nil, fmt.Errorf("connectMonitor: %w", err)
	}

	client := monitorapi.NewJSONRPCClient(monitorapi.Config{
		Endpoint:   cfg.Endpoint,
		Node:       cfg.Node,
		SelfSigned: cfg.SelfCert,
	}, nil)

	if cfg.Token != "" {
		if err := client.LoginToken(ctx, cfg.Token); err != nil {
			return nil, fmt.Errorf("connectMonitor: token login: %w", err)
		}
		return client, nil
	}

	if err := client.LoginPassword(ctx, cfg.User, cfg.Password); err != nil {
		return nil, fmt.Errorf("connectMonitor: password login: %w", err)
	}
	if cfg.UpdatePassword && cfg.PlatformPassword != "" {
		if err := client.ChangePassword(ctx, cfg.User, cfg.PlatformPassword, cfg.Password); err != nil {
			return nil, fmt.Errorf("connectMonitor: rotating onboarding password: %w", err)
		}
	}
	return client, nil
}
