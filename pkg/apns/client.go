// Package apns sends silent pass-update pushes through Apple's HTTP/2 gateway
// using token based provider authentication.
package apns

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const (
	ProductionHost = "https://api.push.apple.com"
	SandboxHost    = "https://api.sandbox.push.apple.com"

	// Apple rejects provider tokens older than an hour.
	tokenTTL = 45 * time.Minute
)

var ErrNotConfigured = errors.New("apns: client not configured")

type Config struct {
	KeyPath     string // .p8 auth key
	KeyID       string
	TeamID      string
	Topic       string
	Environment string // production | sandbox | development | dev
	BaseURL     string // overrides the environment host when set
	Timeout     time.Duration
}

type Client struct {
	cfg        Config
	httpClient *http.Client
	breaker    circuitbreaker.CircuitBreaker[*http.Response]
	log        *zap.Logger
	now        func() time.Time

	mu       sync.Mutex
	key      *ecdsa.PrivateKey
	token    string
	issuedAt time.Time
}

func New(cfg Config, log *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ForceAttemptHTTP2 = true

	breaker := circuitbreaker.NewBuilder[*http.Response]().
		HandleIf(func(resp *http.Response, err error) bool {
			return err != nil || (resp != nil && resp.StatusCode >= http.StatusInternalServerError)
		}).
		WithFailureThresholdRatio(5, 10).
		WithDelay(30 * time.Second).
		WithSuccessThreshold(1).
		OnStateChanged(func(event circuitbreaker.StateChangedEvent) {
			log.Warn("apns circuit breaker state change",
				zap.String("from", fmt.Sprint(event.OldState)),
				zap.String("to", fmt.Sprint(event.NewState)))
		}).
		Build()

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout, Transport: transport},
		breaker:    breaker,
		log:        log,
		now:        time.Now,
	}
}

// Configured reports whether every credential needed for a push is present.
func (c *Client) Configured() bool {
	if c.cfg.KeyID == "" || c.cfg.TeamID == "" || c.cfg.Topic == "" || c.cfg.KeyPath == "" {
		return false
	}
	info, err := os.Stat(c.cfg.KeyPath)
	return err == nil && !info.IsDir()
}

func (c *Client) host() string {
	if c.cfg.BaseURL != "" {
		return strings.TrimRight(c.cfg.BaseURL, "/")
	}
	switch strings.ToLower(c.cfg.Environment) {
	case "sandbox", "development", "dev":
		return SandboxHost
	}
	return ProductionHost
}

func (c *Client) loadKey() (*ecdsa.PrivateKey, error) {
	if c.key != nil {
		return c.key, nil
	}
	raw, err := os.ReadFile(c.cfg.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("apns: read auth key: %w", err)
	}
	key, err := jwt.ParseECPrivateKeyFromPEM(bytes.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("apns: parse auth key: %w", err)
	}
	c.key = key
	return key, nil
}

// providerToken returns the cached ES256 token, minting a new one once the
// cached token is older than tokenTTL.
func (c *Client) providerToken() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if c.token != "" && now.Sub(c.issuedAt) < tokenTTL {
		return c.token, nil
	}

	key, err := c.loadKey()
	if err != nil {
		return "", err
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodES256, jwt.MapClaims{
		"iss": c.cfg.TeamID,
		"iat": now.Unix(),
	})
	tok.Header["kid"] = c.cfg.KeyID
	signed, err := tok.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("apns: sign provider token: %w", err)
	}
	c.token = signed
	c.issuedAt = now
	return signed, nil
}

// SendPassUpdate tells the device holding pushToken that a pass changed. The
// device then asks the web service which serials to refetch.
func (c *Client) SendPassUpdate(ctx context.Context, pushToken, serialNumber string) error {
	if !c.Configured() {
		return ErrNotConfigured
	}
	token, err := c.providerToken()
	if err != nil {
		return err
	}

	url := c.host() + "/3/device/" + pushToken
	resp, err := failsafe.With[*http.Response](c.breaker).WithContext(ctx).Get(func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader("{}"))
		if err != nil {
			return nil, err
		}
		req.Header.Set("authorization", "bearer "+token)
		req.Header.Set("apns-topic", c.cfg.Topic)
		req.Header.Set("apns-push-type", "background")
		req.Header.Set("apns-priority", "5")
		req.Header.Set("content-type", "application/json")
		return c.httpClient.Do(req)
	})
	if err != nil {
		return fmt.Errorf("apns: push for %s: %w", serialNumber, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("apns: push for %s rejected with %d: %s", serialNumber, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
