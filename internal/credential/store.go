package credential

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"identity-mcp/pkg/logging"
)

// ErrNotStored is returned by Store.Load when no credential exists for a domain.
var ErrNotStored = errors.New("no stored credential")

// Store persists one credential per tenant domain as JSON files.
//
// SECURITY:
//   - files are written with 0600 permissions
//   - the directory is created with 0700 permissions
//   - token values and secrets are never logged
type Store struct {
	dir string
	now func() time.Time
}

// storedCredential is the on-disk format.
type storedCredential struct {
	Domain       string    `json:"domain"`
	AccessToken  string    `json:"access_token,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	ExpiresAt    time.Time `json:"expires_at,omitempty"`
	Scopes       []string  `json:"scopes,omitempty"`
	ClientID     string    `json:"client_id,omitempty"`
	ClientSecret string    `json:"client_secret,omitempty"`
	Audience     string    `json:"audience,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewStore opens a store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("credential store directory is empty")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create credential store directory: %w", err)
	}
	return &Store{dir: dir, now: time.Now}, nil
}

// Dir returns the store's directory.
func (s *Store) Dir() string {
	return s.dir
}

// FileName returns the base name of the file holding domain's credential.
func (s *Store) FileName(domain string) string {
	hash := sha256.Sum256([]byte(strings.ToLower(domain)))
	return "credential-" + hex.EncodeToString(hash[:16]) + ".json"
}

func (s *Store) path(domain string) string {
	return filepath.Join(s.dir, s.FileName(domain))
}

// Load reads the credential for domain.
func (s *Store) Load(domain string) (*Credential, error) {
	// #nosec G304 -- path is derived from a hash of the domain
	data, err := os.ReadFile(s.path(domain))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotStored
		}
		return nil, fmt.Errorf("failed to read stored credential: %w", err)
	}

	var sc storedCredential
	if err := json.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("failed to decode stored credential: %w", err)
	}

	return &Credential{
		BearerToken:  sc.AccessToken,
		RefreshToken: sc.RefreshToken,
		Domain:       sc.Domain,
		ClientID:     sc.ClientID,
		ClientSecret: sc.ClientSecret,
		Audience:     sc.Audience,
		Scopes:       sc.Scopes,
		ExpiresAt:    sc.ExpiresAt,
	}, nil
}

// Save writes c, replacing any credential stored for the same domain.
// The file is written to a temporary name and renamed into place.
func (s *Store) Save(c *Credential) error {
	if c == nil || c.Domain == "" {
		return fmt.Errorf("cannot store a credential without a domain")
	}

	sc := storedCredential{
		Domain:       c.Domain,
		AccessToken:  c.BearerToken,
		RefreshToken: c.RefreshToken,
		ExpiresAt:    c.ExpiresAt,
		Scopes:       c.Scopes,
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Audience:     c.Audience,
		UpdatedAt:    s.now(),
	}
	if c.BearerToken != "" {
		sc.TokenType = "Bearer"
	}

	data, err := json.MarshalIndent(sc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode credential: %w", err)
	}

	target := s.path(c.Domain)
	tmp, err := os.CreateTemp(s.dir, ".credential-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary credential file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to restrict credential file permissions: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write credential file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write credential file: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		logging.Audit(logging.AuditEvent{
			Action:  "credential_store",
			Outcome: "failure",
			Target:  c.Domain,
			Details: err.Error(),
		})
		return fmt.Errorf("failed to persist credential: %w", err)
	}

	logging.Audit(logging.AuditEvent{
		Action:  "credential_store",
		Outcome: "success",
		Target:  c.Domain,
		Details: fmt.Sprintf("mode=%s has_refresh_token=%t", c.Mode(), c.RefreshToken != ""),
	})
	return nil
}

// Delete removes the credential for domain. Deleting a missing credential is
// not an error.
func (s *Store) Delete(domain string) error {
	err := os.Remove(s.path(domain))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete stored credential: %w", err)
	}
	logging.Audit(logging.AuditEvent{
		Action:  "credential_delete",
		Outcome: "success",
		Target:  domain,
	})
	return nil
}

// Clear removes every stored credential and returns how many were removed.
func (s *Store) Clear() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to list credential store: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "credential-") || filepath.Ext(name) != ".json" {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return removed, fmt.Errorf("failed to remove %s: %w", name, err)
		}
		removed++
	}

	logging.Audit(logging.AuditEvent{
		Action:  "credential_clear",
		Outcome: "success",
		Details: fmt.Sprintf("removed=%d", removed),
	})
	return removed, nil
}
