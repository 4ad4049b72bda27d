package main

import (
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

// persistentJar is a cookie jar that survives process exits by writing
// the API host's cookies to a JSON file. Only the dev/login session
// cookie passes through it, so the simple name/value model is enough.
type persistentJar struct {
	*cookiejar.Jar
	path string
	base *url.URL
}

type storedCookie struct {
	Name    string    `json:"name"`
	Value   string    `json:"value"`
	Expires time.Time `json:"expires,omitempty"`
}

func newPersistentJar(path string, base *url.URL) (*persistentJar, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	p := &persistentJar{Jar: jar, path: path, base: base}
	p.load()
	return p, nil
}

// load restores previously saved cookies. A missing or corrupt file just
// means an empty jar.
func (p *persistentJar) load() {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return
	}
	var stored []storedCookie
	if err := json.Unmarshal(data, &stored); err != nil {
		return
	}
	cookies := make([]*http.Cookie, 0, len(stored))
	now := time.Now()
	for _, c := range stored {
		if !c.Expires.IsZero() && c.Expires.Before(now) {
			continue
		}
		cookies = append(cookies, &http.Cookie{Name: c.Name, Value: c.Value, Expires: c.Expires})
	}
	p.SetCookies(p.base, cookies)
}

// save writes the current cookies for the API host, owner-readable only.
func (p *persistentJar) save() error {
	cookies := p.Cookies(p.base)
	stored := make([]storedCookie, 0, len(cookies))
	for _, c := range cookies {
		stored = append(stored, storedCookie{Name: c.Name, Value: c.Value, Expires: c.Expires})
	}
	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(p.path, data, 0o600)
}
