package session

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tagging-ai/tagboard/pkg/models"
)

// Stored is what a storage persists for a session.
type Stored struct {
	Token     string      `yaml:"token"`
	User      models.User `yaml:"user"`
	ExpiresAt time.Time   `yaml:"expires_at,omitempty"`
}

// Storage is one place the token is kept. Load returns the zero value when
// nothing is stored.
type Storage interface {
	Load() (Stored, error)
	Save(Stored) error
	Clear() error
}

// Source is a Storage that only supplies a token, such as a request header.
// A token found in a Source is never copied into the other storages.
type Source interface {
	Storage
	SourceOnly()
}

// CookieName is the cookie holding the bearer token.
const CookieName = "token"

const userCookieName = "tagboard_user"

// FileStorage keeps the session in a YAML file readable by the CLI.
type FileStorage struct {
	Path string
}

// NewFileStorage stores the session as session.yaml inside dir.
func NewFileStorage(dir string) *FileStorage {
	return &FileStorage{Path: filepath.Join(dir, "session.yaml")}
}

func (f *FileStorage) Load() (Stored, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return Stored{}, nil
	}
	if err != nil {
		return Stored{}, fmt.Errorf("failed to read session: %w", err)
	}

	var s Stored
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Stored{}, fmt.Errorf("failed to parse session %s: %w", f.Path, err)
	}
	return s, nil
}

func (f *FileStorage) Save(s Stored) error {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return fmt.Errorf("failed to create session dir: %w", err)
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := os.WriteFile(f.Path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}

func (f *FileStorage) Clear() error {
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove session: %w", err)
	}
	return nil
}

// JarStorage keeps the token as a cookie for the backend origin so that
// cookie-authenticated backend pages see it too.
type JarStorage struct {
	Jar    http.CookieJar
	Origin *url.URL
}

// NewJarStorage binds jar to the backend origin.
func NewJarStorage(jar http.CookieJar, origin string) (*JarStorage, error) {
	u, err := url.Parse(origin)
	if err != nil {
		return nil, fmt.Errorf("invalid backend origin: %w", err)
	}
	return &JarStorage{Jar: jar, Origin: u}, nil
}

func (j *JarStorage) Load() (Stored, error) {
	for _, c := range j.Jar.Cookies(j.Origin) {
		if c.Name == CookieName {
			return Stored{Token: c.Value}, nil
		}
	}
	return Stored{}, nil
}

func (j *JarStorage) Save(s Stored) error {
	c := &http.Cookie{Name: CookieName, Value: s.Token, Path: "/"}
	if !s.ExpiresAt.IsZero() {
		c.Expires = s.ExpiresAt
	}
	j.Jar.SetCookies(j.Origin, []*http.Cookie{c})
	return nil
}

func (j *JarStorage) Clear() error {
	j.Jar.SetCookies(j.Origin, []*http.Cookie{{Name: CookieName, Value: "", Path: "/", MaxAge: -1}})
	return nil
}

// CookieStorage keeps the token in an HttpOnly cookie of a dashboard
// request/response pair, with the display name in a readable cookie.
type CookieStorage struct {
	W      http.ResponseWriter
	R      *http.Request
	Secure bool
	TTL    time.Duration
}

func (c *CookieStorage) Load() (Stored, error) {
	tok, err := c.R.Cookie(CookieName)
	if err != nil || tok.Value == "" {
		return Stored{}, nil
	}
	s := Stored{Token: tok.Value}
	if u, err := c.R.Cookie(userCookieName); err == nil {
		if name, err := url.QueryUnescape(u.Value); err == nil {
			s.User.Username = name
		}
	}
	return s, nil
}

func (c *CookieStorage) Save(s Stored) error {
	expires := time.Now().Add(c.TTL)
	if c.TTL <= 0 {
		expires = time.Now().Add(24 * time.Hour)
	}
	if !s.ExpiresAt.IsZero() && s.ExpiresAt.Before(expires) {
		expires = s.ExpiresAt
	}

	http.SetCookie(c.W, &http.Cookie{
		Name:     CookieName,
		Value:    s.Token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(c.W, &http.Cookie{
		Name:     userCookieName,
		Value:    url.QueryEscape(s.User.DisplayName()),
		Path:     "/",
		Expires:  expires,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (c *CookieStorage) Clear() error {
	for _, name := range []string{CookieName, userCookieName} {
		http.SetCookie(c.W, &http.Cookie{Name: name, Value: "", Path: "/", MaxAge: -1, HttpOnly: name == CookieName})
	}
	return nil
}
