package search

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/BaSui01/recruitflow/config"
	"github.com/BaSui01/recruitflow/types"
)

// =============================================================================
// 🧭 本地浏览器搜索
// =============================================================================

const (
	resultsURL      = "https://html.duckduckgo.com/html/?q="
	resultSelector  = "a.result__a"
	navigateTimeout = 45 * time.Second
)

// Rod finds public LinkedIn profiles through a web search page rendered in a
// local headless browser. It needs no third-party API key.
type Rod struct {
	cfg    config.RodConfig
	logger *zap.Logger
}

// NewRod creates the local searcher.
func NewRod(cfg config.RodConfig, logger *zap.Logger) *Rod {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxProfiles <= 0 {
		cfg.MaxProfiles = 20
	}
	return &Rod{cfg: cfg, logger: logger.With(zap.String("component", "search"), zap.String("backend", "rod"))}
}

// StartSession launches a browser and opens an incognito context for the run.
func (r *Rod) StartSession(ctx context.Context) (types.SearchSession, error) {
	l := launcher.New().Headless(r.cfg.Headless)
	if r.cfg.Bin != "" {
		l = l.Bin(r.cfg.Bin)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return nil, types.NewError(types.ErrServiceUnavailable, "failed to launch browser").WithProvider("rod").WithCause(err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, types.NewError(types.ErrServiceUnavailable, "failed to connect to browser").WithProvider("rod").WithCause(err)
	}

	incognito, err := browser.Incognito()
	if err != nil {
		_ = browser.Close()
		l.Kill()
		return nil, types.NewError(types.ErrServiceUnavailable, "failed to open incognito context").WithProvider("rod").WithCause(err)
	}

	r.logger.Info("search session started", zap.String("control_url", controlURL))
	return &rodSession{owner: r, launcher: l, browser: browser, incognito: incognito}, nil
}

type rodSession struct {
	owner     *Rod
	launcher  *launcher.Launcher
	browser   *rod.Browser
	incognito *rod.Browser
	mu        sync.Mutex
	once      sync.Once
}

func (s *rodSession) Search(ctx context.Context, query string) ([]types.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	target := resultsURL + url.QueryEscape("site:linkedin.com/in "+query)
	page, err := s.incognito.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, types.NewError(types.ErrUpstreamError, "failed to open page").WithProvider("rod").WithCause(err)
	}
	defer func() { _ = page.Close() }()

	page = page.Context(ctx)
	if err := page.Timeout(navigateTimeout).Navigate(target); err != nil {
		return nil, types.NewError(types.ErrUpstreamTimeout, "search page did not load").WithProvider("rod").WithRetryable(true).WithCause(err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, types.NewError(types.ErrUpstreamTimeout, "search page did not finish loading").WithProvider("rod").WithCause(err)
	}

	links, err := page.Elements(resultSelector)
	if err != nil {
		return nil, types.NewError(types.ErrInvalidResponse, "failed to read search results").WithProvider("rod").WithCause(err)
	}

	profiles := make([]types.Profile, 0, len(links))
	for _, link := range links {
		if len(profiles) >= s.owner.cfg.MaxProfiles {
			break
		}
		title, err := link.Text()
		if err != nil {
			continue
		}
		href, err := link.Attribute("href")
		if err != nil || href == nil {
			continue
		}
		if p, ok := ProfileFromResult(title, *href); ok {
			profiles = append(profiles, p)
		}
	}

	s.owner.logger.Info("search finished", zap.String("query", query), zap.Int("profiles", len(profiles)))
	return profiles, nil
}

func (s *rodSession) Stop(context.Context) error {
	var err error
	s.once.Do(func() {
		err = s.browser.Close()
		s.launcher.Kill()
		s.launcher.Cleanup()
		s.owner.logger.Info("search session stopped")
	})
	if err != nil {
		return fmt.Errorf("close browser: %w", err)
	}
	return nil
}

// ProfileFromResult parses one search hit such as
// "Ada Lovelace - Principal Engineer - Analytical Engines | LinkedIn".
// Redirect links carrying the target in a uddg parameter are unwrapped.
func ProfileFromResult(title, href string) (types.Profile, bool) {
	target := href
	if u, err := url.Parse(href); err == nil {
		if uddg := u.Query().Get("uddg"); uddg != "" {
			target = uddg
		}
	}
	u, err := url.Parse(target)
	if err != nil || !strings.HasSuffix(u.Hostname(), "linkedin.com") || !strings.HasPrefix(u.Path, "/in/") {
		return types.Profile{}, false
	}
	u.RawQuery = ""
	u.Fragment = ""
	if u.Scheme == "" {
		u.Scheme = "https"
	}

	title = strings.TrimSpace(title)
	if i := strings.LastIndex(title, "|"); i >= 0 {
		title = strings.TrimSpace(title[:i])
	}
	parts := strings.Split(title, " - ")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	p := types.Profile{Name: parts[0], ProfileURL: u.String()}
	if len(parts) > 1 {
		p.Title = parts[1]
	}
	if len(parts) > 2 {
		p.Company = parts[2]
	}
	if p.Name == "" {
		return types.Profile{}, false
	}
	return p, true
}
