package rod

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"strings"
	"sync"
	"time"

	"kairos/internal/application/port/output"
	"kairos/internal/domain/entity"

	"github.com/disintegration/imaging"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"
)

var _ output.BrowserPort = (*BrowserAdapter)(nil)

const (
	defaultSlowMotion  = 0
	defaultTimeout     = 10 * time.Second
	maxUIElements      = 500
	maxScreenshotWidth = 1024
)

var ErrBrowserClosed = errors.New("browser is closed")

type BrowserAdapter struct {
	mu       sync.Mutex
	browser  *rod.Browser
	launcher *launcher.Launcher
	page     *rod.Page
	timeout  time.Duration
	closed   bool
}

type BrowserConfig struct {
	Headless   bool
	SlowMotion time.Duration
	Timeout    time.Duration
	NoSandbox  bool
	DevTools   bool
	// DisableSecurityFeatures turns off web security, for local test targets
	// served without TLS.
	DisableSecurityFeatures bool
}

func DefaultConfig() BrowserConfig {
	return BrowserConfig{
		Headless:   true,
		SlowMotion: defaultSlowMotion,
		Timeout:    defaultTimeout,
	}
}

func NewBrowserAdapter(ctx context.Context, cfg BrowserConfig) (*BrowserAdapter, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	l := launcher.New().
		Context(ctx).
		Headless(cfg.Headless).
		Devtools(cfg.DevTools).
		NoSandbox(cfg.NoSandbox).
		Delete("use-mock-keychain")
	if cfg.DisableSecurityFeatures {
		l = l.Set("disable-web-security").Set("allow-running-insecure-content")
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL).SlowMotion(cfg.SlowMotion)
	if err := browser.Connect(); err != nil {
		l.Kill()
		l.Cleanup()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = browser.Close()
		l.Kill()
		l.Cleanup()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	return &BrowserAdapter{
		browser:  browser,
		launcher: l,
		page:     page,
		timeout:  cfg.Timeout,
	}, nil
}

// activePage returns the page bound to ctx with the adapter timeout applied.
func (b *BrowserAdapter) activePage(ctx context.Context) (*rod.Page, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed || b.page == nil {
		return nil, ErrBrowserClosed
	}
	return b.page.Context(ctx).Timeout(b.timeout), nil
}

func (b *BrowserAdapter) Navigate(ctx context.Context, url string) error {
	page, err := b.activePage(ctx)
	if err != nil {
		return err
	}
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("page load failed: %w", err)
	}
	_ = page.WaitIdle(5 * time.Second)
	return nil
}

func (b *BrowserAdapter) find(page *rod.Page, selector string) (*rod.Element, error) {
	if isXPathSelector(selector) {
		return page.ElementX(strings.TrimPrefix(strings.TrimSpace(selector), "xpath="))
	}
	return page.Element(selector)
}

func (b *BrowserAdapter) Click(ctx context.Context, selector string) error {
	page, err := b.activePage(ctx)
	if err != nil {
		return err
	}

	el, err := b.find(page, selector)
	if err != nil {
		return fmt.Errorf("element not found: %s: %w", selector, err)
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click failed: %w", err)
	}

	_ = page.WaitIdle(2 * time.Second)
	return nil
}

func (b *BrowserAdapter) Fill(ctx context.Context, selector, text string) error {
	page, err := b.activePage(ctx)
	if err != nil {
		return err
	}

	el, err := b.find(page, selector)
	if err != nil {
		return fmt.Errorf("field not found: %s: %w", selector, err)
	}
	if err := el.SelectAllText(); err == nil {
		_ = el.Input("")
	}
	if err := el.Input(text); err != nil {
		return fmt.Errorf("input failed: %w", err)
	}
	return nil
}

func (b *BrowserAdapter) PressEnter(ctx context.Context) error {
	page, err := b.activePage(ctx)
	if err != nil {
		return err
	}
	if err := page.Keyboard.Type(input.Enter); err != nil {
		return fmt.Errorf("failed to press Enter: %w", err)
	}
	_ = page.WaitIdle(1 * time.Second)
	return nil
}

// Scroll moves the viewport. A positive amount scrolls that many pixels
// for up/down; otherwise a double viewport height is used.
func (b *BrowserAdapter) Scroll(ctx context.Context, direction string, amount int) error {
	page, err := b.activePage(ctx)
	if err != nil {
		return err
	}

	var script string
	switch strings.ToLower(strings.TrimSpace(direction)) {
	case "down":
		script = `(n) => window.scrollBy(0, n > 0 ? n : window.innerHeight * 2)`
	case "up":
		script = `(n) => window.scrollBy(0, -(n > 0 ? n : window.innerHeight * 2))`
	case "top":
		script = `() => window.scrollTo(0, 0)`
	case "bottom":
		script = `() => window.scrollTo(0, document.body.scrollHeight)`
	default:
		return fmt.Errorf("unknown scroll direction: %s", direction)
	}

	if _, err := page.Eval(script, amount); err != nil {
		return fmt.Errorf("scroll failed: %w", err)
	}
	_ = page.WaitIdle(800 * time.Millisecond)
	return nil
}

func (b *BrowserAdapter) GetPageContent(ctx context.Context) (*entity.PageContent, error) {
	page, err := b.activePage(ctx)
	if err != nil {
		return nil, err
	}

	info, err := page.Info()
	if err != nil {
		return nil, fmt.Errorf("page info failed: %w", err)
	}

	body, err := page.Element("body")
	if err != nil {
		return nil, fmt.Errorf("body not found: %w", err)
	}
	html, err := body.HTML()
	if err != nil {
		return nil, fmt.Errorf("failed to get HTML: %w", err)
	}

	return &entity.PageContent{
		URL:   info.URL,
		Title: info.Title,
		HTML:  html,
	}, nil
}

func (b *BrowserAdapter) GetPageText(ctx context.Context) (string, error) {
	page, err := b.activePage(ctx)
	if err != nil {
		return "", err
	}
	body, err := page.Element("body")
	if err != nil {
		return "", fmt.Errorf("body not found: %w", err)
	}
	text, err := body.Text()
	if err != nil {
		return "", fmt.Errorf("failed to get text: %w", err)
	}
	return strings.TrimSpace(text), nil
}

func (b *BrowserAdapter) GetUIElements(ctx context.Context) ([]entity.UIElement, error) {
	page, err := b.activePage(ctx)
	if err != nil {
		return nil, err
	}

	var result []entity.UIElement
	seen := make(map[string]bool)

	add := func(el *rod.Element, typ string) {
		if el == nil || len(result) >= maxUIElements {
			return
		}
		if visible, err := el.Visible(); err != nil || !visible {
			return
		}

		selector, err := el.GetXPath(true)
		if err != nil || seen[selector] {
			return
		}
		seen[selector] = true

		text, _ := el.Text()
		aria, _ := el.Attribute("aria-label")
		role, _ := el.Attribute("role")

		result = append(result, entity.UIElement{
			ID:        fmt.Sprintf("ui-%04d", len(result)),
			Type:      typ,
			Text:      strings.TrimSpace(text),
			AriaLabel: ptrToString(aria),
			Role:      ptrToString(role),
			Selector:  selector,
		})
	}

	groups := []struct {
		selector string
		typ      string
	}{
		{"button, [role='button'], [aria-label]:not([aria-label=''])", "button"},
		{"input, textarea, select", "input"},
		{"a[href]", "link"},
	}
	for _, g := range groups {
		elements, err := page.Elements(g.selector)
		if err != nil {
			continue
		}
		for _, el := range elements {
			add(el, g.typ)
		}
	}

	return result, nil
}

func (b *BrowserAdapter) Screenshot(ctx context.Context) (*entity.Screenshot, error) {
	page, err := b.activePage(ctx)
	if err != nil {
		return nil, err
	}

	imgBytes, err := page.Screenshot(true, &proto.PageCaptureScreenshot{
		Format:  proto.PageCaptureScreenshotFormatJpeg,
		Quality: gson.Int(80),
	})
	if err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}

	return encodeScreenshot(imgBytes)
}

// encodeScreenshot downsizes wide captures and re-encodes them as JPEG.
func encodeScreenshot(raw []byte) (*entity.Screenshot, error) {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("image decode failed: %w", err)
	}

	if img.Bounds().Dx() > maxScreenshotWidth {
		img = imaging.Resize(img, maxScreenshotWidth, 0, imaging.Lanczos)
	}

	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: 75}); err != nil {
		return nil, fmt.Errorf("jpeg encode failed: %w", err)
	}

	return &entity.Screenshot{
		Data:   buf.Bytes(),
		Format: "jpeg",
		Width:  img.Bounds().Dx(),
		Height: img.Bounds().Dy(),
	}, nil
}

func (b *BrowserAdapter) CurrentURL() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed || b.page == nil {
		return ""
	}
	info, err := b.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

func (b *BrowserAdapter) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true

	if b.browser != nil {
		_ = b.browser.Close()
	}
	if b.launcher != nil {
		b.launcher.Kill()
		b.launcher.Cleanup()
	}
}

func isXPathSelector(selector string) bool {
	s := strings.TrimSpace(selector)
	return strings.HasPrefix(s, "/") || strings.HasPrefix(s, "(/") || strings.HasPrefix(s, "xpath=")
}

func ptrToString(s *string) string {
	if s != nil {
		return *s
	}
	return ""
}
