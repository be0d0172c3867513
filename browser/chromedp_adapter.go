package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/autoweb/agent/core"
)

// skeletonizerScript is a thin, best-effort DOM skeletonizer: it walks
// the visible body and emits a DOMNode-shaped JSON tree, capping depth
// and children so a dense page doesn't blow past the embedding input's
// truncation boundary anyway. The real skeletonizer is an external
// collaborator; this is the "one concrete, if thin, implementation" this
// rewrite owns so the rest of the pipeline has something to drive.
const skeletonizerScript = `
(function() {
  function skeletonize(el, depth) {
    if (!el || depth > 6) return {kind: "skipped", reason: "max_depth"};
    var style = window.getComputedStyle ? window.getComputedStyle(el) : null;
    if (style && (style.display === "none" || style.visibility === "hidden")) {
      return {kind: "skipped", reason: "hidden"};
    }
    var tag = (el.tagName || "").toLowerCase();
    if (tag === "script" || tag === "style" || tag === "noscript") {
      return {kind: "skipped", reason: "non_content"};
    }
    var attrs = {};
    if (el.id) attrs.id = el.id;
    if (el.className && typeof el.className === "string") attrs["class"] = el.className;
    if (el.getAttribute) {
      var href = el.getAttribute("href"); if (href) attrs.href = href;
      var name = el.getAttribute("name"); if (name) attrs.name = name;
      var type = el.getAttribute("type"); if (type) attrs.type = type;
    }
    var text = "";
    for (var i = 0; i < el.childNodes.length; i++) {
      var n = el.childNodes[i];
      if (n.nodeType === 3) { text += n.textContent; }
    }
    text = text.trim().slice(0, 200);

    var children = [];
    var kids = el.children || [];
    var limit = Math.min(kids.length, 40);
    for (var j = 0; j < limit; j++) {
      children.push(skeletonize(kids[j], depth + 1));
    }
    return {kind: "element", tag: tag, text: text, attributes: attrs, children: children};
  }
  return JSON.stringify(skeletonize(document.body, 0));
})()
`

// ChromeBrowser is a chromedp-backed Browser: it owns one root allocator
// context and hands out Tab adapters over child browser contexts.
type ChromeBrowser struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	logger      core.Logger
}

// NewChromeBrowser starts a Chromium process. headless controls
// --headless; userDataDir, if non-empty, persists the profile across runs.
func NewChromeBrowser(headless bool, userDataDir string, logger core.Logger) (*ChromeBrowser, error) {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:], chromedp.Flag("headless", headless))
	if userDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(userDataDir))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	return &ChromeBrowser{allocCtx: allocCtx, allocCancel: allocCancel, logger: logger}, nil
}

// NewTab spawns a fresh browser tab context.
func (b *ChromeBrowser) NewTab(ctx context.Context) (Tab, error) {
	tabCtx, cancel := chromedp.NewContext(b.allocCtx)
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("browser: start tab: %w", err)
	}
	return &chromeTab{ctx: tabCtx, cancel: cancel, logger: b.logger}, nil
}

// Close shuts down the Chromium process and every tab spawned from it.
func (b *ChromeBrowser) Close(ctx context.Context) error {
	b.allocCancel()
	return nil
}

type chromeTab struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger core.Logger
}

const navigationTimeout = 30 * time.Second

func (t *chromeTab) Navigate(ctx context.Context, url string) error {
	runCtx, cancel := context.WithTimeout(t.ctx, navigationTimeout)
	defer cancel()
	return chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

func (t *chromeTab) CurrentURL(ctx context.Context) (string, error) {
	var url string
	err := chromedp.Run(t.ctx, chromedp.Location(&url))
	return url, err
}

func (t *chromeTab) CaptureDOM(ctx context.Context) ([]byte, error) {
	var raw string
	if err := chromedp.Run(t.ctx, chromedp.Evaluate(skeletonizerScript, &raw)); err != nil {
		return nil, fmt.Errorf("browser: capture dom: %w", err)
	}
	return []byte(raw), nil
}

func (t *chromeTab) Eval(ctx context.Context, script string) ([]byte, error) {
	var raw string
	if err := chromedp.Run(t.ctx, chromedp.Evaluate(script, &raw)); err != nil {
		return nil, fmt.Errorf("browser: eval: %w", err)
	}
	return []byte(raw), nil
}

func (t *chromeTab) Close(ctx context.Context) error {
	t.cancel()
	return nil
}

