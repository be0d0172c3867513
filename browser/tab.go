package browser

import "context"

// Tab is the out-of-scope browser driver's external interface: a single
// browsing context the agent navigates and inspects. The concrete
// skeletonizer script and its injection mechanism are the driver's
// concern; Tab only needs to run it and return its raw output.
type Tab interface {
	// Navigate loads url and waits for the best-effort page-load signal.
	Navigate(ctx context.Context, url string) error

	// CurrentURL returns the tab's current address.
	CurrentURL(ctx context.Context) (string, error)

	// CaptureDOM runs the injected skeletonizer script and returns its
	// raw JSON output.
	CaptureDOM(ctx context.Context) ([]byte, error)

	// Eval runs arbitrary JavaScript and returns its JSON-encoded result.
	Eval(ctx context.Context, script string) ([]byte, error)

	// Close releases the tab.
	Close(ctx context.Context) error
}

// Browser starts and owns the Chromium process, handing out Tabs.
type Browser interface {
	// NewTab opens a fresh browsing context.
	NewTab(ctx context.Context) (Tab, error)

	// Close shuts down the browser process and all its tabs.
	Close(ctx context.Context) error
}
