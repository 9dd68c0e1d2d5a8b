// Package browser implements the validation browser session on top of
// chromedp. Elements are addressed by XPath; visibility checks, script
// clicks and table capture run as page scripts so they never block on a
// missing node.
package browser
