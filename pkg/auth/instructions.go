package auth

import (
	"fmt"
	"io"
	"strings"
)

// WriteCookieExportGuide explains how to produce the cookies file the client
// loads
func WriteCookieExportGuide(w io.Writer, cookiesPath string) {
	rule := strings.Repeat("=", 72)
	lines := []string{
		rule,
		"COOKIE EXPORT GUIDE",
		rule,
		"",
		"The client reuses a logged-in browser session. It needs the session",
		"cookies, including the device id cookie 'a1', saved as JSON.",
		"",
		"STEP 1: Log in at https://www.xiaohongshu.com in your browser",
		"",
		"STEP 2: Export cookies for .xiaohongshu.com",
		"   - With a cookie export extension, save them as JSON. The exported",
		"     list of {\"name\", \"value\", \"domain\", ...} objects is accepted as is.",
		"   - Or open Developer Tools > Application > Cookies and copy the values",
		"     into a flat object: {\"a1\": \"...\", \"web_session\": \"...\", \"webId\": \"...\"}",
		"",
		fmt.Sprintf("STEP 3: Save the file as %s", cookiesPath),
		"   - Keep it private. It grants access to your account.",
		"",
		"STEP 4: Store your token service API key",
		"   xhsclient auth login",
		"",
		"Cookies expire. When requests fail with a login error, export again.",
		rule,
	}
	for _, l := range lines {
		fmt.Fprintln(w, l)
	}
}

// WriteQuickGuide is the short form shown after a session error
func WriteQuickGuide(w io.Writer, cookiesPath string) {
	fmt.Fprintln(w, "Session cookies missing or expired:")
	fmt.Fprintf(w, "  1. Log in at https://www.xiaohongshu.com\n")
	fmt.Fprintf(w, "  2. Export the site's cookies as JSON to %s (must include a1)\n", cookiesPath)
	fmt.Fprintln(w, "  3. Run 'xhsclient auth guide' for details")
}
