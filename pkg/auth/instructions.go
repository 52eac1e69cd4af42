package auth

import (
	"fmt"
	"io"
	"strings"
)

// ShowTokenGuide prints how to obtain an Apify API token
func ShowTokenGuide(w io.Writer) {
	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintln(w, "APIFY API TOKEN")
	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Posts are fetched through the Apify Instagram scraper actor, which")
	fmt.Fprintln(w, "needs a personal API token from your Apify account.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  1. Sign in at https://console.apify.com")
	fmt.Fprintln(w, "  2. Open Settings > API & Integrations")
	fmt.Fprintln(w, "  3. Copy the Personal API token (it starts with apify_api_)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Every run of the actor is billed to that account.")
	fmt.Fprintln(w, "Treat the token like a password; it is stored encrypted.")
	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintln(w)
}

// ShowQuickTokenGuide prints a one-line reminder
func ShowQuickTokenGuide(w io.Writer) {
	fmt.Fprintln(w, "Token: console.apify.com > Settings > API & Integrations > Personal API token")
	fmt.Fprintln(w, "   Or set IGPICKER_PROVIDER_TOKEN / APIFY_TOKEN")
}
